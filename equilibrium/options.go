package equilibrium

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/lvflow/internal/logging"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/roots"
	"github.com/katalvlaran/lvflow/thermo"
)

// Sentinel errors shared by every solver.
var (
	// ErrDidNotConverge indicates an exhausted iteration budget.
	ErrDidNotConverge = errors.New("equilibrium: solver did not converge")

	// ErrInfeasibleRegion indicates a composition spec no physical split satisfies.
	ErrInfeasibleRegion = errors.New("equilibrium: infeasible region")

	// ErrDegenerateInput indicates input rejected before iterating.
	ErrDegenerateInput = errors.New("equilibrium: degenerate input")

	// ErrInvalidSpecification indicates an unsupported or malformed specification.
	ErrInvalidSpecification = errors.New("equilibrium: invalid specification")
)

// Default numeric policy.
const (
	DefaultTolerance   = 1e-8
	DefaultMaxIter     = 100
	DefaultMaxInner    = 200
	DefaultLeverMargin = 1e-6

	// dominantFraction marks a feed treated as a pure component.
	dominantFraction = 1 - 1e-9

	// trivialGap is the max |x¹ − x²| below which two liquids are one.
	trivialGap = 1e-4
)

// Options configures a solver.
type Options struct {
	Tol          float64 // relative tolerance on compositions, V and T
	MaxIter      int     // outer root-find / nested-loop budget
	MaxInner     int     // inner fixed-point budget
	ColdStart    bool    // ignore remembered answers
	LeverMargin  float64 // ε of the lever-rule feasibility window
	LightNonKeys []string
	HeavyNonKeys []string
	Logger       *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the warm-starting defaults with a discarding logger.
func DefaultOptions() Options {
	return Options{
		Tol:         DefaultTolerance,
		MaxIter:     DefaultMaxIter,
		MaxInner:    DefaultMaxInner,
		LeverMargin: DefaultLeverMargin,
		Logger:      logging.NewNop(),
	}
}

// WithTolerance sets the convergence tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.Tol = tol
		}
	}
}

// WithMaxIterations sets the outer and inner iteration budgets.
func WithMaxIterations(outer, inner int) Option {
	return func(o *Options) {
		if outer > 0 {
			o.MaxIter = outer
		}
		if inner > 0 {
			o.MaxInner = inner
		}
	}
}

// WithColdStart makes every call start from scratch.
func WithColdStart() Option {
	return func(o *Options) { o.ColdStart = true }
}

// WithLeverMargin sets ε for the (x,P)/(y,P) feasibility check.
func WithLeverMargin(eps float64) Option {
	return func(o *Options) {
		if eps >= 0 {
			o.LeverMargin = eps
		}
	}
}

// WithLightNonKeys sends ids wholly to the vapor without equilibrium.
func WithLightNonKeys(ids ...string) Option {
	return func(o *Options) { o.LightNonKeys = append(o.LightNonKeys, ids...) }
}

// WithHeavyNonKeys sends ids wholly to the liquid without equilibrium.
func WithHeavyNonKeys(ids ...string) Option {
	return func(o *Options) { o.HeavyNonKeys = append(o.HeavyNonKeys, ids...) }
}

// WithLogger routes solver diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// rootOpts maps the solver policy onto the root finders.
func (o Options) rootOpts(extra ...roots.Option) []roots.Option {
	base := []roots.Option{
		roots.WithXTol(1e-12, o.Tol*1e-2),
		roots.WithFTol(o.Tol * 1e-2),
		roots.WithMaxIter(o.MaxIter),
	}

	return append(base, extra...)
}

// notConverged tags a budget failure with what was being solved.
func notConverged(what string, err error) error {
	if errors.Is(err, roots.ErrMaxIterations) || errors.Is(err, roots.ErrNoBracket) {
		return fmt.Errorf("%w: %s: %w", ErrDidNotConverge, what, err)
	}

	return fmt.Errorf("equilibrium: %s: %w", what, err)
}

// feed validates z and returns its mole fractions.
func feed(cs *thermo.ComponentSet, z []float64) ([]float64, error) {
	if err := cs.CheckLen(z); err != nil {
		return nil, err
	}
	for i, v := range z {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: composition entry %d is %g", ErrDegenerateInput, i, v)
		}
	}
	zf, err := material.Normalize(z)
	if err != nil {
		return nil, fmt.Errorf("%w: empty feed", ErrDegenerateInput)
	}

	return zf, nil
}

// activeSet lists the indices with positive fraction.
func activeSet(zf []float64) []int {
	out := make([]int, 0, len(zf))
	for i, v := range zf {
		if v > 0 {
			out = append(out, i)
		}
	}

	return out
}

// dominant returns the index of a component holding ≥ dominantFraction, or -1.
func dominant(zf []float64) int {
	for i, v := range zf {
		if v >= dominantFraction {
			return i
		}
	}

	return -1
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
