package equilibrium

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/roots"
	"github.com/katalvlaran/lvflow/thermo"
)

type pointKind int

const (
	bubbleKind pointKind = iota
	dewKind
)

func (k pointKind) String() string {
	if k == bubbleKind {
		return "bubble point"
	}

	return "dew point"
}

// pointAnswer is the remembered answer of a point solver.
type pointAnswer struct {
	z     []float64
	fixT  bool
	value float64
	T, P  float64
	inc   []float64
	iters int

	seeded bool // set by WarmStart: a guess for any mode
}

func (a *pointAnswer) matches(z []float64, fixT bool, value float64) bool {
	if a == nil || a.fixT != fixT || a.value != value || len(a.z) != len(z) {
		return false
	}
	for i := range z {
		if a.z[i] != z[i] {
			return false
		}
	}

	return true
}

// pointSolver is the shared core of the bubble and dew point solvers.
type pointSolver struct {
	kind pointKind
	p    thermo.PropertyProvider
	cs   *thermo.ComponentSet
	o    Options
	last *pointAnswer
}

func newPointSolver(kind pointKind, p thermo.PropertyProvider, opts []Option) (pointSolver, error) {
	if p == nil {
		return pointSolver{}, fmt.Errorf("%w: nil property provider", ErrDegenerateInput)
	}

	return pointSolver{kind: kind, p: p, cs: p.Components(), o: buildOptions(opts)}, nil
}

// solve returns (T, P, incipient composition, iterations) with T fixed when
// fixT is set and P fixed otherwise.
func (s *pointSolver) solve(ctx context.Context, z []float64, fixT bool, value float64) (pointAnswer, error) {
	// 1. Validate.
	if !positive(value) {
		return pointAnswer{}, fmt.Errorf("%w: %s at %g", thermo.ErrInvalidCondition, s.kind, value)
	}
	zf, err := feed(s.cs, z)
	if err != nil {
		return pointAnswer{}, err
	}

	// 2. Reuse an unchanged answer.
	if !s.o.ColdStart && s.last.matches(zf, fixT, value) {
		return *s.last, nil
	}

	// 3. A pure component sits at its saturation point.
	var ans pointAnswer
	if i := s.pure(zf); i >= 0 {
		ans, err = s.saturation(i, zf, fixT, value)
	} else {
		ans, err = s.iterate(ctx, zf, fixT, value)
	}
	if err != nil {
		return pointAnswer{}, err
	}
	ans.z, ans.fixT, ans.value = zf, fixT, value
	s.remember(ans)
	s.o.Logger.Debug(s.kind.String(), "T", ans.T, "P", ans.P, "iterations", ans.iters)

	return ans, nil
}

func (s *pointSolver) pure(zf []float64) int {
	if i := dominant(zf); i >= 0 {
		return i
	}
	if act := activeSet(zf); len(act) == 1 {
		return act[0]
	}

	return -1
}

func (s *pointSolver) saturation(i int, zf []float64, fixT bool, value float64) (pointAnswer, error) {
	inc := make([]float64, len(zf))
	inc[i] = 1
	if fixT {
		P, err := s.p.Saturation(i, value)
		if err != nil {
			return pointAnswer{}, fmt.Errorf("equilibrium: saturation of %s: %w", s.cs.ID(i), err)
		}

		return pointAnswer{T: value, P: P, inc: inc}, nil
	}
	T, err := s.p.SaturationTemperature(i, value)
	if err != nil {
		return pointAnswer{}, fmt.Errorf("equilibrium: saturation of %s: %w", s.cs.ID(i), err)
	}

	return pointAnswer{T: T, P: value, inc: inc}, nil
}

// iterate runs the outer root-find around the inner fixed point.
func (s *pointSolver) iterate(ctx context.Context, zf []float64, fixT bool, value float64) (pointAnswer, error) {
	act := activeSet(zf)
	inc := s.seed(zf)
	state := func(u float64) (T, P float64) {
		if fixT {
			return value, math.Exp(u)
		}

		return u, value
	}
	residual := func(u float64) (float64, error) {
		T, P := state(u)
		r, next, err := s.inner(zf, inc, T, P)
		if err != nil {
			return 0, err
		}
		copy(inc, next)

		return r, nil
	}

	// 1. Initial guess and domain of the free variable.
	warm := s.last != nil && !s.o.ColdStart &&
		(s.last.seeded || (s.last.fixT == fixT && s.last.value == value))
	var (
		u0, width float64
		ropts     []roots.Option
	)
	if fixT {
		P0, err := s.raoultPressure(zf, act, value)
		if err != nil {
			return pointAnswer{}, err
		}
		if warm && s.last.P > 0 {
			P0 = s.last.P
		}
		u0, width = math.Log(P0), 0.1
	} else {
		T0, lo, hi, err := s.raoultTemperature(zf, act, value)
		if err != nil {
			return pointAnswer{}, err
		}
		if warm && s.last.T > lo && s.last.T < hi {
			T0 = s.last.T
		}
		u0, width = T0, 2
		ropts = append(ropts, roots.WithDomain(lo, hi))
	}

	// 2. Root-find on the free variable.
	res, err := roots.Find(ctx, residual, u0-width, u0+width, s.o.rootOpts(ropts...)...)
	if err != nil {
		return pointAnswer{}, notConverged(s.kind.String(), err)
	}

	// 3. Settle the incipient phase at the root.
	T, P := state(res.X)
	_, settled, err := s.inner(zf, inc, T, P)
	if err != nil {
		return pointAnswer{}, notConverged(s.kind.String(), err)
	}

	return pointAnswer{T: T, P: P, inc: settled, iters: res.Iterations}, nil
}

// inner converges the incipient composition at (T, P) and returns the outer
// residual ln Σ zK (bubble) or ln Σ z/K (dew).
func (s *pointSolver) inner(zf, start []float64, T, P float64) (float64, []float64, error) {
	inc := material.Clone(start)
	next := make([]float64, len(zf))
	tol := s.o.Tol * 1e-2
	for it := 0; it < s.o.MaxInner; it++ {
		var K []float64
		var err error
		if s.kind == bubbleKind {
			K, err = thermo.KValues(s.p, zf, inc, T, P)
		} else {
			K, err = thermo.KValues(s.p, inc, zf, T, P)
		}
		if err != nil {
			return 0, nil, err
		}
		var sum float64
		for i, zi := range zf {
			switch {
			case zi == 0:
				next[i] = 0
			case s.kind == bubbleKind:
				next[i] = zi * K[i]
			default:
				next[i] = zi / K[i]
			}
			sum += next[i]
		}
		if !(sum > 0) || math.IsInf(sum, 0) {
			return 0, nil, fmt.Errorf("%w: Σ=%g at T=%g P=%g", ErrDegenerateInput, sum, T, P)
		}
		for i := range next {
			next[i] /= sum
		}
		if material.MaxAbsDiff(next, inc) <= tol {
			return math.Log(sum), next, nil
		}
		copy(inc, next)
	}

	return 0, nil, fmt.Errorf("%w: %s composition after %d iterations at T=%g P=%g",
		ErrDidNotConverge, s.kind, s.o.MaxInner, T, P)
}

// seed returns the starting incipient composition: the remembered one when
// compatible, otherwise z itself.
func (s *pointSolver) seed(zf []float64) []float64 {
	if s.last != nil && !s.o.ColdStart && len(s.last.inc) == len(zf) {
		inc := material.Clone(s.last.inc)
		ok := true
		for i, zi := range zf {
			if zi > 0 && inc[i] <= 0 {
				ok = false
			}
			if zi == 0 {
				inc[i] = 0
			}
		}
		if n, err := material.Normalize(inc); ok && err == nil {
			return n
		}
	}

	return material.Clone(zf)
}

// raoultPressure is ΣzPsat (bubble) or 1/Σ(z/Psat) (dew).
func (s *pointSolver) raoultPressure(zf []float64, act []int, T float64) (float64, error) {
	var acc float64
	for _, i := range act {
		psat, err := s.p.Saturation(i, T)
		if err != nil {
			return 0, fmt.Errorf("equilibrium: saturation of %s: %w", s.cs.ID(i), err)
		}
		if s.kind == bubbleKind {
			acc += zf[i] * psat
		} else {
			acc += zf[i] / psat
		}
	}
	if s.kind == dewKind {
		acc = 1 / acc
	}
	if !positive(acc) {
		return 0, fmt.Errorf("%w: Raoult pressure %g at T=%g", ErrDegenerateInput, acc, T)
	}

	return acc, nil
}

// raoultTemperature is ΣzTsat with the search domain around the saturation
// temperatures of the active components.
func (s *pointSolver) raoultTemperature(zf []float64, act []int, P float64) (T0, lo, hi float64, err error) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, i := range act {
		tsat, err := s.p.SaturationTemperature(i, P)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("equilibrium: saturation temperature of %s: %w", s.cs.ID(i), err)
		}
		T0 += zf[i] * tsat
		lo, hi = math.Min(lo, tsat), math.Max(hi, tsat)
	}

	return T0, 0.5 * lo, 2 * hi, nil
}

func (s *pointSolver) remember(a pointAnswer) {
	a.z, a.inc = material.Clone(a.z), material.Clone(a.inc)
	s.last = &a
}

// BubblePointSolver finds the state at which a liquid of fixed composition
// starts to boil. Not safe for concurrent use.
type BubblePointSolver struct {
	core pointSolver
}

// NewBubblePointSolver returns a solver bound to p.
func NewBubblePointSolver(p thermo.PropertyProvider, opts ...Option) (*BubblePointSolver, error) {
	core, err := newPointSolver(bubbleKind, p, opts)
	if err != nil {
		return nil, err
	}

	return &BubblePointSolver{core: core}, nil
}

// SolveAtT returns the bubble pressure and incipient vapor at T.
func (s *BubblePointSolver) SolveAtT(ctx context.Context, z []float64, T float64) (BubblePoint, error) {
	a, err := s.core.solve(ctx, z, true, T)
	if err != nil {
		return BubblePoint{}, err
	}

	return s.result(a), nil
}

// SolveAtP returns the bubble temperature and incipient vapor at P.
func (s *BubblePointSolver) SolveAtP(ctx context.Context, z []float64, P float64) (BubblePoint, error) {
	a, err := s.core.solve(ctx, z, false, P)
	if err != nil {
		return BubblePoint{}, err
	}

	return s.result(a), nil
}

// WarmStart seeds the next solve with prev.
func (s *BubblePointSolver) WarmStart(prev BubblePoint) {
	s.core.last = &pointAnswer{T: prev.T, P: prev.P, inc: material.Clone(prev.Y), value: math.NaN(), seeded: true}
}

// Reset forgets every remembered answer.
func (s *BubblePointSolver) Reset() { s.core.last = nil }

func (s *BubblePointSolver) result(a pointAnswer) BubblePoint {
	return BubblePoint{
		Components: s.core.cs.IDs(),
		Z:          material.Clone(a.z),
		Y:          material.Clone(a.inc),
		T:          a.T,
		P:          a.P,
		Iterations: a.iters,
	}
}

// DewPointSolver finds the state at which a vapor of fixed composition
// starts to condense. Not safe for concurrent use.
type DewPointSolver struct {
	core pointSolver
}

// NewDewPointSolver returns a solver bound to p.
func NewDewPointSolver(p thermo.PropertyProvider, opts ...Option) (*DewPointSolver, error) {
	core, err := newPointSolver(dewKind, p, opts)
	if err != nil {
		return nil, err
	}

	return &DewPointSolver{core: core}, nil
}

// SolveAtT returns the dew pressure and incipient liquid at T.
func (s *DewPointSolver) SolveAtT(ctx context.Context, z []float64, T float64) (DewPoint, error) {
	a, err := s.core.solve(ctx, z, true, T)
	if err != nil {
		return DewPoint{}, err
	}

	return s.result(a), nil
}

// SolveAtP returns the dew temperature and incipient liquid at P.
func (s *DewPointSolver) SolveAtP(ctx context.Context, z []float64, P float64) (DewPoint, error) {
	a, err := s.core.solve(ctx, z, false, P)
	if err != nil {
		return DewPoint{}, err
	}

	return s.result(a), nil
}

// WarmStart seeds the next solve with prev.
func (s *DewPointSolver) WarmStart(prev DewPoint) {
	s.core.last = &pointAnswer{T: prev.T, P: prev.P, inc: material.Clone(prev.X), value: math.NaN(), seeded: true}
}

// Reset forgets every remembered answer.
func (s *DewPointSolver) Reset() { s.core.last = nil }

func (s *DewPointSolver) result(a pointAnswer) DewPoint {
	return DewPoint{
		Components: s.core.cs.IDs(),
		Z:          material.Clone(a.z),
		X:          material.Clone(a.inc),
		T:          a.T,
		P:          a.P,
		Iterations: a.iters,
	}
}
