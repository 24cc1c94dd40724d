package recycle

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/katalvlaran/lvflow/matrix"
)

// ErrUnknownAccelerator is returned by AcceleratorByName.
var ErrUnknownAccelerator = errors.New("recycle: unknown accelerator")

// Accelerator proposes the next tear values from a pass input x and its
// output gx. Implementations keep per-group history and must not retain
// the argument slices.
type Accelerator interface {
	Next(x, gx []float64) []float64
	Reset()
}

// Accelerator defaults.
const (
	DefaultWegsteinMin   = -5.0
	DefaultWegsteinMax   = 0.0
	DefaultAndersonDepth = 5
)

type direct struct{}

// NewDirectSubstitution feeds each pass output straight into the next pass.
func NewDirectSubstitution() Accelerator { return direct{} }

func (direct) Next(_, gx []float64) []float64 { return append([]float64(nil), gx...) }
func (direct) Reset()                         {}

// Wegstein applies a per-element secant step with q = s/(s−1) clamped to
// [qmin, qmax]. The first call after Reset substitutes directly.
type Wegstein struct {
	qmin, qmax float64
	x, gx      []float64
}

// NewWegstein returns a Wegstein accelerator with the given bounds.
func NewWegstein(qmin, qmax float64) *Wegstein {
	if qmin > qmax {
		qmin, qmax = qmax, qmin
	}

	return &Wegstein{qmin: qmin, qmax: qmax}
}

func (w *Wegstein) Next(x, gx []float64) []float64 {
	next := append([]float64(nil), gx...)
	if len(w.x) == len(x) {
		for i := range x {
			dx := x[i] - w.x[i]
			if dx == 0 {
				continue
			}
			s := (gx[i] - w.gx[i]) / dx
			if s == 1 || math.IsNaN(s) || math.IsInf(s, 0) {
				continue
			}
			q := math.Min(math.Max(s/(s-1), w.qmin), w.qmax)
			next[i] = q*x[i] + (1-q)*gx[i]
		}
	}
	w.x = append(w.x[:0], x...)
	w.gx = append(w.gx[:0], gx...)

	return next
}

func (w *Wegstein) Reset() { w.x, w.gx = nil, nil }

// Anderson mixes up to depth previous passes by solving a least-squares
// problem on residual differences. A rank-deficient history is dropped and
// that step substitutes directly.
type Anderson struct {
	depth  int
	f, g   []float64
	df, dg [][]float64
}

// NewAnderson returns an Anderson accelerator keeping depth differences.
func NewAnderson(depth int) *Anderson {
	if depth < 1 {
		depth = DefaultAndersonDepth
	}

	return &Anderson{depth: depth}
}

func (a *Anderson) Next(x, gx []float64) []float64 {
	n := len(x)
	f := make([]float64, n)
	for i := range f {
		f[i] = gx[i] - x[i]
	}

	// 1. Extend the difference history.
	if len(a.f) == n {
		df, dg := make([]float64, n), make([]float64, n)
		for i := range df {
			df[i] = f[i] - a.f[i]
			dg[i] = gx[i] - a.g[i]
		}
		a.df, a.dg = append(a.df, df), append(a.dg, dg)
	} else {
		a.df, a.dg = nil, nil
	}
	for len(a.df) > a.depth || len(a.df) > n {
		a.df, a.dg = a.df[1:], a.dg[1:]
	}
	a.f, a.g = f, append([]float64(nil), gx...)

	next := append([]float64(nil), gx...)
	m := len(a.df)
	if m == 0 {
		return next
	}

	// 2. γ = argmin ‖f − ΔF·γ‖, then x⁺ = g − ΔG·γ.
	dF, err := matrix.NewDense(n, m)
	if err != nil {
		return next
	}
	for j, col := range a.df {
		if err = dF.SetCol(j, col); err != nil {
			a.df, a.dg = nil, nil
			return next
		}
	}
	gamma, err := matrix.LeastSquares(dF, f)
	if err != nil {
		a.df, a.dg = nil, nil
		return next
	}
	for j, col := range a.dg {
		for i := range next {
			next[i] -= gamma[j] * col[i]
		}
	}
	for _, v := range next {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			a.df, a.dg = nil, nil
			return append(next[:0], gx...)
		}
	}

	return next
}

func (a *Anderson) Reset() { a.f, a.g, a.df, a.dg = nil, nil, nil, nil }

var accelerators = map[string]func() Accelerator{
	"direct":   NewDirectSubstitution,
	"wegstein": func() Accelerator { return NewWegstein(DefaultWegsteinMin, DefaultWegsteinMax) },
	"anderson": func() Accelerator { return NewAnderson(DefaultAndersonDepth) },
}

// AcceleratorNames lists the names AcceleratorByName accepts.
func AcceleratorNames() []string {
	names := make([]string, 0, len(accelerators))
	for n := range accelerators {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// AcceleratorByName returns the factory registered under name; the empty
// name selects direct substitution.
func AcceleratorByName(name string) (func() Accelerator, error) {
	if name == "" {
		return NewDirectSubstitution, nil
	}
	f, ok := accelerators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownAccelerator, name, AcceleratorNames())
	}

	return f, nil
}
