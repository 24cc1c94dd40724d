package roots

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoBracket indicates f has the same sign at both ends of every tried interval.
	ErrNoBracket = errors.New("roots: root is not bracketed")

	// ErrMaxIterations indicates the iteration budget ran out.
	ErrMaxIterations = errors.New("roots: maximum iterations exceeded")
)

// Func is a scalar residual. Errors abort the search.
type Func func(x float64) (float64, error)

// Options tunes the finders.
type Options struct {
	XTol      float64 // absolute tolerance on x (plus RTol·|x|)
	RTol      float64 // relative tolerance on x
	FTol      float64 // |f| at or below which x is accepted outright
	MaxIter   int     // Brent / Secant iterations
	MaxExpand int     // Bracket expansions
	Factor    float64 // Bracket growth factor
	Min, Max  float64 // domain; ±Inf means unbounded
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns tolerances suitable for temperatures and log-pressures.
func DefaultOptions() Options {
	return Options{
		XTol:      1e-10,
		RTol:      1e-10,
		FTol:      1e-12,
		MaxIter:   100,
		MaxExpand: 60,
		Factor:    1.6,
		Min:       math.Inf(-1),
		Max:       math.Inf(1),
	}
}

// WithXTol sets the absolute and relative x tolerances.
func WithXTol(abs, rel float64) Option {
	return func(o *Options) { o.XTol, o.RTol = abs, rel }
}

// WithFTol sets the residual acceptance threshold.
func WithFTol(f float64) Option {
	return func(o *Options) { o.FTol = f }
}

// WithMaxIter bounds Brent and Secant iterations.
func WithMaxIter(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxIter = n
		}
	}
}

// WithDomain restricts Bracket to [min, max].
func WithDomain(min, max float64) Option {
	return func(o *Options) { o.Min, o.Max = min, max }
}

func build(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// Result reports a located root.
type Result struct {
	X          float64
	F          float64
	Iterations int
}

// Bracket expands [a, b] until f(a)·f(b) ≤ 0, moving the end with the
// smaller |f| outwards. It returns the bracket and its residuals.
func Bracket(ctx context.Context, f Func, a, b float64, opts ...Option) (lo, hi, flo, fhi float64, err error) {
	o := build(opts)
	if a > b {
		a, b = b, a
	}
	a, b = clamp(a, o), clamp(b, o)
	fa, err := eval(f, a)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	fb, err := eval(f, b)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	for k := 0; fa*fb > 0; k++ {
		if k >= o.MaxExpand {
			return 0, 0, 0, 0, fmt.Errorf("%w: [%g, %g] after %d expansions", ErrNoBracket, a, b, k)
		}
		if err = ctx.Err(); err != nil {
			return 0, 0, 0, 0, err
		}
		atMin, atMax := a <= o.Min, b >= o.Max
		if atMin && atMax {
			return 0, 0, 0, 0, fmt.Errorf("%w: domain [%g, %g] exhausted", ErrNoBracket, o.Min, o.Max)
		}
		w := b - a
		if w <= 0 {
			w = math.Max(1e-3*math.Abs(a), 1e-3)
		}
		if (math.Abs(fa) < math.Abs(fb) && !atMin) || atMax {
			a = clamp(a-o.Factor*w, o)
			if fa, err = eval(f, a); err != nil {
				return 0, 0, 0, 0, err
			}
		} else {
			b = clamp(b+o.Factor*w, o)
			if fb, err = eval(f, b); err != nil {
				return 0, 0, 0, 0, err
			}
		}
	}

	return a, b, fa, fb, nil
}

// Brent finds a root of f in [a, b], which must bracket one.
func Brent(ctx context.Context, f Func, a, b float64, opts ...Option) (Result, error) {
	o := build(opts)
	fa, err := eval(f, a)
	if err != nil {
		return Result{}, err
	}
	fb, err := eval(f, b)
	if err != nil {
		return Result{}, err
	}

	return brent(ctx, f, a, b, fa, fb, o)
}

// Find brackets from [a, b] and then runs Brent.
func Find(ctx context.Context, f Func, a, b float64, opts ...Option) (Result, error) {
	o := build(opts)
	lo, hi, flo, fhi, err := Bracket(ctx, f, a, b, opts...)
	if err != nil {
		return Result{}, err
	}

	return brent(ctx, f, lo, hi, flo, fhi, o)
}

func brent(ctx context.Context, f Func, a, b, fa, fb float64, o Options) (Result, error) {
	if fa == 0 {
		return Result{X: a, F: 0}, nil
	}
	if fb == 0 {
		return Result{X: b, F: 0}, nil
	}
	if fa*fb > 0 {
		return Result{}, fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", ErrNoBracket, a, fa, b, fb)
	}

	c, fc := a, fa
	d := b - a
	e := d
	for it := 1; it <= o.MaxIter; it++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		// 1. Keep b the best estimate and [b, c] a bracket.
		if fb*fc > 0 {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol := 2*math.SmallestNonzeroFloat64 + 0.5*(o.XTol+o.RTol*math.Abs(b))
		m := 0.5 * (c - b)
		if math.Abs(m) <= tol || math.Abs(fb) <= o.FTol {
			return Result{X: b, F: fb, Iterations: it}, nil
		}

		// 2. Try interpolation, fall back to bisection.
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a == c {
				p = 2 * m * s
				q = 1 - s
			} else {
				qq := fa / fc
				r := fb / fc
				p = s * (2*m*qq*(qq-r) - (b-a)*(r-1))
				q = (qq - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d, e = m, m
			}
		} else {
			d, e = m, m
		}

		// 3. Step.
		a, fa = b, fb
		if math.Abs(d) > tol {
			b += d
		} else if m > 0 {
			b += tol
		} else {
			b -= tol
		}
		var err error
		if fb, err = eval(f, b); err != nil {
			return Result{}, err
		}
	}

	return Result{X: b, F: fb, Iterations: o.MaxIter}, fmt.Errorf("%w: brent after %d", ErrMaxIterations, o.MaxIter)
}

// Secant runs unbracketed secant steps from x0, x1.
func Secant(ctx context.Context, f Func, x0, x1 float64, opts ...Option) (Result, error) {
	o := build(opts)
	f0, err := eval(f, x0)
	if err != nil {
		return Result{}, err
	}
	f1, err := eval(f, x1)
	if err != nil {
		return Result{}, err
	}
	for it := 1; it <= o.MaxIter; it++ {
		if err = ctx.Err(); err != nil {
			return Result{}, err
		}
		if math.Abs(f1) <= o.FTol {
			return Result{X: x1, F: f1, Iterations: it}, nil
		}
		den := f1 - f0
		if den == 0 {
			return Result{X: x1, F: f1, Iterations: it}, fmt.Errorf("%w: flat secant at x=%g", ErrMaxIterations, x1)
		}
		x2 := clamp(x1-f1*(x1-x0)/den, o)
		x0, f0 = x1, f1
		x1 = x2
		if f1, err = eval(f, x1); err != nil {
			return Result{}, err
		}
		if math.Abs(x1-x0) <= o.XTol+o.RTol*math.Abs(x1) {
			return Result{X: x1, F: f1, Iterations: it}, nil
		}
	}

	return Result{X: x1, F: f1, Iterations: o.MaxIter}, fmt.Errorf("%w: secant after %d", ErrMaxIterations, o.MaxIter)
}

func clamp(x float64, o Options) float64 {
	return math.Min(math.Max(x, o.Min), o.Max)
}

func eval(f Func, x float64) (float64, error) {
	v, err := f(x)
	if err != nil {
		return 0, fmt.Errorf("roots: residual at %g: %w", x, err)
	}
	if math.IsNaN(v) {
		return 0, fmt.Errorf("roots: residual at %g is NaN", x)
	}

	return v, nil
}
