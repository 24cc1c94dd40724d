package equilibrium

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

// errTrivial marks a trial that collapsed onto a single liquid.
var errTrivial = errors.New("equilibrium: trivial liquid split")

// LLE splits a liquid into two liquid phases at fixed temperature. Pressure
// does not enter. Not safe for concurrent use.
type LLE struct {
	p  thermo.PropertyProvider
	cs *thermo.ComponentSet
	o  Options

	lastX1, lastX2 []float64
}

// lleTrial is one converged candidate split.
type lleTrial struct {
	x1, x2 []float64
	beta   float64
	gibbs  float64
	iters  int
}

// NewLLE returns a liquid-liquid solver bound to p.
func NewLLE(p thermo.PropertyProvider, opts ...Option) (*LLE, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil property provider", ErrDegenerateInput)
	}

	return &LLE{p: p, cs: p.Components(), o: buildOptions(opts)}, nil
}

// WarmStart seeds the next solve with the phases of prev.
func (l *LLE) WarmStart(prev LLEResult) {
	if prev.Miscible || len(prev.X1) != l.cs.Len() || len(prev.X2) != l.cs.Len() {
		return
	}
	l.lastX1, l.lastX2 = material.Clone(prev.X1), material.Clone(prev.X2)
}

// Reset forgets the remembered split.
func (l *LLE) Reset() { l.lastX1, l.lastX2 = nil, nil }

// Solve looks for the lowest-Gibbs-energy two-liquid split of z at T.
// A stable single liquid is reported with Miscible set, not as an error.
func (l *LLE) Solve(ctx context.Context, z []float64, T float64) (LLEResult, error) {
	// 1. Validate.
	if !positive(T) {
		return LLEResult{}, fmt.Errorf("%w: lle at T=%g", thermo.ErrInvalidCondition, T)
	}
	zf, err := feed(l.cs, z)
	if err != nil {
		return LLEResult{}, err
	}
	act := activeSet(zf)
	miscible := LLEResult{Components: l.cs.IDs(), T: T, X1: zf, Miscible: true}
	if len(act) < 2 || dominant(zf) >= 0 {
		return miscible, nil
	}
	ghom, err := l.gibbs(zf, T)
	if err != nil {
		return LLEResult{}, err
	}

	// 2. The remembered split first; keep it when it survives.
	var best *lleTrial
	var budgetErr error
	try := func(x1, x2 []float64) bool {
		tr, err := l.converge(ctx, zf, act, T, x1, x2)
		switch {
		case errors.Is(err, errTrivial):
			return false
		case err != nil:
			budgetErr = err

			return false
		}
		if best == nil || tr.gibbs < best.gibbs {
			best = &tr
		}

		return true
	}
	if !l.o.ColdStart && l.lastX1 != nil {
		if x1, x2, ok := l.warm(zf); ok {
			try(x1, x2)
		}
	}

	// 3. Otherwise one trial per component, each enriched in one phase.
	if best == nil {
		for _, k := range act {
			if err := ctx.Err(); err != nil {
				return LLEResult{}, err
			}
			x1, x2 := enriched(zf, act, k)
			try(x1, x2)
		}
	}
	if best == nil {
		if budgetErr != nil {
			return LLEResult{}, budgetErr
		}

		return miscible, nil
	}

	// 4. A split that does not lower G is not a split.
	if best.gibbs >= ghom-1e-12 {
		return miscible, nil
	}
	if best.x2[act[0]] > best.x1[act[0]] {
		best.x1, best.x2, best.beta = best.x2, best.x1, 1-best.beta
	}
	l.lastX1, l.lastX2 = material.Clone(best.x1), material.Clone(best.x2)
	l.o.Logger.Debug("lle", "T", T, "beta", best.beta, "iterations", best.iters)

	return LLEResult{
		Components: l.cs.IDs(),
		T:          T,
		X1:         best.x1,
		X2:         best.x2,
		Beta:       best.beta,
		Iterations: best.iters,
	}, nil
}

// warm adapts the remembered phases to the active set of zf.
func (l *LLE) warm(zf []float64) (x1, x2 []float64, ok bool) {
	if len(l.lastX1) != len(zf) {
		return nil, nil, false
	}
	x1, x2 = material.Clone(l.lastX1), material.Clone(l.lastX2)
	for i, zi := range zf {
		if zi == 0 {
			x1[i], x2[i] = 0, 0
		} else if x1[i] <= 0 || x2[i] <= 0 {
			return nil, nil, false
		}
	}
	n1, err1 := material.Normalize(x1)
	n2, err2 := material.Normalize(x2)

	return n1, n2, err1 == nil && err2 == nil
}

// enriched returns a trial pair with phase 1 almost pure in component k and
// phase 2 carrying the rest of the feed.
func enriched(zf []float64, act []int, k int) (x1, x2 []float64) {
	n := len(zf)
	x1, x2 = make([]float64, n), make([]float64, n)
	for _, i := range act {
		x1[i] = 0.01 * zf[i]
		x2[i] = math.Max(2*zf[i], 1e-6)
	}
	x1[k] += 0.99
	x2[k] = math.Max(2*zf[k]-x1[k], 1e-6*zf[k])
	x1, _ = material.Normalize(x1)
	x2, _ = material.Normalize(x2)

	return x1, x2
}

// converge runs successive substitution on Kᵢ = γᵢ¹/γᵢ² from (x1, x2).
func (l *LLE) converge(ctx context.Context, zf []float64, act []int, T float64, x1, x2 []float64) (lleTrial, error) {
	n := len(zf)
	n1, n2 := make([]float64, n), make([]float64, n)
	K := make([]float64, n)
	beta := math.NaN()
	for it := 1; it <= l.o.MaxInner; it++ {
		if err := ctx.Err(); err != nil {
			return lleTrial{}, err
		}
		g1, err := l.p.Activity(thermo.Liquid, x1, T)
		if err != nil {
			return lleTrial{}, err
		}
		g2, err := l.p.Activity(thermo.Liquid, x2, T)
		if err != nil {
			return lleTrial{}, err
		}
		for i := range K {
			K[i] = g1[i] / g2[i]
		}
		b, err := rachfordRice(ctx, zf, K, act, l.o)
		if err != nil {
			return lleTrial{}, err
		}
		if b <= 0 || b >= 1 {
			return lleTrial{}, errTrivial
		}
		phaseSplit(zf, K, act, b, n1, n2)
		if material.MaxAbsDiff(n1, n2) < trivialGap {
			return lleTrial{}, errTrivial
		}
		delta := math.Max(material.MaxAbsDiff(n1, x1), material.MaxAbsDiff(n2, x2))
		x1, x2 = material.Clone(n1), material.Clone(n2)
		if delta <= l.o.Tol && math.Abs(b-beta) <= l.o.Tol {
			g, err := l.splitGibbs(x1, x2, b, T)
			if err != nil {
				return lleTrial{}, err
			}

			return lleTrial{x1: x1, x2: x2, beta: b, gibbs: g, iters: it}, nil
		}
		beta = b
	}

	return lleTrial{}, fmt.Errorf("%w: lle after %d iterations at T=%g", ErrDidNotConverge, l.o.MaxInner, T)
}

// gibbs returns G/RT per mole of a single liquid: Σ xᵢ(ln xᵢ + ln γᵢ).
func (l *LLE) gibbs(x []float64, T float64) (float64, error) {
	gamma, err := l.p.Activity(thermo.Liquid, x, T)
	if err != nil {
		return 0, err
	}
	var g float64
	for i, xi := range x {
		if xi > 0 {
			g += xi * (math.Log(xi) + math.Log(gamma[i]))
		}
	}

	return g, nil
}

func (l *LLE) splitGibbs(x1, x2 []float64, beta, T float64) (float64, error) {
	g1, err := l.gibbs(x1, T)
	if err != nil {
		return 0, err
	}
	g2, err := l.gibbs(x2, T)
	if err != nil {
		return 0, err
	}

	return (1-beta)*g1 + beta*g2, nil
}

// Apply writes r into ix: the overall flows of ix are divided between the
// liquid and second-liquid phases and the temperature is set to r.T.
// Other phases are emptied.
func (l *LLE) Apply(ix *material.MultiPhase, r LLEResult) error {
	if !ix.HasPhase(thermo.SecondLiquid) {
		if err := ix.AddPhase(thermo.SecondLiquid); err != nil {
			return err
		}
	}
	if !ix.HasPhase(thermo.Liquid) {
		if err := ix.AddPhase(thermo.Liquid); err != nil {
			return err
		}
	}
	flows := ix.Overall()
	F := material.Sum(flows)
	second := make([]float64, len(flows))
	if !r.Miscible && len(r.X2) == len(flows) {
		for i, n := range flows {
			second[i] = math.Min(n, r.Beta*F*r.X2[i])
		}
	}
	first := make([]float64, len(flows))
	for i, n := range flows {
		first[i] = n - second[i]
	}
	for _, ph := range ix.Phases() {
		var err error
		switch ph {
		case thermo.Liquid:
			err = ix.SetFlows(ph, first)
		case thermo.SecondLiquid:
			err = ix.SetFlows(ph, second)
		default:
			err = ix.SetFlows(ph, make([]float64, len(flows)))
		}
		if err != nil {
			return err
		}
	}
	ix.Condition().T = r.T

	return nil
}
