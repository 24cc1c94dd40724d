package equilibrium

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/roots"
	"github.com/katalvlaran/lvflow/thermo"
)

// VLLE coordinates a vapor-liquid flash with a liquid-liquid split of its
// liquid. It owns a VLE and an LLE over the same provider and writes vapor,
// liquid and second-liquid flows into one indexer. Non-key options apply to
// the vapor-liquid stage only. Not safe for concurrent use.
type VLLE struct {
	p   thermo.PropertyProvider
	cs  *thermo.ComponentSet
	ix  *material.MultiPhase
	o   Options
	vle *VLE
	lle *LLE
}

// NewVLLE binds a three-phase coordinator to ix, adding missing phases.
func NewVLLE(p thermo.PropertyProvider, ix *material.MultiPhase, opts ...Option) (*VLLE, error) {
	vle, err := NewVLE(p, ix, opts...)
	if err != nil {
		return nil, err
	}
	if !ix.HasPhase(thermo.SecondLiquid) {
		if err = ix.AddPhase(thermo.SecondLiquid); err != nil {
			return nil, err
		}
	}
	lle, err := NewLLE(p, opts...)
	if err != nil {
		return nil, err
	}

	return &VLLE{p: p, cs: p.Components(), ix: ix, o: buildOptions(opts), vle: vle, lle: lle}, nil
}

// WarmStart seeds the vapor-liquid stage with the liquid aggregate and vapor
// of prev and, for a split liquid, the liquid-liquid stage with its phases.
func (s *VLLE) WarmStart(prev VLLEResult) {
	x := prev.X1
	if prev.LiquidSplit && len(prev.X1) == len(prev.X2) {
		x = make([]float64, len(prev.X1))
		for i := range x {
			x[i] = (1-prev.Beta)*prev.X1[i] + prev.Beta*prev.X2[i]
		}
		s.lle.WarmStart(LLEResult{X1: prev.X1, X2: prev.X2, Beta: prev.Beta})
	}
	s.vle.WarmStart(VLEResult{X: x, Y: prev.Y})
}

// Reset forgets every remembered answer.
func (s *VLLE) Reset() {
	s.vle.Reset()
	s.lle.Reset()
}

// Solve runs the three-phase calculation for a (T,P) or (H,P) specification.
func (s *VLLE) Solve(ctx context.Context, spec Specification) (VLLEResult, error) {
	if err := spec.Validate(); err != nil {
		return VLLEResult{}, err
	}
	switch spec.Kind {
	case KindTP:
		return s.atTP(ctx, spec.T, spec.P)
	case KindHP:
		return s.atHP(ctx, spec.H, spec.P)
	}

	return VLLEResult{}, fmt.Errorf("%w: vlle supports T,P and H,P, got %s", ErrInvalidSpecification, spec.Kind)
}

func (s *VLLE) atTP(ctx context.Context, T, P float64) (VLLEResult, error) {
	// 1. Two-phase answer first.
	flows := s.ix.Overall()
	F := material.Sum(flows)
	if !(F > 0) {
		return VLLEResult{}, fmt.Errorf("%w: empty feed", ErrDegenerateInput)
	}
	zf := material.Scale(1/F, flows)
	vr, err := s.vle.Solve(ctx, AtTP(T, P))
	if err != nil {
		return VLLEResult{}, err
	}
	two := s.twoPhase(vr)
	if vr.V >= 1 {
		return two, nil
	}

	// 2. Is the liquid stable on its own?
	lr, err := s.lle.Solve(ctx, vr.X, T)
	if err != nil {
		return VLLEResult{}, err
	}
	if lr.Miscible {
		return two, nil
	}

	// 3. Vapor against the liquid aggregate, re-splitting the aggregate each step.
	act := activeSet(zf)
	n := len(zf)
	x1, x2, beta := lr.X1, lr.X2, lr.Beta
	V, y := vr.V, material.Clone(vr.Y)
	xa, yn := make([]float64, n), make([]float64, n)
	Kagg := make([]float64, n)
	iters := vr.Iterations + lr.Iterations
	for it := 1; it <= s.o.MaxIter; it++ {
		if err = ctx.Err(); err != nil {
			return VLLEResult{}, err
		}
		for i := range xa {
			xa[i] = (1-beta)*x1[i] + beta*x2[i]
		}
		K1, err := thermo.KValues(s.p, x1, y, T, P)
		if err != nil {
			return VLLEResult{}, err
		}
		for i := range Kagg {
			Kagg[i] = K1[i]
			if xa[i] > 0 {
				Kagg[i] = K1[i] * x1[i] / xa[i]
			}
		}
		Vn, err := rachfordRice(ctx, zf, Kagg, act, s.o)
		if err != nil {
			return VLLEResult{}, err
		}
		phaseSplit(zf, Kagg, act, Vn, xa, yn)
		lr, err = s.lle.Solve(ctx, xa, T)
		if err != nil {
			return VLLEResult{}, err
		}
		iters += lr.Iterations + 1
		if lr.Miscible {
			return two, nil
		}
		delta := math.Max(math.Abs(Vn-V), math.Abs(lr.Beta-beta))
		delta = math.Max(delta, material.MaxAbsDiff(yn, y))
		delta = math.Max(delta, material.MaxAbsDiff(lr.X1, x1))
		delta = math.Max(delta, material.MaxAbsDiff(lr.X2, x2))
		V, beta, x1, x2 = Vn, lr.Beta, lr.X1, lr.X2
		copy(y, yn)
		if delta <= 10*s.o.Tol {
			return s.commit(T, P, flows, V, beta, y, x1, x2, iters)
		}
	}

	return VLLEResult{}, fmt.Errorf("%w: vlle after %d iterations at T=%g P=%g", ErrDidNotConverge, s.o.MaxIter, T, P)
}

func (s *VLLE) atHP(ctx context.Context, H, P float64) (VLLEResult, error) {
	// 1. Two-phase temperature as the starting point.
	vr, err := s.vle.Solve(ctx, AtHP(H, P))
	if err != nil {
		return VLLEResult{}, err
	}
	last, err := s.atTP(ctx, vr.T, P)
	if err != nil || !last.LiquidSplit {
		return last, err
	}

	// 2. Root-find T on the three-phase enthalpy.
	F := material.Sum(s.ix.Overall())
	residual := func(T float64) (float64, error) {
		r, err := s.atTP(ctx, T, P)
		if err != nil {
			return 0, err
		}
		last = r
		h, err := molarMixture(s.p.Enthalpy, F, T, P,
			material.PhaseComposition{Phase: thermo.Vapor, Flows: r.VaporFlows},
			material.PhaseComposition{Phase: thermo.Liquid, Flows: r.LiquidFlows},
			material.PhaseComposition{Phase: thermo.SecondLiquid, Flows: r.SecondLiquidFlows})

		return h - H, err
	}
	res, err := roots.Find(ctx, residual, vr.T-0.5, vr.T+0.5,
		s.o.rootOpts(roots.WithDomain(0.5*vr.T, 2*vr.T))...)
	if err != nil {
		return VLLEResult{}, notConverged("vlle at H,P", err)
	}
	if last.T != res.X {
		return s.atTP(ctx, res.X, P)
	}

	return last, nil
}

func (s *VLLE) twoPhase(vr VLEResult) VLLEResult {
	return VLLEResult{
		Components:        vr.Components,
		T:                 vr.T,
		P:                 vr.P,
		V:                 vr.V,
		Y:                 vr.Y,
		X1:                vr.X,
		Iterations:        vr.Iterations,
		VaporFlows:        vr.VaporFlows,
		LiquidFlows:       vr.LiquidFlows,
		SecondLiquidFlows: make([]float64, len(vr.LiquidFlows)),
	}
}

// commit writes a three-phase answer; the first liquid takes the remainder
// so the component balance is exact.
func (s *VLLE) commit(T, P float64, flows []float64, V, beta float64, y, x1, x2 []float64, iters int) (VLLEResult, error) {
	n := len(flows)
	F := material.Sum(flows)
	vapor, liquid := make([]float64, n), make([]float64, n)
	for i, f := range flows {
		vapor[i] = math.Min(f, V*F*y[i])
		if V >= 1 {
			vapor[i] = f
		}
		liquid[i] = f - vapor[i]
	}
	L := material.Sum(liquid)
	second, first := make([]float64, n), make([]float64, n)
	for i := range liquid {
		second[i] = math.Min(liquid[i], beta*L*x2[i])
		first[i] = liquid[i] - second[i]
	}
	s.ix.Condition().Set(T, P)
	for ph, fl := range map[thermo.Phase][]float64{thermo.Vapor: vapor, thermo.Liquid: first, thermo.SecondLiquid: second} {
		if err := s.ix.SetFlows(ph, fl); err != nil {
			return VLLEResult{}, err
		}
	}
	s.o.Logger.Debug("vlle", "T", T, "P", P, "V", V, "beta", beta, "iterations", iters)

	return VLLEResult{
		Components:        s.cs.IDs(),
		T:                 T,
		P:                 P,
		V:                 material.Sum(vapor) / F,
		Beta:              beta,
		Y:                 material.Clone(y),
		X1:                material.Clone(x1),
		X2:                material.Clone(x2),
		LiquidSplit:       true,
		Iterations:        iters,
		VaporFlows:        vapor,
		LiquidFlows:       first,
		SecondLiquidFlows: second,
	}, nil
}
