package equilibrium

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/roots"
	"github.com/katalvlaran/lvflow/thermo"
)

// molarFunc is the shape of PropertyProvider.Enthalpy and Entropy.
type molarFunc func(thermo.Phase, []float64, float64, float64) (float64, error)

// VLE is a vapor-liquid flash bound to one multi-phase indexer. Solve
// rewrites the indexer's condition and its liquid/vapor flows in place.
// Not safe for concurrent use.
type VLE struct {
	p      thermo.PropertyProvider
	cs     *thermo.ComponentSet
	ix     *material.MultiPhase
	o      Options
	bubble *BubblePointSolver
	dew    *DewPointSolver
	light  []bool
	heavy  []bool

	// warm start of the two-phase split
	lastX, lastY []float64
	iters        int
}

// vleFeed is the feed partitioned into equilibrium and non-key parts.
type vleFeed struct {
	flows  []float64 // overall flows
	F      float64
	active []float64 // flows in equilibrium
	Fa     float64
	z      []float64 // mole fractions of active, zeros elsewhere
	act    []int
	light  []float64
	heavy  []float64
}

// vleState is a solved split of the active part of a feed.
type vleState struct {
	T, P float64
	V    float64 // vapor fraction of the active flow
	x, y []float64
}

// NewVLE binds a flash to ix. Liquid and vapor phases are added to ix when
// missing.
func NewVLE(p thermo.PropertyProvider, ix *material.MultiPhase, opts ...Option) (*VLE, error) {
	if p == nil || ix == nil {
		return nil, fmt.Errorf("%w: nil provider or indexer", ErrDegenerateInput)
	}
	cs := p.Components()
	if !cs.Equal(ix.Components()) {
		return nil, fmt.Errorf("equilibrium: vle: %w", material.ErrComponentMismatch)
	}
	for _, ph := range []thermo.Phase{thermo.Liquid, thermo.Vapor} {
		if !ix.HasPhase(ph) {
			if err := ix.AddPhase(ph); err != nil {
				return nil, err
			}
		}
	}
	o := buildOptions(opts)
	v := &VLE{p: p, cs: cs, ix: ix, o: o, light: make([]bool, cs.Len()), heavy: make([]bool, cs.Len())}
	lights, err := cs.Indices(o.LightNonKeys...)
	if err != nil {
		return nil, fmt.Errorf("%w: light non-keys: %w", ErrInvalidSpecification, err)
	}
	heavies, err := cs.Indices(o.HeavyNonKeys...)
	if err != nil {
		return nil, fmt.Errorf("%w: heavy non-keys: %w", ErrInvalidSpecification, err)
	}
	for _, i := range lights {
		v.light[i] = true
	}
	for _, i := range heavies {
		if v.light[i] {
			return nil, fmt.Errorf("%w: %s is both a light and a heavy non-key", ErrInvalidSpecification, cs.ID(i))
		}
		v.heavy[i] = true
	}
	if v.bubble, err = NewBubblePointSolver(p, opts...); err != nil {
		return nil, err
	}
	if v.dew, err = NewDewPointSolver(p, opts...); err != nil {
		return nil, err
	}

	return v, nil
}

// Indexer returns the bound indexer.
func (v *VLE) Indexer() *material.MultiPhase { return v.ix }

// WarmStart seeds the next two-phase split with the compositions of prev.
func (v *VLE) WarmStart(prev VLEResult) {
	if len(prev.X) == v.cs.Len() && len(prev.Y) == v.cs.Len() {
		v.lastX, v.lastY = material.Clone(prev.X), material.Clone(prev.Y)
	}
}

// Reset forgets every remembered answer, including the point solvers'.
func (v *VLE) Reset() {
	v.lastX, v.lastY = nil, nil
	v.bubble.Reset()
	v.dew.Reset()
}

// Solve flashes the indexer's overall flows at spec.
func (v *VLE) Solve(ctx context.Context, spec Specification) (VLEResult, error) {
	// 1. Validate and partition the feed.
	if err := spec.Validate(); err != nil {
		return VLEResult{}, err
	}
	f, err := v.partition()
	if err != nil {
		return VLEResult{}, err
	}
	v.iters = 0

	// 2. Dispatch once on the specification.
	var st vleState
	switch spec.Kind {
	case KindTP:
		st, err = v.atTP(ctx, f, spec.T, spec.P)
	case KindVP:
		st, err = v.atVP(ctx, f, spec.V, spec.P)
	case KindVT:
		st, err = v.atVT(ctx, f, spec.V, spec.T)
	case KindHP:
		st, err = v.atProperty(ctx, f, v.p.Enthalpy, spec.H, spec.P, "H")
	case KindSP:
		st, err = v.atProperty(ctx, f, v.p.Entropy, spec.S, spec.P, "S")
	case KindXP:
		st, err = v.atComposition(ctx, f, spec.X, spec.P, true)
	case KindYP:
		st, err = v.atComposition(ctx, f, spec.Y, spec.P, false)
	default:
		err = fmt.Errorf("%w: kind %s", ErrInvalidSpecification, spec.Kind)
	}
	if err != nil {
		return VLEResult{}, err
	}

	// 3. Write the answer back into the indexer.
	res, err := v.commit(f, st)
	if err != nil {
		return VLEResult{}, err
	}
	v.o.Logger.Debug("vle", "spec", spec.Kind.String(), "T", res.T, "P", res.P, "V", res.V, "iterations", res.Iterations)

	return res, nil
}

func (v *VLE) partition() (vleFeed, error) {
	flows := v.ix.Overall()
	f := vleFeed{
		flows:  flows,
		F:      material.Sum(flows),
		active: make([]float64, len(flows)),
		light:  make([]float64, len(flows)),
		heavy:  make([]float64, len(flows)),
	}
	if !(f.F > 0) {
		return vleFeed{}, fmt.Errorf("%w: empty feed", ErrDegenerateInput)
	}
	for i, n := range flows {
		switch {
		case v.light[i]:
			f.light[i] = n
		case v.heavy[i]:
			f.heavy[i] = n
		default:
			f.active[i] = n
		}
	}
	f.Fa = material.Sum(f.active)
	if f.Fa > 0 {
		f.z = material.Scale(1/f.Fa, f.active)
		f.act = activeSet(f.z)
	}

	return f, nil
}

// activeV converts an overall vapor fraction into the fraction of the
// active flow that must vaporize.
func (f vleFeed) activeV(V float64) (float64, error) {
	if f.Fa == 0 {
		return 0, fmt.Errorf("%w: no component takes part in equilibrium", ErrDegenerateInput)
	}
	va := (V*f.F - material.Sum(f.light)) / f.Fa
	const slack = 1e-12
	if va < -slack || va > 1+slack {
		return 0, fmt.Errorf("%w: V=%g unreachable with non-key flows", ErrInfeasibleRegion, V)
	}

	return math.Min(math.Max(va, 0), 1), nil
}

func (f vleFeed) pure() int {
	if len(f.act) == 1 {
		return f.act[0]
	}

	return dominant(f.z)
}

func unit(n, i int) []float64 {
	e := make([]float64, n)
	e[i] = 1

	return e
}

func (v *VLE) atTP(ctx context.Context, f vleFeed, T, P float64) (vleState, error) {
	if f.Fa == 0 {
		return vleState{T: T, P: P}, nil
	}
	n := v.cs.Len()
	if i := f.pure(); i >= 0 {
		tsat, err := v.p.SaturationTemperature(i, P)
		if err != nil {
			return vleState{}, err
		}
		st := vleState{T: T, P: P, x: unit(n, i), y: unit(n, i)}
		if T > tsat {
			st.V = 1
		}

		return st, nil
	}
	bub, err := v.bubble.SolveAtT(ctx, f.z, T)
	if err != nil {
		return vleState{}, err
	}
	if P >= bub.P {
		return vleState{T: T, P: P, V: 0, x: material.Clone(f.z), y: bub.Y}, nil
	}
	dew, err := v.dew.SolveAtT(ctx, f.z, T)
	if err != nil {
		return vleState{}, err
	}
	if P <= dew.P {
		return vleState{T: T, P: P, V: 1, x: dew.X, y: material.Clone(f.z)}, nil
	}
	x, y := v.guess(f, bub.Y, dew.X, (bub.P-P)/(bub.P-dew.P))
	V, err := v.split(ctx, f, T, P, x, y)
	if err != nil {
		return vleState{}, err
	}

	return vleState{T: T, P: P, V: V, x: x, y: y}, nil
}

func (v *VLE) atVP(ctx context.Context, f vleFeed, Vt, P float64) (vleState, error) {
	V, err := f.activeV(Vt)
	if err != nil {
		return vleState{}, err
	}
	n := v.cs.Len()
	if i := f.pure(); i >= 0 {
		T, err := v.p.SaturationTemperature(i, P)
		if err != nil {
			return vleState{}, err
		}

		return vleState{T: T, P: P, V: V, x: unit(n, i), y: unit(n, i)}, nil
	}
	bub, err := v.bubble.SolveAtP(ctx, f.z, P)
	if err != nil {
		return vleState{}, err
	}
	if V == 0 {
		return vleState{T: bub.T, P: P, x: material.Clone(f.z), y: bub.Y}, nil
	}
	dew, err := v.dew.SolveAtP(ctx, f.z, P)
	if err != nil {
		return vleState{}, err
	}
	if V == 1 {
		return vleState{T: dew.T, P: P, V: 1, x: dew.X, y: material.Clone(f.z)}, nil
	}
	x, y := v.guess(f, bub.Y, dew.X, V)
	if dew.T-bub.T <= v.o.Tol*bub.T {
		// azeotropic feed: both phases share the feed composition
		return vleState{T: bub.T, P: P, V: V, x: material.Clone(f.z), y: material.Clone(f.z)}, nil
	}
	residual := func(T float64) (float64, error) {
		got, err := v.split(ctx, f, T, P, x, y)

		return got - V, err
	}
	res, err := roots.Brent(ctx, residual, bub.T, dew.T, v.o.rootOpts()...)
	if err != nil {
		return vleState{}, notConverged("vle at V,P", err)
	}
	got, err := v.split(ctx, f, res.X, P, x, y)
	if err != nil {
		return vleState{}, err
	}

	return vleState{T: res.X, P: P, V: got, x: x, y: y}, nil
}

func (v *VLE) atVT(ctx context.Context, f vleFeed, Vt, T float64) (vleState, error) {
	V, err := f.activeV(Vt)
	if err != nil {
		return vleState{}, err
	}
	n := v.cs.Len()
	if i := f.pure(); i >= 0 {
		P, err := v.p.Saturation(i, T)
		if err != nil {
			return vleState{}, err
		}

		return vleState{T: T, P: P, V: V, x: unit(n, i), y: unit(n, i)}, nil
	}
	bub, err := v.bubble.SolveAtT(ctx, f.z, T)
	if err != nil {
		return vleState{}, err
	}
	if V == 0 {
		return vleState{T: T, P: bub.P, x: material.Clone(f.z), y: bub.Y}, nil
	}
	dew, err := v.dew.SolveAtT(ctx, f.z, T)
	if err != nil {
		return vleState{}, err
	}
	if V == 1 {
		return vleState{T: T, P: dew.P, V: 1, x: dew.X, y: material.Clone(f.z)}, nil
	}
	x, y := v.guess(f, bub.Y, dew.X, V)
	if bub.P-dew.P <= v.o.Tol*bub.P {
		return vleState{T: T, P: bub.P, V: V, x: material.Clone(f.z), y: material.Clone(f.z)}, nil
	}
	residual := func(u float64) (float64, error) {
		got, err := v.split(ctx, f, T, math.Exp(u), x, y)

		return got - V, err
	}
	res, err := roots.Brent(ctx, residual, math.Log(dew.P), math.Log(bub.P), v.o.rootOpts()...)
	if err != nil {
		return vleState{}, notConverged("vle at V,T", err)
	}
	P := math.Exp(res.X)
	got, err := v.split(ctx, f, T, P, x, y)
	if err != nil {
		return vleState{}, err
	}

	return vleState{T: T, P: P, V: got, x: x, y: y}, nil
}

// atProperty solves an (H,P) or (S,P) specification; target is per mole of
// the whole feed.
func (v *VLE) atProperty(ctx context.Context, f vleFeed, prop molarFunc, target, P float64, name string) (vleState, error) {
	// 1. Temperature window of the phase change.
	var Tlo, Thi float64
	pure := -1
	switch {
	case f.Fa == 0:
		return vleState{}, fmt.Errorf("%w: no component takes part in equilibrium", ErrDegenerateInput)
	case f.pure() >= 0:
		pure = f.pure()
		tsat, err := v.p.SaturationTemperature(pure, P)
		if err != nil {
			return vleState{}, err
		}
		Tlo, Thi = tsat, tsat
	default:
		bub, err := v.bubble.SolveAtP(ctx, f.z, P)
		if err != nil {
			return vleState{}, err
		}
		dew, err := v.dew.SolveAtP(ctx, f.z, P)
		if err != nil {
			return vleState{}, err
		}
		Tlo, Thi = bub.T, dew.T
	}

	// 2. A pure active component boils at Tsat: the target fixes V there.
	if pure >= 0 {
		lo, err := v.mixture(f, prop, vleState{T: Tlo, P: P, V: 0})
		if err != nil {
			return vleState{}, err
		}
		hi, err := v.mixture(f, prop, vleState{T: Tlo, P: P, V: 1})
		if err != nil {
			return vleState{}, err
		}
		if target >= lo && target <= hi && hi > lo {
			e := unit(v.cs.Len(), pure)

			return vleState{T: Tlo, P: P, V: (target - lo) / (hi - lo), x: e, y: e}, nil
		}
	}

	// 3. Root-find T on the (T,P) flash.
	var last vleState
	residual := func(T float64) (float64, error) {
		st, err := v.atTP(ctx, f, T, P)
		if err != nil {
			return 0, err
		}
		last = st
		m, err := v.mixture(f, prop, st)

		return m - target, err
	}
	res, err := roots.Find(ctx, residual, Tlo-1, Thi+1,
		v.o.rootOpts(roots.WithDomain(0.25*Tlo, 4*Thi))...)
	if err != nil {
		return vleState{}, notConverged("vle at "+name+",P", err)
	}
	if last.T != res.X {
		if last, err = v.atTP(ctx, f, res.X, P); err != nil {
			return vleState{}, err
		}
	}

	return last, nil
}

// atComposition applies the lever rule for a fixed liquid (liquid=true) or
// vapor composition of a binary feed.
func (v *VLE) atComposition(ctx context.Context, f vleFeed, comp []float64, P float64, liquid bool) (vleState, error) {
	// 1. Only binary feeds have a unique split for a given phase composition.
	if len(f.act) != 2 || material.Sum(f.light)+material.Sum(f.heavy) > 0 {
		return vleState{}, fmt.Errorf("%w: composition specifications need exactly two components in equilibrium", ErrDegenerateInput)
	}
	given, err := feed(v.cs, comp)
	if err != nil {
		return vleState{}, err
	}
	for i, g := range given {
		if g > 0 && f.z[i] == 0 {
			return vleState{}, fmt.Errorf("%w: %s is absent from the feed", ErrInfeasibleRegion, v.cs.ID(i))
		}
	}

	// 2. Solve the other phase at P.
	var st vleState
	if liquid {
		bub, err := v.bubble.SolveAtP(ctx, given, P)
		if err != nil {
			return vleState{}, err
		}
		st = vleState{T: bub.T, P: P, x: given, y: bub.Y}
	} else {
		dew, err := v.dew.SolveAtP(ctx, given, P)
		if err != nil {
			return vleState{}, err
		}
		st = vleState{T: dew.T, P: P, x: dew.X, y: given}
	}

	// 3. Lever rule on the first component.
	i := f.act[0]
	den := st.y[i] - st.x[i]
	if den == 0 {
		return vleState{}, fmt.Errorf("%w: phases have equal composition", ErrInfeasibleRegion)
	}
	V := (f.z[i] - st.x[i]) / den
	eps := v.o.LeverMargin
	if V < -eps || V > 1+eps {
		return vleState{}, fmt.Errorf("%w: lever rule gives V=%g", ErrInfeasibleRegion, V)
	}
	st.V = math.Min(math.Max(V, 0), 1)

	return st, nil
}

// guess returns starting compositions for a split, interpolating between the
// bubble (w=0) and dew (w=1) ends unless a warm start is available.
func (v *VLE) guess(f vleFeed, bubY, dewX []float64, w float64) (x, y []float64) {
	n := v.cs.Len()
	x, y = make([]float64, n), make([]float64, n)
	warm := !v.o.ColdStart && v.lastX != nil
	for _, i := range f.act {
		if warm && (v.lastX[i] <= 0 || v.lastY[i] <= 0) {
			warm = false
		}
	}
	for _, i := range f.act {
		if warm {
			x[i], y[i] = v.lastX[i], v.lastY[i]
		} else {
			x[i] = (1-w)*f.z[i] + w*dewX[i]
			y[i] = (1-w)*bubY[i] + w*f.z[i]
		}
	}
	xn, errX := material.Normalize(x)
	yn, errY := material.Normalize(y)
	if errX != nil || errY != nil {
		return material.Clone(f.z), material.Clone(f.z)
	}

	return xn, yn
}

// split converges the two-phase split of the active feed at (T, P) by
// successive substitution on K. x and y carry the starting guess in and the
// answer out.
func (v *VLE) split(ctx context.Context, f vleFeed, T, P float64, x, y []float64) (float64, error) {
	n := v.cs.Len()
	xn, yn := make([]float64, n), make([]float64, n)
	Vprev := math.NaN()
	for it := 0; it < v.o.MaxInner; it++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		K, err := thermo.KValues(v.p, x, y, T, P)
		if err != nil {
			return 0, err
		}
		V, err := rachfordRice(ctx, f.z, K, f.act, v.o)
		if err != nil {
			return 0, err
		}
		phaseSplit(f.z, K, f.act, V, xn, yn)
		delta := math.Max(material.MaxAbsDiff(xn, x), material.MaxAbsDiff(yn, y))
		copy(x, xn)
		copy(y, yn)
		v.iters++
		if delta <= v.o.Tol && math.Abs(V-Vprev) <= v.o.Tol {
			return V, nil
		}
		Vprev = V
	}

	return 0, fmt.Errorf("%w: vle split after %d iterations at T=%g P=%g", ErrDidNotConverge, v.o.MaxInner, T, P)
}

// flowsOf turns a solved state into liquid and vapor flows. The liquid takes
// the remainder, so the component balance is exact.
func (f vleFeed) flowsOf(st vleState) (liquid, vapor []float64) {
	n := len(f.flows)
	liquid, vapor = make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		vi := 0.0
		if st.y != nil {
			vi = math.Min(f.active[i], st.V*f.Fa*st.y[i])
		}
		if st.V == 1 {
			vi = f.active[i]
		}
		vapor[i] = vi + f.light[i]
		liquid[i] = f.active[i] - vi + f.heavy[i]
	}

	return liquid, vapor
}

// mixture returns the feed molar property of a state.
func (v *VLE) mixture(f vleFeed, prop molarFunc, st vleState) (float64, error) {
	liquid, vapor := f.flowsOf(st)

	return molarMixture(prop, f.F, st.T, st.P,
		material.PhaseComposition{Phase: thermo.Liquid, Flows: liquid},
		material.PhaseComposition{Phase: thermo.Vapor, Flows: vapor})
}

// molarMixture is Σ nₚ·m(phase) / F over the given phases.
func molarMixture(prop molarFunc, F, T, P float64, phases ...material.PhaseComposition) (float64, error) {
	var total float64
	for _, pc := range phases {
		n := pc.Total()
		if n <= 0 {
			continue
		}
		m, err := prop(pc.Phase, pc.Flows, T, P)
		if err != nil {
			return 0, err
		}
		total += n * m
	}

	return total / F, nil
}

func (v *VLE) commit(f vleFeed, st vleState) (VLEResult, error) {
	liquid, vapor := f.flowsOf(st)
	v.ix.Condition().Set(st.T, st.P)
	if err := v.ix.SetFlows(thermo.Liquid, liquid); err != nil {
		return VLEResult{}, err
	}
	if err := v.ix.SetFlows(thermo.Vapor, vapor); err != nil {
		return VLEResult{}, err
	}
	for _, ph := range v.ix.Phases() {
		if ph != thermo.Liquid && ph != thermo.Vapor {
			if err := v.ix.SetFlows(ph, make([]float64, len(liquid))); err != nil {
				return VLEResult{}, err
			}
		}
	}
	x, y := compositionOr(liquid, st.x), compositionOr(vapor, st.y)
	if st.x != nil && st.y != nil && f.Fa > 0 && st.V > 0 && st.V < 1 {
		v.lastX, v.lastY = material.Clone(st.x), material.Clone(st.y)
	}

	return VLEResult{
		Components:  v.cs.IDs(),
		T:           st.T,
		P:           st.P,
		V:           material.Sum(vapor) / f.F,
		X:           x,
		Y:           y,
		LiquidFlows: liquid,
		VaporFlows:  vapor,
		Iterations:  v.iters,
	}, nil
}

// compositionOr normalizes flows, falling back to the incipient composition
// for an empty phase.
func compositionOr(flows, incipient []float64) []float64 {
	if c, err := material.Normalize(flows); err == nil {
		return c
	}
	if incipient == nil {
		return make([]float64, len(flows))
	}

	return material.Clone(incipient)
}
