package units

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

// HXProcessSpec bounds the heat an HXProcess moves. The exchange stops when
// either end of the exchanger closes to DT, or when an outlet reaches its
// limit.
type HXProcessSpec struct {
	DT     float64    // minimum approach [K]
	TLimit [2]float64 // outlet temperature limits [K] by outlet; 0 is none
}

// DefaultHXProcessSpec approaches to 5 K with no outlet limits.
func DefaultHXProcessSpec() HXProcessSpec { return HXProcessSpec{DT: 5} }

// HXProcess is a counter-current exchanger between two process streams.
// Inlet i leaves through outlet i at its own pressure; the heat the hotter
// stream loses the colder one gains.
type HXProcess struct {
	unit
	spec  HXProcessSpec
	sides [2]hxSide
	q     float64
}

type hxSide struct {
	ms  *material.MultiPhase
	vle *equilibrium.VLE
}

// NewHXProcess builds a process-to-process exchanger. With WithRigorous(false)
// both streams keep their inlet phases.
func NewHXProcess(id string, p thermo.PropertyProvider, inA, inB, outA, outB *flowsheet.Stream, spec HXProcessSpec, opts ...Option) (*HXProcess, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	u, err := newUnit(id, p, []*flowsheet.Stream{inA, inB}, []*flowsheet.Stream{outA, outB}, opts)
	if err != nil {
		return nil, err
	}
	if !(spec.DT >= 0) || math.IsInf(spec.DT, 1) {
		return nil, fmt.Errorf("%w: %s: approach %g", ErrInvalidUnit, id, spec.DT)
	}
	for i, T := range spec.TLimit {
		if !(T >= 0) || math.IsInf(T, 1) {
			return nil, fmt.Errorf("%w: %s: outlet %d limit %g", ErrInvalidUnit, id, i, T)
		}
	}
	cond, err := thermo.NewThermalCondition(flowsheet.StandardT, flowsheet.StandardP)
	if err != nil {
		return nil, err
	}
	second, err := material.NewMultiPhase(u.ms.Components(), cond)
	if err != nil {
		return nil, err
	}
	hx := &HXProcess{unit: u, spec: spec}
	so := u.o.solverOpts()
	for i, ms := range []*material.MultiPhase{u.ms, second} {
		vle, err := equilibrium.NewVLE(p, ms, so...)
		if err != nil {
			return nil, err
		}
		hx.sides[i] = hxSide{ms: ms, vle: vle}
	}

	return hx, nil
}

// Duty returns the heat moved from the hotter to the colder stream in the
// last Simulate [kJ/h].
func (hx *HXProcess) Duty() float64 { return hx.q }

// Simulate implements flowsheet.Unit.
func (hx *HXProcess) Simulate(ctx context.Context) error {
	// 1. Each outlet starts as a copy of its inlet.
	var H [2]float64
	for i, s := range hx.sides {
		in := hx.ins[i].Indexer()
		if err := s.ms.CopyFrom(in); err != nil {
			return err
		}
		h, err := material.Enthalpy(in, hx.p)
		if err != nil {
			return err
		}
		H[i] = h
	}
	hx.q = 0

	// 2. Exchange when both sides flow and the inlets are further apart than
	// the approach.
	hot := 0
	if hx.sides[1].ms.Condition().T > hx.sides[0].ms.Condition().T {
		hot = 1
	}
	cold := 1 - hot
	gap := hx.sides[hot].ms.Condition().T - hx.sides[cold].ms.Condition().T
	if hx.ins[0].Indexer().Total() > 0 && hx.ins[1].Indexer().Total() > 0 && gap > hx.spec.DT {
		if err := hx.exchange(ctx, hot, cold, H); err != nil {
			return err
		}
	}
	hx.o.Logger.Debug("process heat exchanger", slog.String("unit", hx.id), slog.Float64("duty", hx.q),
		slog.Float64("T0", hx.sides[0].ms.Condition().T), slog.Float64("T1", hx.sides[1].ms.Condition().T))

	// 3. Outlets.
	for i, s := range hx.sides {
		if err := hx.outs[i].Receive(s.ms); err != nil {
			return err
		}
	}

	return nil
}

// exchange moves the largest duty both terminal approaches and the outlet
// limits allow from side hot to side cold.
func (hx *HXProcess) exchange(ctx context.Context, hot, cold int, H [2]float64) error {
	// 1. Outlet targets.
	Th := hx.sides[hot].ms.Condition().T
	Tc := hx.sides[cold].ms.Condition().T
	hotOut := Tc + hx.spec.DT
	if lim := hx.spec.TLimit[hot]; lim > hotOut {
		hotOut = lim
	}
	coldOut := Th - hx.spec.DT
	if lim := hx.spec.TLimit[cold]; lim > 0 && lim < coldOut {
		coldOut = lim
	}
	if hotOut >= Th || coldOut <= Tc {
		return nil
	}

	// 2. Heat each side gives or takes at its target.
	Hh, err := hx.toTemperature(ctx, hot, hotOut)
	if err != nil {
		return err
	}
	Hc, err := hx.toTemperature(ctx, cold, coldOut)
	if err != nil {
		return err
	}

	// 3. The smaller duty governs; the other side settles at its enthalpy.
	qh, qc := H[hot]-Hh, Hc-H[cold]
	if qh < qc {
		hx.q = qh
		return hx.toEnthalpy(ctx, cold, H[cold]+qh)
	}
	hx.q = qc

	return hx.toEnthalpy(ctx, hot, H[hot]-qc)
}

// toTemperature moves side i to T at its pressure and returns its enthalpy.
func (hx *HXProcess) toTemperature(ctx context.Context, i int, T float64) (float64, error) {
	s := hx.sides[i]
	if hx.o.Rigorous {
		if _, err := s.vle.Solve(ctx, equilibrium.AtTP(T, s.ms.Condition().P)); err != nil {
			return 0, err
		}
	} else {
		s.ms.Condition().T = T
	}

	return material.Enthalpy(s.ms, hx.p)
}

// toEnthalpy resets side i to its inlet and brings it to enthalpy H.
func (hx *HXProcess) toEnthalpy(ctx context.Context, i int, H float64) error {
	s := hx.sides[i]
	if err := s.ms.CopyFrom(hx.ins[i].Indexer()); err != nil {
		return err
	}
	F := s.ms.Total()
	if hx.o.Rigorous {
		_, err := s.vle.Solve(ctx, equilibrium.AtHP(H/F, s.ms.Condition().P))
		return err
	}
	if err := settleT(ctx, hx.p, s.ms, H, F, s.ms.Condition().T); err != nil {
		return fmt.Errorf("units: %s: outlet %d temperature: %w", hx.id, i, err)
	}

	return nil
}
