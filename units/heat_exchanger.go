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

// HXSpec is the outlet specification of a HeatExchanger: a temperature or
// a vapor fraction, at the inlet pressure.
type HXSpec struct {
	T, V float64
	byV  bool
}

// OutletT specifies the outlet temperature [K].
func OutletT(T float64) HXSpec { return HXSpec{T: T} }

// OutletV specifies the outlet vapor fraction. V=0 is the bubble point and
// V=1 the dew point at the inlet pressure.
func OutletV(V float64) HXSpec { return HXSpec{V: V, byV: true} }

// String renders "T=350" or "V=0.5".
func (s HXSpec) String() string {
	if s.byV {
		return fmt.Sprintf("V=%g", s.V)
	}

	return fmt.Sprintf("T=%g", s.T)
}

// HeatExchanger is a utility heater or cooler with one inlet and one outlet.
// It reports the duty needed to reach its specification.
type HeatExchanger struct {
	unit
	spec   HXSpec
	vle    *equilibrium.VLE
	bubble *equilibrium.BubblePointSolver
	dew    *equilibrium.DewPointSolver
	duty   float64
}

// NewHeatExchanger builds a heat exchanger. With WithRigorous(false) a
// temperature spec keeps the inlet phases, and a vapor fraction spec must
// be 0 or 1 and only relabels the phase.
func NewHeatExchanger(id string, p thermo.PropertyProvider, in, out *flowsheet.Stream, spec HXSpec, opts ...Option) (*HeatExchanger, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	u, err := newUnit(id, p, []*flowsheet.Stream{in}, []*flowsheet.Stream{out}, opts)
	if err != nil {
		return nil, err
	}
	switch {
	case spec.byV && (spec.V < 0 || spec.V > 1 || math.IsNaN(spec.V)):
		return nil, fmt.Errorf("%w: %s: vapor fraction %g outside [0, 1]", ErrInvalidUnit, id, spec.V)
	case spec.byV && !u.o.Rigorous && spec.V != 0 && spec.V != 1:
		return nil, fmt.Errorf("%w: %s: vapor fraction must be 0 or 1 without equilibrium", ErrInvalidUnit, id)
	case !spec.byV && !(spec.T > 0):
		return nil, fmt.Errorf("%w: %s: outlet temperature %g", ErrInvalidUnit, id, spec.T)
	}
	hx := &HeatExchanger{unit: u, spec: spec}
	so := u.o.solverOpts()
	if hx.vle, err = equilibrium.NewVLE(p, u.ms, so...); err != nil {
		return nil, err
	}
	if hx.bubble, err = equilibrium.NewBubblePointSolver(p, so...); err != nil {
		return nil, err
	}
	if hx.dew, err = equilibrium.NewDewPointSolver(p, so...); err != nil {
		return nil, err
	}

	return hx, nil
}

// Duty returns the heat added in the last Simulate [kJ/h]; negative for
// cooling.
func (hx *HeatExchanger) Duty() float64 { return hx.duty }

// Simulate implements flowsheet.Unit.
func (hx *HeatExchanger) Simulate(ctx context.Context) error {
	// 1. Outlet starts as a copy of the inlet.
	in := hx.ins[0].Indexer()
	if err := hx.ms.CopyFrom(in); err != nil {
		return err
	}
	if in.Total() <= 0 {
		hx.emptyOutlets()
		hx.duty = 0
		return nil
	}
	Hin, err := material.Enthalpy(in, hx.p)
	if err != nil {
		return err
	}

	// 2. Outlet state.
	if hx.o.Rigorous {
		err = hx.rigorous(ctx)
	} else {
		err = hx.relabel()
	}
	if err != nil {
		return err
	}

	// 3. Duty and outlet.
	Hout, err := material.Enthalpy(hx.ms, hx.p)
	if err != nil {
		return err
	}
	hx.duty = Hout - Hin
	hx.o.Logger.Debug("heat exchanger", slog.String("unit", hx.id), slog.String("spec", hx.spec.String()),
		slog.Float64("T", hx.ms.Condition().T), slog.Float64("duty", hx.duty))

	return hx.outs[0].Receive(hx.ms)
}

func (hx *HeatExchanger) rigorous(ctx context.Context) error {
	P := hx.ms.Condition().P
	if !hx.spec.byV {
		_, err := hx.vle.Solve(ctx, equilibrium.AtTP(hx.spec.T, P))
		return err
	}
	z := hx.ms.Overall()
	switch hx.spec.V {
	case 0:
		bp, err := hx.bubble.SolveAtP(ctx, z, P)
		if err != nil {
			return err
		}
		hx.ms.Condition().T = bp.T

		return collapse(hx.ms, thermo.Liquid)
	case 1:
		dp, err := hx.dew.SolveAtP(ctx, z, P)
		if err != nil {
			return err
		}
		hx.ms.Condition().T = dp.T

		return collapse(hx.ms, thermo.Vapor)
	}
	_, err := hx.vle.Solve(ctx, equilibrium.AtVP(hx.spec.V, P))

	return err
}

func (hx *HeatExchanger) relabel() error {
	if !hx.spec.byV {
		hx.ms.Condition().T = hx.spec.T
		return nil
	}
	if hx.spec.V == 0 {
		return collapse(hx.ms, thermo.Liquid)
	}

	return collapse(hx.ms, thermo.Vapor)
}
