package units

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

// Flash mixes its inlets and splits them into a vapor and a liquid outlet
// at a vapor-liquid equilibrium specification.
type Flash struct {
	unit
	spec equilibrium.Specification
	vle  *equilibrium.VLE
	last equilibrium.VLEResult
	duty float64
}

// NewFlash builds a flash drum. spec is any VLE specification, or
// Adiabatic for a duty-free flash at the mixed inlet pressure.
func NewFlash(id string, p thermo.PropertyProvider, ins []*flowsheet.Stream, vapor, liquid *flowsheet.Stream, spec equilibrium.Specification, opts ...Option) (*Flash, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	if spec.Kind != equilibrium.KindInvalid {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	}
	u, err := newUnit(id, p, ins, []*flowsheet.Stream{vapor, liquid}, opts)
	if err != nil {
		return nil, err
	}
	vle, err := equilibrium.NewVLE(p, u.ms, u.o.solverOpts()...)
	if err != nil {
		return nil, err
	}

	return &Flash{unit: u, spec: spec, vle: vle}, nil
}

// Result returns the last equilibrium answer.
func (f *Flash) Result() equilibrium.VLEResult { return f.last }

// Duty returns the heat added in the last Simulate [kJ/h].
func (f *Flash) Duty() float64 { return f.duty }

// Simulate implements flowsheet.Unit.
func (f *Flash) Simulate(ctx context.Context) error {
	// 1. Feed.
	H, F, err := f.mixInlets(ctx)
	if err != nil {
		return err
	}
	if F <= 0 {
		f.emptyOutlets()
		f.duty = 0
		return nil
	}

	// 2. Equilibrium.
	spec := f.spec
	if spec.Kind == equilibrium.KindInvalid {
		spec = equilibrium.AtHP(H/F, pressureOf(spec, f.ms))
	}
	res, err := f.vle.Solve(ctx, spec)
	if err != nil {
		return err
	}
	f.last = res
	Hout, err := material.Enthalpy(f.ms, f.p)
	if err != nil {
		return err
	}
	f.duty = Hout - H
	f.o.Logger.Debug("flash", slog.String("unit", f.id), slog.String("spec", spec.Kind.String()),
		slog.Float64("T", res.T), slog.Float64("V", res.V), slog.Float64("duty", f.duty))

	// 3. Outlets.
	if err = f.sendPhase(f.outs[0], thermo.Vapor); err != nil {
		return err
	}

	return f.sendPhase(f.outs[1], thermo.Liquid)
}
