package units

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/thermo"
)

// Settler separates a liquid feed into two liquid outlets at liquid-liquid
// equilibrium. It runs at the adiabatic mixing temperature of its inlets.
// The first outlet takes the liquid richer in the first component present;
// a miscible feed leaves entirely through it.
type Settler struct {
	unit
	lle  *equilibrium.LLE
	last equilibrium.LLEResult
}

// NewSettler builds a liquid-liquid settler.
func NewSettler(id string, p thermo.PropertyProvider, ins []*flowsheet.Stream, liquid, secondLiquid *flowsheet.Stream, opts ...Option) (*Settler, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	u, err := newUnit(id, p, ins, []*flowsheet.Stream{liquid, secondLiquid}, opts)
	if err != nil {
		return nil, err
	}
	if err = u.ms.AddPhase(thermo.SecondLiquid); err != nil {
		return nil, err
	}
	lle, err := equilibrium.NewLLE(p, u.o.solverOpts()...)
	if err != nil {
		return nil, err
	}

	return &Settler{unit: u, lle: lle}, nil
}

// Result returns the last liquid-liquid answer.
func (s *Settler) Result() equilibrium.LLEResult { return s.last }

// Simulate implements flowsheet.Unit.
func (s *Settler) Simulate(ctx context.Context) error {
	_, F, err := s.mixInlets(ctx)
	if err != nil {
		return err
	}
	if F <= 0 {
		s.emptyOutlets()
		return nil
	}
	T := s.ms.Condition().T
	r, err := s.lle.Solve(ctx, s.ms.Overall(), T)
	if err != nil {
		return err
	}
	if err = s.lle.Apply(s.ms, r); err != nil {
		return err
	}
	s.last = r
	s.o.Logger.Debug("settler", slog.String("unit", s.id), slog.Float64("T", T),
		slog.Bool("miscible", r.Miscible), slog.Float64("beta", r.Beta))
	if err = s.sendPhase(s.outs[0], thermo.Liquid); err != nil {
		return err
	}

	return s.sendPhase(s.outs[1], thermo.SecondLiquid)
}

// Decanter is a three-phase separator: vapor, liquid and second liquid
// leave through separate outlets.
type Decanter struct {
	unit
	spec equilibrium.Specification
	vlle *equilibrium.VLLE
	last equilibrium.VLLEResult
}

// NewDecanter builds a three-phase decanter. spec is T,P or H,P, or
// Adiabatic for the mixed inlet enthalpy and pressure.
func NewDecanter(id string, p thermo.PropertyProvider, ins []*flowsheet.Stream, vapor, liquid, secondLiquid *flowsheet.Stream, spec equilibrium.Specification, opts ...Option) (*Decanter, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case equilibrium.KindInvalid:
	case equilibrium.KindTP, equilibrium.KindHP:
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	default:
		return nil, fmt.Errorf("%s: %w: decanter supports T,P and H,P, got %s", id, equilibrium.ErrInvalidSpecification, spec.Kind)
	}
	u, err := newUnit(id, p, ins, []*flowsheet.Stream{vapor, liquid, secondLiquid}, opts)
	if err != nil {
		return nil, err
	}
	vlle, err := equilibrium.NewVLLE(p, u.ms, u.o.solverOpts()...)
	if err != nil {
		return nil, err
	}

	return &Decanter{unit: u, spec: spec, vlle: vlle}, nil
}

// Result returns the last three-phase answer.
func (d *Decanter) Result() equilibrium.VLLEResult { return d.last }

// Simulate implements flowsheet.Unit.
func (d *Decanter) Simulate(ctx context.Context) error {
	H, F, err := d.mixInlets(ctx)
	if err != nil {
		return err
	}
	if F <= 0 {
		d.emptyOutlets()
		return nil
	}
	spec := d.spec
	if spec.Kind == equilibrium.KindInvalid {
		spec = equilibrium.AtHP(H/F, pressureOf(spec, d.ms))
	}
	r, err := d.vlle.Solve(ctx, spec)
	if err != nil {
		return err
	}
	d.last = r
	d.o.Logger.Debug("decanter", slog.String("unit", d.id), slog.Float64("T", r.T),
		slog.Float64("V", r.V), slog.Bool("liquid_split", r.LiquidSplit))
	for i, ph := range []thermo.Phase{thermo.Vapor, thermo.Liquid, thermo.SecondLiquid} {
		if err = d.sendPhase(d.outs[i], ph); err != nil {
			return err
		}
	}

	return nil
}
