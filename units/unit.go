package units

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/internal/logging"
	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/roots"
	"github.com/katalvlaran/lvflow/thermo"
)

// ErrInvalidUnit indicates a unit wired or parameterized inconsistently.
var ErrInvalidUnit = errors.New("units: invalid unit")

var (
	_ flowsheet.Unit = (*Mixer)(nil)
	_ flowsheet.Unit = (*Splitter)(nil)
	_ flowsheet.Unit = (*Flash)(nil)
	_ flowsheet.Unit = (*HeatExchanger)(nil)
	_ flowsheet.Unit = (*HXProcess)(nil)
	_ flowsheet.Unit = (*Settler)(nil)
	_ flowsheet.Unit = (*Decanter)(nil)
)

// Adiabatic is the zero Specification. Flash and Decanter given it run at
// the mixed inlet pressure with no heat duty.
var Adiabatic = equilibrium.Specification{}

// Options configures a unit.
type Options struct {
	Logger      *slog.Logger
	Rigorous    bool
	Equilibrium []equilibrium.Option
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns rigorous units with a discarding logger.
func DefaultOptions() Options {
	return Options{Logger: logging.NewNop(), Rigorous: true}
}

// WithLogger sets the unit logger; it is also handed to the unit's solvers.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithRigorous selects vapor-liquid equilibrium on the outlet (true) or a
// phase-preserving energy balance only (false).
func WithRigorous(on bool) Option {
	return func(o *Options) { o.Rigorous = on }
}

// WithEquilibrium passes options to every solver the unit builds.
func WithEquilibrium(opts ...equilibrium.Option) Option {
	return func(o *Options) { o.Equilibrium = append(o.Equilibrium, opts...) }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// solverOpts prepends the unit logger so explicit solver options win.
func (o Options) solverOpts() []equilibrium.Option {
	return append([]equilibrium.Option{equilibrium.WithLogger(o.Logger)}, o.Equilibrium...)
}

// unit holds what every unit operation shares.
type unit struct {
	id   string
	p    thermo.PropertyProvider
	ins  []*flowsheet.Stream
	outs []*flowsheet.Stream
	o    Options
	ms   *material.MultiPhase
}

// newUnit validates the wiring. p may be nil for units that need no
// properties; the component set then comes from the first inlet.
func newUnit(id string, p thermo.PropertyProvider, ins, outs []*flowsheet.Stream, opts []Option) (unit, error) {
	if id == "" {
		return unit{}, flowsheet.ErrEmptyID
	}
	if len(ins) == 0 || len(outs) == 0 {
		return unit{}, fmt.Errorf("%w: %s: needs at least one inlet and one outlet", ErrInvalidUnit, id)
	}
	all := append(append([]*flowsheet.Stream(nil), ins...), outs...)
	for _, s := range all {
		if s == nil {
			return unit{}, fmt.Errorf("%w: %s: nil stream", ErrInvalidUnit, id)
		}
	}
	cs := ins[0].Components()
	if p != nil {
		cs = p.Components()
	}
	for _, s := range all {
		if !s.Components().Equal(cs) {
			return unit{}, fmt.Errorf("%s: stream %q: %w", id, s.ID(), material.ErrComponentMismatch)
		}
	}
	cond, err := thermo.NewThermalCondition(flowsheet.StandardT, flowsheet.StandardP)
	if err != nil {
		return unit{}, err
	}
	ms, err := material.NewMultiPhase(cs, cond)
	if err != nil {
		return unit{}, err
	}

	return unit{id: id, p: p, ins: ins, outs: outs, o: buildOptions(opts), ms: ms}, nil
}

func requireProvider(id string, p thermo.PropertyProvider) error {
	if p == nil {
		return fmt.Errorf("%w: %s: nil property provider", ErrInvalidUnit, id)
	}

	return nil
}

func (u *unit) ID() string                    { return u.id }
func (u *unit) Inlets() []*flowsheet.Stream  { return u.ins }
func (u *unit) Outlets() []*flowsheet.Stream { return u.outs }

func (u *unit) inletIndexers() []material.Indexer {
	out := make([]material.Indexer, len(u.ins))
	for i, s := range u.ins {
		out[i] = s.Indexer()
	}

	return out
}

// mixInlets sums the inlets into the working indexer at their adiabatic
// mixing temperature and returns the total enthalpy and flow.
func (u *unit) mixInlets(ctx context.Context) (H, F float64, err error) {
	return mixAdiabatic(ctx, u.p, u.ms, u.inletIndexers())
}

// emptyOutlets zeroes every outlet, leaving it at the working condition.
func (u *unit) emptyOutlets() {
	for _, s := range u.outs {
		s.Indexer().Empty()
		s.Condition().CopyFrom(u.ms.Condition())
	}
}

// sendPhase writes phase ph of the working indexer to s as a single phase.
func (u *unit) sendPhase(s *flowsheet.Stream, ph thermo.Phase) error {
	flows := make([]float64, u.ms.Components().Len())
	if u.ms.HasPhase(ph) {
		var err error
		if flows, err = u.ms.Flows(ph); err != nil {
			return err
		}
	}
	sp, err := material.NewSinglePhase(u.ms.Components(), u.ms.Condition().Clone(), ph, flows)
	if err != nil {
		return err
	}

	return s.Receive(sp)
}

// mixAdiabatic overwrites ms with the sum of srcs and sets its temperature
// so that the phase-wise enthalpy equals that of the inlets.
func mixAdiabatic(ctx context.Context, p thermo.PropertyProvider, ms *material.MultiPhase, srcs []material.Indexer) (H, F float64, err error) {
	// 1. Inlet totals.
	var Tw float64
	for _, s := range srcs {
		h, err := material.Enthalpy(s, p)
		if err != nil {
			return 0, 0, err
		}
		n := s.Total()
		H += h
		F += n
		Tw += n * s.Condition().T
	}
	if err = material.Mix(ms, srcs...); err != nil {
		return 0, 0, err
	}
	if !(F > 0) {
		return 0, 0, nil
	}

	// 2. Temperature from the energy balance.
	if err = settleT(ctx, p, ms, H, F, Tw/F); err != nil {
		return 0, 0, fmt.Errorf("units: mixing temperature: %w", err)
	}

	return H, F, nil
}

// settleT sets the temperature of ms, holding F kmol/h in its current
// phases, so that its enthalpy is H. The search starts at T0.
func settleT(ctx context.Context, p thermo.PropertyProvider, ms *material.MultiPhase, H, F, T0 float64) error {
	cond := ms.Condition()
	residual := func(T float64) (float64, error) {
		cond.T = T
		h, err := material.Enthalpy(ms, p)
		return (h - H) / F, err
	}
	res, err := roots.Find(ctx, residual, T0-1, T0+1, roots.WithDomain(0.2*T0, 5*T0))
	if err != nil {
		return err
	}
	cond.T = res.X

	return nil
}

// collapse moves every flow of ms into phase ph.
func collapse(ms *material.MultiPhase, ph thermo.Phase) error {
	flows := ms.Overall()
	if err := ms.AddPhase(ph); err != nil {
		return err
	}
	for _, q := range ms.Phases() {
		f := make([]float64, len(flows))
		if q == ph {
			f = flows
		}
		if err := ms.SetFlows(q, f); err != nil {
			return err
		}
	}

	return nil
}

// pressureOf picks the working pressure: the Specification's when it has one,
// else the mixed inlet pressure.
func pressureOf(spec equilibrium.Specification, ms *material.MultiPhase) float64 {
	if spec.P > 0 && !math.IsNaN(spec.P) {
		return spec.P
	}

	return ms.Condition().P
}
