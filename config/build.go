package config

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/internal/logging"
	"github.com/katalvlaran/lvflow/property"
	"github.com/katalvlaran/lvflow/recycle"
	"github.com/katalvlaran/lvflow/thermo"
	"github.com/katalvlaran/lvflow/units"
)

// Plant is a built flowsheet file.
type Plant struct {
	System  *flowsheet.System
	Package *property.Package
	Streams map[string]*flowsheet.Stream
}

// Package resolves the chemicals and the activity model.
func (f *File) Package() (*property.Package, error) {
	// 1. Chemicals: catalog IDs or inline data.
	chems := make([]property.Chemical, 0, len(f.Chemicals))
	for i, entry := range f.Chemicals {
		switch v := entry.(type) {
		case string:
			c, err := property.Lookup(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
			}
			chems = append(chems, c)
		case map[string]any:
			var c property.Chemical
			if err := mapstructure.Decode(v, &c); err != nil {
				return nil, invalid("chemical %d: %v", i, err)
			}
			chems = append(chems, c)
		default:
			return nil, invalid("chemical %d: want an ID or a mapping, got %T", i, entry)
		}
	}
	ids := make([]string, len(chems))
	for i, c := range chems {
		ids[i] = c.ID
	}
	cs, err := thermo.NewComponentSet(ids...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// 2. Activity model.
	model, err := f.Activity.model(cs)
	if err != nil {
		return nil, err
	}
	pkg, err := property.New(chems, property.WithActivityModel(model))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return pkg, nil
}

func (a Activity) model(cs *thermo.ComponentSet) (property.ActivityModel, error) {
	pair := func(p Pair) (int, int, error) {
		i, err1 := cs.Index(p.I)
		j, err2 := cs.Index(p.J)
		if err1 != nil || err2 != nil || i == j {
			return 0, 0, invalid("activity pair %s-%s", p.I, p.J)
		}
		return i, j, nil
	}
	switch a.Model {
	case "", "ideal":
		if len(a.Pairs) > 0 {
			return nil, invalid("ideal activity takes no pairs")
		}
		return property.Ideal{}, nil
	case "margules":
		m := property.NewMargules(cs.Len())
		for _, p := range a.Pairs {
			i, j, err := pair(p)
			if err != nil {
				return nil, err
			}
			m.SetPair(i, j, p.A)
		}
		return m, nil
	case "nrtl":
		if len(a.Pairs) == 0 {
			return property.DefaultNRTL(cs), nil
		}
		m := property.NewNRTL(cs.Len())
		for _, p := range a.Pairs {
			i, j, err := pair(p)
			if err != nil {
				return nil, err
			}
			m.SetPair(i, j, p.Aij, p.Bij, p.Aji, p.Bji, p.Alpha)
		}
		return m, nil
	}

	return nil, invalid("unknown activity model %q", a.Model)
}

// Build resolves the package, creates every stream and wires the units into
// a system named after the file. opts apply to every unit.
func (f *File) Build(logger *slog.Logger, opts ...units.Option) (*Plant, error) {
	pkg, err := f.Package()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	b := &builder{
		pkg:     pkg,
		streams: make(map[string]*flowsheet.Stream),
		opts:    append([]units.Option{units.WithLogger(logger)}, opts...),
	}
	if f.Solver.EquilibriumTol > 0 {
		b.opts = append(b.opts, units.WithEquilibrium(equilibrium.WithTolerance(f.Solver.EquilibriumTol)))
	}

	// 1. Declared streams.
	for _, s := range f.Streams {
		if _, dup := b.streams[s.ID]; dup {
			return nil, invalid("duplicate stream %q", s.ID)
		}
		st, err := b.declared(s)
		if err != nil {
			return nil, err
		}
		b.streams[s.ID] = st
	}

	// 2. Units; undeclared streams start empty.
	name := f.Name
	if name == "" {
		name = "flowsheet"
	}
	sys := flowsheet.NewSystem(name)
	for _, u := range f.Units {
		unit, err := builders[u.Type](b, u)
		if err != nil {
			return nil, err
		}
		if err = sys.AddUnit(unit); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	sys.SetTear(f.Tears...)
	logger.Debug("flowsheet loaded", "name", name, "chemicals", pkg.Components().IDs(),
		"units", len(f.Units), "streams", len(b.streams))

	return &Plant{System: sys, Package: pkg, Streams: b.streams}, nil
}

// EngineOptions maps the solver section onto recycle options.
func (f *File) EngineOptions() ([]recycle.Option, error) {
	s := f.Solver
	acc, err := recycle.AcceleratorByName(s.Accelerator)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	opts := []recycle.Option{
		recycle.WithMaxPasses(s.MaxPasses),
		recycle.WithTolerances(s.RelTol, s.FlowFloor, s.TempTol),
		recycle.WithParallelism(s.Parallelism),
		recycle.WithAccelerator(acc),
	}
	if s.ContinueOnUnitError {
		opts = append(opts, recycle.WithContinueOnUnitError())
	}

	return opts, nil
}

type builder struct {
	pkg     *property.Package
	streams map[string]*flowsheet.Stream
	opts    []units.Option
}

func (b *builder) declared(s Stream) (*flowsheet.Stream, error) {
	cs := b.pkg.Components()
	phase := thermo.Liquid
	if s.Phase != "" {
		p, err := thermo.ParsePhase(s.Phase)
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s: %w", ErrInvalidConfig, s.ID, err)
		}
		phase = p
	}
	T, P := s.T, s.P
	if T == 0 {
		T = flowsheet.StandardT
	}
	if P == 0 {
		P = flowsheet.StandardP
	}
	flows := make([]float64, cs.Len())
	for id, n := range s.Flows {
		i, err := cs.Index(id)
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s: %w", ErrInvalidConfig, s.ID, err)
		}
		flows[i] = n
	}
	st, err := flowsheet.NewFeed(s.ID, cs, phase, T, P, flows)
	if err != nil {
		return nil, fmt.Errorf("%w: stream %s: %w", ErrInvalidConfig, s.ID, err)
	}

	return st, nil
}

func (b *builder) stream(id string) (*flowsheet.Stream, error) {
	if s, ok := b.streams[id]; ok {
		return s, nil
	}
	s, err := flowsheet.NewEmpty(id, b.pkg.Components())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	b.streams[id] = s

	return s, nil
}

// ports resolves a unit's streams, checking the inlet and outlet counts
// (maxIn < 0 is unbounded).
func (b *builder) ports(u Unit, minIn, maxIn, outs int) ([]*flowsheet.Stream, []*flowsheet.Stream, error) {
	if len(u.Inlets) < minIn || (maxIn >= 0 && len(u.Inlets) > maxIn) {
		return nil, nil, invalid("unit %s: %s takes %s inlets, got %d", u.ID, u.Type, arity(minIn, maxIn), len(u.Inlets))
	}
	if len(u.Outlets) != outs {
		return nil, nil, invalid("unit %s: %s takes %d outlets, got %d", u.ID, u.Type, outs, len(u.Outlets))
	}
	resolve := func(ids []string) ([]*flowsheet.Stream, error) {
		ss := make([]*flowsheet.Stream, len(ids))
		for i, id := range ids {
			s, err := b.stream(id)
			if err != nil {
				return nil, err
			}
			ss[i] = s
		}
		return ss, nil
	}
	ins, err := resolve(u.Inlets)
	if err != nil {
		return nil, nil, err
	}
	out, err := resolve(u.Outlets)

	return ins, out, err
}

func arity(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprint(lo)
	}

	return fmt.Sprintf("%d to %d", lo, hi)
}

// decode fills out from u.Params, rejecting unknown keys.
func decode(u Unit, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{ErrorUnused: true, Result: out})
	if err != nil {
		return err
	}
	if err = dec.Decode(u.Params); err != nil {
		return invalid("unit %s params: %v", u.ID, err)
	}

	return nil
}

// unitOpts appends a per-unit rigorous override.
func (b *builder) unitOpts(rigorous *bool) []units.Option {
	opts := append([]units.Option(nil), b.opts...)
	if rigorous != nil {
		opts = append(opts, units.WithRigorous(*rigorous))
	}

	return opts
}

type stateParams struct {
	T, P, V, H, S *float64
	X             []float64 `mapstructure:"x"`
	Y             []float64 `mapstructure:"y"`
	Adiabatic     bool
}

func (s stateParams) spec(id string) (equilibrium.Specification, error) {
	if s.Adiabatic {
		if s.T != nil || s.P != nil || s.V != nil || s.H != nil || s.S != nil || s.X != nil || s.Y != nil {
			return equilibrium.Specification{}, invalid("unit %s: adiabatic takes no state variables", id)
		}
		return units.Adiabatic, nil
	}
	spec, err := equilibrium.SpecificationFrom(equilibrium.Given{T: s.T, P: s.P, V: s.V, H: s.H, S: s.S, X: s.X, Y: s.Y})
	if err != nil {
		return spec, fmt.Errorf("%w: unit %s: %w", ErrInvalidConfig, id, err)
	}

	return spec, nil
}

var builders = map[string]func(*builder, Unit) (flowsheet.Unit, error){
	"mixer": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p struct{ Rigorous *bool }
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		ins, outs, err := b.ports(u, 1, -1, 1)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewMixer(u.ID, b.pkg, ins, outs[0], b.unitOpts(p.Rigorous)...))
	},
	"splitter": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p struct{ Split []float64 }
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		ins, outs, err := b.ports(u, 1, 1, 2)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewSplitter(u.ID, ins[0], outs[0], outs[1], p.Split...))
	},
	"flash": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p stateParams
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		spec, err := p.spec(u.ID)
		if err != nil {
			return nil, err
		}
		ins, outs, err := b.ports(u, 1, -1, 2)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewFlash(u.ID, b.pkg, ins, outs[0], outs[1], spec, b.opts...))
	},
	"heat_exchanger": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p struct {
			T, V     *float64
			Rigorous *bool
		}
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		var spec units.HXSpec
		switch {
		case p.T != nil && p.V == nil:
			spec = units.OutletT(*p.T)
		case p.V != nil && p.T == nil:
			spec = units.OutletV(*p.V)
		default:
			return nil, invalid("unit %s: heat_exchanger takes exactly one of T, V", u.ID)
		}
		ins, outs, err := b.ports(u, 1, 1, 1)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewHeatExchanger(u.ID, b.pkg, ins[0], outs[0], spec, b.unitOpts(p.Rigorous)...))
	},
	"hx_process": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p struct {
			DT       *float64 `mapstructure:"dT"`
			TLim0    float64  `mapstructure:"T_lim0"`
			TLim1    float64  `mapstructure:"T_lim1"`
			Rigorous *bool
		}
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		spec := units.DefaultHXProcessSpec()
		if p.DT != nil {
			spec.DT = *p.DT
		}
		spec.TLimit = [2]float64{p.TLim0, p.TLim1}
		ins, outs, err := b.ports(u, 2, 2, 2)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewHXProcess(u.ID, b.pkg, ins[0], ins[1], outs[0], outs[1], spec, b.unitOpts(p.Rigorous)...))
	},
	"settler": func(b *builder, u Unit) (flowsheet.Unit, error) {
		if err := decode(u, &struct{}{}); err != nil {
			return nil, err
		}
		ins, outs, err := b.ports(u, 1, -1, 2)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewSettler(u.ID, b.pkg, ins, outs[0], outs[1], b.opts...))
	},
	"decanter": func(b *builder, u Unit) (flowsheet.Unit, error) {
		var p stateParams
		if err := decode(u, &p); err != nil {
			return nil, err
		}
		spec, err := p.spec(u.ID)
		if err != nil {
			return nil, err
		}
		ins, outs, err := b.ports(u, 1, -1, 3)
		if err != nil {
			return nil, err
		}
		return wrap(units.NewDecanter(u.ID, b.pkg, ins, outs[0], outs[1], outs[2], spec, b.opts...))
	},
}

// wrap tags unit construction errors with ErrInvalidConfig.
func wrap(u flowsheet.Unit, err error) (flowsheet.Unit, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return u, nil
}
