package property

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/thermo"
)

// Options configures a Package.
type Options struct {
	Activity ActivityModel
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns ideal-solution options.
func DefaultOptions() Options {
	return Options{Activity: Ideal{}}
}

// WithActivityModel selects the liquid activity model.
func WithActivityModel(m ActivityModel) Option {
	return func(o *Options) {
		if m != nil {
			o.Activity = m
		}
	}
}

// Package is the reference thermo.PropertyProvider.
type Package struct {
	components *thermo.ComponentSet
	chemicals  []Chemical
	psatTb     []float64 // Antoine pressure at Tb, entropy reference for the vapor
	activity   ActivityModel
}

var _ thermo.PropertyProvider = (*Package)(nil)

// New builds a Package over chemicals, in that component order.
func New(chemicals []Chemical, opts ...Option) (*Package, error) {
	// 1. Validate pure-component data.
	ids := make([]string, len(chemicals))
	for i, c := range chemicals {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		ids[i] = c.ID
	}
	cs, err := thermo.NewComponentSet(ids...)
	if err != nil {
		return nil, err
	}

	// 2. Apply options.
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	// 3. Precompute the vapor entropy reference pressures.
	psat := make([]float64, len(chemicals))
	for i, c := range chemicals {
		if psat[i], err = c.Antoine.Pressure(c.Tb); err != nil {
			return nil, fmt.Errorf("property: %s: %w", c.ID, err)
		}
	}

	return &Package{
		components: cs,
		chemicals:  append([]Chemical(nil), chemicals...),
		psatTb:     psat,
		activity:   o.Activity,
	}, nil
}

// NewFromCatalog is New over catalog entries.
func NewFromCatalog(ids []string, opts ...Option) (*Package, error) {
	chems, err := LookupAll(ids...)
	if err != nil {
		return nil, err
	}

	return New(chems, opts...)
}

// Components implements thermo.PropertyProvider.
func (p *Package) Components() *thermo.ComponentSet { return p.components }

// Chemical returns the data of component i.
func (p *Package) Chemical(i int) Chemical { return p.chemicals[i] }

// ActivityModel returns the configured liquid model.
func (p *Package) ActivityModel() ActivityModel { return p.activity }

// Activity implements thermo.PropertyProvider.
func (p *Package) Activity(phase thermo.Phase, x []float64, T float64) ([]float64, error) {
	if !phase.IsLiquid() {
		return nil, fmt.Errorf("property: activity of %s phase", phase)
	}
	if err := p.check(x, T, 1); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	if err := p.activity.LnGamma(x, T, out); err != nil {
		return nil, err
	}
	for i, v := range out {
		out[i] = math.Exp(v)
	}

	return out, nil
}

// Fugacity implements thermo.PropertyProvider.
func (p *Package) Fugacity(phase thermo.Phase, x []float64, T, P float64) ([]float64, error) {
	if err := p.check(x, T, P); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	if phase == thermo.Vapor {
		for i := range out {
			out[i] = 1
		}

		return out, nil
	}
	gamma, err := p.Activity(phase, x, T)
	if err != nil {
		return nil, err
	}
	for i, c := range p.chemicals {
		psat, err := c.Antoine.Pressure(T)
		if err != nil {
			return nil, fmt.Errorf("property: %s: %w", c.ID, err)
		}
		out[i] = gamma[i] * psat / P
	}

	return out, nil
}

// Saturation implements thermo.PropertyProvider.
func (p *Package) Saturation(i int, T float64) (float64, error) {
	if i < 0 || i >= len(p.chemicals) {
		return 0, fmt.Errorf("%w: index %d", thermo.ErrUnknownComponent, i)
	}

	return p.chemicals[i].Antoine.Pressure(T)
}

// SaturationTemperature implements thermo.PropertyProvider.
func (p *Package) SaturationTemperature(i int, P float64) (float64, error) {
	if i < 0 || i >= len(p.chemicals) {
		return 0, fmt.Errorf("%w: index %d", thermo.ErrUnknownComponent, i)
	}

	return p.chemicals[i].Antoine.Temperature(P)
}

// Enthalpy implements thermo.PropertyProvider.
//
// Liquid: hᵢ = CpLᵢ(T − Tref). Vapor: the liquid is heated to Tb, vaporized,
// and the gas heated to T, so the latent heat varies linearly with T.
// Mixing enthalpy is neglected.
func (p *Package) Enthalpy(phase thermo.Phase, x []float64, T, P float64) (float64, error) {
	if err := p.check(x, T, P); err != nil {
		return 0, err
	}
	xs := normalized(x)
	var h float64
	for i, c := range p.chemicals {
		if xs[i] == 0 {
			continue
		}
		h += xs[i] * pureEnthalpy(c, phase, T)
	}

	return h, nil
}

func pureEnthalpy(c Chemical, phase thermo.Phase, T float64) float64 {
	if phase.IsLiquid() {
		return c.CpL * (T - Tref)
	}

	return c.CpL*(c.Tb-Tref) + c.Hvap + c.CpV*(T-c.Tb)
}

// Entropy implements thermo.PropertyProvider.
//
// Same path as Enthalpy plus the ideal mixing term −RΣxᵢln xᵢ; the vapor
// carries −R ln(P/Psat(Tb)) per component.
func (p *Package) Entropy(phase thermo.Phase, x []float64, T, P float64) (float64, error) {
	if err := p.check(x, T, P); err != nil {
		return 0, err
	}
	xs := normalized(x)
	var s float64
	for i, c := range p.chemicals {
		if xs[i] <= 0 {
			continue
		}
		var si float64
		if phase.IsLiquid() {
			si = c.CpL * math.Log(T/Tref)
		} else {
			si = c.CpL*math.Log(c.Tb/Tref) + c.Hvap/c.Tb + c.CpV*math.Log(T/c.Tb) - R*math.Log(P/p.psatTb[i])
		}
		s += xs[i] * (si - R*math.Log(xs[i]))
	}

	return s, nil
}

func (p *Package) check(x []float64, T, P float64) error {
	if err := p.components.CheckLen(x); err != nil {
		return err
	}
	if !(T > 0) || !(P > 0) || math.IsInf(T, 0) || math.IsInf(P, 0) {
		return fmt.Errorf("%w: T=%g K, P=%g Pa", thermo.ErrInvalidCondition, T, P)
	}
	for i, v := range x {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("property: negative or NaN fraction %g at %d", v, i)
		}
	}

	return nil
}
