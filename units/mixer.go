package units

import (
	"context"
	"log/slog"

	"github.com/katalvlaran/lvflow/equilibrium"
	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/thermo"
)

// Mixer sums its inlets into one outlet at the lowest inlet pressure.
// The outlet temperature closes the energy balance; a rigorous Mixer
// also re-flashes the mixture at (H,P), so the outlet may turn two-phase.
type Mixer struct {
	unit
	vle *equilibrium.VLE
}

// NewMixer builds a mixer. Mixers default to the phase-preserving balance;
// pass WithRigorous(true) for a vapor-liquid flash of the outlet.
func NewMixer(id string, p thermo.PropertyProvider, ins []*flowsheet.Stream, out *flowsheet.Stream, opts ...Option) (*Mixer, error) {
	if err := requireProvider(id, p); err != nil {
		return nil, err
	}
	u, err := newUnit(id, p, ins, []*flowsheet.Stream{out}, append([]Option{WithRigorous(false)}, opts...))
	if err != nil {
		return nil, err
	}
	m := &Mixer{unit: u}
	if u.o.Rigorous {
		if m.vle, err = equilibrium.NewVLE(p, u.ms, u.o.solverOpts()...); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Simulate implements flowsheet.Unit.
func (m *Mixer) Simulate(ctx context.Context) error {
	H, F, err := m.mixInlets(ctx)
	if err != nil {
		return err
	}
	if F <= 0 {
		m.emptyOutlets()
		return nil
	}
	if m.vle != nil {
		c := m.ms.Condition()
		if _, err = m.vle.Solve(ctx, equilibrium.AtHP(H/F, c.P)); err != nil {
			return err
		}
	}
	m.o.Logger.Debug("mixer", slog.String("unit", m.id), slog.Float64("T", m.ms.Condition().T), slog.Float64("F", F))

	return m.outs[0].Receive(m.ms)
}
