package material

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/thermo"
)

// Mix overwrites dst with the sum of srcs. dst takes the lowest inlet
// pressure; temperature is left to the caller's energy balance.
func Mix(dst Indexer, srcs ...Indexer) error {
	for _, s := range srcs {
		if !dst.Components().Equal(s.Components()) {
			return ErrComponentMismatch
		}
	}
	dst.Empty()
	P := math.Inf(1)
	for _, s := range srcs {
		if err := accumulate(dst, s, 1); err != nil {
			return err
		}
		if p := s.Condition().P; s.Total() > 0 && p < P {
			P = p
		}
	}
	if !math.IsInf(P, 1) {
		dst.Condition().P = P
	}

	return nil
}

// Split sends frac[i] of component i of src to top and the rest to bottom,
// phase by phase. Both outlets take src's condition values.
func Split(src Indexer, frac []float64, top, bottom Indexer) error {
	if err := src.Components().CheckLen(frac); err != nil {
		return err
	}
	for _, f := range frac {
		if f < 0 || f > 1 || math.IsNaN(f) {
			return fmt.Errorf("material: split fraction %g outside [0, 1]", f)
		}
	}
	rest := make([]float64, len(frac))
	for i, f := range frac {
		rest[i] = 1 - f
	}
	for _, out := range []struct {
		ix Indexer
		f  []float64
	}{{top, frac}, {bottom, rest}} {
		if !out.ix.Components().Equal(src.Components()) {
			return ErrComponentMismatch
		}
		out.ix.Empty()
		if err := accumulateEach(out.ix, src, out.f); err != nil {
			return err
		}
		out.ix.Condition().CopyFrom(src.Condition())
	}

	return nil
}

// Uniform returns an n-vector filled with f.
func Uniform(n int, f float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f
	}

	return out
}

func accumulate(dst, src Indexer, a float64) error {
	return accumulateEach(dst, src, Uniform(src.Components().Len(), a))
}

// accumulateEach adds frac ⊙ src into dst, phase-wise where dst can hold phases.
func accumulateEach(dst, src Indexer, frac []float64) error {
	switch d := dst.(type) {
	case *SinglePhase:
		for i, f := range src.Overall() {
			d.flows[i] += frac[i] * f
		}

		return nil
	case *MultiPhase:
		for _, p := range src.Phases() {
			flows, err := src.Flows(p)
			if err != nil {
				return err
			}
			if err = d.AddPhase(p); err != nil {
				return err
			}
			row := d.state.Phases[d.find(p)].Flows
			for i := range row {
				row[i] += frac[i] * flows[i]
			}
		}

		return nil
	}

	// Foreign implementations: phase-wise through the interface.
	for _, p := range src.Phases() {
		add, err := src.Flows(p)
		if err != nil {
			return err
		}
		cur, err := dst.Flows(p)
		if err != nil {
			return err
		}
		for i := range cur {
			cur[i] += frac[i] * add[i]
		}
		if err = dst.SetFlows(p, cur); err != nil {
			return err
		}
	}

	return nil
}

// Enthalpy returns the stream enthalpy Σ_phase nₚ·h(phase) in kJ/h.
func Enthalpy(ix Indexer, p thermo.PropertyProvider) (float64, error) {
	return phaseSum(ix, p.Enthalpy)
}

// Entropy returns the stream entropy in kJ/(h·K).
func Entropy(ix Indexer, p thermo.PropertyProvider) (float64, error) {
	return phaseSum(ix, p.Entropy)
}

func phaseSum(ix Indexer, molar func(thermo.Phase, []float64, float64, float64) (float64, error)) (float64, error) {
	c := ix.Condition()
	var total float64
	for _, ph := range ix.Phases() {
		flows, err := ix.Flows(ph)
		if err != nil {
			return 0, err
		}
		n := Sum(flows)
		if n <= 0 {
			continue
		}
		v, err := molar(ph, flows, c.T, c.P)
		if err != nil {
			return 0, err
		}
		total += n * v
	}

	return total, nil
}
