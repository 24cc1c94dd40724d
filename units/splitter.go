package units

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/lvflow/flowsheet"
	"github.com/katalvlaran/lvflow/material"
)

// Splitter divides one inlet between two outlets at the inlet condition.
type Splitter struct {
	unit
	split []float64
}

// NewSplitter sends split of the inlet to top and the rest to bottom. A
// single value applies to every component; otherwise split is per component.
func NewSplitter(id string, in, top, bottom *flowsheet.Stream, split ...float64) (*Splitter, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: %s: nil inlet", ErrInvalidUnit, id)
	}
	n := in.Components().Len()
	switch len(split) {
	case 1:
		split = material.Uniform(n, split[0])
	case n:
		split = material.Clone(split)
	default:
		return nil, fmt.Errorf("%w: %s: %d split fractions for %d components", ErrInvalidUnit, id, len(split), n)
	}
	for _, f := range split {
		if f < 0 || f > 1 || math.IsNaN(f) {
			return nil, fmt.Errorf("%w: %s: split fraction %g outside [0, 1]", ErrInvalidUnit, id, f)
		}
	}
	u, err := newUnit(id, nil, []*flowsheet.Stream{in}, []*flowsheet.Stream{top, bottom}, nil)
	if err != nil {
		return nil, err
	}

	return &Splitter{unit: u, split: split}, nil
}

// Split returns a copy of the per-component fractions sent to the top outlet.
func (s *Splitter) Split() []float64 { return material.Clone(s.split) }

// Simulate implements flowsheet.Unit.
func (s *Splitter) Simulate(context.Context) error {
	src := s.ins[0].Indexer()
	top, bottom := src.Copy(), src.Copy()
	if err := material.Split(src, s.split, top, bottom); err != nil {
		return err
	}
	if err := s.outs[0].Receive(top); err != nil {
		return err
	}

	return s.outs[1].Receive(bottom)
}
