package flowsheet

import (
	"fmt"

	"github.com/katalvlaran/lvflow/material"
	"github.com/katalvlaran/lvflow/thermo"
)

// Standard conditions used for empty streams.
const (
	StandardT = 298.15
	StandardP = 101325.0
)

// Stream is a named material stream.
type Stream struct {
	id string
	ix material.Indexer
}

// NewStream wraps ix under id.
func NewStream(id string, ix material.Indexer) (*Stream, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if ix == nil {
		return nil, fmt.Errorf("flowsheet: stream %q has no indexer", id)
	}

	return &Stream{id: id, ix: ix}, nil
}

// NewFeed builds a single-phase stream at (T, P).
func NewFeed(id string, cs *thermo.ComponentSet, phase thermo.Phase, T, P float64, flows []float64) (*Stream, error) {
	cond, err := thermo.NewThermalCondition(T, P)
	if err != nil {
		return nil, err
	}
	ix, err := material.NewSinglePhase(cs, cond, phase, flows)
	if err != nil {
		return nil, err
	}

	return NewStream(id, ix)
}

// NewEmpty builds an empty liquid stream at standard conditions; units
// overwrite it on their first Simulate.
func NewEmpty(id string, cs *thermo.ComponentSet) (*Stream, error) {
	return NewFeed(id, cs, thermo.Liquid, StandardT, StandardP, nil)
}

// ID returns the stream identity.
func (s *Stream) ID() string { return s.id }

// Indexer returns the current material indexer.
func (s *Stream) Indexer() material.Indexer { return s.ix }

// Components returns the stream's component set.
func (s *Stream) Components() *thermo.ComponentSet { return s.ix.Components() }

// Condition returns the live thermal condition.
func (s *Stream) Condition() *thermo.ThermalCondition { return s.ix.Condition() }

// Multi reports whether the stream currently holds a multi-phase indexer.
func (s *Stream) Multi() bool {
	_, ok := s.ix.(*material.MultiPhase)
	return ok
}

// SetIndexer swaps the indexer; the component set must not change.
func (s *Stream) SetIndexer(ix material.Indexer) error {
	if ix == nil {
		return fmt.Errorf("flowsheet: stream %q: nil indexer", s.id)
	}
	if !ix.Components().Equal(s.ix.Components()) {
		return fmt.Errorf("stream %q: %w", s.id, material.ErrComponentMismatch)
	}
	s.ix = ix

	return nil
}

// EnablePhases swaps a single-phase indexer for a multi-phase one holding
// the same flows under the same condition pointer. A stream that is already
// multi-phase is returned as is.
func (s *Stream) EnablePhases() (*material.MultiPhase, error) {
	if m, ok := s.ix.(*material.MultiPhase); ok {
		return m, nil
	}
	m, err := material.NewMultiPhase(s.ix.Components(), s.ix.Condition())
	if err != nil {
		return nil, err
	}
	if err = m.CopyFrom(s.ix); err != nil {
		return nil, err
	}
	s.ix = m

	return m, nil
}

// DisablePhases collapses the stream into a single phase holding the
// overall flows.
func (s *Stream) DisablePhases(phase thermo.Phase) error {
	if sp, ok := s.ix.(*material.SinglePhase); ok {
		return sp.SetPhase(phase)
	}
	sp, err := material.NewSinglePhase(s.ix.Components(), s.ix.Condition(), phase, s.ix.Overall())
	if err != nil {
		return err
	}
	s.ix = sp

	return nil
}

// Receive overwrites the stream with src, keeping the stream's own indexer
// kind when it can hold src's phases and switching to multi-phase otherwise.
func (s *Stream) Receive(src material.Indexer) error {
	if sp, ok := s.ix.(*material.SinglePhase); ok {
		phases := src.Phases()
		if len(phases) == 1 || nonZeroPhases(src) <= 1 {
			if p := dominantPhase(src); p != "" {
				if err := sp.SetPhase(p); err != nil {
					return err
				}
			}

			return sp.CopyFrom(src)
		}
		if _, err := s.EnablePhases(); err != nil {
			return err
		}
	}

	return s.ix.CopyFrom(src)
}

// String renders "id: F kmol/h at T K, P Pa".
func (s *Stream) String() string {
	c := s.ix.Condition()
	return fmt.Sprintf("%s: %.6g kmol/h at %.2f K, %.0f Pa", s.id, s.ix.Total(), c.T, c.P)
}

func nonZeroPhases(ix material.Indexer) int {
	n := 0
	for _, p := range ix.Phases() {
		if f, err := ix.Flows(p); err == nil && material.Sum(f) > 0 {
			n++
		}
	}

	return n
}

// dominantPhase is the only phase carrying flow; "" for an empty indexer.
func dominantPhase(ix material.Indexer) thermo.Phase {
	for _, p := range ix.Phases() {
		if f, err := ix.Flows(p); err == nil && material.Sum(f) > 0 {
			return p
		}
	}

	return ""
}
