package material

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvflow/thermo"
)

// Sentinel errors for indexer operations.
var (
	// ErrNegativeFlow indicates a negative, NaN or infinite molar flow.
	ErrNegativeFlow = errors.New("material: flows must be non-negative and finite")

	// ErrDimensionMismatch aliases thermo's sentinel so errors.Is works across packages.
	ErrDimensionMismatch = thermo.ErrDimensionMismatch

	// ErrPhaseNotFound indicates a phase the indexer does not hold.
	ErrPhaseNotFound = errors.New("material: phase not found")

	// ErrComponentMismatch indicates indexers over different component sets.
	ErrComponentMismatch = errors.New("material: component sets differ")

	// ErrEmpty indicates a zero total where fractions are required.
	ErrEmpty = errors.New("material: zero total flow")
)

// PhaseComposition is a flow vector tagged with its phase.
type PhaseComposition struct {
	Phase thermo.Phase
	Flows []float64
}

// Total returns the phase's total molar flow.
func (pc PhaseComposition) Total() float64 { return Sum(pc.Flows) }

// MultiPhaseState is a set of phase compositions sharing one condition.
// Values returned by Indexer.State are detached snapshots.
type MultiPhaseState struct {
	Condition *thermo.ThermalCondition
	Phases    []PhaseComposition
}

// Overall sums flows across phases.
func (s MultiPhaseState) Overall() []float64 {
	if len(s.Phases) == 0 {
		return nil
	}
	out := make([]float64, len(s.Phases[0].Flows))
	for _, pc := range s.Phases {
		for i, f := range pc.Flows {
			out[i] += f
		}
	}

	return out
}

// Indexer is the read/aggregate and per-phase write contract over one
// stream's material state.
type Indexer interface {
	// Components returns the component set every vector is aligned with.
	Components() *thermo.ComponentSet

	// Condition returns the live, shared thermal condition.
	Condition() *thermo.ThermalCondition

	// ShareCondition replaces the condition pointer (used to bind solvers).
	ShareCondition(c *thermo.ThermalCondition)

	// Phases lists the phases held, in a stable order.
	Phases() []thermo.Phase

	// Flows returns a copy of the flows of phase.
	Flows(phase thermo.Phase) ([]float64, error)

	// SetFlows overwrites the flows of phase.
	SetFlows(phase thermo.Phase, flows []float64) error

	// Overall returns the component flows summed over phases.
	Overall() []float64

	// Total returns Σ Overall().
	Total() float64

	// Fractions returns overall mole fractions; ErrEmpty at zero flow.
	Fractions() ([]float64, error)

	// Empty zeroes every flow; the condition is untouched.
	Empty()

	// Copy returns a deep copy with an unshared condition.
	Copy() Indexer

	// CopyFrom replaces flows and condition values with those of src.
	CopyFrom(src Indexer) error

	// State returns a detached snapshot.
	State() MultiPhaseState
}

// SinglePhase holds one phase; the usual indexer of a process stream.
type SinglePhase struct {
	cs    *thermo.ComponentSet
	cond  *thermo.ThermalCondition
	phase thermo.Phase
	flows []float64
}

var (
	_ Indexer = (*SinglePhase)(nil)
	_ Indexer = (*MultiPhase)(nil)
)

// NewSinglePhase returns an indexer in phase with the given flows
// (nil flows means all zero).
func NewSinglePhase(cs *thermo.ComponentSet, cond *thermo.ThermalCondition, phase thermo.Phase, flows []float64) (*SinglePhase, error) {
	if cs == nil {
		return nil, thermo.ErrEmptyComponentSet
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrPhaseNotFound, phase)
	}
	sp := &SinglePhase{cs: cs, cond: cond, phase: phase, flows: make([]float64, cs.Len())}
	if flows != nil {
		if err := sp.SetFlows(phase, flows); err != nil {
			return nil, err
		}
	}

	return sp, nil
}

// Phase returns the held phase.
func (s *SinglePhase) Phase() thermo.Phase { return s.phase }

// SetPhase relabels the flows (e.g. a heater turning liquid to vapor).
func (s *SinglePhase) SetPhase(p thermo.Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrPhaseNotFound, p)
	}
	s.phase = p

	return nil
}

func (s *SinglePhase) Components() *thermo.ComponentSet          { return s.cs }
func (s *SinglePhase) Condition() *thermo.ThermalCondition       { return s.cond }
func (s *SinglePhase) ShareCondition(c *thermo.ThermalCondition) { s.cond = c }
func (s *SinglePhase) Phases() []thermo.Phase                    { return []thermo.Phase{s.phase} }
func (s *SinglePhase) Overall() []float64                        { return Clone(s.flows) }
func (s *SinglePhase) Total() float64                            { return Sum(s.flows) }
func (s *SinglePhase) Fractions() ([]float64, error)             { return Normalize(s.flows) }

func (s *SinglePhase) Flows(phase thermo.Phase) ([]float64, error) {
	if phase != s.phase {
		return nil, fmt.Errorf("%w: %s (stream is %s)", ErrPhaseNotFound, phase, s.phase)
	}

	return Clone(s.flows), nil
}

func (s *SinglePhase) SetFlows(phase thermo.Phase, flows []float64) error {
	if phase != s.phase {
		return fmt.Errorf("%w: %s (stream is %s)", ErrPhaseNotFound, phase, s.phase)
	}
	if err := s.cs.CheckLen(flows); err != nil {
		return err
	}
	if err := checkFlows(flows); err != nil {
		return err
	}
	copy(s.flows, flows)

	return nil
}

func (s *SinglePhase) Empty() {
	for i := range s.flows {
		s.flows[i] = 0
	}
}

func (s *SinglePhase) Copy() Indexer {
	return &SinglePhase{cs: s.cs, cond: s.cond.Clone(), phase: s.phase, flows: Clone(s.flows)}
}

// CopyFrom takes src's overall flows; a single-phase src also sets the phase.
func (s *SinglePhase) CopyFrom(src Indexer) error {
	if !s.cs.Equal(src.Components()) {
		return ErrComponentMismatch
	}
	if sp, ok := src.(*SinglePhase); ok {
		s.phase = sp.phase
	}
	copy(s.flows, src.Overall())
	s.cond.CopyFrom(src.Condition())

	return nil
}

func (s *SinglePhase) State() MultiPhaseState {
	return MultiPhaseState{
		Condition: s.cond.Clone(),
		Phases:    []PhaseComposition{{Phase: s.phase, Flows: Clone(s.flows)}},
	}
}

// MultiPhase holds a MultiPhaseState; equilibrium solvers write into it.
type MultiPhase struct {
	cs    *thermo.ComponentSet
	state MultiPhaseState
}

// DefaultPhases is the phase list of a vapor-liquid indexer.
var DefaultPhases = []thermo.Phase{thermo.Liquid, thermo.Vapor}

// NewMultiPhase returns an all-zero indexer over phases (DefaultPhases when empty).
func NewMultiPhase(cs *thermo.ComponentSet, cond *thermo.ThermalCondition, phases ...thermo.Phase) (*MultiPhase, error) {
	if cs == nil {
		return nil, thermo.ErrEmptyComponentSet
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		phases = DefaultPhases
	}
	m := &MultiPhase{cs: cs, state: MultiPhaseState{Condition: cond}}
	for _, p := range phases {
		if err := m.AddPhase(p); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// AddPhase appends an empty composition for p; a present phase is a no-op.
func (m *MultiPhase) AddPhase(p thermo.Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %s", ErrPhaseNotFound, p)
	}
	if m.find(p) >= 0 {
		return nil
	}
	m.state.Phases = append(m.state.Phases, PhaseComposition{Phase: p, Flows: make([]float64, m.cs.Len())})

	return nil
}

// HasPhase reports whether p is held.
func (m *MultiPhase) HasPhase(p thermo.Phase) bool { return m.find(p) >= 0 }

func (m *MultiPhase) find(p thermo.Phase) int {
	for i, pc := range m.state.Phases {
		if pc.Phase == p {
			return i
		}
	}

	return -1
}

// PhaseTotal returns the total flow of p (0 when absent).
func (m *MultiPhase) PhaseTotal(p thermo.Phase) float64 {
	if i := m.find(p); i >= 0 {
		return Sum(m.state.Phases[i].Flows)
	}

	return 0
}

// PhaseFraction returns PhaseTotal(p)/Total(), 0 for an empty indexer.
func (m *MultiPhase) PhaseFraction(p thermo.Phase) float64 {
	t := m.Total()
	if t <= 0 {
		return 0
	}

	return m.PhaseTotal(p) / t
}

func (m *MultiPhase) Components() *thermo.ComponentSet          { return m.cs }
func (m *MultiPhase) Condition() *thermo.ThermalCondition       { return m.state.Condition }
func (m *MultiPhase) ShareCondition(c *thermo.ThermalCondition) { m.state.Condition = c }
func (m *MultiPhase) Overall() []float64                        { return m.state.Overall() }
func (m *MultiPhase) Total() float64                            { return Sum(m.state.Overall()) }
func (m *MultiPhase) Fractions() ([]float64, error)             { return Normalize(m.state.Overall()) }

func (m *MultiPhase) Phases() []thermo.Phase {
	out := make([]thermo.Phase, len(m.state.Phases))
	for i, pc := range m.state.Phases {
		out[i] = pc.Phase
	}

	return out
}

func (m *MultiPhase) Flows(phase thermo.Phase) ([]float64, error) {
	i := m.find(phase)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPhaseNotFound, phase)
	}

	return Clone(m.state.Phases[i].Flows), nil
}

func (m *MultiPhase) SetFlows(phase thermo.Phase, flows []float64) error {
	i := m.find(phase)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrPhaseNotFound, phase)
	}
	if err := m.cs.CheckLen(flows); err != nil {
		return err
	}
	if err := checkFlows(flows); err != nil {
		return err
	}
	copy(m.state.Phases[i].Flows, flows)

	return nil
}

func (m *MultiPhase) Empty() {
	for _, pc := range m.state.Phases {
		for i := range pc.Flows {
			pc.Flows[i] = 0
		}
	}
}

func (m *MultiPhase) Copy() Indexer {
	return &MultiPhase{cs: m.cs, state: m.State()}
}

// CopyFrom mirrors src phase by phase, adding phases m lacks.
func (m *MultiPhase) CopyFrom(src Indexer) error {
	if !m.cs.Equal(src.Components()) {
		return ErrComponentMismatch
	}
	m.Empty()
	if err := accumulate(m, src, 1); err != nil {
		return err
	}
	m.state.Condition.CopyFrom(src.Condition())

	return nil
}

func (m *MultiPhase) State() MultiPhaseState {
	out := MultiPhaseState{
		Condition: m.state.Condition.Clone(),
		Phases:    make([]PhaseComposition, len(m.state.Phases)),
	}
	for i, pc := range m.state.Phases {
		out.Phases[i] = PhaseComposition{Phase: pc.Phase, Flows: Clone(pc.Flows)}
	}

	return out
}

// addPhaseFlows adds a·flows into phase p of m, creating p if needed.
func (m *MultiPhase) addPhaseFlows(p thermo.Phase, flows []float64, a float64) error {
	if err := m.AddPhase(p); err != nil {
		return err
	}
	dst := m.state.Phases[m.find(p)].Flows
	for i := range dst {
		dst[i] += a * flows[i]
	}

	return nil
}
