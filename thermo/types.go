package thermo

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for thermodynamic state primitives.
var (
	// ErrInvalidCondition indicates a non-positive or non-finite T or P.
	ErrInvalidCondition = errors.New("thermo: temperature and pressure must be positive and finite")

	// ErrUnknownComponent indicates a lookup for an ID outside the ComponentSet.
	ErrUnknownComponent = errors.New("thermo: unknown component")

	// ErrEmptyComponentSet indicates a ComponentSet with no members.
	ErrEmptyComponentSet = errors.New("thermo: component set is empty")

	// ErrDuplicateComponent indicates the same ID passed twice to NewComponentSet.
	ErrDuplicateComponent = errors.New("thermo: duplicate component")

	// ErrDimensionMismatch indicates a vector whose length differs from the set.
	ErrDimensionMismatch = errors.New("thermo: composition length does not match component set")
)

// Phase labels a PhaseComposition.
type Phase string

const (
	Vapor        Phase = "g" // gas / vapor
	Liquid       Phase = "l" // first (or only) liquid
	SecondLiquid Phase = "L" // second liquid in a liquid-liquid split
)

// IsLiquid reports whether p is one of the liquid phases.
func (p Phase) IsLiquid() bool {
	return p == Liquid || p == SecondLiquid
}

// Valid reports whether p is a known phase label.
func (p Phase) Valid() bool {
	switch p {
	case Vapor, Liquid, SecondLiquid:
		return true
	}

	return false
}

// String returns a human readable phase name.
func (p Phase) String() string {
	switch p {
	case Vapor:
		return "vapor"
	case Liquid:
		return "liquid"
	case SecondLiquid:
		return "second-liquid"
	}

	return fmt.Sprintf("phase(%q)", string(p))
}

// ParsePhase accepts both the one-letter labels and the long names.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "g", "vapor", "gas":
		return Vapor, nil
	case "l", "liquid":
		return Liquid, nil
	case "L", "second-liquid":
		return SecondLiquid, nil
	}

	return "", fmt.Errorf("thermo: unknown phase %q", s)
}

// ThermalCondition is the (temperature, pressure) pair of a stream or solver.
// It is shared by pointer: a solver that owns a stream's indexer updates the
// stream's condition in place.
type ThermalCondition struct {
	T float64 // temperature [K]
	P float64 // pressure [Pa]
}

// NewThermalCondition returns a validated condition.
func NewThermalCondition(T, P float64) (*ThermalCondition, error) {
	c := &ThermalCondition{T: T, P: P}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate enforces T > 0 and P > 0.
func (c *ThermalCondition) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil condition", ErrInvalidCondition)
	}
	if !positiveFinite(c.T) || !positiveFinite(c.P) {
		return fmt.Errorf("%w: T=%g K, P=%g Pa", ErrInvalidCondition, c.T, c.P)
	}

	return nil
}

// Set overwrites both fields.
func (c *ThermalCondition) Set(T, P float64) {
	c.T, c.P = T, P
}

// CopyFrom copies T and P from other without sharing the pointer.
func (c *ThermalCondition) CopyFrom(other *ThermalCondition) {
	c.T, c.P = other.T, other.P
}

// Clone returns an unshared copy.
func (c *ThermalCondition) Clone() *ThermalCondition {
	out := *c

	return &out
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// ComponentSet is the fixed, ordered component list of a solver or flowsheet.
// It is immutable after construction and therefore safe to share.
type ComponentSet struct {
	ids   []string
	index map[string]int
}

// NewComponentSet builds a set from distinct, non-empty identifiers.
func NewComponentSet(ids ...string) (*ComponentSet, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyComponentSet
	}
	cs := &ComponentSet{
		ids:   make([]string, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("%w: empty identifier at position %d", ErrUnknownComponent, i)
		}
		if _, dup := cs.index[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateComponent, id)
		}
		cs.ids[i] = id
		cs.index[id] = i
	}

	return cs, nil
}

// MustComponentSet is NewComponentSet for static tables; it panics on error.
func MustComponentSet(ids ...string) *ComponentSet {
	cs, err := NewComponentSet(ids...)
	if err != nil {
		panic(err)
	}

	return cs
}

// Len returns the number of components.
func (cs *ComponentSet) Len() int { return len(cs.ids) }

// IDs returns a copy of the ordered identifiers.
func (cs *ComponentSet) IDs() []string {
	out := make([]string, len(cs.ids))
	copy(out, cs.ids)

	return out
}

// ID returns the identifier at position i.
func (cs *ComponentSet) ID(i int) string { return cs.ids[i] }

// Index returns the position of id.
func (cs *ComponentSet) Index(id string) (int, error) {
	i, ok := cs.index[id]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownComponent, id)
	}

	return i, nil
}

// Indices resolves several identifiers at once.
func (cs *ComponentSet) Indices(ids ...string) ([]int, error) {
	out := make([]int, len(ids))
	for k, id := range ids {
		i, err := cs.Index(id)
		if err != nil {
			return nil, err
		}
		out[k] = i
	}

	return out, nil
}

// Equal reports whether both sets list the same IDs in the same order.
func (cs *ComponentSet) Equal(other *ComponentSet) bool {
	if cs == other {
		return true
	}
	if cs == nil || other == nil || len(cs.ids) != len(other.ids) {
		return false
	}
	for i := range cs.ids {
		if cs.ids[i] != other.ids[i] {
			return false
		}
	}

	return true
}

// CheckLen returns ErrDimensionMismatch unless len(v) == cs.Len().
func (cs *ComponentSet) CheckLen(v []float64) error {
	if len(v) != len(cs.ids) {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), len(cs.ids))
	}

	return nil
}
