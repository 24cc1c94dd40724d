package flowsheet

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors.
var (
	// ErrEmptyID indicates a unit or stream without an ID.
	ErrEmptyID = errors.New("flowsheet: empty id")

	// ErrDuplicateUnit indicates two units registered under one ID.
	ErrDuplicateUnit = errors.New("flowsheet: duplicate unit")

	// ErrUnknownStream indicates a stream ID that is not part of the system
	// (or, for tears, not a stream between two units).
	ErrUnknownStream = errors.New("flowsheet: unknown stream")

	// ErrStreamConflict indicates a stream wired twice as an outlet or twice
	// as an inlet, or two stream values under one ID.
	ErrStreamConflict = errors.New("flowsheet: stream wired twice")

	// ErrUnknownUnit indicates a unit ID that is not part of the system.
	ErrUnknownUnit = errors.New("flowsheet: unknown unit")

	// ErrNotBuilt is returned by accessors that need Build first.
	ErrNotBuilt = errors.New("flowsheet: system not built")
)

// Unit is a unit operation node. Simulate reads the inlet streams and
// overwrites the outlet streams; calling it again with unchanged inlets
// must leave the outlets unchanged.
type Unit interface {
	ID() string
	Inlets() []*Stream
	Outlets() []*Stream
	Simulate(ctx context.Context) error
}

// Group is one step of a system's schedule: a single unit, or a recycle
// loop with its tear streams.
type Group struct {
	// Units in execution order.
	Units []Unit

	// Levels partitions Units into dependency levels; units of one level
	// share no stream once the tears are cut.
	Levels [][]Unit

	// Tears are the loop's tear streams; empty for a plain unit.
	Tears []*Stream
}

// Recycle reports whether the group is a loop that needs converging.
func (g Group) Recycle() bool { return len(g.Tears) > 0 }

// ID joins the member unit IDs with "+".
func (g Group) ID() string {
	ids := make([]string, len(g.Units))
	for i, u := range g.Units {
		ids[i] = u.ID()
	}

	return strings.Join(ids, "+")
}

// Streams returns the distinct streams touched by the group's units, inlets
// first, in unit order.
func (g Group) Streams() []*Stream {
	seen := make(map[*Stream]struct{})
	var out []*Stream
	add := func(ss []*Stream) {
		for _, s := range ss {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	for _, u := range g.Units {
		add(u.Inlets())
	}
	for _, u := range g.Units {
		add(u.Outlets())
	}

	return out
}
