package flowsheet

import (
	"context"
	"fmt"
	"sort"

	"github.com/katalvlaran/lvflow/dfs"
	"github.com/katalvlaran/lvflow/graph"
)

// System is a set of connected unit operations.
type System struct {
	id    string
	units []Unit
	byID  map[string]Unit
	tears []string

	// filled by Build
	g       *graph.Digraph
	streams map[string]*Stream
	source  map[string]string
	sink    map[string]string
	groups  []Group
	built   bool
}

// NewSystem returns an empty system.
func NewSystem(id string) *System {
	return &System{id: id, byID: make(map[string]Unit)}
}

// ID returns the system name.
func (s *System) ID() string { return s.id }

// AddUnit registers u. Units keep their registration order, which breaks
// ties in every ordering Build produces.
func (s *System) AddUnit(u Unit) error {
	if u == nil || u.ID() == "" {
		return ErrEmptyID
	}
	if _, dup := s.byID[u.ID()]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateUnit, u.ID())
	}
	s.units = append(s.units, u)
	s.byID[u.ID()] = u
	s.built = false

	return nil
}

// SetTear registers stream IDs as tear streams. Unknown IDs are reported by
// Build.
func (s *System) SetTear(ids ...string) {
	for _, id := range ids {
		if !contains(s.tears, id) {
			s.tears = append(s.tears, id)
		}
	}
	s.built = false
}

// Units returns the units in registration order.
func (s *System) Units() []Unit { return append([]Unit(nil), s.units...) }

// Unit looks a unit up by ID.
func (s *System) Unit(id string) (Unit, bool) {
	u, ok := s.byID[id]
	return u, ok
}

// Graph returns the arena graph of the last Build, nil before.
func (s *System) Graph() *graph.Digraph { return s.g }

// Stream looks a stream up by ID after Build.
func (s *System) Stream(id string) (*Stream, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}
	st, ok := s.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStream, id)
	}

	return st, nil
}

// Streams returns every stream of the system sorted by ID.
func (s *System) Streams() []*Stream {
	out := make([]*Stream, 0, len(s.streams))
	for _, st := range s.streams {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })

	return out
}

// Feeds returns the streams no unit produces, sorted by ID.
func (s *System) Feeds() []*Stream {
	return s.filter(func(id string) bool { _, ok := s.source[id]; return !ok })
}

// Products returns the streams no unit consumes, sorted by ID.
func (s *System) Products() []*Stream {
	return s.filter(func(id string) bool { _, ok := s.sink[id]; return !ok })
}

func (s *System) filter(keep func(string) bool) []*Stream {
	var out []*Stream
	for _, st := range s.Streams() {
		if keep(st.ID()) {
			out = append(out, st)
		}
	}

	return out
}

// Groups returns the schedule of the last Build.
func (s *System) Groups() ([]Group, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}

	return s.groups, nil
}

// Build wires the units into an arena graph and returns the schedule:
// groups in dependency order, each a single unit or a recycle loop.
//
// Steps:
//  1. Index streams by producer and consumer.
//  2. One node per unit, one edge per stream joining two units.
//  3. Resolve registered tears to edges.
//  4. Condense strongly connected components (Tarjan, sources first).
//  5. Per loop: tears, in-loop order and levels with the tears cut.
func (s *System) Build(ctx context.Context) ([]Group, error) {
	// 1. Producers and consumers.
	s.built = false
	s.streams = make(map[string]*Stream)
	s.source = make(map[string]string)
	s.sink = make(map[string]string)
	for _, u := range s.units {
		if err := s.index(u.ID(), u.Outlets(), s.source, "outlet"); err != nil {
			return nil, err
		}
		if err := s.index(u.ID(), u.Inlets(), s.sink, "inlet"); err != nil {
			return nil, err
		}
	}

	// 2. Arena graph; edges follow unit then outlet order.
	g := graph.New(graph.WithMultiEdges(), graph.WithLoops())
	nodes := make(map[string]graph.NodeID, len(s.units))
	for _, u := range s.units {
		id, err := g.AddNode(u.ID())
		if err != nil {
			return nil, err
		}
		nodes[u.ID()] = id
	}
	edgeOf := make(map[string]graph.EdgeID)
	for _, u := range s.units {
		for _, st := range u.Outlets() {
			to, ok := s.sink[st.ID()]
			if !ok {
				continue
			}
			eid, err := g.AddEdge(nodes[u.ID()], nodes[to], st.ID())
			if err != nil {
				return nil, err
			}
			edgeOf[st.ID()] = eid
		}
	}

	// 3. Registered tears must be internal streams.
	registered := make(map[graph.EdgeID]bool, len(s.tears))
	for _, id := range s.tears {
		eid, ok := edgeOf[id]
		if !ok {
			return nil, fmt.Errorf("%w: tear %q does not join two units", ErrUnknownStream, id)
		}
		registered[eid] = true
	}

	// 4. Recycle loops.
	comps, err := dfs.StronglyConnected(g, dfs.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	// 5. Schedule.
	groups := make([]Group, 0, len(comps))
	for _, comp := range comps {
		grp, err := s.group(ctx, g, comp, registered)
		if err != nil {
			return nil, err
		}
		groups = append(groups, grp)
	}
	s.g, s.groups, s.built = g, groups, true

	return groups, nil
}

// index records which unit holds each stream on one side.
func (s *System) index(unit string, ss []*Stream, side map[string]string, what string) error {
	for _, st := range ss {
		if st == nil || st.ID() == "" {
			return fmt.Errorf("%w: %s of unit %q", ErrEmptyID, what, unit)
		}
		if prev, ok := s.streams[st.ID()]; ok && prev != st {
			return fmt.Errorf("%w: two streams named %q", ErrStreamConflict, st.ID())
		}
		if other, ok := side[st.ID()]; ok {
			return fmt.Errorf("%w: %q is an %s of %q and %q", ErrStreamConflict, st.ID(), what, other, unit)
		}
		s.streams[st.ID()] = st
		side[st.ID()] = unit
	}

	return nil
}

func (s *System) group(ctx context.Context, g *graph.Digraph, comp []graph.NodeID, registered map[graph.EdgeID]bool) (Group, error) {
	unitAt := func(id graph.NodeID) Unit {
		n, _ := g.Node(id)
		return s.byID[n.Key]
	}
	if len(comp) == 1 {
		loop, err := dfs.HasSelfLoop(g, comp[0])
		if err != nil {
			return Group{}, err
		}
		if !loop {
			u := unitAt(comp[0])
			return Group{Units: []Unit{u}, Levels: [][]Unit{{u}}}, nil
		}
	}

	// Registered tears inside the loop, then back edges from the entry.
	member := make(map[graph.NodeID]bool, len(comp))
	for _, v := range comp {
		member[v] = true
	}
	var tears []graph.EdgeID
	entry := comp[0]
	entryFound := false
	for _, v := range comp {
		out, err := g.Out(v)
		if err != nil {
			return Group{}, err
		}
		for _, eid := range out {
			e, _ := g.Edge(eid)
			if member[e.To] && registered[eid] {
				tears = append(tears, eid)
			}
		}
		if entryFound {
			continue
		}
		in, err := g.In(v)
		if err != nil {
			return Group{}, err
		}
		for _, eid := range in {
			if e, _ := g.Edge(eid); !member[e.From] {
				entry, entryFound = v, true
				break
			}
		}
	}
	scope := []dfs.Option{dfs.WithContext(ctx), dfs.WithNodes(comp...), dfs.WithRoots(entry)}
	back, err := dfs.BackEdges(g, append(scope, dfs.WithSkipEdges(tears...))...)
	if err != nil {
		return Group{}, err
	}
	tears = append(tears, back...)
	sort.Slice(tears, func(i, j int) bool { return tears[i] < tears[j] })
	cut := append(scope, dfs.WithSkipEdges(tears...))

	// In-loop order and levels.
	levels, err := dfs.Levels(g, cut...)
	if err != nil {
		return Group{}, err
	}
	order, err := dfs.TopologicalSort(g, cut...)
	if err != nil {
		return Group{}, err
	}
	grp := Group{Units: make([]Unit, len(order)), Levels: make([][]Unit, len(levels))}
	for i, v := range order {
		grp.Units[i] = unitAt(v)
	}
	for i, lvl := range levels {
		for _, v := range lvl {
			grp.Levels[i] = append(grp.Levels[i], unitAt(v))
		}
	}
	for _, eid := range tears {
		e, _ := g.Edge(eid)
		grp.Tears = append(grp.Tears, s.streams[e.Key])
	}

	return grp, nil
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}

	return false
}
