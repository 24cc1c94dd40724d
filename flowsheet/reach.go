package flowsheet

import (
	"fmt"

	"github.com/katalvlaran/lvflow/bfs"
	"github.com/katalvlaran/lvflow/graph"
)

// Downstream returns the units a change in unit id propagates to, nearest
// first. id itself is included only when it sits on a recycle loop.
func (s *System) Downstream(id string) ([]Unit, error) {
	return s.reach(id, false)
}

// Upstream returns the units whose outlets reach unit id, nearest first.
func (s *System) Upstream(id string) ([]Unit, error) {
	return s.reach(id, true)
}

// Path returns the streams along a shortest unit-to-unit route.
func (s *System) Path(from, to string) ([]string, error) {
	start, err := s.node(from)
	if err != nil {
		return nil, err
	}
	dest, err := s.node(to)
	if err != nil {
		return nil, err
	}
	res, err := bfs.Walk(s.g, []graph.NodeID{start})
	if err != nil {
		return nil, err
	}
	eids, err := res.PathTo(dest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s to %s", err, from, to)
	}
	out := make([]string, len(eids))
	for i, eid := range eids {
		e, _ := s.g.Edge(eid)
		out[i] = e.Key
	}

	return out, nil
}

func (s *System) node(id string) (graph.NodeID, error) {
	if !s.built {
		return 0, ErrNotBuilt
	}
	n, err := s.g.NodeByKey(id)
	if err != nil {
		return 0, fmt.Errorf("%w: unit %q", ErrUnknownUnit, id)
	}

	return n, nil
}

func (s *System) reach(id string, rev bool) ([]Unit, error) {
	start, err := s.node(id)
	if err != nil {
		return nil, err
	}

	// The start is re-reached only through a loop; walk from its neighbors.
	var (
		eids []graph.EdgeID
		next []graph.NodeID
		opts []bfs.Option
	)
	if rev {
		opts = append(opts, bfs.WithReverse())
		eids, err = s.g.In(start)
	} else {
		eids, err = s.g.Out(start)
	}
	if err != nil {
		return nil, err
	}
	for _, eid := range eids {
		e, _ := s.g.Edge(eid)
		if rev {
			next = append(next, e.From)
		} else {
			next = append(next, e.To)
		}
	}
	res, err := bfs.Walk(s.g, next, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]Unit, 0, len(res.Order))
	for _, v := range res.Order {
		n, _ := s.g.Node(v)
		out = append(out, s.byID[n.Key])
	}

	return out, nil
}
