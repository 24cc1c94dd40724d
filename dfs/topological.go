package dfs

import (
	"fmt"

	"github.com/katalvlaran/lvflow/graph"
)

// topoSorter encapsulates state for a topological sort traversal.
type topoSorter struct {
	w     *walker
	state map[graph.NodeID]int // White/Gray/Black
	order []graph.NodeID       // post-order
}

// TopologicalSort orders the walk's nodes so that for every kept edge u→v,
// u comes before v. A cycle yields ErrCycleDetected naming the closing edge.
func TopologicalSort(g *graph.Digraph, options ...Option) ([]graph.NodeID, error) {
	// 1. Validate and apply options.
	w, err := newWalker(g, options)
	if err != nil {
		return nil, err
	}
	nodes := w.nodes()
	sorter := &topoSorter{
		w:     w,
		state: make(map[graph.NodeID]int, len(nodes)),
		order: make([]graph.NodeID, 0, len(nodes)),
	}

	// 2. Drive DFS from every unvisited node.
	for _, v := range nodes {
		if sorter.state[v] == White {
			if err = sorter.visit(v); err != nil {
				return nil, err
			}
		}
	}

	// 3. Reverse post-order.
	reverse(sorter.order)

	return sorter.order, nil
}

func (t *topoSorter) visit(id graph.NodeID) error {
	if err := t.w.cancelled(); err != nil {
		return err
	}
	t.state[id] = Gray
	edges, err := t.w.out(id)
	if err != nil {
		return err
	}
	for _, e := range edges {
		switch t.state[e.To] {
		case Gray:
			return fmt.Errorf("%w: edge %q closes a loop", ErrCycleDetected, e.Key)
		case White:
			if err = t.visit(e.To); err != nil {
				return err
			}
		}
	}
	t.state[id] = Black
	t.order = append(t.order, id)

	return nil
}

// BackEdges returns the edges that point to a Gray node during a DFS from
// the walk's roots, in discovery order. Skipping them makes the walk acyclic.
func BackEdges(g *graph.Digraph, options ...Option) ([]graph.EdgeID, error) {
	w, err := newWalker(g, options)
	if err != nil {
		return nil, err
	}
	state := make(map[graph.NodeID]int)
	var back []graph.EdgeID
	var visit func(graph.NodeID) error
	visit = func(id graph.NodeID) error {
		if err := w.cancelled(); err != nil {
			return err
		}
		state[id] = Gray
		edges, err := w.out(id)
		if err != nil {
			return err
		}
		for _, e := range edges {
			switch state[e.To] {
			case Gray:
				back = append(back, e.ID)
			case White:
				if err = visit(e.To); err != nil {
					return err
				}
			}
		}
		state[id] = Black

		return nil
	}
	for _, v := range w.nodes() {
		if state[v] == White {
			if err = visit(v); err != nil {
				return nil, err
			}
		}
	}

	return back, nil
}

// Levels partitions an acyclic walk into dependency levels: level 0 has no
// kept predecessors, and every node sits one level after its deepest
// predecessor. Nodes of one level are independent of each other.
func Levels(g *graph.Digraph, options ...Option) ([][]graph.NodeID, error) {
	order, err := TopologicalSort(g, options...)
	if err != nil {
		return nil, err
	}
	w, _ := newWalker(g, options)
	depth := make(map[graph.NodeID]int, len(order))
	maxDepth := -1
	for _, v := range order {
		d := depth[v]
		if d > maxDepth {
			maxDepth = d
		}
		edges, err := w.out(v)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if e.To != v && depth[e.To] < d+1 {
				depth[e.To] = d + 1
			}
		}
	}
	levels := make([][]graph.NodeID, maxDepth+1)
	for _, v := range order {
		levels[depth[v]] = append(levels[depth[v]], v)
	}

	return levels, nil
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
