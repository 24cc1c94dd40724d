package dfs

import (
	"sort"

	"github.com/katalvlaran/lvflow/graph"
)

// tarjan holds the per-walk bookkeeping of Tarjan's algorithm.
type tarjan struct {
	w       *walker
	index   map[graph.NodeID]int
	low     map[graph.NodeID]int
	onStack map[graph.NodeID]bool
	stack   []graph.NodeID
	next    int
	comps   [][]graph.NodeID
}

// StronglyConnected returns the strongly connected components of the walk.
// Components come out in topological order of the condensation (sources
// first); members are sorted by handle.
func StronglyConnected(g *graph.Digraph, options ...Option) ([][]graph.NodeID, error) {
	w, err := newWalker(g, options)
	if err != nil {
		return nil, err
	}
	t := &tarjan{
		w:       w,
		index:   make(map[graph.NodeID]int),
		low:     make(map[graph.NodeID]int),
		onStack: make(map[graph.NodeID]bool),
	}
	for _, v := range w.nodes() {
		if _, seen := t.index[v]; !seen {
			if err = t.connect(v); err != nil {
				return nil, err
			}
		}
	}
	// Tarjan emits sinks first.
	reverse(t.comps)

	return t.comps, nil
}

func (t *tarjan) connect(v graph.NodeID) error {
	if err := t.w.cancelled(); err != nil {
		return err
	}
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	edges, err := t.w.out(v)
	if err != nil {
		return err
	}
	for _, e := range edges {
		u := e.To
		if _, seen := t.index[u]; !seen {
			if err = t.connect(u); err != nil {
				return err
			}
			t.low[v] = min(t.low[v], t.low[u])
		} else if t.onStack[u] {
			t.low[v] = min(t.low[v], t.index[u])
		}
	}

	if t.low[v] == t.index[v] {
		var comp []graph.NodeID
		for {
			n := len(t.stack) - 1
			u := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[u] = false
			comp = append(comp, u)
			if u == v {
				break
			}
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		t.comps = append(t.comps, comp)
	}

	return nil
}

// HasSelfLoop reports whether id has a kept edge to itself.
func HasSelfLoop(g *graph.Digraph, id graph.NodeID, options ...Option) (bool, error) {
	w, err := newWalker(g, options)
	if err != nil {
		return false, err
	}
	edges, err := w.out(id)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if e.To == id {
			return true, nil
		}
	}

	return false, nil
}
