package bfs

import (
	"github.com/katalvlaran/lvflow/graph"
)

// queueItem pairs a node with its BFS depth.
type queueItem struct {
	id    graph.NodeID
	depth int
}

// walker encapsulates mutable BFS state.
type walker struct {
	g     *graph.Digraph
	opts  Options
	queue []queueItem
	res   *Result
}

// Walk runs breadth-first search on g from starts, which all sit at
// depth 0. Duplicate starts are visited once.
func Walk(g *graph.Digraph, starts []graph.NodeID, opts ...Option) (*Result, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	n := g.NodeCount()
	w := &walker{
		g:     g,
		opts:  o,
		queue: make([]queueItem, 0, n),
		res: &Result{
			Order:  make([]graph.NodeID, 0, n),
			Depth:  make(map[graph.NodeID]int, n),
			Parent: make(map[graph.NodeID]graph.EdgeID, n),
			g:      g,
			rev:    o.Reverse,
		},
	}
	for _, s := range starts {
		if _, err := g.Node(s); err != nil {
			return nil, ErrStartNodeNotFound
		}
		if !w.res.Reached(s) {
			w.res.Depth[s] = 0
			w.queue = append(w.queue, queueItem{id: s})
		}
	}
	if err := w.loop(); err != nil {
		return nil, err
	}

	return w.res, nil
}

// loop processes the queue until empty or an error occurs.
func (w *walker) loop() error {
	for head := 0; head < len(w.queue); head++ {
		if err := w.opts.Ctx.Err(); err != nil {
			return err
		}
		item := w.queue[head]
		w.res.Order = append(w.res.Order, item.id)
		if err := w.opts.OnVisit(item.id, item.depth); err != nil {
			return err
		}
		if w.opts.MaxDepth > 0 && item.depth >= w.opts.MaxDepth {
			continue
		}
		if err := w.enqueueNeighbors(item); err != nil {
			return err
		}
	}

	return nil
}

// enqueueNeighbors queues unvisited neighbors at depth+1.
func (w *walker) enqueueNeighbors(item queueItem) error {
	var (
		eids []graph.EdgeID
		err  error
	)
	if w.opts.Reverse {
		eids, err = w.g.In(item.id)
	} else {
		eids, err = w.g.Out(item.id)
	}
	if err != nil {
		return err
	}
	for _, eid := range eids {
		if _, skip := w.opts.Skip[eid]; skip {
			continue
		}
		e, err := w.g.Edge(eid)
		if err != nil {
			return err
		}
		next := e.To
		if w.opts.Reverse {
			next = e.From
		}
		if w.res.Reached(next) {
			continue
		}
		w.res.Depth[next] = item.depth + 1
		w.res.Parent[next] = eid
		w.queue = append(w.queue, queueItem{id: next, depth: item.depth + 1})
	}

	return nil
}
