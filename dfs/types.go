package dfs

import (
	"context"
	"errors"

	"github.com/katalvlaran/lvflow/graph"
)

// Visitation states of a node.
const (
	White = iota // White: the node has not been visited yet.
	Gray         // Gray: the node is on the recursion stack.
	Black        // Black: the node and all its descendants are done.
)

var (
	// ErrGraphNil is returned when a nil *graph.Digraph is passed.
	ErrGraphNil = errors.New("dfs: graph is nil")

	// ErrCycleDetected indicates a cycle in an operation that requires a DAG.
	ErrCycleDetected = errors.New("dfs: cycle detected")
)

// Option configures a walk.
type Option func(*Options)

// Options restricts and controls a walk.
type Options struct {
	// Ctx allows cancellation; defaults to context.Background().
	Ctx context.Context

	// Nodes, if non-nil, limits the walk to these nodes; edges leaving the
	// set are ignored.
	Nodes map[graph.NodeID]struct{}

	// Skip lists edges treated as absent.
	Skip map[graph.EdgeID]struct{}

	// Roots, if set, are visited first and in this order.
	Roots []graph.NodeID
}

// DefaultOptions returns an unrestricted walk with a Background context.
func DefaultOptions() Options {
	return Options{Ctx: context.Background()}
}

// WithContext sets the cancellation context. A nil context has no effect.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithNodes restricts the walk to ids.
func WithNodes(ids ...graph.NodeID) Option {
	return func(o *Options) {
		o.Nodes = make(map[graph.NodeID]struct{}, len(ids))
		for _, id := range ids {
			o.Nodes[id] = struct{}{}
		}
	}
}

// WithSkipEdges treats ids as removed.
func WithSkipEdges(ids ...graph.EdgeID) Option {
	return func(o *Options) {
		if o.Skip == nil {
			o.Skip = make(map[graph.EdgeID]struct{}, len(ids))
		}
		for _, id := range ids {
			o.Skip[id] = struct{}{}
		}
	}
}

// WithRoots visits ids first, in order.
func WithRoots(ids ...graph.NodeID) Option {
	return func(o *Options) { o.Roots = append([]graph.NodeID(nil), ids...) }
}

// walker is the restricted adjacency shared by every algorithm.
type walker struct {
	g    *graph.Digraph
	opts Options
}

func newWalker(g *graph.Digraph, options []Option) (*walker, error) {
	if g == nil {
		return nil, ErrGraphNil
	}
	o := DefaultOptions()
	for _, opt := range options {
		opt(&o)
	}

	return &walker{g: g, opts: o}, nil
}

// nodes returns the walk's node set: roots first, then the rest in handle order.
func (w *walker) nodes() []graph.NodeID {
	all := w.g.Nodes()
	out := make([]graph.NodeID, 0, len(all))
	seen := make(map[graph.NodeID]struct{}, len(all))
	for _, r := range w.opts.Roots {
		if w.in(r) {
			if _, dup := seen[r]; !dup {
				seen[r] = struct{}{}
				out = append(out, r)
			}
		}
	}
	for _, n := range all {
		if _, dup := seen[n.ID]; dup || !w.in(n.ID) {
			continue
		}
		out = append(out, n.ID)
	}

	return out
}

func (w *walker) in(id graph.NodeID) bool {
	if w.opts.Nodes == nil {
		return true
	}
	_, ok := w.opts.Nodes[id]

	return ok
}

// out returns the kept outgoing edges of id.
func (w *walker) out(id graph.NodeID) ([]graph.Edge, error) {
	eids, err := w.g.Out(id)
	if err != nil {
		return nil, err
	}
	res := make([]graph.Edge, 0, len(eids))
	for _, eid := range eids {
		if _, skip := w.opts.Skip[eid]; skip {
			continue
		}
		e, err := w.g.Edge(eid)
		if err != nil {
			return nil, err
		}
		if !w.in(e.To) {
			continue
		}
		res = append(res, e)
	}

	return res, nil
}

func (w *walker) cancelled() error {
	select {
	case <-w.opts.Ctx.Done():
		return w.opts.Ctx.Err()
	default:
		return nil
	}
}
