package bfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/lvflow/graph"
)

// Sentinel errors for BFS execution.
var (
	// ErrGraphNil is returned if a nil graph pointer is passed.
	ErrGraphNil = errors.New("bfs: graph is nil")

	// ErrStartNodeNotFound is returned when a start handle is absent.
	ErrStartNodeNotFound = errors.New("bfs: start node not found")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("bfs: invalid option supplied")

	// ErrNoPath is returned by PathTo for a node the walk never reached.
	ErrNoPath = errors.New("bfs: no path")
)

// Option configures BFS behavior via functional arguments.
// An invalid Option is recorded and surfaced as ErrOptionViolation by Walk.
type Option func(*Options)

// Options holds parameters and callbacks of a walk.
type Options struct {
	// Ctx allows cancellation and deadlines.
	Ctx context.Context

	// OnVisit is called when visiting a node. A non-nil error aborts the
	// walk and is returned as is.
	OnVisit func(id graph.NodeID, depth int) error

	// MaxDepth, if > 0, stops exploring beyond this depth.
	MaxDepth int

	// Reverse follows edges To→From.
	Reverse bool

	// Skip lists edges treated as absent.
	Skip map[graph.EdgeID]struct{}

	err error
}

// DefaultOptions returns a forward walk without a depth limit.
func DefaultOptions() Options {
	return Options{
		Ctx:     context.Background(),
		OnVisit: func(graph.NodeID, int) error { return nil },
	}
}

// WithContext sets a custom context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithOnVisit registers a callback to run on visit.
func WithOnVisit(fn func(id graph.NodeID, depth int) error) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnVisit = fn
		}
	}
}

// WithMaxDepth stops the search after depth d.
//
//	d > 0: limit to depth d
//	d == 0: no limit
//	d < 0: ErrOptionViolation
func WithMaxDepth(d int) Option {
	return func(o *Options) {
		if d < 0 {
			o.err = fmt.Errorf("%w: MaxDepth cannot be negative (%d)", ErrOptionViolation, d)
			return
		}
		o.MaxDepth = d
	}
}

// WithReverse walks against edge direction.
func WithReverse() Option {
	return func(o *Options) { o.Reverse = true }
}

// WithSkipEdges treats ids as absent.
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

// Result holds the outcome of a walk:
//   - Order: nodes visited, in visit sequence.
//   - Depth: distance (in edges) from the nearest start node.
//   - Parent: the edge through which each non-start node was reached.
type Result struct {
	Order  []graph.NodeID
	Depth  map[graph.NodeID]int
	Parent map[graph.NodeID]graph.EdgeID
	g      *graph.Digraph
	rev    bool
}

// Reached reports whether id was visited.
func (r *Result) Reached(id graph.NodeID) bool {
	_, ok := r.Depth[id]
	return ok
}

// PathTo returns the edges from a start node to dest, in walk direction.
// A start node has an empty path.
func (r *Result) PathTo(dest graph.NodeID) ([]graph.EdgeID, error) {
	if !r.Reached(dest) {
		return nil, fmt.Errorf("%w: node %d", ErrNoPath, dest)
	}
	var path []graph.EdgeID
	for cur := dest; ; {
		eid, ok := r.Parent[cur]
		if !ok {
			break
		}
		path = append(path, eid)
		e, err := r.g.Edge(eid)
		if err != nil {
			return nil, err
		}
		if r.rev {
			cur = e.To
		} else {
			cur = e.From
		}
	}
	// reverse to get start → dest
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, nil
}
