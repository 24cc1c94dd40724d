package graph

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for Digraph operations.
var (
	// ErrEmptyKey indicates a node added with an empty key.
	ErrEmptyKey = errors.New("graph: node key is empty")

	// ErrNodeNotFound indicates an unknown NodeID or key.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrEdgeNotFound indicates an unknown EdgeID.
	ErrEdgeNotFound = errors.New("graph: edge not found")

	// ErrLoopNotAllowed indicates a self-loop was attempted when loops are disabled.
	ErrLoopNotAllowed = errors.New("graph: self-loop not allowed")

	// ErrMultiEdgeNotAllowed indicates a parallel edge was attempted when multi-edges are disabled.
	ErrMultiEdgeNotAllowed = errors.New("graph: multi-edges not allowed")
)

// NodeID is the arena handle of a node.
type NodeID int

// EdgeID is the arena handle of an edge.
type EdgeID int

// Node is one arena slot.
type Node struct {
	ID  NodeID
	Key string
}

// Edge is a directed From→To connection.
type Edge struct {
	ID   EdgeID
	From NodeID
	To   NodeID
	Key  string
}

// Option configures a Digraph before use.
type Option func(g *Digraph)

// WithMultiEdges permits parallel edges between the same nodes.
func WithMultiEdges() Option {
	return func(g *Digraph) { g.allowMulti = true }
}

// WithLoops permits self-loops.
func WithLoops() Option {
	return func(g *Digraph) { g.allowLoops = true }
}

// Digraph is an arena-backed directed graph.
type Digraph struct {
	muNode sync.RWMutex // guards nodes, byKey
	muEdge sync.RWMutex // guards edges, out, in

	allowMulti bool
	allowLoops bool

	nodes []Node
	byKey map[string]NodeID
	edges []Edge
	out   [][]EdgeID
	in    [][]EdgeID
}

// New creates an empty Digraph. By default it rejects loops and parallel edges.
func New(opts ...Option) *Digraph {
	g := &Digraph{byKey: make(map[string]NodeID)}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// AddNode registers key and returns its handle. Adding an existing key is a
// no-op that returns the existing handle.
func (g *Digraph) AddNode(key string) (NodeID, error) {
	if key == "" {
		return -1, ErrEmptyKey
	}
	g.muNode.Lock()
	defer g.muNode.Unlock()
	if id, ok := g.byKey[key]; ok {
		return id, nil
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, Key: key})
	g.byKey[key] = id

	// Adjacency slots grow with the arena.
	g.muEdge.Lock()
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.muEdge.Unlock()

	return id, nil
}

// NodeByKey resolves a key to its handle.
func (g *Digraph) NodeByKey(key string) (NodeID, error) {
	g.muNode.RLock()
	defer g.muNode.RUnlock()
	id, ok := g.byKey[key]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrNodeNotFound, key)
	}

	return id, nil
}

// Node returns the node stored at id.
func (g *Digraph) Node(id NodeID) (Node, error) {
	g.muNode.RLock()
	defer g.muNode.RUnlock()
	if id < 0 || int(id) >= len(g.nodes) {
		return Node{}, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	return g.nodes[id], nil
}

// AddEdge connects from→to and returns the new edge handle.
//
// Steps:
//  1. Validate both endpoints exist.
//  2. Enforce loop/multi-edge policy.
//  3. Append to the arena and both adjacency lists.
func (g *Digraph) AddEdge(from, to NodeID, key string) (EdgeID, error) {
	g.muNode.RLock()
	defer g.muNode.RUnlock()
	n := NodeID(len(g.nodes))
	if from < 0 || from >= n || to < 0 || to >= n {
		return -1, fmt.Errorf("%w: edge %d→%d", ErrNodeNotFound, from, to)
	}
	if from == to && !g.allowLoops {
		return -1, fmt.Errorf("%w: %q", ErrLoopNotAllowed, g.nodes[from].Key)
	}

	g.muEdge.Lock()
	defer g.muEdge.Unlock()
	if !g.allowMulti {
		for _, eid := range g.out[from] {
			if g.edges[eid].To == to {
				return -1, fmt.Errorf("%w: %q→%q", ErrMultiEdgeNotAllowed, g.nodes[from].Key, g.nodes[to].Key)
			}
		}
	}
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, Edge{ID: id, From: from, To: to, Key: key})
	g.out[from] = append(g.out[from], id)
	g.in[to] = append(g.in[to], id)

	return id, nil
}

// Edge returns the edge stored at id.
func (g *Digraph) Edge(id EdgeID) (Edge, error) {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	if id < 0 || int(id) >= len(g.edges) {
		return Edge{}, fmt.Errorf("%w: %d", ErrEdgeNotFound, id)
	}

	return g.edges[id], nil
}

// NodeCount returns |V|.
func (g *Digraph) NodeCount() int {
	g.muNode.RLock()
	defer g.muNode.RUnlock()

	return len(g.nodes)
}

// EdgeCount returns |E|.
func (g *Digraph) EdgeCount() int {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()

	return len(g.edges)
}

// Nodes returns a copy of every node in handle order.
func (g *Digraph) Nodes() []Node {
	g.muNode.RLock()
	defer g.muNode.RUnlock()

	return append([]Node(nil), g.nodes...)
}

// Edges returns a copy of every edge in handle order.
func (g *Digraph) Edges() []Edge {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()

	return append([]Edge(nil), g.edges...)
}

// Out returns the outgoing edge handles of id.
func (g *Digraph) Out(id NodeID) ([]EdgeID, error) {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	if id < 0 || int(id) >= len(g.out) {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	return append([]EdgeID(nil), g.out[id]...), nil
}

// In returns the incoming edge handles of id.
func (g *Digraph) In(id NodeID) ([]EdgeID, error) {
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	if id < 0 || int(id) >= len(g.in) {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
	}

	return append([]EdgeID(nil), g.in[id]...), nil
}

// Successors returns the distinct heads of id's outgoing edges, in edge order.
func (g *Digraph) Successors(id NodeID) ([]NodeID, error) {
	out, err := g.Out(id)
	if err != nil {
		return nil, err
	}
	g.muEdge.RLock()
	defer g.muEdge.RUnlock()
	seen := make(map[NodeID]struct{}, len(out))
	res := make([]NodeID, 0, len(out))
	for _, eid := range out {
		to := g.edges[eid].To
		if _, dup := seen[to]; dup {
			continue
		}
		seen[to] = struct{}{}
		res = append(res, to)
	}

	return res, nil
}
