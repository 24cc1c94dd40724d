// Package graph provides Digraph, a thread-safe arena digraph addressed by
// integer handles.
//
// Nodes and edges live in append-only slices; a NodeID or EdgeID is an index
// into them. Nothing points back from a node to its edges except the per-node
// adjacency index, so cyclic topologies (recycle loops) never create
// ownership cycles, and algorithms in package dfs work purely on handles.
//
// Each node and edge carries a string Key (unit ID, stream ID) so callers can
// map handles back to their domain objects.
//
// Configuration Options (Option):
//
//	– WithMultiEdges()
//	    Allows parallel edges between the same endpoints.
//	    Otherwise a second AddEdge(from,to) → ErrMultiEdgeNotAllowed.
//
//	– WithLoops()
//	    Permits self-loops (from == to); otherwise ErrLoopNotAllowed.
//
// Concurrency:
//
//	muNode guards nodes and the key index; muEdge guards edges and adjacency.
//	Lock order is always muNode → muEdge.
//
// Determinism:
//
//	Nodes(), Edges(), Out() and In() return handles in insertion order, which
//	is also ascending handle order.
//
// Errors:
//
//	ErrEmptyKey            - node key is the empty string.
//	ErrNodeNotFound        - handle or key not present.
//	ErrEdgeNotFound        - edge handle not present.
//	ErrLoopNotAllowed      - self-loop when loops are disabled.
//	ErrMultiEdgeNotAllowed - parallel edge when multi-edges are disabled.
package graph
