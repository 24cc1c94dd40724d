// Package bfs provides breadth-first search over a graph.Digraph,
// returning hop distances, parent edges and visit order.
//
// What
//
//   - Explore nodes in non-decreasing distance (edge count) from one or
//     more start nodes.
//   - Follow edges forward (From→To) or, with WithReverse, backward; a
//     flowsheet uses the two directions for downstream and upstream units.
//   - Result carries Order, Depth and Parent; PathTo rebuilds the edge
//     path to any reached node.
//   - WithOnVisit may abort the walk with an error; WithMaxDepth bounds it;
//     WithSkipEdges treats edges as absent.
//
// Determinism
//
//	Edges are followed in handle order, so the visit sequence is fully
//	reproducible.
//
// Complexity (V = nodes, E = edges)
//
//   - Time:   O(V + E)
//   - Memory: O(V)
//
// Errors
//
//   - ErrGraphNil             nil graph
//   - ErrStartNodeNotFound    a start node is not in the graph
//   - ErrOptionViolation      negative MaxDepth
//   - ErrNoPath               PathTo on an unreached node
//   - context errors and errors returned by OnVisit, unwrapped
package bfs
