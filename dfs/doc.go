// Package dfs implements depth-first algorithms over a graph.Digraph:
// topological sort, strongly connected components, back-edge detection and
// dependency levels. The flowsheet package uses them to order unit
// operations and to find recycle loops and their tear streams.
//
// What:
//
//   - TopologicalSort: reverse post-order with three-colour marking
//     (White, Gray, Black); ErrCycleDetected on a back edge.
//   - StronglyConnected: Tarjan's algorithm; components are returned in
//     topological order of the condensation, members in handle order.
//   - BackEdges: edges that close a cycle in a DFS started from chosen
//     roots; removing them leaves the (sub)graph acyclic.
//   - Levels: longest-path layering of an acyclic (sub)graph, so nodes of
//     one level have no edges between them.
//
// Every function accepts Options restricting the walk to a node subset
// (WithNodes) and ignoring chosen edges (WithSkipEdges), which is how a
// single recycle group is analysed with its tear streams cut.
//
// Complexity:
//
//   - All functions: Time O(V+E), Memory O(V).
//
// Errors:
//
//   - ErrGraphNil       graph pointer is nil
//   - ErrCycleDetected  cycle found by TopologicalSort or Levels
//   - context.Canceled  walk cancelled via WithContext
package dfs
