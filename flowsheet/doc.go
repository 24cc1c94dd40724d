// Package flowsheet connects unit operations through streams and works out
// the order in which a recycle engine must run them.
//
// What:
//
//   - Stream: a named material stream. Its identity (ID) is separate from
//     its material.Indexer, which can be swapped when the stream turns
//     multi-phase (EnablePhases) or back (DisablePhases).
//   - Unit: the contract a unit operation exposes: ID, inlet and outlet
//     streams, and Simulate, which reads inlets and overwrites outlets.
//   - System: the set of units. Build turns it into an arena graph (one
//     node per unit, one edge per connecting stream), condenses recycle
//     loops with Tarjan's algorithm and returns an ordered list of Groups.
//
// Tear streams:
//
//	A Group with more than one unit (or a unit feeding itself) is a recycle
//	loop. Its tear streams come from the registry (SetTear) first; any loop
//	the registered tears leave open is cut at the back edges of a DFS
//	started at the loop's entry unit. Within a Group, units run in the
//	topological order of the loop with its tears removed.
//
// Errors:
//
//   - ErrEmptyID          unit or stream ID is empty
//   - ErrDuplicateUnit    two units share an ID
//   - ErrUnknownStream    a tear names a stream that connects no two units
//   - ErrStreamConflict   one stream is an outlet of two units, or an inlet of two
//   - ErrNotBuilt         Groups called before Build
//
// Concurrency:
//
//	A System is built once and then read-only; Build itself must not race
//	with AddUnit or SetTear. Streams are not synchronized: the engine runs
//	units of one dependency level in parallel only because they touch
//	disjoint streams.
package flowsheet
