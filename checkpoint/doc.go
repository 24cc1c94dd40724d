// Package checkpoint stores converged tear-stream states so that a later
// run of the same flowsheet can start its recycle loops from them.
//
// What:
//
//   - Snapshot: the converged streams of one recycle group, with the run
//     that produced them. Capture and Restore move snapshots in and out of
//     flowsheet streams.
//   - Store: Save, Load, Delete and List by key. Key(system, group) is the
//     key the recycle engine uses.
//   - MemoryStore: a map for tests and single-process use.
//   - BadgerStore: an embedded badger database (on disk or in memory).
//   - RedisStore: JSON values in Redis with an index of keys.
//
// Errors:
//
//   - ErrNotFound      no snapshot under the key
//   - ErrIncompatible  a snapshot whose components differ from the stream's
package checkpoint
