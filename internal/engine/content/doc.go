// Package content defines the storage contract shared by every binary
// content store.
//
// A store is any implementation of Data. Two kinds exist:
//
//   - KindFlat: a fully in-memory paged buffer (package paged)
//   - KindDelta: a copy-on-write overlay over a file (package delta)
//
// Callers work through the Data interface and never switch on the concrete
// type. The Kind tag exists so the session can report the storage mode and
// build a matching empty store when reopening.
//
// # Positions
//
// Positions are byte offsets in the range [0, Len()]. Reads and removals
// must stay inside [0, Len()); insertions may target Len() to append.
//
// # Lifetime
//
// A store is owned by exactly one session. Dispose releases its resources;
// every later call returns ErrDisposed.
//
// # Concurrency
//
// Stores are not safe for concurrent use. They are driven from the session's
// single thread of control.
package content
