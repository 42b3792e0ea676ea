// Package session holds the client-side authentication state and its durable
// snapshot.
//
// # Snapshot encoding
//
// The persisted subset {user, token, isAuthenticated} is stored as one JSON
// document under a fixed key, wrapped as {"state": ..., "version": N}. Decoding
// accepts every version up to [SnapshotVersionCurrent]; older versions are
// upgraded on read and rewritten on the next mutation.
//
// # Architecture boundaries
//
// This package owns the [Store] (in-memory state plus change notification), the
// [Persistence] layer (snapshot codec over a [Storage] backend) and the
// [Storage] backends themselves (memory, file, Redis, SQLite). It does NOT issue
// network requests, validate form input, or classify API errors; those belong
// to the transport and validation packages and the root client.
//
// # What this package must NOT do
//
//   - Import eduAuth, transport, or validation (no upward imports).
//   - Persist the transient loading flag.
//   - Write the bearer token anywhere other than inside the snapshot.
package session
