// Package audit relays session lifecycle events to a caller-supplied sink.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event]: one record of a login, registration, logout or session invalidation.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which events are emitted is decided
// by the client and the flow functions.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import eduAuth or any sibling internal package.
//   - Record credentials. Events carry user ids and emails, never passwords or tokens.
package audit
