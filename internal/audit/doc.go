// Package audit implements async event dispatching for protection decisions.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] is the structured audit record: ID, timestamp, type, identifier, attempts, outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on protection logic.
//   - Import bruteguard or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
