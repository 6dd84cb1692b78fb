// Package middleware adapts bruteguard.Engine to net/http login handlers.
//
// # Guards
//
//   - [Protect] validates the client before the wrapped handler runs and records the
//     result afterwards from the response status.
//   - [ProtectWithChallenge] is Protect with a challenge forced on every client that has
//     not passed one.
//
// Banned clients get 403, challenged clients 428, and a store outage 503, each with a
// JSON body {"error": "..."} holding the user-facing message.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT decide anything
// itself; all decisions are delegated to Engine.Validate.
//
// # What this package must NOT do
//
//   - Check credentials. The wrapped handler does that and signals failure by status.
//   - Access the cache store directly.
package middleware
