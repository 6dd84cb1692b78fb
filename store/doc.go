// Package store defines the cache contract bruteguard persists attempt state in,
// together with a Redis implementation and an in-process implementation.
//
// # Contract
//
//   - [Store]: point reads and writes with per-key TTL, set-if-absent and atomic increment.
//   - [KeyScanner]: optional key-pattern enumeration used by administrative listing.
//   - [InitIncrementer]: optional single-round-trip "initialize with TTL, then increment".
//   - [Pinger]: optional liveness probe used by health checks.
//
// Optional capabilities are discovered with type assertions on the interface, never on a
// concrete backend type. [WithoutScan] hides the scan capability of any store.
//
// # What this package must NOT do
//
//   - Interpret keys or values; callers own the key scheme and encoding.
//   - Retry or swallow backend failures. Every backend error is wrapped with [ErrUnavailable].
package store
