// Package policy turns attempt state into a protection decision.
//
// [Decide] is a pure function: it performs no I/O and holds no state, so the same input
// always yields the same [Decision]. Check order is fixed: forced challenge, hard ban,
// soft challenge, allow.
//
// # What this package must NOT do
//
//   - Read or write the cache; the tracker owns persistence.
//   - Return errors for Banned or ChallengeRequired. Those are decisions, not failures.
package policy
