// Package tracker owns the per-identifier attempt state kept in the cache store.
//
// # Keys
//
// Two independently expiring keys per identifier, namespaced under a configurable prefix:
//
//	{prefix}:failed:ip:{id}  decimal failed-attempt counter, TTL = ban window
//	{prefix}:soft:ip:{id}    "1"/"0" challenge-passed flag, TTL = soft challenge TTL
//
// The counter only grows while its TTL window is open. It is set up with set-if-absent so
// later failures never extend the window, and it disappears by expiry or [Tracker.Reset].
// Every new failure forces the challenge flag back to false.
//
// # Listing
//
// [Tracker.ListFailed] and [Tracker.ListSoft] enumerate identifiers through the store's
// optional key scanning. Stores without it yield an empty list and no error.
//
// # What this package must NOT do
//
//   - Decide allow/challenge/ban. That is internal/policy.
//   - Hold locks or in-process state. Atomicity comes from the store.
package tracker
