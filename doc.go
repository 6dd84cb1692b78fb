// Package bruteguard provides per-client brute-force login protection backed by a
// shared TTL cache (Redis or in-process).
//
// An authentication handler calls [Engine.Validate] before checking credentials, then
// [Engine.RecordFailure] or [Engine.RecordSuccess] depending on the result. Validate
// returns an [Outcome]: allow, challenge required (the client must pass e.g. a CAPTCHA
// and the handler calls [Engine.SetChallengePassed]) or banned for the rest of the ban
// window.
//
// # Architecture boundaries
//
// bruteguard is the public surface. It exposes [Engine], [Builder], [Config] and value
// types. Attempt tracking, the decision policy, audit dispatch and metric storage live
// under internal/. Cache backends live in the store package.
//
// # What this package must NOT do
//
//   - Authenticate users. It only decides whether an attempt may proceed.
//   - Keep per-identifier state in process memory outside a [store.Store].
//   - Import any sub-package that re-imports bruteguard (no import cycles).
package bruteguard
