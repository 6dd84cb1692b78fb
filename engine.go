package bruteguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/bruteguard/internal/audit"
	internalmetrics "github.com/MrEthical07/bruteguard/internal/metrics"
	"github.com/MrEthical07/bruteguard/internal/policy"
	"github.com/MrEthical07/bruteguard/internal/tracker"
	"github.com/MrEthical07/bruteguard/store"
)

// Engine decides whether a login attempt from an identifier is allowed, challenged or
// banned, and records failures and successes. It holds no per-identifier state of its
// own; all state lives in the cache store, so any number of Engines may share one.
// Methods are safe for concurrent use.
type Engine struct {
	config  Config
	store   store.Store
	tracker *tracker.Tracker
	policy  policy.Config
	logger  *slog.Logger
	audit   *internalaudit.Dispatcher
	metrics *internalmetrics.Metrics
}

// ValidateOption adjusts a single [Engine.Validate] call.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	requireChallenge bool
}

// RequireChallenge forces [OutcomeChallengeRequired] unless the identifier has passed a
// challenge since its last failure, even with zero recorded failures. The forced
// challenge is checked before the ban limit.
func RequireChallenge() ValidateOption {
	return func(o *validateOptions) {
		o.requireChallenge = true
	}
}

// Close flushes pending audit events. The store is not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Validate reads the attempt state of id and returns the protection outcome.
//
// Decision order, first match wins: forced challenge without a pass, ban at BanLimit,
// challenge at SoftLimit without a pass, allow. A store failure returns
// [ErrStoreUnavailable] unless Store.FailOpen is set, in which case the unreadable state
// counts as "no record".
func (e *Engine) Validate(ctx context.Context, id string, opts ...ValidateOption) (Outcome, error) {
	if e == nil {
		return Outcome{}, ErrEngineNotReady
	}
	if err := checkIdentifier(id); err != nil {
		return Outcome{}, err
	}

	var o validateOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	// A fail-open decision is recorded once per call: a failed counter read skips the flag read.
	cleared := false
	attempts, err := e.tracker.Attempts(ctx, id)
	if err == nil {
		cleared, err = e.tracker.SoftStatus(ctx, id)
	}
	if err != nil {
		if !e.failOpen(ctx, "validate", id, err) {
			return Outcome{}, e.storeError(err)
		}
		attempts, cleared = 0, false
	}

	out := outcomeFromDecision(policy.Decide(policy.Input{
		Attempts:               attempts,
		SoftCleared:            cleared,
		RequireChallengeAlways: o.requireChallenge,
	}, e.policy))

	switch out.Kind {
	case OutcomeBanned:
		e.metricInc(MetricValidateBanned)
		e.logger.DebugContext(ctx, "login attempt rejected", slog.String("identifier", id), slog.String("ban_duration", out.BanDuration))
	case OutcomeChallengeRequired:
		e.metricInc(MetricValidateChallenge)
		e.logger.DebugContext(ctx, "challenge required", slog.String("identifier", id), slog.Bool("forced", o.requireChallenge))
	default:
		e.metricInc(MetricValidateAllow)
	}
	e.metrics.Observe(MetricValidateLatency, time.Since(start))

	return out, nil
}

// RecordFailure counts one failed login for id and returns the new count. It also
// revokes any challenge pass. The counter's TTL is set only when it is created, so
// later failures never extend the ban window.
func (e *Engine) RecordFailure(ctx context.Context, id string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if err := checkIdentifier(id); err != nil {
		return 0, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	count, err := e.tracker.IncreaseAttempts(ctx, id)
	if err != nil {
		e.logger.WarnContext(ctx, "record failure", slog.String("identifier", id), slog.Any("error", err))
		return count, e.storeError(err)
	}
	e.metricInc(MetricFailureRecorded)

	ev := e.event(ctx, AuditFailureRecorded, id)
	ev.Attempts = count
	e.emitAudit(ctx, ev)

	switch {
	case count == e.policy.BanLimit:
		duration := policy.RenderDuration(e.policy.BanWindowSeconds)
		e.logger.InfoContext(ctx, "identifier banned",
			slog.String("identifier", id),
			slog.Int("attempts", count),
			slog.String("ban_duration", duration),
		)
		ev := e.event(ctx, AuditIdentifierBanned, id)
		ev.Attempts = count
		ev.Outcome = OutcomeBanned.String()
		ev.BanDuration = duration
		e.emitAudit(ctx, ev)
	case count == e.policy.SoftLimit && count < e.policy.BanLimit:
		e.logger.DebugContext(ctx, "identifier reached challenge threshold", slog.String("identifier", id), slog.Int("attempts", count))
		ev := e.event(ctx, AuditChallengeRequired, id)
		ev.Attempts = count
		ev.Outcome = OutcomeChallengeRequired.String()
		e.emitAudit(ctx, ev)
	}

	return count, nil
}

// RecordSuccess clears the history of id after a successful login.
func (e *Engine) RecordSuccess(ctx context.Context, id string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := checkIdentifier(id); err != nil {
		return err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.tracker.Reset(ctx, id); err != nil {
		e.logger.WarnContext(ctx, "record success", slog.String("identifier", id), slog.Any("error", err))
		return e.storeError(err)
	}
	e.metricInc(MetricSuccessRecorded)
	e.emitAudit(ctx, e.event(ctx, AuditHistoryReset, id))
	return nil
}

// SetChallengePassed marks id as having completed a challenge. The pass holds until the
// next failure or until SoftChallengeTTL elapses.
func (e *Engine) SetChallengePassed(ctx context.Context, id string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := checkIdentifier(id); err != nil {
		return err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.tracker.SetSoftStatus(ctx, id, true); err != nil {
		e.logger.WarnContext(ctx, "set challenge passed", slog.String("identifier", id), slog.Any("error", err))
		return e.storeError(err)
	}
	e.metricInc(MetricChallengePassed)
	e.emitAudit(ctx, e.event(ctx, AuditChallengePassed, id))
	return nil
}

// ListBannedIdentifiers returns every identifier with a live failed-attempt counter.
// Order is unspecified. Without key scanning the result is empty, not an error.
func (e *Engine) ListBannedIdentifiers(ctx context.Context) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.list(ctx, e.tracker.ListFailed)
}

// ListChallengedIdentifiers returns every identifier with a live challenge flag.
// Order is unspecified. Without key scanning the result is empty, not an error.
func (e *Engine) ListChallengedIdentifiers(ctx context.Context) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.list(ctx, e.tracker.ListSoft)
}

func (e *Engine) list(ctx context.Context, fn func(context.Context) ([]string, error)) ([]string, error) {
	if !e.tracker.CanList() {
		e.metricInc(MetricListScanUnsupported)
		return []string{}, nil
	}
	e.metricInc(MetricListScan)

	// Scans are O(keyspace); they run under the caller's context only.
	if ctx == nil {
		ctx = context.Background()
	}
	ids, err := fn(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "list identifiers", slog.Any("error", err))
		return nil, e.storeError(err)
	}
	return ids, nil
}

// Inspect returns the raw attempt state of id together with the outcome Validate would
// give it without options. Store errors are always returned, regardless of FailOpen.
func (e *Engine) Inspect(ctx context.Context, id string) (Record, error) {
	if e == nil {
		return Record{}, ErrEngineNotReady
	}
	if err := checkIdentifier(id); err != nil {
		return Record{}, err
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	attempts, err := e.tracker.Attempts(ctx, id)
	if err != nil {
		return Record{}, e.storeError(err)
	}
	cleared, err := e.tracker.SoftStatus(ctx, id)
	if err != nil {
		return Record{}, e.storeError(err)
	}

	return Record{
		Identifier:      id,
		Attempts:        attempts,
		ChallengePassed: cleared,
		Outcome: outcomeFromDecision(policy.Decide(policy.Input{
			Attempts:    attempts,
			SoftCleared: cleared,
		}, e.policy)),
	}, nil
}

// Health pings the store when it supports it. Stores without a liveness probe are
// reported available.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil {
		return HealthStatus{Error: ErrEngineNotReady.Error()}
	}

	status := HealthStatus{Available: true, KeyScan: e.tracker.CanList()}

	p, ok := e.store.(store.Pinger)
	if !ok {
		return status
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	status.Latency = time.Since(start)
	if err != nil {
		status.Available = false
		status.Error = err.Error()
	}
	return status
}

func checkIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidIdentifier
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.config.Store.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Store.OperationTimeout)
}

// failOpen reports whether a read failure may be ignored, and records it when it is.
func (e *Engine) failOpen(ctx context.Context, op, id string, err error) bool {
	if !e.config.Store.FailOpen {
		e.logger.WarnContext(ctx, "store read failed", slog.String("op", op), slog.String("identifier", id), slog.Any("error", err))
		return false
	}

	e.metricInc(MetricStoreError)
	e.metricInc(MetricStoreFailOpen)
	e.logger.WarnContext(ctx, "store read failed, failing open", slog.String("op", op), slog.String("identifier", id), slog.Any("error", err))

	ev := e.event(ctx, AuditStoreFailOpen, id)
	ev.Error = err.Error()
	e.emitAudit(ctx, ev)
	return true
}

// storeError counts err and maps it onto the public sentinels.
func (e *Engine) storeError(err error) error {
	e.metricInc(MetricStoreError)
	if errors.Is(err, ErrCorruptRecord) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
