package bruteguard

import (
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/bruteguard/internal/audit"
	internalmetrics "github.com/MrEthical07/bruteguard/internal/metrics"
	"github.com/MrEthical07/bruteguard/internal/policy"
)

// OutcomeKind is the closed set of protection decisions returned by [Engine.Validate].
type OutcomeKind uint8

const (
	// OutcomeAllow lets the login attempt proceed.
	OutcomeAllow OutcomeKind = iota
	// OutcomeChallengeRequired means the client must pass a challenge (e.g. CAPTCHA) first.
	OutcomeChallengeRequired
	// OutcomeBanned rejects the attempt for the rest of the ban window.
	OutcomeBanned
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAllow:
		return "allow"
	case OutcomeChallengeRequired:
		return "challenge_required"
	case OutcomeBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON and logs.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of [Engine.Validate]. BanDuration is set only when Kind is
// [OutcomeBanned] and holds the rendered window, e.g. "24 hours" or "90 seconds".
//
// Outcomes are values: a ban or a challenge is not an error of Validate. Use
// [Outcome.Err] where an error is more convenient.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	BanDuration string      `json:"ban_duration,omitempty"`
}

// Allowed reports whether Kind is [OutcomeAllow].
func (o Outcome) Allowed() bool {
	return o.Kind == OutcomeAllow
}

// Message returns the user-facing text for the outcome. It is empty for [OutcomeAllow]
// and never exposes attempt counts.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeBanned:
		return policy.BanMessage(o.BanDuration)
	case OutcomeChallengeRequired:
		return policy.ChallengeMessage
	default:
		return ""
	}
}

// Err returns nil for [OutcomeAllow], [ErrChallengeRequired] for a challenge and a
// [*BanError] for a ban.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeBanned:
		return &BanError{Duration: o.BanDuration}
	case OutcomeChallengeRequired:
		return ErrChallengeRequired
	default:
		return nil
	}
}

func (o Outcome) String() string {
	if o.Kind == OutcomeBanned {
		return o.Kind.String() + "(" + o.BanDuration + ")"
	}
	return o.Kind.String()
}

func outcomeFromDecision(d policy.Decision) Outcome {
	switch d.Kind {
	case policy.Banned:
		return Outcome{Kind: OutcomeBanned, BanDuration: d.BanDuration}
	case policy.ChallengeRequired:
		return Outcome{Kind: OutcomeChallengeRequired}
	default:
		return Outcome{Kind: OutcomeAllow}
	}
}

// Record is the operator view of one identifier returned by [Engine.Inspect].
type Record struct {
	Identifier      string  `json:"identifier"`
	Attempts        int     `json:"attempts"`
	ChallengePassed bool    `json:"challenge_passed"`
	Outcome         Outcome `json:"outcome"`
}

// HealthStatus is returned by [Engine.Health].
type HealthStatus struct {
	Available bool          `json:"available"`
	Latency   time.Duration `json:"latency_ns"`
	KeyScan   bool          `json:"key_scan"`
	Error     string        `json:"error,omitempty"`
}

// AuditEvent is one structured audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the Engine's async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

const (
	AuditIdentifierBanned  = internalaudit.EventIdentifierBanned
	AuditChallengeRequired = internalaudit.EventChallengeRequired
	AuditFailureRecorded   = internalaudit.EventFailureRecorded
	AuditHistoryReset      = internalaudit.EventHistoryReset
	AuditChallengePassed   = internalaudit.EventChallengePassed
	AuditStoreFailOpen     = internalaudit.EventStoreFailOpen
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

// MetricID names one Engine metric.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot is a point-in-time copy of all Engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricValidateAllow       = internalmetrics.MetricValidateAllow
	MetricValidateChallenge   = internalmetrics.MetricValidateChallenge
	MetricValidateBanned      = internalmetrics.MetricValidateBanned
	MetricFailureRecorded     = internalmetrics.MetricFailureRecorded
	MetricSuccessRecorded     = internalmetrics.MetricSuccessRecorded
	MetricChallengePassed     = internalmetrics.MetricChallengePassed
	MetricStoreError          = internalmetrics.MetricStoreError
	MetricStoreFailOpen       = internalmetrics.MetricStoreFailOpen
	MetricListScan            = internalmetrics.MetricListScan
	MetricListScanUnsupported = internalmetrics.MetricListScanUnsupported
	MetricValidateLatency     = internalmetrics.MetricValidateLatency
)
