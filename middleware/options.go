package middleware

import (
	"log/slog"
	"net/http"
)

// Option configures [Protect].
type Option func(*options)

type options struct {
	key              KeyFunc
	failureStatuses  map[int]struct{}
	requireChallenge bool
	verifyChallenge  func(*http.Request) bool
	logger           *slog.Logger
}

func defaultOptions() options {
	return options{
		key:             KeyByRemoteAddr,
		failureStatuses: map[int]struct{}{http.StatusUnauthorized: {}},
		logger:          slog.Default(),
	}
}

// WithKeyFunc replaces [KeyByRemoteAddr].
func WithKeyFunc(fn KeyFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.key = fn
		}
	}
}

// WithFailureStatus sets the handler statuses counted as failed logins. The default is 401.
func WithFailureStatus(codes ...int) Option {
	return func(o *options) {
		o.failureStatuses = make(map[int]struct{}, len(codes))
		for _, c := range codes {
			o.failureStatuses[c] = struct{}{}
		}
	}
}

// RequireChallenge forces a challenge on every client without a pass.
func RequireChallenge() Option {
	return func(o *options) {
		o.requireChallenge = true
	}
}

// WithChallengeVerifier lets a challenged request through when verify accepts the
// challenge answer it carries (e.g. a CAPTCHA token). The pass is recorded first.
func WithChallengeVerifier(verify func(*http.Request) bool) Option {
	return func(o *options) {
		o.verifyChallenge = verify
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
