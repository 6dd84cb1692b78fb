package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrEthical07/bruteguard"
)

type outcomeContextKey struct{}

// OutcomeFromContext returns the Validate outcome Protect attached to the request.
func OutcomeFromContext(ctx context.Context) (bruteguard.Outcome, bool) {
	out, ok := ctx.Value(outcomeContextKey{}).(bruteguard.Outcome)
	return out, ok
}

// Protect guards a login handler. The handler runs only for allowed clients; its
// response status then drives RecordFailure (failure statuses, default 401) or
// RecordSuccess (2xx).
func Protect(engine *bruteguard.Engine, opts ...Option) func(http.Handler) http.Handler {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var vopts []bruteguard.ValidateOption
	if o.requireChallenge {
		vopts = append(vopts, bruteguard.RequireChallenge())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusServiceUnavailable, "protection unavailable")
				return
			}

			id := o.key(r)
			if strings.TrimSpace(id) == "" {
				writeError(w, http.StatusBadRequest, "client identifier unavailable")
				return
			}

			ctx := bruteguard.WithClientIP(r.Context(), KeyByRemoteAddr(r))

			out, err := engine.Validate(ctx, id, vopts...)
			if err == nil && out.Kind == bruteguard.OutcomeChallengeRequired && o.verifyChallenge != nil && o.verifyChallenge(r) {
				if err = engine.SetChallengePassed(ctx, id); err == nil {
					out, err = engine.Validate(ctx, id, vopts...)
				}
			}
			if errors.Is(err, bruteguard.ErrInvalidIdentifier) {
				writeError(w, http.StatusBadRequest, "client identifier unavailable")
				return
			}
			if err != nil {
				o.logger.WarnContext(ctx, "login protection unavailable", slog.String("identifier", id), slog.Any("error", err))
				writeError(w, http.StatusServiceUnavailable, "protection unavailable")
				return
			}

			switch out.Kind {
			case bruteguard.OutcomeBanned:
				writeError(w, http.StatusForbidden, out.Message())
				return
			case bruteguard.OutcomeChallengeRequired:
				writeError(w, http.StatusPreconditionRequired, out.Message())
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(ctx, outcomeContextKey{}, out)))

			status := rec.Status()
			if _, failed := o.failureStatuses[status]; failed {
				if _, err := engine.RecordFailure(ctx, id); err != nil {
					o.logger.WarnContext(ctx, "record login failure", slog.String("identifier", id), slog.Any("error", err))
				}
				return
			}
			if status >= 200 && status < 300 {
				if err := engine.RecordSuccess(ctx, id); err != nil {
					o.logger.WarnContext(ctx, "record login success", slog.String("identifier", id), slog.Any("error", err))
				}
			}
		})
	}
}

// statusRecorder captures the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
