package adminapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/MrEthical07/bruteguard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type identifiersResponse struct {
	Identifiers []string `json:"identifiers"`
	Count       int      `json:"count"`
}

type healthResponse struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
	KeyScan   bool    `json:"key_scan"`
	Error     string  `json:"error,omitempty"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := a.engine.Health(r.Context())
	resp := healthResponse{
		Status:    "ok",
		LatencyMS: float64(h.Latency.Microseconds()) / 1000,
		KeyScan:   h.KeyScan,
		Error:     h.Error,
	}
	if !h.Available {
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	if a.engine == nil {
		writeError(w, http.StatusServiceUnavailable, bruteguard.ErrEngineNotReady.Error())
		return
	}
	writeJSON(w, http.StatusOK, a.engine.SecurityReport())
}

func (a *API) handleListBanned(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, r, a.engine.ListBannedIdentifiers)
}

func (a *API) handleListChallenged(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, r, a.engine.ListChallengedIdentifiers)
}

func (a *API) writeList(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]string, error)) {
	ids, err := list(r.Context())
	if err != nil {
		a.fail(w, r, "list identifiers", err)
		return
	}
	writeJSON(w, http.StatusOK, identifiersResponse{Identifiers: ids, Count: len(ids)})
}

func (a *API) handleInspect(w http.ResponseWriter, r *http.Request) {
	id, ok := identifierParam(w, r)
	if !ok {
		return
	}
	rec, err := a.engine.Inspect(r.Context(), id)
	if err != nil {
		a.fail(w, r, "inspect identifier", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := identifierParam(w, r)
	if !ok {
		return
	}
	if err := a.engine.RecordSuccess(operatorContext(r), id); err != nil {
		a.fail(w, r, "reset identifier", err)
		return
	}
	a.logger.InfoContext(r.Context(), "identifier reset by operator", slog.String("identifier", id), slog.String("request_id", middleware.GetReqID(r.Context())))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleChallengePassed(w http.ResponseWriter, r *http.Request) {
	id, ok := identifierParam(w, r)
	if !ok {
		return
	}
	if err := a.engine.SetChallengePassed(operatorContext(r), id); err != nil {
		a.fail(w, r, "set challenge passed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), op, slog.Any("err", err), slog.String("request_id", middleware.GetReqID(r.Context())))
	}
	writeError(w, status, err.Error())
}

// identifierParam decodes {id}; IPv6 identifiers may arrive percent-encoded.
func identifierParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed identifier")
		return "", false
	}
	return id, true
}

// operatorContext tags audit events from admin writes with the request ID and caller IP.
func operatorContext(r *http.Request) context.Context {
	ctx := bruteguard.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return bruteguard.WithClientIP(ctx, ip)
}
