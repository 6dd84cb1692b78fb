package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/bruteguard"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusFor maps Engine errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bruteguard.ErrInvalidIdentifier):
		return http.StatusBadRequest
	case errors.Is(err, bruteguard.ErrStoreUnavailable), errors.Is(err, bruteguard.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
