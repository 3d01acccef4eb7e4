package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skyline-va/crewmap/internal/airport"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lookupStatus maps an airport error kind to its HTTP status.
func lookupStatus(err error) int {
	switch {
	case errors.Is(err, airport.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, airport.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, airport.ErrFetchFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeLookupError reports a failed lookup. Client errors carry the full
// message; server-side failures are logged and answered with the kind only.
func writeLookupError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := lookupStatus(err)
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		writeError(w, status, err.Error())
	case http.StatusServiceUnavailable:
		logger.Warn("airport lookup unavailable", "component", "api", "error", err)
		writeError(w, status, airport.ErrFetchFailed.Error())
	default:
		logger.Error("airport lookup failed", "component", "api", "error", err)
		msg := "internal error"
		if errors.Is(err, airport.ErrMalformedRecord) {
			msg = airport.ErrMalformedRecord.Error()
		}
		writeError(w, status, msg)
	}
}
