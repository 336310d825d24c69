package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	appLog "calibtrack/internal/log"
	"calibtrack/internal/store"
	"calibtrack/internal/suggest"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

// writeErr maps err to a status code. fallback applies to errors no sentinel
// matches.
func writeErr(w http.ResponseWriter, err error, fallback int) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "validation failed", Fields: verr.Fields})
		return
	}
	status := statusFor(err, fallback)
	if status >= 500 {
		appLog.Error("api request failed", err, "status", status)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateID),
		errors.Is(err, store.ErrToolScheduled),
		errors.Is(err, suggest.ErrAlreadyDecided),
		errors.Is(err, suggest.ErrInTransition):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidEvent), errors.Is(err, suggest.ErrNoSerial):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Fields: map[string]string{"body": "is not valid JSON: " + err.Error()}}
	}
	return s.validate.Validate(dst)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parseTime accepts RFC 3339 or a bare date interpreted in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
