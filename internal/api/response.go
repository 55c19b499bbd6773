package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/caseflow/internal/editor"
	"github.com/gyaneshwarpardhi/caseflow/internal/engine"
	"github.com/gyaneshwarpardhi/caseflow/internal/flow"
	"github.com/gyaneshwarpardhi/caseflow/internal/flowio"
	"github.com/gyaneshwarpardhi/caseflow/internal/preview"
	"github.com/gyaneshwarpardhi/caseflow/internal/storage"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps a command error onto its HTTP status.
func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrNodeNotFound),
		errors.Is(err, engine.ErrSessionNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, editor.ErrNoConnection):
		return http.StatusNotFound
	case errors.Is(err, flow.ErrPortOccupied),
		errors.Is(err, flow.ErrDuplicateID),
		errors.Is(err, preview.ErrSessionEnded):
		return http.StatusConflict
	case errors.Is(err, flow.ErrWrongNodeType),
		errors.Is(err, flow.ErrNoSuchPort),
		errors.Is(err, flow.ErrRowOutOfRange),
		errors.Is(err, flow.ErrInvalidSchedule),
		errors.Is(err, flowio.ErrMalformedDocument),
		errors.Is(err, preview.ErrInvalidChoice),
		errors.Is(err, preview.ErrNoMatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrQueueFull),
		errors.Is(err, engine.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrNoStore):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
