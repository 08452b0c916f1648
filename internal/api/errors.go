package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-hub/internal/property"
	"github.com/nerrad567/gray-logic-hub/internal/state"
)

// Error codes carried in errorResponse.Code.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeValidation  = "validation_error"
	ErrCodeInternal    = "internal_error"
	ErrCodeUnavailable = "service_unavailable"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stateErrors maps state manager failures a client can act on. Anything
// else is reported as an internal error.
var stateErrors = []struct {
	err    error
	status int
	code   string
}{
	// The write is well formed but the property refuses it.
	{state.ErrNotSettable, http.StatusConflict, ErrCodeConflict},
	{state.ErrActualViaWrite, http.StatusConflict, ErrCodeConflict},
	{state.ErrActualOnMapped, http.StatusConflict, ErrCodeConflict},

	{state.ErrNoState, http.StatusBadRequest, ErrCodeBadRequest},
	{state.ErrMappedNotSupported, http.StatusBadRequest, ErrCodeBadRequest},

	// Broken property configuration.
	{state.ErrMappedParentNotLoaded, http.StatusUnprocessableEntity, ErrCodeValidation},
	{state.ErrIncompatibleDataType, http.StatusUnprocessableEntity, ErrCodeValidation},

	{property.ErrNotImplemented, http.StatusServiceUnavailable, ErrCodeUnavailable},
}

// writeStateError writes the response for an error returned by a state
// manager. Unmapped errors are logged and reported as fallback.
func (s *Server) writeStateError(w http.ResponseWriter, err error, fallback string) {
	for _, m := range stateErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error(fallback, "error", err)
	writeInternalError(w, fallback)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // the client may already be gone
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeUnavailable reports that an optional backend the request needs is
// not configured or not reachable.
func writeUnavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, what+" unavailable")
}
