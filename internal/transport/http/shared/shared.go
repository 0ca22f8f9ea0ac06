// Package shared centralizes JSON response writing for all HTTP handlers so
// error envelopes stay consistent across modules.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "verdant/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for failed requests. Error carries the
// machine-checkable code; Reason carries the specific failure message so
// callers can branch on causes like ineligibility.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// WriteError translates a coded domain error into an HTTP response.
// Uncoded errors become opaque 500s so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(dErrors.CodeInternal)
	reason := ""

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = dErrors.ToHTTPStatus(de.Code)
		code = string(de.Code)
		reason = de.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code, Reason: reason})
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
