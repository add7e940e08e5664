// Package shared holds response helpers used by every handler so the
// JSON error envelope stays identical across endpoints.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "trrhub/pkg/errors"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a portal error into the HTTP envelope. Internal
// details never leak; only the code, message, and hint cross the wire.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	envelope := errorEnvelope{
		Error: string(code),
		Hint:  pkgerrors.HintOf(err),
	}
	var pe *pkgerrors.PortalError
	if errors.As(err, &pe) && code != pkgerrors.CodeInternal {
		envelope.Message = pe.Message
	}
	WriteJSON(w, pkgerrors.ToHTTPStatus(code), envelope)
}
