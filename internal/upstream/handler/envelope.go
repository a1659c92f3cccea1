// Package handler implements the backend's HTTP API. Failures leave as
// the backend error envelope: {"error_code": ..., "message": ...}.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/codecritic/codecritic/internal/apperr"
)

type errorEnvelope struct {
	ErrorCode apperr.Code `json:"error_code"`
	Message   string      `json:"message"`
}

func writeError(w http.ResponseWriter, e *apperr.Error) {
	msg := e.Message
	if msg == "" {
		msg = e.DetailedMessage()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(errorEnvelope{ErrorCode: e.Code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
