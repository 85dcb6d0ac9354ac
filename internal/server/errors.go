package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/service"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Code: code}})
}

// writeJSON encodes v before touching the status line so an unencodable
// value turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		redact.Logf("failed to encode response: %v", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":{"message":"internal error","code":"internal_error"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		redact.Logf("failed to write response: %v", err)
	}
}

// statusFor maps a pipeline error to its HTTP status.
func statusFor(err error) int {
	switch service.ErrorCode(err) {
	case "invalid_input":
		return http.StatusBadRequest
	case "degenerate_signal":
		return http.StatusUnprocessableEntity
	case "shape_mismatch":
		return http.StatusInternalServerError
	case "model_unavailable":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// errorMessage keeps classifier internals out of client responses.
func errorMessage(err error) string {
	var (
		invalid    *signal.InvalidInputError
		degenerate *signal.DegenerateSignalError
		mismatch   *diagnosis.ShapeMismatchError
	)
	switch {
	case errors.As(err, &invalid), errors.As(err, &degenerate), errors.As(err, &mismatch):
		return err.Error()
	case statusFor(err) == http.StatusServiceUnavailable:
		return "model is not loaded"
	case statusFor(err) == http.StatusGatewayTimeout:
		return "diagnosis timed out"
	default:
		return "classifier error"
	}
}
