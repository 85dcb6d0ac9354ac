package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/service"
)

type healthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelVersion string `json:"model_version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ModelLoaded:  s.svc.Pipeline.Ready(),
		ModelVersion: s.svc.Pipeline.ModelVersion(),
	})
}

type diagnoseRequest struct {
	RequestID string    `json:"request_id,omitempty"`
	Signal    []float64 `json:"signal"`
}

type diagnoseResponse struct {
	RequestID      string             `json:"request_id"`
	ArrhythmiaType string             `json:"arrhythmia_type"`
	Confidence     float64            `json:"confidence"`
	ClassID        int                `json:"class_id"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Flags          []string           `json:"flags"`
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var body diagnoseRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Signal == nil {
		writeError(w, http.StatusBadRequest, "missing signal", "invalid_input")
		return
	}
	if limit := s.cfg.Server.MaxSamples; limit > 0 && len(body.Signal) > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("signal has %d samples, limit is %d", len(body.Signal), limit), "too_many_samples")
		return
	}

	projectID := projectFrom(r.Context())
	req := inference.Request{
		RequestID: strings.TrimSpace(body.RequestID),
		ProjectID: projectID,
		Source:    inference.SourceHTTP,
		Samples:   body.Signal,
	}
	if req.RequestID == "" {
		req.RequestID = newRequestID()
	}
	w.Header().Set("X-Request-Id", req.RequestID)
	s.requests.Start(req.RequestID, projectID)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.svc.Diagnose(ctx, req, "")
	s.requests.Complete(req.RequestID, res.Event, err)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			redact.Logf("diagnose %s failed: %v", req.RequestID, err)
		}
		writeError(w, status, errorMessage(err), service.ErrorCode(err))
		return
	}

	rec := res.Response.Record
	writeJSON(w, http.StatusOK, diagnoseResponse{
		RequestID:      req.RequestID,
		ArrhythmiaType: rec.Category,
		Confidence:     rec.Confidence,
		ClassID:        rec.ClassID,
		Probabilities:  res.Response.Probabilities,
		Flags:          res.Response.Flags,
	})
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if !s.decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		writeError(w, http.StatusBadRequest, "missing question", "invalid_input")
		return
	}
	writeJSON(w, http.StatusOK, s.chat.Ask(body.Question))
}

type requestStatusResponse struct {
	RequestID  string `json:"request_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Activation any    `json:"activation"`
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.PathValue("id"))
	entry, ok := s.requests.Get(requestID)
	if !ok || entry.projectID != projectFrom(r.Context()) {
		writeError(w, http.StatusNotFound, "unknown request id", "not_found")
		return
	}
	resp := requestStatusResponse{RequestID: requestID, Status: entry.status, Error: entry.errCode}
	if entry.activation != nil {
		resp.Activation = entry.activation
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body bounded by max_request_body_bytes.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if limit := s.cfg.Server.MaxRequestBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "body_too_large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "invalid_json")
		return false
	}
	return true
}
