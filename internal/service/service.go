// Package service runs diagnose requests through the pipeline and records the
// outcome as an activation event and telemetry, whatever transport the
// request arrived on.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/straja-ai/arrhythmia/internal/activation"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/signal"
	"github.com/straja-ai/arrhythmia/internal/telemetry"
)

// Emitter is the part of activation.Emitter the service needs.
type Emitter interface {
	Emit(*activation.Event)
}

// Service is safe for concurrent use.
type Service struct {
	Pipeline     *inference.Pipeline
	Emitter      Emitter
	Telemetry    *telemetry.Provider
	LoggingLevel string
}

// Result bundles everything a transport needs to answer a request.
type Result struct {
	Response *inference.Response
	Event    *activation.Event
	Decision activation.Decision
}

// Diagnose runs req and always returns a Result carrying the activation
// event, even when err is non-nil.
func (s *Service) Diagnose(ctx context.Context, req inference.Request, device string) (Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	start := time.Now()

	ctx, span := s.Telemetry.StartSpan(ctx, "arrhythmia.diagnose", map[string]interface{}{
		"arrhythmia.request_id": req.RequestID,
		"arrhythmia.source":     req.Source,
		"arrhythmia.device":     device,
		"arrhythmia.length":     len(req.Samples),
	})
	defer span.End()

	resp, err := s.Pipeline.Diagnose(ctx, req)
	decision := Decide(err)

	ev := activation.BuildEvent(activation.BuildParams{
		Request:      req,
		Response:     resp,
		Decision:     decision,
		Err:          err,
		Device:       device,
		ModelVersion: s.Pipeline.ModelVersion(),
		LoggingLevel: s.LoggingLevel,
	})
	if s.Emitter != nil {
		s.Emitter.Emit(ev)
	}

	obs := telemetry.Observation{
		Source:    req.Source,
		ProjectID: req.ProjectID,
		Outcome:   string(decision),
		Total:     time.Since(start),
	}
	if resp != nil {
		obs.Category = resp.Record.Category
		obs.Conditioning = resp.Timings.Conditioning
		obs.Inference = resp.Timings.Inference
		span.SetAttributes(telemetry.SafeAttributes(map[string]interface{}{
			"arrhythmia.category":   resp.Record.Category,
			"arrhythmia.confidence": resp.Record.Confidence,
		})...)
	}
	if err != nil {
		span.RecordError(err)
	}
	s.Telemetry.Record(ctx, obs)

	return Result{Response: resp, Event: ev, Decision: decision}, err
}

// Decide maps a pipeline error to an activation decision.
func Decide(err error) activation.Decision {
	if err == nil {
		return activation.DecisionDiagnosed
	}
	var invalid *signal.InvalidInputError
	var degenerate *signal.DegenerateSignalError
	switch {
	case errors.As(err, &invalid):
		return activation.DecisionRejected
	case errors.As(err, &degenerate):
		return activation.DecisionDegenerate
	default:
		return activation.DecisionModelError
	}
}

// ErrorCode is the stable machine-readable name of a pipeline error.
func ErrorCode(err error) string {
	var (
		invalid    *signal.InvalidInputError
		degenerate *signal.DegenerateSignalError
		mismatch   *diagnosis.ShapeMismatchError
		badOutput  *diagnosis.InvalidOutputError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return "invalid_input"
	case errors.As(err, &degenerate):
		return "degenerate_signal"
	case errors.As(err, &mismatch):
		return "shape_mismatch"
	case errors.As(err, &badOutput):
		return "classifier_error"
	case errors.Is(err, inference.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "classifier_error"
	}
}
