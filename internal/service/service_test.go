package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/arrhythmia/internal/activation"
	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/signal"
	"github.com/straja-ai/arrhythmia/internal/telemetry"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*activation.Event
}

func (c *captureEmitter) Emit(ev *activation.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func newService(t *testing.T, c classifier.Classifier) (*Service, *captureEmitter) {
	t.Helper()
	p, err := inference.New(c, inference.WithModelVersion("v1"))
	require.NoError(t, err)
	em := &captureEmitter{}
	return &Service{Pipeline: p, Emitter: em, Telemetry: telemetry.Noop(), LoggingLevel: activation.LevelMetadata}, em
}

func beat() []float64 {
	out := make([]float64, 187)
	for i := range out {
		out[i] = math.Sin(float64(i) / 5)
	}
	return out
}

func TestDiagnoseEmitsEvent(t *testing.T) {
	svc, em := newService(t, classifier.Func(func(context.Context, signal.Tensor) ([]float32, error) {
		return []float32{0.9, 0.05, 0.02, 0.02, 0.01}, nil
	}))

	res, err := svc.Diagnose(context.Background(), inference.Request{ProjectID: "ward-7", Source: inference.SourceHTTP, Samples: beat()}, "")
	require.NoError(t, err)
	assert.Equal(t, activation.DecisionDiagnosed, res.Decision)
	assert.Equal(t, "Normal", res.Response.Record.Category)
	require.Len(t, em.events, 1)
	assert.NotEmpty(t, em.events[0].RequestID)
	assert.Equal(t, "v1", em.events[0].Meta.ModelVersion)
	assert.Same(t, res.Event, em.events[0])
}

func TestDiagnoseEmitsEventOnError(t *testing.T) {
	svc, em := newService(t, nil)

	res, err := svc.Diagnose(context.Background(), inference.Request{RequestID: "r1", Samples: beat()}, "bed-3")
	require.ErrorIs(t, err, inference.ErrModelUnavailable)
	assert.Equal(t, activation.DecisionModelError, res.Decision)
	require.Len(t, em.events, 1)
	assert.Equal(t, "r1", em.events[0].RequestID)
	assert.Equal(t, "bed-3", em.events[0].Meta.Device)
	assert.NotEmpty(t, em.events[0].Error)
}

func TestDecideAndErrorCode(t *testing.T) {
	cases := []struct {
		err      error
		decision activation.Decision
		code     string
	}{
		{nil, activation.DecisionDiagnosed, ""},
		{&signal.InvalidInputError{Reason: "empty waveform", Index: -1}, activation.DecisionRejected, "invalid_input"},
		{&signal.DegenerateSignalError{}, activation.DecisionDegenerate, "degenerate_signal"},
		{&diagnosis.ShapeMismatchError{Got: 3, Want: 5}, activation.DecisionModelError, "shape_mismatch"},
		{fmt.Errorf("wrapped: %w", inference.ErrModelUnavailable), activation.DecisionModelError, "model_unavailable"},
		{context.DeadlineExceeded, activation.DecisionModelError, "timeout"},
		{errors.New("onnx run: boom"), activation.DecisionModelError, "classifier_error"},
		{&diagnosis.InvalidOutputError{Index: 0, Value: math.NaN()}, activation.DecisionModelError, "classifier_error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.decision, Decide(tc.err), "decide %v", tc.err)
		assert.Equal(t, tc.code, ErrorCode(tc.err), "code %v", tc.err)
	}
}
