// Package activation builds per-request diagnosis events and ships them to
// configured sinks off the request path.
package activation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/redact"
)

// EventVersion is bumped whenever the event schema changes shape.
const EventVersion = "1"

// Decision is the outcome of a diagnose request.
type Decision string

const (
	DecisionDiagnosed  Decision = "diagnosed"
	DecisionRejected   Decision = "rejected"
	DecisionDegenerate Decision = "degenerate"
	DecisionModelError Decision = "model_error"
)

// Logging levels.
const (
	LevelMetadata = "metadata"
	LevelFull     = "full"
)

// PreviewSamples caps the number of raw samples copied into a full-level event.
const PreviewSamples = 32

// Meta identifies who sent the request and which model answered.
type Meta struct {
	ProjectID    string `json:"project_id,omitempty"`
	Source       string `json:"source"`
	Device       string `json:"device,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
}

// Diagnosis mirrors the response returned to the caller.
type Diagnosis struct {
	ArrhythmiaType string             `json:"arrhythmia_type"`
	Confidence     float64            `json:"confidence"`
	ClassID        int                `json:"class_id"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
}

// Input describes the submitted waveform.
type Input struct {
	Samples int       `json:"samples"`
	Preview []float64 `json:"preview,omitempty"`
}

// TimingMs holds stage latencies in milliseconds.
type TimingMs struct {
	Conditioning float64 `json:"conditioning"`
	Inference    float64 `json:"inference"`
	Mapping      float64 `json:"mapping"`
	Total        float64 `json:"total"`
}

// Event is the activation payload written to every sink.
type Event struct {
	Version   string     `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	RequestID string     `json:"request_id"`
	Decision  Decision   `json:"decision"`
	Meta      Meta       `json:"meta"`
	Input     Input      `json:"input"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
	Flags     []string   `json:"flags,omitempty"`
	Error     string     `json:"error,omitempty"`
	TimingMs  TimingMs   `json:"timing_ms"`
}

// BuildParams collects the inputs of one event.
type BuildParams struct {
	Request      inference.Request
	Response     *inference.Response
	Decision     Decision
	Err          error
	Device       string
	ModelVersion string
	LoggingLevel string
}

// BuildEvent assembles an event. A missing request id is replaced with a fresh UUID.
func BuildEvent(p BuildParams) *Event {
	requestID := strings.TrimSpace(p.Request.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	ev := &Event{
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		Decision:  p.Decision,
		Meta: Meta{
			ProjectID:    p.Request.ProjectID,
			Source:       p.Request.Source,
			Device:       p.Device,
			ModelVersion: p.ModelVersion,
		},
		Input: Input{Samples: len(p.Request.Samples)},
	}
	if strings.EqualFold(strings.TrimSpace(p.LoggingLevel), LevelFull) {
		ev.Input.Preview = preview(p.Request.Samples, PreviewSamples)
	}
	if p.Err != nil {
		ev.Error = redact.String(p.Err.Error())
	}
	if p.Response != nil {
		rec := p.Response.Record
		ev.Diagnosis = &Diagnosis{
			ArrhythmiaType: rec.Category,
			Confidence:     rec.Confidence,
			ClassID:        rec.ClassID,
			Probabilities:  cloneProbabilities(p.Response.Probabilities),
		}
		if len(p.Response.Flags) > 0 {
			ev.Flags = append([]string(nil), p.Response.Flags...)
		}
		t := p.Response.Timings
		ev.TimingMs = TimingMs{
			Conditioning: durationMillis(t.Conditioning),
			Inference:    durationMillis(t.Inference),
			Mapping:      durationMillis(t.Mapping),
			Total:        durationMillis(t.Total),
		}
	}
	return ev
}

// LogEvent prints a redacted JSON representation of the event.
func LogEvent(ev *Event) {
	if ev == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		redact.Logf("activation: failed to marshal event: %v", err)
		return
	}
	redact.Logf("activation: %s", string(data))
}

func preview(samples []float64, n int) []float64 {
	if len(samples) == 0 {
		return nil
	}
	if len(samples) < n {
		n = len(samples)
	}
	out := make([]float64, n)
	copy(out, samples[:n])
	return out
}

func cloneProbabilities(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
