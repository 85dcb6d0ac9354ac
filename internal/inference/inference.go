// Package inference wires signal conditioning, the classifier and the
// diagnosis mapper into one request-scoped pipeline.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

// Sources a request can arrive from.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

// ErrModelUnavailable is returned when the pipeline has no usable classifier.
var ErrModelUnavailable = errors.New("model unavailable")

// Request is one single-beat classification request.
type Request struct {
	RequestID string
	ProjectID string
	Source    string
	Samples   []float64
}

// Response is the outcome of a successful Diagnose call.
type Response struct {
	Record        diagnosis.Record
	Probabilities map[string]float64
	Flags         []string
	Timings       Timings
}

// Timings holds latency measurements for each pipeline stage.
type Timings struct {
	Conditioning time.Duration
	Inference    time.Duration
	Mapping      time.Duration
	Total        time.Duration
}

// Pipeline holds no per-request state and is safe for concurrent use as long
// as its classifier is.
type Pipeline struct {
	conditioner *signal.Conditioner
	classifier  classifier.Classifier
	thresholds  diagnosis.Thresholds
	version     string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithThresholds sets the confidence flag thresholds.
func WithThresholds(t diagnosis.Thresholds) Option {
	return func(p *Pipeline) { p.thresholds = t }
}

// WithModelVersion records the bundle version served by the classifier.
func WithModelVersion(v string) Option {
	return func(p *Pipeline) { p.version = v }
}

// New builds a pipeline around c. A nil c is treated as not loaded.
func New(c classifier.Classifier, opts ...Option) (*Pipeline, error) {
	cond, err := signal.NewConditioner()
	if err != nil {
		return nil, fmt.Errorf("build conditioner: %w", err)
	}
	if c == nil {
		c = classifier.Unavailable{}
	}
	p := &Pipeline{conditioner: cond, classifier: c}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Ready reports whether a model is loaded.
func (p *Pipeline) Ready() bool {
	return p != nil && classifier.Available(p.classifier)
}

// ModelVersion is the active bundle version, or "" for unversioned bundles.
func (p *Pipeline) ModelVersion() string {
	return p.version
}

// Diagnose conditions the samples, runs the classifier and maps the output.
// Errors from the signal and diagnosis packages come back unwrapped so
// callers can match them with errors.As.
func (p *Pipeline) Diagnose(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	var timings Timings

	t, err := p.conditioner.Condition(req.Samples)
	timings.Conditioning = time.Since(start)
	if err != nil {
		return nil, err
	}

	if !p.Ready() {
		return nil, ErrModelUnavailable
	}

	inferStart := time.Now()
	probs, err := p.classifier.Classify(ctx, t)
	timings.Inference = time.Since(inferStart)
	if err != nil {
		if errors.Is(err, classifier.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return nil, fmt.Errorf("classify: %w", err)
	}

	mapStart := time.Now()
	rec, err := diagnosis.Map(probs)
	if err != nil {
		return nil, err
	}
	resp := &Response{
		Record:        rec,
		Probabilities: diagnosis.Probabilities(probs),
		Flags:         p.thresholds.Flags(rec),
	}
	timings.Mapping = time.Since(mapStart)
	timings.Total = time.Since(start)
	resp.Timings = timings
	return resp, nil
}

// Close releases the classifier.
func (p *Pipeline) Close() error {
	if p == nil || p.classifier == nil {
		return nil
	}
	return p.classifier.Close()
}
