// Package ingest feeds heartbeat waveforms published by bedside devices over
// MQTT into the diagnose service and publishes the results back.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straja-ai/arrhythmia/internal/broker"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/service"
)

// Client is the slice of broker.Client used here.
type Client interface {
	Subscribe(ctx context.Context, topic string, h broker.Handler) error
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Config controls topics and limits.
type Config struct {
	// BeatTopic is an MQTT filter with a single "+" standing for the device id.
	BeatTopic string
	// ResultTopic may contain "{device}".
	ResultTopic string
	ProjectID   string
	MaxSamples  int
	Timeout     time.Duration
}

// Message is the beat payload a device publishes.
type Message struct {
	RequestID string    `json:"request_id,omitempty"`
	Signal    []float64 `json:"signal"`
}

// Result is published to the device's result topic.
type Result struct {
	RequestID      string             `json:"request_id"`
	Device         string             `json:"device"`
	ArrhythmiaType string             `json:"arrhythmia_type,omitempty"`
	Confidence     *float64           `json:"confidence,omitempty"`
	ClassID        *int               `json:"class_id,omitempty"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
	Flags          []string           `json:"flags,omitempty"`
	Error          string             `json:"error,omitempty"`
	Code           string             `json:"code,omitempty"`
}

// Ingestor is safe for concurrent message delivery.
type Ingestor struct {
	cfg       Config
	client    Client
	svc       *service.Service
	deviceIdx int
}

// New validates cfg and returns an Ingestor. Call Start to subscribe.
func New(cfg Config, client Client, svc *service.Service) (*Ingestor, error) {
	if client == nil || svc == nil {
		return nil, errors.New("ingest needs a client and a service")
	}
	idx, err := deviceSegment(cfg.BeatTopic)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ResultTopic) == "" {
		return nil, errors.New("result topic is empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Ingestor{cfg: cfg, client: client, svc: svc, deviceIdx: idx}, nil
}

// Start subscribes to the beat topic.
func (in *Ingestor) Start(ctx context.Context) error {
	if err := in.client.Subscribe(ctx, in.cfg.BeatTopic, in.handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", in.cfg.BeatTopic, err)
	}
	redact.Logf("ingest: listening on %s, replying on %s", in.cfg.BeatTopic, in.cfg.ResultTopic)
	return nil
}

func (in *Ingestor) handle(topic string, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), in.cfg.Timeout)
	defer cancel()

	res := in.Process(ctx, topic, payload)
	data, err := json.Marshal(res)
	if err != nil {
		redact.Logf("ingest: encode result for %s: %v", res.RequestID, err)
		data, _ = json.Marshal(Result{
			RequestID: res.RequestID,
			Device:    res.Device,
			Error:     "result could not be encoded",
			Code:      "internal_error",
		})
	}
	out := in.ResultTopicFor(res.Device)
	if err := in.client.Publish(ctx, out, data); err != nil {
		redact.Logf("ingest: publish %s: %v", out, err)
	}
}

// Process decodes one beat message and runs it through the service.
func (in *Ingestor) Process(ctx context.Context, topic string, payload []byte) Result {
	device := in.DeviceFor(topic)

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Result{Device: device, Error: "payload is not a beat message", Code: "invalid_json"}
	}
	if in.cfg.MaxSamples > 0 && len(msg.Signal) > in.cfg.MaxSamples {
		return Result{
			RequestID: msg.RequestID,
			Device:    device,
			Error:     fmt.Sprintf("signal has %d samples, limit is %d", len(msg.Signal), in.cfg.MaxSamples),
			Code:      "too_many_samples",
		}
	}

	r, err := in.svc.Diagnose(ctx, inference.Request{
		RequestID: msg.RequestID,
		ProjectID: in.cfg.ProjectID,
		Source:    inference.SourceMQTT,
		Samples:   msg.Signal,
	}, device)

	res := Result{RequestID: r.Event.RequestID, Device: device}
	if err != nil {
		res.Error = redact.String(err.Error())
		res.Code = service.ErrorCode(err)
		return res
	}
	rec := r.Response.Record
	res.ArrhythmiaType = rec.Category
	confidence := rec.Confidence
	res.Confidence = &confidence
	res.ClassID = classID(rec)
	res.Probabilities = r.Response.Probabilities
	res.Flags = r.Response.Flags
	return res
}

// UnknownDevice stands in for a topic without a usable device segment.
const UnknownDevice = "unknown"

// DeviceFor extracts the device id from a concrete beat topic.
func (in *Ingestor) DeviceFor(topic string) string {
	parts := strings.Split(topic, "/")
	if in.deviceIdx < len(parts) && parts[in.deviceIdx] != "" {
		return parts[in.deviceIdx]
	}
	return UnknownDevice
}

// ResultTopicFor renders the result topic for device.
func (in *Ingestor) ResultTopicFor(device string) string {
	if device == "" {
		device = UnknownDevice
	}
	return strings.ReplaceAll(in.cfg.ResultTopic, "{device}", device)
}

func classID(rec diagnosis.Record) *int {
	id := rec.ClassID
	return &id
}

// deviceSegment returns the position of the single "+" wildcard.
func deviceSegment(filter string) (int, error) {
	if strings.TrimSpace(filter) == "" {
		return 0, errors.New("beat topic is empty")
	}
	idx := -1
	for i, part := range strings.Split(filter, "/") {
		switch part {
		case "+":
			if idx >= 0 {
				return 0, fmt.Errorf("beat topic %q has more than one device wildcard", filter)
			}
			idx = i
		case "#":
			return 0, fmt.Errorf("beat topic %q must not use a multi-level wildcard", filter)
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("beat topic %q needs a + wildcard for the device id", filter)
	}
	return idx, nil
}
