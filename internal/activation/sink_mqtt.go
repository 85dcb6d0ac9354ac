package activation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Publisher is the slice of an MQTT client the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// MQTTSink publishes events to a broker topic. "{project}" and "{source}" in
// the topic are replaced from the event meta.
type MQTTSink struct {
	pub   Publisher
	topic string
}

func NewMQTTSink(pub Publisher, topic string) (*MQTTSink, error) {
	if pub == nil {
		return nil, errors.New("mqtt publisher is nil")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("mqtt topic is empty")
	}
	return &MQTTSink{pub: pub, topic: topic}, nil
}

func (s *MQTTSink) Name() string { return "mqtt:" + s.topic }

func (s *MQTTSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return s.pub.Publish(ctx, s.topicFor(ev), payload)
}

func (s *MQTTSink) topicFor(ev *Event) string {
	project := ev.Meta.ProjectID
	if project == "" {
		project = "default"
	}
	return strings.NewReplacer("{project}", project, "{source}", ev.Meta.Source).Replace(s.topic)
}

// Close leaves the shared client open; its owner disconnects it.
func (s *MQTTSink) Close(context.Context) error { return nil }
