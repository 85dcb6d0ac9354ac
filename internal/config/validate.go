package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if strings.TrimSpace(cfg.Model.Dir) == "" {
		return errors.New("model.dir must be set")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Model.OutputKind)) {
	case "", "probabilities", "logits":
	default:
		return fmt.Errorf("model.output_kind must be probabilities or logits, got %q", cfg.Model.OutputKind)
	}
	if cfg.Diagnosis.WarnConfidence < 0 || cfg.Diagnosis.WarnConfidence > 1 {
		return fmt.Errorf("diagnosis.warn_confidence must be within [0,1], got %g", cfg.Diagnosis.WarnConfidence)
	}

	seenIDs := map[string]bool{}
	seenKeys := map[string]string{}
	for _, p := range cfg.Projects {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return errors.New("project id must be set")
		}
		if seenIDs[id] {
			return fmt.Errorf("project %q defined twice", id)
		}
		seenIDs[id] = true
		if len(p.APIKeys) == 0 {
			return fmt.Errorf("project %q must define at least one api_keys entry", id)
		}
		for _, k := range p.APIKeys {
			if strings.TrimSpace(k) == "" {
				return fmt.Errorf("project %q has an empty api key", id)
			}
			if owner, dup := seenKeys[k]; dup {
				return fmt.Errorf("api key of project %q is also used by project %q", id, owner)
			}
			seenKeys[k] = id
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.ActivationLevel)) {
	case "", "metadata", "full":
	default:
		return fmt.Errorf("logging.activation_level must be metadata or full, got %q", cfg.Logging.ActivationLevel)
	}

	if err := validateMQTTConfig(cfg.MQTT); err != nil {
		return err
	}
	if err := validateActivationConfig(cfg.Activation, cfg.MQTT); err != nil {
		return err
	}
	return validateTelemetryConfig(cfg.Telemetry)
}

func validateActivationConfig(a ActivationConfig, m MQTTConfig) error {
	for i, s := range a.Sinks {
		switch strings.ToLower(strings.TrimSpace(s.Type)) {
		case "stdout":
		case "file_jsonl":
			if strings.TrimSpace(s.Path) == "" {
				return fmt.Errorf("activation sink %d (file_jsonl) missing path", i)
			}
		case "webhook":
			if strings.TrimSpace(s.URL) == "" {
				return fmt.Errorf("activation sink %d (webhook) missing url", i)
			}
			u, err := url.Parse(s.URL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("activation sink %d (webhook) has invalid url", i)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("activation sink %d (webhook) url must be http or https", i)
			}
			if s.Retries < 0 {
				return fmt.Errorf("activation sink %d (webhook) retries must not be negative", i)
			}
		case "mqtt":
			if strings.TrimSpace(s.Topic) == "" {
				return fmt.Errorf("activation sink %d (mqtt) missing topic", i)
			}
			if strings.TrimSpace(m.Broker) == "" {
				return fmt.Errorf("activation sink %d (mqtt) needs mqtt.broker", i)
			}
		default:
			return fmt.Errorf("activation sink %d has unknown type %q", i, s.Type)
		}
	}
	return nil
}

func validateMQTTConfig(m MQTTConfig) error {
	if !m.Enabled {
		return nil
	}
	if strings.TrimSpace(m.Broker) == "" {
		return errors.New("mqtt enabled but broker is empty")
	}
	u, err := url.Parse(m.Broker)
	if err != nil || u.Host == "" {
		return fmt.Errorf("mqtt.broker %q is not a url", m.Broker)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "mqtt", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("mqtt.broker scheme %q is not supported", u.Scheme)
	}
	if m.QoS < 0 || m.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", m.QoS)
	}
	if strings.Count(m.BeatTopic, "+") != 1 || strings.Contains(m.BeatTopic, "#") {
		return fmt.Errorf("mqtt.beat_topic %q needs exactly one + wildcard for the device id", m.BeatTopic)
	}
	if strings.TrimSpace(m.ResultTopic) == "" {
		return errors.New("mqtt.result_topic must be set")
	}
	return nil
}

func validateTelemetryConfig(t TelemetryConfig) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Endpoint) == "" {
		return errors.New("telemetry enabled but endpoint is empty")
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("telemetry.protocol must be grpc or http, got %q", t.Protocol)
	}
	return nil
}
