package config

import (
	"strings"
	"testing"
)

func validBase() *Config {
	cfg := Default()
	cfg.Projects = []ProjectConfig{{ID: "ward-7", APIKeys: []string{"k1"}}}
	return cfg
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"missing model dir", func(c *Config) { c.Model.Dir = " " }, "model.dir"},
		{"bad output kind", func(c *Config) { c.Model.OutputKind = "scores" }, "output_kind"},
		{"warn out of range", func(c *Config) { c.Diagnosis.WarnConfidence = 1.5 }, "warn_confidence"},
		{"project without id", func(c *Config) { c.Projects = []ProjectConfig{{APIKeys: []string{"k"}}} }, "project id"},
		{"project without keys", func(c *Config) { c.Projects = []ProjectConfig{{ID: "p"}} }, "api_keys"},
		{"duplicate project", func(c *Config) {
			c.Projects = append(c.Projects, ProjectConfig{ID: "ward-7", APIKeys: []string{"k2"}})
		}, "defined twice"},
		{"shared api key", func(c *Config) {
			c.Projects = append(c.Projects, ProjectConfig{ID: "ward-8", APIKeys: []string{"k1"}})
		}, "also used"},
		{"bad activation level", func(c *Config) { c.Logging.ActivationLevel = "verbose" }, "activation_level"},
		{"file sink without path", func(c *Config) {
			c.Activation.Sinks = []ActivationSinkConfig{{Type: "file_jsonl"}}
		}, "missing path"},
		{"webhook sink bad scheme", func(c *Config) {
			c.Activation.Sinks = []ActivationSinkConfig{{Type: "webhook", URL: "ftp://hooks.example.test/x"}}
		}, "http or https"},
		{"mqtt sink without broker", func(c *Config) {
			c.Activation.Sinks = []ActivationSinkConfig{{Type: "mqtt", Topic: "arrhythmia/events"}}
		}, "mqtt.broker"},
		{"unknown sink", func(c *Config) {
			c.Activation.Sinks = []ActivationSinkConfig{{Type: "kafka"}}
		}, "unknown type"},
		{"mqtt without broker", func(c *Config) { c.MQTT.Enabled = true }, "broker is empty"},
		{"mqtt bad scheme", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = "http://broker:1883"
		}, "scheme"},
		{"mqtt topic without wildcard", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = "tcp://broker:1883"
			c.MQTT.BeatTopic = "ecg/beat"
		}, "beat_topic"},
		{"mqtt bad qos", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker = "tcp://broker:1883"
			c.MQTT.QoS = 3
		}, "qos"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }, "endpoint"},
		{"telemetry bad protocol", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = "localhost:4317"
			c.Telemetry.Protocol = "udp"
		}, "grpc or http"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBase()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			} else if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should be valid, got %v", err)
	}

	cfg := validBase()
	cfg.MQTT = MQTTConfig{Enabled: true, Broker: "tcp://broker.local:1883", QoS: 1, BeatTopic: "ecg/+/beat", ResultTopic: "ecg/{device}/diagnosis"}
	cfg.Activation.Sinks = []ActivationSinkConfig{
		{Type: "stdout"},
		{Type: "file_jsonl", Path: "/tmp/events.jsonl"},
		{Type: "webhook", URL: "https://hooks.example.test/ecg", Retries: 2},
		{Type: "mqtt", Topic: "arrhythmia/{project}/events"},
	}
	cfg.Telemetry = TelemetryConfig{Enabled: true, Endpoint: "localhost:4318", Protocol: "http"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	if err := Validate(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
