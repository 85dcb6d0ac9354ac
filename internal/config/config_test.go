package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvModelDir, "")
	t.Setenv(EnvSharedLibraryPath, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Model.Dir != "./model" || cfg.Server.MaxSamples != 10000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvModelDir, "")
	t.Setenv(EnvSharedLibraryPath, "")
	path := filepath.Join(t.TempDir(), "arrhythmia.yaml")
	data := `
server:
  addr: ":9090"
  request_timeout: 3s
model:
  dir: /srv/models/ecg
  output_kind: logits
diagnosis:
  warn_confidence: 0.6
projects:
  - id: ward-7
    api_keys: ["k1"]
mqtt:
  enabled: true
  broker: tcp://broker.local:1883
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.RequestTimeout != 3*time.Second {
		t.Fatalf("server section not applied: %+v", cfg.Server)
	}
	if cfg.Server.MaxInFlightRequests != 64 || cfg.Model.MaxSessions != 2 {
		t.Fatalf("defaults lost: %+v %+v", cfg.Server, cfg.Model)
	}
	if cfg.Model.Dir != "/srv/models/ecg" || cfg.Model.OutputKind != "logits" {
		t.Fatalf("model section not applied: %+v", cfg.Model)
	}
	if cfg.MQTT.BeatTopic != "ecg/+/beat" || cfg.MQTT.QoS != 1 {
		t.Fatalf("mqtt defaults lost: %+v", cfg.MQTT)
	}
	if p, ok := cfg.ProjectForKey("k1"); !ok || p.ID != "ward-7" {
		t.Fatalf("project lookup failed")
	}
	if _, ok := cfg.ProjectForKey("nope"); ok {
		t.Fatal("unexpected project for unknown key")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvModelDir, "/opt/bundles")
	t.Setenv(EnvSharedLibraryPath, "/opt/ort/libonnxruntime.so")
	t.Setenv(EnvMQTTPassword, "pw")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Dir != "/opt/bundles" || cfg.Model.SharedLibraryPath != "/opt/ort/libonnxruntime.so" || cfg.MQTT.Password != "pw" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Model, cfg.MQTT)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := Load("../../arrhythmia.example.yaml")
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("example config invalid: %v", err)
	}
	if !cfg.Server.Console || len(cfg.Activation.Sinks) != 2 || cfg.Projects[0].ID != "ward-7" {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
}
