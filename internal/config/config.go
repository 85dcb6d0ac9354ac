// Package config loads arrhythmia.yaml.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the file is read.
const (
	EnvModelDir          = "ARRHYTHMIA_MODEL_DIR"
	EnvSharedLibraryPath = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
	EnvMQTTPassword      = "ARRHYTHMIA_MQTT_PASSWORD"
)

// Config holds the service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Model      ModelConfig      `yaml:"model"`
	Diagnosis  DiagnosisConfig  `yaml:"diagnosis"`
	Projects   []ProjectConfig  `yaml:"projects"`
	Logging    LoggingConfig    `yaml:"logging"`
	Activation ActivationConfig `yaml:"activation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

type ServerConfig struct {
	Addr                string        `yaml:"addr"` // HTTP listen address, e.g. ":8080"
	MaxRequestBodyBytes int64         `yaml:"max_request_body_bytes"`
	MaxInFlightRequests int           `yaml:"max_in_flight_requests"`
	MaxSamples          int           `yaml:"max_samples"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout   time.Duration `yaml:"read_header_timeout"`
	RequestStatusTTL    time.Duration `yaml:"request_status_ttl"`
	Console             bool          `yaml:"console"` // serve the browser client at /console
}

type ModelConfig struct {
	// Dir is either a bundle dir holding model.onnx or a base dir with state.json.
	Dir               string `yaml:"dir"`
	File              string `yaml:"file"`
	SharedLibraryPath string `yaml:"shared_library_path"`
	OutputKind        string `yaml:"output_kind"` // probabilities | logits
	MaxSessions       int    `yaml:"max_sessions"`
	IntraThreads      int    `yaml:"intra_threads"`
	InterThreads      int    `yaml:"inter_threads"`
	// Required makes a failed model load fatal instead of serving 503s.
	Required bool `yaml:"required"`
}

type DiagnosisConfig struct {
	WarnConfidence float64 `yaml:"warn_confidence"`
}

type ProjectConfig struct {
	ID      string   `yaml:"id"`
	APIKeys []string `yaml:"api_keys"`
}

type LoggingConfig struct {
	ActivationLevel string `yaml:"activation_level"` // metadata | full
}

type ActivationConfig struct {
	Enabled   bool                   `yaml:"enabled"`
	QueueSize int                    `yaml:"queue_size"`
	Workers   int                    `yaml:"workers"`
	Sinks     []ActivationSinkConfig `yaml:"sinks"`
}

type ActivationSinkConfig struct {
	Type    string            `yaml:"type"` // stdout | file_jsonl | webhook | mqtt
	Path    string            `yaml:"path"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
	Retries int               `yaml:"retries"`
	Topic   string            `yaml:"topic"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	BeatTopic   string `yaml:"beat_topic"`
	ResultTopic string `yaml:"result_topic"`
	ProjectID   string `yaml:"project_id"`
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := defaultConfig()
	applyDefaults(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			MaxRequestBodyBytes: 1 << 20,
			MaxInFlightRequests: 64,
			MaxSamples:          10000,
			RequestTimeout:      10 * time.Second,
			ReadHeaderTimeout:   5 * time.Second,
			RequestStatusTTL:    15 * time.Minute,
		},
		Model: ModelConfig{
			Dir:         "./model",
			OutputKind:  "probabilities",
			MaxSessions: 2,
		},
		Projects: []ProjectConfig{},
		Logging: LoggingConfig{
			ActivationLevel: "metadata",
		},
		Activation: ActivationConfig{
			QueueSize: 1000,
			Workers:   2,
		},
		Telemetry: TelemetryConfig{
			Protocol: "grpc",
		},
		MQTT: MQTTConfig{
			QoS:         1,
			BeatTopic:   "ecg/+/beat",
			ResultTopic: "ecg/{device}/diagnosis",
		},
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvModelDir)); v != "" {
		cfg.Model.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSharedLibraryPath)); v != "" {
		cfg.Model.SharedLibraryPath = v
	}
	if v := os.Getenv(EnvMQTTPassword); v != "" {
		cfg.MQTT.Password = v
	}
}

// applyDefaults fills zero values a partial file left behind.
func applyDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		cfg.Server.MaxRequestBodyBytes = def.Server.MaxRequestBodyBytes
	}
	if cfg.Server.MaxInFlightRequests <= 0 {
		cfg.Server.MaxInFlightRequests = def.Server.MaxInFlightRequests
	}
	if cfg.Server.MaxSamples <= 0 {
		cfg.Server.MaxSamples = def.Server.MaxSamples
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = def.Server.RequestTimeout
	}
	if cfg.Server.ReadHeaderTimeout <= 0 {
		cfg.Server.ReadHeaderTimeout = def.Server.ReadHeaderTimeout
	}
	if cfg.Server.RequestStatusTTL <= 0 {
		cfg.Server.RequestStatusTTL = def.Server.RequestStatusTTL
	}

	if cfg.Model.OutputKind == "" {
		cfg.Model.OutputKind = def.Model.OutputKind
	}
	if cfg.Model.MaxSessions <= 0 {
		cfg.Model.MaxSessions = def.Model.MaxSessions
	}

	if cfg.Logging.ActivationLevel == "" {
		cfg.Logging.ActivationLevel = def.Logging.ActivationLevel
	}
	if cfg.Activation.QueueSize <= 0 {
		cfg.Activation.QueueSize = def.Activation.QueueSize
	}
	if cfg.Activation.Workers <= 0 {
		cfg.Activation.Workers = def.Activation.Workers
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = def.Telemetry.Protocol
	}

	if cfg.MQTT.BeatTopic == "" {
		cfg.MQTT.BeatTopic = def.MQTT.BeatTopic
	}
	if cfg.MQTT.ResultTopic == "" {
		cfg.MQTT.ResultTopic = def.MQTT.ResultTopic
	}
}

// ProjectForKey returns the project owning apiKey.
func (c *Config) ProjectForKey(apiKey string) (ProjectConfig, bool) {
	for _, p := range c.Projects {
		for _, k := range p.APIKeys {
			if k == apiKey {
				return p, true
			}
		}
	}
	return ProjectConfig{}, false
}
