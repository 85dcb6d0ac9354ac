// Package app assembles the pipeline, activation, telemetry and MQTT pieces
// from a loaded config. Commands share it so the daemon, the CLI and the
// benchmark run the same wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/straja-ai/arrhythmia/internal/activation"
	"github.com/straja-ai/arrhythmia/internal/broker"
	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/config"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/ingest"
	"github.com/straja-ai/arrhythmia/internal/redact"
	"github.com/straja-ai/arrhythmia/internal/service"
	"github.com/straja-ai/arrhythmia/internal/telemetry"
)

// Version is reported to telemetry as service.version.
var Version = "dev"

// App owns every long-lived component built from the config.
type App struct {
	Config    *config.Config
	Service   *service.Service
	Emitter   *activation.Emitter
	Telemetry *telemetry.Provider
	Broker    *broker.Client
	Ingestor  *ingest.Ingestor
}

// Options tweaks Build for commands that need less than the daemon.
type Options struct {
	// Classifier replaces the ONNX model, e.g. for fake runs.
	Classifier classifier.Classifier
	// SkipMQTT leaves the broker disconnected even when configured.
	SkipMQTT bool
	// SkipActivation disables activation sinks.
	SkipActivation bool
}

// Build wires everything. A model that fails to load yields an Unavailable
// classifier unless model.required is set.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	c, version := opts.Classifier, ""
	if c == nil {
		var err error
		c, version, err = LoadClassifier(cfg.Model)
		if err != nil {
			if cfg.Model.Required {
				return nil, err
			}
			redact.Logf("model unavailable, diagnose requests will return 503: %v", err)
			c = classifier.Unavailable{Reason: err.Error()}
		}
	}

	pipeline, err := inference.New(c,
		inference.WithThresholds(diagnosis.Thresholds{Warn: cfg.Diagnosis.WarnConfidence}),
		inference.WithModelVersion(version),
	)
	if err != nil {
		return nil, err
	}

	a.Telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "arrhythmia",
		Version:  Version,
	})
	if err != nil {
		pipeline.Close()
		return nil, err
	}

	needBroker := !opts.SkipMQTT && (cfg.MQTT.Enabled || hasSink(cfg.Activation.Sinks, "mqtt"))
	if needBroker && strings.TrimSpace(cfg.MQTT.Broker) != "" {
		a.Broker, err = broker.Connect(broker.Config{
			URL:      cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      byte(cfg.MQTT.QoS),
		})
		if err != nil {
			a.Close(ctx)
			pipeline.Close()
			return nil, fmt.Errorf("mqtt: %w", err)
		}
	}

	if cfg.Activation.Enabled && !opts.SkipActivation {
		var pub activation.Publisher
		if a.Broker != nil {
			pub = a.Broker
		}
		sinks, err := BuildSinks(cfg.Activation.Sinks, pub)
		if err != nil {
			a.Close(ctx)
			pipeline.Close()
			return nil, err
		}
		a.Emitter = activation.NewEmitter(activation.EmitterConfig{
			QueueSize: cfg.Activation.QueueSize,
			Workers:   cfg.Activation.Workers,
		}, sinks)
	}

	a.Service = &service.Service{
		Pipeline:     pipeline,
		Telemetry:    a.Telemetry,
		LoggingLevel: cfg.Logging.ActivationLevel,
	}
	if a.Emitter != nil {
		a.Service.Emitter = a.Emitter
	}

	if cfg.MQTT.Enabled && a.Broker != nil {
		a.Ingestor, err = ingest.New(ingest.Config{
			BeatTopic:   cfg.MQTT.BeatTopic,
			ResultTopic: cfg.MQTT.ResultTopic,
			ProjectID:   cfg.MQTT.ProjectID,
			MaxSamples:  cfg.Server.MaxSamples,
			Timeout:     cfg.Server.RequestTimeout,
		}, a.Broker, a.Service)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

// LoadClassifier resolves the active bundle under mc.Dir and loads it.
func LoadClassifier(mc config.ModelConfig) (classifier.Classifier, string, error) {
	dir, version, err := classifier.ResolveBundleDir(mc.Dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolve model bundle: %w", err)
	}
	m, err := classifier.LoadModel(dir, classifier.RuntimeSettings{
		ModelFile:         mc.File,
		SharedLibraryPath: mc.SharedLibraryPath,
		OutputKind:        mc.OutputKind,
		MaxSessions:       mc.MaxSessions,
		IntraThreads:      mc.IntraThreads,
		InterThreads:      mc.InterThreads,
	})
	if err != nil {
		return nil, "", err
	}
	return m, version, nil
}

// BuildSinks turns sink configs into activation sinks. pub is required only
// for mqtt sinks.
func BuildSinks(cfgs []config.ActivationSinkConfig, pub activation.Publisher) ([]activation.Sink, error) {
	sinks := make([]activation.Sink, 0, len(cfgs))
	for i, sc := range cfgs {
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "stdout":
			sinks = append(sinks, activation.NewStdoutSink())
		case "file_jsonl":
			s, err := activation.NewFileSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("activation sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := activation.NewWebhookSink(sc.URL, activation.WebhookOptions{
				Headers: sc.Headers,
				Timeout: sc.Timeout,
				Retries: sc.Retries,
			})
			if err != nil {
				return nil, fmt.Errorf("activation sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		case "mqtt":
			if pub == nil {
				return nil, fmt.Errorf("activation sink %d: mqtt sink needs a broker connection", i)
			}
			s, err := activation.NewMQTTSink(pub, sc.Topic)
			if err != nil {
				return nil, fmt.Errorf("activation sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("activation sink %d has unknown type %q", i, sc.Type)
		}
	}
	return sinks, nil
}

// Start begins MQTT ingest when configured.
func (a *App) Start(ctx context.Context) error {
	if a.Ingestor == nil {
		return nil
	}
	return a.Ingestor.Start(ctx)
}

// Close releases components in reverse dependency order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Emitter != nil {
		a.Emitter.Close(ctx)
	}
	if a.Broker != nil {
		a.Broker.Close()
	}
	if a.Service != nil && a.Service.Pipeline != nil {
		if err := a.Service.Pipeline.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close classifier: %w", err))
		}
	}
	if a.Telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		a.Telemetry.Shutdown(shutdownCtx)
		cancel()
	}
	return errors.Join(errs...)
}

func hasSink(sinks []config.ActivationSinkConfig, typ string) bool {
	for _, s := range sinks {
		if strings.EqualFold(strings.TrimSpace(s.Type), typ) {
			return true
		}
	}
	return false
}
