package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/straja-ai/arrhythmia/internal/app"
	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/config"
)

var (
	configPath string
	useFake    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "arrhythmiactl",
	Short: "Offline tools for the ECG beat classifier",
	Long: `arrhythmiactl - run the ECG beat classifier without the HTTP service.

The model bundle, thresholds and activation sinks come from the same
config file the daemon reads. Pass --fake to replace the ONNX model with a
deterministic stand-in when no runtime is installed.

Examples:
  arrhythmiactl diagnose beat.json
  arrhythmiactl eval mitbih_test.csv --limit 2000
  arrhythmiactl ask "what is a fusion beat?"
  arrhythmiactl model activate v3`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "arrhythmia.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&useFake, "fake", false, "use a deterministic fake classifier instead of the ONNX model")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON output")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(modelCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildApp assembles the pipeline without MQTT ingest. The model is always
// required here since an offline run without one is useless.
func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts := app.Options{SkipMQTT: true}
	if useFake {
		opts.Classifier = classifier.Func(fakeClassify)
	} else {
		cfg.Model.Required = true
	}
	return app.Build(ctx, cfg, opts)
}
