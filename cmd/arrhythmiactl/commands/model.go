package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/straja-ai/arrhythmia/internal/classifier"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage versioned model bundles",
	Long: `Manage versioned model bundles under model.dir.

Bundles live in <model.dir>/<version>/ and state.json records the active
and previous version. Restart the daemon to pick up a change.`,
}

var modelActivateCmd = &cobra.Command{
	Use:   "activate <version>",
	Short: "Make a bundle version current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		state, err := classifier.Activate(cfg.Model.Dir, args[0])
		if err != nil {
			return err
		}
		return printState(cmd, state)
	},
}

var modelRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Swap back to the previous bundle version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		state, err := classifier.Rollback(cfg.Model.Dir)
		if err != nil {
			return err
		}
		return printState(cmd, state)
	},
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active bundle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir, version, err := classifier.ResolveBundleDir(cfg.Model.Dir)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"dir": dir, "version": version})
		}
		if version == "" {
			version = "(unversioned)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active: %s\ndir: %s\n", version, dir)
		return nil
	},
}

func printState(cmd *cobra.Command, state classifier.BundleState) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), state)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "current: %s\nprevious: %s\n", state.CurrentVersion, state.PreviousVersion)
	return nil
}

func init() {
	modelCmd.AddCommand(modelActivateCmd)
	modelCmd.AddCommand(modelRollbackCmd)
	modelCmd.AddCommand(modelStatusCmd)
}
