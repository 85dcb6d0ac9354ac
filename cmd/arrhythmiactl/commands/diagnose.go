package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/service"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Classify one heartbeat",
	Long: `Classify one heartbeat read from a file, or stdin when the file is "-".

JSON input is {"signal": [...]} or a bare array. CSV input is read row by
row and every value is appended to the waveform.

Example:
  arrhythmiactl diagnose beat.json
  cat beat.csv | arrhythmiactl diagnose - --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := loadSignal(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		res, err := a.Service.Diagnose(ctx, inference.Request{
			Source:  inference.SourceCLI,
			Samples: samples,
		}, "")
		if err != nil {
			return fmt.Errorf("%s: %w", service.ErrorCode(err), err)
		}

		out := cmd.OutOrStdout()
		rec := res.Response.Record
		if jsonOutput {
			return printJSON(out, map[string]any{
				"request_id":      res.Event.RequestID,
				"arrhythmia_type": rec.Category,
				"confidence":      rec.Confidence,
				"class_id":        rec.ClassID,
				"probabilities":   res.Response.Probabilities,
				"flags":           res.Response.Flags,
			})
		}

		fmt.Fprintf(out, "%s (class %d, confidence %.4f)\n", rec.Category, rec.ClassID, rec.Confidence)
		names := make([]string, 0, len(res.Response.Probabilities))
		for name := range res.Response.Probabilities {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			return res.Response.Probabilities[names[i]] > res.Response.Probabilities[names[j]]
		})
		for _, name := range names {
			fmt.Fprintf(out, "  %-26s %.4f\n", name, res.Response.Probabilities[name])
		}
		for _, f := range res.Response.Flags {
			fmt.Fprintf(out, "  flag: %s\n", f)
		}
		return nil
	},
}
