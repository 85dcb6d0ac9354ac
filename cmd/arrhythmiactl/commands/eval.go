package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/service"
)

var evalLimit int

var evalCmd = &cobra.Command{
	Use:   "eval <file.csv>",
	Short: "Score the classifier against a labelled CSV",
	Long: `Score the classifier against MIT-BIH style CSV rows: 187 samples
followed by the class index (0 Normal, 1 Supraventricular, 2 Ventricular,
3 Fusion, 4 Unknown). Reports accuracy and a confusion matrix.

Example:
  arrhythmiactl eval mitbih_test.csv --limit 5000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		beats, err := readLabelledBeats(f, evalLimit)
		f.Close()
		if err != nil {
			return err
		}
		if len(beats) == 0 {
			return errors.New("no rows to evaluate")
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

		start := time.Now()
		rep, err := evaluate(ctx, a.Service.Pipeline, beats)
		if err != nil {
			return err
		}
		rep.Elapsed = time.Since(start)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		rep.print(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	evalCmd.Flags().IntVar(&evalLimit, "limit", 0, "evaluate at most this many rows (0 = all)")
}

// evalReport summarises one evaluation run. Confusion is indexed
// [label][predicted].
type evalReport struct {
	Total     int                                                  `json:"total"`
	Correct   int                                                  `json:"correct"`
	Failed    map[string]int                                       `json:"failed,omitempty"`
	Accuracy  float64                                              `json:"accuracy"`
	Confusion [diagnosis.CategoryCount][diagnosis.CategoryCount]int `json:"confusion"`
	Elapsed   time.Duration                                        `json:"elapsed_ns"`
}

// evaluate runs every beat through p. Rows the pipeline rejects are counted
// by error code and excluded from accuracy.
func evaluate(ctx context.Context, p *inference.Pipeline, beats []labelledBeat) (*evalReport, error) {
	rep := &evalReport{Failed: map[string]int{}}
	for _, b := range beats {
		resp, err := p.Diagnose(ctx, inference.Request{Source: inference.SourceCLI, Samples: b.Samples})
		if err != nil {
			if errors.Is(err, inference.ErrModelUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			rep.Failed[service.ErrorCode(err)]++
			continue
		}
		rep.Total++
		pred := resp.Record.ClassID
		rep.Confusion[b.Label][pred]++
		if pred == b.Label {
			rep.Correct++
		}
	}
	if rep.Total > 0 {
		rep.Accuracy = float64(rep.Correct) / float64(rep.Total)
	}
	return rep, nil
}

func (r *evalReport) print(w io.Writer) {
	fmt.Fprintf(w, "evaluated %d beats in %s, accuracy %.4f (%d correct)\n", r.Total, r.Elapsed.Round(time.Millisecond), r.Accuracy, r.Correct)
	for code, n := range r.Failed {
		fmt.Fprintf(w, "rejected %d beats: %s\n", n, code)
	}

	fmt.Fprintf(w, "\n%-26s", "label \\ predicted")
	for c := 0; c < diagnosis.CategoryCount; c++ {
		fmt.Fprintf(w, "%8d", c)
	}
	fmt.Fprintf(w, "%10s\n", "recall")
	for label := 0; label < diagnosis.CategoryCount; label++ {
		fmt.Fprintf(w, "%-26s", fmt.Sprintf("%d %s", label, diagnosis.Lookup(label)))
		rowTotal := 0
		for pred := 0; pred < diagnosis.CategoryCount; pred++ {
			fmt.Fprintf(w, "%8d", r.Confusion[label][pred])
			rowTotal += r.Confusion[label][pred]
		}
		recall := "-"
		if rowTotal > 0 {
			recall = fmt.Sprintf("%.4f", float64(r.Confusion[label][label])/float64(rowTotal))
		}
		fmt.Fprintf(w, "%10s\n", recall)
	}
	fmt.Fprintln(w, strings.Repeat("-", 26+8*diagnosis.CategoryCount+10))
}
