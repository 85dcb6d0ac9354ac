package commands

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/arrhythmia/internal/classifier"
	"github.com/straja-ai/arrhythmia/internal/diagnosis"
	"github.com/straja-ai/arrhythmia/internal/inference"
	"github.com/straja-ai/arrhythmia/internal/signal"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSignalJSON(t *testing.T) {
	got, err := loadSignal(writeFile(t, "beat.json", `{"signal": [0.1, 0.5, 0.9]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, got)

	got, err = loadSignal(writeFile(t, "beat.txt", ` [1, 2, 3] `))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)

	_, err = loadSignal(writeFile(t, "empty.json", `{"samples": [1]}`))
	assert.Error(t, err)
}

func TestLoadSignalCSV(t *testing.T) {
	got, err := loadSignal(writeFile(t, "beat.csv", "0.1, 0.2,0.3\n0.4,,0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4, 0.5}, got)

	_, err = loadSignal(writeFile(t, "bad.csv", "0.1,abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1 column 2")
}

func TestReadLabelledBeats(t *testing.T) {
	in := "0.1,0.2,0.3,0.0\n0.3,0.2,0.1,2.0\n0.5,0.5,0.5,4\n"
	beats, err := readLabelledBeats(strings.NewReader(in), 0)
	require.NoError(t, err)
	require.Len(t, beats, 3)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, beats[0].Samples)
	assert.Equal(t, 0, beats[0].Label)
	assert.Equal(t, 2, beats[1].Label)
	assert.Equal(t, 4, beats[2].Label)

	beats, err = readLabelledBeats(strings.NewReader(in), 2)
	require.NoError(t, err)
	assert.Len(t, beats, 2)
}

func TestReadLabelledBeatsRejectsBadLabels(t *testing.T) {
	for _, in := range []string{"0.1,0.2,5\n", "0.1,0.2,1.5\n", "0.1,0.2,-1\n", "0.1\n", "0.1,0.2,x\n"} {
		_, err := readLabelledBeats(strings.NewReader(in), 0)
		assert.Error(t, err, in)
	}
}

func sine(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * 10 * float64(i) / signal.SamplingRate)
	}
	return out
}

func TestFakeClassifyIsDeterministicDistribution(t *testing.T) {
	c, err := signal.NewConditioner()
	require.NoError(t, err)
	tensor, err := c.Condition(sine(187))
	require.NoError(t, err)

	a, err := fakeClassify(context.Background(), tensor)
	require.NoError(t, err)
	b, err := fakeClassify(context.Background(), tensor)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	require.Len(t, a, diagnosis.CategoryCount)

	var sum float64
	for _, p := range a {
		assert.GreaterOrEqual(t, p, float32(0))
		sum += float64(p)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestEvaluateBuildsConfusionMatrix(t *testing.T) {
	always := func(class int) classifier.Func {
		return func(context.Context, signal.Tensor) ([]float32, error) {
			out := make([]float32, diagnosis.CategoryCount)
			out[class] = 1
			return out, nil
		}
	}
	p, err := inference.New(always(diagnosis.ClassVentricular))
	require.NoError(t, err)

	beats := []labelledBeat{
		{Samples: sine(187), Label: diagnosis.ClassVentricular},
		{Samples: sine(187), Label: diagnosis.ClassNormal},
		{Samples: sine(187), Label: diagnosis.ClassVentricular},
		{Samples: make([]float64, 187), Label: diagnosis.ClassNormal},
		{Samples: []float64{1, 2}, Label: diagnosis.ClassFusion},
	}
	rep, err := evaluate(context.Background(), p, beats)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Correct)
	assert.InDelta(t, 2.0/3.0, rep.Accuracy, 1e-9)
	assert.Equal(t, 2, rep.Confusion[diagnosis.ClassVentricular][diagnosis.ClassVentricular])
	assert.Equal(t, 1, rep.Confusion[diagnosis.ClassNormal][diagnosis.ClassVentricular])
	assert.Equal(t, 1, rep.Failed["degenerate_signal"])
	assert.Equal(t, 1, rep.Failed["invalid_input"])

	var buf bytes.Buffer
	rep.print(&buf)
	assert.Contains(t, buf.String(), "accuracy 0.6667")
	assert.Contains(t, buf.String(), "Ventricular Ectopic")
}

func TestEvaluateStopsWhenModelMissing(t *testing.T) {
	p, err := inference.New(nil)
	require.NoError(t, err)
	_, err = evaluate(context.Background(), p, []labelledBeat{{Samples: sine(187)}})
	assert.ErrorIs(t, err, inference.ErrModelUnavailable)
}

func TestAskCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ask", "what", "is", "a", "fusion", "beat"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Contains(t, strings.ToLower(out.String()), "fusion")
}
