package diagnosis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPicksMaximum(t *testing.T) {
	rec, err := Map([]float32{0.05, 0.1, 0.7, 0.1, 0.05})
	require.NoError(t, err)
	assert.Equal(t, "Ventricular Ectopic", rec.Category)
	assert.Equal(t, ClassVentricular, rec.ClassID)
	assert.InDelta(t, 0.7, rec.Confidence, 1e-6)
}

func TestMapTieBreaksToLowestIndex(t *testing.T) {
	rec, err := Map([]float32{0.4, 0.4, 0.1, 0.05, 0.05})
	require.NoError(t, err)
	assert.Equal(t, Record{Category: "Normal", Confidence: float64(float32(0.4)), ClassID: 0}, rec)

	rec, err = Map([]float32{0.1, 0.3, 0.3, 0.3, 0})
	require.NoError(t, err)
	assert.Equal(t, ClassSupraventricular, rec.ClassID)
}

func TestMapReportsConfidenceAsIs(t *testing.T) {
	rec, err := Map([]float32{0.2, 0.2, 0.2, 0.2, 0.9})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rec.Category)
	assert.Equal(t, float64(float32(0.9)), rec.Confidence)
}

func TestMapShapeMismatch(t *testing.T) {
	for _, probs := range [][]float32{nil, {1}, {0.1, 0.2, 0.3, 0.2, 0.1, 0.1}} {
		_, err := Map(probs)
		var mismatch *ShapeMismatchError
		require.True(t, errors.As(err, &mismatch), "len %d: got %v", len(probs), err)
		assert.Equal(t, len(probs), mismatch.Got)
		assert.Equal(t, CategoryCount, mismatch.Want)
	}
}

func TestArgmaxSkipsNaN(t *testing.T) {
	nan := float32(math.NaN())
	assert.Equal(t, 1, Argmax([]float32{nan, 0.2, 0.1}))
	assert.Equal(t, 0, Argmax([]float32{nan, nan}))
	assert.Equal(t, -1, Argmax(nil))
}

func TestLookupCompleteness(t *testing.T) {
	want := []string{"Normal", "Supraventricular Ectopic", "Ventricular Ectopic", "Fusion", "Unknown"}
	for i := 0; i < CategoryCount; i++ {
		assert.Equal(t, want[i], Lookup(i))
	}
	assert.Equal(t, want, Categories())
}

func TestLookupOutOfDomainFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Lookup(-1))
	assert.Equal(t, "Unknown", Lookup(CategoryCount))
	assert.Equal(t, "Unknown", Lookup(1<<20))
}

func TestProbabilities(t *testing.T) {
	got := Probabilities([]float32{0.5, 0.25, 0.125, 0.0625, 0.0625})
	assert.Len(t, got, CategoryCount)
	assert.Equal(t, 0.5, got["Normal"])
	assert.Equal(t, 0.0625, got["Unknown"])
}

func TestThresholdFlags(t *testing.T) {
	th := Thresholds{Warn: 0.6}
	assert.Equal(t, []string{FlagLowConfidence}, th.Flags(Record{Confidence: 0.4}))
	assert.Empty(t, th.Flags(Record{Confidence: 0.6}))
	assert.Empty(t, Thresholds{}.Flags(Record{Confidence: 0.01}))
}

func TestMapRejectsNonProbabilities(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	cases := []struct {
		name  string
		probs []float32
		index int
	}{
		{"all NaN", []float32{nan, nan, nan, nan, nan}, 0},
		{"one NaN", []float32{0.1, 0.2, nan, 0.3, 0.4}, 2},
		{"infinite", []float32{0, 0, 0, inf, 0}, 3},
		{"negative", []float32{0.5, -0.1, 0.2, 0.2, 0.2}, 1},
		{"above one", []float32{0, 0, 0, 0, 1.5}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Map(tc.probs)
			var invalid *InvalidOutputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tc.index, invalid.Index)
		})
	}

	rec, err := Map([]float32{0, 0, 1.00001, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, ClassVentricular, rec.ClassID)
}
