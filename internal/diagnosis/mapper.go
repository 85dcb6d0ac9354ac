package diagnosis

import (
	"fmt"
	"math"
)

// ShapeMismatchError signals that the classifier output width does not match
// the category table, i.e. the model and the table are out of sync.
type ShapeMismatchError struct {
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("classifier output has %d classes, category table has %d", e.Got, e.Want)
}

// InvalidOutputError signals a classifier output entry that is not a
// probability: NaN, infinite, negative or above 1.
type InvalidOutputError struct {
	Index int
	Value float64
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("classifier output %d is not a probability: %v", e.Index, e.Value)
}

// probabilitySlack absorbs float32 rounding of a softmax output.
const probabilitySlack = 1e-4

// Record is the user-facing result of one diagnosis.
type Record struct {
	Category   string  `json:"arrhythmia_type"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
}

// Map picks the most probable class from a probability vector. Exact ties
// resolve to the lowest index. The confidence is the selected probability,
// reported without re-normalization. Entries outside [0,1] are rejected
// rather than mapped.
func Map(probs []float32) (Record, error) {
	if len(probs) != CategoryCount {
		return Record{}, &ShapeMismatchError{Got: len(probs), Want: CategoryCount}
	}
	for i, p := range probs {
		v := float64(p)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1+probabilitySlack {
			return Record{}, &InvalidOutputError{Index: i, Value: v}
		}
	}
	best := Argmax(probs)
	return Record{
		Category:   Lookup(best),
		Confidence: float64(probs[best]),
		ClassID:    best,
	}, nil
}

// Argmax returns the index of the first maximum in v, or -1 for an empty v.
// NaN entries never win.
func Argmax(v []float32) int {
	best := -1
	for i, p := range v {
		if math.IsNaN(float64(p)) {
			continue
		}
		if best < 0 || p > v[best] {
			best = i
		}
	}
	if best < 0 && len(v) > 0 {
		return 0
	}
	return best
}

// Probabilities keys a probability vector by category name.
func Probabilities(probs []float32) map[string]float64 {
	out := make(map[string]float64, len(probs))
	for i, p := range probs {
		if i >= CategoryCount {
			break
		}
		out[Lookup(i)] = float64(p)
	}
	return out
}
