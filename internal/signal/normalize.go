package signal

import (
	"gonum.org/v1/gonum/floats"
)

// MinMax rescales x so its minimum maps to 0 and its maximum to 1.
// A constant (or empty) x has no range and yields a DegenerateSignalError.
func MinMax(x []float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, invalid("empty waveform", -1)
	}
	lo, hi := floats.Min(x), floats.Max(x)
	span := hi - lo
	if span == 0 {
		return nil, &DegenerateSignalError{Value: lo}
	}

	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - lo) / span
	}
	return out, nil
}

// Fit returns a copy of x truncated to n samples, or right-padded with zeros
// when shorter.
func Fit(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}
