// Package signal turns raw single-beat ECG waveforms into the fixed-shape,
// normalized tensor the arrhythmia classifier was trained on.
package signal

import (
	"fmt"
	"math"
)

const (
	// SamplingRate is the assumed acquisition rate in Hz.
	SamplingRate = 125.0
	// CutoffHz is the low-pass cutoff frequency.
	CutoffHz = 45.0
	// FilterOrder is the Butterworth filter order.
	FilterOrder = 5
	// TensorLength is the number of timesteps the classifier accepts.
	TensorLength = 187
	// MinSamples is the shortest waveform the filter accepts.
	MinSamples = FilterOrder + 1
)

// NormalizedCutoff is CutoffHz as a fraction of the Nyquist frequency.
const NormalizedCutoff = CutoffHz / (SamplingRate / 2)

// Conditioner filters, normalizes and fits waveforms. The filter is designed
// once; a Conditioner is safe for concurrent use.
type Conditioner struct {
	b, a []float64
}

// NewConditioner designs the low-pass filter for the fixed acquisition setup.
func NewConditioner() (*Conditioner, error) {
	b, a, err := ButterLowpass(FilterOrder, NormalizedCutoff)
	if err != nil {
		return nil, fmt.Errorf("design low-pass filter: %w", err)
	}
	return &Conditioner{b: b, a: a}, nil
}

// Coefficients returns copies of the filter numerator and denominator.
func (c *Conditioner) Coefficients() (b, a []float64) {
	b = append([]float64(nil), c.b...)
	a = append([]float64(nil), c.a...)
	return b, a
}

// Filter validates raw and applies the low-pass filter over the whole sequence.
func (c *Conditioner) Filter(raw []float64) ([]float64, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	y, err := LFilter(c.b, c.a, raw)
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, invalid("amplitude overflows the filter", i)
		}
	}
	return y, nil
}

// Condition runs the full chain: filter, min-max normalize, then truncate or
// zero-pad to TensorLength. Truncation happens after filtering.
func (c *Conditioner) Condition(raw []float64) (Tensor, error) {
	filtered, err := c.Filter(raw)
	if err != nil {
		return Tensor{}, err
	}
	normalized, err := MinMax(filtered)
	if err != nil {
		return Tensor{}, err
	}
	return NewTensor(normalized), nil
}

// Validate rejects waveforms that are empty, contain NaN or Inf, or are too
// short for the filter to produce meaningful output.
func Validate(raw []float64) error {
	if len(raw) == 0 {
		return invalid("empty waveform", -1)
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("non-finite sample", i)
		}
	}
	if len(raw) < MinSamples {
		return invalid(fmt.Sprintf("waveform has %d samples, need at least %d", len(raw), MinSamples), -1)
	}
	return nil
}
