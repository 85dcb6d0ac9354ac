package signal

import "fmt"

// InvalidInputError reports a raw waveform the conditioner refuses to process.
type InvalidInputError struct {
	Reason string
	// Index is the offending sample position, or -1 when the whole waveform is at fault.
	Index int
}

func (e *InvalidInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid waveform: %s at sample %d", e.Reason, e.Index)
	}
	return "invalid waveform: " + e.Reason
}

// DegenerateSignalError is returned when the filtered signal has zero dynamic
// range, which leaves min-max normalization undefined.
type DegenerateSignalError struct {
	Value float64
}

func (e *DegenerateSignalError) Error() string {
	return fmt.Sprintf("degenerate signal: filtered waveform is constant (%g)", e.Value)
}

func invalid(reason string, index int) error {
	return &InvalidInputError{Reason: reason, Index: index}
}
