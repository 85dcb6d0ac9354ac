// Package classifier wraps the pretrained arrhythmia model behind a small
// interface so the inference pipeline can be built with a real ONNX session,
// a stand-in function, or an explicit "not loaded" placeholder.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/straja-ai/arrhythmia/internal/signal"
)

// Classifier turns a conditioned tensor into a class-probability vector.
type Classifier interface {
	Classify(ctx context.Context, t signal.Tensor) ([]float32, error)
	Close() error
}

// ErrUnavailable is returned by the Unavailable classifier.
var ErrUnavailable = errors.New("classifier not loaded")

// Unavailable stands in for a model that could not be loaded.
type Unavailable struct {
	Reason string
}

func (u Unavailable) Classify(context.Context, signal.Tensor) ([]float32, error) {
	if u.Reason == "" {
		return nil, ErrUnavailable
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

func (Unavailable) Close() error { return nil }

// Available reports whether c can serve inference calls.
func Available(c Classifier) bool {
	switch c.(type) {
	case nil, Unavailable, *Unavailable:
		return false
	}
	return true
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, t signal.Tensor) ([]float32, error)

func (f Func) Classify(ctx context.Context, t signal.Tensor) ([]float32, error) {
	return f(ctx, t)
}

func (Func) Close() error { return nil }
