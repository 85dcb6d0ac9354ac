package signal

// Tensor is the fixed-shape classifier input, conceptually (1, TensorLength, 1).
// It is immutable; accessors hand out copies.
type Tensor struct {
	values []float64
}

// NewTensor wraps values fitted to TensorLength.
func NewTensor(values []float64) Tensor {
	return Tensor{values: Fit(values, TensorLength)}
}

// Len is the number of timesteps.
func (t Tensor) Len() int { return len(t.values) }

// At returns the value at timestep i.
func (t Tensor) At(i int) float64 { return t.values[i] }

// Values returns a copy of the timesteps.
func (t Tensor) Values() []float64 {
	out := make([]float64, len(t.values))
	copy(out, t.values)
	return out
}

// Float32 returns the timesteps converted for float32 model inputs.
func (t Tensor) Float32() []float32 {
	out := make([]float32, len(t.values))
	for i, v := range t.values {
		out[i] = float32(v)
	}
	return out
}

// Shape is the (batch, timesteps, channels) layout expected by the classifier.
func (t Tensor) Shape() []int64 {
	return []int64{1, int64(len(t.values)), 1}
}
