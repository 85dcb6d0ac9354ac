package signal

import (
	"errors"
	"fmt"
)

// LFilter runs x through the rational transfer function b/a in a single
// causal pass (direct form II transposed) starting from a zero state.
// Coefficients are normalized by a[0]; the inputs are not modified.
func LFilter(b, a, x []float64) ([]float64, error) {
	if len(b) == 0 || len(a) == 0 {
		return nil, errors.New("lfilter: empty coefficients")
	}
	if a[0] == 0 {
		return nil, fmt.Errorf("lfilter: leading denominator coefficient is zero")
	}

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	bn := make([]float64, n)
	an := make([]float64, n)
	for i, v := range b {
		bn[i] = v / a[0]
	}
	for i, v := range a {
		an[i] = v / a[0]
	}

	// z[n-1] is never written and stays zero.
	z := make([]float64, n)
	y := make([]float64, len(x))
	for k, xv := range x {
		yk := bn[0]*xv + z[0]
		for i := 1; i < n; i++ {
			z[i-1] = bn[i]*xv + z[i] - an[i]*yk
		}
		y[k] = yk
	}
	return y, nil
}
