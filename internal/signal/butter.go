package signal

import (
	"fmt"
	"math"
	"math/cmplx"
)

// ButterLowpass designs a digital Butterworth low-pass filter and returns its
// transfer-function coefficients, numerator b and denominator a, each of
// length order+1 with a[0] == 1. wn is the cutoff as a fraction of the
// Nyquist frequency and must lie in (0, 1).
//
// The design follows the classic route: analog prototype poles, frequency
// prewarping, bilinear transform, then expansion of zeros and poles into
// polynomials.
func ButterLowpass(order int, wn float64) (b, a []float64, err error) {
	if order < 1 {
		return nil, nil, fmt.Errorf("butterworth order must be >= 1, got %d", order)
	}
	if !(wn > 0 && wn < 1) {
		return nil, nil, fmt.Errorf("butterworth cutoff must be in (0, 1), got %g", wn)
	}

	// Analog prototype: poles evenly spaced on the left half of the unit circle.
	poles := make([]complex128, order)
	for i := range poles {
		m := float64(-order + 1 + 2*i)
		poles[i] = -cmplx.Exp(complex(0, math.Pi*m/float64(2*order)))
	}

	// Prewarp with a normalized sampling rate of 2 so that wn maps onto the
	// analog cutoff after the bilinear transform.
	const fs = 2.0
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)
	for i := range poles {
		poles[i] *= complex(warped, 0)
	}
	gain := math.Pow(warped, float64(order))

	fs2 := complex(2*fs, 0)
	digitalPoles := make([]complex128, order)
	den := complex(1, 0)
	for i, p := range poles {
		digitalPoles[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain *= real(1 / den)

	// Every analog zero at infinity lands on z = -1.
	zeros := make([]complex128, order)
	for i := range zeros {
		zeros[i] = -1
	}

	num := poly(zeros)
	dnm := poly(digitalPoles)
	b = make([]float64, order+1)
	a = make([]float64, order+1)
	for i := range b {
		b[i] = gain * real(num[i])
		a[i] = real(dnm[i])
	}
	return b, a, nil
}

// poly expands prod(x - r) over roots into coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := make([]complex128, 1, len(roots)+1)
	c[0] = 1
	for _, r := range roots {
		c = append(c, 0)
		for j := len(c) - 1; j > 0; j-- {
			c[j] -= r * c[j-1]
		}
	}
	return c
}
