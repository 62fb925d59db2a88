package grid

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/qtkern/internal/config"
)

// HilbertKernel returns the FFT convolution kernel for a Hilbert transform
// on a uniform grid of n points. The kernel is stored in p.HTKer and reused
// while the grid size stays the same; a size change rebuilds it.
func HilbertKernel(p *config.Properties, n int) ([]complex128, error) {
	if n < 2 {
		return nil, ErrTooSmall
	}
	if len(p.HTKer) == 2*n {
		return p.HTKer, nil
	}
	if p.HTKer != nil {
		p.ReportWarning(config.WarnKernelRebuilt, fmt.Sprintf(
			"WARNING: grid size changed from %d to %d points; Hilbert transform kernel rebuilt.",
			len(p.HTKer)/2, n))
	}
	p.HTKer = fft.FFTReal(impulse(n))
	return p.HTKer, nil
}

// impulse is the discrete Hilbert impulse response 2/(pi k) for odd k,
// laid out for circular convolution of length 2n.
func impulse(n int) []float64 {
	h := make([]float64, 2*n)
	for k := 1; k < n; k += 2 {
		v := 2 / (math.Pi * float64(k))
		h[k] = v
		h[2*n-k] = -v
	}
	return h
}
