package zplane

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// DefaultSpectrumSize is the FFT length used for peak tracking
const DefaultSpectrumSize = 4096

// ImpulseResponse runs a unit impulse through the cascaded pole sections
// and returns the first n output samples.
func (s Shape) ImpulseResponse(n int) []float64 {
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = 1

	for _, c := range s.Sections() {
		var y1, y2 float64
		for i, x := range out {
			y := c.B0*x - c.A1*y1 - c.A2*y2
			y2, y1 = y1, y
			out[i] = y
		}
	}
	return out
}

// Spectrum returns the magnitude in dB of bins 0..size/2 of the shape's
// impulse response.
func (s Shape) Spectrum(size int) ([]float64, error) {
	if size < 2 {
		return nil, fmt.Errorf("spectrum size %d too small", size)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("zplane: failed to create FFT plan: %w", err)
	}

	in := make([]complex128, size)
	for i, v := range s.ImpulseResponse(size) {
		in[i] = complex(v, 0)
	}
	freq := make([]complex128, size)
	if err := plan.Forward(freq, in); err != nil {
		return nil, fmt.Errorf("zplane: forward FFT failed: %w", err)
	}

	mags := make([]float64, size/2+1)
	for i := range mags {
		m := cmplx.Abs(freq[i])
		if m < 1e-300 {
			m = 1e-300
		}
		mags[i] = 20 * math.Log10(m)
	}
	return mags, nil
}

// PeakHz returns the frequency of the loudest spectrum bin at sampleRate
func (s Shape) PeakHz(sampleRate, size int) (float64, error) {
	mags, err := s.Spectrum(size)
	if err != nil {
		return 0, err
	}
	peak := 0
	for i, m := range mags {
		if m > mags[peak] {
			peak = i
		}
	}
	return float64(peak) * float64(sampleRate) / float64(size), nil
}
