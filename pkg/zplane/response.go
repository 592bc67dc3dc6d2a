package zplane

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// DefaultProbeHz is the frequency used for before/after magnitude comparison
const DefaultProbeHz = 1000.0

// Coefficients returns the all-pole biquad section for a conjugate pole pair:
//
//	1 - 2r·cos(θ)·z^-1 + r²·z^-2
func (p Pole) Coefficients() biquad.Coefficients {
	return biquad.Coefficients{
		B0: 1,
		A1: -2 * p.R * math.Cos(p.Theta),
		A2: p.R * p.R,
	}
}

// Sections returns one biquad section per pole of the shape
func (s Shape) Sections() []biquad.Coefficients {
	coeffs := make([]biquad.Coefficients, len(s.Poles))
	for i, p := range s.Poles {
		coeffs[i] = p.Coefficients()
	}
	return coeffs
}

// MagnitudeDB returns the cascaded all-pole magnitude of the shape at freqHz
func (s Shape) MagnitudeDB(freqHz float64, sampleRate int) float64 {
	if len(s.Poles) == 0 {
		return 0
	}
	chain := biquad.NewChain(s.Sections())
	return chain.MagnitudeDB(freqHz, float64(sampleRate))
}

// PoleDelta compares one pole before and after conversion
type PoleDelta struct {
	Before          Pole    `json:"before"`
	After           Pole    `json:"after"`
	RadiusChangePct float64 `json:"radiusChangePct"`
	AngleChangePct  float64 `json:"angleChangePct"`
	Clamped         bool    `json:"clamped"`
}

// ShapeDelta compares a shape before and after conversion. Peaks are the
// loudest spectrum bin in Hz.
type ShapeDelta struct {
	Name         string      `json:"name"`
	Poles        []PoleDelta `json:"poles"`
	BeforeDB     float64     `json:"beforeDb"`
	AfterDB      float64     `json:"afterDb"`
	BeforePeakHz float64     `json:"beforePeakHz"`
	AfterPeakHz  float64     `json:"afterPeakHz"`
}

// Report summarises a shape set conversion
type Report struct {
	SourceRate int          `json:"sourceRate"`
	DestRate   int          `json:"destRate"`
	Ratio      float64      `json:"ratio"`
	ProbeHz    float64      `json:"probeHz"`
	Shapes     []ShapeDelta `json:"shapes"`
}

// Compare builds a before/after report for two shape sets of equal layout
func Compare(src, dst ShapeSet) *Report {
	report := &Report{
		SourceRate: src.SampleRateRef,
		DestRate:   dst.SampleRateRef,
		ProbeHz:    DefaultProbeHz,
	}
	if src.SampleRateRef > 0 {
		report.Ratio = float64(dst.SampleRateRef) / float64(src.SampleRateRef)
	}

	for i := 0; i < len(src.Shapes) && i < len(dst.Shapes); i++ {
		before, after := src.Shapes[i], dst.Shapes[i]
		delta := ShapeDelta{
			Name:     before.Name,
			BeforeDB: before.MagnitudeDB(DefaultProbeHz, src.SampleRateRef),
			AfterDB:  after.MagnitudeDB(DefaultProbeHz, dst.SampleRateRef),
		}
		delta.BeforePeakHz, _ = before.PeakHz(src.SampleRateRef, DefaultSpectrumSize)
		delta.AfterPeakHz, _ = after.PeakHz(dst.SampleRateRef, DefaultSpectrumSize)
		for j := 0; j < len(before.Poles) && j < len(after.Poles); j++ {
			b, a := before.Poles[j], after.Poles[j]
			delta.Poles = append(delta.Poles, PoleDelta{
				Before:          b,
				After:           a,
				RadiusChangePct: percentChange(b.R, a.R),
				AngleChangePct:  percentChange(b.Theta, a.Theta),
				Clamped:         a.R == MaxRadius && math.Pow(b.R, report.Ratio) >= 1,
			})
		}
		report.Shapes = append(report.Shapes, delta)
	}
	return report
}

func percentChange(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (after/before - 1) * 100
}
