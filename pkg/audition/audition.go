// Package audition renders pole shapes as WAV impulse responses so a shape
// can be compared by ear before and after sample-rate conversion.
package audition

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/james-see/zplanebank/pkg/zplane"
)

// DefaultDuration is the rendered length of each impulse response
const DefaultDuration = 500 * time.Millisecond

// peakLevel is the normalized absolute peak of a rendered response
const peakLevel = 0.9

// impulse streams a precomputed, normalized impulse response
type impulse struct {
	samples  []float64
	position int
}

// Streamer returns the shape's impulse response at rate as a mono beep
// streamer, normalized to a fixed peak level.
func Streamer(shape zplane.Shape, rate beep.SampleRate, duration time.Duration) beep.Streamer {
	h := shape.ImpulseResponse(rate.N(duration))

	peak := 0.0
	for _, v := range h {
		peak = max(peak, math.Abs(v))
	}
	if peak > 0 {
		for i := range h {
			h[i] *= peakLevel / peak
		}
	}
	return &impulse{samples: h}
}

func (s *impulse) Stream(samples [][2]float64) (n int, ok bool) {
	if s.position >= len(s.samples) {
		return 0, false
	}
	for i := range samples {
		if s.position >= len(s.samples) {
			return i, true
		}
		v := s.samples[s.position]
		samples[i][0] = v
		samples[i][1] = v
		s.position++
	}
	return len(samples), true
}

func (s *impulse) Err() error { return nil }

// WriteWAV encodes one shape at the set's sample rate
func WriteWAV(filename string, shape zplane.Shape, sampleRate int, duration time.Duration) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", zplane.ErrInvalidSampleRate, sampleRate)
	}
	rate := beep.SampleRate(sampleRate)

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	format := beep.Format{SampleRate: rate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, Streamer(shape, rate, duration), format); err != nil {
		_ = f.Close()
		_ = os.Remove(filename)
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return f.Close()
}

// RenderSet writes one WAV per shape into dir, named <prefix>_<shape>.wav,
// and returns the paths written.
func RenderSet(dir, prefix string, set zplane.ShapeSet, duration time.Duration) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for i, shape := range set.Shapes {
		name := fileSafe(shape.Name)
		if name == "" {
			name = fmt.Sprintf("shape%d", i)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.wav", prefix, name))
		if err := WriteWAV(path, shape, set.SampleRateRef, duration); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
}
