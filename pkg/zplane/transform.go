package zplane

import (
	"fmt"
	"math"
)

const twoPi = 2 * math.Pi

// WrapAngle maps theta into (-π, π] by repeated 2π shifts
func WrapAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return theta
	}
	// Bring very large angles close before stepping
	if math.Abs(theta) > 64*math.Pi {
		theta = math.Mod(theta, twoPi)
	}
	for theta > math.Pi {
		theta -= twoPi
	}
	for theta <= -math.Pi {
		theta += twoPi
	}
	return theta
}

// ConvertPole maps a pole to a new sample rate, where ratio = Fs_dst / Fs_src.
//
// The pole is taken to continuous time (s = Fs_src * (ln r + jθ)) and sampled
// again at Fs_dst, giving r' = r^ratio and θ' = θ*ratio. The radius is clamped
// to MaxRadius so a converted filter never becomes unstable.
func ConvertPole(p Pole, ratio float64) Pole {
	r := math.Pow(p.R, ratio)
	if r >= 1.0 {
		r = MaxRadius
	}
	return Pole{R: r, Theta: WrapAngle(p.Theta * ratio)}
}

// Ratio returns the conversion ratio between two sample rates
func Ratio(srcRate, dstRate int) (float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return 0, fmt.Errorf("%w: %d -> %d", ErrInvalidSampleRate, srcRate, dstRate)
	}
	return float64(dstRate) / float64(srcRate), nil
}

// Validate checks that every pole radius is in [0, 1)
func Validate(shapes []Shape) error {
	for _, shape := range shapes {
		for i, p := range shape.Poles {
			if !p.Stable() {
				return &NumericDomainError{Shape: shape.Name, Index: i, Radius: p.R}
			}
		}
	}
	return nil
}

// ConvertShapes rewrites every pole of every shape with the same ratio.
// Order and counts are preserved; the input is not modified.
func ConvertShapes(shapes []Shape, ratio float64) []Shape {
	out := make([]Shape, len(shapes))
	for i, shape := range shapes {
		poles := make([]Pole, len(shape.Poles))
		for j, p := range shape.Poles {
			poles[j] = ConvertPole(p, ratio)
		}
		out[i] = Shape{Name: shape.Name, Poles: poles, Extra: shape.Extra.clone()}
	}
	return out
}

// Convert returns a copy of set re-derived for dstRate
func Convert(set ShapeSet, dstRate int) (ShapeSet, error) {
	ratio, err := Ratio(set.SampleRateRef, dstRate)
	if err != nil {
		return ShapeSet{}, err
	}
	if err := Validate(set.Shapes); err != nil {
		return ShapeSet{}, err
	}
	return ShapeSet{
		SampleRateRef: dstRate,
		Shapes:        ConvertShapes(set.Shapes, ratio),
		Extra:         set.Extra.clone(),
	}, nil
}
