package bank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
)

// Strings yields every maximal run of printable ASCII (32..126) whose length
// is within [minLen, maxLen], in stream order. The sequence can be ranged over
// any number of times.
func Strings(data []byte, minLen, maxLen int) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i := 0; i <= len(data); i++ {
			printable := i < len(data) && data[i] >= 32 && data[i] <= 126
			if printable {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if n := i - start; n >= minLen && n <= maxLen {
					if !yield(string(data[start:i])) {
						return
					}
				}
				start = -1
			}
		}
	}
}

// Classification is the advisory verdict on a coefficient candidate
type Classification struct {
	ZPlaneLike   bool     `json:"zplaneLike"`
	Reasons      []string `json:"reasons,omitempty"`
	InRangeRatio float64  `json:"inRangeRatio"`
}

// Z-plane range used by Classify
const (
	zplaneMin        = 0.001
	zplaneMax        = 2.0
	zplaneRangeRatio = 0.8
	biquadSize       = 5
	sixSectionSize   = 30
)

// Classify checks a float run for shapes typical of biquad coefficient banks
func Classify(values []float32) Classification {
	var c Classification
	if len(values) == 0 {
		return c
	}

	if len(values)%biquadSize == 0 {
		c.Reasons = append(c.Reasons, "length is a multiple of 5 (biquad sections)")
	}
	if len(values)%sixSectionSize == 0 {
		c.Reasons = append(c.Reasons, "length is a multiple of 30 (6-section biquads)")
	}

	inRange := 0
	for _, v := range values {
		a := math.Abs(float64(v))
		if a >= zplaneMin && a <= zplaneMax {
			inRange++
		}
	}
	c.InRangeRatio = float64(inRange) / float64(len(values))
	if c.InRangeRatio > zplaneRangeRatio {
		c.Reasons = append(c.Reasons, fmt.Sprintf("%.1f%% of values in Z-plane range", c.InRangeRatio*100))
	}

	c.ZPlaneLike = len(c.Reasons) > 0
	return c
}

// CoefficientArray is a run of plausible float32 coefficients found at one alignment
type CoefficientArray struct {
	Offset         int            `json:"offset"`
	Values         []float32      `json:"-"`
	Count          int            `json:"count"`
	Min            float32        `json:"min"`
	Max            float32        `json:"max"`
	Classification Classification `json:"classification"`
}

// FindCoefficients reinterprets data as little-endian float32 at each alignment
// offset and keeps finite values with magnitude <= limit. An alignment is
// reported when at least minCount values survive.
func FindCoefficients(data []byte, alignments []int, limit float64, minCount int) []CoefficientArray {
	var out []CoefficientArray
	for _, offset := range alignments {
		if offset < 0 || offset >= len(data) {
			continue
		}
		aligned := data[offset:]
		aligned = aligned[:len(aligned)-len(aligned)%4]

		var values []float32
		for i := 0; i+4 <= len(aligned); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(aligned[i:]))
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > limit {
				continue
			}
			values = append(values, v)
		}
		if len(values) == 0 || len(values) < minCount {
			continue
		}

		arr := CoefficientArray{
			Offset: offset,
			Values: values,
			Count:  len(values),
			Min:    values[0],
			Max:    values[0],
		}
		for _, v := range values[1:] {
			arr.Min = min(arr.Min, v)
			arr.Max = max(arr.Max, v)
		}
		arr.Classification = Classify(values)
		out = append(out, arr)
	}
	return out
}

// Signature is the first position of a known literal marker
type Signature struct {
	Marker string `json:"marker"`
	Offset int    `json:"offset"`
}

// FindSignatures reports the first occurrence of each marker, case-sensitive,
// in marker order. Markers that do not occur are omitted.
func FindSignatures(data []byte, markers []string) []Signature {
	var out []Signature
	for _, m := range markers {
		if m == "" {
			continue
		}
		if i := bytes.Index(data, []byte(m)); i >= 0 {
			out = append(out, Signature{Marker: m, Offset: i})
		}
	}
	return out
}
