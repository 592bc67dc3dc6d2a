// Package zplane provides the Z-plane pole model and sample-rate conversion of filter shapes
package zplane

import (
	"math/cmplx"

	"github.com/goccy/go-json"
)

// MaxRadius is the largest radius a converted pole may have
const MaxRadius = 0.9999

// Pole is one conjugate-pair filter pole in polar form
type Pole struct {
	R     float64 `json:"r"`     // Radius, stable when < 1
	Theta float64 `json:"theta"` // Angle in radians, (-π, π]
}

// Complex returns the pole as a point on the complex plane
func (p Pole) Complex() complex128 {
	return cmplx.Rect(p.R, p.Theta)
}

// PoleFromComplex converts a complex pole location back to polar form
func PoleFromComplex(z complex128) Pole {
	return Pole{R: cmplx.Abs(z), Theta: WrapAngle(cmplx.Phase(z))}
}

// Stable reports whether the pole lies strictly inside the unit circle
func (p Pole) Stable() bool {
	return p.R >= 0 && p.R < 1
}

// Extra holds document keys the shape model does not interpret.
// They are written back unchanged.
type Extra map[string]json.RawMessage

// Shape is a named, ordered list of poles
type Shape struct {
	Name  string `json:"name"`
	Poles []Pole `json:"poles"`
	Extra Extra  `json:"-"`
}

// Clone returns a deep copy of the shape
func (s Shape) Clone() Shape {
	poles := make([]Pole, len(s.Poles))
	copy(poles, s.Poles)
	return Shape{Name: s.Name, Poles: poles, Extra: s.Extra.clone()}
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra
func (s *Shape) UnmarshalJSON(data []byte) error {
	type plain Shape
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, "name", "poles")
	if err != nil {
		return err
	}
	p.Extra = extra
	*s = Shape(p)
	return nil
}

// MarshalJSON writes the known fields merged with Extra
func (s Shape) MarshalJSON() ([]byte, error) {
	type plain Shape
	return mergeExtra(plain(s), s.Extra)
}

// ShapeSet is a collection of shapes defined at one sample rate
type ShapeSet struct {
	SampleRateRef int     `json:"sampleRateRef"`
	Shapes        []Shape `json:"shapes"`
	Extra         Extra   `json:"-"`
}

// Clone returns a deep copy of the shape set
func (s ShapeSet) Clone() ShapeSet {
	out := ShapeSet{SampleRateRef: s.SampleRateRef, Shapes: make([]Shape, len(s.Shapes)), Extra: s.Extra.clone()}
	for i := range s.Shapes {
		out.Shapes[i] = s.Shapes[i].Clone()
	}
	return out
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra
func (s *ShapeSet) UnmarshalJSON(data []byte) error {
	type plain ShapeSet
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	extra, err := splitExtra(data, "sampleRateRef", "shapes")
	if err != nil {
		return err
	}
	p.Extra = extra
	*s = ShapeSet(p)
	return nil
}

// MarshalJSON writes the known fields merged with Extra
func (s ShapeSet) MarshalJSON() ([]byte, error) {
	type plain ShapeSet
	return mergeExtra(plain(s), s.Extra)
}

func (e Extra) clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// splitExtra returns the object keys of data not listed in known
func splitExtra(data []byte, known ...string) (Extra, error) {
	var all Extra
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// mergeExtra encodes v and adds the extra keys; known fields win on conflict
func mergeExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var fields Extra
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	merged := extra.clone()
	for k, raw := range fields {
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// PoleCount returns the total number of poles across all shapes
func (s ShapeSet) PoleCount() int {
	n := 0
	for _, shape := range s.Shapes {
		n += len(shape.Poles)
	}
	return n
}
