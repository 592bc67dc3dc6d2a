package zplane

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

const tol = 1e-9

func TestConvertPole48kTo44k(t *testing.T) {
	ratio := 44100.0 / 48000.0
	got := ConvertPole(Pole{R: 0.95, Theta: 0.3}, ratio)

	wantR := math.Pow(0.95, ratio)
	if math.Abs(got.R-wantR) > tol {
		t.Errorf("R = %v, want %v", got.R, wantR)
	}
	if math.Abs(got.R-0.9539) > 1e-3 {
		t.Errorf("R = %v, want ≈0.9539", got.R)
	}
	if math.Abs(got.Theta-0.3*ratio) > tol {
		t.Errorf("Theta = %v, want %v", got.Theta, 0.3*ratio)
	}
	if math.Abs(got.Theta-0.2756) > 1e-3 {
		t.Errorf("Theta = %v, want ≈0.2756", got.Theta)
	}
}

func TestConvertPoleZeroRadius(t *testing.T) {
	got := ConvertPole(Pole{R: 0, Theta: 1.0}, 0.5)
	if got.R != 0 {
		t.Errorf("R = %v, want 0", got.R)
	}
}

func TestConvertPoleClamp(t *testing.T) {
	tests := []struct {
		name  string
		pole  Pole
		ratio float64
	}{
		{"near unit circle, tiny ratio", Pole{R: 0.9999999, Theta: 0.1}, 1e-6},
		{"unit radius", Pole{R: 1.0, Theta: 0.1}, 2},
		{"upsample", Pole{R: 0.999, Theta: 2.5}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertPole(tt.pole, tt.ratio)
			if got.R >= 1.0 {
				t.Errorf("ConvertPole() R = %v, want < 1", got.R)
			}
		})
	}
}

func TestConvertPoleRoundTrip(t *testing.T) {
	ratios := []float64{44100.0 / 48000.0, 48000.0 / 44100.0, 0.5, 0.75}
	radii := []float64{0.01, 0.3, 0.7, 0.95, 0.998}
	angles := []float64{-1.2, -0.3, 0, 0.3, 1.0}

	for _, ratio := range ratios {
		for _, r := range radii {
			for _, theta := range angles {
				p := Pole{R: r, Theta: theta}
				back := ConvertPole(ConvertPole(p, ratio), 1/ratio)
				if math.Abs(back.R-r) > 1e-9 || math.Abs(back.Theta-theta) > 1e-9 {
					t.Errorf("round trip ratio=%v %+v -> %+v", ratio, p, back)
				}
			}
		}
	}
}

func TestWrapAngle(t *testing.T) {
	inputs := []float64{0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 7.5, -7.5, 100, -1000.25, 1e6}
	for _, theta := range inputs {
		got := WrapAngle(theta)
		if got <= -math.Pi || got > math.Pi {
			t.Errorf("WrapAngle(%v) = %v, outside (-π, π]", theta, got)
		}
		// Same point on the circle
		if math.Abs(math.Sin(got)-math.Sin(theta)) > 1e-6 || math.Abs(math.Cos(got)-math.Cos(theta)) > 1e-6 {
			t.Errorf("WrapAngle(%v) = %v, not congruent mod 2π", theta, got)
		}
	}

	if got := WrapAngle(-math.Pi); got != math.Pi {
		t.Errorf("WrapAngle(-π) = %v, want π", got)
	}
}

func TestConvertDoesNotMutate(t *testing.T) {
	src := ShapeSet{
		SampleRateRef: 48000,
		Shapes: []Shape{
			{Name: "vowel_a", Poles: []Pole{{R: 0.95, Theta: 0.3}, {R: 0.9, Theta: 1.1}}},
			{Name: "bell", Poles: []Pole{{R: 0.5, Theta: -0.4}}},
		},
	}
	orig := src.Clone()

	dst, err := Convert(src, 44100)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if dst.SampleRateRef != 44100 {
		t.Errorf("SampleRateRef = %d, want 44100", dst.SampleRateRef)
	}
	if len(dst.Shapes) != 2 || dst.Shapes[0].Name != "vowel_a" || dst.Shapes[1].Name != "bell" {
		t.Fatalf("shape order not preserved: %+v", dst.Shapes)
	}
	if len(dst.Shapes[0].Poles) != 2 {
		t.Errorf("pole count = %d, want 2", len(dst.Shapes[0].Poles))
	}
	for i := range src.Shapes {
		for j := range src.Shapes[i].Poles {
			if src.Shapes[i].Poles[j] != orig.Shapes[i].Poles[j] {
				t.Errorf("input pole %d/%d mutated", i, j)
			}
		}
	}
	if src.SampleRateRef != 48000 {
		t.Errorf("input SampleRateRef mutated to %d", src.SampleRateRef)
	}
}

func TestConvertNumericDomain(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
	}{
		{"unit", 1.0},
		{"above", 1.2},
		{"negative", -0.1},
		{"nan", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := ShapeSet{SampleRateRef: 48000, Shapes: []Shape{{Name: "bad", Poles: []Pole{{R: 0.5}, {R: tt.radius}}}}}
			_, err := Convert(set, 44100)

			var domainErr *NumericDomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("Convert() error = %v, want NumericDomainError", err)
			}
			if domainErr.Index != 1 || domainErr.Shape != "bad" {
				t.Errorf("error = %+v, want shape bad index 1", domainErr)
			}
			if !errors.Is(err, ErrNumericDomain) {
				t.Error("error should match ErrNumericDomain")
			}
		})
	}
}

func TestConvertInvalidRate(t *testing.T) {
	if _, err := Convert(ShapeSet{SampleRateRef: 0}, 44100); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("Convert() error = %v, want ErrInvalidSampleRate", err)
	}
	if _, err := Ratio(48000, -1); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("Ratio() error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestPoleCoefficientsRoundTrip(t *testing.T) {
	p := Pole{R: 0.95, Theta: 0.3}
	c := p.Coefficients()
	roots := c.Poles()

	got := PoleFromComplex(roots[0])
	if math.Abs(got.R-p.R) > 1e-9 || math.Abs(math.Abs(got.Theta)-p.Theta) > 1e-9 {
		t.Errorf("PoleFromComplex(Poles()[0]) = %+v, want %+v", got, p)
	}
}

func TestCompareReport(t *testing.T) {
	src := ShapeSet{SampleRateRef: 48000, Shapes: []Shape{{Name: "s", Poles: []Pole{{R: 0.95, Theta: 0.3}}}}}
	dst, err := Convert(src, 44100)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	report := Compare(src, dst)
	if len(report.Shapes) != 1 || len(report.Shapes[0].Poles) != 1 {
		t.Fatalf("report layout = %+v", report)
	}
	if math.Abs(report.Ratio-0.91875) > tol {
		t.Errorf("Ratio = %v, want 0.91875", report.Ratio)
	}
	d := report.Shapes[0].Poles[0]
	if d.RadiusChangePct <= 0 {
		t.Errorf("RadiusChangePct = %v, want > 0 for downsampling", d.RadiusChangePct)
	}
	if d.Clamped {
		t.Error("pole should not be clamped")
	}
	if math.IsNaN(report.Shapes[0].BeforeDB) || math.IsInf(report.Shapes[0].AfterDB, 0) {
		t.Errorf("magnitudes = %v / %v", report.Shapes[0].BeforeDB, report.Shapes[0].AfterDB)
	}
	if s := report.Shapes[0]; s.BeforePeakHz <= 0 || s.AfterPeakHz >= s.BeforePeakHz {
		t.Errorf("peaks = %v -> %v Hz, want a lower nonzero peak after", s.BeforePeakHz, s.AfterPeakHz)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "shapes_48k.json")
	out := filepath.Join(dir, "shapes_44k.json")

	src := ShapeSet{SampleRateRef: 48000, Shapes: []Shape{{Name: "lead", Poles: []Pole{{R: 0.9, Theta: 0.5}}}}}
	if err := SaveShapes(src, in); err != nil {
		t.Fatalf("SaveShapes() error = %v", err)
	}

	if _, err := ConvertFile(in, out, 44100); err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}

	got, err := LoadShapes(out)
	if err != nil {
		t.Fatalf("LoadShapes() error = %v", err)
	}
	if got.SampleRateRef != 44100 {
		t.Errorf("SampleRateRef = %d, want 44100", got.SampleRateRef)
	}
	want := ConvertPole(Pole{R: 0.9, Theta: 0.5}, 44100.0/48000.0)
	if math.Abs(got.Shapes[0].Poles[0].R-want.R) > tol {
		t.Errorf("R = %v, want %v", got.Shapes[0].Poles[0].R, want.R)
	}
}

func TestConvertFileKeepsMetadata(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "audity_48k.json")
	out := filepath.Join(dir, "audity_44k.json")

	doc := `{
  "sampleRateRef": 48000,
  "description": "Audity A set",
  "shapes": [
    {"name": "ZP_1411_VowelEh", "id": 11, "tags": ["vowel"], "poles": [{"r": 0.95, "theta": 0.3}]}
  ]
}`
	if err := os.WriteFile(in, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ConvertFile(in, out, 44100); err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		SampleRateRef int    `json:"sampleRateRef"`
		Description   string `json:"description"`
		Shapes        []struct {
			Name  string   `json:"name"`
			ID    int      `json:"id"`
			Tags  []string `json:"tags"`
			Poles []Pole   `json:"poles"`
		} `json:"shapes"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if got.SampleRateRef != 44100 {
		t.Errorf("sampleRateRef = %d, want 44100", got.SampleRateRef)
	}
	if got.Description != "Audity A set" {
		t.Errorf("description = %q, want %q", got.Description, "Audity A set")
	}
	if len(got.Shapes) != 1 {
		t.Fatalf("len(shapes) = %d, want 1", len(got.Shapes))
	}
	shape := got.Shapes[0]
	if shape.Name != "ZP_1411_VowelEh" || shape.ID != 11 || len(shape.Tags) != 1 || shape.Tags[0] != "vowel" {
		t.Errorf("shape metadata = %+v, want name, id and tags kept", shape)
	}
	want := ConvertPole(Pole{R: 0.95, Theta: 0.3}, 44100.0/48000.0)
	if len(shape.Poles) != 1 || math.Abs(shape.Poles[0].R-want.R) > tol || math.Abs(shape.Poles[0].Theta-want.Theta) > tol {
		t.Errorf("poles = %v, want [%v]", shape.Poles, want)
	}
}

func TestShapeExtraIsCopied(t *testing.T) {
	set, err := ParseShapes([]byte(`{"sampleRateRef": 48000, "author": "x", "shapes": [{"name": "a", "id": 1, "poles": []}]}`))
	if err != nil {
		t.Fatalf("ParseShapes() error = %v", err)
	}
	dst, err := Convert(set, 96000)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	dst.Extra["author"] = json.RawMessage(`"y"`)
	dst.Shapes[0].Extra["id"] = json.RawMessage(`2`)

	if string(set.Extra["author"]) != `"x"` {
		t.Errorf("source author = %s, want unchanged", set.Extra["author"])
	}
	if string(set.Shapes[0].Extra["id"]) != "1" {
		t.Errorf("source id = %s, want unchanged", set.Shapes[0].Extra["id"])
	}
	if _, ok := set.Extra["shapes"]; ok {
		t.Error("Extra holds a known key")
	}
}

func TestParseShapesInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "nope"},
		{"missing rate", `{"shapes": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseShapes([]byte(tt.data)); err == nil {
				t.Error("ParseShapes() expected error")
			}
		})
	}
}

func TestImpulseResponse(t *testing.T) {
	flat := Shape{Name: "empty"}.ImpulseResponse(4)
	if flat[0] != 1 || flat[1] != 0 || flat[3] != 0 {
		t.Errorf("empty shape impulse = %v, want unit impulse", flat)
	}

	// theta = π/2 reduces the section to y[n] = x[n] - r²·y[n-2]
	h := Shape{Poles: []Pole{{R: 0.5, Theta: math.Pi / 2}}}.ImpulseResponse(5)
	want := []float64{1, 0, -0.25, 0, 0.0625}
	for i := range want {
		if math.Abs(h[i]-want[i]) > 1e-12 {
			t.Errorf("h[%d] = %v, want %v", i, h[i], want[i])
		}
	}
}

func TestPeakHz(t *testing.T) {
	// resonator peak: cos(w) = (1+r²)/(2r)·cos(theta)
	peak := func(p Pole, rate int) float64 {
		w := math.Acos((1 + p.R*p.R) / (2 * p.R) * math.Cos(p.Theta))
		return w * float64(rate) / (2 * math.Pi)
	}

	src := Pole{R: 0.95, Theta: 0.3}
	ratio := 44100.0 / 48000.0
	dst := ConvertPole(src, ratio)

	tests := []struct {
		name string
		pole Pole
		rate int
	}{
		{"48k", src, 48000},
		{"44.1k", dst, 44100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Shape{Poles: []Pole{tt.pole}}.PeakHz(tt.rate, DefaultSpectrumSize)
			if err != nil {
				t.Fatalf("PeakHz() error = %v", err)
			}
			binHz := float64(tt.rate) / DefaultSpectrumSize
			if want := peak(tt.pole, tt.rate); math.Abs(got-want) > 2*binHz {
				t.Errorf("PeakHz() = %v, want %v ± %v", got, want, 2*binHz)
			}
		})
	}

	if _, err := (Shape{}).Spectrum(1); err == nil {
		t.Error("Spectrum(1) should fail")
	}
}
