package bank

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/zlib"
)

// Names of the recovery passes, as reported to observers
const (
	PassStrings      = "strings"
	PassCoefficients = "coefficients"
	PassSignatures   = "signatures"
	PassPresets      = "presets"
)

// Artifacts is everything recovered from a container
type Artifacts struct {
	Size         int                `json:"size"`
	Header       *Header            `json:"header,omitempty"`
	MarkerOffset int                `json:"markerOffset"`
	Decompressed []byte             `json:"-"`
	Strings      []string           `json:"strings"`
	Coefficients []CoefficientArray `json:"coefficients"`
	Signatures   []Signature        `json:"signatures"`
	Presets      []PresetRecord     `json:"presets,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// ZPlaneCandidates returns the coefficient arrays classified as Z-plane-like
func (a *Artifacts) ZPlaneCandidates() []CoefficientArray {
	var out []CoefficientArray
	for _, c := range a.Coefficients {
		if c.Classification.ZPlaneLike {
			out = append(out, c)
		}
	}
	return out
}

// Decode locates and decompresses the payload of a container and runs the
// recovery passes over it. The input need not come from Encode and is never
// modified. Only a missing magic, a missing marker or a corrupt stream fail;
// empty recovery results are not errors.
func Decode(data []byte, opts ...Option) (*Artifacts, error) {
	o := newOptions(opts)

	if !HasMagic(data) {
		return nil, &FormatError{Reason: "missing SVZa magic"}
	}

	offset := bytes.Index(data, Marker)
	if offset < 0 {
		return nil, &FormatError{Reason: "no compressed data marker found"}
	}
	o.Observer.MarkerFound(offset)

	raw, err := decompress(data[offset:], o.MaxDecompressed)
	if err != nil {
		return nil, &DecompressionError{Offset: offset, Cause: err}
	}
	o.Observer.Decompressed(len(raw))

	a := &Artifacts{
		Size:         len(data),
		MarkerOffset: offset,
		Decompressed: raw,
		Strings:      []string{},
		Coefficients: []CoefficientArray{},
		Signatures:   []Signature{},
	}
	if h, ok := ParseHeader(data); ok {
		a.Header = &h
		a.Warnings = headerWarnings(h, len(data), offset)
	}

	runPass(o.Observer, PassStrings, func() (int, error) {
		a.Strings = append(a.Strings, slices.Collect(Strings(raw, o.MinString, o.MaxString))...)
		return len(a.Strings), nil
	})
	runPass(o.Observer, PassCoefficients, func() (int, error) {
		a.Coefficients = append(a.Coefficients, FindCoefficients(raw, o.Alignments, o.CoefficientLimit, o.MinCoefficients)...)
		return len(a.Coefficients), nil
	})
	runPass(o.Observer, PassSignatures, func() (int, error) {
		a.Signatures = append(a.Signatures, FindSignatures(raw, o.Signatures)...)
		return len(a.Signatures), nil
	})
	// A payload of exactly one bank is also parsed record by record
	if len(raw) == PayloadSize {
		runPass(o.Observer, PassPresets, func() (int, error) {
			b, err := UnmarshalBank(raw)
			if err != nil {
				return 0, err
			}
			a.Presets = b.Presets[:]
			return len(a.Presets), nil
		})
	}

	return a, nil
}

// runPass isolates one recovery pass so a failure leaves the others intact
func runPass(obs Observer, name string, pass func() (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			obs.PassFailed(name, r)
		}
	}()
	n, err := pass()
	if err != nil {
		obs.PassFailed(name, err)
		return
	}
	obs.PassCompleted(name, n)
}

func decompress(stream []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("decompressed payload exceeds %d bytes", limit)
	}
	return out, nil
}

// headerWarnings flags header fields that disagree with what was found.
// The layout past the magic is reverse engineered, so mismatches are reported
// rather than rejected.
func headerWarnings(h Header, size, markerOffset int) []string {
	var w []string
	if h.Version != Version {
		w = append(w, fmt.Sprintf("unexpected version 0x%04x", h.Version))
	}
	if h.BankID != BankID {
		w = append(w, fmt.Sprintf("unexpected bank id %q", h.BankID))
	}
	if int(h.TotalSize) != size {
		w = append(w, fmt.Sprintf("total size field %d does not match container length %d", h.TotalSize, size))
	}
	if markerOffset != MarkerOffset {
		w = append(w, fmt.Sprintf("compression marker at 0x%04x, expected 0x%04x", markerOffset, MarkerOffset))
	} else if int(h.CompressedSize) != size-DataOffset {
		w = append(w, fmt.Sprintf("compressed size field %d does not match %d trailing bytes", h.CompressedSize, size-DataOffset))
	}
	return w
}
