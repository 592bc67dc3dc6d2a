// Package ingest defines the logical preset record handed to the bank encoder
// by preset sources (SysEx dumps, JSON files, generators).
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Preset is a source-agnostic preset description. Nil scalar fields are unknown
// and get defaults at encode time.
type Preset struct {
	Name        string       `json:"name"`
	Filter      Filter       `json:"filter"`
	LFO         LFO          `json:"lfo"`
	Envelope    Envelope     `json:"envelope"`
	Modulations []Modulation `json:"modulations,omitempty"`
}

// Filter holds the filter scalars of a preset
type Filter struct {
	Cutoff    *float64 `json:"cutoff,omitempty"`
	Resonance *float64 `json:"resonance,omitempty"`
}

// LFO holds the LFO scalars of a preset
type LFO struct {
	Rate *float64 `json:"rate,omitempty"`
}

// Envelope holds the envelope scalars of a preset
type Envelope struct {
	Attack *float64 `json:"attack,omitempty"`
}

// Modulation routes a named source to a named destination
type Modulation struct {
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	Depth       float64 `json:"depth"`
}

// Float returns a pointer to v, for populating optional scalars
func Float(v float64) *float64 {
	return &v
}

// document is the wrapped form of a preset list file
type document struct {
	Bank    string   `json:"bank,omitempty"`
	Presets []Preset `json:"presets"`
}

// ParsePresets decodes either a bare JSON array of presets or an object
// with a "presets" array. The optional "bank" name is returned when present.
func ParsePresets(data []byte) ([]Preset, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, "", errors.New("empty preset document")
	}

	if trimmed[0] == '[' {
		var presets []Preset
		if err := json.Unmarshal(trimmed, &presets); err != nil {
			return nil, "", fmt.Errorf("failed to parse presets: %w", err)
		}
		return presets, "", nil
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse presets: %w", err)
	}
	return doc.Presets, doc.Bank, nil
}

// LoadPresets reads a preset list file
func LoadPresets(filename string) ([]Preset, string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(data)
}

// MarshalPresets encodes presets in the wrapped document form
func MarshalPresets(bankName string, presets []Preset) ([]byte, error) {
	return json.MarshalIndent(document{Bank: bankName, Presets: presets}, "", "  ")
}
