// Package sysex reads E-MU preset dumps (.syx) and maps their filter fields
// onto ingest presets.
package sysex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/james-see/zplanebank/pkg/ingest"
	"gitlab.com/gomidi/midi/v2"
)

// SysEx framing and E-MU identifiers
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7

	ManufacturerEMU = 0x18
	FamilyAudity    = 0x04
	FamilyProteus   = 0x0F

	// F0, manufacturer, family, device id, command
	HeaderSize = 5
)

// Body offsets of the filter section. These come from dumps of real units and
// are not documented by E-MU.
const (
	offsetCutoff    = 35
	offsetResonance = 36
	offsetMorph     = 60
	offsetMix       = 70
	offsetEnvDepth  = 85
	offsetLFODepth  = 90
)

// Sentinel errors
var (
	ErrInvalidSysEx = errors.New("invalid SysEx")
	ErrNotEMU       = errors.New("not an E-MU SysEx message")
)

// Dump is one E-MU preset dump message
type Dump struct {
	Family   byte
	DeviceID byte
	Command  byte
	Body     []byte
}

// FilterParams are the raw filter fields of a dump. Nil fields were beyond
// the end of the body.
type FilterParams struct {
	Cutoff    *uint8 `json:"cutoff,omitempty"`
	Resonance *uint8 `json:"resonance,omitempty"`
	Morph     *uint8 `json:"morph,omitempty"`
	Mix       *uint8 `json:"mix,omitempty"`
	EnvDepth  *int8  `json:"envDepth,omitempty"`
	LFODepth  *int8  `json:"lfoDepth,omitempty"`
}

// Validate checks F0..F7 framing and that every data byte is 7-bit
func Validate(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("%w: data too short", ErrInvalidSysEx)
	}
	if data[0] != SysExStart {
		return fmt.Errorf("%w: expected start byte 0x%02X, got 0x%02X", ErrInvalidSysEx, SysExStart, data[0])
	}
	if data[len(data)-1] != SysExEnd {
		return fmt.Errorf("%w: expected end byte 0x%02X, got 0x%02X", ErrInvalidSysEx, SysExEnd, data[len(data)-1])
	}
	for i := 1; i < len(data)-1; i++ {
		if data[i] > 127 {
			return fmt.Errorf("%w: byte at position %d is > 127 (0x%02X)", ErrInvalidSysEx, i, data[i])
		}
	}
	return nil
}

// Split cuts a .syx file into its F0..F7 messages. Bytes between messages
// are ignored; an unterminated message is an error.
func Split(data []byte) ([]midi.Message, error) {
	var msgs []midi.Message
	start := -1
	for i, b := range data {
		switch b {
		case SysExStart:
			if start >= 0 {
				return nil, fmt.Errorf("%w: message at offset %d is not terminated", ErrInvalidSysEx, start)
			}
			start = i
		case SysExEnd:
			if start >= 0 {
				msgs = append(msgs, midi.Message(data[start:i+1]))
				start = -1
			}
		}
	}
	if start >= 0 {
		return nil, fmt.Errorf("%w: message at offset %d is not terminated", ErrInvalidSysEx, start)
	}
	return msgs, nil
}

// ManufacturerID returns the one or three byte manufacturer id of a message
func ManufacturerID(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: too short for manufacturer ID", ErrInvalidSysEx)
	}
	if data[0] != SysExStart {
		return nil, fmt.Errorf("%w: missing start byte", ErrInvalidSysEx)
	}
	if data[1] == 0x00 {
		if len(data) < 5 {
			return nil, fmt.Errorf("%w: too short for extended manufacturer ID", ErrInvalidSysEx)
		}
		return data[1:4], nil
	}
	return data[1:2], nil
}

// IsEMU reports whether data is a framed E-MU message
func IsEMU(data []byte) bool {
	id, err := ManufacturerID(data)
	return err == nil && len(id) == 1 && id[0] == ManufacturerEMU
}

// ParseDump validates msg and splits it into header fields and body
func ParseDump(msg midi.Message) (*Dump, error) {
	if err := Validate(msg.Bytes()); err != nil {
		return nil, err
	}
	if !IsEMU(msg.Bytes()) {
		return nil, ErrNotEMU
	}

	var payload []byte
	if !msg.GetSysEx(&payload) {
		return nil, fmt.Errorf("%w: not a system exclusive message", ErrInvalidSysEx)
	}
	// payload starts after F0: manufacturer, family, device, command
	if len(payload) < HeaderSize-1 {
		return nil, fmt.Errorf("%w: header truncated", ErrInvalidSysEx)
	}
	return &Dump{
		Family:   payload[1],
		DeviceID: payload[2],
		Command:  payload[3],
		Body:     payload[HeaderSize-1:],
	}, nil
}

// Build frames a dump as a SysEx message
func Build(d Dump) midi.Message {
	payload := make([]byte, 0, HeaderSize-1+len(d.Body))
	payload = append(payload, ManufacturerEMU, d.Family, d.DeviceID, d.Command)
	payload = append(payload, d.Body...)
	return midi.SysEx(payload)
}

// FamilyName names the known product families
func FamilyName(family byte) string {
	switch family {
	case FamilyAudity:
		return "Audity"
	case FamilyProteus:
		return "Proteus"
	}
	return fmt.Sprintf("family 0x%02X", family)
}

// Params reads the filter section of the body
func (d *Dump) Params() FilterParams {
	var p FilterParams
	p.Cutoff = d.unsigned(offsetCutoff)
	p.Resonance = d.unsigned(offsetResonance)
	p.Morph = d.unsigned(offsetMorph)
	p.Mix = d.unsigned(offsetMix)
	p.EnvDepth = d.signed(offsetEnvDepth)
	p.LFODepth = d.signed(offsetLFODepth)
	return p
}

func (d *Dump) unsigned(offset int) *uint8 {
	if offset >= len(d.Body) {
		return nil
	}
	v := d.Body[offset]
	return &v
}

// signed reads an offset-binary depth, 64 = 0
func (d *Dump) signed(offset int) *int8 {
	if offset >= len(d.Body) {
		return nil
	}
	v := int8(int(d.Body[offset]) - 64)
	return &v
}

// Preset maps the raw fields onto a normalized ingest preset. Depths route
// to the filter cutoff.
func (p FilterParams) Preset(name string) ingest.Preset {
	preset := ingest.Preset{Name: name}
	if p.Cutoff != nil {
		preset.Filter.Cutoff = ingest.Float(float64(*p.Cutoff) / 127)
	}
	if p.Resonance != nil {
		preset.Filter.Resonance = ingest.Float(float64(*p.Resonance) / 127)
	}
	if p.EnvDepth != nil && *p.EnvDepth != 0 {
		preset.Modulations = append(preset.Modulations, ingest.Modulation{
			Source:      "ENV1",
			Destination: "filter.cutoff",
			Depth:       float64(*p.EnvDepth) / 64,
		})
	}
	if p.LFODepth != nil && *p.LFODepth != 0 {
		preset.Modulations = append(preset.Modulations, ingest.Modulation{
			Source:      "LFO1",
			Destination: "filter.cutoff",
			Depth:       float64(*p.LFODepth) / 64,
		})
	}
	return preset
}

// FileInfo is the bank, program number and name encoded in a dump filename
// such as "00_0036_REZANATOR.syx"
type FileInfo struct {
	Bank   int
	Number int
	Name   string
}

// ParseFilename splits a "<bank>_<number>_<name>" filename. Names without
// that shape are returned whole.
func ParseFilename(filename string) FileInfo {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.SplitN(stem, "_", 3)
	if len(parts) != 3 {
		return FileInfo{Name: stem}
	}
	bank, err1 := strconv.Atoi(parts[0])
	number, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return FileInfo{Name: stem}
	}
	return FileInfo{Bank: bank, Number: number, Name: strings.ReplaceAll(parts[2], "_", " ")}
}

// ParsePresets extracts one preset per E-MU message in data. Non E-MU
// messages are skipped. Several dumps in one file get numbered names.
func ParsePresets(name string, data []byte) ([]ingest.Preset, error) {
	msgs, err := Split(data)
	if err != nil {
		return nil, err
	}

	var dumps []*Dump
	for i, msg := range msgs {
		d, err := ParseDump(msg)
		if errors.Is(err, ErrNotEMU) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		dumps = append(dumps, d)
	}
	if len(dumps) == 0 {
		return nil, ErrNotEMU
	}

	presets := make([]ingest.Preset, len(dumps))
	for i, d := range dumps {
		n := name
		if len(dumps) > 1 {
			n = fmt.Sprintf("%s %d", name, i+1)
		}
		presets[i] = d.Params().Preset(n)
	}
	return presets, nil
}

// LoadPresets reads a .syx file, naming presets after the file
func LoadPresets(filename string) ([]ingest.Preset, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read syx file: %w", err)
	}
	presets, err := ParsePresets(ParseFilename(filename).Name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return presets, nil
}
