// Package bank encodes and decodes SVZa filter-preset bank containers
package bank

import "strings"

// Record and bank geometry
const (
	NameSize    = 16 // Name field width in bytes
	MaxNameLen  = 15 // Visible characters kept from a preset name
	ModSlots    = 8  // Modulation slots per record
	ModSlotSize = 8  // depth f32 + source u32
	RecordSize  = NameSize + 4*4 + 4 + 4 + ModSlots*ModSlotSize
	BankSize    = 32 // Records per bank
	PayloadSize = RecordSize * BankSize
)

// Mode is the Z-plane character of a preset
type Mode uint32

const (
	ModeAir Mode = iota
	ModeLiquid
	ModePunch
)

var modeNames = [...]string{"Air", "Liquid", "Punch"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}

// ParseMode returns the mode with the given name
func ParseMode(name string) (Mode, bool) {
	for i, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(i), true
		}
	}
	return ModeAir, false
}

// Source identifies a modulation source
type Source uint32

const (
	SourceLFO1 Source = iota
	SourceLFO2
	SourceENV1
	SourceENV2
	SourceENV3
	SourceENV4
	SourceKey
	SourceVelocity
	SourceMIDICC1
	SourceMIDICC2
	SourceMIDICC7
)

var sourceNames = [...]string{
	"LFO1", "LFO2", "ENV1", "ENV2", "ENV3", "ENV4",
	"KEY", "VEL", "MIDI_CC1", "MIDI_CC2", "MIDI_CC7",
}

func (s Source) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return "UNKNOWN"
}

// SourceFromName maps a source name to its id. Unrecognized names map to SourceLFO1.
func SourceFromName(name string) Source {
	for i, n := range sourceNames {
		if n == name {
			return Source(i)
		}
	}
	return SourceLFO1
}

// Destination identifies a modulation target. Only filter cutoff is addressable
// in the record layout, so destinations are not serialized.
type Destination uint32

const DestinationFilterCutoff Destination = 0

// ModulationEntry is one slot of a preset's modulation matrix
type ModulationEntry struct {
	Source      Source      `json:"source"`
	Depth       float32     `json:"depth"`
	Destination Destination `json:"destination"`
}

// IsEmpty reports whether the slot is a zero-filled placeholder
func (e ModulationEntry) IsEmpty() bool {
	return e == ModulationEntry{}
}

// PresetRecord is the fixed-layout form of one preset
type PresetRecord struct {
	Name            string                    `json:"name"`
	FilterCutoff    float32                   `json:"filterCutoff"`
	FilterResonance float32                   `json:"filterResonance"`
	LFORate         float32                   `json:"lfoRate"`
	EnvAttack       float32                   `json:"envAttack"`
	Character       bool                      `json:"character"`
	Mode            Mode                      `json:"mode"`
	Modulations     [ModSlots]ModulationEntry `json:"modulations"`
}

// ActiveModulations returns the non-empty modulation slots in order
func (r *PresetRecord) ActiveModulations() []ModulationEntry {
	var out []ModulationEntry
	for _, m := range r.Modulations {
		if !m.IsEmpty() {
			out = append(out, m)
		}
	}
	return out
}

// Bank is a named, fixed-capacity collection of preset records
type Bank struct {
	Name    string
	Presets [BankSize]PresetRecord
}
