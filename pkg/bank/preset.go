package bank

import (
	"fmt"
	"strings"

	"github.com/james-see/zplanebank/pkg/ingest"
)

// Encode-time defaults for unknown preset scalars
const (
	DefaultCutoff    = 0.5
	DefaultResonance = 0.2
	DefaultLFORate   = 0.5
	DefaultAttack    = 0.1
)

// Destination substrings used to derive missing filter scalars from the mod matrix
const (
	cutoffDestination    = "filter.cutoff"
	resonanceDestination = "filter.t2"
)

// DefaultRecord returns an initialized preset with every scalar at its default
func DefaultRecord(name string) PresetRecord {
	return PresetRecord{
		Name:            name,
		FilterCutoff:    DefaultCutoff,
		FilterResonance: DefaultResonance,
		LFORate:         DefaultLFORate,
		EnvAttack:       DefaultAttack,
		Character:       true,
		Mode:            ModeAir,
	}
}

// InitName returns the name of the n-th (1-based) padding preset
func InitName(n int) string {
	return fmt.Sprintf("Init %d", n)
}

// FromPreset maps a logical preset onto the fixed record layout.
//
// A missing cutoff or resonance is taken from the average depth of modulations
// routed to it, falling back to the package defaults. Only the first ModSlots
// modulations are kept; the rest of the matrix stays zero-filled.
func FromPreset(p ingest.Preset) PresetRecord {
	rec := DefaultRecord(p.Name)

	if p.Filter.Cutoff != nil {
		rec.FilterCutoff = float32(*p.Filter.Cutoff)
	} else if avg, ok := averageDepth(p.Modulations, cutoffDestination); ok {
		rec.FilterCutoff = float32(avg)
	}
	if p.Filter.Resonance != nil {
		rec.FilterResonance = float32(*p.Filter.Resonance)
	} else if avg, ok := averageDepth(p.Modulations, resonanceDestination); ok {
		rec.FilterResonance = float32(avg)
	}
	if p.LFO.Rate != nil {
		rec.LFORate = float32(*p.LFO.Rate)
	}
	if p.Envelope.Attack != nil {
		rec.EnvAttack = float32(max(0, *p.Envelope.Attack))
	}

	for i, mod := range p.Modulations {
		if i >= ModSlots {
			break
		}
		rec.Modulations[i] = ModulationEntry{
			Source:      SourceFromName(mod.Source),
			Depth:       float32(mod.Depth),
			Destination: DestinationFilterCutoff,
		}
	}

	rec.Mode = DetermineMode(p.Modulations)
	return rec
}

// DetermineMode classifies a modulation list by the kinds of sources it uses.
// Two or more LFO and three or more ENV sources make a Punch preset; five or
// more KEY sources make a Liquid one; everything else is Air.
func DetermineMode(mods []ingest.Modulation) Mode {
	var lfo, env, key int
	for _, m := range mods {
		if strings.Contains(m.Source, "LFO") {
			lfo++
		}
		if strings.Contains(m.Source, "ENV") {
			env++
		}
		if strings.Contains(m.Source, "KEY") {
			key++
		}
	}

	switch {
	case lfo >= 2 && env >= 3:
		return ModePunch
	case key >= 5:
		return ModeLiquid
	default:
		return ModeAir
	}
}

func averageDepth(mods []ingest.Modulation, destination string) (float64, bool) {
	var sum float64
	var n int
	for _, m := range mods {
		if strings.Contains(m.Destination, destination) {
			sum += m.Depth
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// BuildBank maps presets into a full bank. Presets past BankSize are dropped and
// reported through the returned EncodingError; short lists are padded with
// default "Init N" presets.
func BuildBank(presets []ingest.Preset, name string) (Bank, *EncodingError) {
	b := Bank{Name: name}

	var warn *EncodingError
	if len(presets) > BankSize {
		warn = &EncodingError{Supplied: len(presets), Capacity: BankSize}
		presets = presets[:BankSize]
	}

	for i, p := range presets {
		b.Presets[i] = FromPreset(p)
	}
	for i := len(presets); i < BankSize; i++ {
		b.Presets[i] = DefaultRecord(InitName(i + 1))
	}

	return b, warn
}
