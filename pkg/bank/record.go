package bank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Record field offsets
const (
	nameOffset      = 0
	cutoffOffset    = 16
	resonanceOffset = 20
	lfoRateOffset   = 24
	attackOffset    = 28
	flagOffset      = 32
	modeOffset      = 36
	modsOffset      = 40
)

// AppendRecord appends the RecordSize-byte (104) encoding of rec to dst
func AppendRecord(dst []byte, rec *PresetRecord) []byte {
	var buf [RecordSize]byte
	copy(buf[nameOffset:nameOffset+MaxNameLen], sanitizeName(rec.Name))

	le := binary.LittleEndian
	le.PutUint32(buf[cutoffOffset:], math.Float32bits(rec.FilterCutoff))
	le.PutUint32(buf[resonanceOffset:], math.Float32bits(rec.FilterResonance))
	le.PutUint32(buf[lfoRateOffset:], math.Float32bits(rec.LFORate))
	le.PutUint32(buf[attackOffset:], math.Float32bits(rec.EnvAttack))
	if rec.Character {
		le.PutUint32(buf[flagOffset:], 1)
	}
	le.PutUint32(buf[modeOffset:], uint32(rec.Mode))

	for i, mod := range rec.Modulations {
		off := modsOffset + i*ModSlotSize
		le.PutUint32(buf[off:], math.Float32bits(mod.Depth))
		le.PutUint32(buf[off+4:], uint32(mod.Source))
	}

	return append(dst, buf[:]...)
}

// EncodeRecord returns the RecordSize-byte (104) encoding of rec
func EncodeRecord(rec *PresetRecord) []byte {
	return AppendRecord(make([]byte, 0, RecordSize), rec)
}

// DecodeRecord reads one record from the first RecordSize bytes of data.
// Fields are read as stored; no defaults are applied.
func DecodeRecord(data []byte) (PresetRecord, error) {
	if len(data) < RecordSize {
		return PresetRecord{}, fmt.Errorf("record too short: got %d bytes, need %d", len(data), RecordSize)
	}

	le := binary.LittleEndian
	name := data[nameOffset : nameOffset+NameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	rec := PresetRecord{
		Name:            string(name),
		FilterCutoff:    math.Float32frombits(le.Uint32(data[cutoffOffset:])),
		FilterResonance: math.Float32frombits(le.Uint32(data[resonanceOffset:])),
		LFORate:         math.Float32frombits(le.Uint32(data[lfoRateOffset:])),
		EnvAttack:       math.Float32frombits(le.Uint32(data[attackOffset:])),
		Character:       le.Uint32(data[flagOffset:]) != 0,
		Mode:            Mode(le.Uint32(data[modeOffset:])),
	}

	for i := range rec.Modulations {
		off := modsOffset + i*ModSlotSize
		rec.Modulations[i] = ModulationEntry{
			Depth:       math.Float32frombits(le.Uint32(data[off:])),
			Source:      Source(le.Uint32(data[off+4:])),
			Destination: DestinationFilterCutoff,
		}
	}

	return rec, nil
}

// sanitizeName truncates to MaxNameLen bytes and replaces anything outside
// printable ASCII, so the stored name never contains a NUL terminator early.
func sanitizeName(name string) []byte {
	out := make([]byte, 0, MaxNameLen)
	for i := 0; i < len(name) && len(out) < MaxNameLen; i++ {
		c := name[i]
		if c < 32 || c > 126 {
			c = '?'
		}
		out = append(out, c)
	}
	return out
}

// MarshalBank returns the concatenated records of b
func MarshalBank(b *Bank) []byte {
	out := make([]byte, 0, PayloadSize)
	for i := range b.Presets {
		out = AppendRecord(out, &b.Presets[i])
	}
	return out
}

// UnmarshalBank parses a PayloadSize-byte payload into a bank
func UnmarshalBank(payload []byte) (*Bank, error) {
	if len(payload) != PayloadSize {
		return nil, fmt.Errorf("bank payload is %d bytes, want %d", len(payload), PayloadSize)
	}
	b := &Bank{}
	for i := range b.Presets {
		rec, err := DecodeRecord(payload[i*RecordSize:])
		if err != nil {
			return nil, err
		}
		b.Presets[i] = rec
	}
	return b, nil
}
