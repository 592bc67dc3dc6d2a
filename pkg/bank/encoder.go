package bank

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"

	"github.com/james-see/zplanebank/pkg/ingest"
	"github.com/klauspost/compress/flate"
)

// EncodeResult holds an encoded container and what went into it
type EncodeResult struct {
	Data     []byte
	Bank     Bank
	RawSize  int
	Warnings []error
}

// Encode builds a container from presets. Supplying more than BankSize presets
// is not fatal: the extras are dropped and an *EncodingError is added to Warnings.
func Encode(presets []ingest.Preset, bankName string, opts ...Option) (*EncodeResult, error) {
	o := newOptions(opts)

	b, warn := BuildBank(presets, bankName)
	result := &EncodeResult{Bank: b}
	if warn != nil {
		o.Observer.EncodeTruncated(warn.Supplied, warn.Capacity)
		result.Warnings = append(result.Warnings, warn)
	}
	if added := BankSize - min(len(presets), BankSize); added > 0 {
		o.Observer.EncodePadded(added)
	}

	data, err := EncodeBank(&result.Bank, o.Observer)
	if err != nil {
		return nil, err
	}
	result.Data = data
	result.RawSize = PayloadSize
	return result, nil
}

// EncodeBank serializes, compresses and wraps an already built bank
func EncodeBank(b *Bank, obs Observer) ([]byte, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	payload := MarshalBank(b)
	compressed, err := compress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress bank payload: %w", err)
	}
	obs.PayloadCompressed(len(payload), len(compressed))

	total := DataOffset + len(compressed)
	out := make([]byte, 0, total)
	out = append(out, buildHeader(total, len(compressed))...)
	out = append(out, Marker...)
	out = append(out, compressed...)
	return out, nil
}

// compress deflates payload at best compression and appends its big-endian
// Adler-32, so that Marker followed by the result is a complete zlib stream.
func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], adler32.Checksum(payload))
	buf.Write(sum[:])
	return buf.Bytes(), nil
}
