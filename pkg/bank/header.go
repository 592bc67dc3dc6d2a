package bank

import (
	"bytes"
	"encoding/binary"
)

// Container literals
const (
	Magic      = "SVZa"
	Version    = 0x0001
	BankID     = "RC001"
	SectionTag = "EXTaZCOR \x00\x00\x00\x00"
)

// Container field offsets
const (
	magicOffset          = 0
	versionOffset        = 4
	bankIDOffset         = 6
	reservedOffset       = 11
	sectionTagOffset     = 15
	totalSizeOffset      = 16
	compressedSizeOffset = 32
	HeaderSize           = 36
	MarkerOffset         = HeaderSize
	markerLen            = 2
	DataOffset           = MarkerOffset + markerLen
)

// Marker precedes the compressed payload. Together with the payload it forms a zlib stream.
var Marker = []byte{0x78, 0x9C}

var reserved = []byte{0x01, 0x00, 0x00, 0x00}

// Header is the parsed fixed part of a container
type Header struct {
	Magic          string `json:"magic"`
	Version        uint16 `json:"version"`
	BankID         string `json:"bankId"`
	TotalSize      uint32 `json:"totalSize"`
	CompressedSize uint32 `json:"compressedSize"`
}

// buildHeader lays out the fixed header once the payload sizes are known.
// The total size field overlaps the tail of the section tag.
func buildHeader(totalSize, compressedSize int) []byte {
	h := make([]byte, HeaderSize)
	copy(h[magicOffset:], Magic)
	binary.LittleEndian.PutUint16(h[versionOffset:], Version)
	copy(h[bankIDOffset:], BankID)
	copy(h[reservedOffset:], reserved)
	copy(h[sectionTagOffset:], SectionTag)
	binary.LittleEndian.PutUint32(h[totalSizeOffset:], uint32(totalSize))
	binary.LittleEndian.PutUint32(h[compressedSizeOffset:], uint32(compressedSize))
	return h
}

// HasMagic reports whether data starts with the container magic
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// ParseHeader reads the fixed header fields without validating them
func ParseHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize {
		return Header{}, false
	}
	le := binary.LittleEndian
	return Header{
		Magic:          string(data[magicOffset : magicOffset+len(Magic)]),
		Version:        le.Uint16(data[versionOffset:]),
		BankID:         string(data[bankIDOffset : bankIDOffset+len(BankID)]),
		TotalSize:      le.Uint32(data[totalSizeOffset:]),
		CompressedSize: le.Uint32(data[compressedSizeOffset:]),
	}, true
}
