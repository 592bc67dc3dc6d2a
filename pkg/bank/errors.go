package bank

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class
var (
	ErrFormat        = errors.New("not a recognized bank container")
	ErrDecompression = errors.New("bank payload decompression failed")
	ErrEncoding      = errors.New("bank capacity exceeded")
)

// FormatError reports input that is not a bank container
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrFormat, e.Reason)
}

// Unwrap returns ErrFormat
func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// DecompressionError reports a corrupt or truncated compressed stream
type DecompressionError struct {
	Offset int // Offset of the compression marker
	Cause  error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("%s at offset 0x%04x: %v", ErrDecompression, e.Offset, e.Cause)
}

// Unwrap returns both ErrDecompression and the underlying cause
func (e *DecompressionError) Unwrap() []error {
	return []error{ErrDecompression, e.Cause}
}

// EncodingError is a non-fatal warning that presets were dropped to fit the bank
type EncodingError struct {
	Supplied int
	Capacity int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %d presets supplied, %d kept", ErrEncoding, e.Supplied, e.Capacity)
}

// Unwrap returns ErrEncoding
func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}
