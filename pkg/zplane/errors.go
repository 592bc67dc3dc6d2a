package zplane

import (
	"errors"
	"fmt"
)

// ErrNumericDomain is matched by every NumericDomainError
var ErrNumericDomain = errors.New("pole radius outside [0, 1)")

// NumericDomainError reports a pole that cannot be converted
type NumericDomainError struct {
	Shape  string
	Index  int
	Radius float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("shape %q pole %d: radius %g outside [0, 1)", e.Shape, e.Index, e.Radius)
}

// Unwrap returns ErrNumericDomain
func (e *NumericDomainError) Unwrap() error {
	return ErrNumericDomain
}

// ErrInvalidSampleRate is returned when a sample rate is not positive
var ErrInvalidSampleRate = errors.New("sample rate must be positive")
