// Package benefits computes Japanese childbirth benefits and income tax
// deductions for dependents and spouses.
package benefits

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError reports an input outside its permitted range.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s must be %s, got %g", ErrInvalidInput, e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Reason: "non-negative"}
	}
	return nil
}
