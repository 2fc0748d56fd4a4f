package models

import "errors"

// Custom errors
var (
	ErrModelNameRequired = errors.New("model name is required")
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrInvalidID         = errors.New("invalid ID format")
	ErrInvalidEntry      = errors.New("invalid race entry")
)
