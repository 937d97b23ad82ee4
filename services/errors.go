package services

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrProofNotFound = errors.New("payment proof not found")
)

// ValidationError is bad client input, reported before any storage call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// StorageError means no backend could serve the operation. The client is
// expected to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TotalMismatch is informational: the submitted total disagreed with the
// recomputed one by more than a cent. The order is still accepted.
type TotalMismatch struct {
	Submitted float64 `json:"submitted"`
	Computed  float64 `json:"computed"`
}

func (m *TotalMismatch) Error() string {
	return fmt.Sprintf("submitted total %.2f does not match computed total %.2f", m.Submitted, m.Computed)
}
