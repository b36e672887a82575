package services

import "fmt"

// ValidationError reports a missing or malformed user-supplied field. It is
// raised before any database write.
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

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// PersistenceError wraps a database read/write failure. It is surfaced to
// the caller as-is; nothing in this package retries automatically.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// NormalizationError reports a webhook payload that could not be normalized
// into a canonical message. The original payload is preserved so a failed
// delivery can be inspected later instead of being dropped.
type NormalizationError struct {
	Err error
	Raw []byte
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize message: %v", e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

func NewNormalizationError(err error, raw []byte) *NormalizationError {
	return &NormalizationError{Err: err, Raw: raw}
}
