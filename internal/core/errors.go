package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInput indicates a submission is missing required metadata or content.
var ErrInvalidInput = errors.New("invalid input")

// ExtractionError reports a document that could not be opened or parsed.
// It is fatal to that document only.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// PersistenceError reports a chunk store failure. The batch it belongs to
// has been rolled back.
//
// DocID:  the row being written when the failure happened, if any.
// Code:   backend error code (SQLSTATE for Postgres), if known.
type PersistenceError struct {
	DocID string
	Code  string
	Cause error
}

func (e *PersistenceError) Error() string {
	switch {
	case e.DocID != "" && e.Code != "":
		return fmt.Sprintf("persistence failed at %s (code %s): %v", e.DocID, e.Code, e.Cause)
	case e.DocID != "":
		return fmt.Sprintf("persistence failed at %s: %v", e.DocID, e.Cause)
	default:
		return fmt.Sprintf("persistence failed: %v", e.Cause)
	}
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// ConfigurationError reports missing or invalid startup parameters.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}
