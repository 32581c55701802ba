package project

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the project doesn't exist.
	ErrNotFound = errors.New("project not found")
	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("missing required fields")
	// ErrTransient indicates a retryable backend failure.
	ErrTransient = errors.New("transient server error")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransientError reports an injected or real backend failure for an operation.
type TransientError struct {
	Op Operation
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("Failed to %s. Please try again.", e.Op.verb())
}

func (e *TransientError) Unwrap() error {
	return ErrTransient
}
