package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrAPIKeyNotFound   = errors.New("API key does not exist")
	ErrAPIKeyInactive   = errors.New("API key is not active")
	ErrAPIKeyExists     = errors.New("API key already exists")
	ErrRequestNotFound  = errors.New("request not found")
	ErrProviderNotFound = errors.New("no provider serves this engine")

	// ErrJobTerminated is the cancellation cause of a job stopped by Terminate.
	ErrJobTerminated = errors.New("job terminated")
)

// FieldRequired is the message attached to a missing mandatory field.
const FieldRequired = "This field is required."

// ValidationError reports field-level input problems.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an error with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {message}}}
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field has a message.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
