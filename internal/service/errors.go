package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"backoffice/internal/repository"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = repository.ErrNotFound

// ValidationError collects field level input errors. Keys use request field
// names, e.g. "elements.2.options".
type ValidationError struct {
	Fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// fieldError is shorthand for a single failing field.
func fieldError(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

func (v *ValidationError) Add(field, message string) {
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationError) Has(field string) bool {
	return len(v.Fields[field]) > 0
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil returns nil when nothing was collected so callers can `return v.OrNil()`.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

// Merge copies every message of other into v.
func (v *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for f, msgs := range other.Fields {
		v.Fields[f] = append(v.Fields[f], msgs...)
	}
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(v.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RejectedError is a business rule violation carrying a message meant for the user.
type RejectedError struct {
	Reason string
}

func reject(reason string) error {
	return &RejectedError{Reason: reason}
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// IsValidation unwraps a *ValidationError.
func IsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsRejected unwraps a *RejectedError.
func IsRejected(err error) (*RejectedError, bool) {
	var r *RejectedError
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
