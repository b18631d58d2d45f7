package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotApproved is returned when a pending account tries to act on the course
	ErrNotApproved = errors.New("account is not approved")
	// ErrStepNotAccessible is returned when a step is ahead of the user's progress or waits on content
	ErrStepNotAccessible = errors.New("step is not accessible")
	// ErrFormNotFound is returned for unknown personalization forms
	ErrFormNotFound = errors.New("personalization form not found")
	// ErrInvalidTransition is returned when a job cannot move to the requested status
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StoreReadError reports that user state could not be read. Callers must fail closed.
type StoreReadError struct {
	Op  string
	Err error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

// StoreWriteError reports that a completion or personalization save failed.
// No navigation may follow it.
type StoreWriteError struct {
	Op  string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// ValidationError lists the invalid fields of a submitted form
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e.Fields[key])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
