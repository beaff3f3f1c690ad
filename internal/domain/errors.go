package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource == "":
		return "not found"
	case e.ID == "":
		return fmt.Sprintf("%s not found", e.Resource)
	default:
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ErrConstraintViolation means an insert collided with a unique key.
var ErrConstraintViolation = errors.New("unique constraint violation")

// ErrInvalidPair is returned when both sides of a pair are the same affair.
var ErrInvalidPair = errors.New("affair pair must reference two distinct affairs")

// SourceError wraps a candidate-source failure for one politician.
type SourceError struct {
	Source     string
	Politician string
	Err        error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s for politician %s: %v", e.Source, e.Politician, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
