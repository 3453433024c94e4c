package storyapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUpstream marks any failure to get a 2xx answer from the story service.
	ErrUpstream = errors.New("story service request failed")
	// ErrValidation marks a 2xx payload that does not have the expected shape.
	ErrValidation = errors.New("invalid story service payload")
)

// StatusError is returned when the story service answers with a non-2xx status.
type StatusError struct {
	Op         Op
	StatusCode int
	// Message is the upstream "error" field when one was sent.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("failed to %s (status %d): %s", e.Op.describe(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("failed to %s (status %d)", e.Op.describe(), e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUpstream
}

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Op     Op
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s response: %s %s", e.Op, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
