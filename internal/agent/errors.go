// Package agent runs prompts through the external model CLI and turns its
// free-text replies into structured payloads.
package agent

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound is returned when no profile with the requested name
// exists.
var ErrProfileNotFound = errors.New("profile not found")

// ExecutionError reports a failed invocation of the execution capability.
type ExecutionError struct {
	Err    error
	Stderr string
}

func (e *ExecutionError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("agent execution failed: %v", e.Err)
	}
	return fmt.Sprintf("agent execution failed: %v\nstderr: %s", e.Err, e.Stderr)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ParseError reports model output with no decodable payload.
type ParseError struct {
	Strategy string
	Err      error
	Snippet  string
}

func (e *ParseError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("parse agent output: %v", e.Err)
	}
	return fmt.Sprintf("parse agent output (%s): %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
