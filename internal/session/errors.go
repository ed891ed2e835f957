package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no snapshot exists for a session id.
var ErrNotFound = errors.New("session not found")

// ErrInvalidID is returned for ids that cannot be used as a storage key.
var ErrInvalidID = errors.New("invalid session id")

// DecodeError reports a snapshot that exists but is not valid JSON for a
// Session.
type DecodeError struct {
	SessionID string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("session %s: corrupt state: %v", e.SessionID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IOError reports a persistence read or write failure.
type IOError struct {
	SessionID string
	Op        string
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
