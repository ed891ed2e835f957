package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/embody-dev/embody/internal/agent"
	"github.com/embody-dev/embody/internal/session"
)

// ErrBadRequest marks an operation whose preconditions do not hold for
// the session's current state.
var ErrBadRequest = errors.New("bad request")

// Kind classifies an operation failure for callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindDecode
	KindBadRequest
	KindExecution
	KindIO
	KindTimeout
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindBadRequest:
		return "bad_request"
	case KindExecution:
		return "execution"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// OpError carries the context of a failed operation.
type OpError struct {
	Op        string
	SessionID string
	Phase     session.Phase
	Err       error
}

func (e *OpError) Error() string {
	if e.Phase == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("%s %s (phase %s): %v", e.Op, e.SessionID, e.Phase, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// KindOf maps err onto the failure taxonomy. Nil maps to KindUnknown.
// A deadline or cancellation hit inside the agent call stays
// KindExecution; one hit elsewhere, such as while waiting for the session
// lock, is KindTimeout or KindCanceled.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var decodeErr *session.DecodeError
	var ioErr *session.IOError
	var parseErr *agent.ParseError
	var execErr *agent.ExecutionError

	switch {
	case errors.Is(err, session.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, session.ErrInvalidID):
		return KindBadRequest
	case errors.As(err, &decodeErr), errors.As(err, &parseErr):
		return KindDecode
	case errors.As(err, &execErr), errors.Is(err, agent.ErrProfileNotFound):
		return KindExecution
	case errors.As(err, &ioErr):
		return KindIO
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	}
	return KindUnknown
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
