package cli

import (
	"context"
	"errors"

	"github.com/embody-dev/embody/internal/orchestrator"
)

// Exit codes by failure kind.
const (
	exitFailure    = 1
	exitBadRequest = 2
	exitNotFound   = 3
	exitDecode     = 4
	exitExecution  = 5
	exitIO         = 6
	exitTimeout    = 7
	exitCanceled   = 130
)

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return exitCanceled
	}
	switch orchestrator.KindOf(err) {
	case orchestrator.KindBadRequest:
		return exitBadRequest
	case orchestrator.KindNotFound:
		return exitNotFound
	case orchestrator.KindDecode:
		return exitDecode
	case orchestrator.KindExecution:
		return exitExecution
	case orchestrator.KindIO:
		return exitIO
	case orchestrator.KindTimeout:
		return exitTimeout
	}
	return exitFailure
}

// userMessage prefixes err with a hint about what the user can do.
func userMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	switch orchestrator.KindOf(err) {
	case orchestrator.KindNotFound:
		return "no such session (" + err.Error() + "); run 'embody list' to see sessions"
	case orchestrator.KindBadRequest:
		return err.Error()
	case orchestrator.KindDecode:
		return "could not understand stored or agent data: " + err.Error()
	case orchestrator.KindExecution:
		return "agent call failed, session unchanged: " + err.Error()
	case orchestrator.KindIO:
		return "could not read or write session files: " + err.Error()
	case orchestrator.KindTimeout:
		return "timed out waiting for the session, session unchanged: " + err.Error()
	}
	return err.Error()
}
