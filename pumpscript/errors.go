package pumpscript

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNil indicates that a nil SessionConfig was provided.
	ErrConfigNil = errors.New("session config is nil")

	// ErrDriverNil indicates that a nil pump driver was provided.
	ErrDriverNil = errors.New("pump driver is nil")

	// ErrMenuUnavailable indicates that no menu snapshot has been received yet.
	ErrMenuUnavailable = errors.New("menu is not available")

	// ErrMenuUpdateTimeout indicates that no menu update arrived within the timeout.
	ErrMenuUpdateTimeout = errors.New("timeout waiting for menu update")

	// ErrCommandCancelled indicates that the command worker was cancelled by the
	// supervision loop. The outcome on the physical pump is unknown.
	ErrCommandCancelled = errors.New("command cancelled")
)

// CommandError represents a failure during command execution against the pump.
// It carries a human-readable message and an optional underlying cause, and
// converts into a failed CommandResult at the RunCommand boundary.
type CommandError struct {
	// Message is the human-readable failure description.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// NewCommandError creates a CommandError with the given message and optional cause.
func NewCommandError(message string, cause error) *CommandError {
	return &CommandError{Message: message, Cause: cause}
}

func (e *CommandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

// Result converts the error into a failed CommandResult.
func (e *CommandError) Result() *CommandResult {
	return &CommandResult{
		Success:   false,
		Enacted:   false,
		Message:   e.Message,
		Exception: e.Cause,
	}
}
