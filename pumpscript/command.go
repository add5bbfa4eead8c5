package pumpscript

import (
	"fmt"
	"time"
)

// PumpState is a normalized snapshot of the pump state derived from the
// currently displayed menu.
type PumpState struct {
	// Suspended indicates that delivery is stopped.
	Suspended bool
	// TBRActive indicates that a temporary basal rate is running.
	TBRActive bool
	// TBRPercent is the TBR percentage, valid while TBRActive is true.
	TBRPercent int
	// TBRRemainingDuration is the remaining TBR runtime in minutes.
	TBRRemainingDuration int
	// TBRRate is the currently delivered basal rate under the TBR.
	TBRRate float64
	// ErrorMsg carries the warning/error text or a diagnostic when the state
	// could not be derived. Empty when the state was read cleanly.
	ErrorMsg string
}

func (s PumpState) String() string {
	return fmt.Sprintf("PumpState{suspended=%t, tbrActive=%t, tbrPercent=%d, tbrRemainingDuration=%d, tbrRate=%.2f, errorMsg=%q}",
		s.Suspended, s.TBRActive, s.TBRPercent, s.TBRRemainingDuration, s.TBRRate, s.ErrorMsg)
}

// CommandResult is the outcome of running a command against the pump.
// RunCommand always returns one; failures are represented as data, never as a
// raised error.
type CommandResult struct {
	// Success indicates that the command completed as requested.
	Success bool
	// Enacted indicates that the command changed state on the pump. A stall or
	// timeout result leaves Enacted false even though the device outcome is unknown.
	Enacted bool
	// Message is a human-readable description of the outcome, set on failures.
	Message string
	// Exception carries the underlying error for unexpected failures.
	Exception error
	// CompletionTime is the time the command finished executing.
	CompletionTime time.Time
	// State is the pump state after execution. RunCommand populates it from the
	// current menu when the command did not provide one.
	State *PumpState
}

func (r *CommandResult) String() string {
	return fmt.Sprintf("CommandResult{success=%t, enacted=%t, message=%q, exception=%v, state=%v}",
		r.Success, r.Enacted, r.Message, r.Exception, r.State)
}

// Command is a single operation to run against the pump.
//
// Implementations read and write device state exclusively through the
// Navigator they receive; connection management, serialization and timeout
// supervision belong to the Session.
type Command interface {
	fmt.Stringer

	// ValidateArguments checks the command arguments and returns a list of
	// violations. A non-empty result prevents any device interaction.
	ValidateArguments() []string

	// Execute runs the command. state is the pump state read right before
	// execution. Returned errors of type *CommandError convert into their
	// failure result; any other error becomes a generic failure.
	Execute(nav Navigator, state PumpState) (*CommandResult, error)
}

// ReadOnlyCommand marks commands that only read state and never change it.
// A read-only command issued while the pump is suspended succeeds as a no-op
// instead of failing.
type ReadOnlyCommand interface {
	Command

	// StateReadOnly is a marker method; it performs no work.
	StateReadOnly()
}

// ReadPumpStateCommand reads the pump state without interacting with the
// device beyond the menu snapshots the driver already delivers.
type ReadPumpStateCommand struct{}

var _ ReadOnlyCommand = ReadPumpStateCommand{}

func (ReadPumpStateCommand) ValidateArguments() []string {
	return nil
}

func (ReadPumpStateCommand) Execute(nav Navigator, state PumpState) (*CommandResult, error) {
	return &CommandResult{Success: true, Enacted: false, State: &state}, nil
}

func (ReadPumpStateCommand) StateReadOnly() {}

func (ReadPumpStateCommand) String() string {
	return "ReadPumpStateCommand"
}
