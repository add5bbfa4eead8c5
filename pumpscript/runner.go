package pumpscript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arloliu/go-pumpscript/internal/pool"
	"github.com/arloliu/go-pumpscript/logger"
	"github.com/arloliu/go-pumpscript/rtmenu"
)

// RunCommand executes a single command against the pump and always returns a
// CommandResult; every failure is represented as data, it never returns an
// error or panics to its caller.
//
// Exactly one command interacts with the pump at a time: concurrent callers
// block on the admission gate for the whole operation, including connection
// establishment and result assembly.
//
// A stall or timeout result means the outcome on the physical pump is unknown;
// callers must re-query state rather than assume rollback.
func (s *Session) RunCommand(cmd Command) *CommandResult {
	if msg := s.UnrecoverableError(); msg != "" {
		return &CommandResult{Success: false, Enacted: false, Message: msg}
	}

	violations := cmd.ValidateArguments()
	if len(violations) > 0 {
		return &CommandResult{Success: false, Enacted: false, Message: strings.Join(violations, "\n")}
	}

	s.cmdMutex.Lock()
	defer s.cmdMutex.Unlock()

	log := s.logger.With("cmd", cmd.String(), "run_id", uuid.NewString())

	s.activeCmd.Store(&activeCommand{cmd: cmd})
	defer s.activeCmd.Store(nil)

	s.metrics.incCommandRunCount()

	result := s.runLocked(log, cmd)
	log.Debug("command result", "result", result)

	return result
}

// runLocked runs the already-admitted command: it ensures a live connection,
// supervises the worker and converts every fault into a result.
func (s *Session) runLocked(log logger.Logger, cmd Command) (result *CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while running command", "panic", r)
			s.metrics.incCommandErrCount()
			result = &CommandResult{
				Message:   "Unexpected exception communicating with pump driver",
				Exception: fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if err := s.ensureConnected(log); err != nil {
		s.metrics.incCommandErrCount()
		return errorResult(err)
	}

	return s.superviseCommand(log, cmd)
}

// ensureConnected confirms the session is live or establishes a connection.
//
// A menu update received within the recent-update window proves liveness
// without touching the driver, but only while a menu snapshot is still held;
// a connection stop clears the snapshot and forces a reconnect even if the
// last update was recent. Otherwise it issues a connect request and blocks
// until the first menu arrives; the wait primitive converts expiry into a
// CommandError.
func (s *Session) ensureConnected(log logger.Logger) error {
	lastUpdate := s.menuLastUpdatedTime()
	receivingUpdates := s.currentMenu.Load() != nil &&
		!lastUpdate.IsZero() && time.Since(lastUpdate) < s.cfg.RecentUpdateWindow()

	log.Debug("ensure connected", "connected", s.connected.Load(), "receiving_menu_updates", receivingUpdates)
	if receivingUpdates {
		return nil
	}

	if err := s.drv.Connect(); err != nil {
		return NewCommandError("Unexpected exception while initiating/restoring pump connection", err)
	}

	nav := s.navigatorWithContext(s.ctx)
	for s.currentMenu.Load() == nil {
		log.Debug("waiting for first menu update to be sent")
		if err := nav.WaitForMenuUpdate(); err != nil {
			return err
		}
	}

	return nil
}

// superviseCommand spawns the command worker and polls it while tracking two
// deadlines: a sliding one extended on activity evidence, and a fixed overall
// ceiling honored regardless of activity.
func (s *Session) superviseCommand(log logger.Logger, cmd Command) *CommandResult {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	done := make(chan struct{})
	var workerResult *CommandResult

	go s.executeCommand(ctx, log, cmd, &workerResult, done)

	dynamicDeadline := time.Now().Add(s.cfg.DynamicTimeout())
	overallDeadline := time.Now().Add(s.cfg.OverallTimeout())

	for {
		if s.waitDone(done, s.cfg.SupervisionInterval()) {
			break
		}

		now := time.Now()
		if now.After(dynamicDeadline) {
			menuRecentlyUpdated := now.Sub(s.menuLastUpdatedTime()) < s.cfg.ActivityWindow()
			menu := s.currentMenu.Load()
			inMenuNotMainMenu := menu != nil && menu.Type() != rtmenu.MainMenu

			if menuRecentlyUpdated || inMenuNotMainMenu {
				// command still working, or waiting for the pump to complete,
				// e.g. a running bolus delivery
				dynamicDeadline = now.Add(s.cfg.DynamicTimeout())
			} else {
				log.Error("dynamic timeout running command, cancelling worker")
				cancel()
				terminated := s.waitDone(done, s.cfg.StallGracePeriod())
				log.Error("stalled command worker terminated?", "terminated", terminated)
				s.metrics.incStallCount()
				s.metrics.incCommandErrCount()

				return &CommandResult{Success: false, Enacted: false, Message: "Command stalled, check pump!"}
			}
		}

		if now.After(overallDeadline) {
			msg := fmt.Sprintf("Command %s timed out after %d min, check pump!", cmd, int(s.cfg.OverallTimeout().Minutes()))
			log.Error(msg)
			cancel()
			s.metrics.incTimeoutCount()
			s.metrics.incCommandErrCount()

			return &CommandResult{Success: false, Enacted: false, Message: msg}
		}
	}

	result := workerResult
	if result == nil {
		// the worker closed done without a result; treat as an internal fault
		s.metrics.incCommandErrCount()
		return &CommandResult{Message: "Command worker produced no result"}
	}

	if result.State == nil {
		state := ExtractPumpState(s.currentMenu.Load())
		result.State = &state
	}

	return result
}

// waitDone waits up to d for the worker to finish. It returns true once done
// is closed.
func (s *Session) waitDone(done chan struct{}, d time.Duration) bool {
	t := pool.GetTimer(d)
	defer pool.PutTimer(t)

	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// executeCommand is the per-command worker. It checks the pump precondition
// state, invokes the command and stores the result before closing done.
func (s *Session) executeCommand(ctx context.Context, log logger.Logger, cmd Command, result **CommandResult, done chan struct{}) {
	defer close(done)
	defer func() {
		s.lastCmdExecTime.Store(time.Now().UnixNano())
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in command worker", "panic", r)
			*result = &CommandResult{
				Message:   "Unexpected exception running cmd",
				Exception: fmt.Errorf("panic: %v", r),
			}
		}
	}()

	*result = s.executeCommandChecked(ctx, log, cmd)
}

func (s *Session) executeCommandChecked(ctx context.Context, log logger.Logger, cmd Command) *CommandResult {
	menu := s.currentMenu.Load()

	// check if the pump is in an error state
	if menu == nil || menu.Type() == rtmenu.WarningOrErrorMenu {
		if menu == nil {
			return &CommandResult{
				Message:   "Pump is in an error state, reading the error state resulted in the attached exception",
				Exception: ErrMenuUnavailable,
			}
		}
		msg, err := menu.Attribute(rtmenu.AttrMessage)
		if err != nil {
			return &CommandResult{
				Message:   "Pump is in an error state, reading the error state resulted in the attached exception",
				Exception: err,
			}
		}

		return &CommandResult{Message: fmt.Sprintf("Pump is in an error state: %v", msg)}
	}

	// fail every non-read-only command while the pump is suspended; a silent
	// no-op success would let treatment requests go unapplied without warning
	if menu.Type() == rtmenu.StopMenu {
		if _, readOnly := cmd.(ReadOnlyCommand); readOnly {
			return &CommandResult{Success: true, Enacted: false}
		}

		return &CommandResult{Success: false, Enacted: false, Message: "Pump is suspended"}
	}

	log.Debug("connection ready to execute command")
	state := ExtractPumpState(menu)
	log.Debug("pump state before running command", "state", state)

	start := time.Now()
	result, err := cmd.Execute(s.navigatorWithContext(ctx), state)
	if err != nil {
		s.metrics.incCommandErrCount()
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.Result()
		}
		log.Error("unexpected error running command", "error", err)

		return &CommandResult{Message: "Unexpected exception running cmd", Exception: err}
	}
	if result == nil {
		return &CommandResult{Message: "Command returned no result"}
	}

	result.CompletionTime = time.Now()
	log.Debug("command executed", "took", time.Since(start))

	return result
}

// errorResult converts an error escaping the run path into a failure result.
func errorResult(err error) *CommandResult {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Result()
	}

	return &CommandResult{
		Message:   fmt.Sprintf("Unexpected exception communicating with pump driver: %v", err),
		Exception: err,
	}
}
