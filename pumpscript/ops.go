package pumpscript

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/go-pumpscript/driver"
	"github.com/arloliu/go-pumpscript/internal/pool"
	"github.com/arloliu/go-pumpscript/rtmenu"
)

// Navigator exposes the primitives command implementations use to drive the
// pump UI. All waits are interval polls against the session's menu state, as
// the awaited conditions are externally driven by the asynchronous driver.
//
// A Navigator handed to Command.Execute is bound to the command worker's
// context; once the supervision loop cancels a stalled worker, every primitive
// fails fast with ErrCommandCancelled. Cancellation is advisory only: the
// operation may still be in flight on the physical pump.
type Navigator interface {
	// CurrentMenu returns the latest menu snapshot, or nil if none is available.
	CurrentMenu() *rtmenu.Menu

	// PressUpKey presses and releases the up key.
	PressUpKey() error
	// PressDownKey presses and releases the down key.
	PressDownKey() error
	// PressCheckKey presses and releases the check key.
	PressCheckKey() error
	// PressMenuKey presses and releases the menu key.
	PressMenuKey() error

	// WaitForMenuUpdate blocks until the menu update timestamp advances past
	// its value at call entry, or fails after the configured timeout.
	WaitForMenuUpdate() error

	// NavigateToMenu repeatedly presses the menu key until the target menu is
	// displayed. It fails if a full cycle returns to the starting menu without
	// reaching the target; the target may be hidden by the pump configuration.
	NavigateToMenu(target rtmenu.MenuType) error

	// WaitForMenuToBeLeft blocks until the displayed menu type differs from
	// menuType, or fails after the configured timeout.
	WaitForMenuToBeLeft(menuType rtmenu.MenuType) error

	// VerifyMenuIsDisplayed re-checks a bounded number of times that expected
	// is displayed. It fails with failureMessage, or a default diagnostic when
	// failureMessage is empty.
	VerifyMenuIsDisplayed(expected rtmenu.MenuType, failureMessage string) error

	// ReadPumpState derives a normalized state snapshot from the current menu.
	ReadPumpState() PumpState
}

// navigator implements Navigator against a session, bound to a context.
type navigator struct {
	s   *Session
	ctx context.Context
}

var _ Navigator = (*navigator)(nil)

// Navigator returns navigation primitives bound to the session lifetime, for
// use outside RunCommand, e.g. in diagnostics tooling.
func (s *Session) Navigator() Navigator {
	return &navigator{s: s, ctx: s.ctx}
}

// navigatorWithContext returns primitives bound to a command worker context.
func (s *Session) navigatorWithContext(ctx context.Context) *navigator {
	return &navigator{s: s, ctx: ctx}
}

func (n *navigator) CurrentMenu() *rtmenu.Menu {
	return n.s.currentMenu.Load()
}

func (n *navigator) PressUpKey() error {
	n.s.logger.Debug("pressing up key")
	return n.pressKey(driver.KeyUp)
}

func (n *navigator) PressDownKey() error {
	n.s.logger.Debug("pressing down key")
	return n.pressKey(driver.KeyDown)
}

func (n *navigator) PressCheckKey() error {
	n.s.logger.Debug("pressing check key")
	return n.pressKey(driver.KeyCheck)
}

func (n *navigator) PressMenuKey() error {
	n.s.logger.Debug("pressing menu key")
	return n.pressKey(driver.KeyMenu)
}

// pressKey sends key-down, holds the key for the configured delay, then
// releases by sending the no-key code.
func (n *navigator) pressKey(key driver.Key) error {
	if err := n.s.drv.SendKey(key, true); err != nil {
		return NewCommandError("Error while pressing buttons", err)
	}
	if err := n.sleep(n.s.cfg.KeyDelay()); err != nil {
		return err
	}
	if err := n.s.drv.SendKey(driver.KeyNone, true); err != nil {
		return NewCommandError("Error while pressing buttons", err)
	}
	n.s.metrics.incKeyPressCount()

	return nil
}

func (n *navigator) WaitForMenuUpdate() error {
	deadline := time.Now().Add(n.s.cfg.MenuUpdateTimeout())
	initialUpdateTime := n.s.menuLastUpdated.Load()

	for n.s.menuLastUpdated.Load() == initialUpdateTime {
		if time.Now().After(deadline) {
			return NewCommandError("Timeout waiting for menu update", ErrMenuUpdateTimeout)
		}
		if err := n.sleep(n.s.cfg.MenuPollInterval()); err != nil {
			return err
		}
	}

	return nil
}

func (n *navigator) NavigateToMenu(target rtmenu.MenuType) error {
	menu := n.s.currentMenu.Load()
	if menu == nil {
		return NewCommandError("Cannot navigate", ErrMenuUnavailable)
	}

	startedFrom := menu.Type()
	movedOnce := false
	for {
		menu = n.s.currentMenu.Load()
		if menu == nil {
			return NewCommandError("Cannot navigate", ErrMenuUnavailable)
		}
		currentType := menu.Type()
		if currentType == target {
			return nil
		}
		if movedOnce && currentType == startedFrom {
			return NewCommandError(fmt.Sprintf("Menu not found searching for %s. Check menu settings on your pump to ensure it's not hidden.", target), nil)
		}
		if err := n.PressMenuKey(); err != nil {
			return err
		}
		if err := n.WaitForMenuToBeLeft(currentType); err != nil {
			return err
		}
		movedOnce = true
	}
}

func (n *navigator) WaitForMenuToBeLeft(menuType rtmenu.MenuType) error {
	deadline := time.Now().Add(n.s.cfg.LeaveMenuTimeout())

	for {
		menu := n.s.currentMenu.Load()
		if menu == nil || menu.Type() != menuType {
			return nil
		}
		if time.Now().After(deadline) {
			return NewCommandError(fmt.Sprintf("Timeout waiting for menu %s to be left", menuType), nil)
		}
		if err := n.sleep(n.s.cfg.LeaveMenuPollInterval()); err != nil {
			return err
		}
	}
}

func (n *navigator) VerifyMenuIsDisplayed(expected rtmenu.MenuType, failureMessage string) error {
	retries := n.s.cfg.VerifyRetries()

	for {
		menu := n.s.currentMenu.Load()
		if menu != nil && menu.Type() == expected {
			return nil
		}
		if retries <= 0 {
			if failureMessage == "" {
				current := rtmenu.NoMenu
				if menu != nil {
					current = menu.Type()
				}
				failureMessage = fmt.Sprintf("Invalid pump state, expected to be in menu %s, but current menu is %s", expected, current)
			}
			return NewCommandError(failureMessage, nil)
		}
		if err := n.sleep(n.s.cfg.VerifyInterval()); err != nil {
			return err
		}
		retries--
	}
}

func (n *navigator) ReadPumpState() PumpState {
	return ExtractPumpState(n.s.currentMenu.Load())
}

// sleep pauses for d or until the bound context is cancelled.
func (n *navigator) sleep(d time.Duration) error {
	t := pool.GetTimer(d)
	defer pool.PutTimer(t)

	select {
	case <-n.ctx.Done():
		return NewCommandError("Command cancelled", ErrCommandCancelled)
	case <-t.C:
		return nil
	}
}
