package pumpscript

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pumpscript/driver"
	"github.com/arloliu/go-pumpscript/rtmenu"
)

func TestNavigatorPressKey(t *testing.T) {
	require := require.New(t)

	t.Run("Press and release", func(t *testing.T) {
		drv := &fakeDriver{}
		session := newTestSession(t, drv, WithKeyDelay(time.Millisecond))

		nav := session.Navigator()
		require.NoError(nav.PressCheckKey())
		require.NoError(nav.PressUpKey())

		events := drv.keyEvents()
		require.Equal([]keyEvent{
			{key: driver.KeyCheck, pressed: true},
			{key: driver.KeyNone, pressed: true},
			{key: driver.KeyUp, pressed: true},
			{key: driver.KeyNone, pressed: true},
		}, events)
		require.Equal(uint64(2), session.GetMetrics().KeyPressCount.Load())
	})

	t.Run("Driver failure", func(t *testing.T) {
		drv := &fakeDriver{sendKeyErr: errors.New("channel closed")}
		session := newTestSession(t, drv, WithKeyDelay(time.Millisecond))

		err := session.Navigator().PressDownKey()
		require.Error(err)

		var cmdErr *CommandError
		require.ErrorAs(err, &cmdErr)
		require.Equal("Error while pressing buttons", cmdErr.Message)
	})
}

func TestNavigatorWaitForMenuUpdate(t *testing.T) {
	require := require.New(t)

	t.Run("Update arrives", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{}, WithMenuPollInterval(5*time.Millisecond))
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		go func() {
			time.Sleep(30 * time.Millisecond)
			session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))
		}()

		require.NoError(session.Navigator().WaitForMenuUpdate())
	})

	t.Run("Timeout", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{},
			WithMenuUpdateTimeout(30*time.Millisecond),
			WithMenuPollInterval(5*time.Millisecond),
		)

		err := session.Navigator().WaitForMenuUpdate()
		require.ErrorIs(err, ErrMenuUpdateTimeout)
	})
}

func TestNavigatorNavigateToMenu(t *testing.T) {
	require := require.New(t)

	// cycle models the pump's menu rotation driven by the menu key
	newCyclingDriver := func(session **Session, cycle []rtmenu.MenuType) *fakeDriver {
		pos := 0
		drv := &fakeDriver{}
		drv.onMenuKey = func() {
			pos = (pos + 1) % len(cycle)
			(*session).MenuUpdate(rtmenu.NewMenu(cycle[pos]))
		}

		return drv
	}

	t.Run("Target reached", func(t *testing.T) {
		var session *Session
		drv := newCyclingDriver(&session, []rtmenu.MenuType{
			rtmenu.MainMenu, rtmenu.BolusMenu, rtmenu.TBRMenu, rtmenu.MyDataMenu,
		})
		session = newTestSession(t, drv,
			WithKeyDelay(time.Millisecond),
			WithLeaveMenuPollInterval(time.Millisecond),
		)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		require.NoError(session.Navigator().NavigateToMenu(rtmenu.TBRMenu))

		menu := session.CurrentMenu()
		require.NotNil(menu)
		require.Equal(rtmenu.TBRMenu, menu.Type())
	})

	t.Run("Already on target", func(t *testing.T) {
		drv := &fakeDriver{}
		session := newTestSession(t, drv)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.TBRMenu))

		require.NoError(session.Navigator().NavigateToMenu(rtmenu.TBRMenu))
		require.Empty(drv.keyEvents())
	})

	t.Run("Full cycle without target fails", func(t *testing.T) {
		var session *Session
		drv := newCyclingDriver(&session, []rtmenu.MenuType{
			rtmenu.MainMenu, rtmenu.BolusMenu, rtmenu.TBRMenu,
		})
		session = newTestSession(t, drv,
			WithKeyDelay(time.Millisecond),
			WithLeaveMenuPollInterval(time.Millisecond),
		)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		err := session.Navigator().NavigateToMenu(rtmenu.MyDataMenu)
		require.Error(err)
		require.Contains(err.Error(), "Menu not found searching for MY_DATA_MENU")
		require.Contains(err.Error(), "not hidden")
	})

	t.Run("No menu available", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{})

		err := session.Navigator().NavigateToMenu(rtmenu.TBRMenu)
		require.ErrorIs(err, ErrMenuUnavailable)
	})
}

func TestNavigatorWaitForMenuToBeLeft(t *testing.T) {
	require := require.New(t)

	t.Run("Menu left", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{}, WithLeaveMenuPollInterval(time.Millisecond))
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		go func() {
			time.Sleep(20 * time.Millisecond)
			session.MenuUpdate(rtmenu.NewMenu(rtmenu.BolusMenu))
		}()

		require.NoError(session.Navigator().WaitForMenuToBeLeft(rtmenu.MainMenu))
	})

	t.Run("Menu gone counts as left", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{})
		require.NoError(session.Navigator().WaitForMenuToBeLeft(rtmenu.MainMenu))
	})

	t.Run("Timeout", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{},
			WithLeaveMenuTimeout(30*time.Millisecond),
			WithLeaveMenuPollInterval(time.Millisecond),
		)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		err := session.Navigator().WaitForMenuToBeLeft(rtmenu.MainMenu)
		require.Error(err)
		require.Contains(err.Error(), "Timeout waiting for menu MAIN_MENU to be left")
	})
}

func TestNavigatorVerifyMenuIsDisplayed(t *testing.T) {
	require := require.New(t)

	t.Run("Displayed", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{})
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.TBRMenu))

		require.NoError(session.Navigator().VerifyMenuIsDisplayed(rtmenu.TBRMenu, ""))
	})

	t.Run("Displayed after retry", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{},
			WithVerifyRetries(10),
			WithVerifyInterval(5*time.Millisecond),
		)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		go func() {
			time.Sleep(15 * time.Millisecond)
			session.MenuUpdate(rtmenu.NewMenu(rtmenu.TBRMenu))
		}()

		require.NoError(session.Navigator().VerifyMenuIsDisplayed(rtmenu.TBRMenu, ""))
	})

	t.Run("Default diagnostic", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{},
			WithVerifyRetries(1),
			WithVerifyInterval(time.Millisecond),
		)
		session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

		err := session.Navigator().VerifyMenuIsDisplayed(rtmenu.TBRMenu, "")
		require.Error(err)
		require.Contains(err.Error(), "expected to be in menu TBR_MENU")
		require.Contains(err.Error(), "MAIN_MENU")
	})

	t.Run("Custom failure message", func(t *testing.T) {
		session := newTestSession(t, &fakeDriver{},
			WithVerifyRetries(0),
			WithVerifyInterval(time.Millisecond),
		)

		err := session.Navigator().VerifyMenuIsDisplayed(rtmenu.TBRMenu, "Setting TBR percentage failed")
		require.Error(err)
		require.Equal("Setting TBR percentage failed", err.Error())
	})
}

func TestNavigatorCancelledByWorkerContext(t *testing.T) {
	require := require.New(t)

	session := newTestSession(t, &fakeDriver{},
		WithSupervisionInterval(10*time.Millisecond),
		WithDynamicTimeout(30*time.Millisecond),
		WithActivityWindow(20*time.Millisecond),
		WithStallGracePeriod(100*time.Millisecond),
	)
	session.MenuUpdate(mainMenuIdle())

	var execErr error
	cmd := &testCommand{
		execute: func(nav Navigator, state PumpState) (*CommandResult, error) {
			// outlive the dynamic timeout; the cancelled context must surface
			// through the navigator primitives
			execErr = nav.WaitForMenuToBeLeft(rtmenu.MainMenu)
			return nil, execErr
		},
	}

	result := session.RunCommand(cmd)
	require.Equal("Command stalled, check pump!", result.Message)
	require.ErrorIs(execErr, ErrCommandCancelled)
}

func TestNavigatorReadPumpState(t *testing.T) {
	require := require.New(t)

	session := newTestSession(t, &fakeDriver{})

	state := session.Navigator().ReadPumpState()
	require.Equal("Menu is not available", state.ErrorMsg)

	session.MenuUpdate(rtmenu.NewMenu(rtmenu.StopMenu))
	state = session.Navigator().ReadPumpState()
	require.True(state.Suspended)
}
