package pumpscript

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-pumpscript/driver"
	"github.com/arloliu/go-pumpscript/rtmenu"
)

func startMonitoredSession(t *testing.T, drv *fakeDriver, opts ...SessionOption) *Session {
	t.Helper()

	base := []SessionOption{
		WithMonitorInterval(5 * time.Millisecond),
		WithInactivityTimeout(20 * time.Millisecond),
		WithDisconnectSpacing(30 * time.Millisecond),
	}
	session := newTestSession(t, drv, append(base, opts...)...)
	require.NoError(t, session.Start())

	return session
}

func TestIdleDisconnect(t *testing.T) {
	require := require.New(t)

	drv := &fakeDriver{}
	session := startMonitoredSession(t, drv)
	session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

	require.Eventually(func() bool {
		return drv.disconnectCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	require.False(session.IsConnected())
	require.GreaterOrEqual(session.GetMetrics().DisconnectCount.Load(), uint64(1))
}

func TestIdleDisconnectSkippedWhileCommandRuns(t *testing.T) {
	require := require.New(t)

	drv := &fakeDriver{}
	session := startMonitoredSession(t, drv)
	session.MenuUpdate(mainMenuIdle())

	release := make(chan struct{})
	cmd := &testCommand{
		execute: func(nav Navigator, state PumpState) (*CommandResult, error) {
			<-release
			return &CommandResult{Success: true}, nil
		},
	}

	resultCh := make(chan *CommandResult, 1)
	go func() { resultCh <- session.RunCommand(cmd) }()

	require.Eventually(session.IsPumpBusy, time.Second, time.Millisecond)

	// the monitor must never drop the connection under a running command,
	// no matter how long the inactivity window has been exceeded
	time.Sleep(100 * time.Millisecond)
	require.Equal(int32(0), drv.disconnectCalls.Load())
	require.True(session.IsConnected())

	close(release)
	result := <-resultCh
	require.True(result.Success)
}

func TestIdleDisconnectSkippedWhileDisconnected(t *testing.T) {
	require := require.New(t)

	drv := &fakeDriver{}
	session := startMonitoredSession(t, drv)

	// never connected, nothing to disconnect
	time.Sleep(100 * time.Millisecond)
	require.Equal(int32(0), drv.disconnectCalls.Load())
	require.Empty(session.UnrecoverableError())
}

func TestIdleDisconnectServiceGone(t *testing.T) {
	require := require.New(t)

	drv := &fakeDriver{disconnectErr: driver.ErrServiceGone}
	session := startMonitoredSession(t, drv)
	session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

	require.Eventually(func() bool {
		return session.UnrecoverableError() != ""
	}, time.Second, 5*time.Millisecond)
	require.Equal(driver.ErrServiceGone.Error(), session.UnrecoverableError())

	// the monitor terminates itself once the session is beyond repair
	require.Eventually(func() bool {
		return session.taskMgr.TaskCount() == 0
	}, time.Second, 5*time.Millisecond)

	// every future command short-circuits with the sticky fault
	result := session.RunCommand(&testCommand{})
	require.False(result.Success)
	require.Equal(driver.ErrServiceGone.Error(), result.Message)
	require.Equal(int32(0), drv.connectCalls.Load())
}

func TestIdleDisconnectTransientFailure(t *testing.T) {
	require := require.New(t)

	drv := &fakeDriver{disconnectErr: errors.New("driver busy")}
	session := startMonitoredSession(t, drv)
	session.MenuUpdate(rtmenu.NewMenu(rtmenu.MainMenu))

	require.Eventually(func() bool {
		return drv.disconnectCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	// a transient failure keeps the monitor alive and the session usable
	require.Empty(session.UnrecoverableError())
	require.Equal(1, session.taskMgr.TaskCount())
	require.True(session.IsConnected())
	require.Equal(uint64(0), session.GetMetrics().DisconnectCount.Load())
}
