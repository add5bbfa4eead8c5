package pumpscript

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-pumpscript/driver"
	"github.com/arloliu/go-pumpscript/internal/queue"
	"github.com/arloliu/go-pumpscript/internal/util"
	"github.com/arloliu/go-pumpscript/logger"
	"github.com/arloliu/go-pumpscript/rtmenu"
)

// activeCommand wraps the running command so it can live in an atomic pointer.
type activeCommand struct {
	cmd Command
}

// DisplayFragment is a raw display bitmap fragment retained for diagnostics.
type DisplayFragment struct {
	// Index identifies which quarter of the display the fragment covers.
	Index int
	// Data is the encoded bitmap fragment.
	Data []byte
	// ReceivedAt is the time the fragment arrived.
	ReceivedAt time.Time
}

// Session mediates between callers running commands and the asynchronous pump
// driver. It is the single source of truth for the latest menu snapshot and
// the connection state.
//
// Create one Session per physical pump; it lives for the process lifetime.
// The shared fields are written by the driver callback goroutine and read by
// the command runner and the idle monitor concurrently; all consumers treat
// them as approximate, eventually-consistent liveness signals.
type Session struct {
	pctx      context.Context
	ctx       context.Context
	ctxCancel context.CancelFunc
	cfg       *SessionConfig
	logger    logger.Logger
	drv       driver.Driver
	taskMgr   *TaskManager

	// cmdMutex is the single-command admission gate. It spans connection
	// establishment, worker supervision and result assembly.
	cmdMutex sync.Mutex

	currentMenu     atomic.Pointer[rtmenu.Menu]
	menuLastUpdated atomic.Int64 // unix nanos, 0 until the first update
	connected       atomic.Bool
	lastCmdExecTime atomic.Int64 // unix nanos
	lastDisconnect  atomic.Int64 // unix nanos
	activeCmd       atomic.Pointer[activeCommand]
	unrecoverable   atomic.Pointer[string]

	displayMu     sync.Mutex
	displayFrames queue.Queue

	metrics SessionMetrics
}

// ensure Session implements the driver callback interface.
var _ driver.Handler = (*Session)(nil)

// NewSession creates a new Session for the given pump driver.
// It does not touch the driver; call Start to register the callback handler
// and spawn the idle disconnect monitor.
func NewSession(ctx context.Context, drv driver.Driver, cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if drv == nil {
		return nil, ErrDriverNil
	}

	s := &Session{
		pctx:          ctx,
		cfg:           cfg,
		logger:        cfg.Logger(),
		drv:           drv,
		taskMgr:       NewTaskManager(ctx, cfg.Logger()),
		displayFrames: queue.NewSliceQueue(cfg.DisplayFragmentRingSize()),
	}
	s.ctx, s.ctxCancel = context.WithCancel(ctx)

	return s, nil
}

// Start registers the session as the driver's callback sink and spawns the
// idle disconnect monitor.
func (s *Session) Start() error {
	if err := s.drv.SetHandler(s); err != nil {
		return fmt.Errorf("failed to register driver handler: %w", err)
	}

	s.lastDisconnect.Store(time.Now().UnixNano())

	_, err := s.taskMgr.StartInterval("idleDisconnectMonitor", s.idleDisconnectCheck, s.cfg.MonitorInterval(), false)
	if err != nil {
		return err
	}

	return nil
}

// Shutdown stops all background tasks and waits for them to terminate.
// The session must not be used afterwards.
func (s *Session) Shutdown() {
	s.ctxCancel()
	s.taskMgr.Stop()
	s.taskMgr.Wait()
}

// IsPumpBusy returns true while a command is executing against the pump.
func (s *Session) IsPumpBusy() bool {
	return s.activeCmd.Load() != nil
}

// IsConnected returns the current connectivity flag.
func (s *Session) IsConnected() bool {
	return s.connected.Load()
}

// CurrentMenu returns the latest menu snapshot, or nil if none has been
// received yet or the connection stopped.
func (s *Session) CurrentMenu() *rtmenu.Menu {
	return s.currentMenu.Load()
}

// UnrecoverableError returns the sticky fault message, or an empty string if
// the session is healthy.
func (s *Session) UnrecoverableError() string {
	if msg := s.unrecoverable.Load(); msg != nil {
		return *msg
	}
	return ""
}

// GetMetrics returns the metrics associated with the session.
func (s *Session) GetMetrics() *SessionMetrics {
	return &s.metrics
}

// GetLogger returns the logger associated with the session.
func (s *Session) GetLogger() logger.Logger {
	return s.logger
}

// DrainDisplayFragments returns and clears the retained raw display fragments.
func (s *Session) DrainDisplayFragments() []DisplayFragment {
	s.displayMu.Lock()
	defer s.displayMu.Unlock()

	frags := make([]DisplayFragment, 0, s.displayFrames.Length())
	for !s.displayFrames.IsEmpty() {
		frag, ok := s.displayFrames.Dequeue().(DisplayFragment)
		if ok {
			frags = append(frags, frag)
		}
	}

	return frags
}

// setUnrecoverable records the sticky fault. Once set it is permanent for the
// process lifetime and short-circuits all future command execution.
func (s *Session) setUnrecoverable(msg string) {
	if s.unrecoverable.CompareAndSwap(nil, &msg) {
		s.logger.Error("session entered unrecoverable state", "error", msg)
	}
}

func (s *Session) menuLastUpdatedTime() time.Time {
	nanos := s.menuLastUpdated.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Log delivers a driver-internal log line.
func (s *Session) Log(message string) {
	s.logger.Debug("driver log", "message", message)
}

// Fail delivers a driver-internal failure description. It is recorded only;
// command failures surface through the command's own error paths.
func (s *Session) Fail(message string) {
	s.logger.Warn("driver failure", "message", message)
}

// BluetoothRequested signals that the driver requires the wireless stack.
func (s *Session) BluetoothRequested() {
	s.logger.Debug("driver requested bluetooth")
}

// ConnectionStarted marks the session connected.
func (s *Session) ConnectionStarted() {
	s.logger.Debug("connection started callback invoked")
	s.connected.Store(true)
}

// ConnectionStopped clears the current menu and marks the session disconnected.
func (s *Session) ConnectionStopped() {
	s.logger.Debug("connection stopped callback invoked")
	s.currentMenu.Store(nil)
	s.connected.Store(false)
}

// DisplayCleared signals that the pump cleared its display.
func (s *Session) DisplayCleared() {
	s.logger.Debug("display cleared callback invoked")
}

// DisplayUpdated retains the raw fragment in a bounded ring for diagnostics.
func (s *Session) DisplayUpdated(index int, fragment []byte) {
	s.displayMu.Lock()
	defer s.displayMu.Unlock()

	for s.displayFrames.Length() >= s.cfg.DisplayFragmentRingSize() {
		s.displayFrames.Dequeue()
	}
	s.displayFrames.Enqueue(DisplayFragment{
		Index:      index,
		Data:       util.CloneSlice(fragment, 0),
		ReceivedAt: time.Now(),
	})
}

// MenuUpdate replaces the current menu snapshot, advances the update timestamp
// and marks the session connected. Called by the driver roughly every 500ms.
func (s *Session) MenuUpdate(menu *rtmenu.Menu) {
	s.logger.Debug("menu update", "menu", menu.Type())

	s.currentMenu.Store(menu)
	s.menuLastUpdated.Store(time.Now().UnixNano())
	s.connected.Store(true)
	s.metrics.incMenuUpdateCount()

	// a warning/error menu can be a valid temporary state of a running command,
	// e.g. while cancelling a TBR
	if s.activeCmd.Load() == nil && menu.Type() == rtmenu.WarningOrErrorMenu {
		s.logger.Warn("warning/error menu encountered without a command running")
	}
}

// NoMenu signals that the current display could not be decoded into a menu.
func (s *Session) NoMenu() {
	s.logger.Debug("no menu callback invoked")
}
