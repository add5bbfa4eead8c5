package pumpscript

import (
	"errors"
	"time"

	"github.com/arloliu/go-pumpscript/driver"
)

// idleDisconnectCheck runs once per monitor interval. It disconnects the pump
// after a bounded inactivity window while no command is active, keeping a
// minimum spacing between disconnects to avoid destabilizing the driver.
//
// Returning false terminates the interval task; that only happens when the
// session entered an unrecoverable state.
func (s *Session) idleDisconnectCheck() bool {
	if s.unrecoverable.Load() != nil {
		return false
	}

	now := time.Now()
	idleFor := now.Sub(time.Unix(0, s.lastCmdExecTime.Load()))
	sinceDisconnect := now.Sub(time.Unix(0, s.lastDisconnect.Load()))

	if !s.connected.Load() || s.activeCmd.Load() != nil {
		return true
	}
	if idleFor <= s.cfg.InactivityTimeout() || sinceDisconnect <= s.cfg.DisconnectSpacing() {
		return true
	}

	s.logger.Debug("disconnecting after inactivity timeout",
		"idle_for", idleFor, "inactivity_timeout", s.cfg.InactivityTimeout(),
	)
	s.lastDisconnect.Store(now.UnixNano())

	if err := s.drv.Disconnect(); err != nil {
		if errors.Is(err, driver.ErrServiceGone) {
			s.setUnrecoverable(err.Error())
			return false
		}
		s.logger.Debug("disconnect failed in idle monitor, carrying on", "error", err)

		return true
	}

	s.metrics.incDisconnectCount()
	s.connected.Store(false)

	return true
}
