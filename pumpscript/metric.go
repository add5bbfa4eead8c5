package pumpscript

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a pump scripting session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// MenuUpdateCount indicates the number of menu updates received from the driver.
	MenuUpdateCount atomic.Uint64
	// CommandRunCount indicates the number of commands executed.
	CommandRunCount atomic.Uint64
	// CommandErrCount indicates the number of command failures.
	CommandErrCount atomic.Uint64
	// StallCount indicates the number of commands that stalled.
	StallCount atomic.Uint64
	// TimeoutCount indicates the number of commands that hit the overall timeout.
	TimeoutCount atomic.Uint64
	// DisconnectCount indicates the number of idle disconnects issued.
	DisconnectCount atomic.Uint64
	// KeyPressCount indicates the number of key presses sent to the pump.
	KeyPressCount atomic.Uint64
}

func (m *SessionMetrics) incMenuUpdateCount() {
	m.MenuUpdateCount.Add(1)
}

func (m *SessionMetrics) incCommandRunCount() {
	m.CommandRunCount.Add(1)
}

func (m *SessionMetrics) incCommandErrCount() {
	m.CommandErrCount.Add(1)
}

func (m *SessionMetrics) incStallCount() {
	m.StallCount.Add(1)
}

func (m *SessionMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *SessionMetrics) incDisconnectCount() {
	m.DisconnectCount.Add(1)
}

func (m *SessionMetrics) incKeyPressCount() {
	m.KeyPressCount.Add(1)
}
