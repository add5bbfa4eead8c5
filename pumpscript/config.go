package pumpscript

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/go-pumpscript/logger"
)

// SessionConfig represents the configuration parameters for a pump scripting session.
//
// The defaults reproduce the timing budgets the pump's remote-terminal mode was
// calibrated against; shrink them only in tests.
type SessionConfig struct {
	mu sync.RWMutex

	// supervisionInterval defines how often RunCommand polls a running command
	// worker while tracking its deadlines.
	// Defaults to 500 milliseconds.
	supervisionInterval time.Duration

	// dynamicTimeout defines the sliding deadline extended while the command
	// shows evidence of activity.
	// Defaults to 30 seconds.
	dynamicTimeout time.Duration

	// overallTimeout defines the fixed wall-clock ceiling for a single command,
	// regardless of activity evidence.
	// Defaults to 4 minutes.
	overallTimeout time.Duration

	// activityWindow defines how recent a menu update must be to count as
	// activity evidence when the dynamic deadline expires.
	// Defaults to 5 seconds.
	activityWindow time.Duration

	// stallGracePeriod defines how long to wait for a cancelled worker to
	// terminate before returning a stall result. Termination is not guaranteed.
	// Defaults to 5 seconds.
	stallGracePeriod time.Duration

	// inactivityTimeout defines how long the session may stay connected with no
	// command running before the idle monitor disconnects.
	// Defaults to 5 seconds.
	inactivityTimeout time.Duration

	// disconnectSpacing defines the minimum time between two idle disconnects,
	// to avoid destabilizing the driver with rapid reconnect cycles.
	// Defaults to 15 seconds.
	disconnectSpacing time.Duration

	// monitorInterval defines how often the idle disconnect monitor checks the session.
	// Defaults to 1 second.
	monitorInterval time.Duration

	// menuUpdateTimeout defines how long to wait for a menu update before the
	// wait primitive fails.
	// Defaults to 60 seconds.
	menuUpdateTimeout time.Duration

	// recentUpdateWindow defines how recent a menu update must be for the
	// session to be considered live without issuing a new connect request.
	// Defaults to 1 second.
	recentUpdateWindow time.Duration

	// keyDelay defines how long a key stays pressed before it is released.
	// Defaults to 100 milliseconds.
	keyDelay time.Duration

	// menuPollInterval defines the poll interval while waiting for a menu update.
	// Defaults to 50 milliseconds.
	menuPollInterval time.Duration

	// leaveMenuTimeout defines how long to wait for the display to move away
	// from a menu after a key press.
	// Defaults to 30 seconds.
	leaveMenuTimeout time.Duration

	// leaveMenuPollInterval defines the poll interval while waiting for the
	// display to move away from a menu.
	// Defaults to 10 milliseconds.
	leaveMenuPollInterval time.Duration

	// verifyRetries defines how many times verifyMenuIsDisplayed re-checks the
	// display before failing.
	// Defaults to 5.
	verifyRetries int

	// verifyInterval defines the delay between verifyMenuIsDisplayed re-checks.
	// Defaults to 200 milliseconds.
	verifyInterval time.Duration

	// displayFragmentRingSize defines how many raw display fragments are
	// retained for diagnostics.
	// Defaults to 16.
	displayFragmentRingSize int

	// logger provides a logger instance for session events and errors.
	logger logger.Logger
}

// NewSessionConfig creates a session configuration with default values and
// applies the provided options.
//
// Returns a pointer to the initialized SessionConfig and an error if any option
// fails validation.
func NewSessionConfig(opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		supervisionInterval:     500 * time.Millisecond,
		dynamicTimeout:          30 * time.Second,
		overallTimeout:          4 * time.Minute,
		activityWindow:          5 * time.Second,
		stallGracePeriod:        5 * time.Second,
		inactivityTimeout:       5 * time.Second,
		disconnectSpacing:       15 * time.Second,
		monitorInterval:         1 * time.Second,
		menuUpdateTimeout:       60 * time.Second,
		recentUpdateWindow:      1 * time.Second,
		keyDelay:                100 * time.Millisecond,
		menuPollInterval:        50 * time.Millisecond,
		leaveMenuTimeout:        30 * time.Second,
		leaveMenuPollInterval:   10 * time.Millisecond,
		verifyRetries:           5,
		verifyInterval:          200 * time.Millisecond,
		displayFragmentRingSize: 16,
		logger:                  logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *SessionConfig) SupervisionInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.supervisionInterval
}

func (cfg *SessionConfig) DynamicTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.dynamicTimeout
}

func (cfg *SessionConfig) OverallTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.overallTimeout
}

func (cfg *SessionConfig) ActivityWindow() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.activityWindow
}

func (cfg *SessionConfig) StallGracePeriod() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.stallGracePeriod
}

func (cfg *SessionConfig) InactivityTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.inactivityTimeout
}

func (cfg *SessionConfig) DisconnectSpacing() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.disconnectSpacing
}

func (cfg *SessionConfig) MonitorInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.monitorInterval
}

func (cfg *SessionConfig) MenuUpdateTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.menuUpdateTimeout
}

func (cfg *SessionConfig) RecentUpdateWindow() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.recentUpdateWindow
}

func (cfg *SessionConfig) KeyDelay() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.keyDelay
}

func (cfg *SessionConfig) MenuPollInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.menuPollInterval
}

func (cfg *SessionConfig) LeaveMenuTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.leaveMenuTimeout
}

func (cfg *SessionConfig) LeaveMenuPollInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.leaveMenuPollInterval
}

func (cfg *SessionConfig) VerifyRetries() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.verifyRetries
}

func (cfg *SessionConfig) VerifyInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.verifyInterval
}

func (cfg *SessionConfig) DisplayFragmentRingSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.displayFragmentRingSize
}

func (cfg *SessionConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(cfg *SessionConfig) error
}

type sessionOptFunc struct {
	name string
	fn   func(cfg *SessionConfig) error
}

func (f *sessionOptFunc) apply(cfg *SessionConfig) error {
	if cfg == nil {
		return ErrConfigNil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	return f.fn(cfg)
}

func newSessionOptFunc(name string, fn func(cfg *SessionConfig) error) SessionOption {
	return &sessionOptFunc{name: name, fn: fn}
}

func durationOption(name string, min time.Duration, max time.Duration, assign func(cfg *SessionConfig, val time.Duration)) func(val time.Duration) SessionOption {
	return func(val time.Duration) SessionOption {
		return newSessionOptFunc(name, func(cfg *SessionConfig) error {
			if val < min || val > max {
				return fmt.Errorf("%s out of range [%s, %s]", name, min, max)
			}
			assign(cfg, val)

			return nil
		})
	}
}

// WithSupervisionInterval sets how often RunCommand polls a running command worker.
//
// The default value is 500 milliseconds.
var WithSupervisionInterval = durationOption("supervision interval", time.Millisecond, 10*time.Second,
	func(cfg *SessionConfig, val time.Duration) { cfg.supervisionInterval = val })

// WithDynamicTimeout sets the sliding deadline extended while the command shows
// evidence of activity.
//
// The default value is 30 seconds.
var WithDynamicTimeout = durationOption("dynamic timeout", time.Millisecond, time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.dynamicTimeout = val })

// WithOverallTimeout sets the fixed wall-clock ceiling for a single command.
//
// The default value is 4 minutes.
var WithOverallTimeout = durationOption("overall timeout", time.Millisecond, 24*time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.overallTimeout = val })

// WithActivityWindow sets how recent a menu update must be to count as activity
// evidence.
//
// The default value is 5 seconds.
var WithActivityWindow = durationOption("activity window", time.Millisecond, time.Minute,
	func(cfg *SessionConfig, val time.Duration) { cfg.activityWindow = val })

// WithStallGracePeriod sets how long to wait for a cancelled worker before
// returning a stall result.
//
// The default value is 5 seconds.
var WithStallGracePeriod = durationOption("stall grace period", time.Millisecond, time.Minute,
	func(cfg *SessionConfig, val time.Duration) { cfg.stallGracePeriod = val })

// WithInactivityTimeout sets how long the session may stay connected with no
// command running before the idle monitor disconnects.
//
// The default value is 5 seconds.
var WithInactivityTimeout = durationOption("inactivity timeout", time.Millisecond, time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.inactivityTimeout = val })

// WithDisconnectSpacing sets the minimum time between two idle disconnects.
//
// The default value is 15 seconds.
var WithDisconnectSpacing = durationOption("disconnect spacing", time.Millisecond, time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.disconnectSpacing = val })

// WithMonitorInterval sets how often the idle disconnect monitor runs.
//
// The default value is 1 second.
var WithMonitorInterval = durationOption("monitor interval", time.Millisecond, time.Minute,
	func(cfg *SessionConfig, val time.Duration) { cfg.monitorInterval = val })

// WithMenuUpdateTimeout sets how long to wait for a menu update before the wait
// primitive fails.
//
// The default value is 60 seconds.
var WithMenuUpdateTimeout = durationOption("menu update timeout", time.Millisecond, time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.menuUpdateTimeout = val })

// WithRecentUpdateWindow sets how recent a menu update must be for the session
// to be considered live without reconnecting.
//
// The default value is 1 second.
var WithRecentUpdateWindow = durationOption("recent update window", time.Millisecond, time.Minute,
	func(cfg *SessionConfig, val time.Duration) { cfg.recentUpdateWindow = val })

// WithKeyDelay sets how long a key stays pressed before it is released.
//
// The default value is 100 milliseconds.
var WithKeyDelay = durationOption("key delay", time.Millisecond, time.Second,
	func(cfg *SessionConfig, val time.Duration) { cfg.keyDelay = val })

// WithMenuPollInterval sets the poll interval while waiting for a menu update.
//
// The default value is 50 milliseconds.
var WithMenuPollInterval = durationOption("menu poll interval", time.Millisecond, time.Second,
	func(cfg *SessionConfig, val time.Duration) { cfg.menuPollInterval = val })

// WithLeaveMenuTimeout sets how long to wait for the display to move away from
// a menu after a key press.
//
// The default value is 30 seconds.
var WithLeaveMenuTimeout = durationOption("leave menu timeout", time.Millisecond, time.Hour,
	func(cfg *SessionConfig, val time.Duration) { cfg.leaveMenuTimeout = val })

// WithLeaveMenuPollInterval sets the poll interval while waiting for the
// display to move away from a menu.
//
// The default value is 10 milliseconds.
var WithLeaveMenuPollInterval = durationOption("leave menu poll interval", time.Millisecond, time.Second,
	func(cfg *SessionConfig, val time.Duration) { cfg.leaveMenuPollInterval = val })

// WithVerifyInterval sets the delay between verifyMenuIsDisplayed re-checks.
//
// The default value is 200 milliseconds.
var WithVerifyInterval = durationOption("verify interval", time.Millisecond, time.Minute,
	func(cfg *SessionConfig, val time.Duration) { cfg.verifyInterval = val })

// WithVerifyRetries sets how many times verifyMenuIsDisplayed re-checks the
// display before failing. The value must be within the range of 0 to 100.
//
// The default value is 5.
func WithVerifyRetries(retries int) SessionOption {
	return newSessionOptFunc("verify retries", func(cfg *SessionConfig) error {
		if retries < 0 || retries > 100 {
			return errors.New("verify retries out of range [0, 100]")
		}
		cfg.verifyRetries = retries

		return nil
	})
}

// WithDisplayFragmentRingSize sets how many raw display fragments are retained
// for diagnostics. The value must be within the range of 1 to 1024.
//
// The default value is 16.
func WithDisplayFragmentRingSize(size int) SessionOption {
	return newSessionOptFunc("display fragment ring size", func(cfg *SessionConfig) error {
		if size < 1 || size > 1024 {
			return errors.New("display fragment ring size out of range [1, 1024]")
		}
		cfg.displayFragmentRingSize = size

		return nil
	})
}

// WithLogger sets the logger for the session.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) SessionOption {
	return newSessionOptFunc("logger", func(cfg *SessionConfig) error {
		cfg.logger = l

		return nil
	})
}

// configFile is the YAML shape accepted by LoadConfigFile. All fields are
// optional; durations use Go duration syntax, e.g. "500ms" or "4m".
type configFile struct {
	SupervisionInterval   string `yaml:"supervision_interval"`
	DynamicTimeout        string `yaml:"dynamic_timeout"`
	OverallTimeout        string `yaml:"overall_timeout"`
	ActivityWindow        string `yaml:"activity_window"`
	StallGracePeriod      string `yaml:"stall_grace_period"`
	InactivityTimeout     string `yaml:"inactivity_timeout"`
	DisconnectSpacing     string `yaml:"disconnect_spacing"`
	MonitorInterval       string `yaml:"monitor_interval"`
	MenuUpdateTimeout     string `yaml:"menu_update_timeout"`
	RecentUpdateWindow    string `yaml:"recent_update_window"`
	KeyDelay              string `yaml:"key_delay"`
	MenuPollInterval      string `yaml:"menu_poll_interval"`
	LeaveMenuTimeout      string `yaml:"leave_menu_timeout"`
	LeaveMenuPollInterval string `yaml:"leave_menu_poll_interval"`
	VerifyInterval        string `yaml:"verify_interval"`
	VerifyRetries         *int   `yaml:"verify_retries"`
	DisplayFragmentRing   *int   `yaml:"display_fragment_ring_size"`
}

// LoadConfigFile reads a YAML file and converts it into session options.
// Fields absent from the file keep their defaults.
func LoadConfigFile(path string) ([]SessionOption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var opts []SessionOption

	durations := []struct {
		raw string
		opt func(time.Duration) SessionOption
	}{
		{file.SupervisionInterval, WithSupervisionInterval},
		{file.DynamicTimeout, WithDynamicTimeout},
		{file.OverallTimeout, WithOverallTimeout},
		{file.ActivityWindow, WithActivityWindow},
		{file.StallGracePeriod, WithStallGracePeriod},
		{file.InactivityTimeout, WithInactivityTimeout},
		{file.DisconnectSpacing, WithDisconnectSpacing},
		{file.MonitorInterval, WithMonitorInterval},
		{file.MenuUpdateTimeout, WithMenuUpdateTimeout},
		{file.RecentUpdateWindow, WithRecentUpdateWindow},
		{file.KeyDelay, WithKeyDelay},
		{file.MenuPollInterval, WithMenuPollInterval},
		{file.LeaveMenuTimeout, WithLeaveMenuTimeout},
		{file.LeaveMenuPollInterval, WithLeaveMenuPollInterval},
		{file.VerifyInterval, WithVerifyInterval},
	}

	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		val, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse config file duration %q: %w", d.raw, err)
		}
		opts = append(opts, d.opt(val))
	}

	if file.VerifyRetries != nil {
		opts = append(opts, WithVerifyRetries(*file.VerifyRetries))
	}
	if file.DisplayFragmentRing != nil {
		opts = append(opts, WithDisplayFragmentRingSize(*file.DisplayFragmentRing))
	}

	return opts, nil
}
