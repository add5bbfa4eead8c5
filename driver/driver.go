// Package driver defines the interface to the pump driver process, which owns
// the wireless transport and exposes the pump's remote-terminal mode.
//
// The driver delivers display state asynchronously through a single Handler
// registered with SetHandler; menu snapshots arrive roughly every 500ms while
// a connection is live.
package driver

import (
	"errors"

	"github.com/arloliu/go-pumpscript/rtmenu"
)

// Key is a remote-terminal key code understood by the pump.
type Key byte

// Remote-terminal key codes.
const (
	KeyNone  Key = 0x00
	KeyMenu  Key = 0x03
	KeyCheck Key = 0x0C
	KeyUp    Key = 0x30
	KeyDown  Key = 0xC0
)

// String returns the key name for logging.
func (k Key) String() string {
	switch k {
	case KeyNone:
		return "none"
	case KeyMenu:
		return "menu"
	case KeyCheck:
		return "check"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	default:
		return "unknown"
	}
}

// ErrServiceGone indicates that the driver process or its channel is
// permanently lost. Callers must treat this fault as unrecoverable for the
// process lifetime.
var ErrServiceGone = errors.New("pump driver service went away")

// Driver is the interface to the pump driver process.
//
// All methods may be called from multiple goroutines; implementations own the
// underlying transport and its serialization.
type Driver interface {
	// Connect requests the driver to establish a remote-terminal connection to
	// the pump. A nil return only confirms that the request was accepted; the
	// connection is live once menu updates arrive at the Handler.
	Connect() error

	// Disconnect requests the driver to drop the remote-terminal connection.
	Disconnect() error

	// SendKey transmits a key event. pressed is true for key-down; a held key
	// is released by sending KeyNone pressed, not by a key-up event.
	SendKey(key Key, pressed bool) error

	// SetHandler registers the single callback sink receiving driver notifications.
	SetHandler(handler Handler) error
}

// Handler receives asynchronous notifications from the pump driver.
//
// Callbacks are invoked from the driver's own delivery goroutine, concurrently
// with any command execution; implementations must be safe for that.
type Handler interface {
	// Log delivers a driver-internal log line.
	Log(message string)

	// Fail delivers a driver-internal failure description.
	Fail(message string)

	// BluetoothRequested signals that the driver requires the wireless stack.
	BluetoothRequested()

	// ConnectionStarted signals that the remote-terminal connection is established.
	ConnectionStarted()

	// ConnectionStopped signals that the remote-terminal connection ended.
	ConnectionStopped()

	// DisplayCleared signals that the pump cleared its display.
	DisplayCleared()

	// DisplayUpdated delivers an encoded fragment of the raw display bitmap.
	// index identifies which quarter of the display the fragment covers.
	DisplayUpdated(index int, fragment []byte)

	// MenuUpdate delivers a decoded snapshot of the currently displayed screen.
	MenuUpdate(menu *rtmenu.Menu)

	// NoMenu signals that the current display could not be decoded into a menu.
	NoMenu()
}
