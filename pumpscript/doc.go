// Package pumpscript provides a scripting runtime for operating an infusion
// pump through its menu-driven remote-terminal mode.
//
// The pump driver (see the driver package) pushes display snapshots
// asynchronously, roughly every 500ms while a connection is live. This package
// reconciles that stream with a synchronous command API: Session.RunCommand
// executes exactly one command at a time against the device, establishes the
// connection on demand, supervises the command with a sliding activity timeout
// plus an overall ceiling, and always returns a CommandResult instead of
// failing with an error.
//
// A Session is created once per physical pump and lives for the process
// lifetime. Start spawns the idle-disconnect monitor which drops the
// connection after a bounded inactivity window; Shutdown stops all background
// tasks.
//
// Command implementations receive a Navigator with the primitives needed to
// drive the pump UI: key presses, waiting for display updates, navigating
// between menus and verifying the displayed screen.
//
// Timeout and stall results are advisory: a cancelled command may still be in
// flight on the physical device, so callers must re-query pump state instead
// of assuming rollback.
package pumpscript
