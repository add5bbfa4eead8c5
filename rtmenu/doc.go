// Package rtmenu provides the data model for screens reported by the pump's
// remote-terminal mode.
//
// The pump driver decodes the device display into Menu snapshots and delivers
// them roughly every 500ms. A Menu carries the screen kind (MenuType) and a set
// of typed attributes extracted from the display (Attribute). Snapshots are
// treated as immutable once delivered; a new snapshot wholly replaces the
// previous one.
package rtmenu
