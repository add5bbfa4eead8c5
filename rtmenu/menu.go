package rtmenu

import (
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attribute identifies a value extracted from the pump display.
type Attribute string

// Attributes extracted by the pump driver from the various screens.
const (
	// AttrMessage is the warning/error text on a WarningOrErrorMenu.
	AttrMessage Attribute = "MESSAGE"
	// AttrTBR is the temporary basal rate percentage on the MainMenu, 100 when no TBR runs.
	AttrTBR Attribute = "TBR"
	// AttrRuntime is the remaining TBR duration on the MainMenu.
	AttrRuntime Attribute = "RUNTIME"
	// AttrBasalRate is the currently delivered basal rate on the MainMenu.
	AttrBasalRate Attribute = "BASAL_RATE"
	// AttrBolus is the bolus amount on the bolus programming screens.
	AttrBolus Attribute = "BOLUS"
	// AttrBatteryState is the battery level indicator.
	AttrBatteryState Attribute = "BATTERY_STATE"
	// AttrInsulinState is the cartridge level indicator.
	AttrInsulinState Attribute = "INSULIN_STATE"
	// AttrTime is the time displayed on the TimeDateMenu.
	AttrTime Attribute = "TIME"
)

// ErrAttributeNotFound indicates that the requested attribute is not present on the menu.
var ErrAttributeNotFound = errors.New("menu attribute not found")

// Time is a duration value displayed on the pump, e.g. the remaining TBR runtime.
type Time struct {
	Hour   int
	Minute int
}

// Minutes returns the duration in minutes.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

// String returns the value formatted the way the pump displays it.
func (t Time) String() string {
	return fmt.Sprintf("%d:%02d", t.Hour, t.Minute)
}

// Menu is a snapshot of the screen the pump currently displays, together with
// the attributes the driver extracted from it.
//
// A Menu must not be mutated after it has been delivered to a handler; the
// driver replaces the whole snapshot on every display update.
type Menu struct {
	typ   MenuType
	attrs *orderedmap.OrderedMap[Attribute, any]
}

// NewMenu creates a menu snapshot of the given type.
func NewMenu(typ MenuType) *Menu {
	return &Menu{
		typ:   typ,
		attrs: orderedmap.New[Attribute, any](),
	}
}

// Type returns the screen kind of this snapshot.
func (m *Menu) Type() MenuType {
	return m.typ
}

// SetAttribute sets an attribute value on the snapshot and returns the menu to
// allow chained construction. It is intended for the driver (and tests) while
// building a snapshot, before the menu is delivered.
func (m *Menu) SetAttribute(attr Attribute, value any) *Menu {
	m.attrs.Set(attr, value)
	return m
}

// Attribute returns the value of the given attribute.
// It returns ErrAttributeNotFound if the attribute is not present on this screen.
func (m *Menu) Attribute(attr Attribute) (any, error) {
	val, ok := m.attrs.Get(attr)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrAttributeNotFound, attr, m.typ)
	}
	return val, nil
}

// Attributes returns all attributes present on this screen, in the order the
// driver extracted them. The stable order keeps diagnostics reproducible.
func (m *Menu) Attributes() []Attribute {
	attrs := make([]Attribute, 0, m.attrs.Len())
	for pair := m.attrs.Oldest(); pair != nil; pair = pair.Next() {
		attrs = append(attrs, pair.Key)
	}
	return attrs
}

// String returns a short representation for logging.
func (m *Menu) String() string {
	return fmt.Sprintf("Menu(%s, %d attrs)", m.typ, m.attrs.Len())
}
