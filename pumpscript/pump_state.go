package pumpscript

import (
	"fmt"
	"strings"

	"github.com/arloliu/go-pumpscript/rtmenu"
)

// ExtractPumpState derives a normalized pump state snapshot from a menu.
//
// It is a pure function of the snapshot: unhandled screens degrade into a
// diagnostic listing of the menu's attributes instead of failing.
func ExtractPumpState(menu *rtmenu.Menu) PumpState {
	var state PumpState

	if menu == nil {
		state.ErrorMsg = "Menu is not available"
		return state
	}

	switch menu.Type() {
	case rtmenu.MainMenu:
		extractMainMenuState(menu, &state)

	case rtmenu.WarningOrErrorMenu:
		msg, err := menu.Attribute(rtmenu.AttrMessage)
		if err != nil {
			state.ErrorMsg = fmt.Sprintf("Pump is in an error state, reading the message failed: %v", err)
			break
		}
		state.ErrorMsg = fmt.Sprintf("%v", msg)

	case rtmenu.StopMenu:
		state.Suspended = true

	default:
		var sb strings.Builder
		for _, attr := range menu.Attributes() {
			val, _ := menu.Attribute(attr)
			sb.WriteString(string(attr))
			sb.WriteString(": ")
			fmt.Fprintf(&sb, "%v", val)
			sb.WriteString("\n")
		}
		state.ErrorMsg = fmt.Sprintf("Pump is on menu %s, listing attributes: \n%s", menu.Type(), sb.String())
	}

	return state
}

// extractMainMenuState reads the TBR fields off the main screen. A TBR
// percentage of 100 means no TBR is running.
func extractMainMenuState(menu *rtmenu.Menu, state *PumpState) {
	tbrVal, err := menu.Attribute(rtmenu.AttrTBR)
	if err != nil {
		state.ErrorMsg = fmt.Sprintf("Reading TBR from main menu failed: %v", err)
		return
	}
	percentage, ok := tbrVal.(float64)
	if !ok {
		state.ErrorMsg = fmt.Sprintf("Unexpected TBR attribute type %T on main menu", tbrVal)
		return
	}

	if percentage == 100 {
		return
	}

	state.TBRActive = true
	state.TBRPercent = int(percentage)

	runtimeVal, err := menu.Attribute(rtmenu.AttrRuntime)
	if err != nil {
		state.ErrorMsg = fmt.Sprintf("Reading TBR runtime from main menu failed: %v", err)
		return
	}
	duration, ok := runtimeVal.(rtmenu.Time)
	if !ok {
		state.ErrorMsg = fmt.Sprintf("Unexpected TBR runtime attribute type %T on main menu", runtimeVal)
		return
	}
	state.TBRRemainingDuration = duration.Minutes()

	rateVal, err := menu.Attribute(rtmenu.AttrBasalRate)
	if err != nil {
		state.ErrorMsg = fmt.Sprintf("Reading basal rate from main menu failed: %v", err)
		return
	}
	rate, ok := rateVal.(float64)
	if !ok {
		state.ErrorMsg = fmt.Sprintf("Unexpected basal rate attribute type %T on main menu", rateVal)
		return
	}
	state.TBRRate = rate
}
