package rtmenu

// MenuType represents the kind of screen the pump currently displays.
type MenuType uint32

// Screen kinds reported by the pump driver.
const (
	// NoMenu indicates that the driver could not recognize the current screen.
	NoMenu MenuType = iota
	// MainMenu is the idle screen showing the running basal rate and, if active, the TBR.
	MainMenu
	// StopMenu is displayed while the pump is suspended (delivery stopped).
	StopMenu
	// WarningOrErrorMenu is displayed when the pump raises a warning or an error.
	WarningOrErrorMenu
	// BolusMenu is the standard bolus programming screen.
	BolusMenu
	// ExtendedBolusMenu is the extended bolus programming screen.
	ExtendedBolusMenu
	// MultiwaveBolusMenu is the multiwave bolus programming screen.
	MultiwaveBolusMenu
	// TBRMenu is the temporary basal rate programming screen.
	TBRMenu
	// MyDataMenu is the history screen listing boluses, alarms and TBRs.
	MyDataMenu
	// BasalRateMenu is the basal rate profile screen.
	BasalRateMenu
	// TimeDateMenu is the time and date settings screen.
	TimeDateMenu
	// AlarmMenu is the alarm settings screen.
	AlarmMenu
)

// String returns the string representation of the menu type.
func (t MenuType) String() string {
	switch t {
	case NoMenu:
		return "NO_MENU"
	case MainMenu:
		return "MAIN_MENU"
	case StopMenu:
		return "STOP"
	case WarningOrErrorMenu:
		return "WARNING_OR_ERROR"
	case BolusMenu:
		return "BOLUS_MENU"
	case ExtendedBolusMenu:
		return "EXTENDED_BOLUS_MENU"
	case MultiwaveBolusMenu:
		return "MULTIWAVE_BOLUS_MENU"
	case TBRMenu:
		return "TBR_MENU"
	case MyDataMenu:
		return "MY_DATA_MENU"
	case BasalRateMenu:
		return "BASAL_RATE_MENU"
	case TimeDateMenu:
		return "TIME_DATE_MENU"
	case AlarmMenu:
		return "ALARM_MENU"
	default:
		return "UNKNOWN"
	}
}
