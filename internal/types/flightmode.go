package types

// FlightMode is the closed set of flight controller modes the supervisor
// commands or recognises. The PX4 custom-mode strings only appear here.
type FlightMode int

const (
	FlightModeUnknown FlightMode = iota
	FlightModeOffboard
	FlightModeTakeoff
	FlightModeLand
	FlightModeReturnToLaunch
	FlightModeHold
	FlightModeMission
)

var customModes = map[FlightMode]string{
	FlightModeOffboard:       "OFFBOARD",
	FlightModeTakeoff:        "AUTO.TAKEOFF",
	FlightModeLand:           "AUTO.LAND",
	FlightModeReturnToLaunch: "AUTO.RTL",
	FlightModeHold:           "AUTO.LOITER",
	FlightModeMission:        "AUTO.MISSION",
}

// CustomMode returns the string the flight controller uses for the mode, or
// an empty string for FlightModeUnknown.
func (m FlightMode) CustomMode() string {
	return customModes[m]
}

// ParseCustomMode maps a reported mode string. Unrecognised values map to
// FlightModeUnknown.
func ParseCustomMode(s string) FlightMode {
	for mode, custom := range customModes {
		if custom == s {
			return mode
		}
	}
	return FlightModeUnknown
}

func (m FlightMode) String() string {
	switch m {
	case FlightModeOffboard:
		return "offboard"
	case FlightModeTakeoff:
		return "takeoff"
	case FlightModeLand:
		return "land"
	case FlightModeReturnToLaunch:
		return "rtl"
	case FlightModeHold:
		return "hold"
	case FlightModeMission:
		return "mission"
	}
	return "unknown"
}

func (m FlightMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
