package types

// VehicleState is the armed flag and flight mode reported by the flight controller.
type VehicleState struct {
	Armed bool       `json:"armed"`
	Mode  FlightMode `json:"mode"`
}

// FixStatus follows the NavSatStatus convention: negative means no fix.
type FixStatus int8

const (
	FixStatusNoFix FixStatus = -1
	FixStatusFix   FixStatus = 0
	FixStatusSBAS  FixStatus = 1
	FixStatusGBAS  FixStatus = 2
)

func (f FixStatus) Valid() bool {
	return f >= 0
}

type GlobalPosition struct {
	Fix FixStatus `json:"fix"`
	Lat float64   `json:"lat"`
	Lon float64   `json:"lon"`
}

// Altitude above mean sea level, metres.
type Altitude struct {
	AMSL float64 `json:"amsl"`
}

type LocalPose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

// Land asks the supervisor to end the flight.
type Land struct{}

// Disarm is forwarded straight to the flight controller.
type Disarm struct{}

// ReturnToLaunch is forwarded straight to the flight controller.
type ReturnToLaunch struct{}
