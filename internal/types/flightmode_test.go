package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomModeMapping(t *testing.T) {
	testCases := []struct {
		mode   FlightMode
		custom string
	}{
		{FlightModeOffboard, "OFFBOARD"},
		{FlightModeTakeoff, "AUTO.TAKEOFF"},
		{FlightModeLand, "AUTO.LAND"},
		{FlightModeReturnToLaunch, "AUTO.RTL"},
		{FlightModeHold, "AUTO.LOITER"},
		{FlightModeMission, "AUTO.MISSION"},
	}

	for _, tc := range testCases {
		t.Run(tc.custom, func(t *testing.T) {
			assert.Equal(t, tc.custom, tc.mode.CustomMode())
			assert.Equal(t, tc.mode, ParseCustomMode(tc.custom))
		})
	}
}

func TestUnknownCustomMode(t *testing.T) {
	assert.Equal(t, FlightModeUnknown, ParseCustomMode("POSCTL"))
	assert.Equal(t, FlightModeUnknown, ParseCustomMode(""))
	assert.Equal(t, "", FlightModeUnknown.CustomMode())
}

func TestFlightModeJSON(t *testing.T) {
	b, err := json.Marshal(VehicleState{Armed: true, Mode: FlightModeHold})

	assert.NoError(t, err)
	assert.JSONEq(t, `{"armed":true,"mode":"hold"}`, string(b))
}
