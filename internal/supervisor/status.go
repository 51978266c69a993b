package supervisor

import (
	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
)

// Status is a snapshot of the supervisor for reporting.
type Status struct {
	State    State `json:"state"`
	Previous State `json:"previous_state"`
	Ticks    int   `json:"ticks_in_state"`

	Telemetry Telemetry     `json:"telemetry"`
	Hold      geodesy.Point `json:"hold"`

	ActiveSources []setpoint.Kind `json:"active_sources"`
	StaleSources  []setpoint.Kind `json:"stale_sources"`

	ParamsPulled       bool `json:"params_pulled"`
	ParamsRequested    int  `json:"params_requested"`
	ParamsAcknowledged int  `json:"params_acknowledged"`
	ParamsFailed       int  `json:"params_failed"`
	PreflightReady     bool `json:"preflight_ready"`

	// Reached is true when the vehicle is within the reached distance of the
	// last published geodetic setpoint.
	Reached   bool   `json:"reached"`
	LastError string `json:"last_error,omitempty"`
}

func (s *Supervisor) Status() Status {
	status := Status{
		State:              s.state,
		Previous:           s.previous,
		Ticks:              s.ticks,
		Telemetry:          s.telemetry,
		Hold:               s.hold,
		ActiveSources:      s.arbiter.Active(),
		StaleSources:       s.arbiter.Stale(),
		ParamsPulled:       s.paramsPulled,
		ParamsRequested:    s.preflight.Requested(),
		ParamsAcknowledged: s.preflight.Acknowledged(),
		ParamsFailed:       s.preflight.Failed(),
		PreflightReady:     s.preflight.Ready(),
		LastError:          s.lastError,
	}
	if s.hasLastGeo {
		status.Reached = geodesy.Reached(s.telemetry.Position, s.lastGeo, s.params.ReachedDistance)
	}
	return status
}
