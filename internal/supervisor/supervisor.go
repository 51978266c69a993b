// Package supervisor sequences a single vehicle from the ground to offboard
// navigation and back down. Everything in here runs on one goroutine: the
// handler's message loop calls Tick and the Handle* methods in turn, so the
// Supervisor needs no locking.
package supervisor

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/preflight"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
	"github.com/tiiuae/communication_link/supervisor/internal/watchdog"
)

type Params struct {
	TakeoffHeight           float64
	XYMaxVelocity           float64
	ReachedDistance         float64
	DisableRotationDistance float64
	WatchdogTimeout         time.Duration
}

func DefaultParams() Params {
	return Params{
		TakeoffHeight:           10,
		XYMaxVelocity:           10,
		ReachedDistance:         1,
		DisableRotationDistance: 2,
		WatchdogTimeout:         watchdog.DefaultTimeout,
	}
}

// Telemetry is the latest snapshot reported by the flight controller.
type Telemetry struct {
	Armed     bool             `json:"armed"`
	Mode      types.FlightMode `json:"mode"`
	Fix       types.FixStatus  `json:"fix"`
	Position  geodesy.Point    `json:"position"`
	LocalPose types.LocalPose  `json:"local_pose"`
}

type Supervisor struct {
	gw     gateway.Gateway
	params Params

	state    State
	previous State
	ticks    int

	telemetry Telemetry
	hold      geodesy.Point

	arbiter   *setpoint.Arbiter
	heading   *geodesy.HeadingTracker
	preflight *preflight.Tracker

	pullID       string
	paramsPulled bool

	landRequested bool

	lastGeo    geodesy.Point
	hasLastGeo bool
	lastError  string
}

// New returns a supervisor in Idle. now may be nil to use the wall clock.
func New(gw gateway.Gateway, params Params, now watchdog.Clock) *Supervisor {
	return &Supervisor{
		gw:        gw,
		params:    params,
		state:     StateIdle,
		previous:  StateIdle,
		telemetry: Telemetry{Fix: types.FixStatusNoFix},
		arbiter:   setpoint.NewArbiter(params.WatchdogTimeout, now),
		heading:   geodesy.NewHeadingTracker(params.DisableRotationDistance),
		preflight: preflight.NewTracker(params.TakeoffHeight, params.XYMaxVelocity),
	}
}

// Tick advances the supervisor by one period: transition guard, entry action
// of a newly entered state, hold position update, setpoint publication.
func (s *Supervisor) Tick() {
	if next, ok := s.guard(); ok {
		s.transition(next)
	}

	s.updateHold()
	s.publish()

	s.ticks++
}

func (s *Supervisor) guard() (State, bool) {
	if s.landRequested {
		s.landRequested = false
		if s.state != StateLanding {
			return StateLanding, true
		}
	}

	p := phases[s.state]
	if p.tick == nil {
		return s.state, false
	}
	return p.tick(s)
}

func (s *Supervisor) transition(next State) {
	log.Info().Msgf("Supervisor: %s -> %s", s.state, next)

	if exit := phases[s.state].exit; exit != nil {
		exit(s)
	}

	s.previous = s.state
	s.state = next
	s.ticks = 0

	if enter := phases[next].enter; enter != nil {
		enter(s)
	}
}

// updateHold refreshes the hold position while climbing and switching to
// offboard. While navigating only latitude and longitude follow the vehicle:
// the altitude captured before the setpoint stream started is kept.
func (s *Supervisor) updateHold() {
	switch s.state {
	case StateClimbWait, StateOffboardCommanded:
		s.hold = s.telemetry.Position
	case StateNavigating:
		s.hold.Lat = s.telemetry.Position.Lat
		s.hold.Lon = s.telemetry.Position.Lon
	}
}

func (s *Supervisor) publish() {
	switch {
	case s.state <= StateAwaitSetpointStream:
		s.publishGeo(s.hold, false)
	case s.state == StateNavigating:
		if src := s.arbiter.Position(); src.Active() {
			s.gw.PublishPosition(src.Value())
		}
		if src := s.arbiter.Velocity(); src.Active() {
			s.gw.PublishVelocity(src.Value())
		}
		if src := s.arbiter.Geo(); src.Active() {
			s.publishGeo(src.Value(), true)
		}
	default:
		s.publishGeo(s.hold, false)
	}
}

func (s *Supervisor) publishGeo(target geodesy.Point, headingEnabled bool) {
	cmd := gateway.GeoCommand{Target: target, HeadingEnabled: headingEnabled}
	if headingEnabled {
		cmd.Yaw = s.heading.Heading(s.telemetry.Position, target)
	}
	s.gw.PublishGeo(cmd)

	s.lastGeo = target
	s.hasLastGeo = true
}

// HandleTelemetry stores a telemetry update. Unknown values are ignored.
func (s *Supervisor) HandleTelemetry(msg interface{}) {
	switch m := msg.(type) {
	case types.VehicleState:
		s.telemetry.Armed = m.Armed
		s.telemetry.Mode = m.Mode
	case types.GlobalPosition:
		s.telemetry.Fix = m.Fix
		s.telemetry.Position.Lat = m.Lat
		s.telemetry.Position.Lon = m.Lon
		s.preflight.UpdateFix(m.Fix)
	case types.Altitude:
		s.telemetry.Position.Alt = m.AMSL
	case types.LocalPose:
		s.telemetry.LocalPose = m
	}
}

// HandleCommandResult applies the outcome of an asynchronous command.
func (s *Supervisor) HandleCommandResult(r gateway.CommandResult) {
	if !r.OK() {
		s.lastError = r.Err.Error()
	}

	switch {
	case r.Kind == gateway.CommandParamPull && r.ID == s.pullID:
		s.pullID = ""
		if !r.OK() {
			log.Error().Err(r.Err).Msg("Parameters were not pulled")
			return
		}
		s.paramsPulled = true
	case r.Kind == gateway.CommandParamSet:
		s.preflight.Ack(r)
	case !r.OK():
		log.Error().Err(r.Err).Msgf("%s command failed", r.Kind)
	default:
		log.Info().Msgf("%s command accepted", r.Kind)
	}
}

// HandleSetpoint feeds a setpoint from one of the inbound streams.
func (s *Supervisor) HandleSetpoint(msg interface{}) {
	switch m := msg.(type) {
	case setpoint.Position:
		s.arbiter.UpdatePosition(m)
	case setpoint.Velocity:
		s.arbiter.UpdateVelocity(m)
	case geodesy.Point:
		s.arbiter.UpdateGeo(m)
	}
}

// RequestLand moves an airborne vehicle to Landing on the next tick. It
// returns false while still on the ground.
func (s *Supervisor) RequestLand() bool {
	if !s.state.airborne() {
		log.Warn().Msgf("Land requested in %s, ignored", s.state)
		return false
	}
	s.landRequested = true
	return true
}

// Disarm is forwarded to the flight controller without changing state.
func (s *Supervisor) Disarm() string {
	log.Warn().Msgf("Disarm requested in %s", s.state)
	return s.gw.Arm(false)
}

// ReturnToLaunch is forwarded to the flight controller without changing state.
func (s *Supervisor) ReturnToLaunch() string {
	log.Warn().Msgf("Return to launch requested in %s", s.state)
	return s.gw.SetMode(types.FlightModeReturnToLaunch)
}

func (s *Supervisor) State() State {
	return s.state
}
