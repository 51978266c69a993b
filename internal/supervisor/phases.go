package supervisor

import (
	"github.com/rs/zerolog/log"

	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

const (
	// Ticks spent in Idle before pulling parameters.
	idleTicks = 10
	// Ticks between preflight readiness and the takeoff command.
	takeoffWindowTicks = 10
)

// phase is the behaviour of one state. enter runs exactly once, on the tick
// the state is entered. tick is the transition guard and runs on every later
// tick. exit runs on the tick the state is left.
type phase struct {
	enter func(s *Supervisor)
	tick  func(s *Supervisor) (State, bool)
	exit  func(s *Supervisor)
}

var phases = map[State]phase{
	StateIdle: {
		tick: func(s *Supervisor) (State, bool) {
			return StateParamPull, s.ticks >= idleTicks
		},
	},
	StateParamPull: {
		enter: func(s *Supervisor) {
			s.pullID = s.gw.PullParams(false)
		},
		tick: func(s *Supervisor) (State, bool) {
			return StatePreflightCheck, s.paramsPulled
		},
	},
	StatePreflightCheck: {
		enter: func(s *Supervisor) {
			s.preflight.Start(s.gw)
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateAwaitTakeoffWindow, s.preflight.Ready()
		},
	},
	StateAwaitTakeoffWindow: {
		tick: func(s *Supervisor) (State, bool) {
			return StateTakeoffCommanded, s.ticks == takeoffWindowTicks
		},
	},
	StateTakeoffCommanded: {
		enter: func(s *Supervisor) {
			s.gw.SetMode(types.FlightModeTakeoff)
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateArming, s.telemetry.Mode == types.FlightModeTakeoff
		},
	},
	StateArming: {
		enter: func(s *Supervisor) {
			s.gw.Arm(true)
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateClimbWait, s.telemetry.Armed
		},
	},
	StateClimbWait: {
		tick: func(s *Supervisor) (State, bool) {
			return StateOffboardCommanded, s.telemetry.Mode == types.FlightModeHold
		},
	},
	StateOffboardCommanded: {
		enter: func(s *Supervisor) {
			s.gw.SetMode(types.FlightModeOffboard)
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateAwaitSetpointStream, s.telemetry.Mode == types.FlightModeOffboard
		},
	},
	StateAwaitSetpointStream: {
		enter: func(s *Supervisor) {
			log.Info().Msg("Waiting for setpoints")
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateNavigating, s.arbiter.AnyActive()
		},
	},
	StateNavigating: {
		enter: func(s *Supervisor) {
			log.Info().Msgf("Flying to setpoints from %v", s.arbiter.Active())
		},
		tick: func(s *Supervisor) (State, bool) {
			return StateHolding, s.arbiter.AnyStale()
		},
		exit: func(s *Supervisor) {
			if stale := s.arbiter.Stale(); len(stale) > 0 {
				log.Info().Msgf("Setpoint stream ended: %v", stale)
			}
		},
	},
	StateHolding: {
		enter: func(s *Supervisor) {
			log.Info().Msg("End of the mission, holding position")
		},
	},
	StateLanding: {
		enter: func(s *Supervisor) {
			s.gw.SetMode(types.FlightModeLand)
		},
	},
}
