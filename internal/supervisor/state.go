package supervisor

// State numbering leaves gaps so sub-states can be inserted later.
type State int

const (
	StateIdle                State = 0
	StateParamPull           State = 10
	StatePreflightCheck      State = 11
	StateAwaitTakeoffWindow  State = 20
	StateTakeoffCommanded    State = 30
	StateArming              State = 40
	StateClimbWait           State = 50
	StateOffboardCommanded   State = 60
	StateAwaitSetpointStream State = 70
	StateNavigating          State = 80
	StateHolding             State = 90
	StateLanding             State = 100
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParamPull:
		return "param-pull"
	case StatePreflightCheck:
		return "preflight-check"
	case StateAwaitTakeoffWindow:
		return "await-takeoff-window"
	case StateTakeoffCommanded:
		return "takeoff-commanded"
	case StateArming:
		return "arming"
	case StateClimbWait:
		return "climb-wait"
	case StateOffboardCommanded:
		return "offboard-commanded"
	case StateAwaitSetpointStream:
		return "await-setpoint-stream"
	case StateNavigating:
		return "navigating"
	case StateHolding:
		return "holding"
	case StateLanding:
		return "landing"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// airborne reports whether a land request makes sense in s.
func (s State) airborne() bool {
	return s >= StateClimbWait
}
