// Package gateway is the boundary between the supervisor and the flight
// controller bridge. Commands are asynchronous: every call returns a request
// id immediately and the outcome arrives later as a CommandResult.
package gateway

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

var (
	// ErrUnavailable means the bridge could not be reached. It is retried.
	ErrUnavailable = errors.New("flight controller unavailable")
	// ErrRejected means the flight controller answered with failure. It is not retried.
	ErrRejected = errors.New("command rejected")
)

type CommandKind int

const (
	CommandSetMode CommandKind = iota
	CommandArm
	CommandParamSet
	CommandParamPull
)

func (k CommandKind) String() string {
	switch k {
	case CommandSetMode:
		return "set-mode"
	case CommandArm:
		return "arm"
	case CommandParamSet:
		return "param-set"
	case CommandParamPull:
		return "param-pull"
	}
	return "unknown"
}

func (k CommandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParamType uses the MAVLink parameter value type numbering.
type ParamType uint8

const (
	ParamInteger ParamType = 2
	ParamReal    ParamType = 3
)

type Param struct {
	Name    string    `json:"param_id"`
	Type    ParamType `json:"type"`
	Integer int64     `json:"integer_value"`
	Real    float64   `json:"double_value"`
}

func IntegerParam(name string, value int64) Param {
	return Param{Name: name, Type: ParamInteger, Integer: value}
}

func RealParam(name string, value float64) Param {
	return Param{Name: name, Type: ParamReal, Real: value}
}

func (p Param) String() string {
	if p.Type == ParamInteger {
		return fmt.Sprintf("%s=%d", p.Name, p.Integer)
	}
	return fmt.Sprintf("%s=%f", p.Name, p.Real)
}

// GeoCommand is a geodetic setpoint. Yaw is only meaningful with HeadingEnabled;
// otherwise the heading is commanded to zero.
type GeoCommand struct {
	Target         geodesy.Point `json:"target"`
	HeadingEnabled bool          `json:"heading_enabled"`
	Yaw            float64       `json:"yaw"`
}

// CommandResult is the outcome of one asynchronous command.
type CommandResult struct {
	ID       string           `json:"id"`
	Kind     CommandKind      `json:"kind"`
	Mode     types.FlightMode `json:"mode,omitempty"`
	Arm      bool             `json:"arm,omitempty"`
	Param    string           `json:"param,omitempty"`
	Attempts uint             `json:"attempts"`
	Err      error            `json:"-"`
}

func (r CommandResult) OK() bool {
	return r.Err == nil
}

// Gateway is what the supervisor uses to drive the vehicle. None of the
// methods block on the flight controller.
type Gateway interface {
	SetMode(mode types.FlightMode) string
	Arm(arm bool) string
	SetParam(p Param) string
	PullParams(force bool) string

	PublishPosition(p setpoint.Position)
	PublishVelocity(v setpoint.Velocity)
	PublishGeo(g GeoCommand)
}

// Transport performs one blocking exchange with the flight controller bridge.
// Implementations return ErrUnavailable (possibly wrapped) when the bridge
// cannot be reached and ErrRejected when the controller refuses.
type Transport interface {
	SetMode(ctx context.Context, mode types.FlightMode) error
	Arm(ctx context.Context, arm bool) error
	SetParam(ctx context.Context, p Param) error
	PullParams(ctx context.Context, force bool) error

	PublishPosition(p setpoint.Position) error
	PublishVelocity(v setpoint.Velocity) error
	PublishGeo(g GeoCommand) error
}
