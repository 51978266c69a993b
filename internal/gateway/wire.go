package gateway

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

// JSON documents exchanged with the flight controller bridge over std_msgs/String.

const (
	RequestSetMode   = "set_mode"
	RequestParamSet  = "param_set"
	RequestParamPull = "param_pull"
)

type Request struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	CustomMode string `json:"custom_mode,omitempty"`
	Param      *Param `json:"param,omitempty"`
	ForcePull  bool   `json:"force_pull,omitempty"`
}

type Response struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func NewSetModeRequest(mode types.FlightMode) (Request, error) {
	custom := mode.CustomMode()
	if custom == "" {
		return Request{}, errors.Errorf("no custom mode for %s", mode)
	}
	return Request{ID: uuid.New().String(), Command: RequestSetMode, CustomMode: custom}, nil
}

func NewParamSetRequest(p Param) Request {
	return Request{ID: uuid.New().String(), Command: RequestParamSet, Param: &p}
}

func NewParamPullRequest(force bool) Request {
	return Request{ID: uuid.New().String(), Command: RequestParamPull, ForcePull: force}
}

// Err maps an unsuccessful response to ErrRejected.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	if r.Message == "" {
		return ErrRejected
	}
	return errors.WithMessage(ErrRejected, r.Message)
}

type stateDocument struct {
	Armed bool   `json:"armed"`
	Mode  string `json:"mode"`
}

type fixDocument struct {
	Status    int8    `json:"status"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type altitudeDocument struct {
	AMSL float64 `json:"amsl"`
}

type geoDocument struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

type geoSetpointDocument struct {
	geoDocument
	Yaw float64 `json:"yaw"`
}

func DecodeVehicleState(data string) (types.VehicleState, error) {
	var doc stateDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return types.VehicleState{}, errors.Wrap(err, "decode vehicle state")
	}
	return types.VehicleState{Armed: doc.Armed, Mode: types.ParseCustomMode(doc.Mode)}, nil
}

func DecodeGlobalPosition(data string) (types.GlobalPosition, error) {
	var doc fixDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return types.GlobalPosition{}, errors.Wrap(err, "decode global position")
	}
	return types.GlobalPosition{Fix: types.FixStatus(doc.Status), Lat: doc.Latitude, Lon: doc.Longitude}, nil
}

func DecodeAltitude(data string) (types.Altitude, error) {
	var doc altitudeDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return types.Altitude{}, errors.Wrap(err, "decode altitude")
	}
	return types.Altitude{AMSL: doc.AMSL}, nil
}

// DecodeGeoPoint decodes an inbound geodetic setpoint.
func DecodeGeoPoint(data string) (geodesy.Point, error) {
	var doc geoDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return geodesy.Point{}, errors.Wrap(err, "decode geo point")
	}
	return geodesy.Point{Lat: doc.Latitude, Lon: doc.Longitude, Alt: doc.Altitude}, nil
}

// EncodeGeoCommand renders an outbound geodetic setpoint. The yaw is zero
// unless the heading is enabled.
func EncodeGeoCommand(g GeoCommand) (string, error) {
	doc := geoSetpointDocument{
		geoDocument: geoDocument{Latitude: g.Target.Lat, Longitude: g.Target.Lon, Altitude: g.Target.Alt},
	}
	if g.HeadingEnabled {
		doc.Yaw = g.Yaw
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "encode geo setpoint")
	}
	return string(b), nil
}

func DecodeResponse(data string) (Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return Response{}, errors.Wrap(err, "decode response")
	}
	if resp.ID == "" {
		return Response{}, errors.New("response without id")
	}
	return resp, nil
}
