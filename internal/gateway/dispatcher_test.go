package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

// scriptedTransport returns the queued errors in order, then nil.
type scriptedTransport struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	modes  []types.FlightMode
	params []Param
	geo    []GeoCommand
	pubErr error
}

func (s *scriptedTransport) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedTransport) SetMode(ctx context.Context, mode types.FlightMode) error {
	s.mu.Lock()
	s.modes = append(s.modes, mode)
	s.mu.Unlock()
	return s.next()
}

func (s *scriptedTransport) Arm(ctx context.Context, arm bool) error { return s.next() }

func (s *scriptedTransport) SetParam(ctx context.Context, p Param) error {
	s.mu.Lock()
	s.params = append(s.params, p)
	s.mu.Unlock()
	return s.next()
}

func (s *scriptedTransport) PullParams(ctx context.Context, force bool) error { return s.next() }

func (s *scriptedTransport) PublishPosition(p setpoint.Position) error { return s.pubErr }

func (s *scriptedTransport) PublishVelocity(v setpoint.Velocity) error { return s.pubErr }

func (s *scriptedTransport) PublishGeo(g GeoCommand) error {
	s.geo = append(s.geo, g)
	return s.pubErr
}

func testOptions() Options {
	return Options{
		Attempts:       3,
		Delay:          time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func dispatchOne(t *testing.T, transport Transport, send func(d *Dispatcher) string) CommandResult {
	t.Helper()

	results := make(chan CommandResult, 1)
	d := NewDispatcher(context.Background(), transport, func(r CommandResult) { results <- r }, testOptions())
	id := send(d)
	require.NotEmpty(t, id)
	d.Wait()

	select {
	case r := <-results:
		assert.Equal(t, id, r.ID)
		return r
	default:
		require.FailNow(t, "no result reported")
	}
	return CommandResult{}
}

func TestDispatchSucceedsFirstTime(t *testing.T) {
	transport := &scriptedTransport{}

	r := dispatchOne(t, transport, func(d *Dispatcher) string { return d.SetMode(types.FlightModeTakeoff) })

	assert.True(t, r.OK())
	assert.Equal(t, CommandSetMode, r.Kind)
	assert.Equal(t, types.FlightModeTakeoff, r.Mode)
	assert.Equal(t, uint(1), r.Attempts)
	assert.Equal(t, []types.FlightMode{types.FlightModeTakeoff}, transport.modes)
}

func TestDispatchRetriesWhileUnavailable(t *testing.T) {
	transport := &scriptedTransport{errs: []error{
		errors.Wrap(ErrUnavailable, "service not ready"),
		errors.Wrap(ErrUnavailable, "service not ready"),
	}}

	r := dispatchOne(t, transport, func(d *Dispatcher) string { return d.Arm(true) })

	assert.True(t, r.OK())
	assert.True(t, r.Arm)
	assert.Equal(t, uint(3), r.Attempts)
	assert.Equal(t, 3, transport.calls)
}

func TestDispatchGivesUpAfterAttempts(t *testing.T) {
	transport := &scriptedTransport{errs: []error{ErrUnavailable, ErrUnavailable, ErrUnavailable, ErrUnavailable}}

	r := dispatchOne(t, transport, func(d *Dispatcher) string { return d.PullParams(false) })

	require.Error(t, r.Err)
	assert.True(t, errors.Is(r.Err, ErrUnavailable))
	assert.Equal(t, CommandParamPull, r.Kind)
	assert.Equal(t, uint(3), r.Attempts)
	assert.Equal(t, 3, transport.calls)
}

func TestDispatchDoesNotRetryRejection(t *testing.T) {
	transport := &scriptedTransport{errs: []error{errors.Wrap(ErrRejected, "MIS_TAKEOFF_ALT")}}

	r := dispatchOne(t, transport, func(d *Dispatcher) string { return d.SetParam(RealParam("MIS_TAKEOFF_ALT", 10)) })

	require.Error(t, r.Err)
	assert.True(t, errors.Is(r.Err, ErrRejected))
	assert.Equal(t, "MIS_TAKEOFF_ALT", r.Param)
	assert.Equal(t, uint(1), r.Attempts)
	assert.Equal(t, []Param{{Name: "MIS_TAKEOFF_ALT", Type: ParamReal, Real: 10}}, transport.params)
}

func TestDispatchReturnsDistinctIDs(t *testing.T) {
	transport := &scriptedTransport{}
	d := NewDispatcher(context.Background(), transport, func(r CommandResult) {}, testOptions())

	a := d.SetParam(IntegerParam("COM_RCL_EXCEPT", 4))
	b := d.SetParam(IntegerParam("COM_RCL_EXCEPT", 4))
	d.Wait()

	assert.NotEqual(t, a, b)
}

func TestPublishIsForwarded(t *testing.T) {
	transport := &scriptedTransport{pubErr: errors.New("publisher closed")}
	d := NewDispatcher(context.Background(), transport, func(r CommandResult) {}, testOptions())

	g := GeoCommand{Target: geodesy.Point{Lat: 60, Lon: 24, Alt: 40}, HeadingEnabled: true, Yaw: 1}
	d.PublishGeo(g)
	d.PublishPosition(setpoint.Position{})
	d.PublishVelocity(setpoint.Velocity{})

	assert.Equal(t, []GeoCommand{g}, transport.geo)
}

func TestParamString(t *testing.T) {
	assert.Equal(t, "COM_OBL_ACT=1", IntegerParam("COM_OBL_ACT", 1).String())
	assert.Equal(t, "MPC_XY_VEL_MAX=12.500000", RealParam("MPC_XY_VEL_MAX", 12.5).String())
}
