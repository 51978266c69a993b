package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/geodesy"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

const inboxSize = 256

type handler struct {
	deviceID   string
	supervisor *Supervisor
	tickPeriod time.Duration
	inbox      chan types.Message
}

// NewHandler puts the supervisor on the message bus. The handler's loop is the
// only goroutine touching the supervisor.
func NewHandler(deviceID string, supervisor *Supervisor, tickPeriod time.Duration) types.MessageHandler {
	return &handler{deviceID, supervisor, tickPeriod, make(chan types.Message, inboxSize)}
}

func (h *handler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go h.runMessageLoop(ctx, wg, post)
}

// Receive queues only the messages the supervisor acts on, so its own status
// and other traffic cannot crowd out command results.
func (h *handler) Receive(message types.Message) {
	if !handles(message) {
		return
	}

	select {
	case h.inbox <- message:
	default:
		log.Warn().Msgf("Supervisor inbox full, dropping %s", message.MessageType)
	}
}

func (h *handler) runMessageLoop(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	defer wg.Done()

	ticker := time.NewTicker(h.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Supervisor shutting down")
			return
		case <-ticker.C:
			h.supervisor.Tick()
			post(types.CreateMessage("supervisor-status", h.deviceID, h.deviceID, h.supervisor.Status()))
		case msg := <-h.inbox:
			h.handle(msg)
		}
	}
}

func handles(msg types.Message) bool {
	switch msg.Message.(type) {
	case types.VehicleState, types.GlobalPosition, types.Altitude, types.LocalPose,
		gateway.CommandResult,
		setpoint.Position, setpoint.Velocity, geodesy.Point,
		types.Land, types.Disarm, types.ReturnToLaunch:
		return true
	}
	return false
}

func (h *handler) handle(msg types.Message) {
	switch m := msg.Message.(type) {
	case types.VehicleState, types.GlobalPosition, types.Altitude, types.LocalPose:
		h.supervisor.HandleTelemetry(m)
	case gateway.CommandResult:
		h.supervisor.HandleCommandResult(m)
	case setpoint.Position, setpoint.Velocity, geodesy.Point:
		h.supervisor.HandleSetpoint(m)
	case types.Land:
		h.supervisor.RequestLand()
	case types.Disarm:
		h.supervisor.Disarm()
	case types.ReturnToLaunch:
		h.supervisor.ReturnToLaunch()
	}
}
