package cloudlink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

type controlCommand struct {
	Command   string
	Payload   string
	Timestamp time.Time
}

type deviceState struct {
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

type statusEvent struct {
	Timestamp int64       `json:"timestamp"`
	MessageID string      `json:"message_id"`
	DeviceID  string      `json:"device_id"`
	Status    interface{} `json:"status"`
}

// Dialer opens the MQTT connection. It must give up once ctx is done.
type Dialer func(ctx context.Context) (Client, error)

type handler struct {
	dial     Dialer
	deviceID string
	limiter  *rate.Limiter
	latest   chan types.Message
}

// NewHandler publishes supervisor status to the backend at most publishRate
// times per second and turns backend control commands into bus messages. The
// connection is dialed in the background so the supervisor never waits for it.
func NewHandler(dial Dialer, deviceID string, publishRate float64) types.MessageHandler {
	return &handler{
		dial:     dial,
		deviceID: deviceID,
		limiter:  rate.NewLimiter(rate.Limit(publishRate), 1),
		latest:   make(chan types.Message, 1),
	}
}

func (h *handler) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go h.connectAndServe(ctx, wg, post)
}

func (h *handler) connectAndServe(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	defer wg.Done()

	client, err := h.dial(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Cloud link disabled")
		return
	}
	defer client.Disconnect()

	h.publishDeviceState(client)

	controlTopic := fmt.Sprintf("/devices/%s/commands/control", h.deviceID)
	err = client.Subscribe(controlTopic, func(topic string, payload []byte) {
		log.Info().Msgf("Got control command: %s", string(payload))
		if err := handleControlCommand(h.deviceID, payload, post); err != nil {
			log.Warn().Err(err).Msg("Ignoring control command")
		}
	})
	if err != nil {
		log.Error().Err(err).Msgf("Error on subscribe to %s", controlTopic)
	}

	h.publishStatus(ctx, client)
}

// Receive keeps only the newest status; older ones not yet sent are dropped.
func (h *handler) Receive(message types.Message) {
	if message.MessageType != "supervisor-status" {
		return
	}

	for {
		select {
		case h.latest <- message:
			return
		default:
		}
		select {
		case <-h.latest:
		default:
		}
	}
}

func (h *handler) publishStatus(ctx context.Context, client Client) {
	topic := fmt.Sprintf("/devices/%s/events/supervisor-status", h.deviceID)

	for {
		var msg types.Message
		select {
		case <-ctx.Done():
			return
		case msg = <-h.latest:
		}

		if err := h.limiter.Wait(ctx); err != nil {
			return
		}

		b, err := json.Marshal(statusEvent{
			Timestamp: time.Now().UnixNano() / 1000,
			MessageID: uuid.New().String(),
			DeviceID:  h.deviceID,
			Status:    msg.Message,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal status")
			continue
		}
		if err := client.Publish(topic, b); err != nil {
			log.Warn().Err(err).Msg("Failed to publish status")
		}
	}
}

func (h *handler) publishDeviceState(client Client) {
	topic := fmt.Sprintf("/devices/%s/state", h.deviceID)
	msg := deviceState{
		StartedAt: time.Now().UTC(),
		Message:   "supervisor started",
	}
	b, _ := json.Marshal(msg)
	if err := client.Publish(topic, b); err != nil {
		log.Warn().Err(err).Msg("Failed to publish device state")
	}
}

func handleControlCommand(deviceID string, payload []byte, post types.PostFn) error {
	var cmd controlCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return errors.Wrap(err, "could not unmarshal command")
	}

	var msg interface{}
	switch cmd.Command {
	case "land":
		msg = types.Land{}
	case "disarm":
		msg = types.Disarm{}
	case "rtl":
		msg = types.ReturnToLaunch{}
	default:
		return errors.Errorf("unknown command: %s", cmd.Command)
	}

	log.Info().Msgf("Backend requested %s", cmd.Command)
	post(types.CreateMessage(cmd.Command, "cloud", deviceID, msg))
	return nil
}
