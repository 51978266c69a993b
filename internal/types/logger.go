package types

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Messages arriving at telemetry or setpoint rate would drown everything else.
var highRateMessages = map[string]bool{
	"global-position":   true,
	"altitude":          true,
	"local-pose":        true,
	"position-setpoint": true,
	"velocity-setpoint": true,
	"geo-setpoint":      true,
	"supervisor-status": true,
}

type logger struct {
}

func NewLogger() MessageHandler {
	return &logger{}
}

func (l *logger) Receive(message Message) {
	if highRateMessages[message.MessageType] {
		return
	}

	b, _ := json.Marshal(message.Message)
	log.Info().Msgf("Message: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
