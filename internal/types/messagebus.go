package types

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type PostFn = func(msg Message)

// MessageHandler.Run must not block: it starts its goroutines, registering
// them with wg, and returns.
type MessageHandler interface {
	Run(ctx context.Context, wg *sync.WaitGroup, post PostFn)
	Receive(message Message)
}

type MessageBus struct {
	bus       chan Message
	receivers []MessageHandler
}

func NewMessageBus(bus chan Message, receivers ...MessageHandler) *MessageBus {
	return &MessageBus{bus, receivers}
}

// Add registers more receivers. It must be called before Run.
func (mb *MessageBus) Add(receivers ...MessageHandler) {
	mb.receivers = append(mb.receivers, receivers...)
}

// Post returns a function that puts messages on the bus. It drops the message
// once ctx is done instead of blocking the caller forever.
func (mb *MessageBus) Post(ctx context.Context) PostFn {
	busCapacity := cap(mb.bus)
	return func(msg Message) {
		busLen := len(mb.bus)
		if busLen > busCapacity/2 {
			log.Warn().Msgf("Bus capacity over 50%% [ %d / %d ]", busLen, busCapacity)
		}
		select {
		case mb.bus <- msg:
		case <-ctx.Done():
		}
	}
}

// Run starts every receiver and fans bus messages out to them until ctx is done.
func (mb *MessageBus) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	post := mb.Post(ctx)
	for _, x := range mb.receivers {
		x.Run(ctx, wg, post)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-mb.bus:
			for _, x := range mb.receivers {
				x.Receive(msg)
			}
		}
	}
}
