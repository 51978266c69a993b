package ros2app

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tiiuae/rclgo/pkg/rclgo"
	"github.com/tiiuae/rclgo/pkg/rclgo/typemap"
)

type Subscription struct {
	TopicName   string
	MessageType string
	Handler     rclgo.SubscriptionCallback
}

type Subscriptions struct {
	rclNode       *rclgo.Node
	subscriptions []*Subscription
}

func NewSubscriptions(rclNode *rclgo.Node) *Subscriptions {
	return &Subscriptions{rclNode, make([]*Subscription, 0)}
}

func (ss *Subscriptions) Add(topicName string, messageType string, subscriptionCallback rclgo.SubscriptionCallback) {
	ss.subscriptions = append(ss.subscriptions, &Subscription{topicName, messageType, subscriptionCallback})
}

// Subscribe creates every registered subscription and spins each of them on
// its own goroutine until ctx is done.
func (ss *Subscriptions) Subscribe(ctx context.Context, wg *sync.WaitGroup) error {
	for _, s := range ss.subscriptions {
		ros2msg, ok := typemap.GetMessage(s.MessageType)
		if !ok {
			return errors.Errorf("Unable to map message type: %s", s.MessageType)
		}
		sub, err := ss.rclNode.NewSubscription(s.TopicName, ros2msg, s.Handler)
		if err != nil {
			return errors.WithMessagef(err, "Unable to subscribe to topic %s", s.TopicName)
		}

		wg.Add(1)
		go func(topicName string) {
			defer wg.Done()
			err := sub.Spin(ctx, 5*time.Second)
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msgf("Subscription %s failed", topicName)
			}
		}(s.TopicName)
	}

	return nil
}
