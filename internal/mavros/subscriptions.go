package mavros

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	geometry_msgs "github.com/tiiuae/rclgo-msgs/geometry_msgs/msg"
	std_msgs "github.com/tiiuae/rclgo-msgs/std_msgs/msg"
	"github.com/tiiuae/rclgo/pkg/rclgo"

	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/orientation"
	"github.com/tiiuae/communication_link/supervisor/internal/ros2app"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

// Run subscribes to the bridge telemetry, the request responses and the
// inbound setpoint topics. Everything received is posted on the bus.
func (b *Bridge) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	subs := ros2app.NewSubscriptions(b.node)
	subs.Add(topicState, "std_msgs/String", b.handleVehicleState(post))
	subs.Add(topicGlobalPosition, "std_msgs/String", b.handleGlobalPosition(post))
	subs.Add(topicAltitude, "std_msgs/String", b.handleAltitude(post))
	subs.Add(topicLocalPose, "geometry_msgs/PoseStamped", b.handleLocalPose(post))
	subs.Add(topicResponse, "std_msgs/String", b.handleResponse)
	subs.Add(topicPositionSetp, "geometry_msgs/Pose", b.handlePositionSetpoint(post))
	subs.Add(topicVelocitySetp, "geometry_msgs/Twist", b.handleVelocitySetpoint(post))
	subs.Add(topicGeoSetp, "std_msgs/String", b.handleGeoSetpoint(post))

	if err := subs.Subscribe(ctx, wg); err != nil {
		log.Fatal().Err(err).Msg("Failed to subscribe to bridge topics")
	}
}

func (b *Bridge) Receive(message types.Message) {
}

func (b *Bridge) post(post types.PostFn, msgType string, msg interface{}) {
	post(types.CreateMessage(msgType, b.deviceID, b.deviceID, msg))
}

func takeString(s *rclgo.Subscription, topicName string) (string, bool) {
	var m std_msgs.String
	if _, err := s.TakeMessage(&m); err != nil {
		log.Error().Err(err).Msgf("TakeMessage failed on %s", topicName)
		return "", false
	}
	return m.Data, true
}

func (b *Bridge) handleVehicleState(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		data, ok := takeString(s, topicState)
		if !ok {
			return
		}
		state, err := gateway.DecodeVehicleState(data)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping vehicle state")
			return
		}
		b.post(post, "vehicle-state", state)
	}
}

func (b *Bridge) handleGlobalPosition(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		data, ok := takeString(s, topicGlobalPosition)
		if !ok {
			return
		}
		pos, err := gateway.DecodeGlobalPosition(data)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping global position")
			return
		}
		b.post(post, "global-position", pos)
	}
}

func (b *Bridge) handleAltitude(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		data, ok := takeString(s, topicAltitude)
		if !ok {
			return
		}
		alt, err := gateway.DecodeAltitude(data)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping altitude")
			return
		}
		b.post(post, "altitude", alt)
	}
}

func (b *Bridge) handleLocalPose(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		var m geometry_msgs.PoseStamped
		if _, err := s.TakeMessage(&m); err != nil {
			log.Error().Err(err).Msg("TakeMessage failed on local pose")
			return
		}
		b.post(post, "local-pose", types.LocalPose{
			X:   m.Pose.Position.X,
			Y:   m.Pose.Position.Y,
			Z:   m.Pose.Position.Z,
			Yaw: yawOf(m.Pose.Orientation),
		})
	}
}

func (b *Bridge) handleResponse(s *rclgo.Subscription) {
	data, ok := takeString(s, topicResponse)
	if !ok {
		return
	}
	resp, err := gateway.DecodeResponse(data)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping bridge response")
		return
	}
	b.resolve(resp)
}

func (b *Bridge) handlePositionSetpoint(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		var m geometry_msgs.Pose
		if _, err := s.TakeMessage(&m); err != nil {
			log.Error().Err(err).Msg("TakeMessage failed on position setpoint")
			return
		}
		b.post(post, "position-setpoint", setpoint.Position{
			X:   m.Position.X,
			Y:   m.Position.Y,
			Z:   m.Position.Z,
			Yaw: yawOf(m.Orientation),
		})
	}
}

func (b *Bridge) handleVelocitySetpoint(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		var m geometry_msgs.Twist
		if _, err := s.TakeMessage(&m); err != nil {
			log.Error().Err(err).Msg("TakeMessage failed on velocity setpoint")
			return
		}
		v := setpoint.VelocityFromInput(m.Linear.X, m.Linear.Y, m.Linear.Z, m.Angular.Z)
		b.post(post, "velocity-setpoint", v)
	}
}

func (b *Bridge) handleGeoSetpoint(post types.PostFn) rclgo.SubscriptionCallback {
	return func(s *rclgo.Subscription) {
		data, ok := takeString(s, topicGeoSetp)
		if !ok {
			return
		}
		p, err := gateway.DecodeGeoPoint(data)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping geo setpoint")
			return
		}
		b.post(post, "geo-setpoint", p)
	}
}

func yawOf(q geometry_msgs.Quaternion) float64 {
	return orientation.Yaw(orientation.FromComponents(q.X, q.Y, q.Z, q.W))
}
