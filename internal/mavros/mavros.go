// Package mavros talks to the flight controller bridge over ROS 2. It is both
// the gateway.Transport used by the command dispatcher and a message bus
// handler publishing telemetry and inbound setpoints.
package mavros

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	geometry_msgs "github.com/tiiuae/rclgo-msgs/geometry_msgs/msg"
	std_srvs "github.com/tiiuae/rclgo-msgs/std_srvs/srv"
	"github.com/tiiuae/rclgo/pkg/rclgo"

	"github.com/tiiuae/communication_link/supervisor/internal/gateway"
	"github.com/tiiuae/communication_link/supervisor/internal/orientation"
	"github.com/tiiuae/communication_link/supervisor/internal/ros2app"
	"github.com/tiiuae/communication_link/supervisor/internal/setpoint"
	"github.com/tiiuae/communication_link/supervisor/internal/types"
)

// Topic names are relative to the vehicle namespace of the node.
const (
	topicState          = "bridge/state"
	topicGlobalPosition = "bridge/global_position"
	topicAltitude       = "bridge/altitude"
	topicLocalPose      = "mavros/local_position/pose"
	topicRequest        = "bridge/request"
	topicResponse       = "bridge/response"
	serviceArming       = "bridge/cmd/arming"

	topicSetpointLocal    = "mavros/setpoint_position/local"
	topicSetpointVelocity = "mavros/setpoint_velocity/cmd_vel"
	topicSetpointGlobal   = "bridge/setpoint_position/global"

	topicPositionSetp = "PositionSetp"
	topicVelocitySetp = "VelocitySetp"
	// JSON {latitude, longitude, altitude}, not geographic_msgs/GeoPoint.
	topicGeoSetp      = "GeoPositionSetp"
)

const frameID = "map"

type Bridge struct {
	rclContext *rclgo.Context
	node       *rclgo.Node
	deviceID   string

	arming      *rclgo.Client
	pubRequest  *rclgo.Publisher
	pubPosition *rclgo.Publisher
	pubVelocity *rclgo.Publisher
	pubGeo      *rclgo.Publisher

	mu      sync.Mutex
	pending map[string]chan gateway.Response
}

// New creates the publishers and the arming client on node. The wait set
// serving the client runs until ctx is done.
func New(ctx context.Context, rclContext *rclgo.Context, node *rclgo.Node, deviceID string) (*Bridge, error) {
	b := &Bridge{
		rclContext: rclContext,
		node:       node,
		deviceID:   deviceID,
		pending:    make(map[string]chan gateway.Response),
	}

	var err error
	if b.pubRequest, err = ros2app.NewPublisher(node, topicRequest, "std_msgs/String"); err != nil {
		return nil, err
	}
	if b.pubPosition, err = ros2app.NewPublisher(node, topicSetpointLocal, "geometry_msgs/PoseStamped"); err != nil {
		return nil, err
	}
	if b.pubVelocity, err = ros2app.NewPublisher(node, topicSetpointVelocity, "geometry_msgs/TwistStamped"); err != nil {
		return nil, err
	}
	if b.pubGeo, err = ros2app.NewPublisher(node, topicSetpointGlobal, "std_msgs/String"); err != nil {
		return nil, err
	}
	if b.arming, err = createArmingService(ctx, rclContext, node); err != nil {
		return nil, err
	}

	return b, nil
}

func createArmingService(ctx context.Context, rclContext *rclgo.Context, node *rclgo.Node) (*rclgo.Client, error) {
	opt := &rclgo.ClientOptions{Qos: rclgo.NewRmwQosProfileServicesDefault()}
	client, err := node.NewClient(serviceArming, std_srvs.SetBoolTypeSupport, opt)
	if err != nil {
		return nil, errors.WithMessage(err, "Unable to create arming client")
	}

	ws, err := rclContext.NewWaitSet(200 * time.Millisecond)
	if err != nil {
		return nil, errors.WithMessage(err, "Unable to create wait set")
	}

	ws.AddClients(client)
	ws.RunGoroutine(ctx)

	return client, nil
}

// Close releases the publishers and the arming client. Call it after every
// goroutine using the bridge has stopped.
func (b *Bridge) Close() {
	for _, pub := range []*rclgo.Publisher{b.pubRequest, b.pubPosition, b.pubVelocity, b.pubGeo} {
		if err := pub.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close publisher")
		}
	}
	if err := b.arming.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close arming client")
	}
}

func (b *Bridge) Arm(ctx context.Context, arm bool) error {
	req := std_srvs.NewSetBool_Request()
	req.Data = arm
	res, _, err := b.arming.Send(ctx, req)
	if err != nil {
		return errors.WithMessage(gateway.ErrUnavailable, err.Error())
	}

	resp, ok := res.(*std_srvs.SetBool_Response)
	if !ok {
		return errors.Errorf("unexpected arming response %T", res)
	}
	if !resp.Success {
		return errors.WithMessage(gateway.ErrRejected, resp.Message)
	}
	return nil
}

func (b *Bridge) SetMode(ctx context.Context, mode types.FlightMode) error {
	req, err := gateway.NewSetModeRequest(mode)
	if err != nil {
		return err
	}
	return b.request(ctx, req)
}

func (b *Bridge) SetParam(ctx context.Context, p gateway.Param) error {
	return b.request(ctx, gateway.NewParamSetRequest(p))
}

func (b *Bridge) PullParams(ctx context.Context, force bool) error {
	return b.request(ctx, gateway.NewParamPullRequest(force))
}

// request publishes req and waits for the response carrying the same id.
func (b *Bridge) request(ctx context.Context, req gateway.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	ch := make(chan gateway.Response, 1)
	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	if err := b.pubRequest.Publish(ros2app.CreateString(string(data))); err != nil {
		return errors.WithMessage(gateway.ErrUnavailable, err.Error())
	}

	select {
	case <-ctx.Done():
		return errors.WithMessagef(gateway.ErrUnavailable, "no response to %s %s", req.Command, req.ID)
	case resp := <-ch:
		return resp.Err()
	}
}

func (b *Bridge) resolve(resp gateway.Response) {
	b.mu.Lock()
	ch, ok := b.pending[resp.ID]
	b.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

func (b *Bridge) PublishPosition(p setpoint.Position) error {
	msg := geometry_msgs.NewPoseStamped()
	stamp(&msg.Header.Stamp.Sec, &msg.Header.Stamp.Nanosec)
	msg.Header.FrameId = frameID
	msg.Pose.Position.X = p.X
	msg.Pose.Position.Y = p.Y
	msg.Pose.Position.Z = p.Z
	q := orientation.FromYaw(p.Yaw)
	msg.Pose.Orientation.X, msg.Pose.Orientation.Y, msg.Pose.Orientation.Z, msg.Pose.Orientation.W = orientation.Components(q)

	return b.pubPosition.Publish(msg)
}

func (b *Bridge) PublishVelocity(v setpoint.Velocity) error {
	msg := geometry_msgs.NewTwistStamped()
	stamp(&msg.Header.Stamp.Sec, &msg.Header.Stamp.Nanosec)
	msg.Header.FrameId = frameID
	msg.Twist.Linear.X = v.X
	msg.Twist.Linear.Y = v.Y
	msg.Twist.Linear.Z = v.Z
	msg.Twist.Angular.Z = v.YawRate

	return b.pubVelocity.Publish(msg)
}

func (b *Bridge) PublishGeo(g gateway.GeoCommand) error {
	data, err := gateway.EncodeGeoCommand(g)
	if err != nil {
		return err
	}
	return b.pubGeo.Publish(ros2app.CreateString(data))
}

func stamp(sec *int32, nanosec *uint32) {
	now := time.Now()
	*sec = int32(now.Unix())
	*nanosec = uint32(now.Nanosecond())
}
