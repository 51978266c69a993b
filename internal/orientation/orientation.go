// Package orientation converts between yaw angles and the quaternions carried
// by ROS pose messages.
package orientation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var zAxis = mgl64.Vec3{0, 0, 1}

// FromYaw returns the quaternion for a rotation of yaw radians about the
// vertical axis with zero roll and pitch.
func FromYaw(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, zAxis)
}

// Yaw extracts the heading of q. A zero quaternion, as sent by publishers that
// leave the orientation unset, yields zero.
func Yaw(q mgl64.Quat) float64 {
	if q.Len() == 0 {
		return 0
	}
	q = q.Normalize()
	x, y, z := q.V[0], q.V[1], q.V[2]
	return math.Atan2(2*(q.W*z+x*y), 1-2*(y*y+z*z))
}

// Components returns x, y, z, w in the order ROS messages store them.
func Components(q mgl64.Quat) (x, y, z, w float64) {
	return q.V[0], q.V[1], q.V[2], q.W
}

func FromComponents(x, y, z, w float64) mgl64.Quat {
	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}
