package orientation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestYawRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.3, math.Pi / 2, -math.Pi / 2, 2.5, -3.0} {
		assert.InDelta(t, yaw, Yaw(FromYaw(yaw)), 1e-12)
	}
}

func TestFromYawComponents(t *testing.T) {
	x, y, z, w := Components(FromYaw(math.Pi / 2))

	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)
	assert.InDelta(t, math.Sqrt2/2, z, 1e-12)
	assert.InDelta(t, math.Sqrt2/2, w, 1e-12)
}

func TestYawIgnoresRollAndPitch(t *testing.T) {
	yaw := 1.1
	q := mgl64.AnglesToQuat(yaw, 0.2, 0, mgl64.ZYX)

	assert.InDelta(t, yaw, Yaw(q), 1e-9)
}

func TestYawOfUnsetOrientation(t *testing.T) {
	assert.Equal(t, 0.0, Yaw(FromComponents(0, 0, 0, 0)))
}

func TestYawOfUnnormalisedQuaternion(t *testing.T) {
	_, _, z, w := Components(FromYaw(0.7))

	assert.InDelta(t, 0.7, Yaw(FromComponents(0, 0, 3*z, 3*w)), 1e-12)
}
