package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitControllerPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithElevation(0), WithTarget(mgl32.Vec3{1, 0, 0}))

	p := cc.Position()
	assert.InDelta(t, 1, p.X(), 1e-5)
	assert.InDelta(t, 0, p.Y(), 1e-5)
	assert.InDelta(t, 5, p.Z(), 1e-5)

	cc.Orbit(0, 1000)
	assert.InDelta(t, math.Pi/2-0.05, cc.Elevation(), 1e-5)

	cc.Zoom(1000)
	assert.InDelta(t, 0.5, cc.Radius(), 1e-6)
}

func TestPanMovesTargetAndPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithElevation(0), WithPanSpeed(1))
	before := cc.Position().Sub(cc.Target())

	cc.Pan(2, 0)

	assert.InDelta(t, 2, cc.Target().X(), 1e-5)
	after := cc.Position().Sub(cc.Target())
	assert.InDelta(t, before.Len(), after.Len(), 1e-5)
}

func TestCameraMatrices(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithElevation(0))
	cam := NewCamera(WithController(cc), WithAspect(2), WithClip(0.5, 50))

	require.Equal(t, float32(2), cam.Aspect())
	assert.Equal(t, mgl32.Perspective(cam.Fov(), 2, 0.5, 50), cam.ProjectionMatrix())

	// The origin sits 10 units straight ahead of the eye.
	origin := cam.ViewMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, -10, origin.Z(), 1e-4)
	assert.InDelta(t, 10, cam.Position().Z(), 1e-4)

	cam.SetAspect(0)
	assert.Equal(t, float32(2), cam.Aspect())
}

func TestCameraWithoutController(t *testing.T) {
	cam := NewCamera()
	assert.Nil(t, cam.Controller())
	assert.Equal(t, mgl32.Ident4(), cam.ViewMatrix())
	assert.Equal(t, mgl32.Vec3{}, cam.Position())
	cam.Update()
	assert.Equal(t, mgl32.Ident4(), cam.ViewMatrix())
}
