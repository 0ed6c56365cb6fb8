package light

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultShadowHalfExtent is the default orthographic half-extent (in world units) of the
// directional light shadow camera.
const DefaultShadowHalfExtent float32 = 40.0

// DefaultShadowNear is the default near plane for the directional light's
// orthographic shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane for the directional light's
// orthographic shadow projection.
const DefaultShadowFar float32 = 200.0

// ShadowCaster returns the first enabled directional light that casts shadows.
//
// Returns:
//   - ecs.Handle: the light entity, ecs.None when there is none
//   - *Component: the light, nil when there is none
func ShadowCaster(table *Table) (ecs.Handle, *Component) {
	found := ecs.None
	var light *Component
	table.Each(func(h ecs.Handle, c *Component) {
		if found == ecs.None && c.IsValid() && c.Type == TypeDirectional && c.CastsShadows {
			found, light = h, c
		}
	})
	return found, light
}

// ShadowView builds the view and orthographic projection of a directional light looking at
// center. The eye is placed half the far distance back along the light direction.
//
// Parameters:
//   - dir: normalized world-space light direction
//   - center: the point the shadow map is centred on
//   - halfExtent: half the width and height of the covered area; DefaultShadowHalfExtent when <= 0
//
// Returns:
//   - view: the light view matrix
//   - projection: the orthographic projection
func ShadowView(dir, center mgl32.Vec3, halfExtent float32) (view, projection mgl32.Mat4) {
	if halfExtent <= 0 {
		halfExtent = DefaultShadowHalfExtent
	}
	eye := center.Sub(dir.Mul(DefaultShadowFar / 2))
	up := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(dir.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view = mgl32.LookAtV(eye, center, up)
	projection = mgl32.Ortho(-halfExtent, halfExtent, -halfExtent, halfExtent, DefaultShadowNear, DefaultShadowFar)
	return view, projection
}
