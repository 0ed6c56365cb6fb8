// Package physics integrates velocities into spatial components. There is no collision.
package physics

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultGravity is the acceleration applied to bodies with Gravity set.
var DefaultGravity = mgl32.Vec3{0, -9.81, 0}

// Component is a kinematic body.
type Component struct {
	Enabled bool

	// Velocity is in units per second, in the parent's space.
	Velocity mgl32.Vec3

	// AngularVelocity is a rotation axis scaled by radians per second.
	AngularVelocity mgl32.Vec3

	// Gravity enables the world gravity acceleration.
	Gravity bool

	// Damping is the fraction of velocity lost per second, clamped to [0, 1] per step.
	Damping float32
}

// Table holds the physics component of every entity.
type Table = ecs.Table[Component]

// NewTable creates an empty physics table.
func NewTable() *Table {
	return ecs.NewTable[Component](16)
}

// IsValid reports whether the body takes part in integration.
func (c *Component) IsValid() bool {
	return c != nil && c.Enabled
}

// Step advances every valid body by dt seconds with explicit Euler integration.
// Bodies without a spatial component are skipped.
//
// Parameters:
//   - bodies: the physics table
//   - spatials: the spatial table that receives the new positions and rotations
//   - dt: the step length in seconds
//   - gravity: acceleration for bodies with Gravity set
func Step(bodies *Table, spatials *spatial.Table, dt float64, gravity mgl32.Vec3) {
	if dt <= 0 {
		return
	}
	fdt := float32(dt)
	bodies.Each(func(h ecs.Handle, b *Component) {
		if !b.IsValid() {
			return
		}
		s := spatials.Peek(h)
		if s == nil {
			return
		}
		if b.Gravity {
			b.Velocity = b.Velocity.Add(gravity.Mul(fdt))
		}
		if b.Damping > 0 {
			b.Velocity = b.Velocity.Mul(mgl32.Clamp(1-b.Damping*fdt, 0, 1))
		}
		s.Position = s.Position.Add(b.Velocity.Mul(fdt))

		if rate := b.AngularVelocity.Len(); rate > 0 {
			spin := mgl32.QuatRotate(rate*fdt, b.AngularVelocity.Mul(1/rate))
			s.Rotation = spin.Mul(s.Rotation).Normalize()
		}
	})
}
