package spatial

import (
	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// Component positions an entity relative to its parent.
type Component struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Parent   ecs.Handle
}

// Table holds the spatial component of every entity.
type Table = ecs.Table[Component]

// NewTable creates an empty spatial table.
func NewTable() *Table {
	return ecs.NewTable[Component](64)
}

// NewComponent returns a component at pos with identity rotation and unit scale.
func NewComponent(pos mgl32.Vec3, parent ecs.Handle) Component {
	return Component{
		Position: pos,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Parent:   parent,
	}
}

// IsValid reports whether the component takes part in the hierarchy: it either has
// strictly positive scale on every axis or it is attached to a parent.
func (c *Component) IsValid() bool {
	if c == nil {
		return false
	}
	return common.HasPositiveScale(c.Scale) || c.Parent != ecs.None
}

// Dimensioned reports whether the component contributes its own transform when composed.
// Components without positive scale pass their parent's matrix through unchanged.
func (c *Component) Dimensioned() bool {
	return common.HasPositiveScale(c.Scale)
}

// Local returns translate(Position) * scale(Scale) * rotate(normalize(Rotation)).
func (c *Component) Local() mgl32.Mat4 {
	return common.ComposeTSR(c.Position, c.Rotation, c.Scale)
}
