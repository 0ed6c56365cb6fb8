package light

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// Type identifies the kind of light source.
type Type uint32

const (
	// TypeDirectional has no position, only direction. Used for distant sources like the sun.
	TypeDirectional Type = iota

	// TypePoint emits in all directions from the entity's world position, up to Range.
	TypePoint

	// TypeSpot emits in a cone along Direction, attenuated by distance and cone angle.
	TypeSpot
)

func (t Type) String() string {
	switch t {
	case TypeDirectional:
		return "directional"
	case TypePoint:
		return "point"
	case TypeSpot:
		return "spot"
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// ParseType converts a scene file light type name into a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "directional", "sun":
		return TypeDirectional, nil
	case "point":
		return TypePoint, nil
	case "spot":
		return TypeSpot, nil
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

// Component is a light source attached to an entity. The light's position is the entity's
// world position; Direction is given in the entity's local space.
type Component struct {
	Type      Type
	Color     mgl32.Vec3
	Intensity float32

	// Range is the attenuation cutoff for point and spot lights.
	Range float32

	// InnerCone and OuterCone hold cos(half-angle) for spot lights.
	InnerCone, OuterCone float32

	Direction    mgl32.Vec3
	Enabled      bool
	CastsShadows bool
}

// Table holds the light component of every entity.
type Table = ecs.Table[Component]

// NewTable creates an empty light table.
func NewTable() *Table {
	return ecs.NewTable[Component](8)
}

// IsValid reports whether the light contributes anything: enabled, with positive intensity,
// and with a direction when its type needs one.
func (c *Component) IsValid() bool {
	if c == nil || !c.Enabled || c.Intensity <= 0 {
		return false
	}
	if c.Type != TypePoint && c.Direction.Len() == 0 {
		return false
	}
	return true
}
