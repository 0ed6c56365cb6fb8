package light

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the number of lights a lighting pass evaluates. Lights beyond it are dropped
// in handle order.
const MaxLights = 16

// Vec4sPerLight is the number of vec4 slots one packed light occupies.
const Vec4sPerLight = 4

// Block is the light data pushed to shaders that declare the "lights" and "light_count"
// uniforms. Each light is packed as four vec4:
//
//	[0] world position xyz, type
//	[1] color rgb, intensity
//	[2] world direction xyz, range
//	[3] cos inner cone, cos outer cone, casts shadows (0 or 1), 0
type Block struct {
	Count int
	Data  []mgl32.Vec4
}

// Collect packs every valid light in the table, in handle order, using the compose context
// to place lights in world space.
//
// Parameters:
//   - table: the light table
//   - compose: the spatial composition context for this frame
//
// Returns:
//   - Block: the packed lights, at most MaxLights
//   - error: a composition error such as spatial.ErrParentChainTooDeep
func Collect(table *Table, compose *spatial.ComposeContext) (Block, error) {
	var (
		b   = Block{Data: make([]mgl32.Vec4, 0, MaxLights*Vec4sPerLight)}
		err error
	)
	table.Each(func(h ecs.Handle, c *Component) {
		if err != nil || b.Count >= MaxLights || !c.IsValid() {
			return
		}
		world, e := compose.ModelMatrix(h)
		if e != nil {
			err = fmt.Errorf("light %d: %w", h, e)
			return
		}
		b.Data = append(b.Data, pack(c, world)...)
		b.Count++
	})
	if err != nil {
		return Block{}, err
	}
	return b, nil
}

// WorldDirection rotates the light's local direction by the upper 3x3 of world and normalizes it.
func WorldDirection(c *Component, world mgl32.Mat4) mgl32.Vec3 {
	return normalize(world.Mat3().Mul3x1(c.Direction))
}

func pack(c *Component, world mgl32.Mat4) []mgl32.Vec4 {
	pos := world.Col(3).Vec3()
	dir := WorldDirection(c, world)
	shadows := float32(0)
	if c.CastsShadows {
		shadows = 1
	}
	return []mgl32.Vec4{
		pos.Vec4(float32(c.Type)),
		c.Color.Vec4(c.Intensity),
		dir.Vec4(c.Range),
		{c.InnerCone, c.OuterCone, shadows, 0},
	}
}
