package animator

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// NoParent marks a root bone.
const NoParent = -1

// Bone is one joint of an animated skeleton.
type Bone struct {
	Name        string
	ParentIndex int

	// NKeyframes is the number of samples this bone has in the played animation.
	NKeyframes int

	// LastKeyframeIndex is the bracket found by the previous search; the next search starts here.
	LastKeyframeIndex int

	// BindOffset takes a vertex from model space into this bone's bind space.
	BindOffset mgl32.Mat4
}

// Animation references the pool set that holds one clip's matrices for one entity.
type Animation struct {
	Name               string
	Duration           float64
	BoneMatrixSetIndex int
}

// Component is the per-entity animation state.
// Only Animations[0] is played; further entries are carried but never blended.
type Component struct {
	Bones []Bone

	// BoneMatrices is this frame's output, one per bone.
	BoneMatrices []mgl32.Mat4

	Animations []Animation
}

// Table holds the animation component of every entity.
type Table = ecs.Table[Component]

// NewTable creates an empty animation table.
func NewTable() *Table {
	return ecs.NewTable[Component](16)
}

// IsValid reports whether the component has both bones and at least one animation.
func (c *Component) IsValid() bool {
	return c != nil && len(c.Bones) > 0 && len(c.Animations) > 0
}

// SkinningMatrices writes BoneMatrices[b] * Bones[b].BindOffset into dst and returns it.
// dst is reused when it has enough capacity.
func (c *Component) SkinningMatrices(dst []mgl32.Mat4) []mgl32.Mat4 {
	dst = dst[:0]
	for i := range c.Bones {
		m := mgl32.Ident4()
		if i < len(c.BoneMatrices) {
			m = c.BoneMatrices[i]
		}
		dst = append(dst, m.Mul4(c.Bones[i].BindOffset))
	}
	return dst
}
