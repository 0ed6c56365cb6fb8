package model

import (
	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
)

// ImportedModel is what a model importer produces: meshes in the fixed vertex layout, an
// optional skeleton and its animation clips, and the materials the meshes reference.
type ImportedModel struct {
	// Name is the model identifier, usually the file name.
	Name string

	// Meshes are the model's primitives, one drawable entity each when spawned.
	Meshes []*Mesh

	// Skeleton lists the bones parent-first; empty for static models.
	Skeleton []animator.Bone

	// Clips holds one entry per animation, with one channel per skeleton bone.
	Clips []animator.Clip

	// Materials are the material properties declared by the file.
	Materials []common.ImportedMaterial
}

// Skinned reports whether the model has both a skeleton and at least one clip.
func (m *ImportedModel) Skinned() bool {
	return len(m.Skeleton) > 0 && len(m.Clips) > 0
}

// ClipIndex returns the index of the clip called name, or -1 if not found.
func (m *ImportedModel) ClipIndex(name string) int {
	for i := range m.Clips {
		if m.Clips[i].Name == name {
			return i
		}
	}
	return -1
}

// PlayFirst reorders the clips so that the clip called name is played, since only the first
// animation of a component runs. It reports whether the clip was found.
func (m *ImportedModel) PlayFirst(name string) bool {
	i := m.ClipIndex(name)
	if i < 0 {
		return false
	}
	m.Clips[0], m.Clips[i] = m.Clips[i], m.Clips[0]
	return true
}
