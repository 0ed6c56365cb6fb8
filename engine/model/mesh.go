package model

import (
	"github.com/Carmen-Shannon/oxy-ecs/common"

	"github.com/go-gl/mathgl/mgl32"
)

// Winding is the front-face vertex order of a mesh's triangles.
type Winding uint8

const (
	WindingCCW Winding = iota
	WindingCW
)

// Mesh is geometry in the fixed Vertex layout plus the device buffers it was uploaded to.
// A mesh is drawable only after a device has uploaded it.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Winding  Winding

	// Material is looked up by name in the material library at draw time.
	Material string

	// Skinned is set when any vertex carries bone weights.
	Skinned bool

	BoundingMin, BoundingMax mgl32.Vec3

	vertexBuffer, indexBuffer uint32
	uploaded                  bool
}

// Indexed reports whether the mesh is drawn with an index buffer.
func (m *Mesh) Indexed() bool {
	return len(m.Indices) > 0
}

// ElementCount returns the number of indices for indexed meshes, otherwise the vertex count.
func (m *Mesh) ElementCount() int {
	if m.Indexed() {
		return len(m.Indices)
	}
	return len(m.Vertices)
}

// VertexData returns the vertices serialized for upload.
func (m *Mesh) VertexData() []byte {
	return MarshalVertices(m.Vertices)
}

// IndexData returns a byte view of the indices for upload. The view shares memory with Indices.
func (m *Mesh) IndexData() []byte {
	return common.SliceToBytes(m.Indices)
}

// Uploaded reports whether a device holds this mesh's buffers.
func (m *Mesh) Uploaded() bool {
	return m != nil && m.uploaded
}

// MarkUploaded records the device buffer ids returned by an upload.
// indexBuffer is zero for non-indexed meshes.
func (m *Mesh) MarkUploaded(vertexBuffer, indexBuffer uint32) {
	m.vertexBuffer = vertexBuffer
	m.indexBuffer = indexBuffer
	m.uploaded = true
}

// MarkReleased forgets the device buffers; the mesh stops being drawable.
func (m *Mesh) MarkReleased() {
	m.vertexBuffer, m.indexBuffer = 0, 0
	m.uploaded = false
}

// Buffers returns the device buffer ids set by MarkUploaded.
func (m *Mesh) Buffers() (vertexBuffer, indexBuffer uint32) {
	return m.vertexBuffer, m.indexBuffer
}

// ComputeBounds recalculates BoundingMin and BoundingMax and the Skinned flag from the vertices.
func (m *Mesh) ComputeBounds() {
	m.Skinned = false
	if len(m.Vertices) == 0 {
		m.BoundingMin, m.BoundingMax = mgl32.Vec3{}, mgl32.Vec3{}
		return
	}
	lo := mgl32.Vec3(m.Vertices[0].Position)
	hi := lo
	for i := range m.Vertices {
		p := m.Vertices[i].Position
		for a := range 3 {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
		w := m.Vertices[i].BoneWeights
		if w[0]+w[1]+w[2]+w[3] > 0 {
			m.Skinned = true
		}
	}
	m.BoundingMin, m.BoundingMax = lo, hi
}
