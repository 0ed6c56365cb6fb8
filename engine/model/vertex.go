package model

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// VertexSize is the byte size of one Vertex in device memory.
const VertexSize = 64

// Vertex is the fixed mesh vertex layout shared by every mesh and shader.
// Size: 64 bytes, no padding.
type Vertex struct {
	Position    [3]float32 // offset  0
	Normal      [3]float32 // offset 12
	TexCoord    [2]float32 // offset 24
	BoneIndices [4]uint32  // offset 32
	BoneWeights [4]float32 // offset 48: sums to 1 for skinned vertices, all zero otherwise
}

// VertexAttribute describes one field of Vertex for building device vertex layouts.
type VertexAttribute struct {
	Name     string
	Offset   uint64
	Location uint32
	// Components is the number of 32-bit lanes.
	Components int
	// Integer reports whether the lanes are uint32 rather than float32.
	Integer bool
}

// VertexAttributes lists the Vertex fields in shader location order.
var VertexAttributes = []VertexAttribute{
	{Name: "position", Offset: 0, Location: 0, Components: 3},
	{Name: "normal", Offset: 12, Location: 1, Components: 3},
	{Name: "uv", Offset: 24, Location: 2, Components: 2},
	{Name: "bone_indices", Offset: 32, Location: 3, Components: 4, Integer: true},
	{Name: "bone_weights", Offset: 48, Location: 4, Components: 4},
}

// Size returns the size of the Vertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (v *Vertex) Size() int {
	return int(unsafe.Sizeof(*v))
}

// Marshal serializes the vertex into a 64-byte little-endian buffer suitable for upload.
//
// Returns:
//   - []byte: 64-byte buffer
func (v *Vertex) Marshal() []byte {
	buf := make([]byte, VertexSize)
	v.put(buf)
	return buf
}

func (v *Vertex) put(buf []byte) {
	le := binary.LittleEndian
	for i, f := range v.Position {
		le.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	for i, f := range v.Normal {
		le.PutUint32(buf[12+i*4:], math.Float32bits(f))
	}
	for i, f := range v.TexCoord {
		le.PutUint32(buf[24+i*4:], math.Float32bits(f))
	}
	for i, b := range v.BoneIndices {
		le.PutUint32(buf[32+i*4:], b)
	}
	for i, w := range v.BoneWeights {
		le.PutUint32(buf[48+i*4:], math.Float32bits(w))
	}
}

// MarshalVertices serializes a vertex slice into one contiguous buffer.
func MarshalVertices(vertices []Vertex) []byte {
	buf := make([]byte, len(vertices)*VertexSize)
	for i := range vertices {
		vertices[i].put(buf[i*VertexSize:])
	}
	return buf
}
