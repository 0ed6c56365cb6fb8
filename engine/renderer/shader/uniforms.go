package shader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrUniformNotFound is returned when a shader has no active uniform with the given name.
	ErrUniformNotFound = errors.New("shader: uniform not active")

	// ErrUniformType is returned when a value does not match the declared uniform type.
	ErrUniformType = errors.New("shader: uniform type mismatch")

	// ErrUniformOverflow is returned when an array value is longer than the declared array.
	// The leading elements that fit are still written.
	ErrUniformOverflow = errors.New("shader: uniform array overflow")
)

// UniformType is the kind of value a uniform field holds.
type UniformType int

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformUint
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat3
	UniformMat4
	UniformMat4Array
	UniformVec4Array
)

func (t UniformType) String() string {
	switch t {
	case UniformFloat:
		return "f32"
	case UniformInt:
		return "i32"
	case UniformUint:
		return "u32"
	case UniformVec2:
		return "vec2<f32>"
	case UniformVec3:
		return "vec3<f32>"
	case UniformVec4:
		return "vec4<f32>"
	case UniformMat3:
		return "mat3x3<f32>"
	case UniformMat4:
		return "mat4x4<f32>"
	case UniformMat4Array:
		return "array<mat4x4<f32>>"
	case UniformVec4Array:
		return "array<vec4<f32>>"
	}
	return fmt.Sprintf("UniformType(%d)", int(t))
}

// Uniform is one field of a shader's uniform block.
type Uniform struct {
	Name   string
	Type   UniformType
	Offset uint64
	Size   uint64
	// Count is the array length, 1 for non-array fields.
	Count int
}

// UniformLayout is the byte layout of the uniform block at @group(0) @binding(0).
type UniformLayout struct {
	// Var is the WGSL variable name of the block, Struct its type name.
	Var, Struct string
	Fields      []Uniform
	// Size is the block size rounded up to 16 bytes.
	Size uint64
}

// Field returns the uniform called name.
func (l *UniformLayout) Field(name string) (Uniform, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Uniform{}, false
}

// TextureSlot is a texture or sampler binding in the texture group.
type TextureSlot struct {
	Name    string
	Binding uint32
	Sampler bool
}

func putFloats(dst []byte, fs ...float32) {
	for i, f := range fs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

func getFloats(src []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return out
}

// putMat3 writes a mat3x3 as three vec4-padded columns.
func putMat3(dst []byte, m mgl32.Mat3) {
	for c := range 3 {
		putFloats(dst[c*16:], m[c*3], m[c*3+1], m[c*3+2])
	}
}

func getMat3(src []byte) mgl32.Mat3 {
	var m mgl32.Mat3
	for c := range 3 {
		copy(m[c*3:c*3+3], getFloats(src[c*16:], 3))
	}
	return m
}

// ReadMat4 decodes the mat4x4 stored for field in a uniform block snapshot.
func ReadMat4(block []byte, f Uniform) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], getFloats(block[f.Offset:], 16))
	return m
}

// ReadMat3 decodes the mat3x3 stored for field in a uniform block snapshot.
func ReadMat3(block []byte, f Uniform) mgl32.Mat3 {
	return getMat3(block[f.Offset:])
}

// ReadVec4 decodes the vec4 stored for field in a uniform block snapshot.
func ReadVec4(block []byte, f Uniform) mgl32.Vec4 {
	var v mgl32.Vec4
	copy(v[:], getFloats(block[f.Offset:], 4))
	return v
}

// ReadUint decodes the u32 or i32 stored for field in a uniform block snapshot.
func ReadUint(block []byte, f Uniform) uint32 {
	return binary.LittleEndian.Uint32(block[f.Offset:])
}

// ReadMat4Element decodes element i of a mat4x4 array field.
func ReadMat4Element(block []byte, f Uniform, i int) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], getFloats(block[f.Offset+uint64(i)*64:], 16))
	return m
}

func putUint(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}
