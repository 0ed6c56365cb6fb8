package common

import (
	"errors"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrSingularMatrix is returned when a matrix that must be inverted has a zero determinant.
var ErrSingularMatrix = errors.New("matrix is not invertible")

// UniformScaleEpsilon is the tolerance used when deciding whether the basis vectors of a
// transform all have the same length.
const UniformScaleEpsilon = 1e-5

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// HasPositiveScale reports whether every component of the scale vector is strictly positive.
//
// Parameters:
//   - s: the scale vector
//
// Returns:
//   - bool: true if x, y and z are all > 0
func HasPositiveScale(s mgl32.Vec3) bool {
	return s[0] > 0 && s[1] > 0 && s[2] > 0
}

// ComposeTSR builds translate(pos) * scale(s) * rotate(normalize(rot)).
// Rotation is applied innermost, then scale, then translation. This is the order used
// for spatial (scene graph) components.
//
// Parameters:
//   - pos: translation
//   - rot: rotation quaternion, normalized before use
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the composed local matrix
func ComposeTSR(pos mgl32.Vec3, rot mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(pos[0], pos[1], pos[2])
	sc := mgl32.Scale3D(s[0], s[1], s[2])
	return t.Mul4(sc).Mul4(rot.Normalize().Mat4())
}

// ComposeTRS builds translate(pos) * rotate(normalize(rot)) * scale(s).
// This is the order used for bone keyframes.
//
// Parameters:
//   - pos: translation
//   - rot: rotation quaternion, normalized before use
//   - s: per-axis scale
//
// Returns:
//   - mgl32.Mat4: the composed local matrix
func ComposeTRS(pos mgl32.Vec3, rot mgl32.Quat, s mgl32.Vec3) mgl32.Mat4 {
	t := mgl32.Translate3D(pos[0], pos[1], pos[2])
	sc := mgl32.Scale3D(s[0], s[1], s[2])
	return t.Mul4(rot.Normalize().Mat4()).Mul4(sc)
}

// LerpMat4 blends two matrices element by element: a*(1-f) + b*f.
//
// The result is not a valid rigid transform when a and b contain different rotations;
// callers that interpolate bone poses with it accept that distortion.
//
// Parameters:
//   - a: the matrix at f = 0
//   - b: the matrix at f = 1
//   - f: the blend factor
//
// Returns:
//   - mgl32.Mat4: the blended matrix
func LerpMat4(a, b mgl32.Mat4, f float32) mgl32.Mat4 {
	var out mgl32.Mat4
	inv := 1 - f
	for i := range out {
		out[i] = a[i]*inv + b[i]*f
	}
	return out
}

// IsUniformScale reports whether the upper 3x3 of m is a rotation times a single scale factor:
// its columns are mutually orthogonal and of equal length, so m3ᵀ·m3 is k·I within
// UniformScaleEpsilon (relative to the largest diagonal entry).
func IsUniformScale(m mgl32.Mat4) bool {
	m3 := m.Mat3()
	g := m3.Transpose().Mul3(m3)
	largest := max(g.At(0, 0), g.At(1, 1), g.At(2, 2))
	if largest == 0 {
		return true
	}
	eps := UniformScaleEpsilon * largest
	for i := range 3 {
		for j := range 3 {
			want := float32(0)
			if i == j {
				want = largest
			}
			if mgl32.Abs(g.At(i, j)-want) > eps {
				return false
			}
		}
	}
	return true
}

// NormalMatrix derives the matrix used to transform surface normals for a model matrix.
// When the model matrix scales uniformly the upper 3x3 is returned unchanged; otherwise
// the inverse transpose of the upper 3x3 is computed.
//
// Parameters:
//   - model: the world matrix of the drawn entity
//
// Returns:
//   - mgl32.Mat3: the normal matrix
//   - error: ErrSingularMatrix if the non-uniform path meets a zero determinant
func NormalMatrix(model mgl32.Mat4) (mgl32.Mat3, error) {
	m3 := model.Mat3()
	if IsUniformScale(model) {
		return m3, nil
	}
	if m3.Det() == 0 {
		return mgl32.Mat3{}, ErrSingularMatrix
	}
	return m3.Inv().Transpose(), nil
}

// Mat4IsFinite reports whether no element of m is NaN or infinite.
func Mat4IsFinite(m mgl32.Mat4) bool {
	for _, v := range m {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
