package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"

	"github.com/go-gl/mathgl/mgl32"
)

// extractPrimitive converts one triangle primitive into a mesh in the fixed vertex layout.
// When bake is set, positions and normals are transformed by world; skinned primitives are
// left in bind space. jointToBone remaps JOINTS_0 to sorted bone indices.
func (p *gltfParser) extractPrimitive(name string, prim *gltfPrimitive, world mgl32.Mat4, bake bool, jointToBone []int) (*model.Mesh, error) {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return nil, fmt.Errorf("%w: %s primitive mode %d", ErrUnsupportedGLTF, name, *prim.Mode)
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no POSITION", ErrInvalidGLTF, name)
	}
	positions, err := p.readFloats(posIndex, "VEC3")
	if err != nil {
		return nil, fmt.Errorf("%s positions: %w", name, err)
	}
	vertices := make([]model.Vertex, len(positions)/3)
	for i := range vertices {
		copy(vertices[i].Position[:], positions[i*3:])
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = p.readUints(*prim.Indices, "SCALAR")
		if err != nil {
			return nil, fmt.Errorf("%s indices: %w", name, err)
		}
		for _, idx := range indices {
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("%w: %s index %d exceeds %d vertices", ErrInvalidGLTF, name, idx, len(vertices))
			}
		}
	}

	if a, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := p.readFloats(a, "VEC3")
		if err != nil {
			return nil, fmt.Errorf("%s normals: %w", name, err)
		}
		for i := range min(len(vertices), len(normals)/3) {
			copy(vertices[i].Normal[:], normals[i*3:])
		}
	} else {
		generateNormals(vertices, indices)
	}

	if a, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := p.readFloats(a, "VEC2")
		if err != nil {
			return nil, fmt.Errorf("%s uvs: %w", name, err)
		}
		for i := range min(len(vertices), len(uvs)/2) {
			copy(vertices[i].TexCoord[:], uvs[i*2:])
		}
	}

	if err := p.readSkinning(name, prim, vertices, jointToBone); err != nil {
		return nil, err
	}

	winding := model.WindingCCW
	if bake {
		normalMatrix, err := common.NormalMatrix(world)
		if err != nil {
			return nil, fmt.Errorf("%s node transform: %w", name, err)
		}
		for i := range vertices {
			v := &vertices[i]
			v.Position = world.Mul4x1(mgl32.Vec3(v.Position).Vec4(1)).Vec3()
			if n := normalMatrix.Mul3x1(mgl32.Vec3(v.Normal)); n.Len() > 0 {
				v.Normal = n.Normalize()
			}
		}
		// A mirroring transform flips the triangle order.
		if world.Det() < 0 {
			winding = model.WindingCW
		}
	}

	return model.NewMesh(name,
		model.WithVertices(vertices),
		model.WithIndices(indices),
		model.WithWinding(winding),
	), nil
}

// readSkinning fills bone indices and weights. Weights are normalised to sum to one.
func (p *gltfParser) readSkinning(name string, prim *gltfPrimitive, vertices []model.Vertex, jointToBone []int) error {
	ja, hasJoints := prim.Attributes["JOINTS_0"]
	wa, hasWeights := prim.Attributes["WEIGHTS_0"]
	if !hasJoints || !hasWeights || jointToBone == nil {
		return nil
	}
	joints, err := p.readUints(ja, "VEC4")
	if err != nil {
		return fmt.Errorf("%s joints: %w", name, err)
	}
	weights, err := p.readFloats(wa, "VEC4")
	if err != nil {
		return fmt.Errorf("%s weights: %w", name, err)
	}
	for i := range min(len(vertices), len(joints)/4, len(weights)/4) {
		v := &vertices[i]
		var sum float32
		for k := range 4 {
			j := int(joints[i*4+k])
			w := weights[i*4+k]
			if w == 0 {
				continue
			}
			if j >= len(jointToBone) {
				return fmt.Errorf("%w: %s vertex %d joint %d out of range", ErrInvalidGLTF, name, i, j)
			}
			v.BoneIndices[k] = uint32(jointToBone[j])
			v.BoneWeights[k] = w
			sum += w
		}
		if sum > 0 {
			for k := range 4 {
				v.BoneWeights[k] /= sum
			}
		}
	}
	return nil
}

// generateNormals writes smooth normals, the normalised sum of the area-weighted face
// normals around each vertex. Unindexed vertices are read three at a time.
func generateNormals(vertices []model.Vertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	tri := func(i0, i1, i2 int) {
		p0 := mgl32.Vec3(vertices[i0].Position)
		face := mgl32.Vec3(vertices[i1].Position).Sub(p0).Cross(mgl32.Vec3(vertices[i2].Position).Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	if len(indices) > 0 {
		for i := 0; i+2 < len(indices); i += 3 {
			tri(int(indices[i]), int(indices[i+1]), int(indices[i+2]))
		}
	} else {
		for i := 0; i+2 < len(vertices); i += 3 {
			tri(i, i+1, i+2)
		}
	}
	for i := range vertices {
		if accum[i].Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = accum[i].Normalize()
	}
}
