package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

func ptr[T any](v T) *T {
	return &v
}

func assertMat4InDelta(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d: want %v got %v", i, want, got)
	}
}

func assertVec3InDelta(t *testing.T, want mgl32.Vec3, got [3]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "component %d: want %v got %v", i, want, got)
	}
}

// docBuilder assembles a glTF document and its single binary buffer for tests.
type docBuilder struct {
	doc gltfDocument
	bin []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: gltfDocument{Asset: gltfAsset{Version: "2.0"}}}
}

func (b *docBuilder) view(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	b.doc.BufferViews = append(b.doc.BufferViews, gltfBufferView{ByteOffset: len(b.bin), ByteLength: len(data)})
	b.bin = append(b.bin, data...)
	return len(b.doc.BufferViews) - 1
}

func (b *docBuilder) accessor(data []byte, componentType, count int, accType string) int {
	b.doc.Accessors = append(b.doc.Accessors, gltfAccessor{
		BufferView:    ptr(b.view(data)),
		ComponentType: componentType,
		Count:         count,
		Type:          accType,
	})
	return len(b.doc.Accessors) - 1
}

func (b *docBuilder) floats(accType string, v ...float32) int {
	data := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return b.accessor(data, gltfFloat, len(v)/gltfTypeComponents[accType], accType)
}

func (b *docBuilder) ushorts(accType string, v ...uint16) int {
	data := make([]byte, 2*len(v))
	for i, u := range v {
		binary.LittleEndian.PutUint16(data[i*2:], u)
	}
	return b.accessor(data, gltfUnsignedShort, len(v)/gltfTypeComponents[accType], accType)
}

// triangle adds a CCW triangle in the XY plane and returns its primitive.
func (b *docBuilder) triangle() gltfPrimitive {
	return gltfPrimitive{
		Attributes: map[string]int{"POSITION": b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)},
		Indices:    ptr(b.ushorts("SCALAR", 0, 1, 2)),
	}
}

func (b *docBuilder) json(t *testing.T) []byte {
	t.Helper()
	doc := b.doc
	doc.Buffers = []gltfBuffer{{
		URI:        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin),
		ByteLength: len(b.bin),
	}}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func (b *docBuilder) glb(t *testing.T) []byte {
	t.Helper()
	doc := b.doc
	doc.Buffers = []gltfBuffer{{ByteLength: len(b.bin)}}
	js, err := json.Marshal(doc)
	require.NoError(t, err)
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	bin := append([]byte(nil), b.bin...)
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	out := binary.LittleEndian.AppendUint32(nil, glbMagic)
	out = binary.LittleEndian.AppendUint32(out, glbVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(12+8+len(js)+8+len(bin)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(js)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkJSON)
	out = append(out, js...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(bin)))
	out = binary.LittleEndian.AppendUint32(out, glbChunkBIN)
	return append(out, bin...)
}

func staticTriangleDoc() *docBuilder {
	b := newDocBuilder()
	prim := b.triangle()
	prim.Material = ptr(0)
	b.doc.Meshes = []gltfMesh{{Name: "triangle", Primitives: []gltfPrimitive{prim}}}
	b.doc.Materials = []gltfMaterial{{
		Name:                 "red",
		PbrMetallicRoughness: &gltfPbrMetallicRoughness{BaseColorFactor: &[4]float32{1, 0, 0, 1}},
	}}
	b.doc.Nodes = []gltfNode{{Name: "tri", Mesh: ptr(0), Translation: &[3]float32{1, 2, 3}}}
	b.doc.Scenes = []gltfScene{{Nodes: []int{0}}}
	return b
}

func TestImportStaticTriangle(t *testing.T) {
	m, err := ImportBytes("tri", staticTriangleDoc().json(t), "")
	require.NoError(t, err)

	require.Len(t, m.Meshes, 1)
	mesh := m.Meshes[0]
	assert.Equal(t, "tri/triangle", mesh.Name)
	assert.Equal(t, "red", mesh.Material)
	assert.Equal(t, model.WindingCCW, mesh.Winding)
	assert.False(t, mesh.Skinned)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)

	require.Len(t, mesh.Vertices, 3)
	assertVec3InDelta(t, mgl32.Vec3{1, 2, 3}, mesh.Vertices[0].Position)
	assertVec3InDelta(t, mgl32.Vec3{2, 2, 3}, mesh.Vertices[1].Position)
	assertVec3InDelta(t, mgl32.Vec3{1, 3, 3}, mesh.Vertices[2].Position)
	for _, v := range mesh.Vertices {
		assertVec3InDelta(t, mgl32.Vec3{0, 0, 1}, v.Normal)
	}

	require.Len(t, m.Materials, 1)
	assert.Equal(t, common.ImportedMaterial{Name: "red", BaseColor: [4]float32{1, 0, 0, 1}}, m.Materials[0])
	assert.Empty(t, m.Skeleton)
	assert.Empty(t, m.Clips)
	assert.False(t, m.Skinned())
}

func TestImportGLBMatchesJSON(t *testing.T) {
	b := staticTriangleDoc()
	fromJSON, err := ImportBytes("tri", b.json(t), "")
	require.NoError(t, err)
	fromGLB, err := ImportBytes("tri", b.glb(t), "")
	require.NoError(t, err)

	require.Len(t, fromGLB.Meshes, 1)
	assert.Equal(t, fromJSON.Meshes[0].Vertices, fromGLB.Meshes[0].Vertices)
	assert.Equal(t, fromJSON.Meshes[0].Indices, fromGLB.Meshes[0].Indices)
	assert.Equal(t, fromJSON.Materials, fromGLB.Materials)
}

func TestImportMirroredNodeFlipsWinding(t *testing.T) {
	b := staticTriangleDoc()
	b.doc.Nodes[0].Translation = nil
	b.doc.Nodes[0].Scale = &[3]float32{-1, 1, 1}

	m, err := ImportBytes("mirror", b.json(t), "")
	require.NoError(t, err)
	require.Len(t, m.Meshes, 1)
	assert.Equal(t, model.WindingCW, m.Meshes[0].Winding)
	assertVec3InDelta(t, mgl32.Vec3{-1, 0, 0}, m.Meshes[0].Vertices[1].Position)
}

func TestImportPrimitiveWithoutMaterialUsesDefault(t *testing.T) {
	b := newDocBuilder()
	b.doc.Meshes = []gltfMesh{{Primitives: []gltfPrimitive{b.triangle(), b.triangle()}}}
	b.doc.Nodes = []gltfNode{{Mesh: ptr(0)}}

	m, err := ImportBytes("plain", b.json(t), "")
	require.NoError(t, err)
	require.Len(t, m.Meshes, 2)
	assert.Equal(t, "plain/mesh_0_0", m.Meshes[0].Name)
	assert.Equal(t, "plain/mesh_0_1", m.Meshes[1].Name)
	for _, mesh := range m.Meshes {
		assert.Equal(t, DefaultMaterialName, mesh.Material)
	}
	require.Len(t, m.Materials, 1)
	assert.Equal(t, DefaultMaterialName, m.Materials[0].Name)
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.Materials[0].BaseColor)
}

// skinnedDoc has a two-joint skin listed child first, a skinned triangle and one clip that
// starts at t=1.
func skinnedDoc() *docBuilder {
	b := newDocBuilder()
	prim := b.triangle()
	prim.Attributes["JOINTS_0"] = b.ushorts("VEC4",
		0, 0, 0, 0,
		0, 1, 0, 0,
		1, 0, 0, 0,
	)
	prim.Attributes["WEIGHTS_0"] = b.floats("VEC4",
		2, 0, 0, 0,
		0.5, 0.5, 0, 0,
		1, 0, 0, 0,
	)
	b.doc.Meshes = []gltfMesh{{Name: "body", Primitives: []gltfPrimitive{prim}}}

	spineIBM := mgl32.Translate3D(0, -2, 0)
	hipIBM := mgl32.Translate3D(0, -1, 0)
	b.doc.Skins = []gltfSkin{{
		Joints:              []int{2, 1},
		InverseBindMatrices: ptr(b.floats("MAT4", append(spineIBM[:], hipIBM[:]...)...)),
	}}
	b.doc.Nodes = []gltfNode{
		{Name: "body", Mesh: ptr(0), Skin: ptr(0), Translation: &[3]float32{5, 0, 0}},
		{Name: "hip", Children: []int{2}, Translation: &[3]float32{0, 1, 0}},
		{Name: "spine", Translation: &[3]float32{0, 1, 0}},
	}
	b.doc.Scenes = []gltfScene{{Nodes: []int{0, 1}}}

	s := float32(math.Sqrt2 / 2)
	rotation := gltfAnimSampler{
		Input:  b.floats("SCALAR", 1, 2),
		Output: b.floats("VEC4", 0, 0, 0, 1, 0, 0, s, s),
	}
	translation := gltfAnimSampler{
		Input:  b.floats("SCALAR", 1, 1.5, 2),
		Output: b.floats("VEC3", 0, 1, 0, 0, 2, 0, 0, 1, 0),
	}
	var spineRot, hipMove gltfAnimChannel
	spineRot.Sampler = 0
	spineRot.Target.Node = ptr(2)
	spineRot.Target.Path = gltfPathRotation
	hipMove.Sampler = 1
	hipMove.Target.Node = ptr(1)
	hipMove.Target.Path = gltfPathTranslation
	b.doc.Animations = []gltfAnimation{{
		Name:     "bend",
		Samplers: []gltfAnimSampler{rotation, translation},
		Channels: []gltfAnimChannel{spineRot, hipMove},
	}}
	return b
}

func TestImportSkeletonIsParentFirst(t *testing.T) {
	m, err := ImportBytes("rig", skinnedDoc().json(t), "")
	require.NoError(t, err)

	require.Len(t, m.Skeleton, 2)
	assert.Equal(t, "hip", m.Skeleton[0].Name)
	assert.Equal(t, animator.NoParent, m.Skeleton[0].ParentIndex)
	assert.Equal(t, "spine", m.Skeleton[1].Name)
	assert.Equal(t, 0, m.Skeleton[1].ParentIndex)
	assertMat4InDelta(t, mgl32.Translate3D(0, -1, 0), m.Skeleton[0].BindOffset)
	assertMat4InDelta(t, mgl32.Translate3D(0, -2, 0), m.Skeleton[1].BindOffset)
}

func TestImportSkinnedVerticesStayInBindSpace(t *testing.T) {
	m, err := ImportBytes("rig", skinnedDoc().json(t), "")
	require.NoError(t, err)

	require.Len(t, m.Meshes, 1)
	mesh := m.Meshes[0]
	assert.True(t, mesh.Skinned)
	assertVec3InDelta(t, mgl32.Vec3{1, 0, 0}, mesh.Vertices[1].Position)

	// Joint 0 of the skin is the spine, which sorts to bone 1.
	assert.Equal(t, [4]uint32{1, 0, 0, 0}, mesh.Vertices[0].BoneIndices)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, mesh.Vertices[0].BoneWeights)
	assert.Equal(t, [4]uint32{1, 0, 0, 0}, mesh.Vertices[1].BoneIndices)
	assert.Equal(t, [4]float32{0.5, 0.5, 0, 0}, mesh.Vertices[1].BoneWeights)
	assert.Equal(t, [4]uint32{0, 0, 0, 0}, mesh.Vertices[2].BoneIndices)
}

func TestImportClipShiftsAndFillsRestPose(t *testing.T) {
	m, err := ImportBytes("rig", skinnedDoc().json(t), "")
	require.NoError(t, err)

	require.Len(t, m.Clips, 1)
	clip := m.Clips[0]
	assert.Equal(t, "bend", clip.Name)
	assert.InDelta(t, 1.0, clip.Duration, tol)
	require.Len(t, clip.Channels, 2)

	hip := clip.Channels[0]
	n, err := hip.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.InDelta(t, 0.0, hip.PositionKeys[0].Time, tol)
	assert.InDelta(t, 0.5, hip.PositionKeys[1].Time, tol)
	assert.InDelta(t, 1.0, hip.PositionKeys[2].Time, tol)
	assertVec3InDelta(t, mgl32.Vec3{0, 2, 0}, hip.PositionKeys[1].Value)
	assert.Equal(t, mgl32.QuatIdent(), hip.RotationKeys[1].Value)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, hip.ScaleKeys[1].Value)

	spine := clip.Channels[1]
	n, err = spine.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
	for k := range n {
		assert.InDelta(t, hip.PositionKeys[k].Time, spine.PositionKeys[k].Time, tol)
		assertVec3InDelta(t, mgl32.Vec3{0, 1, 0}, spine.PositionKeys[k].Value)
	}
	half := mgl32.QuatRotate(math.Pi/4, mgl32.Vec3{0, 0, 1})
	assert.InDelta(t, 1.0, math.Abs(float64(half.Dot(spine.RotationKeys[1].Value))), tol)
	want := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	assert.InDelta(t, 1.0, math.Abs(float64(want.Dot(spine.RotationKeys[2].Value))), tol)
}

func TestImportedRigAttachesToAnimator(t *testing.T) {
	m, err := ImportBytes("rig", skinnedDoc().json(t), "")
	require.NoError(t, err)
	require.True(t, m.Skinned())

	a := animator.NewAnimator()
	c, err := a.Attach(1, m.Skeleton, m.Clips)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Bones[0].NKeyframes)
	assert.Equal(t, 3, c.Bones[1].NKeyframes)

	require.NoError(t, a.Update(0.25))
	for _, bm := range c.BoneMatrices {
		assert.True(t, common.Mat4IsFinite(bm))
	}
}

func TestImportedRigChildFollowsParentBetweenKeys(t *testing.T) {
	m, err := ImportBytes("rig", skinnedDoc().json(t), "")
	require.NoError(t, err)

	a := animator.NewAnimator()
	c, err := a.Attach(1, m.Skeleton, m.Clips)
	require.NoError(t, err)

	for _, at := range []float64{0.25, 0.75, 0.999} {
		require.NoError(t, a.Update(at))
		hip := c.BoneMatrices[0].Col(3)
		spine := c.BoneMatrices[1].Col(3)
		assert.InDelta(t, hip.Y()+1, spine.Y(), tol, "t=%v", at)
		assert.InDelta(t, hip.X(), spine.X(), tol, "t=%v", at)
	}

	require.NoError(t, a.Update(0.75))
	assert.InDelta(t, 1.5, c.BoneMatrices[0].Col(3).Y(), tol)
	assert.InDelta(t, 2.5, c.BoneMatrices[1].Col(3).Y(), tol)
}

func TestImportErrors(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		b := staticTriangleDoc()
		b.doc.Asset.Version = "1.0"
		_, err := ImportBytes("old", b.json(t), "")
		assert.ErrorIs(t, err, ErrUnsupportedGLTF)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ImportBytes("bad", []byte("{"), "")
		assert.ErrorIs(t, err, ErrInvalidGLTF)
	})
	t.Run("index out of range", func(t *testing.T) {
		b := staticTriangleDoc()
		b.doc.Meshes[0].Primitives[0].Indices = ptr(b.ushorts("SCALAR", 0, 1, 5))
		_, err := ImportBytes("oob", b.json(t), "")
		assert.ErrorIs(t, err, ErrInvalidGLTF)
	})
	t.Run("lines", func(t *testing.T) {
		b := staticTriangleDoc()
		b.doc.Meshes[0].Primitives[0].Mode = ptr(1)
		_, err := ImportBytes("lines", b.json(t), "")
		assert.ErrorIs(t, err, ErrUnsupportedGLTF)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := NewGLTFImporter().Import("does/not/exist.gltf")
		assert.Error(t, err)
	})
}

func TestTrackSample(t *testing.T) {
	tr := &track{times: []float32{0, 1, 2}, values: []float32{0, 0, 0, 10, 0, 0, 10, 20, 0}, n: 3}
	assert.Equal(t, []float32{5, 0, 0}, tr.sample(0.5))
	assert.Equal(t, []float32{0, 0, 0}, tr.sample(-1))
	assert.Equal(t, []float32{10, 20, 0}, tr.sample(5))
	assert.Equal(t, []float32{10, 0, 0}, tr.sample(1))

	tr.step = true
	assert.Equal(t, []float32{10, 0, 0}, tr.sample(1.5))
}

func TestDecomposeRoundTrip(t *testing.T) {
	m := common.ComposeTRS(mgl32.Vec3{1, 2, 3}, mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0}), mgl32.Vec3{2, 2, 2})
	pose := decompose(m)
	assertVec3InDelta(t, mgl32.Vec3{1, 2, 3}, pose.T)
	assertVec3InDelta(t, mgl32.Vec3{2, 2, 2}, pose.S)
	assertMat4InDelta(t, m, pose.Matrix())
}
