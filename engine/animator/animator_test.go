package animator

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

func assertMat4InDelta(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d: want %v got %v", i, want, got)
	}
}

// translationChannel builds a channel that only moves, with identity rotation and unit scale.
func translationChannel(times []float64, positions []mgl32.Vec3) SourceChannel {
	var ch SourceChannel
	for i, tm := range times {
		ch.PositionKeys = append(ch.PositionKeys, VectorKey{Time: tm, Value: positions[i]})
		ch.RotationKeys = append(ch.RotationKeys, QuatKey{Time: tm, Value: mgl32.QuatIdent()})
		ch.ScaleKeys = append(ch.ScaleKeys, VectorKey{Time: tm, Value: mgl32.Vec3{1, 1, 1}})
	}
	return ch
}

func rootBones(n int) []Bone {
	bones := make([]Bone, n)
	for i := range bones {
		bones[i] = Bone{ParentIndex: NoParent, BindOffset: mgl32.Ident4()}
	}
	return bones
}

func TestZeroAndSingleKeyframeBones(t *testing.T) {
	a := NewAnimator()
	clip := Clip{
		Name:     "idle",
		Duration: 2,
		Channels: []SourceChannel{
			{},
			translationChannel([]float64{0}, []mgl32.Vec3{{1, 2, 3}}),
		},
	}
	c, err := a.Attach(1, rootBones(2), []Clip{clip})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Bones[0].NKeyframes)
	assert.Equal(t, 1, c.Bones[1].NKeyframes)

	require.NoError(t, a.Update(0.7))
	assert.Equal(t, mgl32.Ident4(), c.BoneMatrices[0])
	assertMat4InDelta(t, mgl32.Translate3D(1, 2, 3), c.BoneMatrices[1])
}

func TestInterpolationMidpointAndBoundaries(t *testing.T) {
	a := NewAnimator()
	clip := Clip{
		Duration: 10,
		Channels: []SourceChannel{
			translationChannel([]float64{0, 10}, []mgl32.Vec3{{0, 0, 0}, {10, 0, 0}}),
		},
	}
	c, err := a.Attach(1, rootBones(1), []Clip{clip})
	require.NoError(t, err)

	require.NoError(t, a.Update(5))
	assertMat4InDelta(t, mgl32.Translate3D(5, 0, 0), c.BoneMatrices[0])

	require.NoError(t, a.Update(1e-4))
	assertMat4InDelta(t, mgl32.Translate3D(1e-3, 0, 0), c.BoneMatrices[0])

	require.NoError(t, a.Update(10-1e-4))
	assertMat4InDelta(t, mgl32.Translate3D(10-1e-3, 0, 0), c.BoneMatrices[0])

	// Exact keyframe hit, including t = 0.
	require.NoError(t, a.Update(0))
	assertMat4InDelta(t, mgl32.Ident4(), c.BoneMatrices[0])
}

func TestInterpolationIsElementwise(t *testing.T) {
	rot := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	ch := SourceChannel{
		PositionKeys: []VectorKey{{Time: 0}, {Time: 10, Value: mgl32.Vec3{4, 0, 0}}},
		RotationKeys: []QuatKey{{Time: 0, Value: rot}, {Time: 10, Value: mgl32.QuatIdent()}},
		ScaleKeys:    []VectorKey{{Time: 0, Value: mgl32.Vec3{1, 1, 1}}, {Time: 10, Value: mgl32.Vec3{1, 1, 1}}},
	}
	a := NewAnimator()
	c, err := a.Attach(1, rootBones(1), []Clip{{Duration: 10, Channels: []SourceChannel{ch}}})
	require.NoError(t, err)

	require.NoError(t, a.Update(5))
	ma := rot.Mat4()
	mb := mgl32.Translate3D(4, 0, 0)
	var want mgl32.Mat4
	for i := range want {
		want[i] = 0.5*ma[i] + 0.5*mb[i]
	}
	assertMat4InDelta(t, want, c.BoneMatrices[0])
}

func TestCursorWrapsAroundTheLoop(t *testing.T) {
	a := NewAnimator()
	clip := Clip{
		Duration: 3,
		Channels: []SourceChannel{
			translationChannel([]float64{0, 1, 2, 3}, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}),
		},
	}
	c, err := a.Attach(1, rootBones(1), []Clip{clip})
	require.NoError(t, err)

	steps := []struct {
		t      float64
		cursor int
		x      float32
	}{
		{0.5, 0, 0.5},
		{1.5, 1, 1.5},
		{2.5, 2, 2.5},
		{3.5, 0, 0.5},
	}
	for _, s := range steps {
		require.NoError(t, a.Update(s.t))
		assert.Equal(t, s.cursor, c.Bones[0].LastKeyframeIndex, "t=%v", s.t)
		assert.InDelta(t, s.x, c.BoneMatrices[0][12], tol, "t=%v", s.t)
	}
}

func TestBracketNotFoundIsFatal(t *testing.T) {
	a := NewAnimator()
	clip := Clip{
		Duration: 4,
		Channels: []SourceChannel{
			translationChannel([]float64{0, 1}, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}}),
		},
	}
	_, err := a.Attach(3, rootBones(1), []Clip{clip})
	require.NoError(t, err)

	err = a.Update(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyframeBracketNotFound)
	assert.Contains(t, err.Error(), "entity 3")
}

func TestChannelMismatchIsRejected(t *testing.T) {
	counts := translationChannel([]float64{0, 1}, []mgl32.Vec3{{}, {}})
	counts.RotationKeys = counts.RotationKeys[:1]

	timing := translationChannel([]float64{0, 1}, []mgl32.Vec3{{}, {}})
	timing.ScaleKeys[1].Time = 1.5

	for name, ch := range map[string]SourceChannel{"counts": counts, "timing": timing} {
		t.Run(name, func(t *testing.T) {
			_, err := NewAnimator().Attach(1, rootBones(1), []Clip{{Duration: 1, Channels: []SourceChannel{ch}}})
			assert.ErrorIs(t, err, ErrChannelMismatch)
		})
	}
}

func TestParentAccumulation(t *testing.T) {
	bones := []Bone{
		{Name: "hips", ParentIndex: NoParent, BindOffset: mgl32.Ident4()},
		{Name: "spine", ParentIndex: 0, BindOffset: mgl32.Ident4()},
	}
	clip := Clip{
		Duration: 1,
		Channels: []SourceChannel{
			translationChannel([]float64{0, 1}, []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}}),
			translationChannel([]float64{0}, []mgl32.Vec3{{0, 1, 0}}),
		},
	}
	a := NewAnimator()
	c, err := a.Attach(1, bones, []Clip{clip})
	require.NoError(t, err)

	set := c.Animations[0].BoneMatrixSetIndex
	assertMat4InDelta(t, mgl32.Translate3D(1, 1, 0), a.Pool().Matrix(set, 0, 1))

	require.NoError(t, a.Update(0.5))
	assertMat4InDelta(t, mgl32.Translate3D(1.5, 0, 0), c.BoneMatrices[0])
	assertMat4InDelta(t, mgl32.Translate3D(1, 1, 0), c.BoneMatrices[1])
}

func TestParentMustBeBuiltFirst(t *testing.T) {
	bones := []Bone{
		{Name: "child", ParentIndex: 1},
		{Name: "root", ParentIndex: NoParent},
	}
	clip := Clip{Duration: 1, Channels: []SourceChannel{
		translationChannel([]float64{0}, []mgl32.Vec3{{}}),
		translationChannel([]float64{0}, []mgl32.Vec3{{}}),
	}}
	_, err := NewAnimator().Attach(1, bones, []Clip{clip})
	assert.ErrorIs(t, err, ErrParentNotBuilt)
}

func TestAttachRequiresClips(t *testing.T) {
	_, err := NewAnimator().Attach(1, rootBones(1), nil)
	assert.ErrorIs(t, err, ErrNoClips)
}

func TestAttachAllocatesOneSetPerClip(t *testing.T) {
	a := NewAnimator()
	walk := Clip{Name: "walk", Duration: 1, Channels: []SourceChannel{translationChannel([]float64{0, 1}, []mgl32.Vec3{{}, {}})}}
	run := Clip{Name: "run", Duration: 1, Channels: []SourceChannel{translationChannel([]float64{0, 0.5, 1}, []mgl32.Vec3{{}, {}, {}})}}

	c, err := a.Attach(1, rootBones(1), []Clip{walk, run})
	require.NoError(t, err)
	assert.Equal(t, 2, a.Pool().SetCount())
	assert.Equal(t, 0, c.Animations[0].BoneMatrixSetIndex)
	assert.Equal(t, 1, c.Animations[1].BoneMatrixSetIndex)
	// Only the played animation sets the bone's keyframe count.
	assert.Equal(t, 2, c.Bones[0].NKeyframes)

	a.Reset()
	assert.Equal(t, 0, a.Pool().SetCount())
	assert.Nil(t, a.Components().Peek(1))
}

func TestSkinningMatricesApplyBindOffset(t *testing.T) {
	c := Component{
		Bones:        []Bone{{ParentIndex: NoParent, BindOffset: mgl32.Translate3D(-1, 0, 0)}},
		BoneMatrices: []mgl32.Mat4{mgl32.Translate3D(1, 0, 0)},
	}
	out := c.SkinningMatrices(nil)
	require.Len(t, out, 1)
	assertMat4InDelta(t, mgl32.Ident4(), out[0])
}

func TestPoolAddressing(t *testing.T) {
	p := NewBoneMatrixPool()
	first := p.NewSet(2, 3)
	second := p.NewSet(1, 1)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 7, p.Len())

	require.NoError(t, p.Store(first, 1, 2, mgl32.Translate3D(0, 0, 9), 0.25))
	assert.Equal(t, mgl32.Translate3D(0, 0, 9), p.Matrix(first, 1, 2))
	assert.Equal(t, 0.25, p.Timestamp(first, 1, 2))
	assert.Equal(t, mgl32.Ident4(), p.Matrix(second, 0, 0))

	assert.ErrorIs(t, p.Store(first, 2, 0, mgl32.Ident4(), 0), ErrSetOutOfRange)
	assert.ErrorIs(t, p.Store(5, 0, 0, mgl32.Ident4(), 0), ErrSetOutOfRange)

	_, ok := p.KeyframeCount(first, 0)
	assert.False(t, ok)
}

func TestFindAnimationComponentWalksAncestors(t *testing.T) {
	a := NewAnimator()
	spatials := spatial.NewTable()
	skeleton, mesh, part := ecs.Handle(1), ecs.Handle(2), ecs.Handle(3)
	spatials.Set(skeleton, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	spatials.Set(mesh, spatial.NewComponent(mgl32.Vec3{}, skeleton))
	spatials.Set(part, spatial.NewComponent(mgl32.Vec3{}, mesh))

	clip := Clip{Duration: 1, Channels: []SourceChannel{translationChannel([]float64{0}, []mgl32.Vec3{{}})}}
	own, err := a.Attach(skeleton, rootBones(1), []Clip{clip})
	require.NoError(t, err)

	for _, h := range []ecs.Handle{skeleton, mesh, part} {
		got, err := FindAnimationComponent(a.Components(), spatials, h, 0)
		require.NoError(t, err)
		assert.Same(t, own, got, "entity %d", h)
	}

	got, err := FindAnimationComponent(a.Components(), spatials, 40, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindAnimationComponentCycle(t *testing.T) {
	spatials := spatial.NewTable()
	spatials.Set(5, spatial.NewComponent(mgl32.Vec3{}, 6))
	spatials.Set(6, spatial.NewComponent(mgl32.Vec3{}, 5))

	_, err := FindAnimationComponent(NewTable(), spatials, 5, 16)
	assert.ErrorIs(t, err, spatial.ErrParentChainTooDeep)
}

func TestLongRunStaysFinite(t *testing.T) {
	const (
		keyframes = 128
		boneCount = 4
		duration  = 2.0
	)
	bones := make([]Bone, boneCount)
	clip := Clip{Duration: duration, Channels: make([]SourceChannel, boneCount)}
	for b := range bones {
		bones[b] = Bone{ParentIndex: b - 1, BindOffset: mgl32.Ident4()}
		for k := range keyframes {
			tm := float64(k) * duration / (keyframes - 1)
			angle := float32(tm) * math.Pi
			clip.Channels[b].PositionKeys = append(clip.Channels[b].PositionKeys,
				VectorKey{Time: tm, Value: mgl32.Vec3{0, 1, float32(math.Sin(tm))}})
			clip.Channels[b].RotationKeys = append(clip.Channels[b].RotationKeys,
				QuatKey{Time: tm, Value: mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})})
			clip.Channels[b].ScaleKeys = append(clip.Channels[b].ScaleKeys,
				VectorKey{Time: tm, Value: mgl32.Vec3{1, 1, 1}})
		}
	}

	a := NewAnimator()
	c, err := a.Attach(1, bones, []Clip{clip})
	require.NoError(t, err)

	for step := 0; float64(step)*0.016 <= 10; step++ {
		require.NoError(t, a.Update(float64(step)*0.016))
		for b := range c.Bones {
			require.True(t, common.Mat4IsFinite(c.BoneMatrices[b]), "step %d bone %d", step, b)
			require.Less(t, c.Bones[b].LastKeyframeIndex, keyframes)
		}
	}
}
