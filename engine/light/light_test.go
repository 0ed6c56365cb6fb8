package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentValidity(t *testing.T) {
	assert.False(t, (*Component)(nil).IsValid())
	assert.False(t, (&Component{}).IsValid())
	assert.True(t, (&Component{Type: TypePoint, Enabled: true, Intensity: 1}).IsValid())

	dark := NewComponent(TypeDirectional, WithIntensity(0))
	assert.False(t, dark.IsValid())

	aimless := NewComponent(TypeSpot, WithDirection(mgl32.Vec3{}))
	assert.False(t, aimless.IsValid())
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("Spot")
	require.NoError(t, err)
	assert.Equal(t, TypeSpot, typ)
	assert.Equal(t, "spot", typ.String())

	_, err = ParseType("area")
	assert.Error(t, err)
}

func TestCollectPacksWorldSpaceLights(t *testing.T) {
	spatials := spatial.NewTable()
	lights := NewTable()

	spatials.Set(1, spatial.NewComponent(mgl32.Vec3{0, 10, 0}, ecs.None))
	spatials.Set(2, spatial.NewComponent(mgl32.Vec3{1, 2, 3}, 1))
	lights.Set(1, NewComponent(TypeDirectional, WithDirection(mgl32.Vec3{0, -2, 0}), WithCastsShadows(true)))
	lights.Set(2, NewComponent(TypePoint, WithColor(mgl32.Vec3{1, 0, 0}), WithIntensity(3), WithRange(7)))
	lights.Set(3, NewComponent(TypePoint, WithEnabled(false)))

	b, err := Collect(lights, spatial.NewComposeContext(spatials, 0))
	require.NoError(t, err)
	require.Equal(t, 2, b.Count)
	require.Len(t, b.Data, 2*Vec4sPerLight)

	sun := b.Data[:4]
	assert.Equal(t, mgl32.Vec4{0, 10, 0, float32(TypeDirectional)}, sun[0])
	assert.InDelta(t, -1, sun[2].Y(), 1e-6)
	assert.Equal(t, float32(1), sun[3].Z())

	bulb := b.Data[4:]
	assert.InDelta(t, 1, bulb[0].X(), 1e-6)
	assert.InDelta(t, 12, bulb[0].Y(), 1e-6)
	assert.InDelta(t, 3, bulb[0].Z(), 1e-6)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 3}, bulb[1])
	assert.Equal(t, float32(7), bulb[2].W())
}

func TestCollectStopsAtMaxLights(t *testing.T) {
	lights := NewTable()
	for h := ecs.Handle(1); h <= MaxLights+4; h++ {
		lights.Set(h, NewComponent(TypePoint))
	}
	b, err := Collect(lights, spatial.NewComposeContext(spatial.NewTable(), 0))
	require.NoError(t, err)
	assert.Equal(t, MaxLights, b.Count)
}

func TestShadowCaster(t *testing.T) {
	lights := NewTable()
	lights.Set(1, NewComponent(TypePoint, WithCastsShadows(true)))
	lights.Set(2, NewComponent(TypeDirectional))
	lights.Set(3, NewComponent(TypeDirectional, WithCastsShadows(true)))

	h, c := ShadowCaster(lights)
	assert.Equal(t, ecs.Handle(3), h)
	require.NotNil(t, c)

	h, c = ShadowCaster(NewTable())
	assert.Equal(t, ecs.None, h)
	assert.Nil(t, c)
}

func TestShadowViewLooksAtCenter(t *testing.T) {
	view, proj := ShadowView(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{}, 0)
	center := view.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, center.X(), 1e-4)
	assert.InDelta(t, 0, center.Y(), 1e-4)
	assert.InDelta(t, -DefaultShadowFar/2, center.Z(), 1e-3)
	assert.Equal(t, mgl32.Ortho(-DefaultShadowHalfExtent, DefaultShadowHalfExtent, -DefaultShadowHalfExtent, DefaultShadowHalfExtent, DefaultShadowNear, DefaultShadowFar), proj)
}
