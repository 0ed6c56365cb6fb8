package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/light"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dev       *HeadlessDevice
	r         Renderer
	shaders   *shader.Registry
	lib       *material.Library
	drawables *model.Table
	spatials  *spatial.Table
	anims     *animator.Table
	lights    *light.Table
	ctx       *RenderContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	shaders, err := shader.NewRegistry()
	require.NoError(t, err)
	std, _ := shaders.Get(shader.Standard)
	depth, _ := shaders.Get(shader.StandardDepth)

	lib, err := material.NewLibrary(std, nil)
	require.NoError(t, err)
	require.NoError(t, lib.Add(material.NewMaterial(
		material.WithName("stone"),
		material.WithShader(std),
		material.WithBaseColor([4]float32{0.5, 0.5, 0.5, 1}),
	)))

	dev := NewHeadlessDevice()
	r, err := NewRenderer(dev, WithDepthShader(depth))
	require.NoError(t, err)

	return &fixture{
		dev:       dev,
		r:         r,
		shaders:   shaders,
		lib:       lib,
		drawables: model.NewTable(),
		spatials:  spatial.NewTable(),
		anims:     animator.NewTable(),
		lights:    light.NewTable(),
		ctx:       NewRenderContext(),
	}
}

func (f *fixture) inputs() Inputs {
	return Inputs{
		Drawables:  f.drawables,
		Spatials:   f.spatials,
		Animations: f.anims,
		Materials:  f.lib,
		Compose:    spatial.NewComposeContext(f.spatials, 0),
		Lights:     f.lights,
	}
}

func (f *fixture) addDrawable(t *testing.T, h ecs.Handle, mesh *model.Mesh, passes model.RenderPass) {
	t.Helper()
	require.NoError(t, f.r.Upload(mesh))
	f.drawables.Set(h, model.Drawable{Mesh: mesh, TargetPasses: passes})
}

// drawPass runs DrawAll inside a single device pass.
func (f *fixture) drawPass(t *testing.T, pass model.RenderPass, mode Mode, in Inputs) error {
	t.Helper()
	require.NoError(t, f.dev.BeginFrame())
	require.NoError(t, f.dev.BeginPass(pass.String(), mode))
	err := f.r.DrawAll(f.ctx, pass, mode, View{View: mgl32.Ident4(), Projection: mgl32.Ident4()}, in)
	require.NoError(t, f.dev.EndPass())
	require.NoError(t, f.dev.EndFrame())
	return err
}

func field(t *testing.T, f *fixture, shaderName, uniform string) shader.Uniform {
	t.Helper()
	s, ok := f.shaders.Get(shaderName)
	require.True(t, ok)
	layout := s.Layout()
	u, ok := layout.Field(uniform)
	require.True(t, ok)
	return u
}

func TestDeferredAndShadowcasterFiltering(t *testing.T) {
	f := newFixture(t)
	a, b, c := model.Cube("stone"), model.Cube("stone"), model.Cube("stone")
	f.addDrawable(t, 1, a, model.PassDeferred)
	f.addDrawable(t, 2, b, model.PassShadowcaster|model.PassDeferred)
	f.addDrawable(t, 3, c, model.PassForward)
	f.drawables.Set(4, model.Drawable{Mesh: model.Cube("stone"), TargetPasses: model.PassDeferred})

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))
	require.Len(t, f.dev.Draws, 2)
	assert.Same(t, a, f.dev.Draws[0].Mesh)
	assert.Same(t, b, f.dev.Draws[1].Mesh)
	assert.Equal(t, shader.Standard, f.dev.Draws[0].Shader)
	assert.True(t, f.dev.Draws[0].Indexed)
	assert.Equal(t, 36, f.dev.Draws[0].Count)
	assert.Equal(t, 1, f.ctx.Stats.Skipped)

	f.dev.Reset()
	require.NoError(t, f.drawPass(t, model.PassShadowcaster, ModeDepth, f.inputs()))
	require.Len(t, f.dev.Draws, 1)
	assert.Same(t, b, f.dev.Draws[0].Mesh)
	assert.Equal(t, shader.StandardDepth, f.dev.Draws[0].Shader)
	assert.Equal(t, ModeDepth, f.dev.Draws[0].Mode)
}

func TestMaterialFallbackAndDepthShader(t *testing.T) {
	f := newFixture(t)
	unlit, _ := f.shaders.Get(shader.Unlit)
	require.NoError(t, f.lib.Add(material.NewMaterial(
		material.WithName("custom"),
		material.WithShader(unlit),
		material.WithDepthShader(unlit),
	)))
	f.addDrawable(t, 1, model.Cube("does-not-exist"), model.PassDeferred|model.PassShadowcaster)
	f.addDrawable(t, 2, model.Cube("custom"), model.PassShadowcaster)

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))
	require.Len(t, f.dev.Draws, 1)
	color := shader.ReadVec4(f.dev.Draws[0].Uniforms, field(t, f, shader.Standard, "base_color"))
	assert.Equal(t, mgl32.Vec4{1, 0, 1, 1}, color)

	f.dev.Reset()
	require.NoError(t, f.drawPass(t, model.PassShadowcaster, ModeDepth, f.inputs()))
	require.Len(t, f.dev.Draws, 2)
	assert.Equal(t, shader.StandardDepth, f.dev.Draws[0].Shader)
	assert.Equal(t, shader.Unlit, f.dev.Draws[1].Shader)
}

func TestProgramBindsAreMinimised(t *testing.T) {
	f := newFixture(t)
	for h := ecs.Handle(1); h <= 3; h++ {
		f.addDrawable(t, h, model.Cube("stone"), model.PassDeferred|model.PassForward)
	}
	in := f.inputs()

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, in))
	require.NoError(t, f.drawPass(t, model.PassForward, ModeRegular, in))
	assert.Equal(t, 1, f.dev.ProgramBinds)
	assert.Equal(t, 1, f.ctx.Stats.ProgramBinds)
	assert.Equal(t, 6, f.ctx.Stats.Draws)

	f.ctx.BeginPassGroup()
	require.NoError(t, f.drawPass(t, model.PassForward, ModeRegular, in))
	assert.Equal(t, 2, f.dev.ProgramBinds)
}

func TestMissingUniformsAreSkipped(t *testing.T) {
	f := newFixture(t)
	odd, err := shader.NewShader("odd", `
struct U {
    model: vec4<f32>,
    view: mat4x4<f32>,
}
@group(0) @binding(0) var<uniform> u: U;
@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return u.view * u.model;
}
`)
	require.NoError(t, err)
	require.NoError(t, f.lib.Add(material.NewMaterial(material.WithName("odd"), material.WithShader(odd))))
	f.addDrawable(t, 1, model.Cube("odd"), model.PassDeferred)

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))
	require.Len(t, f.dev.Draws, 1)
	assert.Equal(t, 1, f.ctx.Stats.UniformErrors)

	f.ctx.Stats = FrameStats{}
	f.addDrawable(t, 2, model.Cube("stone"), model.PassShadowcaster)
	require.NoError(t, f.drawPass(t, model.PassShadowcaster, ModeDepth, f.inputs()))
	assert.Zero(t, f.ctx.Stats.UniformErrors)
}

func TestIdentityWithoutSpatial(t *testing.T) {
	f := newFixture(t)
	f.addDrawable(t, 1, model.Cube("stone"), model.PassDeferred)
	f.addDrawable(t, 2, model.Cube("stone"), model.PassDeferred)
	f.spatials.Set(2, spatial.NewComponent(mgl32.Vec3{1, 2, 3}, ecs.None))

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))
	require.Len(t, f.dev.Draws, 2)
	m := field(t, f, shader.Standard, "model")
	assert.Equal(t, mgl32.Ident4(), shader.ReadMat4(f.dev.Draws[0].Uniforms, m))
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), shader.ReadMat4(f.dev.Draws[1].Uniforms, m))
}

func TestSingularNormalMatrixIsFatal(t *testing.T) {
	f := newFixture(t)
	f.addDrawable(t, 1, model.Cube("stone"), model.PassDeferred)
	c := spatial.NewComponent(mgl32.Vec3{}, ecs.None)
	c.Scale = mgl32.Vec3{1e-30, 1e-30, 1}
	f.spatials.Set(1, c)

	err := f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs())
	assert.True(t, errors.Is(err, common.ErrSingularMatrix))
	assert.Empty(t, f.dev.Draws)
}

func TestCyclicParentsAreFatal(t *testing.T) {
	f := newFixture(t)
	f.addDrawable(t, 1, model.Cube("stone"), model.PassDeferred)
	f.spatials.Set(1, spatial.NewComponent(mgl32.Vec3{}, 2))
	f.spatials.Set(2, spatial.NewComponent(mgl32.Vec3{}, 1))

	err := f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs())
	assert.True(t, errors.Is(err, spatial.ErrParentChainTooDeep))
}

func TestSkinnedDrawUsesAncestorBones(t *testing.T) {
	f := newFixture(t)
	f.spatials.Set(1, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	f.spatials.Set(2, spatial.NewComponent(mgl32.Vec3{}, 1))
	f.anims.Set(1, animator.Component{
		Bones:        []animator.Bone{{Name: "root", ParentIndex: animator.NoParent, BindOffset: mgl32.Translate3D(0, -1, 0)}},
		BoneMatrices: []mgl32.Mat4{mgl32.Translate3D(0, 3, 0)},
		Animations:   []animator.Animation{{Name: "idle", Duration: 1}},
	})

	cube := model.Cube("stone")
	for i := range cube.Vertices {
		cube.Vertices[i].BoneWeights = [4]float32{1, 0, 0, 0}
	}
	cube.ComputeBounds()
	require.True(t, cube.Skinned)
	f.addDrawable(t, 2, cube, model.PassDeferred)
	f.addDrawable(t, 3, model.Cube("stone"), model.PassDeferred)

	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))
	require.Len(t, f.dev.Draws, 2)
	skinned := field(t, f, shader.Standard, "skinned")
	bones := field(t, f, shader.Standard, "bones")
	assert.Equal(t, uint32(1), shader.ReadUint(f.dev.Draws[0].Uniforms, skinned))
	assert.Equal(t, mgl32.Translate3D(0, 2, 0), shader.ReadMat4Element(f.dev.Draws[0].Uniforms, bones, 0))
	assert.Equal(t, uint32(0), shader.ReadUint(f.dev.Draws[1].Uniforms, skinned))
}

func TestRenderFrameGroupsAndLights(t *testing.T) {
	f := newFixture(t)
	f.addDrawable(t, 1, model.Cube("stone"), model.PassShadowcaster|model.PassDeferred|model.PassForward)
	f.lights.Set(2, light.NewComponent(light.TypeDirectional, light.WithCastsShadows(true)))

	view := View{View: mgl32.Ident4(), Projection: mgl32.Ident4()}
	passes := []PassConfig{
		{Name: "shadow", Pass: model.PassShadowcaster, Mode: ModeDepth, Camera: view, Group: 0},
		{Name: "deferred", Pass: model.PassDeferred, Mode: ModeRegular, Camera: view, Group: 1},
		{Name: "forward", Pass: model.PassForward, Mode: ModeRegular, Camera: view, Group: 1, Lit: true},
	}
	require.NoError(t, f.r.RenderFrame(f.ctx, passes, f.inputs()))

	assert.Equal(t, []string{"shadow", "deferred", "forward"}, f.dev.Passes)
	assert.Equal(t, 1, f.dev.Frames)
	assert.Equal(t, 3, f.ctx.Stats.Draws)
	assert.Equal(t, 2, f.ctx.Stats.ProgramBinds)

	count := field(t, f, shader.Standard, "light_count")
	require.Len(t, f.dev.Draws, 3)
	assert.Equal(t, uint32(0), shader.ReadUint(f.dev.Draws[1].Uniforms, count))
	assert.Equal(t, uint32(1), shader.ReadUint(f.dev.Draws[2].Uniforms, count))
}

func TestMaterialTextureBinding(t *testing.T) {
	f := newFixture(t)
	std, _ := f.shaders.Get(shader.Standard)
	tex, err := f.dev.UploadTexture("white", common.TextureStagingData{Pixels: []byte{255, 255, 255, 255}, Width: 1, Height: 1})
	require.NoError(t, err)
	m := material.NewMaterial(material.WithName("textured"), material.WithShader(std))
	m.SetTexture(tex)
	require.NoError(t, f.lib.Add(m))

	f.addDrawable(t, 1, model.Cube("textured"), model.PassDeferred)
	f.addDrawable(t, 2, model.Cube("textured"), model.PassDeferred)
	require.NoError(t, f.drawPass(t, model.PassDeferred, ModeRegular, f.inputs()))

	require.Len(t, f.dev.Draws, 2)
	assert.Equal(t, tex, f.dev.Draws[1].Textures[0])
	assert.Equal(t, 1, f.dev.TextureBinds)
}

func TestNewRendererRequiresDepthShader(t *testing.T) {
	_, err := NewRenderer(NewHeadlessDevice())
	assert.True(t, errors.Is(err, ErrNoDepthShader))
}
