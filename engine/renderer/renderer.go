package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/light"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrNoDepthShader is returned by NewRenderer when no standard depth shader was configured.
var ErrNoDepthShader = errors.New("renderer: no standard depth shader")

// View is the camera a pass draws from.
type View struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   mgl32.Vec3
}

// Inputs are the tables and libraries a draw reads. The renderer never writes them.
type Inputs struct {
	Drawables  *model.Table
	Spatials   *spatial.Table
	Animations *animator.Table
	Materials  *material.Library
	Compose    *spatial.ComposeContext

	// Lights is read once per frame by RenderFrame.
	Lights *light.Table
	// LightBlock is pushed to shaders declaring "lights" and "light_count". Nil in unlit passes.
	LightBlock *light.Block
}

// PassConfig describes one pass of a frame.
type PassConfig struct {
	Name string
	// Pass selects the drawables whose TargetPasses intersect it.
	Pass   model.RenderPass
	Mode   Mode
	Camera View
	// Group identifies a pass group; RenderFrame starts a new group whenever it changes.
	Group int
	// Lit passes receive the frame's light block.
	Lit bool
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	device      Device
	depthShader shader.Shader
	logger      *zap.Logger
}

// Renderer draws the drawable table pass by pass.
//
// Draws are issued in drawable table order. Per draw the renderer resolves the material by
// name, composes the world matrix, finds the bone matrices of the nearest animated ancestor,
// picks the shader for the pass mode, binds it only when it differs from the last program of
// the pass group, stages the uniforms the shader declares and issues the draw.
type Renderer interface {
	// Device returns the device the renderer draws with.
	//
	// Returns:
	//   - Device: the device
	Device() Device

	// DepthShader returns the shader depth passes use for materials without a depth shader.
	//
	// Returns:
	//   - shader.Shader: the standard depth shader
	DepthShader() shader.Shader

	// Prepare creates device programs for shaders that do not have one yet.
	//
	// Parameters:
	//   - shaders: the shaders to compile
	//
	// Returns:
	//   - error: the first compilation error
	Prepare(shaders ...shader.Shader) error

	// Upload uploads a mesh to the device, making drawables that reference it valid.
	Upload(m *model.Mesh) error

	// DrawAll draws every valid drawable whose target passes intersect pass.
	//
	// Parameters:
	//   - ctx: the render context of this frame
	//   - pass: the pass bit(s) to draw
	//   - mode: ModeRegular or ModeDepth
	//   - view: the pass camera
	//   - in: the tables to read
	//
	// Returns:
	//   - error: a fatal scene error (cyclic parents, singular world matrix) or a device error
	DrawAll(ctx *RenderContext, pass model.RenderPass, mode Mode, view View, in Inputs) error

	// RenderFrame runs passes in order inside one device frame. It collects the light block
	// once, starts a new pass group whenever PassConfig.Group changes and brackets each pass
	// with Device.BeginPass and Device.EndPass.
	//
	// Parameters:
	//   - ctx: the render context, reset by this call
	//   - passes: the ordered passes
	//   - in: the tables to read
	//
	// Returns:
	//   - error: the first error from a pass or the device
	RenderFrame(ctx *RenderContext, passes []PassConfig, in Inputs) error
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer on device.
//
// Parameters:
//   - device: the graphics device
//   - options: functional options, WithDepthShader is required
//
// Returns:
//   - Renderer: the renderer
//   - error: ErrNoDepthShader when no depth shader was given
func NewRenderer(device Device, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		device: device,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	if r.depthShader == nil {
		return nil, ErrNoDepthShader
	}
	return r, nil
}

func (r *renderer) Device() Device {
	return r.device
}

func (r *renderer) DepthShader() shader.Shader {
	return r.depthShader
}

func (r *renderer) Prepare(shaders ...shader.Shader) error {
	for _, s := range shaders {
		if s == nil || s.ProgramID() != shader.NoProgram {
			continue
		}
		if _, err := r.device.CreateProgram(s); err != nil {
			return fmt.Errorf("create program %s: %w", s.Name(), err)
		}
	}
	return nil
}

func (r *renderer) Upload(m *model.Mesh) error {
	if m.Uploaded() {
		return nil
	}
	if err := r.device.UploadMesh(m); err != nil {
		return fmt.Errorf("upload mesh %s: %w", m.Name, err)
	}
	return nil
}

func (r *renderer) DrawAll(ctx *RenderContext, pass model.RenderPass, mode Mode, view View, in Inputs) error {
	var err error
	in.Drawables.Each(func(h ecs.Handle, d *model.Drawable) {
		if err != nil || d.TargetPasses&pass == 0 {
			return
		}
		if !d.IsValid() {
			ctx.Stats.Skipped++
			return
		}
		err = r.draw(ctx, h, d, mode, view, in)
	})
	return err
}

func (r *renderer) draw(ctx *RenderContext, h ecs.Handle, d *model.Drawable, mode Mode, view View, in Inputs) error {
	mat := in.Materials.FindByName(d.Mesh.Material)

	world, err := in.Compose.ModelMatrix(h)
	if err != nil {
		return fmt.Errorf("entity %d: %w", h, err)
	}
	normal, err := common.NormalMatrix(world)
	if err != nil {
		return fmt.Errorf("entity %d: %w", h, err)
	}

	var bones []mgl32.Mat4
	if d.Mesh.Skinned {
		anim, err := animator.FindAnimationComponent(in.Animations, in.Spatials, h, in.Compose.MaxDepth())
		if err != nil {
			return fmt.Errorf("entity %d: %w", h, err)
		}
		if anim != nil {
			ctx.bones = anim.SkinningMatrices(ctx.bones[:0])
			bones = ctx.bones
		}
	}

	s := mat.Shader()
	if mode == ModeDepth {
		s = mat.DepthShader()
		if s == nil {
			s = r.depthShader
		}
	}
	if err := r.bind(ctx, s, mat); err != nil {
		return fmt.Errorf("entity %d material %s: %w", h, mat.Name(), err)
	}

	skinned := int32(0)
	if bones != nil {
		skinned = 1
	}
	push := func(name string, set func() error) {
		if !s.HasUniform(name) {
			return
		}
		if err := set(); err != nil {
			ctx.Stats.UniformErrors++
			r.logger.Debug("uniform skipped",
				zap.Uint32("entity", uint32(h)),
				zap.String("shader", s.Name()),
				zap.String("uniform", name),
				zap.Error(err),
			)
		}
	}
	push("model", func() error { return s.SetMat4("model", world) })
	push("normal", func() error { return s.SetMat3("normal", normal) })
	push("view", func() error { return s.SetMat4("view", view.View) })
	push("projection", func() error { return s.SetMat4("projection", view.Projection) })
	push("camera_position", func() error { return s.SetVec3("camera_position", view.Position) })
	push("skinned", func() error { return s.SetInt("skinned", skinned) })
	if bones != nil {
		push("bones", func() error { return s.SetMat4Array("bones", bones) })
	}
	push("base_color", func() error { return s.SetVec4("base_color", mgl32.Vec4(mat.BaseColor())) })
	if in.LightBlock != nil {
		push("light_count", func() error { return s.SetInt("light_count", int32(in.LightBlock.Count)) })
		push("lights", func() error { return s.SetVec4Array("lights", in.LightBlock.Data) })
	}

	if d.Mesh.Indexed() {
		err = r.device.DrawIndexed(d.Mesh)
	} else {
		err = r.device.DrawArrays(d.Mesh)
	}
	if err != nil {
		return fmt.Errorf("entity %d: %w", h, err)
	}
	ctx.Stats.Draws++
	return nil
}

// bind makes s the current program when it is not already, then binds the material's
// diffuse texture to unit 0 when the shader samples textures.
func (r *renderer) bind(ctx *RenderContext, s shader.Shader, mat material.Material) error {
	if s.ProgramID() == shader.NoProgram {
		if err := r.Prepare(s); err != nil {
			return err
		}
	}
	if s.ProgramID() != ctx.lastProgram {
		if err := r.device.UseProgram(s.ProgramID()); err != nil {
			return err
		}
		if err := s.BindTextureUnits(); err != nil {
			return err
		}
		ctx.lastProgram = s.ProgramID()
		ctx.lastTexture = 0
		ctx.Stats.ProgramBinds++
	}
	if s.TextureUnitCount() == 0 || mat.Texture() == ctx.lastTexture {
		return nil
	}
	if err := r.device.BindTexture(0, mat.Texture()); err != nil {
		return err
	}
	ctx.lastTexture = mat.Texture()
	return nil
}

func (r *renderer) RenderFrame(ctx *RenderContext, passes []PassConfig, in Inputs) error {
	ctx.BeginFrame()
	in.Compose.BeginFrame()

	var block *light.Block
	if in.Lights != nil {
		b, err := light.Collect(in.Lights, in.Compose)
		if err != nil {
			return fmt.Errorf("collect lights: %w", err)
		}
		block = &b
	}

	if err := r.device.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	for i, p := range passes {
		if i == 0 || p.Group != passes[i-1].Group {
			ctx.BeginPassGroup()
		}
		passIn := in
		passIn.LightBlock = nil
		if p.Lit {
			passIn.LightBlock = block
		}
		if err := r.device.BeginPass(p.Name, p.Mode); err != nil {
			return errors.Join(fmt.Errorf("begin pass %s: %w", p.Name, err), r.device.EndFrame())
		}
		drawErr := r.DrawAll(ctx, p.Pass, p.Mode, p.Camera, passIn)
		if err := errors.Join(drawErr, r.device.EndPass()); err != nil {
			return errors.Join(fmt.Errorf("pass %s: %w", p.Name, err), r.device.EndFrame())
		}
	}
	if err := r.device.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}
