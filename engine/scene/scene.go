package scene

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
	"github.com/Carmen-Shannon/oxy-ecs/engine/behavior"
	"github.com/Carmen-Shannon/oxy-ecs/engine/camera"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/light"
	"github.com/Carmen-Shannon/oxy-ecs/engine/loader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrNoModel is returned when spawning a nil or empty model.
var ErrNoModel = errors.New("scene: model has no meshes")

// Pass groups used by Passes. The shadow pass draws with depth shaders, so the colour
// passes start a new group.
const (
	shadowGroup = iota
	colorGroup
)

// Scene owns the entity registry, every component table, the bone-matrix pool, the material
// library and the renderer. Only the scene's update methods write the tables; the renderer
// reads them through Inputs.
//
// A Scene is used from the main thread only. Model and texture files are read on the
// loader's workers and handed back to the main thread by Poll.
type Scene interface {
	// Registry returns the entity registry.
	Registry() *ecs.Registry

	// Spatials returns the spatial table.
	Spatials() *spatial.Table

	// Drawables returns the drawable table.
	Drawables() *model.Table

	// Lights returns the light table.
	Lights() *light.Table

	// Bodies returns the physics table.
	Bodies() *physics.Table

	// Behaviors returns the behavior table.
	Behaviors() *behavior.Table

	// Animator returns the animator owning the animation table and the bone-matrix pool.
	Animator() animator.Animator

	// Scripts returns the Lua runner driving the behavior table.
	Scripts() behavior.Runner

	// Materials returns the material library.
	Materials() *material.Library

	// Shaders returns the shader registry.
	Shaders() *shader.Registry

	// Renderer returns the renderer drawing the scene.
	Renderer() renderer.Renderer

	// Loader returns the asset loader.
	Loader() loader.Loader

	// Camera returns the main camera.
	Camera() camera.Camera

	// CameraRig returns the internal entity that follows the main camera.
	CameraRig() ecs.Handle

	// DefaultLight returns the internal directional light entity.
	DefaultLight() ecs.Handle

	// Spawn creates a user entity with a spatial component.
	//
	// Parameters:
	//   - sc: the spatial component
	//
	// Returns:
	//   - ecs.Handle: the new entity
	Spawn(sc spatial.Component) ecs.Handle

	// AddDrawable uploads mesh and makes h draw it in passes.
	//
	// Parameters:
	//   - h: the entity
	//   - mesh: the mesh, uploaded when it is not yet
	//   - passes: the passes the entity takes part in
	//
	// Returns:
	//   - error: an upload error
	AddDrawable(h ecs.Handle, mesh *model.Mesh, passes model.RenderPass) error

	// SpawnModel instantiates an imported model: a root entity carrying the animation
	// component (when the model is skinned) and one child drawable entity per mesh.
	// Materials the model declares are added to the library unless already configured.
	//
	// Parameters:
	//   - m: the imported model
	//   - at: the root's spatial component
	//   - passes: the passes the meshes take part in
	//
	// Returns:
	//   - ecs.Handle: the root entity
	//   - error: ErrNoModel, an upload error or an animation build error
	SpawnModel(m *model.ImportedModel, at spatial.Component, passes model.RenderPass) (ecs.Handle, error)

	// RequestModel queues path on the loader and reserves its root entity now. The model is
	// spawned under that root by the first Poll after the import finishes. A failed import
	// is logged and leaves the root without drawables.
	//
	// Parameters:
	//   - path: the model file
	//   - at: the root's spatial component
	//   - passes: the passes the meshes take part in
	//   - clip: the clip to play, empty for the file's first clip
	//
	// Returns:
	//   - ecs.Handle: the root entity
	RequestModel(path string, at spatial.Component, passes model.RenderPass, clip string) ecs.Handle

	// LoadFile builds user entities from a YAML scene description file.
	LoadFile(path string) (int, error)

	// LoadYAML builds user entities from a YAML scene description.
	LoadYAML(data []byte, baseDir string) (int, error)

	// Pending returns how many requested models and textures have not been handed over yet.
	Pending() int

	// Poll spawns finished model imports and uploads finished textures.
	//
	// Returns:
	//   - error: a fatal error building a spawned model's animation
	Poll() error

	// Tick runs behaviors, integrates physics and recomputes bone matrices for time t.
	//
	// Parameters:
	//   - dt: seconds since the previous tick
	//   - t: clock time in seconds
	//
	// Returns:
	//   - error: a fatal animation error
	Tick(dt, t float64) error

	// Inputs returns the tables the renderer reads.
	Inputs() renderer.Inputs

	// Passes returns the frame's passes: a shadow pass when a directional light casts
	// shadows, then the deferred and forward colour passes.
	Passes() []renderer.PassConfig

	// Render updates the camera and draws one frame.
	//
	// Parameters:
	//   - ctx: the render context, reset by the call
	//
	// Returns:
	//   - error: a fatal scene error or a device error
	Render(ctx *renderer.RenderContext) error

	// Resize updates the camera aspect and the device render target.
	Resize(width, height int)

	// Reset drops every entity, component and pool set, then recreates the internal entities.
	// Uploaded meshes stay on the device.
	//
	// Returns:
	//   - error: an error recreating the internal entities
	Reset() error

	// Close shuts down the loader, the script VM and the device.
	Close()
}

type scene struct {
	registry  *ecs.Registry
	spatials  *spatial.Table
	drawables *model.Table
	lights    *light.Table
	bodies    *physics.Table
	behaviors *behavior.Table
	anim      animator.Animator
	scripts   behavior.Runner
	compose   *spatial.ComposeContext

	shaders   *shader.Registry
	materials *material.Library
	renderer  renderer.Renderer
	device    renderer.Device
	loader    loader.Loader
	camera    camera.Camera

	rig          ecs.Handle
	defaultLight ecs.Handle

	pendingModels   []pendingModel
	pendingTextures []pendingTexture
	textures        map[string]shader.TextureID

	depthShaderName string
	maxDepth        int
	gravity         mgl32.Vec3
	shadowExtent    float32
	lightColor      mgl32.Vec3
	lightDirection  mgl32.Vec3
	ownsLoader      bool
	logger          *zap.Logger
}

type pendingModel struct {
	asset  *loader.Asset
	root   ecs.Handle
	passes model.RenderPass
	clip   string
}

type pendingTexture struct {
	asset *loader.Asset
	mat   material.Material
}

var _ Scene = &scene{}

// NewScene creates a scene drawing on device. The built-in shaders are registered, the
// material library holds only the fallback material, and the internal camera rig and default
// light entities exist before the user boundary is marked.
//
// Parameters:
//   - device: the graphics device
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the scene
//   - error: an error creating the shaders, library or renderer
func NewScene(device renderer.Device, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		registry:        ecs.NewRegistry(),
		spatials:        spatial.NewTable(),
		drawables:       model.NewTable(),
		lights:          light.NewTable(),
		bodies:          physics.NewTable(),
		behaviors:       behavior.NewTable(),
		device:          device,
		textures:        make(map[string]shader.TextureID),
		depthShaderName: shader.StandardDepth,
		maxDepth:        spatial.DefaultMaxDepth,
		gravity:         physics.DefaultGravity,
		shadowExtent:    light.DefaultShadowHalfExtent,
		lightColor:      mgl32.Vec3{1, 1, 1},
		lightDirection:  mgl32.Vec3{-0.4, -1, -0.3},
		logger:          zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}

	if s.shaders == nil {
		reg, err := shader.NewRegistry()
		if err != nil {
			return nil, err
		}
		s.shaders = reg
	}
	standard, ok := s.shaders.Get(shader.Standard)
	if !ok {
		return nil, fmt.Errorf("scene: shader %q: %w", shader.Standard, material.ErrUnknownShader)
	}
	depth, ok := s.shaders.Get(s.depthShaderName)
	if !ok {
		return nil, fmt.Errorf("scene: depth shader %q: %w", s.depthShaderName, material.ErrUnknownShader)
	}

	lib, err := material.NewLibrary(standard, s.logger.Named("material"))
	if err != nil {
		return nil, err
	}
	s.materials = lib

	r, err := renderer.NewRenderer(device, renderer.WithDepthShader(depth), renderer.WithLogger(s.logger.Named("renderer")))
	if err != nil {
		return nil, err
	}
	s.renderer = r

	if s.loader == nil {
		s.loader = loader.NewLoader(loader.WithLogger(s.logger.Named("loader")))
		s.ownsLoader = true
	}
	if s.camera == nil {
		s.camera = camera.NewCamera(camera.WithController(camera.NewOrbitController()))
	}
	s.anim = animator.NewAnimator(animator.WithLogger(s.logger.Named("animator")))
	s.scripts = behavior.NewRunner(s.behaviors, s.spatials,
		behavior.WithPhysics(s.bodies),
		behavior.WithLogger(s.logger.Named("behavior")),
	)
	s.compose = spatial.NewComposeContext(s.spatials, s.maxDepth)

	if err := s.createInternal(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// createInternal allocates the engine-owned entities and marks the user boundary after them.
func (s *scene) createInternal() error {
	s.rig = s.registry.Allocate()
	s.camera.Update()
	s.spatials.Set(s.rig, spatial.NewComponent(s.camera.Position(), ecs.None))

	s.defaultLight = s.registry.Allocate()
	s.spatials.Set(s.defaultLight, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	s.lights.Set(s.defaultLight, light.NewComponent(light.TypeDirectional,
		light.WithDirection(s.lightDirection),
		light.WithColor(s.lightColor),
		light.WithCastsShadows(true),
	))

	return s.registry.MarkUserBoundary()
}

func (s *scene) Registry() *ecs.Registry {
	return s.registry
}

func (s *scene) Spatials() *spatial.Table {
	return s.spatials
}

func (s *scene) Drawables() *model.Table {
	return s.drawables
}

func (s *scene) Lights() *light.Table {
	return s.lights
}

func (s *scene) Bodies() *physics.Table {
	return s.bodies
}

func (s *scene) Behaviors() *behavior.Table {
	return s.behaviors
}

func (s *scene) Animator() animator.Animator {
	return s.anim
}

func (s *scene) Scripts() behavior.Runner {
	return s.scripts
}

func (s *scene) Materials() *material.Library {
	return s.materials
}

func (s *scene) Shaders() *shader.Registry {
	return s.shaders
}

func (s *scene) Renderer() renderer.Renderer {
	return s.renderer
}

func (s *scene) Loader() loader.Loader {
	return s.loader
}

func (s *scene) Camera() camera.Camera {
	return s.camera
}

func (s *scene) CameraRig() ecs.Handle {
	return s.rig
}

func (s *scene) DefaultLight() ecs.Handle {
	return s.defaultLight
}

func (s *scene) Spawn(sc spatial.Component) ecs.Handle {
	h := s.registry.Allocate()
	s.spatials.Set(h, sc)
	return h
}

func (s *scene) AddDrawable(h ecs.Handle, mesh *model.Mesh, passes model.RenderPass) error {
	if err := s.renderer.Upload(mesh); err != nil {
		return fmt.Errorf("entity %d: %w", h, err)
	}
	s.drawables.Set(h, model.Drawable{Mesh: mesh, TargetPasses: passes})
	return nil
}

func (s *scene) SpawnModel(m *model.ImportedModel, at spatial.Component, passes model.RenderPass) (ecs.Handle, error) {
	if m == nil || len(m.Meshes) == 0 {
		return ecs.None, ErrNoModel
	}
	root := s.Spawn(at)
	if err := s.spawnInto(root, m, passes); err != nil {
		return root, err
	}
	return root, nil
}

// spawnInto attaches m's animation to root and creates one child drawable per mesh.
func (s *scene) spawnInto(root ecs.Handle, m *model.ImportedModel, passes model.RenderPass) error {
	if m == nil || len(m.Meshes) == 0 {
		return ErrNoModel
	}
	s.addImportedMaterials(m)

	if m.Skinned() {
		if _, err := s.anim.Attach(root, m.Skeleton, m.Clips); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}
	for _, mesh := range m.Meshes {
		child := s.Spawn(spatial.NewComponent(mgl32.Vec3{}, root))
		if err := s.AddDrawable(child, mesh, passes); err != nil {
			return fmt.Errorf("model %s: %w", m.Name, err)
		}
	}

	s.logger.Info("model spawned",
		zap.String("model", m.Name),
		zap.Uint32("entity", uint32(root)),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("bones", len(m.Skeleton)),
		zap.Int("clips", len(m.Clips)),
	)
	return nil
}

func (s *scene) addImportedMaterials(m *model.ImportedModel) {
	standard, _ := s.shaders.Get(shader.Standard)
	for _, im := range m.Materials {
		added, err := s.materials.AddImported(im, standard)
		if err != nil {
			s.logger.Warn("imported material rejected", zap.String("material", im.Name), zap.Error(err))
			continue
		}
		if added {
			s.requestTexture(s.materials.FindByName(im.Name))
		}
	}
}

// requestTexture uploads the material's diffuse texture. Embedded images are decoded here;
// files go through the loader and are uploaded by Poll.
func (s *scene) requestTexture(mat material.Material) {
	tex := mat.DiffuseTexture()
	if tex == nil || mat.Texture() != 0 {
		return
	}
	if len(tex.Data) == 0 {
		if id, ok := s.textures[tex.Path]; ok {
			mat.SetTexture(id)
			return
		}
		s.pendingTextures = append(s.pendingTextures, pendingTexture{asset: s.loader.LoadTexture(tex.Path), mat: mat})
		return
	}
	data, err := tex.Decode()
	if err != nil {
		s.logger.Warn("texture decode failed", zap.String("material", mat.Name()), zap.Error(err))
		return
	}
	id, err := s.device.UploadTexture(tex.Name, data)
	if err != nil {
		s.logger.Warn("texture upload failed", zap.String("material", mat.Name()), zap.Error(err))
		return
	}
	mat.SetTexture(id)
}

// requestTextures queues the diffuse texture of every material in the library that has none
// uploaded yet.
func (s *scene) requestTextures() {
	for _, mat := range s.materials.All() {
		s.requestTexture(mat)
	}
}

func (s *scene) RequestModel(path string, at spatial.Component, passes model.RenderPass, clip string) ecs.Handle {
	root := s.Spawn(at)
	s.pendingModels = append(s.pendingModels, pendingModel{
		asset:  s.loader.LoadModel(path),
		root:   root,
		passes: passes,
		clip:   clip,
	})
	return root
}

func (s *scene) Pending() int {
	return len(s.pendingModels) + len(s.pendingTextures)
}

func (s *scene) Poll() error {
	var errs []error

	models := s.pendingModels[:0]
	for _, p := range s.pendingModels {
		switch p.asset.State() {
		case loader.StateReady:
			m := p.asset.Model()
			if p.clip != "" && !m.PlayFirst(p.clip) {
				s.logger.Warn("clip not found, playing first clip",
					zap.String("model", m.Name), zap.String("clip", p.clip))
			}
			if err := s.spawnInto(p.root, m, p.passes); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", p.asset.Path, err))
			}
		case loader.StateFailed, loader.StateSkipped:
			s.logger.Warn("model not spawned",
				zap.String("path", p.asset.Path),
				zap.Uint32("entity", uint32(p.root)),
				zap.Stringer("state", p.asset.State()),
				zap.Error(p.asset.Err()),
			)
		default:
			models = append(models, p)
		}
	}
	s.pendingModels = models

	textures := s.pendingTextures[:0]
	for _, p := range s.pendingTextures {
		state := p.asset.State()
		if !state.Done() {
			textures = append(textures, p)
			continue
		}
		if state != loader.StateReady {
			s.logger.Warn("texture not loaded, drawing untextured",
				zap.String("path", p.asset.Path), zap.String("material", p.mat.Name()), zap.Error(p.asset.Err()))
			continue
		}
		id, ok := s.textures[p.asset.Path]
		if !ok {
			var err error
			id, err = s.device.UploadTexture(p.asset.Path, p.asset.Texture())
			if err != nil {
				s.logger.Warn("texture upload failed", zap.String("path", p.asset.Path), zap.Error(err))
				continue
			}
			s.textures[p.asset.Path] = id
		}
		p.mat.SetTexture(id)
	}
	s.pendingTextures = textures

	return errors.Join(errs...)
}

func (s *scene) Tick(dt, t float64) error {
	s.scripts.Update(dt, t)
	physics.Step(s.bodies, s.spatials, dt, s.gravity)
	if err := s.anim.Update(t); err != nil {
		return fmt.Errorf("animation at t=%.4f: %w", t, err)
	}
	return nil
}

func (s *scene) Inputs() renderer.Inputs {
	return renderer.Inputs{
		Drawables:  s.drawables,
		Spatials:   s.spatials,
		Animations: s.anim.Components(),
		Materials:  s.materials,
		Compose:    s.compose,
		Lights:     s.lights,
	}
}

func (s *scene) Passes() []renderer.PassConfig {
	view := renderer.View{
		View:       s.camera.ViewMatrix(),
		Projection: s.camera.ProjectionMatrix(),
		Position:   s.camera.Position(),
	}
	passes := make([]renderer.PassConfig, 0, 3)

	if h, caster := light.ShadowCaster(s.lights); caster != nil {
		s.compose.BeginFrame()
		world, err := s.compose.ModelMatrix(h)
		if err != nil {
			s.logger.Warn("shadow caster has no world transform", zap.Uint32("entity", uint32(h)), zap.Error(err))
		} else {
			center := mgl32.Vec3{}
			if ctrl := s.camera.Controller(); ctrl != nil {
				center = ctrl.Target()
			}
			dir := light.WorldDirection(caster, world)
			lv, lp := light.ShadowView(dir, center, s.shadowExtent)
			passes = append(passes, renderer.PassConfig{
				Name:   "shadow",
				Pass:   model.PassShadowcaster,
				Mode:   renderer.ModeDepth,
				Camera: renderer.View{View: lv, Projection: lp, Position: center.Sub(dir.Mul(light.DefaultShadowFar / 2))},
				Group:  shadowGroup,
			})
		}
	}

	passes = append(passes,
		renderer.PassConfig{Name: "deferred", Pass: model.PassDeferred, Mode: renderer.ModeRegular, Camera: view, Group: colorGroup, Lit: true},
		renderer.PassConfig{Name: "forward", Pass: model.PassForward, Mode: renderer.ModeRegular, Camera: view, Group: colorGroup, Lit: true},
	)
	return passes
}

func (s *scene) Render(ctx *renderer.RenderContext) error {
	s.camera.Update()
	if rig := s.spatials.Peek(s.rig); rig != nil {
		rig.Position = s.camera.Position()
	}
	return s.renderer.RenderFrame(ctx, s.Passes(), s.Inputs())
}

func (s *scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.camera.SetAspect(float32(width) / float32(height))
	s.device.Resize(width, height)
}

func (s *scene) Reset() error {
	s.registry.Reset()
	s.spatials.Reset()
	s.drawables.Reset()
	s.lights.Reset()
	s.bodies.Reset()
	s.behaviors.Reset()
	s.anim.Reset()
	s.compose.BeginFrame()
	s.pendingModels = nil
	return s.createInternal()
}

func (s *scene) Close() {
	if s.ownsLoader && s.loader != nil {
		s.loader.Shutdown()
	}
	if s.scripts != nil {
		s.scripts.Close()
	}
	s.device.Release()
}
