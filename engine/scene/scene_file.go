package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-ecs/engine/behavior"
	"github.com/Carmen-Shannon/oxy-ecs/engine/camera"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/light"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownParent is returned when an entity names a parent not defined before it.
	ErrUnknownParent = errors.New("scene: unknown parent")

	// ErrUnknownMesh is returned when an entity names a mesh that is not a built-in primitive.
	ErrUnknownMesh = errors.New("scene: unknown mesh")

	// ErrDuplicateName is returned when two entities share a name.
	ErrDuplicateName = errors.New("scene: duplicate entity name")
)

// defaultPasses is used for drawables that list no passes.
const defaultPasses = model.PassDeferred | model.PassShadowcaster

type fileCamera struct {
	Target    *[3]float32 `yaml:"target"`
	Radius    float32     `yaml:"radius"`
	Azimuth   float32     `yaml:"azimuth"`   // degrees
	Elevation *float32    `yaml:"elevation"` // degrees
	Fov       float32     `yaml:"fov"`       // degrees
	Near      float32     `yaml:"near"`
	Far       float32     `yaml:"far"`
}

type fileLight struct {
	Type      string      `yaml:"type"`
	Color     *[3]float32 `yaml:"color"`
	Intensity *float32    `yaml:"intensity"`
	Range     float32     `yaml:"range"`
	Direction *[3]float32 `yaml:"direction"`
	Inner     float32     `yaml:"inner"` // degrees
	Outer     float32     `yaml:"outer"` // degrees
	Shadows   bool        `yaml:"shadows"`
	Disabled  bool        `yaml:"disabled"`
}

type filePhysics struct {
	Velocity        [3]float32 `yaml:"velocity"`
	AngularVelocity [3]float32 `yaml:"angular_velocity"`
	Gravity         bool       `yaml:"gravity"`
	Damping         float32    `yaml:"damping"`
}

type fileEntity struct {
	Name     string      `yaml:"name"`
	Parent   string      `yaml:"parent"`
	Position [3]float32  `yaml:"position"`
	Rotation [3]float32  `yaml:"rotation"` // euler degrees, XYZ
	Scale    *[3]float32 `yaml:"scale"`

	Mesh     string   `yaml:"mesh"`
	Material string   `yaml:"material"`
	Passes   []string `yaml:"passes"`

	Model string `yaml:"model"`
	Clip  string `yaml:"clip"`

	Light    *fileLight   `yaml:"light"`
	Behavior string       `yaml:"behavior"`
	Physics  *filePhysics `yaml:"physics"`
}

type file struct {
	Materials    string       `yaml:"materials"`
	Scripts      string       `yaml:"scripts"`
	DefaultLight *bool        `yaml:"default_light"`
	Camera       *fileCamera  `yaml:"camera"`
	Entities     []fileEntity `yaml:"entities"`
}

// LoadFile reads a YAML scene description with LoadYAML, resolving paths next to the file.
//
// Parameters:
//   - path: the scene file
//
// Returns:
//   - int: the number of entities created
//   - error: a read, decode or build error
func (s *scene) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read scene %s: %w", path, err)
	}
	n, err := s.LoadYAML(data, filepath.Dir(path))
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// LoadYAML builds user entities from a YAML scene description:
//
//	materials: materials.yaml
//	scripts: scripts
//	camera: {target: [0, 1, 0], radius: 6, elevation: 20}
//	entities:
//	  - name: floor
//	    mesh: plane
//	    material: ground
//	    passes: [deferred, shadowcaster]
//	  - name: fox
//	    model: models/fox.glb
//	    clip: Run
//	    scale: [0.02, 0.02, 0.02]
//	  - name: spinner
//	    parent: floor
//	    mesh: cube
//	    position: [0, 1, 0]
//	    behavior: spin
//	    physics: {angular_velocity: [0, 1, 0]}
//
// Parents must be defined before their children. Models are queued on the loader and
// spawned by Poll; relative paths resolve against baseDir.
//
// Parameters:
//   - data: the YAML document
//   - baseDir: directory relative paths are resolved against
//
// Returns:
//   - int: the number of entities created
//   - error: a decode error or the first invalid entity
func (s *scene) LoadYAML(data []byte, baseDir string) (int, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("decode scene: %w", err)
	}

	if f.Materials != "" {
		if _, err := s.materials.LoadFile(resolve(baseDir, f.Materials), s.shaders); err != nil {
			return 0, err
		}
	}
	s.requestTextures()
	if f.Scripts != "" {
		if err := s.scripts.LoadDir(resolve(baseDir, f.Scripts)); err != nil {
			return 0, fmt.Errorf("load scripts: %w", err)
		}
	}
	if f.DefaultLight != nil {
		s.lights.Get(s.defaultLight).Enabled = *f.DefaultLight
	}
	if f.Camera != nil {
		s.applyCamera(f.Camera)
	}

	names := make(map[string]ecs.Handle, len(f.Entities))
	for i := range f.Entities {
		e := &f.Entities[i]
		h, err := s.buildEntity(e, names, baseDir)
		if err != nil {
			return i, fmt.Errorf("entity %d %q: %w", i, e.Name, err)
		}
		if e.Name != "" {
			names[e.Name] = h
		}
	}
	s.logger.Info("scene loaded", zap.Int("entities", len(f.Entities)), zap.Int("pending", s.Pending()))
	return len(f.Entities), nil
}

func (s *scene) buildEntity(e *fileEntity, names map[string]ecs.Handle, baseDir string) (ecs.Handle, error) {
	if _, dup := names[e.Name]; dup && e.Name != "" {
		return ecs.None, ErrDuplicateName
	}
	parent := ecs.None
	if e.Parent != "" {
		p, ok := names[e.Parent]
		if !ok {
			return ecs.None, fmt.Errorf("%q: %w", e.Parent, ErrUnknownParent)
		}
		parent = p
	}

	sc := spatial.NewComponent(mgl32.Vec3(e.Position), parent)
	sc.Rotation = mgl32.AnglesToQuat(
		mgl32.DegToRad(e.Rotation[0]),
		mgl32.DegToRad(e.Rotation[1]),
		mgl32.DegToRad(e.Rotation[2]),
		mgl32.XYZ,
	)
	if e.Scale != nil {
		sc.Scale = mgl32.Vec3(*e.Scale)
	}

	passes := defaultPasses
	if len(e.Passes) > 0 {
		p, err := model.ParseRenderPasses(e.Passes)
		if err != nil {
			return ecs.None, err
		}
		passes = p
	}

	var h ecs.Handle
	switch {
	case e.Model != "":
		h = s.RequestModel(resolve(baseDir, e.Model), sc, passes, e.Clip)
	case e.Mesh != "":
		mesh := model.Primitive(e.Mesh, e.Material)
		if mesh == nil {
			return ecs.None, fmt.Errorf("%q: %w", e.Mesh, ErrUnknownMesh)
		}
		h = s.Spawn(sc)
		if err := s.AddDrawable(h, mesh, passes); err != nil {
			return h, err
		}
	default:
		h = s.Spawn(sc)
	}

	if e.Light != nil {
		c, err := buildLight(e.Light)
		if err != nil {
			return h, err
		}
		s.lights.Set(h, c)
	}
	if e.Behavior != "" {
		s.behaviors.Set(h, behavior.Component{Script: e.Behavior, Enabled: true})
	}
	if e.Physics != nil {
		s.bodies.Set(h, physics.Component{
			Enabled:         true,
			Velocity:        mgl32.Vec3(e.Physics.Velocity),
			AngularVelocity: mgl32.Vec3(e.Physics.AngularVelocity),
			Gravity:         e.Physics.Gravity,
			Damping:         e.Physics.Damping,
		})
	}
	return h, nil
}

func buildLight(fl *fileLight) (light.Component, error) {
	t, err := light.ParseType(fl.Type)
	if err != nil {
		return light.Component{}, err
	}
	opts := []light.ComponentOption{
		light.WithEnabled(!fl.Disabled),
		light.WithCastsShadows(fl.Shadows),
	}
	if fl.Color != nil {
		opts = append(opts, light.WithColor(mgl32.Vec3(*fl.Color)))
	}
	if fl.Intensity != nil {
		opts = append(opts, light.WithIntensity(*fl.Intensity))
	}
	if fl.Range > 0 {
		opts = append(opts, light.WithRange(fl.Range))
	}
	if fl.Direction != nil {
		opts = append(opts, light.WithDirection(mgl32.Vec3(*fl.Direction)))
	}
	if fl.Inner > 0 || fl.Outer > 0 {
		opts = append(opts, light.WithSpotCone(fl.Inner, fl.Outer))
	}
	return light.NewComponent(t, opts...), nil
}

func (s *scene) applyCamera(fc *fileCamera) {
	var opts []camera.CameraControllerOption
	if fc.Target != nil {
		opts = append(opts, camera.WithTarget(mgl32.Vec3(*fc.Target)))
	}
	if fc.Radius > 0 {
		opts = append(opts, camera.WithRadius(fc.Radius))
	}
	opts = append(opts, camera.WithAzimuth(mgl32.DegToRad(fc.Azimuth)))
	if fc.Elevation != nil {
		opts = append(opts, camera.WithElevation(mgl32.DegToRad(*fc.Elevation)))
	}
	s.camera.SetController(camera.NewOrbitController(opts...))

	if fc.Fov > 0 {
		s.camera.SetFov(mgl32.DegToRad(fc.Fov))
	}
	if fc.Near > 0 && fc.Far > fc.Near {
		s.camera.SetClip(fc.Near, fc.Far)
	}
	s.camera.Update()
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
