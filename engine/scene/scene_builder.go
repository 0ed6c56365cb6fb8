package scene

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/camera"
	"github.com/Carmen-Shannon/oxy-ecs/engine/loader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithShaders replaces the built-in shader registry. The registry must hold shader.Standard
// and the configured depth shader.
//
// Parameters:
//   - reg: the shader registry
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaders(reg *shader.Registry) SceneBuilderOption {
	return func(s *scene) {
		s.shaders = reg
	}
}

// WithDepthShader names the shader depth passes use for materials without a depth shader.
// Default is shader.StandardDepth.
//
// Parameters:
//   - name: the shader name in the registry
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDepthShader(name string) SceneBuilderOption {
	return func(s *scene) {
		if name != "" {
			s.depthShaderName = name
		}
	}
}

// WithLoader sets the asset loader. A loader passed in is not shut down by Close.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLoader(l loader.Loader) SceneBuilderOption {
	return func(s *scene) {
		s.loader = l
	}
}

// WithCamera sets the main camera. Default is a perspective camera with an orbit controller.
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithMaxParentDepth bounds the parent chains composed when drawing.
// Default is spatial.DefaultMaxDepth.
func WithMaxParentDepth(depth int) SceneBuilderOption {
	return func(s *scene) {
		s.maxDepth = depth
	}
}

// WithGravity sets the acceleration applied to physics bodies with gravity enabled.
func WithGravity(g mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.gravity = g
	}
}

// WithShadowHalfExtent sets the orthographic half-extent of the directional shadow
// frustum in world units. Larger values capture more of the scene but reduce shadow
// resolution. Default is light.DefaultShadowHalfExtent.
//
// Parameters:
//   - halfExtent: half-size of the shadow frustum in world units
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowHalfExtent(halfExtent float32) SceneBuilderOption {
	return func(s *scene) {
		if halfExtent > 0 {
			s.shadowExtent = halfExtent
		}
	}
}

// WithDefaultLight sets the colour and local direction of the internal directional light.
func WithDefaultLight(color, direction mgl32.Vec3) SceneBuilderOption {
	return func(s *scene) {
		s.lightColor = color
		s.lightDirection = direction
	}
}

// WithLogger sets the logger for the scene and the subsystems it creates.
func WithLogger(logger *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}
