package renderer

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"go.uber.org/zap"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDepthShader sets the shader depth passes fall back to for materials without a depth shader.
//
// Parameters:
//   - s: the standard depth shader
//
// Returns:
//   - RendererBuilderOption: a function that applies the depth shader option to a renderer
func WithDepthShader(s shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		r.depthShader = s
	}
}

// WithLogger sets the logger used for skipped uniforms.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(logger *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
