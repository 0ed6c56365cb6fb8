package renderer

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameStats counts what the renderer did during one frame.
type FrameStats struct {
	Draws        int
	ProgramBinds int
	// Skipped counts drawables passed over because they were not valid.
	Skipped int
	// UniformErrors counts uniform pushes that failed and were skipped.
	UniformErrors int
}

// Add accumulates o into s.
func (s *FrameStats) Add(o FrameStats) {
	s.Draws += o.Draws
	s.ProgramBinds += o.ProgramBinds
	s.Skipped += o.Skipped
	s.UniformErrors += o.UniformErrors
}

// RenderContext carries the program-bind state across the passes of a frame. Passes in the
// same group share it, so consecutive passes that use the same shader do not rebind it.
// A RenderContext is used by one goroutine.
type RenderContext struct {
	lastProgram shader.ProgramID
	lastTexture shader.TextureID
	bones       []mgl32.Mat4

	// Stats accumulates since the last BeginFrame.
	Stats FrameStats
}

// NewRenderContext creates a context with no program bound.
func NewRenderContext() *RenderContext {
	return &RenderContext{bones: make([]mgl32.Mat4, 0, 64)}
}

// BeginFrame forgets the bound program and clears the statistics.
func (c *RenderContext) BeginFrame() {
	c.BeginPassGroup()
	c.Stats = FrameStats{}
}

// BeginPassGroup forgets the bound program so the next draw binds its shader again.
func (c *RenderContext) BeginPassGroup() {
	c.lastProgram = shader.NoProgram
	c.lastTexture = 0
}

// LastProgram returns the program bound by the most recent draw of the current group.
func (c *RenderContext) LastProgram() shader.ProgramID {
	return c.lastProgram
}
