package renderer

import (
	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
)

// Mode selects which shader a pass draws with.
type Mode int

const (
	// ModeRegular draws with each material's shader.
	ModeRegular Mode = iota

	// ModeDepth draws with each material's depth shader, or the renderer's standard depth
	// shader when the material has none.
	ModeDepth
)

func (m Mode) String() string {
	if m == ModeDepth {
		return "depth"
	}
	return "regular"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// Device is the graphics API the renderer drives. Implementations copy the current
// program's uniform staging block (shader.Shader.Uniforms) when a draw is issued, so the
// renderer only stages values and then draws.
//
// A Device is used from the main thread only.
type Device interface {
	// UploadMesh creates the vertex and index buffers for m and marks it uploaded.
	//
	// Parameters:
	//   - m: the mesh to upload
	//
	// Returns:
	//   - error: an error if buffer creation fails
	UploadMesh(m *model.Mesh) error

	// ReleaseMesh frees the buffers of an uploaded mesh and marks it released.
	ReleaseMesh(m *model.Mesh)

	// CreateProgram compiles s and attaches the resulting program id to it.
	//
	// Parameters:
	//   - s: the shader to compile
	//
	// Returns:
	//   - shader.ProgramID: the new program
	//   - error: an error if compilation fails
	CreateProgram(s shader.Shader) (shader.ProgramID, error)

	// UseProgram makes id the program subsequent draws use.
	UseProgram(id shader.ProgramID) error

	// BindTexture binds a texture to a texture unit of the current program. Texture zero
	// binds the device's default white texture.
	BindTexture(unit uint32, texture shader.TextureID) error

	// UploadTexture creates a sampled RGBA texture.
	//
	// Parameters:
	//   - name: a label for the texture
	//   - data: the decoded pixels
	//
	// Returns:
	//   - shader.TextureID: the new texture
	//   - error: an error if the texture could not be created
	UploadTexture(name string, data common.TextureStagingData) (shader.TextureID, error)

	// BeginFrame acquires the next frame's render target.
	BeginFrame() error

	// BeginPass opens a pass. Depth passes render depth only.
	//
	// Parameters:
	//   - name: the pass name, used for labels and statistics
	//   - mode: the pass mode
	//
	// Returns:
	//   - error: an error if no frame is open or a pass is already open
	BeginPass(name string, mode Mode) error

	// EndPass closes the open pass.
	EndPass() error

	// DrawIndexed draws an indexed mesh with the current program.
	DrawIndexed(m *model.Mesh) error

	// DrawArrays draws a non-indexed mesh with the current program.
	DrawArrays(m *model.Mesh) error

	// EndFrame submits the frame's work and presents it.
	EndFrame() error

	// Resize reconfigures the render target for a new surface size.
	Resize(width, height int)

	// Release frees every device resource.
	Release()
}
