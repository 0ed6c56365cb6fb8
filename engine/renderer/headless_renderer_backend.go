package renderer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
)

var (
	// ErrNoFrame is returned when a pass or draw is issued outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("renderer: no frame open")

	// ErrNoPass is returned when a draw is issued outside BeginPass/EndPass.
	ErrNoPass = errors.New("renderer: no pass open")

	// ErrUnknownProgram is returned when a program id was not created by the device.
	ErrUnknownProgram = errors.New("renderer: unknown program")

	// ErrMeshNotUploaded is returned when drawing a mesh the device has no buffers for.
	ErrMeshNotUploaded = errors.New("renderer: mesh not uploaded")
)

// DrawRecord is one draw captured by a HeadlessDevice.
type DrawRecord struct {
	Pass     string
	Mode     Mode
	Program  shader.ProgramID
	Shader   string
	Mesh     *model.Mesh
	Indexed  bool
	Count    int
	Textures map[uint32]shader.TextureID
	// Uniforms is a copy of the program's staging block at draw time.
	Uniforms []byte
}

// HeadlessDevice is a Device without a GPU. It records every pass, program bind and draw,
// which makes it the device for tests and for running scenes without a window.
type HeadlessDevice struct {
	Draws        []DrawRecord
	Passes       []string
	ProgramBinds int
	TextureBinds int
	Frames       int

	programs    map[shader.ProgramID]shader.Shader
	textures    map[shader.TextureID]common.TextureStagingData
	units       map[uint32]shader.TextureID
	current     shader.ProgramID
	nextBuffer  uint32
	inFrame     bool
	pass        string
	passMode    Mode
	inPass      bool
	width       int
	height      int
	liveBuffers int
}

var _ Device = &HeadlessDevice{}

// NewHeadlessDevice creates an empty recording device.
func NewHeadlessDevice() *HeadlessDevice {
	return &HeadlessDevice{
		programs: make(map[shader.ProgramID]shader.Shader),
		textures: make(map[shader.TextureID]common.TextureStagingData),
		units:    make(map[uint32]shader.TextureID),
	}
}

// Reset drops the recorded draws, passes and counters but keeps programs, textures and meshes.
func (d *HeadlessDevice) Reset() {
	d.Draws = nil
	d.Passes = nil
	d.ProgramBinds = 0
	d.TextureBinds = 0
}

// LiveBuffers returns the number of mesh buffers currently allocated.
func (d *HeadlessDevice) LiveBuffers() int {
	return d.liveBuffers
}

// Size returns the last size passed to Resize.
func (d *HeadlessDevice) Size() (int, int) {
	return d.width, d.height
}

func (d *HeadlessDevice) UploadMesh(m *model.Mesh) error {
	if len(m.Vertices) == 0 {
		return fmt.Errorf("mesh %s: no vertices", m.Name)
	}
	d.nextBuffer++
	vb := d.nextBuffer
	d.liveBuffers++
	var ib uint32
	if m.Indexed() {
		d.nextBuffer++
		ib = d.nextBuffer
		d.liveBuffers++
	}
	m.MarkUploaded(vb, ib)
	return nil
}

func (d *HeadlessDevice) ReleaseMesh(m *model.Mesh) {
	if !m.Uploaded() {
		return
	}
	_, ib := m.Buffers()
	d.liveBuffers--
	if ib != 0 {
		d.liveBuffers--
	}
	m.MarkReleased()
}

func (d *HeadlessDevice) CreateProgram(s shader.Shader) (shader.ProgramID, error) {
	id := shader.ProgramID(len(d.programs) + 1)
	d.programs[id] = s
	s.Attach(id, d)
	return id, nil
}

func (d *HeadlessDevice) UseProgram(id shader.ProgramID) error {
	if _, ok := d.programs[id]; !ok {
		return fmt.Errorf("program %d: %w", id, ErrUnknownProgram)
	}
	d.current = id
	d.ProgramBinds++
	clear(d.units)
	return nil
}

func (d *HeadlessDevice) BindTexture(unit uint32, texture shader.TextureID) error {
	if d.current == shader.NoProgram {
		return fmt.Errorf("bind texture: %w", ErrUnknownProgram)
	}
	if _, ok := d.textures[texture]; texture != 0 && !ok {
		return fmt.Errorf("texture %d not uploaded", texture)
	}
	d.units[unit] = texture
	d.TextureBinds++
	return nil
}

func (d *HeadlessDevice) UploadTexture(name string, data common.TextureStagingData) (shader.TextureID, error) {
	if int(data.Width)*int(data.Height)*4 != len(data.Pixels) {
		return 0, fmt.Errorf("texture %s: %dx%d does not match %d bytes", name, data.Width, data.Height, len(data.Pixels))
	}
	id := shader.TextureID(len(d.textures) + 1)
	d.textures[id] = data
	return id, nil
}

func (d *HeadlessDevice) BeginFrame() error {
	if d.inFrame {
		return errors.New("renderer: previous frame not ended")
	}
	d.inFrame = true
	return nil
}

func (d *HeadlessDevice) BeginPass(name string, mode Mode) error {
	if !d.inFrame {
		return ErrNoFrame
	}
	if d.inPass {
		return fmt.Errorf("pass %s: pass %s still open", name, d.pass)
	}
	d.inPass = true
	d.pass = name
	d.passMode = mode
	d.Passes = append(d.Passes, name)
	return nil
}

func (d *HeadlessDevice) EndPass() error {
	if !d.inPass {
		return ErrNoPass
	}
	d.inPass = false
	return nil
}

func (d *HeadlessDevice) DrawIndexed(m *model.Mesh) error {
	return d.record(m, true)
}

func (d *HeadlessDevice) DrawArrays(m *model.Mesh) error {
	return d.record(m, false)
}

func (d *HeadlessDevice) record(m *model.Mesh, indexed bool) error {
	if !d.inPass {
		return ErrNoPass
	}
	s, ok := d.programs[d.current]
	if !ok {
		return fmt.Errorf("draw %s: %w", m.Name, ErrUnknownProgram)
	}
	if !m.Uploaded() {
		return fmt.Errorf("draw %s: %w", m.Name, ErrMeshNotUploaded)
	}
	units := make(map[uint32]shader.TextureID, len(d.units))
	for k, v := range d.units {
		units[k] = v
	}
	d.Draws = append(d.Draws, DrawRecord{
		Pass:     d.pass,
		Mode:     d.passMode,
		Program:  d.current,
		Shader:   s.Name(),
		Mesh:     m,
		Indexed:  indexed,
		Count:    m.ElementCount(),
		Textures: units,
		Uniforms: slices.Clone(s.Uniforms()),
	})
	return nil
}

func (d *HeadlessDevice) EndFrame() error {
	if !d.inFrame {
		return ErrNoFrame
	}
	if d.inPass {
		return fmt.Errorf("end frame: pass %s still open", d.pass)
	}
	d.inFrame = false
	d.Frames++
	return nil
}

func (d *HeadlessDevice) Resize(width, height int) {
	d.width, d.height = width, height
}

func (d *HeadlessDevice) Release() {
	clear(d.programs)
	clear(d.textures)
	d.liveBuffers = 0
}
