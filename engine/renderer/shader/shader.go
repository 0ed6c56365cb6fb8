package shader

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrNotCompiled is returned when a shader is used before a device has created its program.
var ErrNotCompiled = errors.New("shader: program not created on a device")

// ProgramID identifies a compiled program on a graphics device. Zero means none.
type ProgramID uint32

// NoProgram is the zero ProgramID.
const NoProgram ProgramID = 0

// TextureID identifies a texture on a graphics device. Zero means none.
type TextureID uint32

// TextureBinder binds a texture to a texture unit of the current program.
type TextureBinder interface {
	BindTexture(unit uint32, texture TextureID) error
}

// shader is the implementation of the Shader interface.
type shader struct {
	name    string
	source  string
	parsed  parsedSource
	names   []string
	staging []byte

	program  ProgramID
	binder   TextureBinder
	textures map[uint32]TextureID
}

// Shader is a WGSL program: its source, its uniform block layout and a CPU-side staging copy
// of that block. The renderer writes per-draw values with the Set methods; the device copies
// the staging block when a draw is issued.
type Shader interface {
	// Name returns the shader's unique name, used by materials to refer to it.
	//
	// Returns:
	//   - string: the shader name
	Name() string

	// Source returns the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// VertexEntry returns the @vertex entry point name.
	VertexEntry() string

	// FragmentEntry returns the @fragment entry point name, empty for depth-only shaders.
	FragmentEntry() string

	// Layout returns the uniform block layout parsed from the source.
	//
	// Returns:
	//   - UniformLayout: the block layout
	Layout() UniformLayout

	// TextureSlots returns the texture and sampler bindings of the texture group in binding order.
	TextureSlots() []TextureSlot

	// TextureUnitCount returns the number of textures (not samplers) the shader samples.
	TextureUnitCount() int

	// ProgramID returns the device program, or NoProgram before Attach.
	//
	// Returns:
	//   - ProgramID: the program id
	ProgramID() ProgramID

	// Attach records the program a device created for this shader and the binder used by
	// BindTextureUnits. Devices call this from CreateProgram.
	//
	// Parameters:
	//   - id: the created program
	//   - binder: the device that binds textures for this program
	Attach(id ProgramID, binder TextureBinder)

	// ActiveUniformNames returns the names of all uniforms the shader declares, in block order.
	//
	// Returns:
	//   - []string: the uniform names
	ActiveUniformNames() []string

	// HasUniform reports whether name is one of the active uniforms.
	HasUniform(name string) bool

	// SetMat4 stages a mat4x4 uniform.
	//
	// Parameters:
	//   - name: the uniform name
	//   - m: the value
	//
	// Returns:
	//   - error: ErrUniformNotFound or ErrUniformType
	SetMat4(name string, m mgl32.Mat4) error

	// SetMat3 stages a mat3x3 uniform.
	SetMat3(name string, m mgl32.Mat3) error

	// SetMat4Array stages an array<mat4x4> uniform. Elements past len(ms) are zeroed.
	//
	// Parameters:
	//   - name: the uniform name
	//   - ms: the values
	//
	// Returns:
	//   - error: ErrUniformNotFound, ErrUniformType, or ErrUniformOverflow when ms is longer than the array
	SetMat4Array(name string, ms []mgl32.Mat4) error

	// SetVec3 stages a vec3 uniform.
	SetVec3(name string, v mgl32.Vec3) error

	// SetVec4 stages a vec4 uniform.
	SetVec4(name string, v mgl32.Vec4) error

	// SetVec4Array stages an array<vec4> uniform. Elements past len(vs) are zeroed.
	SetVec4Array(name string, vs []mgl32.Vec4) error

	// SetFloat stages an f32 uniform.
	SetFloat(name string, f float32) error

	// SetInt stages an i32 or u32 uniform. Negative values are rejected for u32.
	SetInt(name string, i int32) error

	// Uniforms returns the staging block. The slice is reused; devices copy it per draw.
	//
	// Returns:
	//   - []byte: the staged uniform block, Layout().Size bytes
	Uniforms() []byte

	// SetTexture assigns a device texture to a texture unit.
	//
	// Parameters:
	//   - unit: index among the shader's textures, in binding order
	//   - texture: the device texture
	SetTexture(unit uint32, texture TextureID)

	// BindTextureUnits binds every assigned texture unit through the device.
	//
	// Returns:
	//   - error: ErrNotCompiled before Attach, or the device's bind error
	BindTextureUnits() error
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source into a Shader.
//
// Parameters:
//   - name: the unique shader name
//   - source: WGSL source, may contain //@oxy:include lines
//
// Returns:
//   - Shader: the parsed shader, not yet created on a device
//   - error: a pre-processing or parse error
func NewShader(name, source string) (Shader, error) {
	processed, err := NewPreProcessor().Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	parsed, err := parseSource(processed)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	s := &shader{
		name:     name,
		source:   processed,
		parsed:   parsed,
		staging:  make([]byte, parsed.layout.Size),
		textures: make(map[uint32]TextureID),
	}
	for _, f := range parsed.layout.Fields {
		s.names = append(s.names, f.Name)
	}
	return s, nil
}

// LoadShader reads a WGSL file and parses it with NewShader.
func LoadShader(name, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader %s: %w", path, err)
	}
	return NewShader(name, string(data))
}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntry() string {
	return s.parsed.vertexEntry
}

func (s *shader) FragmentEntry() string {
	return s.parsed.fragmentEntry
}

func (s *shader) Layout() UniformLayout {
	return s.parsed.layout
}

func (s *shader) TextureSlots() []TextureSlot {
	return s.parsed.textures
}

func (s *shader) TextureUnitCount() int {
	n := 0
	for _, t := range s.parsed.textures {
		if !t.Sampler {
			n++
		}
	}
	return n
}

func (s *shader) ProgramID() ProgramID {
	return s.program
}

func (s *shader) Attach(id ProgramID, binder TextureBinder) {
	s.program = id
	s.binder = binder
}

func (s *shader) ActiveUniformNames() []string {
	return s.names
}

func (s *shader) HasUniform(name string) bool {
	return slices.Contains(s.names, name)
}

func (s *shader) field(name string, kinds ...UniformType) (Uniform, error) {
	f, ok := s.parsed.layout.Field(name)
	if !ok {
		return Uniform{}, fmt.Errorf("%s in %s: %w", name, s.name, ErrUniformNotFound)
	}
	if !slices.Contains(kinds, f.Type) {
		return Uniform{}, fmt.Errorf("%s in %s is %s: %w", name, s.name, f.Type, ErrUniformType)
	}
	return f, nil
}

func (s *shader) SetMat4(name string, m mgl32.Mat4) error {
	f, err := s.field(name, UniformMat4)
	if err != nil {
		return err
	}
	putFloats(s.staging[f.Offset:], m[:]...)
	return nil
}

func (s *shader) SetMat3(name string, m mgl32.Mat3) error {
	f, err := s.field(name, UniformMat3)
	if err != nil {
		return err
	}
	putMat3(s.staging[f.Offset:], m)
	return nil
}

func (s *shader) SetMat4Array(name string, ms []mgl32.Mat4) error {
	f, err := s.field(name, UniformMat4Array)
	if err != nil {
		return err
	}
	dst := s.staging[f.Offset : f.Offset+f.Size]
	clear(dst)
	n := min(len(ms), f.Count)
	for i := range n {
		putFloats(dst[i*64:], ms[i][:]...)
	}
	if len(ms) > f.Count {
		return fmt.Errorf("%s in %s holds %d, got %d: %w", name, s.name, f.Count, len(ms), ErrUniformOverflow)
	}
	return nil
}

func (s *shader) SetVec3(name string, v mgl32.Vec3) error {
	f, err := s.field(name, UniformVec3)
	if err != nil {
		return err
	}
	putFloats(s.staging[f.Offset:], v[:]...)
	return nil
}

func (s *shader) SetVec4(name string, v mgl32.Vec4) error {
	f, err := s.field(name, UniformVec4)
	if err != nil {
		return err
	}
	putFloats(s.staging[f.Offset:], v[:]...)
	return nil
}

func (s *shader) SetVec4Array(name string, vs []mgl32.Vec4) error {
	f, err := s.field(name, UniformVec4Array)
	if err != nil {
		return err
	}
	dst := s.staging[f.Offset : f.Offset+f.Size]
	clear(dst)
	n := min(len(vs), f.Count)
	for i := range n {
		putFloats(dst[i*16:], vs[i][:]...)
	}
	if len(vs) > f.Count {
		return fmt.Errorf("%s in %s holds %d, got %d: %w", name, s.name, f.Count, len(vs), ErrUniformOverflow)
	}
	return nil
}

func (s *shader) SetFloat(name string, v float32) error {
	f, err := s.field(name, UniformFloat)
	if err != nil {
		return err
	}
	putFloats(s.staging[f.Offset:], v)
	return nil
}

func (s *shader) SetInt(name string, i int32) error {
	f, err := s.field(name, UniformInt, UniformUint)
	if err != nil {
		return err
	}
	if f.Type == UniformUint && i < 0 {
		return fmt.Errorf("%s in %s is u32, got %d: %w", name, s.name, i, ErrUniformType)
	}
	putUint(s.staging[f.Offset:], uint32(i))
	return nil
}

func (s *shader) Uniforms() []byte {
	return s.staging
}

func (s *shader) SetTexture(unit uint32, texture TextureID) {
	s.textures[unit] = texture
}

func (s *shader) BindTextureUnits() error {
	if s.binder == nil || s.program == NoProgram {
		return fmt.Errorf("shader %s: %w", s.name, ErrNotCompiled)
	}
	for unit := range uint32(s.TextureUnitCount()) {
		tex, ok := s.textures[unit]
		if !ok {
			continue
		}
		if err := s.binder.BindTexture(unit, tex); err != nil {
			return fmt.Errorf("shader %s unit %d: %w", s.name, unit, err)
		}
	}
	return nil
}
