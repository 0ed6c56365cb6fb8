package material

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// UnknownName is the name of the fallback material every Library holds.
const UnknownName = "unknown"

var (
	// ErrNoShader is returned when a material is added without a shader.
	ErrNoShader = errors.New("material: no shader")

	// ErrUnknownShader is returned when a material file names a shader the registry lacks.
	ErrUnknownShader = errors.New("material: unknown shader")
)

// unknownColor is the magenta that marks geometry whose material could not be found.
var unknownColor = [4]float32{1, 0, 1, 1}

// Library holds materials by name. Lookups never fail: a miss returns the "unknown" material.
type Library struct {
	materials map[string]Material
	order     []string
	logger    *zap.Logger
}

// NewLibrary creates a library holding only the "unknown" fallback material.
//
// Parameters:
//   - fallback: the shader the unknown material draws with
//   - logger: logger for lookup misses, may be nil
//
// Returns:
//   - *Library: the library
//   - error: ErrNoShader when fallback is nil
func NewLibrary(fallback shader.Shader, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{materials: make(map[string]Material), logger: logger}
	err := l.Add(NewMaterial(WithName(UnknownName), WithBaseColor(unknownColor), WithShader(fallback)))
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Add registers m, replacing any material with the same name.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - error: ErrNoShader when m has no shader
func (l *Library) Add(m Material) error {
	if m.Shader() == nil {
		return fmt.Errorf("%s: %w", m.Name(), ErrNoShader)
	}
	if _, ok := l.materials[m.Name()]; !ok {
		l.order = append(l.order, m.Name())
	}
	l.materials[m.Name()] = m
	return nil
}

// FindByName returns the material called name, or the unknown material when there is none.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - Material: the material, never nil
func (l *Library) FindByName(name string) Material {
	if m, ok := l.materials[name]; ok {
		return m
	}
	l.logger.Debug("material not found, using fallback", zap.String("material", name))
	return l.materials[UnknownName]
}

// Lookup returns the material called name without falling back.
func (l *Library) Lookup(name string) (Material, bool) {
	m, ok := l.materials[name]
	return m, ok
}

// Unknown returns the fallback material.
func (l *Library) Unknown() Material {
	return l.materials[UnknownName]
}

// All returns every material in insertion order.
func (l *Library) All() []Material {
	out := make([]Material, 0, len(l.order))
	for _, n := range l.order {
		out = append(out, l.materials[n])
	}
	return out
}

// Len returns the number of materials including the fallback.
func (l *Library) Len() int {
	return len(l.materials)
}

// AddImported registers an imported material with the given shader unless a material with the
// same name already exists. Configured materials take precedence over model files.
//
// Returns:
//   - bool: true when the material was added
func (l *Library) AddImported(im common.ImportedMaterial, s shader.Shader) (bool, error) {
	if _, ok := l.materials[im.Name]; ok || im.Name == "" {
		return false, nil
	}
	m := NewMaterial(
		WithName(im.Name),
		WithBaseColor(im.BaseColor),
		WithDiffuseTexture(im.DiffuseTexture),
		WithShader(s),
	)
	return true, l.Add(m)
}

// fileEntry is one material in a YAML material file.
type fileEntry struct {
	Name        string      `yaml:"name"`
	Shader      string      `yaml:"shader"`
	DepthShader string      `yaml:"depth_shader"`
	BaseColor   *[4]float32 `yaml:"base_color"`
	Metallic    float32     `yaml:"metallic"`
	Roughness   *float32    `yaml:"roughness"`
	Texture     string      `yaml:"texture"`
}

type file struct {
	Materials []fileEntry `yaml:"materials"`
}

// LoadYAML adds the materials described by a YAML document:
//
//	materials:
//	  - name: brick
//	    shader: standard
//	    depth_shader: standard_depth
//	    base_color: [0.8, 0.3, 0.2, 1]
//	    texture: textures/brick.png
//
// An empty shader means the standard shader. Relative texture paths resolve against baseDir.
//
// Parameters:
//   - data: the YAML document
//   - baseDir: directory relative texture paths are resolved against
//   - shaders: registry the shader names are resolved in
//
// Returns:
//   - int: the number of materials added
//   - error: a decode error, or ErrUnknownShader
func (l *Library) LoadYAML(data []byte, baseDir string, shaders *shader.Registry) (int, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("decode materials: %w", err)
	}
	for i, e := range f.Materials {
		if e.Name == "" {
			return i, fmt.Errorf("material %d: missing name", i)
		}
		s, ok := shaders.Get(common.Coalesce(e.Shader, shader.Standard))
		if !ok {
			return i, fmt.Errorf("material %s: %q: %w", e.Name, e.Shader, ErrUnknownShader)
		}
		opts := []MaterialBuilderOption{WithName(e.Name), WithShader(s), WithMetallic(e.Metallic)}
		if e.DepthShader != "" {
			ds, ok := shaders.Get(e.DepthShader)
			if !ok {
				return i, fmt.Errorf("material %s: %q: %w", e.Name, e.DepthShader, ErrUnknownShader)
			}
			opts = append(opts, WithDepthShader(ds))
		}
		if e.BaseColor != nil {
			opts = append(opts, WithBaseColor(*e.BaseColor))
		}
		if e.Roughness != nil {
			opts = append(opts, WithRoughness(*e.Roughness))
		}
		if e.Texture != "" {
			path := e.Texture
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			opts = append(opts, WithDiffuseTexture(&common.ImportedTexture{Name: e.Name, Path: path}))
		}
		if err := l.Add(NewMaterial(opts...)); err != nil {
			return i, err
		}
	}
	return len(f.Materials), nil
}

// LoadFile reads a YAML material file with LoadYAML, resolving textures next to the file.
func (l *Library) LoadFile(path string, shaders *shader.Registry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read materials %s: %w", path, err)
	}
	n, err := l.LoadYAML(data, filepath.Dir(path), shaders)
	if err != nil {
		return n, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
