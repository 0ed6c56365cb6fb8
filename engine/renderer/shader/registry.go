package shader

import (
	_ "embed"
	"fmt"
	"sort"
)

// Built-in shader names.
const (
	Standard      = "standard"
	StandardDepth = "standard_depth"
	Unlit         = "unlit"
)

var (
	//go:embed assets/standard.wgsl
	standardSource string

	//go:embed assets/standard_depth.wgsl
	standardDepthSource string

	//go:embed assets/unlit.wgsl
	unlitSource string
)

// Registry holds shaders by name.
type Registry struct {
	shaders map[string]Shader
}

// NewRegistry creates a registry holding the built-in shaders.
//
// Returns:
//   - *Registry: the registry
//   - error: a parse error in a built-in shader
func NewRegistry() (*Registry, error) {
	r := &Registry{shaders: make(map[string]Shader)}
	builtins := []struct{ name, source string }{
		{Standard, standardSource},
		{StandardDepth, standardDepthSource},
		{Unlit, unlitSource},
	}
	for _, b := range builtins {
		s, err := NewShader(b.name, b.source)
		if err != nil {
			return nil, fmt.Errorf("built-in shader: %w", err)
		}
		r.Add(s)
	}
	return r, nil
}

// Add registers s, replacing any shader with the same name.
func (r *Registry) Add(s Shader) {
	r.shaders[s.Name()] = s
}

// Get returns the shader called name.
func (r *Registry) Get(name string) (Shader, bool) {
	s, ok := r.shaders[name]
	return s, ok
}

// Names returns every registered name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.shaders))
	for n := range r.shaders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every shader ordered by name.
func (r *Registry) All() []Shader {
	out := make([]Shader, 0, len(r.shaders))
	for _, n := range r.Names() {
		out = append(out, r.shaders[n])
	}
	return out
}

// Has reports whether a shader called name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.shaders[name]
	return ok
}
