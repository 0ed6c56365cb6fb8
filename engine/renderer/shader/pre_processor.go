// pre_processor.go implements the Oxy WGSL shader pre-processor. It replaces
// //@oxy:include <name> lines with shared WGSL snippets so every engine shader agrees on
// the vertex input layout and the uniform block.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "//@oxy:"

var (
	//go:embed assets/vertex.wgsl
	vertexSource string

	//go:embed assets/uniforms.wgsl
	uniformsSource string

	//go:embed assets/depth_uniforms.wgsl
	depthUniformsSource string

	//go:embed assets/skinning.wgsl
	skinningSource string

	//go:embed assets/lighting.wgsl
	lightingSource string
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps @oxy:include arguments to the WGSL they expand to.
	includes map[string]string
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process replaces each //@oxy:include <name> line with the registered snippet.
	// Each snippet is included at most once; later includes of the same name expand to nothing.
	//
	// Parameters:
	//   - source: WGSL source containing annotations
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of an unknown or malformed annotation
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's shared snippets registered:
// vertex, uniforms, depth_uniforms, skinning and lighting.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		includes: map[string]string{
			"vertex":         vertexSource,
			"uniforms":       uniformsSource,
			"depth_uniforms": depthUniformsSource,
			"skinning":       skinningSource,
			"lighting":       lightingSource,
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
		if !ok {
			out = append(out, line)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) != 2 || fields[0] != "include" {
			return "", fmt.Errorf("line %d: malformed annotation %q", i+1, strings.TrimSpace(line))
		}
		snippet, ok := p.includes[fields[1]]
		if !ok {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, fields[1])
		}
		if seen[fields[1]] {
			continue
		}
		seen[fields[1]] = true
		out = append(out, snippet)
	}
	return strings.Join(out, "\n"), nil
}
