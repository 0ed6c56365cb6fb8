package shader

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoUniformBlock is returned when a shader declares no @group(0) @binding(0) var<uniform>.
var ErrNoUniformBlock = errors.New("shader: no uniform block at @group(0) @binding(0)")

// UniformGroup is the bind group holding the per-draw uniform block.
const UniformGroup = 0

// TextureGroup is the bind group holding texture units and their samplers.
const TextureGroup = 1

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// wgslPrimitiveLayoutMap maps the WGSL types a uniform block may contain to their size and
// alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// uniformTypeMap maps WGSL element type names to the uniform kinds Set* can write.
var uniformTypeMap = map[string]UniformType{
	"f32":         UniformFloat,
	"i32":         UniformInt,
	"u32":         UniformUint,
	"vec2<f32>":   UniformVec2,
	"vec2f":       UniformVec2,
	"vec3<f32>":   UniformVec3,
	"vec3f":       UniformVec3,
	"vec4<f32>":   UniformVec4,
	"vec4f":       UniformVec4,
	"mat3x3<f32>": UniformMat3,
	"mat3x3f":     UniformMat3,
	"mat4x4<f32>": UniformMat4,
	"mat4x4f":     UniformMat4,
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> u: Uniforms;
	// or handle types: @group(1) @binding(0) var diffuse_texture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name     string
	typeName string
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// parsedSource is everything the engine needs from a WGSL program.
type parsedSource struct {
	vertexEntry, fragmentEntry string
	layout                     UniformLayout
	textures                   []TextureSlot
}

// parseSource extracts entry points, the uniform block layout and the texture slots.
func parseSource(source string) (parsedSource, error) {
	cleaned := stripComments(source)
	var out parsedSource

	if m := vertexEntryRegex.FindStringSubmatch(cleaned); m != nil {
		out.vertexEntry = m[1]
	}
	if m := fragmentEntryRegex.FindStringSubmatch(cleaned); m != nil {
		out.fragmentEntry = m[1]
	}

	structs := make(map[string]parsedStruct)
	for _, ps := range parseStructBlocks(cleaned) {
		structs[ps.name] = ps
	}

	found := false
	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		addressSpace, varName, typeName := strings.TrimSpace(m[3]), m[4], strings.TrimSpace(m[5])

		switch {
		case group == UniformGroup && binding == 0 && addressSpace == "uniform":
			ps, ok := structs[typeName]
			if !ok {
				return parsedSource{}, fmt.Errorf("uniform block %s: struct %q not found", varName, typeName)
			}
			layout, err := computeUniformLayout(ps)
			if err != nil {
				return parsedSource{}, err
			}
			layout.Var = varName
			out.layout = layout
			found = true
		case group == TextureGroup:
			out.textures = append(out.textures, TextureSlot{
				Name:    varName,
				Binding: uint32(binding),
				Sampler: strings.HasPrefix(typeName, "sampler"),
			})
		}
	}
	if !found {
		return parsedSource{}, ErrNoUniformBlock
	}
	return out, nil
}

// computeUniformLayout places each field of the uniform struct at its next aligned offset
// and rounds the block size up to 16 bytes.
func computeUniformLayout(ps parsedStruct) (UniformLayout, error) {
	layout := UniformLayout{Struct: ps.name}
	offset := uint64(0)
	for _, f := range ps.fields {
		u, tl, err := resolveUniform(f)
		if err != nil {
			return UniformLayout{}, fmt.Errorf("struct %s: %w", ps.name, err)
		}
		offset = roundUpAlign(tl.align, offset)
		u.Offset = offset
		u.Size = tl.size
		offset += tl.size
		layout.Fields = append(layout.Fields, u)
	}
	layout.Size = roundUpAlign(16, offset)
	return layout, nil
}

// resolveUniform maps one struct field to its uniform kind and layout. Fixed-size arrays of
// mat4x4 and vec4 are supported; their stride is the element size.
func resolveUniform(f parsedField) (Uniform, wgslTypeLayout, error) {
	if tl, ok := wgslPrimitiveLayoutMap[f.typeName]; ok {
		return Uniform{Name: f.name, Type: uniformTypeMap[f.typeName], Count: 1}, tl, nil
	}
	if inner, ok := strings.CutPrefix(f.typeName, "array<"); ok && strings.HasSuffix(inner, ">") {
		parts := splitAtTopLevelCommas(strings.TrimSuffix(inner, ">"))
		if len(parts) != 2 {
			return Uniform{}, wgslTypeLayout{}, fmt.Errorf("field %s: runtime-sized arrays are not allowed in uniforms", f.name)
		}
		elem := strings.TrimSpace(parts[0])
		count, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || count <= 0 {
			return Uniform{}, wgslTypeLayout{}, fmt.Errorf("field %s: bad array length %q", f.name, parts[1])
		}
		el, ok := wgslPrimitiveLayoutMap[elem]
		var kind UniformType
		switch uniformTypeMap[elem] {
		case UniformMat4:
			kind = UniformMat4Array
		case UniformVec4:
			kind = UniformVec4Array
		default:
			ok = false
		}
		if !ok {
			return Uniform{}, wgslTypeLayout{}, fmt.Errorf("field %s: unsupported array element %q", f.name, elem)
		}
		stride := roundUpAlign(el.align, el.size)
		return Uniform{Name: f.name, Type: kind, Count: count}, wgslTypeLayout{stride * uint64(count), el.align}, nil
	}
	return Uniform{}, wgslTypeLayout{}, fmt.Errorf("field %s: unsupported uniform type %q", f.name, f.typeName)
}

// roundUpAlign rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source.
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{name: match[1], fields: parseStructFields(match[2])})
	}
	return structs
}

// parseStructFields parses the body of a struct block into individual fields.
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			fields = append(fields, parsedField{name: fm[1], typeName: strings.TrimSpace(fm[2])})
		}
	}
	return fields
}

// stripComments removes line and block comments so they do not interfere with parsing.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments, handling nesting per the WGSL specification.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits s on commas that are not nested inside <...>.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
