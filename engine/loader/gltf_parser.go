package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidGLTF is returned for malformed glTF JSON, GLB containers or accessors.
	ErrInvalidGLTF = errors.New("loader: invalid glTF")

	// ErrUnsupportedGLTF is returned for valid glTF features the importer does not read.
	ErrUnsupportedGLTF = errors.New("loader: unsupported glTF feature")
)

// gltfParser holds a decoded document with its buffers resolved and reads typed accessor data.
type gltfParser struct {
	baseDir string
	doc     *gltfDocument
}

// parseGLTFFile reads a .gltf or .glb file. External buffers and images resolve against the
// file's directory.
func parseGLTFFile(path string) (*gltfParser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseGLTFBytes(data, filepath.Dir(path))
}

// parseGLTFBytes decodes glTF JSON or a GLB container, detected by the GLB magic.
func parseGLTFBytes(data []byte, baseDir string) (*gltfParser, error) {
	p := &gltfParser{baseDir: baseDir}

	jsonData, bin := data, []byte(nil)
	if isGLB(data) {
		var err error
		jsonData, bin, err = splitGLB(data)
		if err != nil {
			return nil, err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGLTF, err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: asset version %q", ErrUnsupportedGLTF, doc.Asset.Version)
	}
	p.doc = &doc

	for i := range doc.Buffers {
		b := &doc.Buffers[i]
		switch {
		case b.URI == "" && i == 0 && bin != nil:
			b.data = bin
		case b.URI == "":
			return nil, fmt.Errorf("%w: buffer %d has no data", ErrInvalidGLTF, i)
		default:
			raw, _, err := p.resolveURI(b.URI)
			if err != nil {
				return nil, fmt.Errorf("buffer %d: %w", i, err)
			}
			b.data = raw
		}
		if len(b.data) < b.ByteLength {
			return nil, fmt.Errorf("%w: buffer %d holds %d of %d bytes", ErrInvalidGLTF, i, len(b.data), b.ByteLength)
		}
	}
	return p, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("%w: GLB header truncated", ErrInvalidGLTF)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: GLB version %d", ErrUnsupportedGLTF, v)
	}
	total := min(int(binary.LittleEndian.Uint32(data[8:])), len(data))

	for off := 12; off+8 <= total; {
		length := int(binary.LittleEndian.Uint32(data[off:]))
		kind := binary.LittleEndian.Uint32(data[off+4:])
		start := off + 8
		if start+length > total {
			return nil, nil, fmt.Errorf("%w: GLB chunk at %d overruns file", ErrInvalidGLTF, off)
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = data[start : start+length]
		case glbChunkBIN:
			binChunk = data[start : start+length]
		}
		off = start + length
	}
	if jsonChunk == nil {
		return nil, nil, fmt.Errorf("%w: GLB has no JSON chunk", ErrInvalidGLTF)
	}
	return jsonChunk, binChunk, nil
}

// resolveURI returns the bytes behind a data: URI, or reads a path relative to baseDir.
// The second result is the data URI media type, empty for files.
func (p *gltfParser) resolveURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(uri)))
		return data, "", err
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: data URI without payload", ErrInvalidGLTF)
	}
	mediaType, enc, _ := strings.Cut(header, ";")
	if enc != "base64" {
		return nil, "", fmt.Errorf("%w: data URI encoding %q", ErrUnsupportedGLTF, header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidGLTF, err)
	}
	return data, mediaType, nil
}

// bufferView returns the raw bytes of a buffer view.
func (p *gltfParser) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(p.doc.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view %d out of range", ErrInvalidGLTF, index)
	}
	bv := &p.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(p.doc.Buffers) {
		return nil, fmt.Errorf("%w: buffer view %d references buffer %d", ErrInvalidGLTF, index, bv.Buffer)
	}
	data := p.doc.Buffers[bv.Buffer].data
	if bv.ByteOffset+bv.ByteLength > len(data) {
		return nil, fmt.Errorf("%w: buffer view %d overruns its buffer", ErrInvalidGLTF, index)
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

// elements returns the accessor's elements as byte slices plus its component count and size.
func (p *gltfParser) elements(index int, wantType string) ([][]byte, *gltfAccessor, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, nil, fmt.Errorf("%w: accessor %d out of range", ErrInvalidGLTF, index)
	}
	acc := &p.doc.Accessors[index]
	if wantType != "" && acc.Type != wantType {
		return nil, nil, fmt.Errorf("%w: accessor %d is %s, want %s", ErrInvalidGLTF, index, acc.Type, wantType)
	}
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("%w: sparse accessor %d", ErrUnsupportedGLTF, index)
	}
	if acc.BufferView == nil {
		return nil, nil, fmt.Errorf("%w: accessor %d has no buffer view", ErrUnsupportedGLTF, index)
	}
	view, err := p.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, err
	}

	size := componentSize(acc.ComponentType) * gltfTypeComponents[acc.Type]
	if size == 0 {
		return nil, nil, fmt.Errorf("%w: accessor %d component type %d, type %s", ErrInvalidGLTF, index, acc.ComponentType, acc.Type)
	}
	stride := size
	if s := p.doc.BufferViews[*acc.BufferView].ByteStride; s != nil && *s > 0 {
		stride = *s
	}

	out := make([][]byte, acc.Count)
	for i := range out {
		start := acc.ByteOffset + i*stride
		if start+size > len(view) {
			return nil, nil, fmt.Errorf("%w: accessor %d overruns its buffer view", ErrInvalidGLTF, index)
		}
		out[i] = view[start : start+size]
	}
	return out, acc, nil
}

// readFloats reads an accessor as float32 components, n per element. Normalized integer
// components are mapped to [0,1] or [-1,1].
func (p *gltfParser) readFloats(index int, accType string) ([]float32, error) {
	elems, acc, err := p.elements(index, accType)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltfFloat && !acc.Normalized {
		return nil, fmt.Errorf("%w: accessor %d is not float", ErrInvalidGLTF, index)
	}
	n := gltfTypeComponents[acc.Type]
	cs := componentSize(acc.ComponentType)
	out := make([]float32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			out = append(out, decodeComponent(e[c*cs:], acc.ComponentType))
		}
	}
	return out, nil
}

// readUints reads an unsigned integer accessor.
func (p *gltfParser) readUints(index int, accType string) ([]uint32, error) {
	elems, acc, err := p.elements(index, accType)
	if err != nil {
		return nil, err
	}
	n := gltfTypeComponents[acc.Type]
	out := make([]uint32, 0, len(elems)*n)
	for _, e := range elems {
		for c := range n {
			switch acc.ComponentType {
			case gltfUnsignedByte:
				out = append(out, uint32(e[c]))
			case gltfUnsignedShort:
				out = append(out, uint32(binary.LittleEndian.Uint16(e[c*2:])))
			case gltfUnsignedInt:
				out = append(out, binary.LittleEndian.Uint32(e[c*4:]))
			default:
				return nil, fmt.Errorf("%w: accessor %d is not unsigned", ErrInvalidGLTF, index)
			}
		}
	}
	return out, nil
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfByte, gltfUnsignedByte:
		return 1
	case gltfShort, gltfUnsignedShort:
		return 2
	case gltfUnsignedInt, gltfFloat:
		return 4
	}
	return 0
}

// decodeComponent reads one float or normalized integer component.
func decodeComponent(b []byte, componentType int) float32 {
	switch componentType {
	case gltfFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfUnsignedByte:
		return float32(b[0]) / 255
	case gltfByte:
		return max(float32(int8(b[0]))/127, -1)
	case gltfUnsignedShort:
		return float32(binary.LittleEndian.Uint16(b)) / 65535
	case gltfShort:
		return max(float32(int16(binary.LittleEndian.Uint16(b)))/32767, -1)
	}
	return 0
}

// isGLB reports whether data starts with the GLB magic.
func isGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}
