package model

type face struct {
	positions [4][3]float32
	normal    [3]float32
}

var cubeFaces = []face{
	{positions: [4][3]float32{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}}, normal: [3]float32{1, 0, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {-0.5, -0.5, -0.5}}, normal: [3]float32{-1, 0, 0}},
	{positions: [4][3]float32{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}}, normal: [3]float32{0, 1, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}}, normal: [3]float32{0, -1, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}, normal: [3]float32{0, 0, 1}},
	{positions: [4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, normal: [3]float32{0, 0, -1}},
}

var quadUVs = [4][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}

// Cube builds a unit cube centred on the origin: 24 vertices, 36 indices.
//
// Parameters:
//   - materialName: the material the cube is drawn with
//
// Returns:
//   - *Mesh: the cube mesh, not yet uploaded
func Cube(materialName string) *Mesh {
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for fi, f := range cubeFaces {
		for vi, p := range f.positions {
			vertices = append(vertices, Vertex{Position: p, Normal: f.normal, TexCoord: quadUVs[vi]})
		}
		base := uint32(fi * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh("cube", WithVertices(vertices), WithIndices(indices), WithMaterial(materialName))
}

// Plane builds a square on the XZ plane facing +Y with the given side length.
func Plane(materialName string, size float32) *Mesh {
	h := size / 2
	vertices := []Vertex{
		{Position: [3]float32{-h, 0, -h}, Normal: [3]float32{0, 1, 0}, TexCoord: quadUVs[0]},
		{Position: [3]float32{-h, 0, h}, Normal: [3]float32{0, 1, 0}, TexCoord: quadUVs[1]},
		{Position: [3]float32{h, 0, h}, Normal: [3]float32{0, 1, 0}, TexCoord: quadUVs[2]},
		{Position: [3]float32{h, 0, -h}, Normal: [3]float32{0, 1, 0}, TexCoord: quadUVs[3]},
	}
	return NewMesh("plane", WithVertices(vertices), WithIndices([]uint32{0, 1, 2, 0, 2, 3}), WithMaterial(materialName))
}

// Primitive returns the built-in mesh called name ("cube" or "plane"), or nil.
func Primitive(name, materialName string) *Mesh {
	switch name {
	case "cube":
		return Cube(materialName)
	case "plane":
		return Plane(materialName, 10)
	}
	return nil
}
