package model

// MeshBuilderOption is a functional option for configuring a Mesh during construction.
type MeshBuilderOption func(*Mesh)

// NewMesh creates a mesh and computes its bounds once the options have been applied.
//
// Parameters:
//   - name: the mesh identifier
//   - options: variadic list of MeshBuilderOption functions
//
// Returns:
//   - *Mesh: the new mesh, not yet uploaded
func NewMesh(name string, options ...MeshBuilderOption) *Mesh {
	m := &Mesh{Name: name}
	for _, opt := range options {
		opt(m)
	}
	m.ComputeBounds()
	return m
}

// WithVertices sets the mesh vertices.
//
// Parameters:
//   - vertices: vertex data in the fixed layout
//
// Returns:
//   - MeshBuilderOption: a function that applies the vertices option to a mesh
func WithVertices(vertices []Vertex) MeshBuilderOption {
	return func(m *Mesh) {
		m.Vertices = vertices
	}
}

// WithIndices sets the triangle indices. Without indices the mesh is drawn as a vertex array.
//
// Parameters:
//   - indices: the triangle list indices
//
// Returns:
//   - MeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *Mesh) {
		m.Indices = indices
	}
}

// WithMaterial sets the material name the renderer looks up for this mesh.
func WithMaterial(name string) MeshBuilderOption {
	return func(m *Mesh) {
		m.Material = name
	}
}

// WithWinding sets the front-face winding.
func WithWinding(w Winding) MeshBuilderOption {
	return func(m *Mesh) {
		m.Winding = w
	}
}
