package material

import (
	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
)

// material is the implementation of the Material interface.
type material struct {
	name           string
	baseColor      [4]float32
	metallic       float32
	roughness      float32
	diffuseTexture *common.ImportedTexture
	texture        shader.TextureID
	shader         shader.Shader
	depthShader    shader.Shader
}

// Material defines the interface for a render material: surface properties, the shader used
// for regular passes, an optional depth-only shader and the device texture sampled as the
// diffuse map.
//
// Surface properties are set at load time. The device texture is mutable so it can be filled
// in on the main thread after the loader has decoded the image.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// DiffuseTexture retrieves the diffuse/albedo texture data reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the diffuse texture, or nil
	DiffuseTexture() *common.ImportedTexture

	// Shader retrieves the shader used by regular passes.
	//
	// Returns:
	//   - shader.Shader: the shader, never nil for materials held by a Library
	Shader() shader.Shader

	// DepthShader retrieves the shader used by depth-only passes, or nil when the renderer's
	// standard depth shader should be used.
	//
	// Returns:
	//   - shader.Shader: the depth shader, or nil
	DepthShader() shader.Shader

	// Texture retrieves the device texture bound as the diffuse map, zero when none is uploaded.
	//
	// Returns:
	//   - shader.TextureID: the device texture
	Texture() shader.TextureID

	// SetTexture records the device texture created from DiffuseTexture.
	//
	// Parameters:
	//   - id: the uploaded texture
	SetTexture(id shader.TextureID)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) DiffuseTexture() *common.ImportedTexture {
	return m.diffuseTexture
}

func (m *material) Shader() shader.Shader {
	return m.shader
}

func (m *material) DepthShader() shader.Shader {
	return m.depthShader
}

func (m *material) Texture() shader.TextureID {
	return m.texture
}

func (m *material) SetTexture(id shader.TextureID) {
	m.texture = id
}
