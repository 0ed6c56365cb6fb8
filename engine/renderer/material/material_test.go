package material

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibrary(t *testing.T) (*Library, *shader.Registry) {
	t.Helper()
	shaders, err := shader.NewRegistry()
	require.NoError(t, err)
	std, _ := shaders.Get(shader.Standard)
	lib, err := NewLibrary(std, nil)
	require.NoError(t, err)
	return lib, shaders
}

func TestFindByNameFallsBackToUnknown(t *testing.T) {
	lib, shaders := newLibrary(t)
	unlit, _ := shaders.Get(shader.Unlit)

	require.NoError(t, lib.Add(NewMaterial(WithName("red"), WithShader(unlit), WithBaseColor([4]float32{1, 0, 0, 1}))))

	assert.Equal(t, "red", lib.FindByName("red").Name())
	assert.Same(t, lib.Unknown(), lib.FindByName("missing"))
	assert.Equal(t, UnknownName, lib.FindByName("").Name())
	assert.Equal(t, [4]float32{1, 0, 1, 1}, lib.Unknown().BaseColor())
	assert.Equal(t, 2, lib.Len())
}

func TestAddRequiresShader(t *testing.T) {
	lib, _ := newLibrary(t)
	err := lib.Add(NewMaterial(WithName("bare")))
	assert.True(t, errors.Is(err, ErrNoShader))

	_, err = NewLibrary(nil, nil)
	assert.True(t, errors.Is(err, ErrNoShader))
}

func TestAddImportedKeepsConfigured(t *testing.T) {
	lib, shaders := newLibrary(t)
	std, _ := shaders.Get(shader.Standard)

	require.NoError(t, lib.Add(NewMaterial(WithName("skin"), WithShader(std), WithBaseColor([4]float32{0, 1, 0, 1}))))

	added, err := lib.AddImported(common.ImportedMaterial{Name: "skin", BaseColor: [4]float32{1, 1, 1, 1}}, std)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, lib.FindByName("skin").BaseColor())

	added, err = lib.AddImported(common.ImportedMaterial{Name: "cloth", BaseColor: [4]float32{0.5, 0.5, 0.5, 1}}, std)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, []string{UnknownName, "skin", "cloth"}, names(lib.All()))
}

func TestLoadYAML(t *testing.T) {
	lib, shaders := newLibrary(t)

	doc := `
materials:
  - name: brick
    depth_shader: standard_depth
    base_color: [0.8, 0.3, 0.2, 1]
    roughness: 0.7
    texture: textures/brick.png
  - name: glow
    shader: unlit
`
	n, err := lib.LoadYAML([]byte(doc), "/assets", shaders)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	brick := lib.FindByName("brick")
	assert.Equal(t, shader.Standard, brick.Shader().Name())
	require.NotNil(t, brick.DepthShader())
	assert.Equal(t, shader.StandardDepth, brick.DepthShader().Name())
	assert.Equal(t, [4]float32{0.8, 0.3, 0.2, 1}, brick.BaseColor())
	assert.InDelta(t, 0.7, brick.Roughness(), 1e-6)
	require.NotNil(t, brick.DiffuseTexture())
	assert.Equal(t, filepath.Join("/assets", "textures/brick.png"), brick.DiffuseTexture().Path)

	glow := lib.FindByName("glow")
	assert.Equal(t, shader.Unlit, glow.Shader().Name())
	assert.Nil(t, glow.DepthShader())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, glow.BaseColor())
	assert.InDelta(t, 1.0, glow.Roughness(), 1e-6)
}

func TestLoadYAMLErrors(t *testing.T) {
	lib, shaders := newLibrary(t)

	_, err := lib.LoadYAML([]byte("materials:\n  - name: x\n    shader: toon\n"), "", shaders)
	assert.True(t, errors.Is(err, ErrUnknownShader))

	_, err = lib.LoadYAML([]byte("materials:\n  - shader: unlit\n"), "", shaders)
	assert.ErrorContains(t, err, "missing name")

	_, err = lib.LoadYAML([]byte("materials: [\n"), "", shaders)
	assert.Error(t, err)

	_, err = lib.LoadFile(filepath.Join(t.TempDir(), "none.yaml"), shaders)
	assert.Error(t, err)
}

func TestSetTexture(t *testing.T) {
	m := NewMaterial(WithName("m"))
	assert.Zero(t, m.Texture())
	m.SetTexture(4)
	assert.Equal(t, shader.TextureID(4), m.Texture())
}

func names(ms []Material) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Name())
	}
	return out
}
