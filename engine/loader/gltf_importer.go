package loader

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaterialName is given to primitives that reference no material. The importer
// declares it as plain white so it renders even when nothing is configured under that name.
const DefaultMaterialName = "default"

type gltfImporter struct{}

var _ Importer = gltfImporter{}

// NewGLTFImporter returns an Importer for glTF 2.0 (.gltf) and binary glTF (.glb) files.
//
// Returns:
//   - Importer: the glTF importer
func NewGLTFImporter() Importer {
	return gltfImporter{}
}

func (gltfImporter) Import(path string) (*model.ImportedModel, error) {
	p, err := parseGLTFFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := p.importModel(name)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return m, nil
}

// ImportBytes imports an in-memory glTF JSON or GLB document. External buffers and images
// resolve against baseDir.
//
// Parameters:
//   - name: the model name
//   - data: the document bytes
//   - baseDir: directory for relative URIs
//
// Returns:
//   - *model.ImportedModel: the imported model
//   - error: ErrInvalidGLTF or ErrUnsupportedGLTF wrapped with context
func ImportBytes(name string, data []byte, baseDir string) (*model.ImportedModel, error) {
	p, err := parseGLTFBytes(data, baseDir)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	m, err := p.importModel(name)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", name, err)
	}
	return m, nil
}

// primarySkin picks the skin of the first skinned mesh node, else the first skin, else -1.
func (p *gltfParser) primarySkin() int {
	for i := range p.doc.Nodes {
		if n := &p.doc.Nodes[i]; n.Skin != nil && n.Mesh != nil {
			return *n.Skin
		}
	}
	if len(p.doc.Skins) > 0 {
		return 0
	}
	return -1
}

// sceneRoots returns the root nodes of the default scene, or every parentless node.
func (p *gltfParser) sceneRoots(parents []int) []int {
	scene := 0
	if p.doc.Scene != nil {
		scene = *p.doc.Scene
	}
	if scene >= 0 && scene < len(p.doc.Scenes) {
		return p.doc.Scenes[scene].Nodes
	}
	var roots []int
	for i, parent := range parents {
		if parent == -1 {
			roots = append(roots, i)
		}
	}
	return roots
}

func nodeMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	return nodeRest(n).Matrix()
}

// importModel walks the default scene. Static primitives are baked into model space with their
// node's world transform; primitives skinned by the primary skin stay in bind space.
func (p *gltfParser) importModel(name string) (*model.ImportedModel, error) {
	parents, err := p.nodeParents()
	if err != nil {
		return nil, err
	}

	out := &model.ImportedModel{Name: name}

	skinIndex := p.primarySkin()
	var sk *gltfSkeleton
	if skinIndex >= 0 {
		sk, err = p.extractSkeleton(skinIndex, parents)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", skinIndex, err)
		}
		out.Skeleton = sk.Bones
	}

	type visit struct {
		node  int
		world mgl32.Mat4
	}
	stack := make([]visit, 0, len(p.doc.Nodes))
	for _, r := range reversed(p.sceneRoots(parents)) {
		if r < 0 || r >= len(p.doc.Nodes) {
			return nil, fmt.Errorf("%w: scene root %d out of range", ErrInvalidGLTF, r)
		}
		stack = append(stack, visit{node: r, world: mgl32.Ident4()})
	}
	seen := make([]bool, len(p.doc.Nodes))
	needsDefault := false
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[v.node] {
			return nil, fmt.Errorf("%w: node %d reached twice", ErrInvalidGLTF, v.node)
		}
		seen[v.node] = true

		node := &p.doc.Nodes[v.node]
		world := v.world.Mul4(nodeMatrix(node))
		for _, c := range reversed(node.Children) {
			stack = append(stack, visit{node: c, world: world})
		}
		if node.Mesh == nil {
			continue
		}
		if *node.Mesh < 0 || *node.Mesh >= len(p.doc.Meshes) {
			return nil, fmt.Errorf("%w: node %d mesh %d out of range", ErrInvalidGLTF, v.node, *node.Mesh)
		}

		mesh := &p.doc.Meshes[*node.Mesh]
		skinned := sk != nil && node.Skin != nil && *node.Skin == skinIndex
		var jointToBone []int
		if skinned {
			jointToBone = sk.JointToBone
		}
		meshName := common.Coalesce(mesh.Name, node.Name, fmt.Sprintf("mesh_%d", *node.Mesh))
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			primName := meshName
			if len(mesh.Primitives) > 1 {
				primName = fmt.Sprintf("%s_%d", meshName, pi)
			}
			m, err := p.extractPrimitive(name+"/"+primName, prim, world, !skinned, jointToBone)
			if err != nil {
				return nil, err
			}
			if prim.Material != nil {
				m.Material = p.materialName(name, *prim.Material)
			}
			if m.Material == "" {
				m.Material = DefaultMaterialName
				needsDefault = true
			}
			out.Meshes = append(out.Meshes, m)
		}
	}

	if out.Materials, err = p.extractMaterials(name); err != nil {
		return nil, err
	}
	if needsDefault {
		out.Materials = append(out.Materials, common.ImportedMaterial{
			Name:      DefaultMaterialName,
			BaseColor: [4]float32{1, 1, 1, 1},
		})
	}

	if sk != nil {
		out.Clips = make([]animator.Clip, 0, len(p.doc.Animations))
		for i := range p.doc.Animations {
			clip, err := p.extractClip(i, sk)
			if err != nil {
				return nil, err
			}
			out.Clips = append(out.Clips, clip)
		}
	}
	return out, nil
}

// reversed returns a reversed copy so the stack pops in document order.
func reversed(s []int) []int {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}
