package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/animator"

	"github.com/go-gl/mathgl/mgl32"
)

// restPose is a node's local transform outside any animation.
type restPose struct {
	T mgl32.Vec3
	R mgl32.Quat
	S mgl32.Vec3
}

// gltfSkeleton is one skin converted to parent-first bone order.
type gltfSkeleton struct {
	Bones []animator.Bone
	Rest  []restPose

	// NodeToBone maps a glTF node index to its sorted bone index.
	NodeToBone map[int]int

	// JointToBone maps a skin joint index, as referenced by JOINTS_0, to its sorted bone index.
	JointToBone []int
}

// nodeRest returns the local transform of a node, decomposing its matrix when it has one.
func nodeRest(n *gltfNode) restPose {
	if n.Matrix != nil {
		return decompose(mgl32.Mat4(*n.Matrix))
	}
	pose := restPose{R: mgl32.QuatIdent(), S: mgl32.Vec3{1, 1, 1}}
	if n.Translation != nil {
		pose.T = mgl32.Vec3(*n.Translation)
	}
	if n.Rotation != nil {
		pose.R = gltfQuat(n.Rotation[:])
	}
	if n.Scale != nil {
		pose.S = mgl32.Vec3(*n.Scale)
	}
	return pose
}

// Matrix returns translate(T) * rotate(R) * scale(S).
func (r restPose) Matrix() mgl32.Mat4 {
	return common.ComposeTRS(r.T, r.R, r.S)
}

// gltfQuat converts an x, y, z, w quaternion.
func gltfQuat(v []float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
}

// decompose splits an affine matrix into translation, rotation and scale. A negative
// determinant is folded into the X scale.
func decompose(m mgl32.Mat4) restPose {
	pose := restPose{T: m.Col(3).Vec3()}
	for c := range 3 {
		pose.S[c] = m.Col(c).Vec3().Len()
	}
	if m.Det() < 0 {
		pose.S[0] = -pose.S[0]
	}
	rot := mgl32.Ident4()
	for c := range 3 {
		col := m.Col(c).Vec3()
		if pose.S[c] != 0 {
			col = col.Mul(1 / pose.S[c])
		}
		rot.SetCol(c, col.Vec4(0))
	}
	pose.R = mgl32.Mat4ToQuat(rot).Normalize()
	return pose
}

// nodeParents returns the parent node of every node, -1 for roots.
func (p *gltfParser) nodeParents() ([]int, error) {
	parents := make([]int, len(p.doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i := range p.doc.Nodes {
		for _, c := range p.doc.Nodes[i].Children {
			if c < 0 || c >= len(parents) {
				return nil, fmt.Errorf("%w: node %d child %d out of range", ErrInvalidGLTF, i, c)
			}
			if parents[c] != -1 {
				return nil, fmt.Errorf("%w: node %d has two parents", ErrInvalidGLTF, c)
			}
			parents[c] = i
		}
	}
	return parents, nil
}

// extractSkeleton converts a skin into bones sorted parents first. A joint's parent bone is
// its nearest ancestor node that is also a joint of the skin.
func (p *gltfParser) extractSkeleton(skinIndex int, parents []int) (*gltfSkeleton, error) {
	if skinIndex < 0 || skinIndex >= len(p.doc.Skins) {
		return nil, fmt.Errorf("%w: skin %d out of range", ErrInvalidGLTF, skinIndex)
	}
	skin := &p.doc.Skins[skinIndex]

	var inverseBind []float32
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBind, err = p.readFloats(*skin.InverseBindMatrices, "MAT4")
		if err != nil {
			return nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
	}

	jointOf := make(map[int]int, len(skin.Joints))
	for j, node := range skin.Joints {
		if node < 0 || node >= len(p.doc.Nodes) {
			return nil, fmt.Errorf("%w: joint %d references node %d", ErrInvalidGLTF, j, node)
		}
		jointOf[node] = j
	}

	parentJoint := make([]int, len(skin.Joints))
	children := make([][]int, len(skin.Joints))
	var roots []int
	for j, node := range skin.Joints {
		parentJoint[j] = animator.NoParent
		for a, steps := parents[node], 0; a >= 0; a, steps = parents[a], steps+1 {
			if steps > len(parents) {
				return nil, fmt.Errorf("%w: node hierarchy has a cycle", ErrInvalidGLTF)
			}
			if pj, ok := jointOf[a]; ok {
				parentJoint[j] = pj
				break
			}
		}
		if parentJoint[j] == animator.NoParent {
			roots = append(roots, j)
		} else {
			children[parentJoint[j]] = append(children[parentJoint[j]], j)
		}
	}

	// Breadth-first from the roots puts every parent before its children.
	order := make([]int, 0, len(skin.Joints))
	order = append(order, roots...)
	for i := 0; i < len(order); i++ {
		order = append(order, children[order[i]]...)
	}

	sk := &gltfSkeleton{
		Bones:       make([]animator.Bone, len(order)),
		Rest:        make([]restPose, len(order)),
		NodeToBone:  make(map[int]int, len(order)),
		JointToBone: make([]int, len(skin.Joints)),
	}
	for b, j := range order {
		sk.JointToBone[j] = b
	}
	for b, j := range order {
		node := &p.doc.Nodes[skin.Joints[j]]
		bone := animator.Bone{
			Name:        node.Name,
			ParentIndex: animator.NoParent,
			BindOffset:  mgl32.Ident4(),
		}
		if bone.Name == "" {
			bone.Name = fmt.Sprintf("bone_%d", j)
		}
		if pj := parentJoint[j]; pj != animator.NoParent {
			bone.ParentIndex = sk.JointToBone[pj]
		}
		if off := j * 16; off+16 <= len(inverseBind) {
			copy(bone.BindOffset[:], inverseBind[off:off+16])
		}
		sk.Bones[b] = bone
		sk.Rest[b] = nodeRest(node)
		sk.NodeToBone[skin.Joints[j]] = b
	}
	return sk, nil
}
