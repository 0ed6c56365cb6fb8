package animator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/common"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrChannelMismatch is returned when a bone's position, rotation and scale keys do not
	// line up one to one.
	ErrChannelMismatch = errors.New("animator: position, rotation and scale keys do not match")

	// ErrParentNotBuilt is returned when a bone is built before its parent.
	ErrParentNotBuilt = errors.New("animator: parent bone has not been built")

	// ErrAnimationIndex is returned when an animation or bone index is outside the component.
	ErrAnimationIndex = errors.New("animator: animation or bone index out of range")
)

// VectorKey is a timed translation or scale sample.
type VectorKey struct {
	Time  float64
	Value mgl32.Vec3
}

// QuatKey is a timed rotation sample.
type QuatKey struct {
	Time  float64
	Value mgl32.Quat
}

// SourceChannel is the imported keyframe data of one bone in one clip.
type SourceChannel struct {
	PositionKeys []VectorKey
	RotationKeys []QuatKey
	ScaleKeys    []VectorKey
}

// Len returns the number of keyframes, or an error wrapping ErrChannelMismatch when the
// three key lists disagree in length or timing.
func (ch *SourceChannel) Len() (int, error) {
	if ch == nil {
		return 0, nil
	}
	n := len(ch.PositionKeys)
	if len(ch.RotationKeys) != n || len(ch.ScaleKeys) != n {
		return 0, fmt.Errorf("%d position, %d rotation, %d scale keys: %w",
			n, len(ch.RotationKeys), len(ch.ScaleKeys), ErrChannelMismatch)
	}
	for k := range n {
		t := ch.PositionKeys[k].Time
		if ch.RotationKeys[k].Time != t || ch.ScaleKeys[k].Time != t {
			return 0, fmt.Errorf("keyframe %d at %v/%v/%v: %w",
				k, t, ch.RotationKeys[k].Time, ch.ScaleKeys[k].Time, ErrChannelMismatch)
		}
	}
	return n, nil
}

// Clip is an imported animation: one channel per skeleton bone, indexed by bone.
type Clip struct {
	Name     string
	Duration float64
	Channels []SourceChannel
}

// MaxKeyframes returns the largest channel length in the clip.
func (c *Clip) MaxKeyframes() int {
	n := 0
	for i := range c.Channels {
		n = max(n, len(c.Channels[i].PositionKeys))
	}
	return n
}

// BuildBoneMatrices precomputes the model-space matrix of one bone at every keyframe of one
// animation and stores it in the pool set referenced by that animation.
//
// Each stored matrix is parent * translate(p) * rotate(normalize(q)) * scale(s), where parent is
// the parent bone's stored matrix at the same keyframe (clamped to the parent's last keyframe)
// and identity for roots. Parents must therefore be built before their children.
//
// Parameters:
//   - c: the animation component that owns the bone
//   - ch: the bone's source keys for this animation, nil for a bone without keys
//   - animIndex: index into c.Animations
//   - boneIndex: index into c.Bones
//   - pool: the pool holding the animation's set
//
// Returns:
//   - error: ErrChannelMismatch, ErrParentNotBuilt, ErrAnimationIndex or ErrSetOutOfRange
func BuildBoneMatrices(c *Component, ch *SourceChannel, animIndex, boneIndex int, pool *BoneMatrixPool) error {
	if c == nil || animIndex < 0 || animIndex >= len(c.Animations) || boneIndex < 0 || boneIndex >= len(c.Bones) {
		return fmt.Errorf("animation %d bone %d: %w", animIndex, boneIndex, ErrAnimationIndex)
	}
	bone := &c.Bones[boneIndex]
	set := c.Animations[animIndex].BoneMatrixSetIndex

	n, err := ch.Len()
	if err != nil {
		return fmt.Errorf("bone %d (%s): %w", boneIndex, bone.Name, err)
	}

	parentCount := 0
	if bone.ParentIndex != NoParent {
		if bone.ParentIndex < 0 || bone.ParentIndex >= boneIndex {
			return fmt.Errorf("bone %d (%s) parent %d: %w", boneIndex, bone.Name, bone.ParentIndex, ErrParentNotBuilt)
		}
		count, ok := pool.KeyframeCount(set, bone.ParentIndex)
		if !ok {
			return fmt.Errorf("bone %d (%s) parent %d: %w", boneIndex, bone.Name, bone.ParentIndex, ErrParentNotBuilt)
		}
		parentCount = count
	}

	for k := range n {
		local := common.ComposeTRS(ch.PositionKeys[k].Value, ch.RotationKeys[k].Value, ch.ScaleKeys[k].Value)
		parent := mgl32.Ident4()
		if parentCount > 0 {
			parent = pool.Matrix(set, min(k, parentCount-1), bone.ParentIndex)
		}
		if err := pool.Store(set, k, boneIndex, parent.Mul4(local), ch.PositionKeys[k].Time); err != nil {
			return fmt.Errorf("bone %d (%s): %w", boneIndex, bone.Name, err)
		}
	}
	if _, _, err := pool.Dims(set); err != nil {
		return err
	}
	pool.markBuilt(set, boneIndex, n)

	if animIndex == 0 {
		bone.NKeyframes = n
	}
	return nil
}
