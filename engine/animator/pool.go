package animator

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrSetOutOfRange is returned when a (set, keyframe, bone) address falls outside the pool.
var ErrSetOutOfRange = errors.New("animator: bone matrix pool address out of range")

// boneMatrixSet locates one contiguous keyframes x bones slice of the pool.
type boneMatrixSet struct {
	offset    int
	keyframes int
	bones     int

	// counts holds the keyframes actually stored per bone; -1 until the bone is built.
	counts []int
}

// BoneMatrixPool is the shared arena of precomputed bone matrices and their timestamps.
//
// Each set is the slice belonging to one (entity, animation) pair, laid out keyframe-major
// so a keyframe's bones sit next to each other. Sets are handed out by a monotonic counter
// and never freed individually; Reset drops the whole arena.
type BoneMatrixPool struct {
	sets       []boneMatrixSet
	matrices   []mgl32.Mat4
	timestamps []float64
}

// NewBoneMatrixPool creates an empty pool.
func NewBoneMatrixPool() *BoneMatrixPool {
	return &BoneMatrixPool{}
}

// NewSet reserves a keyframes x bones slice and returns its set index.
// Matrices start as identity and timestamps as zero.
func (p *BoneMatrixPool) NewSet(keyframes, bones int) int {
	keyframes = max(keyframes, 0)
	bones = max(bones, 0)
	set := boneMatrixSet{offset: len(p.matrices), keyframes: keyframes, bones: bones, counts: make([]int, bones)}
	for i := range set.counts {
		set.counts[i] = -1
	}
	n := keyframes * bones
	for range n {
		p.matrices = append(p.matrices, mgl32.Ident4())
	}
	p.timestamps = append(p.timestamps, make([]float64, n)...)
	p.sets = append(p.sets, set)
	return len(p.sets) - 1
}

// SetCount returns how many sets have been allocated.
func (p *BoneMatrixPool) SetCount() int {
	return len(p.sets)
}

// Len returns the total number of matrices stored across all sets.
func (p *BoneMatrixPool) Len() int {
	return len(p.matrices)
}

// Dims returns the keyframe and bone capacity of a set.
func (p *BoneMatrixPool) Dims(set int) (keyframes, bones int, err error) {
	if set < 0 || set >= len(p.sets) {
		return 0, 0, fmt.Errorf("set %d of %d: %w", set, len(p.sets), ErrSetOutOfRange)
	}
	s := p.sets[set]
	return s.keyframes, s.bones, nil
}

// Store writes the matrix and timestamp of one bone at one keyframe.
func (p *BoneMatrixPool) Store(set, keyframe, bone int, m mgl32.Mat4, t float64) error {
	i, err := p.address(set, keyframe, bone)
	if err != nil {
		return err
	}
	p.matrices[i] = m
	p.timestamps[i] = t
	return nil
}

// KeyframeCount returns how many keyframes have been stored for bone in set, and false when
// the bone has not been built yet.
func (p *BoneMatrixPool) KeyframeCount(set, bone int) (int, bool) {
	if set < 0 || set >= len(p.sets) {
		return 0, false
	}
	s := p.sets[set]
	if bone < 0 || bone >= s.bones || s.counts[bone] < 0 {
		return 0, false
	}
	return s.counts[bone], true
}

func (p *BoneMatrixPool) markBuilt(set, bone, keyframes int) {
	p.sets[set].counts[bone] = keyframes
}

// Matrix returns the stored matrix. The address must be in range.
func (p *BoneMatrixPool) Matrix(set, keyframe, bone int) mgl32.Mat4 {
	return p.matrices[p.mustAddress(set, keyframe, bone)]
}

// Timestamp returns the stored sample time. The address must be in range.
func (p *BoneMatrixPool) Timestamp(set, keyframe, bone int) float64 {
	return p.timestamps[p.mustAddress(set, keyframe, bone)]
}

// Reset drops every set. Components that reference old set indices must be reset too.
func (p *BoneMatrixPool) Reset() {
	p.sets = p.sets[:0]
	p.matrices = p.matrices[:0]
	p.timestamps = p.timestamps[:0]
}

func (p *BoneMatrixPool) address(set, keyframe, bone int) (int, error) {
	if set < 0 || set >= len(p.sets) {
		return 0, fmt.Errorf("set %d of %d: %w", set, len(p.sets), ErrSetOutOfRange)
	}
	s := p.sets[set]
	if keyframe < 0 || keyframe >= s.keyframes || bone < 0 || bone >= s.bones {
		return 0, fmt.Errorf("set %d keyframe %d bone %d (dims %dx%d): %w", set, keyframe, bone, s.keyframes, s.bones, ErrSetOutOfRange)
	}
	return s.offset + keyframe*s.bones + bone, nil
}

func (p *BoneMatrixPool) mustAddress(set, keyframe, bone int) int {
	i, err := p.address(set, keyframe, bone)
	if err != nil {
		panic(err)
	}
	return i
}
