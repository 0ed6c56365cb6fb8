package animator

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// ErrNoClips is returned when Attach is given a skeleton without any animation.
var ErrNoClips = errors.New("animator: no clips to attach")

// Animator owns the animation component table and the bone matrix pool, and advances every
// animated entity once per frame.
type Animator interface {
	// Update recomputes the bone matrices of every animated entity for global time t.
	//
	// Parameters:
	//   - t: global clock time in seconds
	//
	// Returns:
	//   - error: a fatal keyframe or pool error
	Update(t float64) error

	// Attach gives entity h an animation component built from a skeleton and its clips.
	// One pool set is allocated per clip and every bone is built in skeleton order, so the
	// skeleton must list parents before children.
	//
	// Parameters:
	//   - h: the entity that becomes the skeleton root
	//   - bones: the skeleton, parent-first
	//   - clips: the animations; clips[0] is the one played
	//
	// Returns:
	//   - *Component: the attached component
	//   - error: ErrNoClips, or a build error from BuildBoneMatrices
	Attach(h ecs.Handle, bones []Bone, clips []Clip) (*Component, error)

	// Components returns the animation component table.
	Components() *Table

	// Pool returns the bone matrix pool.
	Pool() *BoneMatrixPool

	// Reset drops every component and the whole pool.
	Reset()
}

type animator struct {
	table  *Table
	pool   *BoneMatrixPool
	logger *zap.Logger
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator. Without options it owns a fresh table and pool.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions
//
// Returns:
//   - Animator: the new animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{}
	for _, opt := range options {
		opt(a)
	}
	if a.table == nil {
		a.table = NewTable()
	}
	if a.pool == nil {
		a.pool = NewBoneMatrixPool()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

func (a *animator) Update(t float64) error {
	return UpdateComponents(a.table, a.pool, t)
}

func (a *animator) Attach(h ecs.Handle, bones []Bone, clips []Clip) (*Component, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("entity %d: %w", h, ErrNoClips)
	}

	c := Component{
		Bones:        make([]Bone, len(bones)),
		BoneMatrices: make([]mgl32.Mat4, len(bones)),
		Animations:   make([]Animation, len(clips)),
	}
	copy(c.Bones, bones)
	for i := range c.Bones {
		c.Bones[i].NKeyframes = 0
		c.Bones[i].LastKeyframeIndex = 0
	}

	for i := range clips {
		clip := &clips[i]
		c.Animations[i] = Animation{
			Name:               clip.Name,
			Duration:           clip.Duration,
			BoneMatrixSetIndex: a.pool.NewSet(clip.MaxKeyframes(), len(bones)),
		}
		for b := range c.Bones {
			var ch *SourceChannel
			if b < len(clip.Channels) {
				ch = &clip.Channels[b]
			}
			if err := BuildBoneMatrices(&c, ch, i, b, a.pool); err != nil {
				return nil, fmt.Errorf("entity %d clip %q: %w", h, clip.Name, err)
			}
		}
	}

	a.table.Set(h, c)
	a.logger.Debug("animation attached",
		zap.Uint32("entity", uint32(h)),
		zap.Int("bones", len(bones)),
		zap.Int("clips", len(clips)),
		zap.Int("poolMatrices", a.pool.Len()),
	)
	return a.table.Get(h), nil
}

func (a *animator) Components() *Table {
	return a.table
}

func (a *animator) Pool() *BoneMatrixPool {
	return a.pool
}

func (a *animator) Reset() {
	a.table.Reset()
	a.pool.Reset()
}
