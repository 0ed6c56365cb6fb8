package animator

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrKeyframeBracketNotFound is returned when no pair of consecutive keyframes brackets the
// local animation time. It means the stored timestamps do not cover the clip duration.
var ErrKeyframeBracketNotFound = errors.New("animator: no keyframe pair brackets the animation time")

// UpdateComponents recomputes BoneMatrices for every valid component in the table at global
// time t. The first animation of each component is played, looping over its duration.
//
// Parameters:
//   - table: the animation component table
//   - pool: the pool holding the precomputed bone matrices
//   - t: global time in seconds
//
// Returns:
//   - error: the first ErrKeyframeBracketNotFound or ErrSetOutOfRange met; later components are not updated
func UpdateComponents(table *Table, pool *BoneMatrixPool, t float64) error {
	var err error
	table.Each(func(h ecs.Handle, c *Component) {
		if err != nil || !c.IsValid() {
			return
		}
		if e := updateComponent(c, pool, t); e != nil {
			err = fmt.Errorf("entity %d: %w", h, e)
		}
	})
	return err
}

func updateComponent(c *Component, pool *BoneMatrixPool, t float64) error {
	anim := &c.Animations[0]
	set := anim.BoneMatrixSetIndex
	keyframes, bones, err := pool.Dims(set)
	if err != nil {
		return err
	}
	if bones < len(c.Bones) {
		return fmt.Errorf("set %d holds %d bones, component has %d: %w", set, bones, len(c.Bones), ErrSetOutOfRange)
	}
	if len(c.BoneMatrices) != len(c.Bones) {
		c.BoneMatrices = make([]mgl32.Mat4, len(c.Bones))
	}

	local := localTime(t, anim.Duration)
	for b := range c.Bones {
		bone := &c.Bones[b]
		n := bone.NKeyframes
		if n > keyframes {
			return fmt.Errorf("bone %d has %d keyframes, set %d holds %d: %w", b, n, set, keyframes, ErrSetOutOfRange)
		}
		switch n {
		case 0:
			c.BoneMatrices[b] = mgl32.Ident4()
			continue
		case 1:
			c.BoneMatrices[b] = pool.Matrix(set, 0, b)
			continue
		}

		k, ok := findBracket(pool, set, b, n, bone.LastKeyframeIndex, local)
		if !ok {
			return fmt.Errorf("bone %d (%s) at %v of %v: %w", b, bone.Name, local, anim.Duration, ErrKeyframeBracketNotFound)
		}
		bone.LastKeyframeIndex = k

		t0 := pool.Timestamp(set, k, b)
		t1 := pool.Timestamp(set, k+1, b)
		var f float64
		if t1 > t0 {
			f = (local - t0) / (t1 - t0)
		}
		c.BoneMatrices[b] = common.LerpMat4(pool.Matrix(set, k, b), pool.Matrix(set, k+1, b), float32(f))
	}
	return nil
}

// localTime wraps t into [0, duration). A non-positive duration pins the clip to its start.
func localTime(t, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	local := math.Mod(t, duration)
	if local < 0 {
		local += duration
	}
	return local
}

// findBracket scans the n-1 keyframe segments circularly, starting at the cursor, for the
// first k with t_k <= local <= t_{k+1}.
func findBracket(pool *BoneMatrixPool, set, bone, n, cursor int, local float64) (int, bool) {
	segments := n - 1
	if cursor < 0 || cursor >= segments {
		cursor = 0
	}
	for i := range segments {
		k := (cursor + i) % segments
		if pool.Timestamp(set, k, bone) <= local && local <= pool.Timestamp(set, k+1, bone) {
			return k, true
		}
	}
	return 0, false
}
