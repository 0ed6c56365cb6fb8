package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"
)

// FindAnimationComponent returns the animation component that drives entity h: its own when
// valid, otherwise that of the nearest ancestor (following spatial parents) that has a valid
// one. A mesh spawned under a skeleton entity is skinned by the skeleton this way.
//
// Parameters:
//   - anims: the animation component table
//   - spatials: the spatial table used to walk parents
//   - h: the entity being drawn
//   - maxDepth: parent chain limit, spatial.DefaultMaxDepth when <= 0
//
// Returns:
//   - *Component: the effective component, or nil when the entity is not animated
//   - error: spatial.ErrParentChainTooDeep when the parent chain does not end
func FindAnimationComponent(anims *Table, spatials *spatial.Table, h ecs.Handle, maxDepth int) (*Component, error) {
	if maxDepth <= 0 {
		maxDepth = spatial.DefaultMaxDepth
	}
	cur := h
	for depth := 0; cur != ecs.None; depth++ {
		if depth >= maxDepth {
			return nil, fmt.Errorf("animation lookup for entity %d: %w", h, spatial.ErrParentChainTooDeep)
		}
		if c := anims.Peek(cur); c.IsValid() {
			return c, nil
		}
		s := spatials.Peek(cur)
		if s == nil {
			return nil, nil
		}
		cur = s.Parent
	}
	return nil, nil
}
