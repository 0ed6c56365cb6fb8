package spatial

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxDepth bounds how many ancestors a parent chain may have before it is
// considered cyclic.
const DefaultMaxDepth = 256

// ErrParentChainTooDeep is returned when walking up a parent chain exceeds the maximum
// depth, which in practice means the chain loops back on itself.
var ErrParentChainTooDeep = errors.New("spatial: parent chain exceeds maximum depth (cycle in scene data?)")

// cacheEntry is the single memoized composition result.
type cacheEntry struct {
	handle ecs.Handle
	frame  uint64
	matrix mgl32.Mat4
}

// ComposeContext composes world matrices for one traversal of the scene.
//
// It memoizes exactly one result: the last handle composed within the current frame.
// Asking for that handle again returns the identical matrix without walking the chain;
// asking for any other handle replaces the entry. BeginFrame invalidates it so mutations
// made between frames are always observed.
//
// A ComposeContext is not safe for concurrent use.
type ComposeContext struct {
	table    *Table
	maxDepth int
	frame    uint64
	cache    *cacheEntry
	chain    []*Component
	hits     int
}

// NewComposeContext creates a context reading from table. maxDepth <= 0 selects DefaultMaxDepth.
func NewComposeContext(table *Table, maxDepth int) *ComposeContext {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &ComposeContext{
		table:    table,
		maxDepth: maxDepth,
		chain:    make([]*Component, 0, 8),
	}
}

// BeginFrame advances the frame stamp, invalidating the cached entry.
func (c *ComposeContext) BeginFrame() {
	c.frame++
}

// Frame returns the current frame stamp.
func (c *ComposeContext) Frame() uint64 {
	return c.frame
}

// CacheHits returns how many compositions were answered from the cache.
func (c *ComposeContext) CacheHits() int {
	return c.hits
}

// MaxDepth returns the ancestor limit used by this context.
func (c *ComposeContext) MaxDepth() int {
	return c.maxDepth
}

// ModelMatrix returns the world matrix of h.
//
// Ancestors are folded from the root down: each dimensioned component multiplies
// translate*scale*rotate onto the accumulated matrix, undimensioned ones pass it through.
// A handle without a spatial slot yields identity, and a parent without a slot ends the
// chain.
func (c *ComposeContext) ModelMatrix(h ecs.Handle) (mgl32.Mat4, error) {
	if c.cache != nil && c.cache.handle == h && c.cache.frame == c.frame {
		c.hits++
		return c.cache.matrix, nil
	}

	chain, err := c.collectChain(h)
	if err != nil {
		return mgl32.Ident4(), err
	}

	m := mgl32.Ident4()
	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i]
		if !node.Dimensioned() {
			continue
		}
		m = m.Mul4(node.Local())
	}

	if c.cache == nil {
		c.cache = &cacheEntry{}
	}
	c.cache.handle = h
	c.cache.frame = c.frame
	c.cache.matrix = m
	return m, nil
}

// collectChain gathers h and its ancestors, leaf first, into the reusable chain buffer.
func (c *ComposeContext) collectChain(h ecs.Handle) ([]*Component, error) {
	chain := c.chain[:0]
	current := h
	for current != ecs.None {
		node := c.table.Peek(current)
		if node == nil {
			break
		}
		if len(chain) == c.maxDepth {
			c.chain = chain
			return nil, fmt.Errorf("entity %d: %w", h, ErrParentChainTooDeep)
		}
		chain = append(chain, node)
		current = node.Parent
	}
	c.chain = chain
	return chain, nil
}

// WorldPosition returns the translation column of the world matrix of h.
func (c *ComposeContext) WorldPosition(h ecs.Handle) (mgl32.Vec3, error) {
	m, err := c.ModelMatrix(h)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return m.Col(3).Vec3(), nil
}
