package model

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
)

// RenderPass is a bitmask of the passes a drawable takes part in.
type RenderPass uint32

const (
	PassShadowcaster RenderPass = 1 << iota
	PassDeferred
	PassLighting
	PassForward
	PassPostProcess

	PassNone RenderPass = 0
)

var passNames = []struct {
	pass RenderPass
	name string
}{
	{PassShadowcaster, "shadowcaster"},
	{PassDeferred, "deferred"},
	{PassLighting, "lighting"},
	{PassForward, "forward"},
	{PassPostProcess, "postprocess"},
}

// Has reports whether any bit of p is set in r.
func (r RenderPass) Has(p RenderPass) bool {
	return r&p != 0
}

func (r RenderPass) String() string {
	if r == PassNone {
		return "none"
	}
	var parts []string
	for _, pn := range passNames {
		if r&pn.pass != 0 {
			parts = append(parts, pn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseRenderPasses turns pass names (as written in scene files) into a bitmask.
//
// Parameters:
//   - names: pass names such as "deferred" or "shadowcaster", case-insensitive
//
// Returns:
//   - RenderPass: the combined mask
//   - error: error naming the first unknown pass
func ParseRenderPasses(names []string) (RenderPass, error) {
	var mask RenderPass
next:
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		for _, pn := range passNames {
			if pn.name == n {
				mask |= pn.pass
				continue next
			}
		}
		return PassNone, fmt.Errorf("unknown render pass %q", n)
	}
	return mask, nil
}

// Drawable is the component that makes an entity render a mesh in some passes.
type Drawable struct {
	Mesh         *Mesh
	TargetPasses RenderPass
}

// Table holds the drawable component of every entity.
type Table = ecs.Table[Drawable]

// NewTable creates an empty drawable table.
func NewTable() *Table {
	return ecs.NewTable[Drawable](64)
}

// IsValid reports whether the drawable has a mesh that has been uploaded to the device.
func (d *Drawable) IsValid() bool {
	return d != nil && d.Mesh.Uploaded()
}
