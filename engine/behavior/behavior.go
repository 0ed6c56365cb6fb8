// Package behavior runs per-entity Lua scripts once per tick.
//
// A script is a chunk that defines a global function update(entity, dt, t). Each script runs
// in its own environment, so two scripts can both define update. Scripts reach the scene
// through a small host API:
//
//	get_position(e) -> x, y, z        set_position(e, x, y, z)
//	get_scale(e) -> x, y, z           set_scale(e, x, y, z)
//	rotate(e, ax, ay, az, radians)    set_rotation(e, ax, ay, az, radians)
//	get_velocity(e) -> x, y, z        set_velocity(e, x, y, z)
//	log(message)
package behavior

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
)

// Component binds an entity to a loaded script by name.
type Component struct {
	Script  string
	Enabled bool
}

// Table holds the behavior component of every entity.
type Table = ecs.Table[Component]

// NewTable creates an empty behavior table.
func NewTable() *Table {
	return ecs.NewTable[Component](16)
}

// IsValid reports whether the behavior should run.
func (c *Component) IsValid() bool {
	return c != nil && c.Enabled && c.Script != ""
}
