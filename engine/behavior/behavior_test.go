package behavior

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bob = `
function update(entity, dt, t)
  local x, y, z = get_position(entity)
  set_position(entity, x + dt, y, z)
end
`

const spin = `
function update(entity, dt, t)
  rotate(entity, 0, 1, 0, dt)
  set_scale(entity, 2, 2, 2)
end
`

func newFixture(t *testing.T) (*Table, *spatial.Table, *physics.Table, Runner) {
	t.Helper()
	table := NewTable()
	spatials := spatial.NewTable()
	bodies := physics.NewTable()
	r := NewRunner(table, spatials, WithPhysics(bodies))
	t.Cleanup(r.Close)
	return table, spatials, bodies, r
}

func TestScriptsMoveEntities(t *testing.T) {
	table, spatials, _, r := newFixture(t)
	require.NoError(t, r.Load("bob", bob))
	require.NoError(t, r.Load("spin", spin))
	assert.True(t, r.Has("bob"))

	spatials.Set(1, spatial.NewComponent(mgl32.Vec3{1, 0, 0}, ecs.None))
	spatials.Set(2, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	table.Set(1, Component{Script: "bob", Enabled: true})
	table.Set(2, Component{Script: "spin", Enabled: true})

	r.Update(0.5, 0.5)
	r.Update(0.25, 0.75)

	assert.InDelta(t, 1.75, spatials.Peek(1).Position.X(), 1e-6)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, spatials.Peek(2).Scale)
	want := mgl32.QuatRotate(0.75, mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, want.W, spatials.Peek(2).Rotation.W, 1e-5)
}

func TestEachScriptHasItsOwnUpdate(t *testing.T) {
	_, _, _, r := newFixture(t)
	require.NoError(t, r.Load("a", `function update(e, dt, t) end`))
	require.NoError(t, r.Load("b", `function update(e, dt, t) error("boom") end`))
	assert.True(t, r.Has("a"))
	assert.True(t, r.Has("b"))
}

func TestLoadRejectsBadScripts(t *testing.T) {
	_, _, _, r := newFixture(t)
	assert.Error(t, r.Load("syntax", "function update("))
	assert.ErrorIs(t, r.Load("empty", "local x = 1"), ErrNoUpdate)
	assert.False(t, r.Has("empty"))
}

func TestFailingScriptIsDisabled(t *testing.T) {
	table, spatials, _, r := newFixture(t)
	require.NoError(t, r.Load("bad", `function update(e, dt, t) set_position(e, "x") end`))
	spatials.Set(1, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	table.Set(1, Component{Script: "bad", Enabled: true})
	table.Set(2, Component{Script: "missing", Enabled: true})

	r.Update(0.1, 0.1)
	assert.False(t, table.Peek(1).Enabled)
	assert.False(t, table.Peek(2).Enabled)
}

func TestScriptsDriveVelocity(t *testing.T) {
	table, spatials, bodies, r := newFixture(t)
	require.NoError(t, r.Load("launch", `
function update(entity, dt, t)
  local vx, vy, vz = get_velocity(entity)
  set_velocity(entity, vx, vy + 1, vz)
end
`))
	spatials.Set(1, spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	bodies.Set(1, physics.Component{Enabled: true})
	table.Set(1, Component{Script: "launch", Enabled: true})

	r.Update(0.1, 0.1)
	r.Update(0.1, 0.2)
	assert.Equal(t, float32(2), bodies.Peek(1).Velocity.Y())
	assert.True(t, table.Peek(1).Enabled)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bob.lua"), []byte(bob), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	_, _, _, r := newFixture(t)
	require.NoError(t, r.LoadDir(dir))
	assert.True(t, r.Has("bob"))
	assert.NoError(t, r.LoadDir(filepath.Join(dir, "missing")))
}
