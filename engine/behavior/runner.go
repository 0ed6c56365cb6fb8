package behavior

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoUpdate is returned when a script does not define an update function.
var ErrNoUpdate = errors.New("behavior: script does not define update(entity, dt, t)")

// Runner owns the Lua VM and calls each entity's script every tick.
// It must only be used from the engine loop goroutine.
type Runner interface {
	// Load compiles a script from source and registers it under name, replacing any
	// script with the same name.
	//
	// Parameters:
	//   - name: the name behavior components refer to
	//   - source: Lua source defining update(entity, dt, t)
	//
	// Returns:
	//   - error: a compile or runtime error from the chunk, or ErrNoUpdate
	Load(name, source string) error

	// LoadDir loads every .lua file in dir, named by file name without extension.
	// A missing directory loads nothing.
	LoadDir(dir string) error

	// Has reports whether a script called name is loaded.
	Has(name string) bool

	// Update runs the script of every valid behavior component in handle order.
	// A script that fails is logged and its component disabled; Update itself does not fail.
	//
	// Parameters:
	//   - dt: seconds since the previous tick
	//   - t: global clock time in seconds
	Update(dt, t float64)

	// Close releases the Lua VM.
	Close()
}

type runner struct {
	vm       *lua.LState
	scripts  map[string]*lua.LFunction
	table    *Table
	spatials *spatial.Table
	bodies   *physics.Table
	logger   *zap.Logger
}

var _ Runner = &runner{}

// NewRunner creates a Runner over the given behavior and spatial tables.
//
// Parameters:
//   - table: the behavior component table
//   - spatials: the spatial table scripts read and write
//   - options: variadic list of RunnerBuilderOption functions
//
// Returns:
//   - Runner: the new runner
func NewRunner(table *Table, spatials *spatial.Table, options ...RunnerBuilderOption) Runner {
	r := &runner{
		vm:       lua.NewState(lua.Options{SkipOpenLibs: false}),
		scripts:  make(map[string]*lua.LFunction),
		table:    table,
		spatials: spatials,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	r.vm.SetGlobal("API_VERSION", lua.LNumber(1))
	r.registerHostAPI()
	return r
}

func (r *runner) Load(name, source string) error {
	chunk, err := r.vm.LoadString(source)
	if err != nil {
		return fmt.Errorf("compile script %s: %w", name, err)
	}

	env := r.vm.NewTable()
	meta := r.vm.NewTable()
	meta.RawSetString("__index", r.vm.G.Global)
	r.vm.SetMetatable(env, meta)
	chunk.Env = env

	if err := r.vm.CallByParam(lua.P{Fn: chunk, NRet: 0, Protect: true}); err != nil {
		return fmt.Errorf("run script %s: %w", name, err)
	}
	update, ok := env.RawGetString("update").(*lua.LFunction)
	if !ok {
		return fmt.Errorf("script %s: %w", name, ErrNoUpdate)
	}
	r.scripts[name] = update
	r.logger.Debug("loaded lua script", zap.String("script", name))
	return nil
}

func (r *runner) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script %s: %w", path, err)
		}
		if err := r.Load(strings.TrimSuffix(entry.Name(), ".lua"), string(src)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) Has(name string) bool {
	_, ok := r.scripts[name]
	return ok
}

func (r *runner) Update(dt, t float64) {
	r.table.Each(func(h ecs.Handle, c *Component) {
		if !c.IsValid() {
			return
		}
		fn, ok := r.scripts[c.Script]
		if !ok {
			r.logger.Warn("behavior script not loaded, disabling",
				zap.Uint32("entity", uint32(h)), zap.String("script", c.Script))
			c.Enabled = false
			return
		}
		err := r.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			lua.LNumber(h), lua.LNumber(dt), lua.LNumber(t))
		if err != nil {
			r.logger.Error("behavior script failed, disabling",
				zap.Uint32("entity", uint32(h)), zap.String("script", c.Script), zap.Error(err))
			c.Enabled = false
		}
	})
}

func (r *runner) Close() {
	r.vm.Close()
}
