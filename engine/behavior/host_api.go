package behavior

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

func (r *runner) registerHostAPI() {
	api := map[string]lua.LGFunction{
		"get_position": r.getPosition,
		"set_position": r.setPosition,
		"get_scale":    r.getScale,
		"set_scale":    r.setScale,
		"rotate":       r.rotate,
		"set_rotation": r.setRotation,
		"get_velocity": r.getVelocity,
		"set_velocity": r.setVelocity,
		"log":          r.log,
	}
	for name, fn := range api {
		r.vm.SetGlobal(name, r.vm.NewFunction(fn))
	}
}

func (r *runner) spatialArg(L *lua.LState) *spatial.Component {
	h := ecs.Handle(L.CheckInt(1))
	s := r.spatials.Peek(h)
	if s == nil {
		L.ArgError(1, "entity has no spatial component")
	}
	return s
}

func (r *runner) bodyArg(L *lua.LState) *physics.Component {
	if r.bodies == nil {
		L.RaiseError("physics is not enabled")
	}
	h := ecs.Handle(L.CheckInt(1))
	b := r.bodies.Peek(h)
	if !b.IsValid() {
		L.ArgError(1, "entity has no physics component")
	}
	return b
}

func vec3Args(L *lua.LState, first int) mgl32.Vec3 {
	return mgl32.Vec3{
		float32(L.CheckNumber(first)),
		float32(L.CheckNumber(first + 1)),
		float32(L.CheckNumber(first + 2)),
	}
}

func pushVec3(L *lua.LState, v mgl32.Vec3) int {
	L.Push(lua.LNumber(v.X()))
	L.Push(lua.LNumber(v.Y()))
	L.Push(lua.LNumber(v.Z()))
	return 3
}

func (r *runner) getPosition(L *lua.LState) int {
	return pushVec3(L, r.spatialArg(L).Position)
}

func (r *runner) setPosition(L *lua.LState) int {
	r.spatialArg(L).Position = vec3Args(L, 2)
	return 0
}

func (r *runner) getScale(L *lua.LState) int {
	return pushVec3(L, r.spatialArg(L).Scale)
}

func (r *runner) setScale(L *lua.LState) int {
	r.spatialArg(L).Scale = vec3Args(L, 2)
	return 0
}

func axisAngle(L *lua.LState) mgl32.Quat {
	axis := vec3Args(L, 2)
	if axis.Len() == 0 {
		L.ArgError(2, "rotation axis must not be zero")
	}
	return mgl32.QuatRotate(float32(L.CheckNumber(5)), axis.Normalize())
}

func (r *runner) rotate(L *lua.LState) int {
	s := r.spatialArg(L)
	s.Rotation = axisAngle(L).Mul(s.Rotation).Normalize()
	return 0
}

func (r *runner) setRotation(L *lua.LState) int {
	r.spatialArg(L).Rotation = axisAngle(L)
	return 0
}

func (r *runner) getVelocity(L *lua.LState) int {
	return pushVec3(L, r.bodyArg(L).Velocity)
}

func (r *runner) setVelocity(L *lua.LState) int {
	r.bodyArg(L).Velocity = vec3Args(L, 2)
	return 0
}

func (r *runner) log(L *lua.LState) int {
	r.logger.Info("lua", zap.String("message", L.CheckString(1)))
	return 0
}
