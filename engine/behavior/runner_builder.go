package behavior

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"

	"go.uber.org/zap"
)

// RunnerBuilderOption is a functional option for configuring a Runner during construction.
type RunnerBuilderOption func(*runner)

// WithPhysics exposes the physics table to scripts through get_velocity and set_velocity.
//
// Parameters:
//   - bodies: the physics component table
//
// Returns:
//   - RunnerBuilderOption: a function that applies the physics option to a runner
func WithPhysics(bodies *physics.Table) RunnerBuilderOption {
	return func(r *runner) {
		r.bodies = bodies
	}
}

// WithLogger sets the logger used for script diagnostics and the Lua log function.
func WithLogger(logger *zap.Logger) RunnerBuilderOption {
	return func(r *runner) {
		r.logger = logger
	}
}
