package animator

import "go.uber.org/zap"

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithTable makes the Animator drive an existing animation component table.
//
// Parameters:
//   - table: the table the scene owns
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the table option to an animator
func WithTable(table *Table) AnimatorBuilderOption {
	return func(a *animator) {
		a.table = table
	}
}

// WithPool makes the Animator store bone matrices in an existing pool.
//
// Parameters:
//   - pool: the pool the scene owns
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the pool option to an animator
func WithPool(pool *BoneMatrixPool) AnimatorBuilderOption {
	return func(a *animator) {
		a.pool = pool
	}
}

// WithLogger sets the logger used for attach diagnostics.
func WithLogger(logger *zap.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		a.logger = logger
	}
}
