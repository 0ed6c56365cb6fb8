package loader

import (
	"time"

	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithImporter sets the model importer. The default reads glTF and GLB files.
//
// Parameters:
//   - importer: the model importer
//
// Returns:
//   - LoaderBuilderOption: a function that applies the importer option to a loader
func WithImporter(importer Importer) LoaderBuilderOption {
	return func(l *loader) {
		if importer != nil {
			l.importer = importer
		}
	}
}

// WithWorkers sets the number of worker goroutines.
//
// Parameters:
//   - n: the worker count, ignored when not positive
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithQueueSize sets how many loads may wait for a worker before LoadModel blocks.
func WithQueueSize(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithIdleTimeout sets how long a worker waits for work before exiting.
func WithIdleTimeout(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		if d > 0 {
			l.idleTimeout = d
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
