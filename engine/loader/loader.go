package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultIdleTimeout = 5 * time.Second
)

// Loader reads model and texture files on a pool of worker goroutines. Each requested path is
// loaded once; asking again returns the same Asset.
type Loader interface {
	// LoadModel queues a model file for import.
	//
	// Parameters:
	//   - path: the model file
	//
	// Returns:
	//   - *Asset: the asset tracking the load, shared by every caller asking for path
	LoadModel(path string) *Asset

	// LoadTexture queues a PNG or JPEG file for decoding into RGBA pixels.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - *Asset: the asset tracking the decode
	LoadTexture(path string) *Asset

	// Get returns the asset previously requested for path and kind.
	Get(path string, kind Kind) (*Asset, bool)

	// Assets returns every requested asset in request order.
	Assets() []*Asset

	// Pending returns the number of assets not yet in a final state.
	Pending() int

	// Wait blocks until every asset requested so far is final or ctx ends.
	Wait(ctx context.Context) error

	// Shutdown stops accepting work. Assets still queued become StateSkipped, loads already
	// running finish, then the worker pool stops. Safe to call more than once.
	Shutdown()
}

type loader struct {
	mu     sync.Mutex
	assets map[string]*Asset
	order  []*Asset

	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration
	nextTask    int

	importer Importer
	stopped  atomic.Bool
	inflight sync.WaitGroup
	stopOnce sync.Once

	logger *zap.Logger
}

var _ Loader = &loader{}

// NewLoader creates a Loader and starts its worker pool.
//
// Parameters:
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		assets:      make(map[string]*Asset),
		workers:     defaultWorkers,
		queueSize:   defaultQueueSize,
		idleTimeout: defaultIdleTimeout,
		importer:    NewGLTFImporter(),
		logger:      zap.NewNop(),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queueSize, l.idleTimeout)
	return l
}

func (l *loader) LoadModel(path string) *Asset {
	return l.request(path, KindModel)
}

func (l *loader) LoadTexture(path string) *Asset {
	return l.request(path, KindTexture)
}

func assetKey(path string, kind Kind) string {
	return kind.String() + ":" + path
}

func (l *loader) request(path string, kind Kind) *Asset {
	l.mu.Lock()
	key := assetKey(path, kind)
	if a, ok := l.assets[key]; ok {
		l.mu.Unlock()
		return a
	}
	a := newAsset(path, kind)
	l.assets[key] = a
	l.order = append(l.order, a)

	if l.stopped.Load() {
		l.mu.Unlock()
		a.finish(StateSkipped, nil, common.TextureStagingData{}, nil)
		return a
	}
	l.inflight.Add(1)
	id := l.nextTask
	l.nextTask++
	l.mu.Unlock()

	l.pool.SubmitTask(worker.Task{
		ID:      id,
		Payload: path,
		Do: func() (any, error) {
			defer l.inflight.Done()
			l.run(a)
			return nil, nil
		},
	})
	return a
}

// run performs one load on a worker goroutine.
func (l *loader) run(a *Asset) {
	if l.stopped.Load() {
		a.finish(StateSkipped, nil, common.TextureStagingData{}, nil)
		l.logger.Debug("asset skipped", zap.String("path", a.Path), zap.Stringer("kind", a.Kind))
		return
	}
	if !a.begin() {
		return
	}

	start := time.Now()
	m, tex, err := l.load(a)
	if err != nil {
		a.finish(StateFailed, nil, common.TextureStagingData{}, err)
		l.logger.Warn("asset failed", zap.String("path", a.Path), zap.Stringer("kind", a.Kind), zap.Error(err))
		return
	}
	a.finish(StateReady, m, tex, nil)
	l.logger.Info("asset ready",
		zap.String("path", a.Path),
		zap.Stringer("kind", a.Kind),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// load runs the importer or decoder, turning a panic into an error.
func (l *loader) load(a *Asset) (m *model.ImportedModel, tex common.TextureStagingData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load %s: panic: %v", a.Path, r)
		}
	}()
	switch a.Kind {
	case KindTexture:
		tex, err = (&common.ImportedTexture{Name: a.Path, Path: a.Path}).Decode()
	default:
		m, err = l.importer.Import(a.Path)
	}
	return m, tex, err
}

func (l *loader) Get(path string, kind Kind) (*Asset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.assets[assetKey(path, kind)]
	return a, ok
}

func (l *loader) Assets() []*Asset {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Asset, len(l.order))
	copy(out, l.order)
	return out
}

func (l *loader) Pending() int {
	n := 0
	for _, a := range l.Assets() {
		if !a.State().Done() {
			n++
		}
	}
	return n
}

func (l *loader) Wait(ctx context.Context) error {
	for _, a := range l.Assets() {
		if _, err := a.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) Shutdown() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped.Store(true)
		l.mu.Unlock()

		l.inflight.Wait()
		l.pool.Stop()
		l.logger.Debug("loader stopped", zap.Int("assets", len(l.Assets())))
	})
}
