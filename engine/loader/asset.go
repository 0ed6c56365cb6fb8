package loader

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
)

// State is the loading state of an asset.
type State int

const (
	StateQueued State = iota
	StateLoading
	StateReady
	StateFailed
	// StateSkipped marks an asset that was still queued when the loader shut down.
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Done reports whether the state is final.
func (s State) Done() bool {
	return s >= StateReady
}

// Kind is what an asset decodes to.
type Kind int

const (
	KindModel Kind = iota
	KindTexture
)

func (k Kind) String() string {
	if k == KindTexture {
		return "texture"
	}
	return "model"
}

// Asset is one file requested from the Loader. Its state is safe to read from any goroutine;
// the result accessors return zero values until the state is StateReady.
type Asset struct {
	Path string
	Kind Kind

	mu      sync.Mutex
	state   State
	model   *model.ImportedModel
	texture common.TextureStagingData
	err     error
	done    chan struct{}
}

func newAsset(path string, kind Kind) *Asset {
	return &Asset{Path: path, Kind: kind, done: make(chan struct{})}
}

// State returns the current loading state.
func (a *Asset) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the load error of a failed asset.
func (a *Asset) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Model returns the imported model of a ready model asset.
func (a *Asset) Model() *model.ImportedModel {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Texture returns the decoded pixels of a ready texture asset.
func (a *Asset) Texture() common.TextureStagingData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.texture
}

// Done is closed once the asset reaches a final state.
func (a *Asset) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the asset reaches a final state or ctx ends.
//
// Parameters:
//   - ctx: bounds the wait
//
// Returns:
//   - State: the state when Wait returned
//   - error: ctx.Err() if the context ended first
func (a *Asset) Wait(ctx context.Context) (State, error) {
	select {
	case <-a.done:
		return a.State(), nil
	case <-ctx.Done():
		return a.State(), ctx.Err()
	}
}

// begin moves a queued asset to loading. It reports false if the asset already left the queue.
func (a *Asset) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateQueued {
		return false
	}
	a.state = StateLoading
	return true
}

// finish records the final state once; later calls are ignored.
func (a *Asset) finish(state State, m *model.ImportedModel, tex common.TextureStagingData, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.Done() {
		return false
	}
	a.state, a.model, a.texture, a.err = state, m, tex, err
	close(a.done)
	return true
}
