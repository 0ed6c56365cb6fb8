package loader

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/engine/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitAll(t *testing.T, l Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}

func TestLoaderLoadsEachPathOnce(t *testing.T) {
	var calls atomic.Int32
	l := NewLoader(WithWorkers(2), WithImporter(ImporterFunc(func(path string) (*model.ImportedModel, error) {
		calls.Add(1)
		return &model.ImportedModel{Name: path}, nil
	})))
	defer l.Shutdown()

	a := l.LoadModel("fox.glb")
	b := l.LoadModel("fox.glb")
	assert.Same(t, a, b)
	waitAll(t, l)

	assert.Equal(t, StateReady, a.State())
	assert.Equal(t, "fox.glb", a.Model().Name)
	assert.NoError(t, a.Err())
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, l.Pending())

	got, ok := l.Get("fox.glb", KindModel)
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = l.Get("fox.glb", KindTexture)
	assert.False(t, ok)
}

func TestLoaderRecordsFailures(t *testing.T) {
	errBroken := errors.New("broken file")
	l := NewLoader(WithImporter(ImporterFunc(func(path string) (*model.ImportedModel, error) {
		if path == "panic.glb" {
			panic("importer bug")
		}
		return nil, errBroken
	})))
	defer l.Shutdown()

	broken := l.LoadModel("broken.glb")
	panicked := l.LoadModel("panic.glb")
	waitAll(t, l)

	assert.Equal(t, StateFailed, broken.State())
	assert.ErrorIs(t, broken.Err(), errBroken)
	assert.Nil(t, broken.Model())

	assert.Equal(t, StateFailed, panicked.State())
	assert.ErrorContains(t, panicked.Err(), "importer bug")
}

func TestLoaderDecodesTextures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	l := NewLoader()
	defer l.Shutdown()
	a := l.LoadTexture(path)
	waitAll(t, l)

	require.Equal(t, StateReady, a.State())
	tex := a.Texture()
	assert.Equal(t, uint32(2), tex.Width)
	assert.Equal(t, uint32(1), tex.Height)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, tex.Pixels)

	missing := l.LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	waitAll(t, l)
	assert.Equal(t, StateFailed, missing.State())
}

func TestLoaderImportsGLTFFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.gltf")
	require.NoError(t, os.WriteFile(path, staticTriangleDoc().json(t), 0o644))

	l := NewLoader()
	defer l.Shutdown()
	a := l.LoadModel(path)
	waitAll(t, l)

	require.Equal(t, StateReady, a.State(), "err: %v", a.Err())
	assert.Equal(t, "tri", a.Model().Name)
	assert.Len(t, a.Model().Meshes, 1)
}

func TestLoaderShutdownSkipsQueuedAssets(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	l := NewLoader(WithWorkers(1), WithImporter(ImporterFunc(func(path string) (*model.ImportedModel, error) {
		if path == "slow.glb" {
			close(started)
			<-release
		}
		return &model.ImportedModel{Name: path}, nil
	})))

	slow := l.LoadModel("slow.glb")
	<-started
	queued := []*Asset{l.LoadModel("a.glb"), l.LoadModel("b.glb")}
	assert.Equal(t, 3, l.Pending())

	stopped := make(chan struct{})
	go func() {
		l.Shutdown()
		close(stopped)
	}()
	require.Eventually(t, func() bool { return l.(*loader).stopped.Load() }, 5*time.Second, time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}

	assert.Equal(t, StateReady, slow.State())
	for _, a := range queued {
		assert.Equal(t, StateSkipped, a.State(), a.Path)
	}

	late := l.LoadModel("late.glb")
	assert.Equal(t, StateSkipped, late.State())
	assert.Len(t, l.Assets(), 4)

	// A second Shutdown is a no-op.
	l.Shutdown()
}

func TestAssetWaitHonoursContext(t *testing.T) {
	a := newAsset("never.glb", KindModel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := a.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateQueued, state)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "queued", StateQueued.String())
	assert.Equal(t, "skipped", StateSkipped.String())
	assert.False(t, StateLoading.Done())
	assert.True(t, StateFailed.Done())
	assert.Equal(t, "texture", KindTexture.String())
}
