package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ecs/engine/scene"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadless(t *testing.T) (scene.Scene, *renderer.HeadlessDevice) {
	t.Helper()
	dev := renderer.NewHeadlessDevice()
	s, err := scene.NewScene(dev)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, dev
}

func TestClockFreezesWhilePaused(t *testing.T) {
	c := NewClock()
	assert.Equal(t, 0.5, c.Advance(0.5))
	assert.True(t, c.TogglePaused())
	assert.Zero(t, c.Advance(0.25))
	assert.Zero(t, c.Delta())
	assert.Equal(t, 0.5, c.Time())

	c.SetPaused(false)
	c.Advance(0.25)
	assert.Equal(t, 0.75, c.Time())
	assert.Zero(t, c.Advance(-1))
	assert.Equal(t, 0.75, c.Time())
}

func TestRunAdvancesOneTickPerFixedFrame(t *testing.T) {
	s, dev := newHeadless(t)
	var ticks int
	var lastDt float64
	e := NewEngine(s, WithTickRate(50), WithFixedTimestep(true), WithMaxFrames(10))
	e.SetTickCallback(func(dt, _ float64) error {
		ticks++
		lastDt = dt
		return nil
	})

	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, 10, e.Frames())
	assert.Equal(t, 10, dev.Frames)
	assert.Equal(t, 10, ticks)
	assert.InDelta(t, 0.02, lastDt, 1e-9)
	assert.InDelta(t, 0.2, e.Clock().Time(), 1e-9)
}

func TestRunWhilePausedRendersWithoutTicking(t *testing.T) {
	s, dev := newHeadless(t)
	e := NewEngine(s, WithFixedTimestep(true), WithMaxFrames(3), WithPaused(true))
	e.SetTickCallback(func(float64, float64) error {
		t.Fatal("tick while paused")
		return nil
	})

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, dev.Frames)
	assert.Zero(t, e.Clock().Time())
}

func TestRunStopsOnCallbackError(t *testing.T) {
	s, _ := newHeadless(t)
	boom := errors.New("boom")
	e := NewEngine(s, WithTickRate(10), WithFixedTimestep(true), WithMaxFrames(100))
	e.SetTickCallback(func(_, now float64) error {
		if now > 0.25 {
			return boom
		}
		return nil
	})

	err := e.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, e.Frames())
}

func TestRunRecoversPanics(t *testing.T) {
	s, _ := newHeadless(t)
	e := NewEngine(s, WithFixedTimestep(true), WithMaxFrames(5))
	e.SetTickCallback(func(float64, float64) error {
		panic("script exploded")
	})

	err := e.Run(context.Background())
	require.ErrorIs(t, err, ErrPanic)
	assert.ErrorContains(t, err, "script exploded")
}

func TestRunReturnsCyclicParentError(t *testing.T) {
	s, _ := newHeadless(t)
	a := s.Spawn(spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	b := s.Spawn(spatial.NewComponent(mgl32.Vec3{}, a))
	s.Spatials().Get(a).Parent = b
	require.NoError(t, s.AddDrawable(b, model.Cube("unknown"), model.PassDeferred))

	e := NewEngine(s, WithFixedTimestep(true), WithMaxFrames(5))
	err := e.Run(context.Background())
	require.ErrorIs(t, err, spatial.ErrParentChainTooDeep)
	assert.Zero(t, e.Frames())
}

func TestRunStopsOnQuitAndContext(t *testing.T) {
	s, _ := newHeadless(t)
	e := NewEngine(s, WithFixedTimestep(true))
	e.SetTickCallback(func(float64, float64) error {
		e.Quit()
		return nil
	})
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 1, e.Frames())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e2 := NewEngine(s, WithFixedTimestep(true))
	require.NoError(t, e2.Run(ctx))
	assert.Zero(t, e2.Frames())
}

func TestRunFeedsProfiler(t *testing.T) {
	s, _ := newHeadless(t)
	require.NoError(t, s.AddDrawable(s.Spawn(spatial.NewComponent(mgl32.Vec3{}, ecs.None)), model.Cube("unknown"), model.PassDeferred))
	p := profiler.NewProfiler(nil, 1)
	e := NewEngine(s, WithFixedTimestep(true), WithMaxFrames(2), WithProfiler(p))

	require.NoError(t, e.Run(context.Background()))
	assert.Same(t, p, e.Profiler())
	assert.InDelta(t, 1.0, p.Last().DrawsPerFrame, 1e-9)
}
