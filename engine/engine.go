package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ecs/engine/scene"
	"github.com/Carmen-Shannon/oxy-ecs/engine/window"

	"go.uber.org/zap"
)

// ErrPanic wraps a panic recovered from a frame.
var ErrPanic = errors.New("engine: panic during frame")

// maxTicksPerFrame bounds the catch-up ticks after a long frame.
const maxTicksPerFrame = 5

// engine implements the Engine interface.
type engine struct {
	scene    scene.Scene
	window   window.Window
	clock    *Clock
	profiler *profiler.Profiler
	ctx      *renderer.RenderContext
	logger   *zap.Logger

	tickStep   time.Duration
	frameLimit time.Duration
	fixedStep  bool
	maxFrames  int

	tickCallback func(dt, t float64) error

	frames      int
	accumulator time.Duration
	quit        atomic.Bool
}

// Engine runs the main loop. Each frame it polls window events, hands finished assets to the
// scene, advances the clock in fixed ticks (behaviors, physics, animation) unless paused,
// renders the scene and sleeps out the remainder of the frame when a frame limit is set.
// Everything runs on the goroutine that calls Run.
type Engine interface {
	// Scene returns the scene the engine drives.
	Scene() scene.Scene

	// Window returns the window, nil when running headless.
	Window() window.Window

	// Clock returns the simulation clock.
	Clock() *Clock

	// Profiler returns the frame profiler, nil when profiling is disabled.
	Profiler() *profiler.Profiler

	// Frames returns how many frames have been rendered.
	Frames() int

	// SetTickCallback registers a function called every tick before the scene updates.
	// An error or a panic from it stops the engine.
	//
	// Parameters:
	//   - callback: function receiving the tick length and the clock time in seconds
	SetTickCallback(callback func(dt, t float64) error)

	// Run drives frames until the window closes, the frame budget is spent, ctx ends or Quit
	// is called.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//
	// Returns:
	//   - error: the first fatal error from a tick, a render or a recovered panic
	Run(ctx context.Context) error

	// Quit asks the loop to stop after the current frame. Safe from any goroutine.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an engine driving s.
//
// Parameters:
//   - s: the scene to update and render
//   - options: functional options for engine configuration (window, tick rate, frame limit)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(s scene.Scene, options ...EngineBuilderOption) Engine {
	e := &engine{
		scene:    s,
		clock:    NewClock(),
		ctx:      renderer.NewRenderContext(),
		logger:   zap.NewNop(),
		tickStep: time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.window != nil {
		e.bindInput()
	}
	return e
}

// bindInput wires window events to the clock, the camera and the scene.
func (e *engine) bindInput() {
	e.window.SetResizeCallback(e.scene.Resize)
	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.scene.Camera().Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
	e.window.SetDragCallback(func(dx, dy float32) {
		if ctrl := e.scene.Camera().Controller(); ctrl != nil {
			ctrl.Orbit(dx, dy)
		}
	})
	e.window.SetKeyDownCallback(e.handleKey)
}

func (e *engine) handleKey(key uint32) {
	ctrl := e.scene.Camera().Controller()
	switch key {
	case common.KeyEsc:
		e.window.RequestClose()
	case common.KeySpace, common.KeyP:
		paused := e.clock.TogglePaused()
		e.logger.Info("clock", zap.Bool("paused", paused), zap.Float64("t", e.clock.Time()))
	}
	if ctrl == nil {
		return
	}
	switch key {
	case common.KeyA, common.KeyLeft:
		ctrl.Orbit(-1, 0)
	case common.KeyD, common.KeyRight:
		ctrl.Orbit(1, 0)
	case common.KeyW, common.KeyUp:
		ctrl.Orbit(0, 1)
	case common.KeyS, common.KeyDown:
		ctrl.Orbit(0, -1)
	case common.KeyQ:
		ctrl.Zoom(-1)
	case common.KeyE:
		ctrl.Zoom(1)
	}
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Clock() *Clock {
	return e.clock
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Frames() int {
	return e.frames
}

func (e *engine) SetTickCallback(callback func(dt, t float64) error) {
	e.tickCallback = callback
}

func (e *engine) Quit() {
	e.quit.Store(true)
}

func (e *engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		zap.Duration("tick", e.tickStep),
		zap.Duration("frameLimit", e.frameLimit),
		zap.Bool("headless", e.window == nil),
		zap.Int("maxFrames", e.maxFrames),
	)
	last := time.Now()
	for !e.quit.Load() {
		if err := ctx.Err(); err != nil {
			break
		}
		if e.window != nil && !e.window.PollEvents() {
			break
		}

		frameStart := time.Now()
		elapsed := frameStart.Sub(last)
		last = frameStart
		if e.fixedStep {
			elapsed = e.tickStep
		}

		if err := e.frame(elapsed); err != nil {
			e.logger.Error("engine stopped", zap.Int("frame", e.frames), zap.Float64("t", e.clock.Time()), zap.Error(err))
			return err
		}
		e.frames++
		if e.maxFrames > 0 && e.frames >= e.maxFrames {
			break
		}

		if e.frameLimit > 0 {
			if remaining := e.frameLimit - time.Since(frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	e.logger.Info("engine stopped", zap.Int("frames", e.frames), zap.Float64("t", e.clock.Time()))
	return nil
}

// frame runs one iteration of the loop, turning a panic into ErrPanic.
func (e *engine) frame(elapsed time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if err := e.scene.Poll(); err != nil {
		return err
	}

	if e.clock.Paused() {
		e.accumulator = 0
	} else {
		e.accumulator += elapsed
		for ticks := 0; e.accumulator >= e.tickStep; ticks++ {
			if ticks == maxTicksPerFrame {
				e.accumulator = 0
				break
			}
			e.accumulator -= e.tickStep
			if err := e.tick(); err != nil {
				return err
			}
		}
	}

	if err := e.scene.Render(e.ctx); err != nil {
		return fmt.Errorf("render frame %d: %w", e.frames, err)
	}
	if e.profiler != nil {
		e.profiler.Tick(e.ctx.Stats)
	}
	return nil
}

func (e *engine) tick() error {
	dt := e.clock.Advance(e.tickStep.Seconds())
	t := e.clock.Time()
	if e.tickCallback != nil {
		if err := e.tickCallback(dt, t); err != nil {
			return fmt.Errorf("tick callback at t=%.4f: %w", t, err)
		}
	}
	return e.scene.Tick(dt, t)
}
