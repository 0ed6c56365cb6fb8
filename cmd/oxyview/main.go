// Command oxyview loads a scene description and renders it, in a window or headless.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/common"
	"github.com/Carmen-Shannon/oxy-ecs/engine"
	"github.com/Carmen-Shannon/oxy-ecs/engine/config"
	"github.com/Carmen-Shannon/oxy-ecs/engine/ecs"
	"github.com/Carmen-Shannon/oxy-ecs/engine/loader"
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
	"github.com/Carmen-Shannon/oxy-ecs/engine/physics"
	"github.com/Carmen-Shannon/oxy-ecs/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ecs/engine/scene"
	"github.com/Carmen-Shannon/oxy-ecs/engine/spatial"
	"github.com/Carmen-Shannon/oxy-ecs/engine/window"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

type flags struct {
	config   string
	scene    string
	headless bool
	frames   int
	profile  string
	logLevel string
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.config, "config", "", "TOML configuration file (defaults when empty)")
	flag.StringVar(&f.scene, "scene", "", "YAML scene file, overrides assets.scene")
	flag.BoolVar(&f.headless, "headless", false, "render without a window")
	flag.IntVar(&f.frames, "frames", -1, "stop after this many frames, overrides engine.max_frames")
	flag.StringVar(&f.profile, "profile", "", "process profile: cpu or mem")
	flag.StringVar(&f.logLevel, "log-level", "", "overrides logging.level")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	logger, err := common.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: build logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("oxyview failed", zap.Error(err))
	}
	_ = logger.Sync()
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if f.scene != "" {
		cfg.Assets.Root = filepath.Dir(f.scene)
		cfg.Assets.Scene = filepath.Base(f.scene)
	}
	if f.headless {
		cfg.Window.Headless = true
	}
	if f.frames >= 0 {
		cfg.Engine.MaxFrames = f.frames
	}
	if f.profile != "" {
		cfg.Profile.Mode = f.profile
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Profile.Mode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(common.Coalesce(cfg.Profile.Path, ".")), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath(common.Coalesce(cfg.Profile.Path, ".")), profile.NoShutdownHook).Stop()
	}

	var (
		win    window.Window
		device renderer.Device
	)
	if cfg.Window.Headless {
		device = renderer.NewHeadlessDevice()
	} else {
		w, err := window.NewWindow(window.WithTitle(cfg.Window.Title), window.WithSize(cfg.Window.Width, cfg.Window.Height))
		if err != nil {
			return err
		}
		defer w.Close()
		win = w

		present := renderer.PresentModeUncapped
		if cfg.Window.VSync {
			present = renderer.PresentModeVSync
		}
		c := cfg.Renderer.ClearColor
		d, err := renderer.NewWGPUDevice(w.SurfaceDescriptor(), w.Width(), w.Height(),
			renderer.WithPresentMode(present),
			renderer.WithClearColor(c[0], c[1], c[2]),
			renderer.WithDeviceLogger(logger.Named("device")),
		)
		if err != nil {
			return err
		}
		device = d
	}

	assets := loader.NewLoader(
		loader.WithWorkers(cfg.Loader.Workers),
		loader.WithQueueSize(cfg.Loader.QueueSize),
		loader.WithLogger(logger.Named("loader")),
	)
	defer assets.Shutdown()

	s, err := scene.NewScene(device,
		scene.WithLoader(assets),
		scene.WithDepthShader(cfg.Renderer.StandardDepthShader),
		scene.WithMaxParentDepth(cfg.Engine.MaxParentDepth),
		scene.WithShadowHalfExtent(cfg.Renderer.ShadowExtent),
		scene.WithLogger(logger.Named("scene")),
	)
	if err != nil {
		device.Release()
		return err
	}
	defer s.Close()
	if win != nil {
		s.Resize(win.Width(), win.Height())
	} else {
		s.Resize(cfg.Window.Width, cfg.Window.Height)
	}

	if err := populate(s, cfg, logger); err != nil {
		return err
	}

	options := []engine.EngineBuilderOption{
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithFrameLimit(cfg.Engine.FrameLimit),
		engine.WithMaxFrames(cfg.Engine.MaxFrames),
		engine.WithPaused(cfg.Engine.StartPaused),
		engine.WithFixedTimestep(win == nil),
		engine.WithLogger(logger.Named("engine")),
	}
	if win != nil {
		options = append(options, engine.WithWindow(win))
	}
	if cfg.Profile.Enabled {
		options = append(options, engine.WithProfiler(profiler.NewProfiler(logger.Named("profiler"), time.Second)))
	}
	e := engine.NewEngine(s, options...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return e.Run(ctx)
}

// populate loads the material library and the scene file. Without a scene file it builds a
// small demo: a floor and a spinning cube.
func populate(s scene.Scene, cfg *config.Config, logger *zap.Logger) error {
	root := cfg.Assets.Root
	if cfg.Assets.Materials != "" {
		path := filepath.Join(root, cfg.Assets.Materials)
		if _, err := os.Stat(path); err == nil {
			n, err := s.Materials().LoadFile(path, s.Shaders())
			if err != nil {
				return err
			}
			logger.Info("materials loaded", zap.String("path", path), zap.Int("count", n))
		}
	}

	path := filepath.Join(root, cfg.Assets.Scene)
	_, err := s.LoadFile(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	logger.Warn("scene file not found, using demo scene", zap.String("path", path))

	floor := s.Spawn(spatial.NewComponent(mgl32.Vec3{}, ecs.None))
	if err := s.AddDrawable(floor, model.Plane("unknown", 20), model.PassDeferred); err != nil {
		return err
	}
	cube := s.Spawn(spatial.NewComponent(mgl32.Vec3{0, 1, 0}, ecs.None))
	if err := s.AddDrawable(cube, model.Cube("unknown"), model.PassDeferred|model.PassShadowcaster); err != nil {
		return err
	}
	s.Bodies().Set(cube, physics.Component{Enabled: true, AngularVelocity: mgl32.Vec3{0, 1, 0}})
	return nil
}
