package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the root of the engine's TOML configuration file.
type Config struct {
	Window   WindowConfig   `toml:"window"`
	Engine   EngineConfig   `toml:"engine"`
	Loader   LoaderConfig   `toml:"loader"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Logging  LoggingConfig  `toml:"logging"`
	Profile  ProfileConfig  `toml:"profile"`
}

type WindowConfig struct {
	Title    string `toml:"title"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
	Headless bool   `toml:"headless"` // no window, draws go to the headless device
	VSync    bool   `toml:"vsync"`
}

type EngineConfig struct {
	TickRate       float64 `toml:"tick_rate"`   // simulation ticks per second
	FrameLimit     float64 `toml:"frame_limit"` // 0 = uncapped
	StartPaused    bool    `toml:"start_paused"`
	MaxParentDepth int     `toml:"max_parent_depth"`
	MaxFrames      int     `toml:"max_frames"` // 0 = run until the window closes
}

type LoaderConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type RendererConfig struct {
	StandardDepthShader string     `toml:"standard_depth_shader"`
	ClearColor          [4]float64 `toml:"clear_color"`
	ShadowExtent        float32    `toml:"shadow_extent"` // half-size of the orthographic shadow camera
}

type AssetsConfig struct {
	Root      string `toml:"root"`
	Materials string `toml:"materials"` // YAML shader + material library
	Scene     string `toml:"scene"`     // YAML scene description
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ProfileConfig struct {
	Enabled bool   `toml:"enabled"` // periodic FPS / frame stats logging
	Mode    string `toml:"mode"`    // "", "cpu" or "mem" process profile
	Path    string `toml:"path"`
}

// Load reads the TOML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Engine.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("engine.tick_rate %v must be positive", c.Engine.TickRate))
	}
	if c.Engine.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.frame_limit %v must not be negative", c.Engine.FrameLimit))
	}
	if c.Engine.MaxParentDepth <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_parent_depth %d must be positive", c.Engine.MaxParentDepth))
	}
	if c.Loader.Workers <= 0 {
		errs = append(errs, fmt.Errorf("loader.workers %d must be positive", c.Loader.Workers))
	}
	switch c.Profile.Mode {
	case "", "cpu", "mem":
	default:
		errs = append(errs, fmt.Errorf("profile.mode %q must be cpu, mem or empty", c.Profile.Mode))
	}
	return errors.Join(errs...)
}

func defaults() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-ecs",
			Width:  1280,
			Height: 720,
		},
		Engine: EngineConfig{
			TickRate:       60,
			MaxParentDepth: 256,
		},
		Loader: LoaderConfig{
			Workers:   max(runtime.NumCPU()/2, 1),
			QueueSize: 256,
		},
		Renderer: RendererConfig{
			StandardDepthShader: "standard_depth",
			ClearColor:          [4]float64{0.1, 0.1, 0.1, 1},
			ShadowExtent:        20,
		},
		Assets: AssetsConfig{
			Root:      "assets",
			Materials: "materials.yaml",
			Scene:     "scene.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
