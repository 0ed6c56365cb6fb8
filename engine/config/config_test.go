package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.Engine.TickRate)
	assert.Equal(t, 256, cfg.Engine.MaxParentDepth)
	assert.Equal(t, "standard_depth", cfg.Renderer.StandardDepthShader)
	assert.GreaterOrEqual(t, cfg.Loader.Workers, 1)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[window]
title = "walk cycle"
headless = true

[engine]
frame_limit = 30
max_frames = 10

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "walk cycle", cfg.Window.Title)
	assert.True(t, cfg.Window.Headless)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 30.0, cfg.Engine.FrameLimit)
	assert.Equal(t, 10, cfg.Engine.MaxFrames)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
[engine]
tick_rate = 0

[profile]
mode = "trace"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick_rate")
	assert.Contains(t, err.Error(), "profile.mode")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
