package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestProfilerReportsOncePerInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewProfiler(zap.New(core), time.Second)
	start := p.lastTime

	stats := renderer.FrameStats{Draws: 10, ProgramBinds: 2, Skipped: 1}
	for i := 1; i < 4; i++ {
		assert.False(t, p.TickAt(start.Add(time.Duration(i)*200*time.Millisecond), stats))
	}
	// The fourth frame is the slow one.
	require.True(t, p.TickAt(start.Add(time.Second), stats))

	r := p.Last()
	assert.InDelta(t, 4.0, r.FPS, 1e-9)
	assert.InDelta(t, 10.0, r.DrawsPerFrame, 1e-9)
	assert.InDelta(t, 2.0, r.ProgramBindsPerFrame, 1e-9)
	assert.InDelta(t, 1.0, r.SkippedPerFrame, 1e-9)
	assert.Equal(t, 400*time.Millisecond, r.Worst)
	assert.Positive(t, r.SysMB)

	entries := logs.FilterMessage("frame stats").All()
	require.Len(t, entries, 1)
	assert.InDelta(t, 4.0, entries[0].ContextMap()["fps"], 1e-9)

	assert.False(t, p.TickAt(start.Add(1500*time.Millisecond), stats))
}

func TestNewProfilerDefaults(t *testing.T) {
	p := NewProfiler(nil, 0)
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.logger)
}
