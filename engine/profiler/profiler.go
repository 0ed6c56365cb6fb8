package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-ecs/engine/renderer"

	"go.uber.org/zap"
)

// Report is one logged interval of frame and memory statistics.
type Report struct {
	FPS float64

	// Frame statistics are averaged per frame over the interval.
	DrawsPerFrame        float64
	ProgramBindsPerFrame float64
	SkippedPerFrame      float64
	UniformErrors        int

	// Worst is the longest frame of the interval.
	Worst time.Duration

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, renderer statistics and memory for performance monitoring.
// Outputs a Report to the logger at a configurable interval.
type Profiler struct {
	logger         *zap.Logger
	updateInterval time.Duration

	frameCount int
	stats      renderer.FrameStats
	worst      time.Duration
	lastFrame  time.Time
	lastTime   time.Time
	last       Report

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler logging through logger every interval.
// A nil logger disables output; an interval <= 0 selects one second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *zap.Logger, interval time.Duration) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	now := time.Now()
	return &Profiler{
		logger:         logger,
		updateInterval: interval,
		lastFrame:      now,
		lastTime:       now,
	}
}

// Tick should be called once per frame with that frame's renderer statistics.
// Logs a Report when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.FrameStats) bool {
	return p.TickAt(time.Now(), stats)
}

// TickAt is Tick with an explicit clock reading.
func (p *Profiler) TickAt(now time.Time, stats renderer.FrameStats) bool {
	p.frameCount++
	p.stats.Add(stats)
	if d := now.Sub(p.lastFrame); d > p.worst {
		p.worst = d
	}
	p.lastFrame = now

	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := Report{
		FPS:                  float64(p.frameCount) / elapsed.Seconds(),
		DrawsPerFrame:        float64(p.stats.Draws) / float64(p.frameCount),
		ProgramBindsPerFrame: float64(p.stats.ProgramBinds) / float64(p.frameCount),
		SkippedPerFrame:      float64(p.stats.Skipped) / float64(p.frameCount),
		UniformErrors:        p.stats.UniformErrors,
		Worst:                p.worst,
	}
	p.readMemory(&r, elapsed)

	p.logger.Info("frame stats",
		zap.Float64("fps", r.FPS),
		zap.Duration("worstFrame", r.Worst),
		zap.Float64("draws", r.DrawsPerFrame),
		zap.Float64("programBinds", r.ProgramBindsPerFrame),
		zap.Float64("skipped", r.SkippedPerFrame),
		zap.Int("uniformErrors", r.UniformErrors),
		zap.Float64("heapMB", r.HeapMB),
		zap.Float64("allocRateMBs", r.AllocRateMB),
		zap.Uint32("gc", r.GCCount),
		zap.Uint64("gcLastPauseUs", r.LastPauseUs),
		zap.Uint64("gcMaxPauseUs", r.MaxPauseUs),
		zap.Float64("sysMB", r.SysMB),
	)

	p.last = r
	p.frameCount = 0
	p.stats = renderer.FrameStats{}
	p.worst = 0
	p.lastTime = now
	return true
}

// Last returns the most recently logged report.
func (p *Profiler) Last() Report {
	return p.last
}

func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap; TotalAlloc only grows and tracks churn; Sys is the process footprint.
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	r.GCCount = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
