package sim

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
)

// DefaultFrameRate is the tick frequency in frames per second.
const DefaultFrameRate = 30

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	FrameRate    int
	Catalog      <-chan catalog.Result // optional
	CatalogStore *catalog.Store        // optional; receives successful snapshots
}

// Runner owns the tick loop. It is the only goroutine that touches State.
type Runner struct {
	state  *State
	input  *InputBuffer
	cfg    RunnerConfig
	logger *slog.Logger

	latest atomic.Pointer[Scene]
	ticks  atomic.Uint64
}

// NewRunner wires a tick loop around state and input.
func NewRunner(state *State, input *InputBuffer, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	return &Runner{
		state:  state,
		input:  input,
		cfg:    cfg,
		logger: logger.With("component", "runner"),
	}
}

// Latest returns the most recently published scene, or nil before the
// first tick.
func (r *Runner) Latest() *Scene {
	return r.latest.Load()
}

// Ticks returns the number of ticks run so far.
func (r *Runner) Ticks() uint64 {
	return r.ticks.Load()
}

// Input returns the buffer controls are written to.
func (r *Runner) Input() *InputBuffer {
	return r.input
}

// Run ticks at the configured frame rate until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(r.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("simulation started", "frame_rate", r.cfg.FrameRate)
	last := time.Now()
	r.Step(0)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("simulation stopped", "ticks", r.ticks.Load())
			return ctx.Err()
		case now := <-ticker.C:
			r.Step(now.Sub(last))
			last = now
		}
	}
}

// Step runs one tick with the given frame duration and publishes the scene.
func (r *Runner) Step(frame time.Duration) *Scene {
	r.drainCatalog()

	start := time.Now()
	scene := r.state.Tick(r.input.Snapshot(), frame)
	metrics.RecordTick(time.Since(start), scene.ElapsedMinutes)

	r.latest.Store(&scene)
	r.ticks.Add(1)
	return &scene
}

// drainCatalog applies any catalog results waiting without blocking.
func (r *Runner) drainCatalog() {
	if r.cfg.Catalog == nil {
		return
	}
	for {
		select {
		case res := <-r.cfg.Catalog:
			r.applyCatalog(res)
		default:
			return
		}
	}
}

func (r *Runner) applyCatalog(res catalog.Result) {
	if res.Err != nil {
		summary := CatalogSummary{Error: res.Err.Error()}
		if prev := r.cfg.CatalogStore; prev != nil {
			if snap := prev.Get(); snap != nil {
				summary.Objects = len(snap.Objects)
				summary.FetchedAt = snap.FetchedAt
			}
		}
		r.state.SetCatalog(summary)
		return
	}
	if r.cfg.CatalogStore != nil {
		r.cfg.CatalogStore.Set(res.Snapshot)
	}
	r.state.SetCatalog(CatalogSummary{
		Objects:   len(res.Snapshot.Objects),
		FetchedAt: res.Snapshot.FetchedAt,
	})
}
