package propagation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

// ErrNoDataset is returned before any element dataset has been loaded.
var ErrNoDataset = errors.New("no element dataset loaded")

// modelCache holds the model built for one dataset. Immutable after
// construction.
type modelCache struct {
	model     Model
	fetchedAt time.Time
	source    string
}

// Track is a sampled ephemeris of the simulated body.
type Track struct {
	Model   string    `json:"model"`
	NORADID int       `json:"norad_id"`
	Start   time.Time `json:"start"`
	Step    string    `json:"step"`
	Samples []Sample  `json:"samples"`
	Errors  int       `json:"errors"`
}

// Propagator builds the model for the configured body from the current
// dataset and serves ephemeris requests through the worker pool.
type Propagator struct {
	store   *tle.Store
	pool    *WorkerPool
	config  Config
	logger  *slog.Logger
	cache   atomic.Pointer[modelCache]
	cacheMu sync.Mutex // serializes model rebuilds
}

// NewPropagator creates a new propagation orchestrator.
func NewPropagator(store *tle.Store, config Config, logger *slog.Logger) *Propagator {
	return &Propagator{
		store:  store,
		pool:   NewWorkerPool(config.Workers, logger),
		config: config,
		logger: logger,
	}
}

// Model returns the model for the current dataset, rebuilding it when the
// dataset has changed (double-checked locking).
func (p *Propagator) Model() (Model, error) {
	ds := p.store.Get()
	if ds == nil {
		return nil, ErrNoDataset
	}
	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) && c.source == ds.Source {
		return c.model, nil
	}

	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()

	if c := p.cache.Load(); c != nil && c.fetchedAt.Equal(ds.FetchedAt) && c.source == ds.Source {
		return c.model, nil
	}

	entry, ok := ds.Find(p.config.NORADID)
	if !ok {
		return nil, fmt.Errorf("NORAD %d not in dataset %s", p.config.NORADID, ds.Source)
	}
	m, err := NewModel(p.config.Model, entry.Elements, p.options()...)
	if err != nil {
		return nil, fmt.Errorf("building %s model for NORAD %d: %w", p.config.Model, entry.NORADID, err)
	}

	p.logger.Info("propagation model built",
		"model", m.Name(),
		"norad_id", entry.NORADID,
		"name", entry.Name,
		"epoch", entry.Epoch.Format(time.RFC3339),
		"dataset_source", ds.Source,
	)
	p.cache.Store(&modelCache{model: m, fetchedAt: ds.FetchedAt, source: ds.Source})
	return m, nil
}

func (p *Propagator) options() []Option {
	return []Option{WithTolerance(p.config.Tolerance), WithMaxIterations(p.config.MaxIterations)}
}

// Track samples count states starting at start, step apart.
func (p *Propagator) Track(ctx context.Context, start time.Time, step time.Duration, count int) (*Track, error) {
	if count <= 0 || step <= 0 {
		return nil, fmt.Errorf("track needs a positive step and count, got %s x %d", step, count)
	}
	m, err := p.Model()
	if err != nil {
		return nil, err
	}

	el := m.Elements()
	offsets := make([]float64, count)
	for i := range offsets {
		offsets[i] = el.MinutesSince(start.Add(time.Duration(i) * step))
	}

	begin := time.Now()
	samples, successCount, errorCount := p.pool.Ephemeris(ctx, m, offsets)
	duration := time.Since(begin)
	metrics.RecordPropagation(m.Name(), duration, successCount, errorCount)

	p.logger.Debug("track propagated",
		"model", m.Name(),
		"samples", count,
		"errors", errorCount,
		"duration_ms", duration.Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Track{
		Model:   m.Name(),
		NORADID: el.NORADID,
		Start:   start.UTC(),
		Step:    step.String(),
		Samples: samples,
		Errors:  errorCount,
	}, nil
}
