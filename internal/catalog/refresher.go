package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
)

// Recorder persists successful snapshots. *History implements it.
type Recorder interface {
	Record(ctx context.Context, snap *Snapshot) error
}

// RefresherConfig configures a Refresher.
type RefresherConfig struct {
	LatDeg   float64
	LonDeg   float64
	Timeout  time.Duration // per fetch (default: 20s)
	Interval time.Duration // periodic refresh; 0 means on request only
}

// Refresher runs catalog fetches on its own goroutine. Requests coalesce:
// at most one is pending while a fetch runs. Results go to a channel with
// room for one; an unread result is replaced by the newer one.
type Refresher struct {
	source   Source
	cfg      RefresherConfig
	recorder Recorder
	logger   *slog.Logger

	requests chan struct{}
	results  chan Result
}

// NewRefresher creates a refresher. recorder may be nil.
func NewRefresher(source Source, cfg RefresherConfig, recorder Recorder, logger *slog.Logger) *Refresher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Refresher{
		source:   source,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger.With("component", "catalog"),
		requests: make(chan struct{}, 1),
		results:  make(chan Result, 1),
	}
}

// Request asks for a refresh without blocking. It returns false when a
// request is already pending.
func (r *Refresher) Request() bool {
	select {
	case r.requests <- struct{}{}:
		return true
	default:
		return false
	}
}

// Results is the channel results are delivered on.
func (r *Refresher) Results() <-chan Result {
	return r.results
}

// Run serves requests until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	var tick <-chan time.Time
	if r.cfg.Interval > 0 {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	r.logger.Info("catalog refresher started",
		"lat", r.cfg.LatDeg,
		"lon", r.cfg.LonDeg,
		"interval", r.cfg.Interval.String(),
	)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("catalog refresher stopped")
			return
		case <-r.requests:
		case <-tick:
		}
		r.deliver(r.fetch(ctx))
	}
}

// fetch runs one bounded fetch and records the outcome.
func (r *Refresher) fetch(ctx context.Context) Result {
	fctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	snap, err := r.source.FetchNearby(fctx, r.cfg.LatDeg, r.cfg.LonDeg)
	res := Result{Snapshot: snap, Err: err, Duration: time.Since(start)}

	objects := 0
	if snap != nil {
		objects = len(snap.Objects)
	}
	metrics.RecordCatalogFetch(res.Duration, objects, err)
	if err != nil {
		r.logger.Warn("catalog fetch failed", "error", err, "duration_ms", res.Duration.Milliseconds())
		return res
	}
	r.logger.Info("catalog fetch complete", "objects", objects, "duration_ms", res.Duration.Milliseconds())

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, snap); err != nil {
			r.logger.Warn("recording catalog snapshot failed", "snapshot_id", snap.ID, "error", err)
		}
	}
	return res
}

// deliver hands res to the reader, replacing an unread older result.
// Refresher is the only sender so the second send cannot block.
func (r *Refresher) deliver(res Result) {
	select {
	case r.results <- res:
		return
	default:
	}
	select {
	case <-r.results:
	default:
	}
	r.results <- res
}
