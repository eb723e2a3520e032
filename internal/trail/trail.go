// Package trail keeps a rolling window of propagated positions around the
// simulated time, used to draw the orbit path behind and ahead of the body.
//
// The window covers [t-buffer, t+horizon] in minutes since epoch, sampled
// every step. Each tick extends the leading edge and evicts the trailing
// edge. When the propagation model changes the window is rebuilt in one
// batch and swapped in whole.
package trail

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Window bounds. A side longer than MaxSpanMinutes is cut to it, and the
// step is widened when the window would exceed MaxPoints samples.
const (
	MaxSpanMinutes = 3 * 1440
	MaxPoints      = 20000

	// With steps of at least minStepMinutes, maxMinutes keeps step
	// indices well inside int64.
	minStepMinutes = 1e-3
	maxMinutes     = 1e12
)

// Config holds trail configuration.
type Config struct {
	StepMinutes    float64 // point spacing (default: 1)
	HorizonMinutes float64 // how far ahead to keep (default: 95)
	BufferMinutes  float64 // how far behind to keep (default: 95)
	Workers        int     // parallelism for rebuilds (default: 2)
}

// DefaultConfig covers roughly one low-orbit period on each side.
func DefaultConfig() Config {
	return Config{StepMinutes: 1, HorizonMinutes: 95, BufferMinutes: 95, Workers: 2}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if !(c.StepMinutes > 0) || math.IsInf(c.StepMinutes, 1) {
		c.StepMinutes = d.StepMinutes
	}
	c.StepMinutes = math.Max(c.StepMinutes, minStepMinutes)
	if !(c.HorizonMinutes >= 0) || math.IsInf(c.HorizonMinutes, 1) {
		c.HorizonMinutes = d.HorizonMinutes
	}
	if !(c.BufferMinutes >= 0) || math.IsInf(c.BufferMinutes, 1) {
		c.BufferMinutes = d.BufferMinutes
	}
	c.HorizonMinutes = math.Min(c.HorizonMinutes, MaxSpanMinutes)
	c.BufferMinutes = math.Min(c.BufferMinutes, MaxSpanMinutes)
	if span := c.HorizonMinutes + c.BufferMinutes; span/c.StepMinutes > MaxPoints-2 {
		c.StepMinutes = span / (MaxPoints - 2)
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}

// Point is one sample of the path.
type Point struct {
	Minutes    float64               `json:"minutes"`
	PositionKm transform.Vec3        `json:"-"`
	Position   transform.SceneVector `json:"position"`
}

// Entry wraps a point with generation metadata.
type Entry struct {
	Point       Point
	GeneratedAt time.Time
}

// Cache is the rolling path window. Advance is called from one goroutine;
// reads are safe from any goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[int64]*Entry

	config  Config
	scaleKm float64
	pool    *propagation.WorkerPool
	logger  *slog.Logger

	// Model and leading edge the entries were built for.
	model   propagation.Model
	leading int64

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	inCutover atomic.Bool
}

// Config returns the window settings in use.
func (c *Cache) Config() Config { return c.config }

// New creates an empty trail cache.
func New(config Config, scaleKm float64, logger *slog.Logger) *Cache {
	config = config.withDefaults()
	if !(scaleKm > 0) {
		scaleKm = transform.DefaultScaleKm
	}
	logger = logger.With("component", "trail")
	logger.Debug("trail initialized",
		"step_minutes", config.StepMinutes,
		"horizon_minutes", config.HorizonMinutes,
		"buffer_minutes", config.BufferMinutes,
	)
	return &Cache{
		entries: make(map[int64]*Entry),
		config:  config,
		scaleKm: scaleKm,
		pool:    propagation.NewWorkerPool(config.Workers, logger),
		logger:  logger,
	}
}

// StepIndex rounds minutes down to a step boundary and returns its index.
func (c *Cache) StepIndex(minutes float64) int64 {
	return int64(math.Floor(minutes / c.config.StepMinutes))
}

func (c *Cache) minutesAt(idx int64) float64 {
	return float64(idx) * c.config.StepMinutes
}

// Get returns the point at the step boundary at or before minutes.
func (c *Cache) Get(minutes float64) (Point, bool) {
	key := c.StepIndex(minutes)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncTrailHit()
		return entry.Point, true
	}
	c.misses.Add(1)
	metrics.IncTrailMiss()
	return Point{}, false
}

// GetRecent returns up to count points at or before minutes, oldest first.
func (c *Cache) GetRecent(minutes float64, count int) []Point {
	if count <= 0 {
		return nil
	}
	key := c.StepIndex(minutes)

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Point, 0, count)
	for i := int64(count - 1); i >= 0; i-- {
		if entry, ok := c.entries[key-i]; ok {
			out = append(out, entry.Point)
		}
	}
	return out
}

// Window returns every cached point, oldest first.
func (c *Cache) Window() []Point {
	c.mu.RLock()
	keys := make([]int64, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]Point, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.entries[k].Point)
	}
	c.mu.RUnlock()
	return out
}

// Advance brings the window up to date for model m at minutes: a changed
// model or a jump past the leading edge rebuilds everything, otherwise
// new points are added ahead and old ones dropped behind.
func (c *Cache) Advance(ctx context.Context, m propagation.Model, minutes float64) {
	if math.IsNaN(minutes) || math.Abs(minutes) > maxMinutes {
		return
	}
	if c.modelChanged(m) || c.StepIndex(minutes) > c.leading {
		c.performCutover(ctx, m, minutes)
		return
	}
	c.generateLeadingEdge(m, minutes)
	c.evictExpired(minutes)
}

// generateLeadingEdge fills indices up to minutes+horizon.
func (c *Cache) generateLeadingEdge(m propagation.Model, minutes float64) {
	target := c.StepIndex(minutes + c.config.HorizonMinutes)
	for idx := c.leading + 1; idx <= target; idx++ {
		p, err := c.point(m, c.minutesAt(idx))
		if err != nil {
			c.logger.Debug("leading edge generation failed", "minutes", c.minutesAt(idx), "error", err)
			metrics.IncTrailErrors()
			continue
		}
		c.put(idx, p)
	}
	if target > c.leading {
		c.leading = target
	}
}

func (c *Cache) point(m propagation.Model, minutes float64) (Point, error) {
	st, err := m.Propagate(minutes)
	if err != nil {
		return Point{}, err
	}
	return c.toPoint(st)
}

func (c *Cache) toPoint(st propagation.StateVector) (Point, error) {
	pos, err := transform.ToScene(st.PositionKm, c.scaleKm)
	if err != nil {
		return Point{}, err
	}
	return Point{Minutes: st.MinutesSinceEpoch, PositionKm: st.PositionKm, Position: pos}, nil
}

// put stores a point. Caller must not hold mu.
func (c *Cache) put(idx int64, p Point) {
	c.mu.Lock()
	c.entries[idx] = &Entry{Point: p, GeneratedAt: time.Now()}
	n := len(c.entries)
	c.mu.Unlock()
	metrics.SetTrailEntries(n)
}

// evictExpired removes points older than minutes - buffer.
func (c *Cache) evictExpired(minutes float64) int {
	cutoff := c.StepIndex(minutes - c.config.BufferMinutes)
	var removed int

	c.mu.Lock()
	for idx := range c.entries {
		if idx < cutoff {
			delete(c.entries, idx)
			removed++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddTrailEvictions(removed)
		metrics.SetTrailEntries(n)
		c.logger.Debug("trail eviction", "entries_removed", removed)
	}
	return removed
}

// replaceAll swaps in a rebuilt window.
func (c *Cache) replaceAll(entries map[int64]*Entry) {
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	metrics.SetTrailEntries(len(entries))
}

// Stats holds trail statistics.
type Stats struct {
	Entries       int     `json:"entries"`
	OldestMinutes float64 `json:"oldest_minutes"`
	NewestMinutes float64 `json:"newest_minutes"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	InCutover     bool    `json:"in_cutover"`
}

// Stats returns current trail statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	s := Stats{Entries: len(c.entries)}
	first := true
	for _, e := range c.entries {
		m := e.Point.Minutes
		if first || m < s.OldestMinutes {
			s.OldestMinutes = m
		}
		if first || m > s.NewestMinutes {
			s.NewestMinutes = m
		}
		first = false
	}
	c.mu.RUnlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	s.InCutover = c.inCutover.Load()
	return s
}
