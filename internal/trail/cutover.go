package trail

import (
	"context"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
)

// modelChanged reports whether m differs from the model the window was
// built from.
func (c *Cache) modelChanged(m propagation.Model) bool {
	return c.model != m
}

// performCutover rebuilds the whole window for m around minutes.
//
// The new entries are computed in one batch on the worker pool while
// readers keep seeing the old window, then swapped in.
func (c *Cache) performCutover(ctx context.Context, m propagation.Model, minutes float64) {
	c.inCutover.Store(true)
	defer c.inCutover.Store(false)

	start := time.Now()
	first := c.StepIndex(minutes - c.config.BufferMinutes)
	last := c.StepIndex(minutes + c.config.HorizonMinutes)
	if span := last - first; span < 0 || span >= MaxPoints {
		// Config bounds make this unreachable; it guards the allocation.
		metrics.IncTrailErrors()
		c.logger.Warn("trail window out of range, skipping rebuild",
			"minutes", minutes, "first", first, "last", last)
		return
	}

	offsets := make([]float64, 0, last-first+1)
	for idx := first; idx <= last; idx++ {
		offsets = append(offsets, c.minutesAt(idx))
	}
	samples, _, _ := c.pool.Ephemeris(ctx, m, offsets)

	entries := make(map[int64]*Entry, len(samples))
	now := time.Now()
	var failed int
	for i, s := range samples {
		if s.Err != nil {
			failed++
			metrics.IncTrailErrors()
			continue
		}
		p, err := c.toPoint(s.State)
		if err != nil {
			failed++
			metrics.IncTrailErrors()
			continue
		}
		entries[first+int64(i)] = &Entry{Point: p, GeneratedAt: now}
	}
	if ctx.Err() != nil {
		c.logger.Warn("trail cutover cancelled", "error", ctx.Err())
		return
	}

	c.replaceAll(entries)
	c.model = m
	c.leading = last

	d := time.Since(start)
	metrics.ObserveTrailCutover(d)
	c.logger.Debug("trail cutover complete",
		"model", m.Name(),
		"entries", len(entries),
		"failed", failed,
		"duration_ms", d.Milliseconds(),
	)
}
