package sim

import (
	"fmt"
	"math"
	"time"
)

// ClockMode selects how a tick advances simulated time.
type ClockMode string

const (
	// ClockFixed advances a constant number of minutes per tick.
	ClockFixed ClockMode = "fixed"
	// ClockRealtime advances the frame duration times a scale factor.
	ClockRealtime ClockMode = "realtime"
)

// DefaultTickMinutes is the fixed-mode advance per tick.
const DefaultTickMinutes = 0.1

// ClockConfig configures a Clock.
type ClockConfig struct {
	Mode         ClockMode
	TickMinutes  float64
	TimeScale    float64
	StartMinutes float64 // offset from the element epoch at tick zero
}

// ParseClockMode validates a mode name.
func ParseClockMode(s string) (ClockMode, error) {
	switch ClockMode(s) {
	case ClockFixed, ClockRealtime:
		return ClockMode(s), nil
	case "":
		return ClockFixed, nil
	}
	return "", fmt.Errorf("unknown clock mode %q", s)
}

// Clock tracks simulated minutes since the element epoch. It never moves
// backwards.
type Clock struct {
	cfg     ClockConfig
	elapsed float64
}

// NewClock returns a clock at cfg.StartMinutes.
func NewClock(cfg ClockConfig) *Clock {
	if cfg.Mode == "" {
		cfg.Mode = ClockFixed
	}
	if cfg.TickMinutes <= 0 || math.IsNaN(cfg.TickMinutes) {
		cfg.TickMinutes = DefaultTickMinutes
	}
	if cfg.TimeScale <= 0 || math.IsNaN(cfg.TimeScale) {
		cfg.TimeScale = 1
	}
	start := cfg.StartMinutes
	if math.IsNaN(start) || math.IsInf(start, 0) {
		start = 0
	}
	return &Clock{cfg: cfg, elapsed: start}
}

// Advance moves the clock forward for one tick of the given frame
// duration and returns the new elapsed minutes. Negative frames do not
// move a realtime clock.
func (c *Clock) Advance(frame time.Duration) float64 {
	var step float64
	switch c.cfg.Mode {
	case ClockRealtime:
		step = frame.Minutes() * c.cfg.TimeScale
	default:
		step = c.cfg.TickMinutes
	}
	if step > 0 && !math.IsInf(step, 0) {
		c.elapsed += step
	}
	return c.elapsed
}

// Elapsed returns the current minutes since epoch.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// Mode returns the configured mode.
func (c *Clock) Mode() ClockMode { return c.cfg.Mode }
