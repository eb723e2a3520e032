// Package camera implements an orbit-style viewpoint that translates freely
// and rotates around a fixed target without flipping over the poles.
package camera

import (
	"math"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// DegenerateRadius is the camera-target distance below which rotations
// are ignored.
const DegenerateRadius = 1e-9

// Defaults for per-tick control magnitudes.
const (
	DefaultPanStep         = 0.1
	DefaultRotateStep      = 0.01
	DefaultElevationMargin = 0.1
)

// State is the viewpoint. Target and Up stay fixed for an orbit camera.
type State struct {
	Position transform.SceneVector `json:"position"`
	Target   transform.SceneVector `json:"target"`
	Up       transform.SceneVector `json:"up"`
}

// DefaultState looks at the origin from just above the scene's equatorial
// plane, far enough out to frame a low orbit.
func DefaultState() State {
	return State{
		Position: transform.SceneVector{X: 15.94, Y: 0, Z: 14.0},
		Up:       transform.SceneVector{Y: 1},
	}
}

// Radius is the distance from target to position.
func (s State) Radius() float64 {
	return s.Position.Sub(s.Target).Norm()
}

// Azimuth is the bearing of the position around the target in the
// horizontal (x, z) plane, measured from +x towards +z.
func (s State) Azimuth() float64 {
	d := s.Position.Sub(s.Target)
	return math.Atan2(d.Z, d.X)
}

// Elevation is the angle of the position above the horizontal plane.
// It is zero for a degenerate radius.
func (s State) Elevation() float64 {
	d := s.Position.Sub(s.Target)
	r := d.Norm()
	if r < DegenerateRadius {
		return 0
	}
	return math.Asin(clamp(d.Y/r, -1, 1))
}

// Config holds the per-tick control magnitudes.
type Config struct {
	PanStep         float64 // scene units per tick
	RotateStep      float64 // radians per tick
	ElevationMargin float64 // closest approach to a pole, radians
}

// DefaultConfig returns the default control magnitudes.
func DefaultConfig() Config {
	return Config{
		PanStep:         DefaultPanStep,
		RotateStep:      DefaultRotateStep,
		ElevationMargin: DefaultElevationMargin,
	}
}

func (c Config) withDefaults() Config {
	if !usable(c.PanStep) {
		c.PanStep = DefaultPanStep
	}
	if !usable(c.RotateStep) {
		c.RotateStep = DefaultRotateStep
	}
	if !usable(c.ElevationMargin) || c.ElevationMargin >= math.Pi/2 {
		c.ElevationMargin = DefaultElevationMargin
	}
	return c
}

// Controller owns a camera state. It is not safe for concurrent use; the
// simulation tick is its only writer.
type Controller struct {
	state State
	cfg   Config
}

// NewController returns a controller starting at state.
func NewController(state State, cfg Config) *Controller {
	return &Controller{state: state, cfg: cfg.withDefaults()}
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Config returns the control magnitudes in use.
func (c *Controller) Config() Config { return c.cfg }

// usable reports whether a magnitude is positive and finite.
func usable(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

// Translate moves the position by delta. Target is unchanged. A
// non-finite delta is ignored.
func (c *Controller) Translate(delta transform.SceneVector) State {
	c.translate(delta)
	return c.state
}

func (c *Controller) translate(delta transform.SceneVector) bool {
	if !delta.IsFinite() {
		return false
	}
	c.state.Position = c.state.Position.Add(delta)
	return true
}

// RotateHorizontal turns the position about the vertical axis through the
// target. Height above the target and radius are preserved. The call is
// a no-op, reported as false, when delta is not finite, the radius is
// degenerate or the camera is directly above or below the target.
func (c *Controller) RotateHorizontal(delta float64) (State, bool) {
	d := c.state.Position.Sub(c.state.Target)
	if !finite(delta) || d.Norm() < DegenerateRadius {
		return c.state, false
	}
	rh := math.Hypot(d.X, d.Z)
	if rh < DegenerateRadius {
		return c.state, false
	}

	az := math.Atan2(d.Z, d.X) + delta
	sin, cos := math.Sincos(az)
	c.state.Position = c.state.Target.Add(transform.SceneVector{X: rh * cos, Y: d.Y, Z: rh * sin})
	return c.state, true
}

// RotateVertical tilts the position towards a pole, keeping radius and
// bearing. Elevation is clamped to ±(π/2 - ElevationMargin). A non-finite
// delta or a degenerate radius makes the call a no-op, reported as false.
func (c *Controller) RotateVertical(delta float64) (State, bool) {
	d := c.state.Position.Sub(c.state.Target)
	r := d.Norm()
	if !finite(delta) || r < DegenerateRadius {
		return c.state, false
	}

	limit := math.Pi/2 - c.cfg.ElevationMargin
	el := clamp(math.Asin(clamp(d.Y/r, -1, 1))+delta, -limit, limit)

	// Directly above or below the target the bearing is undefined; +x is used.
	az := 0.0
	if math.Hypot(d.X, d.Z) >= DegenerateRadius {
		az = math.Atan2(d.Z, d.X)
	}

	sinEl, cosEl := math.Sincos(el)
	sinAz, cosAz := math.Sincos(az)
	c.state.Position = c.state.Target.Add(transform.SceneVector{
		X: r * cosEl * cosAz,
		Y: r * sinEl,
		Z: r * cosEl * sinAz,
	})
	return c.state, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
