package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// go-satellite's Propagate takes Satellite by value, so SGP4 error codes
// are not visible to the caller. Failures are detected from NaN/Inf output
// and unreasonable position magnitudes instead.

// SGP4 wraps go-satellite for a single element set.
type SGP4 struct {
	el  tle.Elements
	sat satellite.Satellite
}

// NewSGP4 initialises the library model from the element set's raw lines.
//
// The lines are checked before they reach the library, because go-satellite
// calls log.Fatal on malformed input.
func NewSGP4(el tle.Elements) (*SGP4, error) {
	if err := el.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidElements, Reason: "element validation", Err: err}
	}
	if _, err := tle.ParseElements(el.Line1, el.Line2); err != nil {
		return nil, &Error{Kind: KindInvalidElements, Reason: "raw lines", Err: err}
	}

	sat := satellite.TLEToSat(el.Line1, el.Line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, &Error{Kind: KindInvalidElements,
			Reason: fmt.Sprintf("sgp4 init failed for NORAD %d: code=%d %s", el.NORADID, sat.Error, sat.ErrorStr)}
	}
	return &SGP4{el: el, sat: sat}, nil
}

// Name implements Model.
func (p *SGP4) Name() string { return ModelSGP4 }

// Elements implements Model.
func (p *SGP4) Elements() tle.Elements { return p.el }

// Propagate implements Model. The library resolves time to whole seconds.
func (p *SGP4) Propagate(minutes float64) (StateVector, error) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return StateVector{}, diverged(minutes, "offset is not finite")
	}
	t := p.el.TimeAt(minutes).Round(time.Second)
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	r := transform.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
	v := transform.Vec3{X: vel.X, Y: vel.Y, Z: vel.Z}
	if !r.IsFinite() || !v.IsFinite() {
		return StateVector{}, diverged(minutes, "sgp4 output is NaN/Inf for NORAD %d", p.el.NORADID)
	}

	// Between just under the Earth's surface and beyond GEO.
	if mag := r.Norm(); mag < 6200.0 || mag > 50000.0 {
		return StateVector{}, diverged(minutes, "sgp4 position magnitude %.1f km for NORAD %d", mag, p.el.NORADID)
	}

	return StateVector{MinutesSinceEpoch: minutes, PositionKm: r, VelocityKmS: v}, nil
}
