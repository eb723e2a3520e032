package propagation

import (
	"fmt"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// StateVector is an inertial (TEME) position and velocity at an offset
// from the element epoch.
type StateVector struct {
	MinutesSinceEpoch float64        `json:"minutes_since_epoch"`
	PositionKm        transform.Vec3 `json:"position_km"`
	VelocityKmS       transform.Vec3 `json:"velocity_km_s"`
}

// TEME returns the state in the form the frame transforms take.
func (s StateVector) TEME() transform.StateTEME {
	return transform.StateTEME{Position: s.PositionKm, Velocity: s.VelocityKmS}
}

// Model propagates one element set. Implementations are immutable after
// construction and safe for concurrent use.
type Model interface {
	Name() string
	Elements() tle.Elements
	Propagate(minutesSinceEpoch float64) (StateVector, error)
}

// Model names accepted by NewModel.
const (
	ModelMeanElements = "mean-elements"
	ModelSGP4         = "sgp4"
)

// Config selects and tunes the model built for the simulated body.
type Config struct {
	Model         string  // ModelMeanElements (default) or ModelSGP4
	NORADID       int     // 0 selects the first entry of the dataset
	Workers       int     // ephemeris worker pool size
	Tolerance     float64 // Kepler solver tolerance, radians
	MaxIterations int     // Kepler solver iteration bound
}

// NewModel builds the named model for el.
func NewModel(name string, el tle.Elements, opts ...Option) (Model, error) {
	switch name {
	case "", ModelMeanElements:
		return New(el, opts...)
	case ModelSGP4:
		return NewSGP4(el)
	default:
		return nil, fmt.Errorf("unknown propagation model %q", name)
	}
}
