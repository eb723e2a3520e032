package transform

import (
	"errors"
	"fmt"
)

// DefaultScaleKm is the number of kilometres per scene unit.
const DefaultScaleKm = 1000.0

var (
	// ErrNonFinite is matched when an input vector or scale is NaN or infinite.
	ErrNonFinite = errors.New("non-finite coordinate")
	// ErrInvalidScale is matched when the scale is zero or negative.
	ErrInvalidScale = errors.New("scale must be positive")
)

// TransformError carries the rejected input.
type TransformError struct {
	Input Vec3
	Scale float64
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("scene transform of [%g %g %g] at scale %g: %v", e.Input.X, e.Input.Y, e.Input.Z, e.Scale, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ToScene maps an inertial position in km to scene units. The axes are
// permuted cyclically (x, y, z) -> (y, z, x) so inertial +Z lands on scene
// +Y and handedness is preserved.
func ToScene(posKm Vec3, scaleKm float64) (SceneVector, error) {
	if !finite(scaleKm) || !posKm.IsFinite() {
		return SceneVector{}, &TransformError{Input: posKm, Scale: scaleKm, Err: ErrNonFinite}
	}
	if scaleKm <= 0 {
		return SceneVector{}, &TransformError{Input: posKm, Scale: scaleKm, Err: ErrInvalidScale}
	}
	return SceneVector{
		X: posKm.Y / scaleKm,
		Y: posKm.Z / scaleKm,
		Z: posKm.X / scaleKm,
	}, nil
}

// FromScene is the inverse of ToScene.
func FromScene(s SceneVector, scaleKm float64) Vec3 {
	return Vec3{X: s.Z * scaleKm, Y: s.X * scaleKm, Z: s.Y * scaleKm}
}
