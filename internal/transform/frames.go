// Package transform maps positions between the inertial frame the
// propagators produce, the Earth-fixed frame, ground observers and the
// rendered scene.
//
// Inertial to Earth-fixed uses a GMST-only rotation (TEME → PEF ≈ ECEF).
// Polar motion and the equation of the equinoxes are ignored, which costs
// at most ~50m and is invisible at scene scale.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3.
package transform

import (
	"math"
	"time"
)

// StateTEME is a position/velocity pair in the TEME frame (km, km/s).
type StateTEME struct {
	Position Vec3
	Velocity Vec3
}

// StateECEF is a position/velocity pair in the ECEF frame (m, m/s).
type StateECEF struct {
	Position Vec3
	Velocity Vec3
}

// TEMEToECEF transforms a TEME state to ECEF at the given UTC time.
func TEMEToECEF(teme StateTEME, t time.Time) StateECEF {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST transforms TEME to ECEF using a precomputed GMST angle (radians).
//
// Position: r_ECEF = R3(θ) * r_TEME
// Velocity: v_ECEF = R3(θ) * v_TEME - ω × r_ECEF
func TEMEToECEFWithGMST(teme StateTEME, gmst float64) StateECEF {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	r := rotZ(teme.Position, cosG, sinG)
	v := rotZ(teme.Velocity, cosG, sinG)

	// ω × r = [-ω*y, ω*x, 0]
	v.X += OmegaEarth * r.Y
	v.Y -= OmegaEarth * r.X

	return StateECEF{
		Position: r.Scale(1000.0),
		Velocity: v.Scale(1000.0),
	}
}

// ECEFToTEME rotates an Earth-fixed position (m) back into the TEME frame (km).
func ECEFToTEME(posM Vec3, gmst float64) Vec3 {
	return rotZ(posM, math.Cos(gmst), -math.Sin(gmst)).Scale(1.0 / 1000.0)
}

// rotZ applies R3(θ) given cos θ and sin θ.
func rotZ(p Vec3, c, s float64) Vec3 {
	return Vec3{
		X: p.X*c + p.Y*s,
		Y: -p.X*s + p.Y*c,
		Z: p.Z,
	}
}

// ValidateECEF reports whether an ECEF position (m) is finite and between
// 6200 km and 50000 km from the geocentre.
func ValidateECEF(pos StateECEF) bool {
	if !pos.Position.IsFinite() {
		return false
	}
	const (
		minRadius = 6200.0 * 1000.0
		maxRadius = 50000.0 * 1000.0
	)
	mag := pos.Position.Norm()
	return mag >= minRadius && mag <= maxRadius
}
