package propagation

import "math"

// Kepler solver defaults.
const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 50
)

// SolveKepler returns the eccentric anomaly E satisfying M = E - e·sin E,
// using Newton iteration. It fails with a Divergence error when the
// correction has not dropped below tol after maxIter steps.
func SolveKepler(meanAnomaly, ecc, tol float64, maxIter int) (float64, error) {
	if math.IsNaN(meanAnomaly) || math.IsInf(meanAnomaly, 0) {
		return 0, diverged(0, "mean anomaly %v", meanAnomaly)
	}
	if ecc < 0 || ecc >= 1 || math.IsNaN(ecc) {
		return 0, diverged(0, "eccentricity %v outside [0, 1)", ecc)
	}

	m := math.Remainder(meanAnomaly, 2*math.Pi)
	E := m
	if ecc > 0.8 {
		E = math.Copysign(math.Pi, m)
	}

	for i := 0; i < maxIter; i++ {
		sinE, cosE := math.Sincos(E)
		d := (E - ecc*sinE - m) / (1 - ecc*cosE)
		E -= d
		if math.Abs(d) < tol {
			// Restore the revolutions removed above.
			return E + (meanAnomaly - m), nil
		}
	}
	return 0, diverged(0, "kepler solver did not reach %g in %d iterations (M=%g e=%g)", tol, maxIter, meanAnomaly, ecc)
}
