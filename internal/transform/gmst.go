package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

// OmegaEarth is Earth's rotation rate in rad/s.
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts t to a Julian date on the UTC scale.
func JulianDate(t time.Time) float64 {
	return julian.TimeToJD(t.UTC())
}

// GMST is the Greenwich mean sidereal angle at t in radians, [0, 2π).
// UT1 is taken as UTC.
func GMST(t time.Time) float64 {
	theta := math.Mod(sidereal.Mean(JulianDate(t)).Angle().Rad(), 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}
