package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Reference instants: J2000, the Unix epoch, Vallado example 3-15 and the
// built-in element epoch.
var referenceTimes = []time.Time{
	time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
	time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
	time.Date(2020, 7, 12, 21, 16, 1, 0, time.UTC),
}

func gsTime(t time.Time) float64 {
	return satellite.GSTimeFromDate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

func TestJulianDateKnownValues(t *testing.T) {
	want := []float64{2451545.0, 2440587.5, 2453101.827407407, 2459043.386122685}
	for i, at := range referenceTimes {
		if got := JulianDate(at); math.Abs(got-want[i]) > 1e-6 {
			t.Errorf("JulianDate(%s) = %.9f, want %.9f", at.Format(time.RFC3339), got, want[i])
		}
	}
}

func TestGMSTMatchesGoSatellite(t *testing.T) {
	for _, at := range referenceTimes {
		ours, ref := GMST(at), gsTime(at)
		// Wrap the difference so 2π-ε and ε compare equal.
		d := math.Remainder(ours-ref, 2*math.Pi)
		if math.Abs(d) > 1e-7 {
			t.Errorf("GMST(%s) = %.10f, go-satellite %.10f", at.Format(time.RFC3339), ours, ref)
		}
		if ours < 0 || ours >= 2*math.Pi {
			t.Errorf("GMST(%s) = %g outside [0, 2π)", at.Format(time.RFC3339), ours)
		}
	}
}

func TestGMSTAdvancesOneTurnPerSiderealDay(t *testing.T) {
	start := referenceTimes[3]
	sidereal := time.Duration(86164.0905 * float64(time.Second))
	d := math.Remainder(GMST(start.Add(sidereal))-GMST(start), 2*math.Pi)
	if math.Abs(d) > 1e-5 {
		t.Errorf("GMST drifted %.3g rad over one sidereal day", d)
	}
}

func TestTEMEToECEFMatchesGoSatellite(t *testing.T) {
	positions := []Vec3{
		{5094.18016, 6127.64465, 6380.34453}, // Vallado example 3-15
		{6778.0, 0, 0},
		{0, 0, 6978.0},
		{-4400.5, 3100.25, 4100.75},
	}
	for _, at := range referenceTimes {
		gmst := gsTime(at)
		for _, p := range positions {
			ours := TEMEToECEFWithGMST(StateTEME{Position: p}, gmst).Position.Scale(1e-3)
			ref := satellite.ECIToECEF(satellite.Vector3{X: p.X, Y: p.Y, Z: p.Z}, gmst)
			d := ours.Sub(Vec3{ref.X, ref.Y, ref.Z}).Norm()
			if d > 1e-3 {
				t.Errorf("%s %v: off by %.3g km from go-satellite", at.Format(time.RFC3339), p, d)
			}
		}
	}
}

func TestTEMEToECEFVelocity(t *testing.T) {
	// At GMST 0 the frames coincide and only Earth's rotation is removed.
	ecef := TEMEToECEFWithGMST(StateTEME{
		Position: Vec3{6778.0, 0, 0},
		Velocity: Vec3{0, 7.5, 0},
	}, 0)

	if math.Abs(ecef.Position.X-6778000.0) > 0.1 {
		t.Errorf("X = %.1f m, want 6778000", ecef.Position.X)
	}
	if want := (7.5 - OmegaEarth*6778.0) * 1000.0; math.Abs(ecef.Velocity.Y-want) > 0.1 {
		t.Errorf("VY = %.1f m/s, want %.1f", ecef.Velocity.Y, want)
	}
}

func TestValidateECEF(t *testing.T) {
	at := func(x float64) StateECEF { return StateECEF{Position: Vec3{X: x}} }
	tests := []struct {
		name  string
		pos   StateECEF
		valid bool
	}{
		{"LEO", at(6778000), true},
		{"GEO", at(42164000), true},
		{"below surface", at(5000000), false},
		{"beyond GEO band", at(60000000), false},
		{"NaN", at(math.NaN()), false},
		{"Inf", at(math.Inf(1)), false},
		{"origin", at(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateECEF(tt.pos); got != tt.valid {
				t.Errorf("ValidateECEF = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestECEFToTEMEInvertsRotation(t *testing.T) {
	teme := StateTEME{Position: Vec3{-4400.5, 3100.25, 4100.75}}
	for _, gmst := range []float64{0, 1.2, math.Pi, 5.9} {
		ecef := TEMEToECEFWithGMST(teme, gmst)
		back := ECEFToTEME(ecef.Position, gmst)
		if d := back.Sub(teme.Position).Norm(); d > 1e-9 {
			t.Errorf("gmst=%.2f: round trip off by %.3g km", gmst, d)
		}
	}
}
