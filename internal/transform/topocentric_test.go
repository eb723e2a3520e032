package transform

import (
	"math"
	"testing"

	"github.com/gonum/floats"
)

func TestObserverPositionRadius(t *testing.T) {
	tests := []struct {
		name       string
		lat, alt   float64
		wantRadius float64
	}{
		{"equator", 0, 0, 6378137.0},
		{"north pole", 90, 0, 6356752.3},
		{"equator 100m", 0, 100, 6378237.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := NewObserverPosition(tt.lat, 0, tt.alt)
			if got := obs.ECEF.Norm(); !floats.EqualWithinAbs(got, tt.wantRadius, 1.0) {
				t.Errorf("radius = %.1f m, want %.1f m", got, tt.wantRadius)
			}
		})
	}
}

func TestECEFToGeodeticRoundTrip(t *testing.T) {
	sites := []struct{ lat, lon, alt float64 }{
		{49.6116, 6.1319, 0},
		{-15.7939, -47.8828, 1172},
		{51.64, 120, 420000},
		{-80, -170, 800000},
	}
	for _, s := range sites {
		obs := NewObserverPosition(s.lat, s.lon, s.alt)
		g := ECEFToGeodetic(obs.ECEF)
		if !floats.EqualWithinAbs(g.LatDeg, s.lat, 1e-6) ||
			!floats.EqualWithinAbs(g.LonDeg, s.lon, 1e-6) ||
			!floats.EqualWithinAbs(g.AltM, s.alt, 1e-2) {
			t.Errorf("round trip of %+v = %+v", s, g)
		}
	}
}

func TestECEFToLookAnglesOverhead(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)
	sat := obs.ECEF.Add(Vec3{X: 400000})

	la := ECEFToLookAngles(obs, sat)
	if math.Abs(la.ElevationDeg-90.0) > 0.1 {
		t.Errorf("overhead elevation = %.2f deg, want ~90", la.ElevationDeg)
	}
	if math.Abs(la.RangeKm-400.0) > 1.0 {
		t.Errorf("overhead range = %.2f km, want ~400", la.RangeKm)
	}
}

func TestECEFToLookAnglesDirections(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	tests := []struct {
		name     string
		lat, lon float64
		wantAz   float64
	}{
		{"north", 10, 0, 0},
		{"east", 0, 10, 90},
		{"south", -10, 0, 180},
		{"west", 0, -10, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sat := NewObserverPosition(tt.lat, tt.lon, 400000)
			la := ECEFToLookAngles(obs, sat.ECEF)
			diff := math.Abs(la.AzimuthDeg - tt.wantAz)
			if diff > 180 {
				diff = 360 - diff
			}
			if diff > 30 {
				t.Errorf("azimuth = %.2f deg, want near %.0f", la.AzimuthDeg, tt.wantAz)
			}
			if la.ElevationDeg <= 0 || la.ElevationDeg >= 90 {
				t.Errorf("elevation = %.2f deg, want in (0, 90)", la.ElevationDeg)
			}
		})
	}
}

func TestECEFToLookAnglesBelowHorizon(t *testing.T) {
	obs := NewObserverPosition(40.7128, -74.006, 10)
	la := ECEFToLookAngles(obs, Vec3{X: -6778000})
	if la.ElevationDeg >= 0 {
		t.Errorf("antipodal satellite elevation = %.2f deg, want negative", la.ElevationDeg)
	}
	if la.RangeKm <= 0 {
		t.Errorf("range should be positive, got %.2f km", la.RangeKm)
	}
}
