package sim

import (
	"math"
	"testing"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

func TestBuildMarkers(t *testing.T) {
	at := time.Date(2020, 7, 12, 21, 16, 1, 0, time.UTC)
	markers, err := BuildMarkers(DefaultSites(), at, 6378, 1000)
	if err != nil {
		t.Fatalf("BuildMarkers: %v", err)
	}
	if len(markers) != len(DefaultSites())+2 {
		t.Fatalf("markers: got %d, want %d", len(markers), len(DefaultSites())+2)
	}

	gmst := transform.GMST(at)
	for i, site := range DefaultSites() {
		m := markers[i]
		if m.Name != site.Name || m.Kind != MarkerSite || m.Color != site.Color {
			t.Errorf("marker %d: %+v", i, m)
		}
		ecef := transform.NewObserverPosition(site.LatDeg, site.LonDeg, 0).ECEF

		// Scene up is inertial Z, which the Earth rotation leaves alone.
		if want := ecef.Z / 1e6; math.Abs(m.Position.Y-want) > 1e-9 {
			t.Errorf("%s: y got %v, want %v", site.Name, m.Position.Y, want)
		}
		horiz := math.Hypot(m.Position.X, m.Position.Z)
		if want := math.Hypot(ecef.X, ecef.Y) / 1e6; math.Abs(horiz-want) > 1e-9 {
			t.Errorf("%s: horizontal radius got %v, want %v", site.Name, horiz, want)
		}

		// Inertial x is scene z and inertial y is scene x.
		inertialLon := math.Atan2(m.Position.X, m.Position.Z)
		want := math.Remainder(site.LonDeg*math.Pi/180+gmst, 2*math.Pi)
		if d := math.Remainder(inertialLon-want, 2*math.Pi); math.Abs(d) > 1e-9 {
			t.Errorf("%s: inertial longitude off by %v rad", site.Name, d)
		}
	}

	north, south := markers[len(markers)-2], markers[len(markers)-1]
	if north.Position != (transform.SceneVector{Y: 6.378}) || north.Color != "purple" {
		t.Errorf("north pole: %+v", north)
	}
	if south.Position != (transform.SceneVector{Y: -6.378}) || south.Color != "brown" {
		t.Errorf("south pole: %+v", south)
	}
}

func TestBuildMarkersInvalidScale(t *testing.T) {
	if _, err := BuildMarkers(DefaultSites(), time.Now(), 6378, 0); err == nil {
		t.Fatal("expected error for zero scale")
	}
}
