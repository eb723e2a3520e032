package sim

import (
	"fmt"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Marker kinds.
const (
	MarkerSite = "site"
	MarkerPole = "pole"
)

// DefaultMarkerSize is the edge length of a site cube in scene units.
const DefaultMarkerSize = 0.2

// Site is a named ground location drawn as a fixed marker.
type Site struct {
	Name   string  `json:"name" mapstructure:"name"`
	LatDeg float64 `json:"lat_deg" mapstructure:"lat_deg"`
	LonDeg float64 `json:"lon_deg" mapstructure:"lon_deg"`
	Color  string  `json:"color" mapstructure:"color"`
}

// DefaultSites are the reference cities shown around the globe.
func DefaultSites() []Site {
	return []Site{
		{Name: "Luxembourg", LatDeg: 49.6116, LonDeg: 6.1319, Color: "skyblue"},
		{Name: "Berlin", LatDeg: 52.5200, LonDeg: 13.4050, Color: "yellow"},
		{Name: "Warsaw", LatDeg: 52.2297, LonDeg: 21.0122, Color: "white"},
		{Name: "Paris", LatDeg: 48.8566, LonDeg: 2.3522, Color: "red"},
		{Name: "Brasilia", LatDeg: -15.7939, LonDeg: -47.8828, Color: "green"},
	}
}

// Marker is a fixed point of reference in scene coordinates.
type Marker struct {
	Name     string                `json:"name"`
	Kind     string                `json:"kind"`
	Position transform.SceneVector `json:"position"`
	Color    string                `json:"color"`
	Size     float64               `json:"size"`
}

// BuildMarkers places sites on the surface as seen in the inertial frame
// at time at, followed by the two poles. Markers do not move afterwards.
func BuildMarkers(sites []Site, at time.Time, earthRadiusKm, scaleKm float64) ([]Marker, error) {
	gmst := transform.GMST(at)
	out := make([]Marker, 0, len(sites)+2)
	for _, s := range sites {
		ecef := transform.NewObserverPosition(s.LatDeg, s.LonDeg, 0).ECEF
		pos, err := transform.ToScene(transform.ECEFToTEME(ecef, gmst), scaleKm)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", s.Name, err)
		}
		out = append(out, Marker{Name: s.Name, Kind: MarkerSite, Position: pos, Color: s.Color, Size: DefaultMarkerSize})
	}

	north, err := transform.ToScene(transform.Vec3{Z: earthRadiusKm}, scaleKm)
	if err != nil {
		return nil, fmt.Errorf("north pole: %w", err)
	}
	south, err := transform.ToScene(transform.Vec3{Z: -earthRadiusKm}, scaleKm)
	if err != nil {
		return nil, fmt.Errorf("south pole: %w", err)
	}
	out = append(out,
		Marker{Name: "North Pole", Kind: MarkerPole, Position: north, Color: "purple", Size: DefaultMarkerSize},
		Marker{Name: "South Pole", Kind: MarkerPole, Position: south, Color: "brown", Size: DefaultMarkerSize},
	)
	return out, nil
}
