// Package render turns a scene into backend-neutral draw calls.
package render

import (
	"fmt"
	"math"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Kind names a primitive shape.
type Kind string

const (
	KindLine     Kind = "line"
	KindPolyline Kind = "polyline"
	KindSphere   Kind = "sphere"
	KindCube     Kind = "cube"
	KindText     Kind = "text"
)

// Primitive is one shape in local coordinates. Only the fields its Kind
// uses are set.
type Primitive struct {
	Kind     Kind                    `json:"kind"`
	From     *transform.SceneVector  `json:"from,omitempty"`
	To       *transform.SceneVector  `json:"to,omitempty"`
	Points   []transform.SceneVector `json:"points,omitempty"`
	Radius   float64                 `json:"radius,omitempty"`
	Size     float64                 `json:"size,omitempty"`
	Text     string                  `json:"text,omitempty"`
	FontSize float64                 `json:"font_size,omitempty"`
	Label    string                  `json:"label,omitempty"`
}

// Transform places a primitive. Screen primitives use pixel coordinates in
// X and Y instead of scene units.
type Transform struct {
	Translation transform.SceneVector `json:"translation"`
	Screen      bool                  `json:"screen,omitempty"`
}

// Backend draws primitives.
type Backend interface {
	Draw(p Primitive, t Transform, c Color)
}

// Options adds frame data the scene does not carry.
type Options struct {
	FPS             float64
	EquatorSegments int
}

// DefaultEquatorSegments is the equator's polygon resolution.
const DefaultEquatorSegments = 100

const title = "Space Station orbit simulation"

var origin = Transform{}

// Compose issues the draw calls for one frame: axes, Earth, equator,
// fixed markers, trail, satellite, then the HUD.
func Compose(s *sim.Scene, b Backend, opts Options) {
	if opts.EquatorSegments < 3 {
		opts.EquatorSegments = DefaultEquatorSegments
	}

	axis := s.AxisLength
	for _, a := range []struct {
		to    transform.SceneVector
		color Color
		label string
	}{
		{transform.SceneVector{X: axis}, Red, "x"},
		{transform.SceneVector{Y: axis}, Green, "y"},
		{transform.SceneVector{Z: axis}, Blue, "z"},
	} {
		from, to := transform.SceneVector{}, a.to
		b.Draw(Primitive{Kind: KindLine, From: &from, To: &to, Label: a.label}, origin, a.color)
	}

	b.Draw(Primitive{Kind: KindSphere, Radius: s.EarthRadius, Label: "earth"}, origin, Blue)
	b.Draw(Primitive{Kind: KindPolyline, Points: Equator(s.EarthRadius, opts.EquatorSegments), Label: "equator"}, origin, Yellow)

	for _, m := range s.Markers {
		b.Draw(Primitive{Kind: KindCube, Size: m.Size, Label: m.Name}, Transform{Translation: m.Position}, Named(m.Color))
	}

	if len(s.Trail) > 1 {
		pts := make([]transform.SceneVector, len(s.Trail))
		for i, p := range s.Trail {
			pts[i] = p.Position
		}
		b.Draw(Primitive{Kind: KindPolyline, Points: pts, Label: "trail"}, origin, LightGray)
	}

	if sat := s.Satellite; sat != nil {
		c := Red
		if sat.Stale {
			c = Gray
		}
		b.Draw(Primitive{Kind: KindCube, Size: sim.DefaultMarkerSize, Label: sat.Name}, Transform{Translation: sat.Position}, c)
	}

	hud(s, b, opts)
}

func hud(s *sim.Scene, b Backend, opts Options) {
	text := func(y float64, size float64, msg string) {
		b.Draw(Primitive{Kind: KindText, Text: msg, FontSize: size},
			Transform{Translation: transform.SceneVector{X: 20, Y: y}, Screen: true}, White)
	}
	text(20, 30, title)
	text(60, 30, fmt.Sprintf("FPS: %d", int(math.Round(opts.FPS))))
	text(90, 20, fmt.Sprintf("T+%.1f min  %s", s.ElapsedMinutes, s.SimTime.UTC().Format("2006-01-02 15:04:05")))

	y := 115.0
	if t := s.Telemetry; t != nil {
		text(y, 20, fmt.Sprintf("Alt %.1f km  %.3f km/s  %.2f, %.2f", t.AltitudeKm, t.SpeedKmS, t.SubPoint.LatDeg, t.SubPoint.LonDeg))
		y += 25
		if la := t.LookAngles; la != nil {
			text(y, 20, fmt.Sprintf("Az %.1f  El %.1f  Range %.0f km", la.AzimuthDeg, la.ElevationDeg, la.RangeKm))
			y += 25
		}
	}
	if s.Degraded != "" {
		text(y, 20, "position stale: "+s.Degraded)
		y += 25
	}
	if s.Catalog.Objects > 0 || s.Catalog.Error != "" {
		msg := fmt.Sprintf("Tracked objects: %d", s.Catalog.Objects)
		if s.Catalog.Error != "" {
			msg += " (refresh failed)"
		}
		text(y, 20, msg)
	}
}

// Equator returns a closed ring of segments+1 points in the scene's
// horizontal plane.
func Equator(radius float64, segments int) []transform.SceneVector {
	pts := make([]transform.SceneVector, segments+1)
	for i := 0; i <= segments; i++ {
		a := 2 * math.Pi * float64(i%segments) / float64(segments)
		pts[i] = transform.SceneVector{X: radius * math.Cos(a), Z: radius * math.Sin(a)}
	}
	return pts
}
