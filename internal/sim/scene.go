package sim

import (
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/trail"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Scene is everything needed to draw one frame. A Scene is never mutated
// after it is published.
type Scene struct {
	Tick           uint64         `json:"tick"`
	ElapsedMinutes float64        `json:"elapsed_minutes"`
	SimTime        time.Time      `json:"sim_time"`
	Model          string         `json:"model"`
	Camera         camera.State   `json:"camera"`
	Satellite      *Satellite     `json:"satellite,omitempty"`
	Markers        []Marker       `json:"markers"`
	Trail          []trail.Point  `json:"trail,omitempty"`
	EarthRadius    float64        `json:"earth_radius"`
	AxisLength     float64        `json:"axis_length"`
	ScaleKm        float64        `json:"scale_km"`
	Telemetry      *Telemetry     `json:"telemetry,omitempty"`
	Catalog        CatalogSummary `json:"catalog"`
	Degraded       string         `json:"degraded,omitempty"`
}

// Satellite is the simulated body's marker. Stale is set when the
// position was carried over from an earlier tick.
type Satellite struct {
	Name     string                `json:"name"`
	NORADID  int                   `json:"norad_id"`
	Position transform.SceneVector `json:"position"`
	Stale    bool                  `json:"stale"`
}

// Telemetry is derived from a fresh state only.
type Telemetry struct {
	AltitudeKm float64                 `json:"altitude_km"`
	SpeedKmS   float64                 `json:"speed_km_s"`
	SubPoint   transform.GeodeticPoint `json:"sub_point"`
	LookAngles *transform.LookAngles   `json:"look_angles,omitempty"`
}

// CatalogSummary describes the most recent nearby-object catalog.
type CatalogSummary struct {
	Objects   int       `json:"objects"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}
