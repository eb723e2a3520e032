// Package catalog fetches the objects currently passing over the observer
// from a tracking service and keeps the latest snapshot for the scene.
package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMissingField is returned when a record lacks a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrNoAPIKey is returned when the source has no credential.
	ErrNoAPIKey = errors.New("no API key configured")
)

// TrackedObject is one object reported above the observer.
type TrackedObject struct {
	NORADID    int     `json:"norad_id"`
	Name       string  `json:"name"`
	Designator string  `json:"designator"`
	LaunchDate string  `json:"launch_date"`
	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	AltKm      float64 `json:"alt_km"`
}

// Snapshot is the result of one successful fetch. Snapshots are replaced
// whole, never edited.
type Snapshot struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	FetchedAt    time.Time       `json:"fetched_at"`
	ObserverLat  float64         `json:"observer_lat"`
	ObserverLon  float64         `json:"observer_lon"`
	Category     string          `json:"category,omitempty"`
	Transactions int             `json:"transactions"`
	Objects      []TrackedObject `json:"objects"`
}

// Result is what a refresh delivers: a snapshot or the error that
// prevented one.
type Result struct {
	Snapshot *Snapshot
	Err      error
	Duration time.Duration
}

// Source fetches the objects above a ground position.
type Source interface {
	FetchNearby(ctx context.Context, latDeg, lonDeg float64) (*Snapshot, error)
}
