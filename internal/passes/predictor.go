// Package passes predicts when a propagated body is above an observer's
// horizon.
package passes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// GroundTrackPoint is the sub-satellite point at one instant of a pass.
type GroundTrackPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`  // metres
	Elevation float64   `json:"elevation"` // degrees above the observer's horizon
}

// PassEvent is one horizon-to-horizon pass. A pass already in progress at
// the window start begins there; one still in progress at the window end
// ends there.
type PassEvent struct {
	StartTime        time.Time          `json:"start_time"`
	MaxElevationTime time.Time          `json:"max_elevation_time"`
	EndTime          time.Time          `json:"end_time"`
	DurationSeconds  float64            `json:"duration_seconds"`
	MaxElevation     float64            `json:"max_elevation"`
	AzimuthAtMax     float64            `json:"azimuth_at_max"`
	StartAzimuth     float64            `json:"start_azimuth"`
	EndAzimuth       float64            `json:"end_azimuth"`
	GroundTrack      []GroundTrackPoint `json:"ground_track"`
}

// BodyPasses holds the predicted passes for one body.
type BodyPasses struct {
	NORADID int         `json:"norad_id"`
	Name    string      `json:"name,omitempty"`
	Model   string      `json:"model"`
	Passes  []PassEvent `json:"passes"`
	Error   string      `json:"error,omitempty"`
}

// Request holds the parameters for a pass prediction.
type Request struct {
	Observer     transform.ObserverPosition
	Entries      []tle.TLEEntry
	Model        string // propagation model name; empty means mean elements
	Start        time.Time
	HorizonHours float64
	MinElevation float64 // degrees; passes peaking lower are skipped
	MaxPasses    int
}

const (
	scanStep   = 30 * time.Second
	resolution = time.Second
	trackStep  = 10 * time.Second
	minPassDur = 10 * time.Second
)

// Predict computes passes for every entry. Bodies are spread over at most
// NumCPU goroutines; results keep the order of req.Entries.
func Predict(ctx context.Context, req Request) []BodyPasses {
	if req.Model == "" {
		req.Model = propagation.ModelMeanElements
	}
	results := make([]BodyPasses, len(req.Entries))
	for i, e := range req.Entries {
		results[i] = BodyPasses{NORADID: e.NORADID, Name: e.Name, Model: req.Model}
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(runtime.NumCPU(), len(req.Entries)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				passes, err := predictBody(ctx, req, req.Entries[i])
				results[i].Passes = passes
				if err != nil {
					results[i].Error = err.Error()
				}
			}
		}()
	}

feed:
	for i := range req.Entries {
		select {
		case next <- i:
		case <-ctx.Done():
			for j := i; j < len(req.Entries); j++ {
				results[j].Error = "cancelled"
			}
			break feed
		}
	}
	close(next)
	wg.Wait()
	return results
}

func predictBody(ctx context.Context, req Request, entry tle.TLEEntry) ([]PassEvent, error) {
	m, err := propagation.NewModel(req.Model, entry.Elements)
	if err != nil {
		return nil, fmt.Errorf("model init: %w", err)
	}
	s := scanner{m: m, obs: req.Observer}
	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))

	var passes []PassEvent
	from := req.Start
	for len(passes) < req.MaxPasses {
		p, err := s.next(ctx, from, end)
		if err != nil {
			if errors.Is(err, errNoPass) {
				break
			}
			return passes, err
		}
		if p.MaxElevation >= req.MinElevation && p.EndTime.Sub(p.StartTime) >= minPassDur {
			passes = append(passes, *p)
		}
		from = p.EndTime.Add(scanStep)
	}
	return passes, nil
}

var errNoPass = errors.New("no pass in window")

// look is the body as seen from the observer at one instant.
type look struct {
	at   time.Time
	el   float64
	az   float64
	ecef transform.Vec3 // metres
	ok   bool           // false when propagation failed; treated as below the horizon
}

func (l look) above() bool { return l.ok && l.el > 0 }

type scanner struct {
	m   propagation.Model
	obs transform.ObserverPosition
}

func (s scanner) look(t time.Time) look {
	st, err := s.m.Propagate(s.m.Elements().MinutesSince(t))
	if err != nil {
		return look{at: t}
	}
	ecef := transform.TEMEToECEF(st.TEME(), t).Position
	la := transform.ECEFToLookAngles(s.obs, ecef)
	return look{at: t, el: la.ElevationDeg, az: la.AzimuthDeg, ecef: ecef, ok: true}
}

// next finds the first pass that is above the horizon at or after from.
func (s scanner) next(ctx context.Context, from, until time.Time) (*PassEvent, error) {
	if !from.Before(until) {
		return nil, errNoPass
	}
	prev := s.look(from)
	rise := prev
	for !rise.above() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := prev.at.Add(scanStep)
		if !t.Before(until) {
			return nil, errNoPass
		}
		cur := s.look(t)
		if cur.above() {
			rise = s.crossing(prev, cur)
			break
		}
		prev = cur
	}

	set := rise
	for cur := rise; cur.above(); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := cur.at.Add(scanStep)
		if !t.Before(until) {
			set = s.look(until)
			break
		}
		next := s.look(t)
		if !next.above() {
			set = s.crossing(cur, next)
			break
		}
		cur = next
	}
	return s.describe(rise, set), nil
}

// crossing bisects between a and b, which lie on opposite sides of the
// horizon, and returns the sample on the visible side.
func (s scanner) crossing(a, b look) look {
	for b.at.Sub(a.at) > resolution {
		mid := s.look(a.at.Add(b.at.Sub(a.at) / 2))
		if mid.above() == a.above() {
			a = mid
		} else {
			b = mid
		}
	}
	if a.above() {
		return a
	}
	return b
}

// describe samples the ground track from rise to set and locates the peak.
func (s scanner) describe(rise, set look) *PassEvent {
	p := &PassEvent{
		StartTime:       rise.at,
		EndTime:         set.at,
		DurationSeconds: set.at.Sub(rise.at).Seconds(),
		StartAzimuth:    rise.az,
		EndAzimuth:      set.az,
	}
	peak := rise
	for t := rise.at; t.Before(set.at); t = t.Add(trackStep) {
		l := s.look(t)
		if !l.ok {
			continue
		}
		if l.el > peak.el {
			peak = l
		}
		p.GroundTrack = append(p.GroundTrack, trackPoint(l))
	}
	if set.ok {
		p.GroundTrack = append(p.GroundTrack, trackPoint(set))
		if set.el > peak.el {
			peak = set
		}
	}
	peak = s.refinePeak(peak, rise.at, set.at)
	p.MaxElevation = peak.el
	p.MaxElevationTime = peak.at
	p.AzimuthAtMax = peak.az
	return p
}

// refinePeak narrows the coarse peak to the sampling resolution with a
// golden-section search, since elevation is unimodal over a pass.
func (s scanner) refinePeak(coarse look, lo, hi time.Time) look {
	a := maxTime(lo, coarse.at.Add(-trackStep))
	b := minTime(hi, coarse.at.Add(trackStep))
	const phi = 0.6180339887498949
	best := coarse
	for b.Sub(a) > resolution {
		span := float64(b.Sub(a))
		c := s.look(b.Add(-time.Duration(phi * span)))
		d := s.look(a.Add(time.Duration(phi * span)))
		if c.ok && c.el > best.el {
			best = c
		}
		if d.ok && d.el > best.el {
			best = d
		}
		if !d.ok || (c.ok && c.el > d.el) {
			b = d.at
		} else {
			a = c.at
		}
	}
	return best
}

func trackPoint(l look) GroundTrackPoint {
	geo := transform.ECEFToGeodetic(l.ecef)
	return GroundTrackPoint{
		Time:      l.at,
		Latitude:  geo.LatDeg,
		Longitude: geo.LonDeg,
		Altitude:  geo.AltM,
		Elevation: math.Max(l.el, 0),
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
