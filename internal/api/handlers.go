package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/passes"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/render"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/trail"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Request limits.
const (
	maxTrackSamples   = 10000
	maxInputBytes     = 16 << 10
	maxPassHours      = 72
	maxPassCount      = 50
	defaultPassHours  = 24
	defaultPassCount  = 10
	defaultMinElev    = 10
	defaultHistory    = 20
	maxHistory        = 200
	defaultTrackCount = 93
	defaultTrailCount = 30
)

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// latest returns the current scene or writes 503.
func (h *handlers) latest(w http.ResponseWriter) *sim.Scene {
	if h.deps.Sim == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation not running")
		return nil
	}
	s := h.deps.Sim.Latest()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "no scene yet")
	}
	return s
}

type sceneResponse struct {
	*sim.Scene
	Draw []render.DrawCall `json:"draw,omitempty"`
}

// scene serves the latest frame, optionally with its draw list.
// GET /api/v1/scene?draw=true
func (h *handlers) scene(w http.ResponseWriter, r *http.Request) {
	withDraw := false
	if v := r.URL.Query().Get("draw"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid draw parameter, must be a boolean")
			return
		}
		withDraw = b
	}
	s := h.latest(w)
	if s == nil {
		return
	}
	resp := sceneResponse{Scene: s}
	if withDraw {
		resp.Draw = render.DrawList(s, render.Options{})
	}
	writeJSON(w, http.StatusOK, resp)
}

// inputRequest carries controls for upcoming ticks. Held commands stay
// active until replaced or the hold expires; pressed commands apply to one
// tick.
type inputRequest struct {
	Hold   []camera.Command `json:"hold"`
	Press  []camera.Command `json:"press"`
	Report bool             `json:"report"`
}

// input queues controls for the tick loop.
// POST /api/v1/input {"hold":["rotate-cw"],"press":["pan-up"],"report":true}
func (h *handlers) input(w http.ResponseWriter, r *http.Request) {
	if h.deps.Sim == nil {
		writeError(w, http.StatusServiceUnavailable, "simulation not running")
		return
	}
	var req inputRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		return
	}

	buf := h.deps.Sim.Input()
	// An absent hold list leaves held controls alone; an empty one releases them.
	if req.Hold != nil {
		buf.Hold(req.Hold...)
	}
	if len(req.Press) > 0 {
		buf.Press(req.Press...)
	}
	if req.Report {
		buf.RequestReport()
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"held":    len(req.Hold),
		"pressed": len(req.Press),
		"report":  req.Report,
	})
}

// camera serves the viewpoint of the latest frame.
// GET /api/v1/camera
func (h *handlers) camera(w http.ResponseWriter, r *http.Request) {
	s := h.latest(w)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":      s.Tick,
		"position":  s.Camera.Position,
		"target":    s.Camera.Target,
		"radius":    s.Camera.Radius(),
		"azimuth":   s.Camera.Azimuth(),
		"elevation": s.Camera.Elevation(),
	})
}

type elementSummary struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
}

// elements serves dataset metadata and the loaded bodies.
// GET /api/v1/elements
func (h *handlers) elements(w http.ResponseWriter, r *http.Request) {
	ds := h.dataset(w)
	if ds == nil {
		return
	}
	list := make([]elementSummary, len(ds.Satellites))
	for i, e := range ds.Satellites {
		list[i] = elementSummary{NORADID: e.NORADID, Name: e.Name, Epoch: e.Epoch.UTC()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":      ds.Source,
		"fetched_at":  ds.FetchedAt.UTC(),
		"age_seconds": int(h.deps.Elements.AgeSeconds()),
		"epoch_range": map[string]time.Time{
			"min": ds.EpochRange.Min.UTC(),
			"max": ds.EpochRange.Max.UTC(),
		},
		"count":    len(list),
		"elements": list,
	})
}

// element serves one body's parsed elements and lines.
// GET /api/v1/elements/{norad_id}
func (h *handlers) element(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("norad_id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid norad_id")
		return
	}
	ds := h.dataset(w)
	if ds == nil {
		return
	}
	entry, ok := ds.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("NORAD %d not in dataset", id))
		return
	}
	writeJSON(w, http.StatusOK, entry.Elements)
}

func (h *handlers) dataset(w http.ResponseWriter) *tle.TLEDataset {
	if h.deps.Elements == nil {
		writeError(w, http.StatusServiceUnavailable, "no element dataset loaded")
		return nil
	}
	ds := h.deps.Elements.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no element dataset loaded")
	}
	return ds
}

// propagate samples the simulated body's ephemeris.
// GET /api/v1/propagate?start=2025-02-14T04:00:00Z&step=60&count=93
func (h *handlers) propagate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Propagator == nil {
		writeError(w, http.StatusServiceUnavailable, "propagation not configured")
		return
	}
	q := r.URL.Query()

	start := time.Now().UTC()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start parameter, must be RFC3339")
			return
		}
		start = t
	}

	step := 60
	if v := q.Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 86400 {
			writeError(w, http.StatusBadRequest, "invalid step parameter, must be 1-86400 seconds")
			return
		}
		step = n
	}

	count := defaultTrackCount
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid count parameter, must be positive")
			return
		}
		count = n
	}
	if count > maxTrackSamples {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":         "requested samples exceed the per-request budget",
			"max_positions": maxTrackSamples,
		})
		return
	}

	track, err := h.deps.Propagator.Track(r.Context(), start, time.Duration(step)*time.Second, count)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, propagation.ErrNoDataset) {
			status = http.StatusServiceUnavailable
		}
		h.logger.Warn("track failed", "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// passes predicts when a body is above the observer.
// GET /api/v1/passes?norad_id=25544&lat=49.61&lon=6.13&alt=300&hours=24&min_el=10&max=10
func (h *handlers) passes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	obs := h.deps.Observer

	floatParam := func(name string, lo, hi float64) (float64, bool, error) {
		v := q.Get(name)
		if v == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || f < lo || f > hi {
			return 0, false, fmt.Errorf("invalid %s parameter, must be %g to %g", name, lo, hi)
		}
		return f, true, nil
	}

	lat, hasLat, err := floatParam("lat", -90, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lon, hasLon, err := floatParam("lon", -180, 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	alt, _, err := floatParam("alt", -500, 9000)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hasLat != hasLon {
		writeError(w, http.StatusBadRequest, "lat and lon must be given together")
		return
	}
	if hasLat {
		obs = transform.NewObserverPosition(lat, lon, alt)
	}

	hours, ok, err := floatParam("hours", 1, maxPassHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		hours = defaultPassHours
	}
	minEl, ok, err := floatParam("min_el", 0, 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		minEl = defaultMinElev
	}
	maxPasses := defaultPassCount
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPassCount {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid max parameter, must be 1-%d", maxPassCount))
			return
		}
		maxPasses = n
	}

	ds := h.dataset(w)
	if ds == nil {
		return
	}
	noradID := 0
	if v := q.Get("norad_id"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid norad_id")
			return
		}
		noradID = n
	} else if h.deps.Propagator != nil {
		if m, err := h.deps.Propagator.Model(); err == nil {
			noradID = m.Elements().NORADID
		}
	}
	entry, found := ds.Find(noradID)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Sprintf("NORAD %d not in dataset", noradID))
		return
	}

	model := q.Get("model")
	if model == "" {
		model = h.deps.Model
	}
	if model != "" && model != propagation.ModelMeanElements && model != propagation.ModelSGP4 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown model %q", model))
		return
	}

	results := passes.Predict(r.Context(), passes.Request{
		Observer:     obs,
		Entries:      []tle.TLEEntry{entry},
		Model:        model,
		Start:        time.Now().UTC(),
		HorizonHours: hours,
		MinElevation: minEl,
		MaxPasses:    maxPasses,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"observer": obs.Geodetic(),
		"hours":    hours,
		"min_el":   minEl,
		"bodies":   results,
	})
}

// trail serves the orbit trail around the current simulated time with the
// cache statistics. With at, only the point at that step is returned.
// GET /api/v1/trail?count=30
// GET /api/v1/trail?at=120.5
func (h *handlers) trail(w http.ResponseWriter, r *http.Request) {
	if h.deps.Trail == nil {
		writeError(w, http.StatusNotFound, "trail not enabled")
		return
	}
	q := r.URL.Query()

	if v := q.Get("at"); v != "" {
		at, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(at) || math.IsInf(at, 0) {
			writeError(w, http.StatusBadRequest, "invalid at parameter, must be minutes since epoch")
			return
		}
		p, ok := h.deps.Trail.Get(at)
		if !ok {
			writeError(w, http.StatusNotFound, "no trail point at that time")
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	count := defaultTrailCount
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > trail.MaxPoints {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid count parameter, must be 1-%d", trail.MaxPoints))
			return
		}
		count = n
	}
	s := h.latest(w)
	if s == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"elapsed_minutes": s.ElapsedMinutes,
		"stats":           h.deps.Trail.Stats(),
		"points":          h.deps.Trail.GetRecent(s.ElapsedMinutes, count),
	})
}

// catalog serves the latest nearby-object snapshot.
// GET /api/v1/catalog
func (h *handlers) catalog(w http.ResponseWriter, r *http.Request) {
	if h.deps.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not configured")
		return
	}
	snap := h.deps.Catalog.Get()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no catalog fetched yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// catalogRefresh asks for a fetch. A request made while one is pending is
// coalesced into it.
// POST /api/v1/catalog/refresh
func (h *handlers) catalogRefresh(w http.ResponseWriter, r *http.Request) {
	if h.deps.Refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog refresh not configured")
		return
	}
	queued := h.deps.Refresher.Request()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

// catalogHistory lists recorded snapshots, newest first.
// GET /api/v1/catalog/history?limit=20
func (h *handlers) catalogHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusNotFound, "catalog history not enabled")
		return
	}
	limit := defaultHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistory {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit parameter, must be 1-%d", maxHistory))
			return
		}
		limit = n
	}
	recent, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("catalog history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if recent == nil {
		recent = []catalog.SnapshotSummary{}
	}
	writeJSON(w, http.StatusOK, recent)
}

// catalogSnapshot serves the objects recorded for one snapshot.
// GET /api/v1/catalog/history/{id}
func (h *handlers) catalogSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, http.StatusNotFound, "catalog history not enabled")
		return
	}
	objs, err := h.deps.History.Objects(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("catalog snapshot query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if len(objs) == 0 {
		writeError(w, http.StatusNotFound, "snapshot not found")
		return
	}
	writeJSON(w, http.StatusOK, objs)
}
