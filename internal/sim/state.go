package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/trail"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// Degradation reasons reported on a scene and in metrics.
const (
	DegradedNoModel    = "no_model"
	DegradedDivergence = "divergence"
	DegradedNonFinite  = "non_finite"
)

// ModelSource yields the current propagation model. *propagation.Propagator
// satisfies it; the model may change when the element dataset is reloaded.
type ModelSource interface {
	Model() (propagation.Model, error)
}

// StaticModel adapts a single model to ModelSource.
type StaticModel struct{ M propagation.Model }

// Model returns the wrapped model.
func (s StaticModel) Model() (propagation.Model, error) { return s.M, nil }

// Config configures a simulation State.
type Config struct {
	ScaleKm       float64
	EarthRadiusKm float64
	Clock         ClockConfig
	Sites         []Site
	Camera        camera.Config
	InitialCamera camera.State
	Observer      *transform.ObserverPosition
	Trail         *trail.Config // nil disables the orbit trail
}

// DefaultEarthRadiusKm is the radius of the drawn sphere.
const DefaultEarthRadiusKm = 6378.0

// DefaultConfig returns the stock scene: 1000 km per unit, fixed clock,
// default sites and camera.
func DefaultConfig() Config {
	return Config{
		ScaleKm:       transform.DefaultScaleKm,
		EarthRadiusKm: DefaultEarthRadiusKm,
		Clock:         ClockConfig{Mode: ClockFixed, TickMinutes: DefaultTickMinutes},
		Sites:         DefaultSites(),
		Camera:        camera.DefaultConfig(),
		InitialCamera: camera.DefaultState(),
	}
}

// State owns everything the tick mutates. It is not safe for concurrent
// use; Runner is its only caller in the server.
type State struct {
	source  ModelSource
	cfg     Config
	clock   *Clock
	camera  *camera.Controller
	markers []Marker
	trail   *trail.Cache
	epoch   time.Time // simulated time at zero elapsed minutes
	logger  *slog.Logger

	tick      uint64
	satellite *Satellite
	catalog   CatalogSummary
}

// NewState builds the initial simulation state. The first model fixes the
// simulated time origin and the marker frame.
func NewState(source ModelSource, cfg Config, logger *slog.Logger) (*State, error) {
	if cfg.ScaleKm == 0 {
		cfg.ScaleKm = transform.DefaultScaleKm
	}
	if cfg.EarthRadiusKm <= 0 {
		cfg.EarthRadiusKm = DefaultEarthRadiusKm
	}
	if cfg.InitialCamera == (camera.State{}) {
		cfg.InitialCamera = camera.DefaultState()
	}
	m, err := source.Model()
	if err != nil {
		return nil, fmt.Errorf("initial model: %w", err)
	}
	epoch := m.Elements().Epoch
	clock := NewClock(cfg.Clock)

	markers, err := BuildMarkers(cfg.Sites, epoch.Add(minutesToDuration(clock.Elapsed())), cfg.EarthRadiusKm, cfg.ScaleKm)
	if err != nil {
		return nil, fmt.Errorf("building markers: %w", err)
	}
	var tc *trail.Cache
	if cfg.Trail != nil {
		tc = trail.New(*cfg.Trail, cfg.ScaleKm, logger)
	}
	return &State{
		source:  source,
		trail:   tc,
		cfg:     cfg,
		clock:   clock,
		camera:  camera.NewController(cfg.InitialCamera, cfg.Camera),
		markers: markers,
		epoch:   epoch,
		logger:  logger.With("component", "sim"),
	}, nil
}

// Camera returns the current viewpoint.
func (s *State) Camera() camera.State { return s.camera.State() }

// Elapsed returns simulated minutes since the time origin.
func (s *State) Elapsed() float64 { return s.clock.Elapsed() }

// Trail returns the orbit trail cache, or nil when disabled.
func (s *State) Trail() *trail.Cache { return s.trail }

// SetCatalog replaces the catalog summary carried on later scenes.
func (s *State) SetCatalog(c CatalogSummary) { s.catalog = c }

// Tick applies input, advances the clock, and propagates the body. A
// failed propagation or transform keeps the previous satellite position
// marked stale; camera and clock changes from this tick stand.
func (s *State) Tick(in InputSnapshot, frame time.Duration) Scene {
	s.tick++
	if !in.Empty() {
		s.applyInput(in)
	}
	cam := s.camera.State()

	elapsed := s.clock.Advance(frame)
	simTime := s.epoch.Add(minutesToDuration(elapsed))

	scene := Scene{
		Tick:           s.tick,
		ElapsedMinutes: elapsed,
		SimTime:        simTime,
		Camera:         cam,
		Markers:        s.markers,
		EarthRadius:    s.cfg.EarthRadiusKm / s.cfg.ScaleKm,
		AxisLength:     2 * s.cfg.EarthRadiusKm / s.cfg.ScaleKm,
		ScaleKm:        s.cfg.ScaleKm,
		Catalog:        s.catalog,
	}

	st, model, reason, err := s.propagate(elapsed, simTime)
	if model != nil {
		scene.Model = model.Name()
	}
	var pos transform.SceneVector
	if err == nil {
		pos, err = transform.ToScene(st.PositionKm, s.cfg.ScaleKm)
		if err != nil {
			reason = DegradedNonFinite
		}
	}
	if err != nil {
		s.degrade(reason, elapsed, err)
		scene.Degraded = reason
		if s.satellite != nil {
			prior := *s.satellite
			prior.Stale = true
			scene.Satellite = &prior
		}
		if s.trail != nil {
			scene.Trail = s.trail.Window()
		}
		return scene
	}

	el := model.Elements()
	s.satellite = &Satellite{Name: el.Name, NORADID: el.NORADID, Position: pos}
	sat := *s.satellite
	scene.Satellite = &sat
	scene.Telemetry = s.telemetry(st, simTime)
	if s.trail != nil {
		s.trail.Advance(context.Background(), model, st.MinutesSinceEpoch)
		scene.Trail = s.trail.Window()
	}
	return scene
}

func (s *State) applyInput(in InputSnapshot) {
	for _, cmd := range in.Commands() {
		if !s.camera.Apply(cmd) {
			metrics.IncCameraNoOp()
		}
	}
	if in.Report {
		cam := s.camera.State()
		s.logger.Info("camera position",
			"x", cam.Position.X, "y", cam.Position.Y, "z", cam.Position.Z,
			"radius", cam.Radius(),
			"azimuth_rad", cam.Azimuth(),
			"elevation_rad", cam.Elevation(),
		)
	}
}

// propagate evaluates the current model at the simulated time. When the
// model's epoch differs from the time origin the offset is rebased.
func (s *State) propagate(elapsed float64, simTime time.Time) (propagation.StateVector, propagation.Model, string, error) {
	m, err := s.source.Model()
	if err != nil {
		return propagation.StateVector{}, nil, DegradedNoModel, err
	}
	minutes := elapsed
	if el := m.Elements(); !el.Epoch.Equal(s.epoch) {
		minutes = el.MinutesSince(simTime)
	}
	st, err := m.Propagate(minutes)
	if err != nil {
		reason := DegradedDivergence
		if errors.Is(err, propagation.ErrInvalidElements) {
			reason = DegradedNoModel
		}
		return st, m, reason, err
	}
	return st, m, "", nil
}

func (s *State) degrade(reason string, elapsed float64, err error) {
	metrics.IncDegradedTick(reason)
	s.logger.Debug("tick degraded", "reason", reason, "elapsed_minutes", elapsed, "error", err)
}

// telemetry derives HUD data, or nil when the position is not a plausible
// orbit (inside the Earth or beyond the high-orbit bound).
func (s *State) telemetry(st propagation.StateVector, at time.Time) *Telemetry {
	ecef := transform.TEMEToECEF(st.TEME(), at)
	if !transform.ValidateECEF(ecef) {
		return nil
	}
	t := &Telemetry{
		SpeedKmS: st.VelocityKmS.Norm(),
		SubPoint: transform.ECEFToGeodetic(ecef.Position),
	}
	t.AltitudeKm = t.SubPoint.AltM / 1000
	if s.cfg.Observer != nil {
		la := transform.ECEFToLookAngles(*s.cfg.Observer, ecef.Position)
		t.LookAngles = &la
	}
	return t
}

func minutesToDuration(m float64) time.Duration {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0
	}
	return time.Duration(m * float64(time.Minute))
}
