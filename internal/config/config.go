// Package config resolves orbitsim settings from defaults, an optional
// config file, environment variables and command-line flags.
//
// Environment variables use the ORBITSIM_ prefix with dots replaced by
// underscores, e.g. ORBITSIM_HTTP_ADDR or ORBITSIM_CLOCK_MODE. N2YO_API_KEY,
// LATITUDE and LONGITUDE are also read for the catalog key and observer.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/auth"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/observability"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/stream"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/trail"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/transform"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ORBITSIM"

// LogConfig selects the log handler.
type LogConfig struct {
	Level  slog.Level
	Format string // json | text
}

// Logger builds a logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr           string
	TrustedProxies []string
}

// Observer is the ground position used for passes and the catalog.
type Observer struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Position converts the observer for the frame transforms.
func (o Observer) Position() transform.ObserverPosition {
	return transform.NewObserverPosition(o.LatDeg, o.LonDeg, o.AltM)
}

// CatalogConfig configures the nearby-object catalog.
type CatalogConfig struct {
	Enabled     bool
	N2YO        catalog.N2YOConfig
	Interval    time.Duration
	Timeout     time.Duration
	HistoryPath string // empty disables history
}

// Config is the resolved configuration.
type Config struct {
	Log         LogConfig
	HTTP        HTTPConfig
	Auth        auth.Config
	Elements    tle.LoadConfig
	Propagation propagation.Config
	Sim         sim.Config
	FrameRate   int
	HoldTTL     time.Duration
	Observer    Observer
	Catalog     CatalogConfig
	Stream      stream.Config
	Tracing     observability.TracingConfig
}

// defaults holds every key's fallback value. Values read from outside are
// checked against these types.
var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "json",

	"http.addr":            ":8080",
	"http.trusted_proxies": []string{},

	"auth.enabled": false,
	"auth.token":   "",

	"elements.name":       "",
	"elements.line1":      "",
	"elements.line2":      "",
	"elements.file":       "",
	"elements.fetch":      false,
	"elements.source_url": tle.DefaultSourceURL,
	"elements.extra_urls": []string{},
	"elements.cache_dir":  "",
	"elements.cache_max":  5,
	"elements.max_age":    24 * time.Hour,

	"propagation.model":          propagation.ModelMeanElements,
	"propagation.norad_id":       25544,
	"propagation.workers":        runtime.NumCPU(),
	"propagation.tolerance":      0.0,
	"propagation.max_iterations": 0,

	"sim.scale_km":        transform.DefaultScaleKm,
	"sim.earth_radius_km": sim.DefaultEarthRadiusKm,
	"sim.frame_rate":      sim.DefaultFrameRate,
	"sim.hold_ttl":        sim.DefaultHoldTTL,

	"clock.mode":          string(sim.ClockFixed),
	"clock.tick_minutes":  sim.DefaultTickMinutes,
	"clock.time_scale":    1.0,
	"clock.start_minutes": 0.0,

	"camera.pan_step":         camera.DefaultPanStep,
	"camera.rotate_step":      camera.DefaultRotateStep,
	"camera.elevation_margin": camera.DefaultElevationMargin,

	"trail.enabled":         true,
	"trail.step_minutes":    1.0,
	"trail.horizon_minutes": 95.0,
	"trail.buffer_minutes":  95.0,
	"trail.workers":         2,

	"observer.lat":   49.6116,
	"observer.lon":   6.1319,
	"observer.alt_m": 0.0,

	"catalog.enabled":      false,
	"catalog.api_key":      "",
	"catalog.base_url":     catalog.DefaultN2YOBaseURL,
	"catalog.radius_deg":   70,
	"catalog.category":     32,
	"catalog.interval":     time.Duration(0),
	"catalog.timeout":      20 * time.Second,
	"catalog.history_path": "",

	"stream.max_per_ip": 10,
	"stream.max_total":  1000,
	"stream.bandwidth":  1 << 20,
	"stream.keepalive":  30 * time.Second,
	"stream.max_fps":    30,

	"tracing.enabled":      false,
	"tracing.exporter":     "stdout",
	"tracing.service_name": "orbitsim",
	"tracing.sample_ratio": 1.0,
}

// aliases are extra environment variables read for a key.
var aliases = map[string]string{
	"catalog.api_key": "N2YO_API_KEY",
	"observer.lat":    "LATITUDE",
	"observer.lon":    "LONGITUDE",
}

// New returns a viper instance with defaults and environment binding set
// up. Flags may be bound to it before Load.
func New() *viper.Viper {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		v.BindEnv(key, prefixed, env)
	}
	return v
}

// Load reads the optional config file at path and resolves every setting.
// Malformed values are logged and replaced by their defaults; settings that
// cannot work together are returned as an error.
func Load(v *viper.Viper, path string, logger *slog.Logger) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		logger.Info("config file loaded", "path", v.ConfigFileUsed())
	}
	r := &reader{v: v, logger: logger}

	cfg := &Config{
		Log: LogConfig{
			Level:  r.level("log.level"),
			Format: r.oneOf("log.format", "json", "text"),
		},
		HTTP: HTTPConfig{
			Addr:           r.str("http.addr"),
			TrustedProxies: r.list("http.trusted_proxies"),
		},
		Auth: auth.Config{
			Enabled: r.boolean("auth.enabled"),
			Token:   r.str("auth.token"),
		},
		Elements: tle.LoadConfig{
			Name:      r.str("elements.name"),
			Line1:     r.str("elements.line1"),
			Line2:     r.str("elements.line2"),
			File:      r.str("elements.file"),
			Fetch:     r.boolean("elements.fetch"),
			SourceURL: r.str("elements.source_url"),
			ExtraURLs: r.list("elements.extra_urls"),
			CacheDir:  r.str("elements.cache_dir"),
			CacheMax:  r.integer("elements.cache_max", 1),
			MaxAge:    r.duration("elements.max_age"),
		},
		Propagation: propagation.Config{
			Model:         r.oneOf("propagation.model", propagation.ModelMeanElements, propagation.ModelSGP4),
			NORADID:       r.integer("propagation.norad_id", 0),
			Workers:       r.integer("propagation.workers", 1),
			Tolerance:     r.float("propagation.tolerance", 0),
			MaxIterations: r.integer("propagation.max_iterations", 0),
		},
		FrameRate: r.integer("sim.frame_rate", 1),
		HoldTTL:   r.duration("sim.hold_ttl"),
		Observer: Observer{
			LatDeg: r.floatIn("observer.lat", -90, 90),
			LonDeg: r.floatIn("observer.lon", -180, 180),
			AltM:   r.float("observer.alt_m", -500),
		},
		Stream: stream.Config{
			MaxConcurrentPerIP: r.integer("stream.max_per_ip", 1),
			MaxTotal:           r.integer("stream.max_total", 1),
			BandwidthLimit:     r.integer("stream.bandwidth", 0),
			KeepaliveInterval:  r.duration("stream.keepalive"),
			MaxFPS:             r.integer("stream.max_fps", 1),
		},
		Tracing: observability.TracingConfig{
			Enabled:     r.boolean("tracing.enabled"),
			Exporter:    r.oneOf("tracing.exporter", "stdout", "stderr"),
			ServiceName: r.str("tracing.service_name"),
			SampleRatio: r.floatIn("tracing.sample_ratio", 0, 1),
		},
	}

	mode, err := sim.ParseClockMode(r.str("clock.mode"))
	if err != nil {
		r.fallback("clock.mode", err)
		mode = sim.ClockFixed
	}
	cfg.Sim = sim.Config{
		ScaleKm:       r.float("sim.scale_km", 1e-9),
		EarthRadiusKm: r.float("sim.earth_radius_km", 1e-9),
		Clock: sim.ClockConfig{
			Mode:         mode,
			TickMinutes:  r.float("clock.tick_minutes", 1e-9),
			TimeScale:    r.float("clock.time_scale", 1e-9),
			StartMinutes: r.float("clock.start_minutes", -1e9),
		},
		Camera: camera.Config{
			PanStep:         r.float("camera.pan_step", 1e-9),
			RotateStep:      r.float("camera.rotate_step", 1e-9),
			ElevationMargin: r.floatIn("camera.elevation_margin", 1e-6, 1.5),
		},
		Sites:         r.sites(),
		InitialCamera: camera.DefaultState(),
	}
	cfg.Sim.Observer = ptr(cfg.Observer.Position())
	if r.boolean("trail.enabled") {
		cfg.Sim.Trail = &trail.Config{
			StepMinutes:    r.float("trail.step_minutes", 1e-3),
			HorizonMinutes: r.floatIn("trail.horizon_minutes", 0, trail.MaxSpanMinutes),
			BufferMinutes:  r.floatIn("trail.buffer_minutes", 0, trail.MaxSpanMinutes),
			Workers:        r.integer("trail.workers", 1),
		}
	}

	n2yo := catalog.DefaultN2YOConfig()
	n2yo.BaseURL = r.str("catalog.base_url")
	n2yo.APIKey = r.str("catalog.api_key")
	n2yo.AltitudeM = cfg.Observer.AltM
	n2yo.RadiusDeg = r.intIn("catalog.radius_deg", 0, 90)
	n2yo.Category = r.integer("catalog.category", 0)
	cfg.Catalog = CatalogConfig{
		Enabled:     r.boolean("catalog.enabled"),
		N2YO:        n2yo,
		Interval:    r.duration("catalog.interval"),
		Timeout:     r.duration("catalog.timeout"),
		HistoryPath: r.str("catalog.history_path"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Auth.Enabled && c.Auth.Token == "" {
		errs = append(errs, errors.New("auth.token is required when auth is enabled"))
	}
	if c.Catalog.Enabled && c.Catalog.N2YO.APIKey == "" {
		errs = append(errs, fmt.Errorf("catalog.api_key (or N2YO_API_KEY) is required when the catalog is enabled: %w", catalog.ErrNoAPIKey))
	}
	if (c.Elements.Line1 == "") != (c.Elements.Line2 == "") {
		errs = append(errs, errors.New("elements.line1 and elements.line2 must be set together"))
	}
	return errors.Join(errs...)
}

func ptr[T any](v T) *T { return &v }

// reader converts raw values, falling back to defaults with a warning.
type reader struct {
	v      *viper.Viper
	logger *slog.Logger
}

func (r *reader) fallback(key string, err error) {
	r.logger.Warn("invalid config value, using default",
		"key", key,
		"value", r.v.Get(key),
		"default", defaults[key],
		"error", err,
	)
}

func (r *reader) str(key string) string {
	return strings.TrimSpace(r.v.GetString(key))
}

func (r *reader) oneOf(key string, allowed ...string) string {
	s := strings.ToLower(r.str(key))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	r.fallback(key, fmt.Errorf("must be one of %s", strings.Join(allowed, ", ")))
	return defaults[key].(string)
}

func (r *reader) boolean(key string) bool {
	b, err := cast.ToBoolE(r.v.Get(key))
	if err != nil {
		r.fallback(key, err)
		return defaults[key].(bool)
	}
	return b
}

func (r *reader) integer(key string, min int) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err == nil && n < min {
		err = fmt.Errorf("must be at least %d", min)
	}
	if err != nil {
		r.fallback(key, err)
		return defaults[key].(int)
	}
	return n
}

func (r *reader) intIn(key string, lo, hi int) int {
	n := r.integer(key, lo)
	if n > hi {
		r.fallback(key, fmt.Errorf("must be at most %d", hi))
		return defaults[key].(int)
	}
	return n
}

func (r *reader) float(key string, min float64) float64 {
	f, err := cast.ToFloat64E(r.v.Get(key))
	switch {
	case err != nil:
	case math.IsNaN(f) || math.IsInf(f, 0):
		err = errors.New("must be finite")
	case f < min:
		err = fmt.Errorf("must be at least %g", min)
	}
	if err != nil {
		r.fallback(key, err)
		return defaults[key].(float64)
	}
	return f
}

func (r *reader) floatIn(key string, lo, hi float64) float64 {
	f := r.float(key, lo)
	if f > hi {
		r.fallback(key, fmt.Errorf("must be at most %g", hi))
		return defaults[key].(float64)
	}
	return f
}

// duration accepts Go duration strings or a bare number of seconds.
func (r *reader) duration(key string) time.Duration {
	var d time.Duration
	var err error
	switch raw := r.v.Get(key).(type) {
	case time.Duration:
		d = raw
	case string:
		s := strings.TrimSpace(raw)
		if secs, perr := strconv.ParseFloat(s, 64); perr == nil {
			d, err = seconds(secs)
		} else {
			d, err = time.ParseDuration(s)
		}
	default:
		var secs float64
		if secs, err = cast.ToFloat64E(raw); err == nil {
			d, err = seconds(secs)
		}
	}
	if err == nil && d < 0 {
		err = errors.New("must not be negative")
	}
	if err != nil {
		r.fallback(key, err)
		return defaults[key].(time.Duration)
	}
	return d
}

func seconds(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.Abs(secs) > math.MaxInt64/float64(time.Second) {
		return 0, errors.New("must be a finite number of seconds")
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// list accepts a sequence or a comma-separated string.
func (r *reader) list(key string) []string {
	raw := r.v.Get(key)
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		var err error
		items, err = cast.ToStringSliceE(raw)
		if err != nil {
			r.fallback(key, err)
			return nil
		}
	}
	out := items[:0]
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (r *reader) level(key string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(r.str(key))); err != nil {
		r.fallback(key, err)
		return slog.LevelInfo
	}
	return lvl
}

// sites reads the marker list from a config file; environment variables
// cannot express it.
func (r *reader) sites() []sim.Site {
	if !r.v.IsSet("sites") {
		return sim.DefaultSites()
	}
	var sites []sim.Site
	if err := r.v.UnmarshalKey("sites", &sites); err != nil {
		r.logger.Warn("invalid config value, using default", "key", "sites", "error", err)
		return sim.DefaultSites()
	}
	for _, s := range sites {
		if s.LatDeg < -90 || s.LatDeg > 90 || s.LonDeg < -180 || s.LonDeg > 180 {
			r.logger.Warn("invalid config value, using default", "key", "sites", "site", s.Name, "error", "coordinates out of range")
			return sim.DefaultSites()
		}
	}
	return sites
}
