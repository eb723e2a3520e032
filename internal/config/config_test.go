package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
)

func load(t *testing.T, path string) (*Config, string) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	cfg, err := Load(New(), path, logger)
	if err != nil {
		t.Fatal(err)
	}
	return cfg, buf.String()
}

func TestDefaults(t *testing.T) {
	cfg, logs := load(t, "")
	if strings.Contains(logs, "invalid config value") {
		t.Errorf("defaults produced warnings: %s", logs)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != slog.LevelInfo || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Propagation.Model != propagation.ModelMeanElements || cfg.Propagation.NORADID != 25544 {
		t.Errorf("propagation = %+v", cfg.Propagation)
	}
	if cfg.Sim.Clock.Mode != sim.ClockFixed || cfg.Sim.Clock.TickMinutes != sim.DefaultTickMinutes {
		t.Errorf("clock = %+v", cfg.Sim.Clock)
	}
	if cfg.FrameRate != sim.DefaultFrameRate || cfg.HoldTTL != sim.DefaultHoldTTL {
		t.Errorf("frame rate %d, hold ttl %s", cfg.FrameRate, cfg.HoldTTL)
	}
	if len(cfg.Sim.Sites) != len(sim.DefaultSites()) {
		t.Errorf("sites = %d, want defaults", len(cfg.Sim.Sites))
	}
	if cfg.Sim.Trail == nil || cfg.Sim.Trail.HorizonMinutes != 95 {
		t.Errorf("trail = %+v", cfg.Sim.Trail)
	}
	if cfg.Sim.Observer == nil {
		t.Error("observer not set on sim config")
	}
	if cfg.Catalog.Enabled || cfg.Catalog.N2YO.RadiusDeg != 70 || cfg.Catalog.N2YO.Category != 32 {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Catalog.Timeout != 20*time.Second {
		t.Errorf("catalog timeout = %s", cfg.Catalog.Timeout)
	}
	if cfg.Stream.KeepaliveInterval != 30*time.Second || cfg.Stream.MaxFPS != 30 {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	if cfg.Elements.MaxAge != 24*time.Hour || cfg.Elements.Fetch {
		t.Errorf("elements = %+v", cfg.Elements)
	}
	if cfg.Tracing.Enabled {
		t.Error("tracing enabled by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ORBITSIM_HTTP_ADDR", ":9090")
	t.Setenv("ORBITSIM_HTTP_TRUSTED_PROXIES", "10.0.0.0/8, 192.168.0.0/16")
	t.Setenv("ORBITSIM_CLOCK_MODE", "realtime")
	t.Setenv("ORBITSIM_CLOCK_TIME_SCALE", "60")
	t.Setenv("ORBITSIM_PROPAGATION_MODEL", "sgp4")
	t.Setenv("ORBITSIM_STREAM_KEEPALIVE", "45")
	t.Setenv("ORBITSIM_CATALOG_INTERVAL", "5m")
	t.Setenv("ORBITSIM_TRAIL_ENABLED", "false")
	t.Setenv("ORBITSIM_LOG_LEVEL", "debug")

	cfg, logs := load(t, "")
	if strings.Contains(logs, "invalid config value") {
		t.Errorf("valid overrides produced warnings: %s", logs)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.HTTP.Addr)
	}
	if got := cfg.HTTP.TrustedProxies; len(got) != 2 || got[1] != "192.168.0.0/16" {
		t.Errorf("trusted proxies = %q", got)
	}
	if cfg.Sim.Clock.Mode != sim.ClockRealtime || cfg.Sim.Clock.TimeScale != 60 {
		t.Errorf("clock = %+v", cfg.Sim.Clock)
	}
	if cfg.Propagation.Model != propagation.ModelSGP4 {
		t.Errorf("model = %q", cfg.Propagation.Model)
	}
	if cfg.Stream.KeepaliveInterval != 45*time.Second {
		t.Errorf("keepalive = %s, want bare number read as seconds", cfg.Stream.KeepaliveInterval)
	}
	if cfg.Catalog.Interval != 5*time.Minute {
		t.Errorf("catalog interval = %s", cfg.Catalog.Interval)
	}
	if cfg.Sim.Trail != nil {
		t.Error("trail not disabled")
	}
	if cfg.Log.Level != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Log.Level)
	}
}

func TestLegacyAliases(t *testing.T) {
	t.Setenv("N2YO_API_KEY", "abc123")
	t.Setenv("LATITUDE", "52.52")
	t.Setenv("LONGITUDE", "13.405")
	t.Setenv("ORBITSIM_CATALOG_ENABLED", "true")

	cfg, _ := load(t, "")
	if cfg.Catalog.N2YO.APIKey != "abc123" {
		t.Errorf("api key = %q", cfg.Catalog.N2YO.APIKey)
	}
	if cfg.Observer.LatDeg != 52.52 || cfg.Observer.LonDeg != 13.405 {
		t.Errorf("observer = %+v", cfg.Observer)
	}

	t.Setenv("ORBITSIM_OBSERVER_LAT", "48.85")
	cfg, _ = load(t, "")
	if cfg.Observer.LatDeg != 48.85 {
		t.Errorf("prefixed variable should win over the alias, lat = %v", cfg.Observer.LatDeg)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ORBITSIM_SIM_FRAME_RATE", "fast")
	t.Setenv("ORBITSIM_CLOCK_MODE", "warp")
	t.Setenv("ORBITSIM_CLOCK_TICK_MINUTES", "-1")
	t.Setenv("ORBITSIM_OBSERVER_LAT", "123")
	t.Setenv("ORBITSIM_STREAM_KEEPALIVE", "soon")
	t.Setenv("ORBITSIM_PROPAGATION_MODEL", "kepler")
	t.Setenv("ORBITSIM_AUTH_ENABLED", "maybe")
	t.Setenv("ORBITSIM_CATALOG_RADIUS_DEG", "120")

	cfg, logs := load(t, "")
	if cfg.FrameRate != sim.DefaultFrameRate {
		t.Errorf("frame rate = %d", cfg.FrameRate)
	}
	if cfg.Sim.Clock.Mode != sim.ClockFixed || cfg.Sim.Clock.TickMinutes != sim.DefaultTickMinutes {
		t.Errorf("clock = %+v", cfg.Sim.Clock)
	}
	if cfg.Observer.LatDeg != 49.6116 {
		t.Errorf("lat = %v", cfg.Observer.LatDeg)
	}
	if cfg.Stream.KeepaliveInterval != 30*time.Second {
		t.Errorf("keepalive = %s", cfg.Stream.KeepaliveInterval)
	}
	if cfg.Propagation.Model != propagation.ModelMeanElements {
		t.Errorf("model = %q", cfg.Propagation.Model)
	}
	if cfg.Auth.Enabled {
		t.Error("auth enabled from an unparseable value")
	}
	if cfg.Catalog.N2YO.RadiusDeg != 70 {
		t.Errorf("radius = %d", cfg.Catalog.N2YO.RadiusDeg)
	}

	for _, key := range []string{"sim.frame_rate", "clock.mode", "observer.lat", "stream.keepalive", "catalog.radius_deg"} {
		if !strings.Contains(logs, `"key":"`+key+`"`) {
			t.Errorf("no warning logged for %s", key)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		is   error
	}{
		{"auth without token", map[string]string{"ORBITSIM_AUTH_ENABLED": "true"}, nil},
		{"catalog without key", map[string]string{"ORBITSIM_CATALOG_ENABLED": "true"}, catalog.ErrNoAPIKey},
		{"half inline elements", map[string]string{"ORBITSIM_ELEMENTS_LINE1": "1 25544U"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
			_, err := Load(New(), "", logger)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orbitsim.yaml")
	data := `
http:
  addr: ":7000"
clock:
  mode: realtime
  time_scale: 120
elements:
  max_age: 3600
sites:
  - name: Tokyo
    lat_deg: 35.6762
    lon_deg: 139.6503
    color: purple
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, logs := load(t, path)
	if strings.Contains(logs, "invalid config value") {
		t.Errorf("file produced warnings: %s", logs)
	}
	if cfg.HTTP.Addr != ":7000" || cfg.Sim.Clock.TimeScale != 120 {
		t.Errorf("file values not applied: %+v %+v", cfg.HTTP, cfg.Sim.Clock)
	}
	if cfg.Elements.MaxAge != time.Hour {
		t.Errorf("max age = %s, want numeric seconds", cfg.Elements.MaxAge)
	}
	if len(cfg.Sim.Sites) != 1 || cfg.Sim.Sites[0].Name != "Tokyo" || cfg.Sim.Sites[0].Color != "purple" {
		t.Errorf("sites = %+v", cfg.Sim.Sites)
	}

	t.Setenv("ORBITSIM_HTTP_ADDR", ":7001")
	cfg, _ = load(t, path)
	if cfg.HTTP.Addr != ":7001" {
		t.Errorf("environment should override the file, addr = %q", cfg.HTTP.Addr)
	}

	if _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"), slog.Default()); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: slog.LevelInfo, Format: "text"}.Logger(&buf).Info("hello", "k", 1)
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}
	buf.Reset()
	LogConfig{Level: slog.LevelWarn}.Logger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestNonFiniteValuesFallBack(t *testing.T) {
	t.Setenv("ORBITSIM_CAMERA_ROTATE_STEP", "Inf")
	t.Setenv("ORBITSIM_CAMERA_PAN_STEP", "-Inf")
	t.Setenv("ORBITSIM_CLOCK_TIME_SCALE", "NaN")
	t.Setenv("ORBITSIM_TRAIL_HORIZON_MINUTES", "+Inf")
	t.Setenv("ORBITSIM_TRAIL_BUFFER_MINUTES", "1e300")
	t.Setenv("ORBITSIM_STREAM_KEEPALIVE", "1e300")

	cfg, logs := load(t, "")
	if got := cfg.Sim.Camera.RotateStep; got != camera.DefaultRotateStep {
		t.Errorf("rotate step = %v, want %v", got, camera.DefaultRotateStep)
	}
	if got := cfg.Sim.Camera.PanStep; got != camera.DefaultPanStep {
		t.Errorf("pan step = %v, want %v", got, camera.DefaultPanStep)
	}
	if got := cfg.Sim.Clock.TimeScale; got != 1 {
		t.Errorf("time scale = %v, want 1", got)
	}
	if cfg.Sim.Trail == nil {
		t.Fatal("trail disabled")
	}
	if got := cfg.Sim.Trail.HorizonMinutes; got != 95 {
		t.Errorf("trail horizon = %v, want 95", got)
	}
	if got := cfg.Sim.Trail.BufferMinutes; got != 95 {
		t.Errorf("trail buffer = %v, want 95", got)
	}
	if got := cfg.Stream.KeepaliveInterval; got != 30*time.Second {
		t.Errorf("keepalive = %s", got)
	}

	for _, key := range []string{"camera.rotate_step", "camera.pan_step", "clock.time_scale",
		"trail.horizon_minutes", "trail.buffer_minutes", "stream.keepalive"} {
		if !strings.Contains(logs, `"key":"`+key+`"`) {
			t.Errorf("no warning logged for %s", key)
		}
	}

	c := camera.NewController(camera.DefaultState(), cfg.Sim.Camera)
	c.Apply(camera.RotateCW)
	c.Apply(camera.PitchUp)
	if !c.State().Position.IsFinite() {
		t.Errorf("camera = %+v after loaded steps", c.State())
	}
}
