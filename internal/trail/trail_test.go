package trail

import (
	"context"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testModel(t *testing.T) propagation.Model {
	t.Helper()
	el, err := tle.ParseElements(tle.DefaultLine1, tle.DefaultLine2)
	if err != nil {
		t.Fatalf("ParseElements: %v", err)
	}
	m, err := propagation.New(el)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func testConfig() Config {
	return Config{StepMinutes: 1, HorizonMinutes: 10, BufferMinutes: 5, Workers: 2}
}

// TestTrailCutoverFillsWindow verifies the first Advance builds the whole
// window around the current time.
func TestTrailCutoverFillsWindow(t *testing.T) {
	c := New(testConfig(), 1000, testLogger())
	c.Advance(context.Background(), testModel(t), 20.5)

	stats := c.Stats()
	// Indices 15..30 inclusive.
	if stats.Entries != 16 {
		t.Errorf("entries: got %d, want 16", stats.Entries)
	}
	if stats.OldestMinutes != 15 || stats.NewestMinutes != 30 {
		t.Errorf("window: got [%v, %v], want [15, 30]", stats.OldestMinutes, stats.NewestMinutes)
	}

	w := c.Window()
	for i := 1; i < len(w); i++ {
		if w[i].Minutes <= w[i-1].Minutes {
			t.Fatalf("window not ordered at %d: %v then %v", i, w[i-1].Minutes, w[i].Minutes)
		}
	}
}

// TestTrailAdvanceRollsWindow verifies leading-edge generation and
// trailing-edge eviction as time moves forward.
func TestTrailAdvanceRollsWindow(t *testing.T) {
	m := testModel(t)
	c := New(testConfig(), 1000, testLogger())
	ctx := context.Background()

	c.Advance(ctx, m, 20)
	c.Advance(ctx, m, 23)

	if _, ok := c.Get(33); !ok {
		t.Error("expected leading edge point at 33")
	}
	if _, ok := c.Get(17); ok {
		t.Error("expected point at 17 to be evicted")
	}
	if _, ok := c.Get(18); !ok {
		t.Error("expected point at 18 to be kept")
	}
	if got := c.Stats().Evictions; got != 3 {
		t.Errorf("evictions: got %d, want 3", got)
	}
}

// TestTrailModelChangeRebuilds verifies a new model replaces the window.
func TestTrailModelChangeRebuilds(t *testing.T) {
	ctx := context.Background()
	c := New(testConfig(), 1000, testLogger())
	first := testModel(t)
	c.Advance(ctx, first, 0)
	before, _ := c.Get(5)

	el, _ := tle.ParseElements(tle.DefaultLine1, tle.DefaultLine2)
	el.RAANRad += 0.5
	second, err := propagation.New(el)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Advance(ctx, second, 0)
	after, _ := c.Get(5)

	if before.PositionKm == after.PositionKm {
		t.Error("expected the window to be rebuilt for the new model")
	}
}

// TestTrailJumpRebuilds verifies that a jump past the leading edge
// rebuilds instead of generating every skipped point.
func TestTrailJumpRebuilds(t *testing.T) {
	ctx := context.Background()
	m := testModel(t)
	c := New(testConfig(), 1000, testLogger())
	c.Advance(ctx, m, 0)
	c.Advance(ctx, m, 1000)

	stats := c.Stats()
	if stats.Entries != 16 {
		t.Errorf("entries after jump: got %d, want 16", stats.Entries)
	}
	if stats.OldestMinutes != 995 {
		t.Errorf("oldest: got %v, want 995", stats.OldestMinutes)
	}
}

// TestGetRecent verifies ordering and the count limit.
func TestGetRecent(t *testing.T) {
	c := New(testConfig(), 1000, testLogger())
	c.Advance(context.Background(), testModel(t), 10)

	got := c.GetRecent(10, 3)
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	for i, want := range []float64{8, 9, 10} {
		if got[i].Minutes != want {
			t.Errorf("point %d: got %v, want %v", i, got[i].Minutes, want)
		}
	}
	if c.GetRecent(10, 0) != nil {
		t.Error("expected nil for count 0")
	}
}

// TestStepIndex verifies rounding down to step boundaries.
func TestStepIndex(t *testing.T) {
	c := New(Config{StepMinutes: 0.5}, 1000, testLogger())
	tests := []struct {
		minutes float64
		want    int64
	}{
		{0, 0},
		{0.49, 0},
		{0.5, 1},
		{2.2, 4},
		{-0.1, -1},
	}
	for _, tt := range tests {
		if got := c.StepIndex(tt.minutes); got != tt.want {
			t.Errorf("StepIndex(%v) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

// TestMissCounted verifies misses are counted.
func TestMissCounted(t *testing.T) {
	c := New(testConfig(), 1000, testLogger())
	if _, ok := c.Get(42); ok {
		t.Fatal("expected miss on empty trail")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("misses: got %d, want 1", c.Stats().Misses)
	}
}

func TestConfigBoundsWindow(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name string
		in   Config
		want func(Config) bool
	}{
		{"infinite horizon uses default", Config{StepMinutes: 1, HorizonMinutes: inf, BufferMinutes: 5},
			func(c Config) bool { return c.HorizonMinutes == DefaultConfig().HorizonMinutes }},
		{"infinite step uses default", Config{StepMinutes: inf, HorizonMinutes: 10, BufferMinutes: 5},
			func(c Config) bool { return c.StepMinutes == DefaultConfig().StepMinutes }},
		{"long sides are cut", Config{StepMinutes: 60, HorizonMinutes: 1e12, BufferMinutes: 1e12},
			func(c Config) bool { return c.HorizonMinutes == MaxSpanMinutes && c.BufferMinutes == MaxSpanMinutes }},
		{"fine step is widened", Config{StepMinutes: 1e-3, HorizonMinutes: MaxSpanMinutes, BufferMinutes: MaxSpanMinutes},
			func(c Config) bool { return (c.HorizonMinutes+c.BufferMinutes)/c.StepMinutes < MaxPoints-1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.in, 1000, testLogger()).Config(); !tt.want(got) {
				t.Errorf("config = %+v", got)
			}
		})
	}
}

// TestHugeWindowDoesNotPanic verifies an unbounded horizon is contained and
// a far-off time skips the rebuild instead of allocating.
func TestHugeWindowDoesNotPanic(t *testing.T) {
	m := testModel(t)
	c := New(Config{StepMinutes: 1, HorizonMinutes: math.Inf(1), BufferMinutes: math.MaxFloat64}, 1000, testLogger())
	c.Advance(context.Background(), m, 0.1)
	if n := c.Stats().Entries; n == 0 || n > MaxPoints {
		t.Errorf("entries = %d, want within (0, %d]", n, MaxPoints)
	}

	far := New(testConfig(), 1000, testLogger())
	far.Advance(context.Background(), m, 1e300)
	if n := far.Stats().Entries; n != 0 {
		t.Errorf("entries at an unrepresentable time = %d, want 0", n)
	}
}
