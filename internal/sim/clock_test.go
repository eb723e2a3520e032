package sim

import (
	"math"
	"testing"
	"time"
)

func TestClockFixed(t *testing.T) {
	c := NewClock(ClockConfig{})
	for i := 1; i <= 3; i++ {
		got := c.Advance(time.Hour)
		if want := float64(i) * DefaultTickMinutes; math.Abs(got-want) > 1e-12 {
			t.Errorf("tick %d: got %v, want %v", i, got, want)
		}
	}
	if c.Mode() != ClockFixed {
		t.Errorf("mode: got %s", c.Mode())
	}
}

func TestClockRealtime(t *testing.T) {
	c := NewClock(ClockConfig{Mode: ClockRealtime, TimeScale: 60, StartMinutes: 5})
	if got := c.Advance(time.Second); math.Abs(got-6) > 1e-12 {
		t.Errorf("after 1s at 60x: got %v, want 6", got)
	}
	if got := c.Advance(-time.Second); math.Abs(got-6) > 1e-12 {
		t.Errorf("negative frame moved clock: got %v", got)
	}
	if got := c.Advance(0); math.Abs(got-6) > 1e-12 {
		t.Errorf("zero frame moved clock: got %v", got)
	}
}

func TestClockSanitizesConfig(t *testing.T) {
	c := NewClock(ClockConfig{TickMinutes: math.NaN(), StartMinutes: math.Inf(1)})
	if c.Elapsed() != 0 {
		t.Errorf("start: got %v, want 0", c.Elapsed())
	}
	if got := c.Advance(0); math.Abs(got-DefaultTickMinutes) > 1e-12 {
		t.Errorf("tick: got %v, want %v", got, DefaultTickMinutes)
	}
}

func TestParseClockMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockMode
		wantErr bool
	}{
		{"fixed", ClockFixed, false},
		{"realtime", ClockRealtime, false},
		{"", ClockFixed, false},
		{"warp", "", true},
	}
	for _, tt := range tests {
		got, err := ParseClockMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClockMode(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseClockMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
