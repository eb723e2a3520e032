package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/propagation"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPropagateJSON(t *testing.T) {
	out, err := run(t, "propagate", "--count", "3", "--step", "10m", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var track propagation.Track
	if err := json.Unmarshal([]byte(out), &track); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if track.NORADID != 25544 || len(track.Samples) != 3 || track.Errors != 0 {
		t.Fatalf("track = %+v", track)
	}
	if track.Step != "10m0s" {
		t.Errorf("step = %q", track.Step)
	}
	if got := track.Samples[1].Minutes - track.Samples[0].Minutes; got < 9.999 || got > 10.001 {
		t.Errorf("sample spacing = %g minutes", got)
	}
	// Samples start at the element epoch by default.
	if track.Samples[0].Minutes != 0 {
		t.Errorf("first sample at %g minutes", track.Samples[0].Minutes)
	}
}

func TestPropagateTable(t *testing.T) {
	out, err := run(t, "propagate", "--count", "2", "--scene")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.Contains(lines[0], "scene x") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestPropagateRejectsCount(t *testing.T) {
	if _, err := run(t, "propagate", "--count", "0"); err == nil {
		t.Fatal("expected error for zero count")
	}
	if _, err := run(t, "propagate", "--start", "yesterday"); err == nil {
		t.Fatal("expected error for bad start")
	}
}

func TestElementsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.txt")
	data := "ISS (ZARYA)\n" + tle.DefaultLine1 + "\n" + tle.DefaultLine2 + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "elements", path)
	if err != nil {
		t.Fatal(err)
	}
	el, err := tle.ParseElements(tle.DefaultLine1, tle.DefaultLine2)
	if err != nil {
		t.Fatal(err)
	}
	m, err := propagation.New(el)
	if err != nil {
		t.Fatal(err)
	}
	wants := []string{
		"1 entries", "25544", "ISS (ZARYA)", "51.6461",
		fmt.Sprintf("%.6f", el.EpochJD()),
		fmt.Sprintf("%.1f", m.SemiMajorAxisKm()),
		fmt.Sprintf("%.2f", m.PeriodMinutes()),
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestElementsMissingFile(t *testing.T) {
	if _, err := run(t, "elements", filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Fatal("expected error")
	}
}

func TestPassesHeader(t *testing.T) {
	out, err := run(t, "passes", "--hours", "6", "--lat", "40", "--lon", "-75")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "NORAD 25544") || !strings.Contains(out, "40.0000, -75.0000") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestUnknownNORAD(t *testing.T) {
	if _, err := run(t, "passes", "--norad-id", "1"); err == nil {
		t.Fatal("expected error for a body missing from the dataset")
	}
}
