package propagation

import (
	"io"
	"log/slog"
	"testing"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

const (
	noaaLine1 = "1 33591U 09005A   25074.18988975  .00000419  00000+0  24768-3 0  9991"
	noaaLine2 = "2 33591  99.0072 138.3781 0012918 245.4492 114.5334 14.13308947829901"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func mustElements(t *testing.T, line1, line2 string) tle.Elements {
	t.Helper()
	el, err := tle.ParseElements(line1, line2)
	if err != nil {
		t.Fatalf("ParseElements: %v", err)
	}
	return el
}

func issElements(t *testing.T) tle.Elements {
	return mustElements(t, tle.DefaultLine1, tle.DefaultLine2)
}

func mustModel(t *testing.T, el tle.Elements) *MeanElements {
	t.Helper()
	m, err := New(el)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}
