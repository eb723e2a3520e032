package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/catalog"
)

func TestRunnerStepPublishes(t *testing.T) {
	st := newTestState(t, StaticModel{M: issModel(t)}, nil)
	in := NewInputBuffer(0)
	r := NewRunner(st, in, RunnerConfig{}, testLogger)

	if r.Latest() != nil {
		t.Fatal("expected no scene before the first tick")
	}
	in.Press(camera.PanUp)
	scene := r.Step(0)
	if r.Latest() != scene || r.Ticks() != 1 {
		t.Errorf("latest=%p scene=%p ticks=%d", r.Latest(), scene, r.Ticks())
	}
	if scene.Camera.Position.Y != camera.DefaultPanStep {
		t.Errorf("pressed control not applied: y=%v", scene.Camera.Position.Y)
	}
	if next := r.Step(0); next.Camera.Position.Y != scene.Camera.Position.Y {
		t.Error("pressed control applied twice")
	}
}

func TestRunnerDrainsCatalog(t *testing.T) {
	st := newTestState(t, StaticModel{M: issModel(t)}, nil)
	results := make(chan catalog.Result, 1)
	store := catalog.NewStore()
	r := NewRunner(st, NewInputBuffer(0), RunnerConfig{Catalog: results, CatalogStore: store}, testLogger)

	fetched := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	results <- catalog.Result{Snapshot: &catalog.Snapshot{ID: "a", FetchedAt: fetched, Objects: make([]catalog.TrackedObject, 3)}}
	scene := r.Step(0)
	if scene.Catalog.Objects != 3 || !scene.Catalog.FetchedAt.Equal(fetched) {
		t.Errorf("catalog summary: %+v", scene.Catalog)
	}
	if store.Get() == nil || store.Get().ID != "a" {
		t.Error("snapshot not stored")
	}

	results <- catalog.Result{Err: errors.New("upstream down")}
	scene = r.Step(0)
	if scene.Catalog.Error != "upstream down" || scene.Catalog.Objects != 3 {
		t.Errorf("failed refresh should keep previous snapshot: %+v", scene.Catalog)
	}
	if store.Get().ID != "a" {
		t.Error("failed refresh replaced the store")
	}
}

func TestRunnerRunStopsOnCancel(t *testing.T) {
	st := newTestState(t, StaticModel{M: issModel(t)}, nil)
	r := NewRunner(st, NewInputBuffer(0), RunnerConfig{FrameRate: 200}, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.Ticks() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if r.Ticks() < 3 {
		t.Errorf("ticks: got %d, want >= 3", r.Ticks())
	}
}
