package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestHistoryRecordAndList(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		snap := &Snapshot{
			ID:           id,
			Source:       "n2yo",
			FetchedAt:    base.Add(time.Duration(i) * time.Hour),
			ObserverLat:  49.61,
			ObserverLon:  6.13,
			Transactions: 10 + i,
			Objects: []TrackedObject{
				{NORADID: 25544, Name: "ISS (ZARYA)", LatDeg: 1, LonDeg: 2, AltKm: 420},
				{NORADID: 33591, Name: "NOAA 19", LatDeg: 3, LonDeg: 4, AltKm: 850},
			},
		}
		if err := h.Record(ctx, snap); err != nil {
			t.Fatalf("Record %s: %v", id, err)
		}
	}

	recent, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent: got %d, want 2", len(recent))
	}
	if recent[0].ID != "second" || recent[1].ID != "first" {
		t.Errorf("order: got %s, %s", recent[0].ID, recent[1].ID)
	}
	if recent[0].Objects != 2 || recent[0].Transactions != 11 {
		t.Errorf("summary: %+v", recent[0])
	}
	if !recent[1].FetchedAt.Equal(base) {
		t.Errorf("fetched_at: got %v, want %v", recent[1].FetchedAt, base)
	}

	objs, err := h.Objects(ctx, "first")
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if len(objs) != 2 || objs[1].Name != "NOAA 19" || objs[0].AltKm != 420 {
		t.Errorf("objects: %+v", objs)
	}
}

func TestHistoryDuplicateSnapshotRollsBack(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}
	defer h.Close()

	ctx := context.Background()
	snap := &Snapshot{ID: "dup", Source: "n2yo", FetchedAt: time.Now(), Objects: []TrackedObject{{NORADID: 1}}}
	if err := h.Record(ctx, snap); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := h.Record(ctx, snap); err == nil {
		t.Fatal("expected primary key violation")
	}
	objs, err := h.Objects(ctx, "dup")
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if len(objs) != 1 {
		t.Errorf("objects after failed insert: got %d, want 1", len(objs))
	}
}

func TestDriverVersion(t *testing.T) {
	if DriverVersion() == "" {
		t.Error("expected a sqlite version")
	}
}
