package tle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadInline(t *testing.T) {
	ds, err := Load(context.Background(), LoadConfig{Name: "ISS", Line1: DefaultLine1, Line2: DefaultLine2}, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Source != "inline" || len(ds.Satellites) != 1 || ds.Satellites[0].Name != "ISS" {
		t.Errorf("unexpected dataset %+v", ds)
	}
}

func TestLoadInlineInvalid(t *testing.T) {
	_, err := Load(context.Background(), LoadConfig{Line1: DefaultLine1, Line2: DefaultLine1}, testLogger)
	if !errors.Is(err, ErrInvalidElements) {
		t.Fatalf("err = %v, want ErrInvalidElements", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.tle")
	if err := os.WriteFile(path, []byte(issTLE+noaaTLE), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := Load(context.Background(), LoadConfig{File: path}, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Satellites) != 2 {
		t.Errorf("got %d satellites, want 2", len(ds.Satellites))
	}
}

func TestLoadFetchWritesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(noaaTLE))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := LoadConfig{Fetch: true, SourceURL: server.URL, CacheDir: dir, MaxAge: time.Hour}
	ds, err := Load(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Source != server.URL {
		t.Errorf("Source = %q, want %q", ds.Source, server.URL)
	}

	// Second load is served from the fresh cache even with the server gone.
	server.Close()
	ds, err = Load(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if ds.Source != "cache" || ds.Satellites[0].NORADID != 33591 {
		t.Errorf("second load = %s/%d, want cache/33591", ds.Source, ds.Satellites[0].NORADID)
	}
}

func TestLoadFetchFailureFallsBackToStaleCache(t *testing.T) {
	dir := t.TempDir()
	if err := NewCache(dir, 0).Write([]byte(noaaTLE), time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ds, err := Load(context.Background(), LoadConfig{Fetch: true, SourceURL: server.URL, CacheDir: dir, MaxAge: time.Hour}, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Source != "cache" {
		t.Errorf("Source = %q, want cache", ds.Source)
	}
}

func TestLoadBuiltinDefault(t *testing.T) {
	ds, err := Load(context.Background(), LoadConfig{}, testLogger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := ds.Find(0)
	if !ok || e.NORADID != 25544 || e.Name != DefaultName {
		t.Errorf("builtin entry = %+v", e)
	}
}
