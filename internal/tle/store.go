package tle

import (
	"sync/atomic"
	"time"
)

// Store holds the dataset the simulation propagates from. A reload swaps
// the whole dataset; readers never see a partial one.
type Store struct {
	current  atomic.Pointer[TLEDataset]
	revision atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil before the first load.
func (s *Store) Get() *TLEDataset {
	return s.current.Load()
}

// Set installs ds.
func (s *Store) Set(ds *TLEDataset) {
	s.Swap(ds)
}

// Swap installs ds and returns the dataset it replaced.
func (s *Store) Swap(ds *TLEDataset) *TLEDataset {
	prev := s.current.Swap(ds)
	s.revision.Add(1)
	return prev
}

// Revision counts installs since the store was created.
func (s *Store) Revision() uint64 { return s.revision.Load() }

// Lookup finds one body in the current dataset.
func (s *Store) Lookup(noradID int) (TLEEntry, bool) {
	return s.current.Load().Find(noradID)
}

// AgeSeconds is the time since the current dataset was fetched, or -1
// when nothing is loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.current.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}

// EpochAge is how far now lies from the body's element epoch. Mean
// elements lose accuracy with distance from their epoch in either
// direction, so the result is never negative.
func (s *Store) EpochAge(noradID int, now time.Time) (time.Duration, bool) {
	e, ok := s.Lookup(noradID)
	if !ok {
		return 0, false
	}
	d := now.Sub(e.Epoch)
	if d < 0 {
		d = -d
	}
	return d, true
}
