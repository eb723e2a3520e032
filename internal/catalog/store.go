package catalog

import (
	"sync/atomic"
	"time"
)

// Store holds the current snapshot. Safe for concurrent use.
type Store struct {
	snap atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current snapshot, or nil.
func (s *Store) Get() *Snapshot {
	return s.snap.Load()
}

// Set replaces the current snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.snap.Store(snap)
}

// AgeSeconds returns seconds since the current snapshot was fetched, or -1.
func (s *Store) AgeSeconds() float64 {
	snap := s.snap.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.FetchedAt).Seconds()
}
