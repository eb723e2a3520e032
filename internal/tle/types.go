package tle

import "time"

// TLEEntry is one named element set read from a catalog file.
type TLEEntry struct {
	NORADID  int
	Name     string
	Epoch    time.Time
	Line1    string
	Line2    string
	Elements Elements
}

// EpochRange represents the minimum and maximum epoch times in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// TLEDataset is the set of element sets loaded from one source.
type TLEDataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []TLEEntry
}

// NewDataset builds a dataset and computes its epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	for i, e := range entries {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}

// Find returns the entry with the given catalog number. A zero noradID
// selects the first entry.
func (ds *TLEDataset) Find(noradID int) (TLEEntry, bool) {
	if ds == nil || len(ds.Satellites) == 0 {
		return TLEEntry{}, false
	}
	if noradID == 0 {
		return ds.Satellites[0], true
	}
	for _, e := range ds.Satellites {
		if e.NORADID == noradID {
			return e, true
		}
	}
	return TLEEntry{}, false
}
