package propagation

import (
	"context"
	"log/slog"
	"sync"
)

// Sample is the outcome of propagating one offset.
type Sample struct {
	Minutes float64     `json:"minutes"`
	State   StateVector `json:"state"`
	Err     error       `json:"-"`
	Error   string      `json:"error,omitempty"`
}

func newSample(minutes float64, st StateVector, err error) Sample {
	s := Sample{Minutes: minutes, State: st, Err: err}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// chunkSize is how many offsets a worker claims at a time. Propagating
// one offset costs about a microsecond, so smaller chunks spend more on
// coordination than on work.
const chunkSize = 64

// WorkerPool propagates many offsets of one model in parallel.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{workers: workers, logger: logger}
}

// Ephemeris propagates m to every offset. Samples come back in input
// order; offsets not reached before ctx is done carry ctx.Err(). The
// counts are successes and failures.
func (wp *WorkerPool) Ephemeris(ctx context.Context, m Model, offsets []float64) ([]Sample, int, int) {
	if len(offsets) == 0 {
		return nil, 0, 0
	}
	samples := make([]Sample, len(offsets))

	// Workers claim chunks from a shared cursor and write only the slots
	// they claimed, so samples needs no lock.
	var (
		mu     sync.Mutex
		cursor int
		failed int
	)
	claim := func() (int, int, bool) {
		mu.Lock()
		defer mu.Unlock()
		if cursor >= len(offsets) || ctx.Err() != nil {
			return 0, 0, false
		}
		lo := cursor
		cursor = min(cursor+chunkSize, len(offsets))
		return lo, cursor, true
	}

	var wg sync.WaitGroup
	for range min(wp.workers, (len(offsets)+chunkSize-1)/chunkSize) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bad := 0
			for lo, hi, ok := claim(); ok; lo, hi, ok = claim() {
				for i := lo; i < hi; i++ {
					st, err := m.Propagate(offsets[i])
					samples[i] = newSample(offsets[i], st, err)
					if err != nil {
						bad++
						wp.logger.Debug("propagation failed", "minutes", offsets[i], "error", err)
					}
				}
			}
			mu.Lock()
			failed += bad
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Everything past the cursor was never claimed.
	if cursor < len(offsets) {
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		for i := cursor; i < len(offsets); i++ {
			samples[i] = newSample(offsets[i], StateVector{}, err)
		}
		failed += len(offsets) - cursor
	}
	return samples, len(offsets) - failed, failed
}
