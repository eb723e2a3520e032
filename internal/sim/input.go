package sim

import (
	"sync"
	"time"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/camera"
)

// InputSnapshot is the set of controls active for one tick, plus the
// one-shot camera report request.
type InputSnapshot struct {
	active uint32
	Report bool
}

// NewInputSnapshot returns a snapshot with cmds active.
func NewInputSnapshot(cmds ...camera.Command) InputSnapshot {
	var s InputSnapshot
	for _, c := range cmds {
		s = s.With(c)
	}
	return s
}

// With returns s with cmd active.
func (s InputSnapshot) With(cmd camera.Command) InputSnapshot {
	if cmd >= 0 && int(cmd) < 32 {
		s.active |= 1 << uint(cmd)
	}
	return s
}

// Has reports whether cmd is active.
func (s InputSnapshot) Has(cmd camera.Command) bool {
	return cmd >= 0 && int(cmd) < 32 && s.active&(1<<uint(cmd)) != 0
}

// Commands lists the active commands in application order.
func (s InputSnapshot) Commands() []camera.Command {
	var out []camera.Command
	for _, c := range camera.Commands() {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether nothing is requested.
func (s InputSnapshot) Empty() bool { return s.active == 0 && !s.Report }

func union(a, b InputSnapshot) InputSnapshot {
	return InputSnapshot{active: a.active | b.active, Report: a.Report || b.Report}
}

// DefaultHoldTTL is how long a held control stays active without being
// refreshed by the client.
const DefaultHoldTTL = 500 * time.Millisecond

// InputBuffer collects control input from other goroutines for the tick
// loop. Held controls persist until replaced or expired; pressed controls
// and report requests are consumed by the next snapshot.
type InputBuffer struct {
	mu      sync.Mutex
	held    InputSnapshot
	heldAt  time.Time
	pulses  InputSnapshot
	holdTTL time.Duration
	now     func() time.Time
}

// NewInputBuffer returns an empty buffer. A non-positive ttl uses
// DefaultHoldTTL.
func NewInputBuffer(ttl time.Duration) *InputBuffer {
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}
	return &InputBuffer{holdTTL: ttl, now: time.Now}
}

// Hold replaces the set of held controls.
func (b *InputBuffer) Hold(cmds ...camera.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held = NewInputSnapshot(cmds...)
	b.heldAt = b.now()
}

// Press queues cmds for exactly one tick.
func (b *InputBuffer) Press(cmds ...camera.Command) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range cmds {
		b.pulses = b.pulses.With(c)
	}
}

// RequestReport asks the next tick to log the camera position.
func (b *InputBuffer) RequestReport() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pulses.Report = true
}

// Snapshot returns the input for one tick and consumes pulses.
func (b *InputBuffer) Snapshot() InputSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pulses
	if b.held.active != 0 && b.now().Sub(b.heldAt) <= b.holdTTL {
		out = union(out, b.held)
	}
	b.pulses = InputSnapshot{}
	return out
}
