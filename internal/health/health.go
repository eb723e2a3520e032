// Package health serves liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Check returns nil when its dependency is ready.
type Check func() error

// Checker runs named readiness checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker returns a Checker with no checks; it reports ready.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Add registers or replaces a named check.
func (c *Checker) Add(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Failing runs every check and returns the failures keyed by name.
func (c *Checker) Failing() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	failed := make(map[string]string)
	for name, check := range c.checks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

// Readyz returns 200 "ready\n" when every check passes and 503 with the
// failing checks as JSON otherwise.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	failed := c.Failing()
	if len(failed) == 0 {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
		return
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "not ready",
		"failing": names,
		"errors":  failed,
	})
}
