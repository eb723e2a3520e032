// Package auth guards state-changing endpoints with a bearer token.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// Probe and scrape endpoints stay open for any method.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// guarded reports whether r changes simulation or catalog state. Reads
// never need a token.
func guarded(r *http.Request) bool {
	if publicPaths[r.URL.Path] {
		return false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// check returns why r fails the token check, or "" when it passes.
func (c Config) check(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	switch {
	case !ok || token == "":
		return "missing_token"
	case c.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(c.Token)) != 1:
		return "invalid_token"
	}
	return ""
}

// Middleware refuses guarded requests without the configured token. It
// passes everything through when auth is disabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if guarded(r) {
				if reason := cfg.check(r); reason != "" {
					metrics.IncAuthRejected(reason)
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("WWW-Authenticate", `Bearer realm="orbitsim"`)
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "reason": reason})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
