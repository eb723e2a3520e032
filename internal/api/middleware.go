package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/httputil"
)

// quietPaths are polled by probes and scrapers; they log at debug.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// loggedWriter captures the status and size of a response. It keeps
// flushing available for the scene stream.
type loggedWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lw *loggedWriter) WriteHeader(code int) {
	if lw.status == 0 {
		lw.status = code
	}
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggedWriter) Write(p []byte) (int, error) {
	if lw.status == 0 {
		lw.status = http.StatusOK
	}
	n, err := lw.ResponseWriter.Write(p)
	lw.size += n
	return n, err
}

func (lw *loggedWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lw *loggedWriter) Unwrap() http.ResponseWriter { return lw.ResponseWriter }

// requestLog tags each request with an X-Request-ID, reusing one supplied
// by the caller, and logs it on completion under its route pattern.
func requestLog(logger *slog.Logger, resolver *httputil.Resolver) func(http.Handler) http.Handler {
	logger = logger.With("component", "api")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			start := time.Now()
			lw := &loggedWriter{ResponseWriter: w}
			next.ServeHTTP(lw, r)
			if lw.status == 0 {
				lw.status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case quietPaths[r.URL.Path]:
				level = slog.LevelDebug
			case lw.status >= 500:
				level = slog.LevelWarn
			}
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			logger.Log(r.Context(), level, "request",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", lw.status,
				"bytes", lw.size,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", resolver.ClientIP(r),
			)
		})
	}
}
