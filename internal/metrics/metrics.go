package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	simTicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_sim_ticks_total",
		Help: "Simulation ticks executed.",
	})

	simTickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitsim_sim_tick_duration_seconds",
		Help:    "Wall time spent in one simulation tick.",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	})

	simDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_sim_degraded_ticks_total",
			Help: "Ticks that reused the previous satellite position.",
		},
		[]string{"reason"},
	)

	simElapsedMinutes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_sim_elapsed_minutes",
		Help: "Simulated minutes since the element epoch.",
	})

	cameraNoOpTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_camera_noop_total",
		Help: "Camera rotations ignored because the radius was degenerate.",
	})

	propagationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitsim_propagation_duration_seconds",
			Help:    "Duration of a batch ephemeris request.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	propagationSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_propagation_samples_total",
			Help: "Propagated samples by outcome.",
		},
		[]string{"model", "result"},
	)

	trailEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_trail_entries",
		Help: "Orbit trail points currently cached.",
	})

	trailLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_trail_lookups_total",
			Help: "Trail point lookups by result.",
		},
		[]string{"result"},
	)

	trailEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_trail_evictions_total",
		Help: "Trail points evicted behind the trailing edge.",
	})

	trailErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_trail_generation_errors_total",
		Help: "Trail points that failed to propagate.",
	})

	trailCutoverSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitsim_trail_cutover_duration_seconds",
		Help:    "Time to rebuild the trail after a model change.",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	})

	catalogFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_catalog_fetch_total",
			Help: "Catalog fetches by outcome.",
		},
		[]string{"result"},
	)

	catalogFetchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orbitsim_catalog_fetch_duration_seconds",
		Help:    "Catalog fetch duration in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	catalogObjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_catalog_objects",
		Help: "Tracked objects in the current catalog snapshot.",
	})

	elementsAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_elements_dataset_age_seconds",
		Help: "Age of the loaded element dataset.",
	})

	streamConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_stream_connections_total",
		Help: "Scene stream connections accepted.",
	})

	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitsim_streams_active",
		Help: "Scene streams currently open.",
	})

	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_messages_total",
			Help: "Stream messages written by type.",
		},
		[]string{"type"},
	)

	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitsim_stream_bytes_total",
		Help: "Bytes written to scene streams.",
	})

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_stream_errors_total",
			Help: "Stream errors by reason.",
		},
		[]string{"reason"},
	)

	authRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitsim_auth_rejected_total",
			Help: "Requests refused by the bearer token check.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		simTicksTotal,
		simTickSeconds,
		simDegradedTotal,
		simElapsedMinutes,
		cameraNoOpTotal,
		propagationSeconds,
		propagationSamplesTotal,
		trailEntries,
		trailLookupsTotal,
		trailEvictionsTotal,
		trailErrorsTotal,
		trailCutoverSeconds,
		catalogFetchTotal,
		catalogFetchSeconds,
		catalogObjects,
		elementsAgeSeconds,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
		authRejectedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick records one simulation tick.
func RecordTick(d time.Duration, elapsedMinutes float64) {
	simTicksTotal.Inc()
	simTickSeconds.Observe(d.Seconds())
	simElapsedMinutes.Set(elapsedMinutes)
}

// IncDegradedTick counts a tick whose satellite position was stale.
func IncDegradedTick(reason string) {
	simDegradedTotal.WithLabelValues(reason).Inc()
}

// IncCameraNoOp counts an ignored camera rotation.
func IncCameraNoOp() {
	cameraNoOpTotal.Inc()
}

// RecordPropagation records a batch ephemeris run.
func RecordPropagation(model string, d time.Duration, success, errors int) {
	propagationSeconds.WithLabelValues(model).Observe(d.Seconds())
	propagationSamplesTotal.WithLabelValues(model, "ok").Add(float64(success))
	propagationSamplesTotal.WithLabelValues(model, "error").Add(float64(errors))
}

// SetTrailEntries reports the trail cache size.
func SetTrailEntries(n int) { trailEntries.Set(float64(n)) }

// IncTrailHit counts a trail lookup served from the cache.
func IncTrailHit() { trailLookupsTotal.WithLabelValues("hit").Inc() }

// IncTrailMiss counts a trail lookup that found nothing.
func IncTrailMiss() { trailLookupsTotal.WithLabelValues("miss").Inc() }

// AddTrailEvictions counts evicted trail points.
func AddTrailEvictions(n int) { trailEvictionsTotal.Add(float64(n)) }

// IncTrailErrors counts a trail point that failed to propagate.
func IncTrailErrors() { trailErrorsTotal.Inc() }

// ObserveTrailCutover records a trail rebuild.
func ObserveTrailCutover(d time.Duration) { trailCutoverSeconds.Observe(d.Seconds()) }

// RecordCatalogFetch records a catalog fetch and, on success, the object count.
func RecordCatalogFetch(d time.Duration, objects int, err error) {
	catalogFetchSeconds.Observe(d.Seconds())
	if err != nil {
		catalogFetchTotal.WithLabelValues("error").Inc()
		return
	}
	catalogFetchTotal.WithLabelValues("ok").Inc()
	catalogObjects.Set(float64(objects))
}

// SetElementsAge reports the age of the element dataset.
func SetElementsAge(seconds float64) {
	elementsAgeSeconds.Set(seconds)
}

func IncStreamConnections()         { streamConnectionsTotal.Inc() }
func IncStreamsActive()             { streamsActive.Inc() }
func DecStreamsActive()             { streamsActive.Dec() }
func IncStreamMessages(kind string) { streamMessagesTotal.WithLabelValues(kind).Inc() }
func AddStreamBytes(n int)          { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// IncAuthRejected counts a request refused for a missing or wrong token.
func IncAuthRejected(reason string) { authRejectedTotal.WithLabelValues(reason).Inc() }

// knownRoutes are recorded under their own path label.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/app.js":                 true,
	"/styles.css":             true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/scene":           true,
	"/api/v1/input":           true,
	"/api/v1/camera":          true,
	"/api/v1/elements":        true,
	"/api/v1/propagate":       true,
	"/api/v1/passes":          true,
	"/api/v1/trail":           true,
	"/api/v1/catalog":         true,
	"/api/v1/catalog/refresh": true,
	"/api/v1/catalog/history": true,
	"/api/v1/stream/scene":    true,
}

// routeLabel prefers the mux pattern that served r, with its method
// stripped, and falls back to normalizeRoute for unrouted requests.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			return path
		}
		return r.Pattern
	}
	return normalizeRoute(r.URL.Path)
}

// normalizeRoute maps a request path to a bounded label set.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if id, ok := strings.CutPrefix(path, "/api/v1/elements/"); ok && isDigits(id) {
		return "/api/v1/elements/{norad_id}"
	}
	return "other"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
