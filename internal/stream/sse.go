// Package stream implements Server-Sent Events (SSE) streaming of the
// simulation scene. Clients connect via GET /api/v1/stream/scene and
// receive every new frame at up to the requested rate.
//
// SSE message format:
//
//	id: 1234\ndata: {"type":"scene","scene":{...},"draw":[...]}\n\n
//
// The event id is the scene tick. A reconnect carrying Last-Event-ID skips
// the tick the client already has.
//
// First message is always metadata:
//
//	data: {"type":"metadata","session":"...","elements_epoch":"...","elements_age_seconds":1800}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/douglassimoes/space-station-orbit-simulation/internal/httputil"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/metrics"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/render"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/sim"
	"github.com/douglassimoes/space-station-orbit-simulation/internal/tle"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxTotal           int           // Max concurrent streams overall (default: 1000).
	BandwidthLimit     int           // Bytes per second per stream (default: 1048576).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	MaxFPS             int           // Upper bound on the fps parameter (default: 30).
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           1000,
		BandwidthLimit:     1 << 20,
		KeepaliveInterval:  30 * time.Second,
		MaxFPS:             30,
	}
}

// SceneSource yields the latest published scene. *sim.Runner satisfies it.
type SceneSource interface {
	Latest() *sim.Scene
}

// Handler manages SSE streaming connections.
type Handler struct {
	scenes   SceneSource
	store    *tle.Store
	config   Config
	limiter  *streamLimiter
	resolver *httputil.Resolver
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler. store and resolver may be nil.
func NewHandler(scenes SceneSource, store *tle.Store, config Config, resolver *httputil.Resolver, logger *slog.Logger) *Handler {
	d := DefaultConfig()
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = d.MaxConcurrentPerIP
	}
	if config.MaxTotal <= 0 {
		config.MaxTotal = d.MaxTotal
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = d.KeepaliveInterval
	}
	if config.MaxFPS <= 0 {
		config.MaxFPS = d.MaxFPS
	}
	return &Handler{
		scenes:   scenes,
		store:    store,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		resolver: resolver,
		logger:   logger.With("component", "stream"),
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleScene serves the SSE scene stream.
// GET /api/v1/stream/scene?fps=10&draw=true
func (h *Handler) HandleScene(w http.ResponseWriter, r *http.Request) {
	fps := 10
	if v := r.URL.Query().Get("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > h.config.MaxFPS {
			badRequest(w, fmt.Sprintf("invalid fps parameter, must be 1-%d", h.config.MaxFPS))
			return
		}
		fps = n
	}

	withDraw := true
	if v := r.URL.Query().Get("draw"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "invalid draw parameter, must be a boolean")
			return
		}
		withDraw = b
	}

	ip := h.resolver.ClientIP(r)
	release, refused := h.limiter.acquire(ip)
	if refused != "" {
		held, total := h.limiter.usage(ip)
		metrics.IncStreamErrors(refused)
		h.logger.Warn("stream refused",
			"remote_ip", ip,
			"limit", refused,
			"client_streams", held,
			"total_streams", total,
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams", "limit": refused})
		return
	}

	if _, ok := w.(http.Flusher); !ok {
		release()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// A reconnecting browser names the last tick it rendered; that tick is
	// not sent again.
	var lastTick uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastTick, _ = strconv.ParseUint(v, 10, 64)
	}

	session := uuid.NewString()
	log := h.logger.With("session", session, "remote_ip", ip)
	c := newClient(w, h.config.BandwidthLimit)
	started := time.Now()

	metrics.IncStreamConnections()
	metrics.IncStreamsActive()
	log.Info("stream connected", "user_agent", r.Header.Get("User-Agent"), "fps", fps, "resume_tick", lastTick)
	defer func() {
		release()
		metrics.DecStreamsActive()
		log.Info("stream disconnected",
			"duration_seconds", int(time.Since(started).Seconds()),
			"messages", c.messages,
			"bytes", c.bytes,
			"dropped", c.dropped,
		)
	}()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	hdr.Set("X-Stream-Session", session)
	w.WriteHeader(http.StatusOK)

	// The server's WriteTimeout would cut the stream; each frame sets its
	// own deadline instead.
	_ = c.rc.SetWriteDeadline(time.Time{})

	// Jittered 3-7s retry spreads reconnects after a restart.
	if err := c.retry(3000 + rand.Intn(4000)); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}
	if err := c.sendJSON("metadata", 0, h.metadata(session, fps)); err != nil {
		metrics.IncStreamErrors("send_error")
		log.Warn("stream metadata failed", "error", err)
		return
	}

	frames := time.NewTicker(time.Second / time.Duration(fps))
	defer frames.Stop()
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case now := <-frames.C:
			scene := h.scenes.Latest()
			if scene == nil || scene.Tick == lastTick {
				continue
			}
			lastTick = scene.Tick

			p, err := frame(scene.Tick, buildSceneMessage(scene, withDraw, fps))
			if err != nil {
				metrics.IncStreamErrors("marshal_error")
				log.Warn("stream encode failed", "tick", scene.Tick, "error", err)
				continue
			}
			sent, err := c.sendScene(p, now)
			if err != nil {
				metrics.IncStreamErrors("send_error")
				log.Warn("stream send failed", "error", err)
				return
			}
			if !sent {
				metrics.IncStreamErrors("bandwidth")
				continue
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.keepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				log.Warn("stream keepalive failed", "error", err)
				return
			}
		}
	}
}

// metadata describes the stream and the element set behind it.
func (h *Handler) metadata(session string, fps int) metadataMessage {
	meta := metadataMessage{Type: "metadata", Session: session, FPS: fps}
	if h.store == nil {
		return meta
	}
	if ds := h.store.Get(); ds != nil {
		meta.ElementsSource = ds.Source
		meta.ElementsEpoch = ds.EpochRange.Max.UTC().Format(time.RFC3339)
		meta.ElementsAge = int(time.Since(ds.FetchedAt).Seconds())
	}
	return meta
}

// buildSceneMessage wraps a scene and, optionally, its draw list.
func buildSceneMessage(s *sim.Scene, withDraw bool, fps int) sceneMessage {
	msg := sceneMessage{Type: "scene", Scene: s}
	if withDraw {
		msg.Draw = render.DrawList(s, render.Options{FPS: float64(fps)})
	}
	return msg
}

// SSE message payload types.

type metadataMessage struct {
	Type           string `json:"type"`
	Session        string `json:"session"`
	FPS            int    `json:"fps"`
	ElementsSource string `json:"elements_source,omitempty"`
	ElementsEpoch  string `json:"elements_epoch,omitempty"`
	ElementsAge    int    `json:"elements_age_seconds,omitempty"`
}

type sceneMessage struct {
	Type  string            `json:"type"`
	Scene *sim.Scene        `json:"scene"`
	Draw  []render.DrawCall `json:"draw,omitempty"`
}
