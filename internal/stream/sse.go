// Package stream implements Server-Sent Events (SSE) streaming of the
// live sky. Clients connect via GET /api/v1/stream/sky with an observer
// location and receive a continuous stream of horizontal positions for
// the solar-system bodies and every tracked satellite above their
// horizon, derived from the shared keyframe cache.
//
// SSE message format:
//
//	data: {"type":"sky_batch","t":"2026-02-06T04:00:00Z","bodies":[...],"sat":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","dataset_epoch":"...","tle_age_seconds":1800,"step_seconds":5}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/httputil"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/propagation"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/skycache"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrentTotal int           // Global concurrent stream cap (default: 1000).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For / X-Real-IP for client IPs.
}

// Handler manages SSE streaming connections.
type Handler struct {
	cache   *skycache.Cache
	store   *tle.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler. Zero config fields fall
// back to their defaults.
func NewHandler(sky *skycache.Cache, store *tle.Store, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.MaxConcurrentTotal <= 0 {
		config.MaxConcurrentTotal = 1000
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		cache:   sky,
		store:   store,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrentTotal),
		logger:  logger,
	}
}

// HandleSky serves the SSE sky stream.
// GET /api/v1/stream/sky?lat=40.7&lon=-74.0&step=5&min_elevation=10
func (h *Handler) HandleSky(w http.ResponseWriter, r *http.Request) {
	obs, err := httputil.ObserverFromQuery(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	step, err := httputil.IntFromQuery(r, "step", 5)
	if err != nil || step < 1 || step > 60 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid step parameter, must be 1-60")
		return
	}

	minElevation, err := httputil.FloatFromQuery(r, "min_elevation", 0)
	if err != nil || minElevation < 0 || minElevation > 90 {
		httputil.WriteError(w, http.StatusBadRequest, "invalid min_elevation parameter, must be 0-90")
		return
	}

	// Rate limiting: enforce concurrent stream limits per IP and globally.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors()
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	// Track connection metrics.
	metrics.IncStreamConnections()
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"lat", obs.LatDeg,
		"lon", obs.LonDeg,
		"step", step,
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Use ResponseController to manage write deadlines for long-lived SSE.
	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	// Send metadata message (first message on every connection).
	meta := metadataMessage{
		Type:        "metadata",
		StepSeconds: step,
	}
	if ds := h.store.Get(); ds != nil {
		meta.DatasetEpoch = ds.FetchedAt.UTC().Format(time.RFC3339)
		meta.TLEAge = int(time.Since(ds.FetchedAt).Seconds())
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors()
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	// Stream sky batches at the requested step interval.
	ticker := time.NewTicker(time.Duration(step) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			kf := h.cache.Get(t)
			if kf == nil {
				// Get already counted the cache miss.
				h.logger.Debug("stream cache miss",
					"timestamp", h.cache.RoundToStep(t).UTC().Format(time.RFC3339),
					"remote_ip", ip,
				)
				continue
			}

			if err := c.sendJSON(buildSkyMessage(kf, obs, minElevation)); err != nil {
				metrics.IncStreamErrors()
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors()
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildSkyMessage projects a keyframe onto the observer's sky: every
// solar-system body gets a horizontal position, and satellites are
// included only when their elevation reaches minElevation degrees.
func buildSkyMessage(kf *propagation.Keyframe, obs transform.Observer, minElevation float64) skyBatchMessage {
	bodies := make([]bodyPayload, len(kf.Bodies))
	for i, b := range kf.Bodies {
		hz := transform.EquatorialToHorizontal(b.Equatorial, obs, kf.Timestamp)
		bodies[i] = bodyPayload{
			Name: b.Body.String(),
			Alt:  hz.AltDeg,
			Az:   hz.AzDeg,
		}
	}

	var sats []satPayload
	for _, s := range kf.Satellites {
		la := transform.ECEFToLookAngles(obs, s.PositionECEF[0], s.PositionECEF[1], s.PositionECEF[2])
		if la.ElevationDeg < minElevation {
			continue
		}
		sats = append(sats, satPayload{
			ID:      s.NORADID,
			Name:    s.Name,
			Alt:     la.ElevationDeg,
			Az:      la.AzimuthDeg,
			RangeKm: la.RangeKm,
		})
	}

	return skyBatchMessage{
		Type:   "sky_batch",
		T:      kf.Timestamp.UTC().Format(time.RFC3339),
		Bodies: bodies,
		Sat:    sats,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type         string `json:"type"`
	DatasetEpoch string `json:"dataset_epoch,omitempty"`
	TLEAge       int    `json:"tle_age_seconds"`
	StepSeconds  int    `json:"step_seconds"`
}

type skyBatchMessage struct {
	Type   string        `json:"type"`
	T      string        `json:"t"`
	Bodies []bodyPayload `json:"bodies"`
	Sat    []satPayload  `json:"sat"`
}

type bodyPayload struct {
	Name string  `json:"n"`
	Alt  float64 `json:"alt"`
	Az   float64 `json:"az"`
}

type satPayload struct {
	ID      int     `json:"id"`
	Name    string  `json:"n,omitempty"`
	Alt     float64 `json:"alt"`
	Az      float64 `json:"az"`
	RangeKm float64 `json:"rng"`
}
