package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/httputil"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/moonphase"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/passes"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/propagation"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/report"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/skycache"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/visibility"
)

// CPU budgets: a report searches events for every body across the
// horizon, and a pass prediction propagates every satellite at 30 s
// steps, so both horizons are capped.
const (
	maxHorizonDays  = 10
	maxHorizonHours = 240
)

// indexHandler describes the service for clients probing the root.
func indexHandler(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"service": "cosmic-night-agent",
		"endpoints": []string{
			"/api/v1/report",
			"/api/v1/sky",
			"/api/v1/passes",
			"/api/v1/moon",
			"/api/v1/tle/metadata",
			"/api/v1/stream/sky",
		},
	})
}

// reportHandler serves the full visibility report: per-body positions
// and event times, sun times, moon phase, meteor showers, and satellite
// passes when elements are loaded.
// GET /api/v1/report?lat&lon&elev&tz&at&horizon_days&min_elevation&bodies&passes
func reportHandler(logger *slog.Logger, store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obs, err := httputil.ObserverFromQuery(r)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		at, err := httputil.TimeFromQuery(r, "at")
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		horizonDays, err := httputil.IntFromQuery(r, "horizon_days", 1)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if horizonDays < 1 || horizonDays > maxHorizonDays {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":            fmt.Sprintf("horizon_days %d outside 1-%d", horizonDays, maxHorizonDays),
				"max_horizon_days": maxHorizonDays,
			})
			return
		}
		minElevation, err := httputil.FloatFromQuery(r, "min_elevation", 10)
		if err != nil || minElevation < 0 || minElevation > 90 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid min_elevation parameter, must be 0-90")
			return
		}
		bodies, err := bodiesFromQuery(r)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		req := report.Request{
			Observer:        obs,
			At:              at,
			HorizonDays:     horizonDays,
			MinElevationDeg: minElevation,
			Bodies:          bodies,
		}
		// Satellite passes ride along whenever elements are loaded;
		// passes=false skips them.
		if r.URL.Query().Get("passes") != "false" {
			if ds := store.Get(); ds != nil {
				req.Elements = ds.Satellites
			}
		}

		start := time.Now()
		rep, err := report.Compute(r.Context(), req)
		if err != nil {
			if errors.Is(err, transform.ErrInvalidObserver) {
				httputil.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("report computation failed", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "report computation failed")
			return
		}

		metrics.RecordReport(time.Since(start))
		for _, b := range rep.Bodies {
			metrics.RecordBodyLookup(b.Body, b.Confidence)
		}
		if len(req.Elements) > 0 {
			windows := 0
			for _, sp := range rep.Passes {
				windows += len(sp.Passes)
			}
			metrics.RecordPassPrediction(windows)
		}

		httputil.WriteJSON(w, http.StatusOK, rep)
	}
}

// bodiesFromQuery parses the optional comma-separated bodies parameter.
// Empty means every supported body.
func bodiesFromQuery(r *http.Request) ([]ephemeris.Body, error) {
	s := r.URL.Query().Get("bodies")
	if s == "" {
		return nil, nil
	}
	var bodies []ephemeris.Body
	for _, name := range strings.Split(s, ",") {
		b, err := ephemeris.ParseBody(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

type skyResponse struct {
	Observer   transform.Observer `json:"observer"`
	At         time.Time          `json:"at"`
	Source     string             `json:"source"` // "cache" or "computed"
	Bodies     []skyBody          `json:"bodies"`
	Satellites []skySatellite     `json:"satellites,omitempty"`
}

type skyBody struct {
	Body string `json:"body"`
	ephemeris.Equatorial
	transform.Horizontal
	Confidence string `json:"confidence"`
}

type skySatellite struct {
	NORADID int     `json:"norad_id"`
	Name    string  `json:"name,omitempty"`
	AltDeg  float64 `json:"alt_deg"`
	AzDeg   float64 `json:"az_deg"`
	RangeKm float64 `json:"range_km"`
}

// skyHandler serves an instantaneous sky snapshot: horizontal positions
// for every solar-system body plus the satellites above the observer's
// horizon. Snapshots inside the cached window reuse the shared keyframe
// (and report its rounded timestamp); outside it the bodies are computed
// directly and satellites are omitted.
// GET /api/v1/sky?lat&lon&elev&at
func skyHandler(logger *slog.Logger, sky *skycache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obs, err := httputil.ObserverFromQuery(r)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		at, err := httputil.TimeFromQuery(r, "at")
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		var kf *propagation.Keyframe
		if sky != nil {
			kf = sky.Get(at)
		}

		resp := skyResponse{Observer: obs}
		if kf != nil {
			resp.At = kf.Timestamp.UTC()
			resp.Source = "cache"
			for _, b := range kf.Bodies {
				resp.Bodies = append(resp.Bodies, skyBody{
					Body:       b.Body.String(),
					Equatorial: b.Equatorial,
					Horizontal: transform.EquatorialToHorizontal(b.Equatorial, obs, kf.Timestamp),
					Confidence: b.Equatorial.Confidence.String(),
				})
			}
			for _, s := range kf.Satellites {
				la := transform.ECEFToLookAngles(obs, s.PositionECEF[0], s.PositionECEF[1], s.PositionECEF[2])
				if la.ElevationDeg <= 0 {
					continue
				}
				resp.Satellites = append(resp.Satellites, skySatellite{
					NORADID: s.NORADID,
					Name:    s.Name,
					AltDeg:  la.ElevationDeg,
					AzDeg:   la.AzimuthDeg,
					RangeKm: la.RangeKm,
				})
			}
		} else {
			resp.At = at
			resp.Source = "computed"
			for _, body := range ephemeris.AllBodies() {
				eq, err := ephemeris.Position(body, at)
				if err != nil {
					logger.Warn("body position failed", "body", body.String(), "error", err)
					continue
				}
				metrics.RecordBodyLookup(body.String(), eq.Confidence.String())
				resp.Bodies = append(resp.Bodies, skyBody{
					Body:       body.String(),
					Equatorial: eq,
					Horizontal: transform.EquatorialToHorizontal(eq, obs, at),
					Confidence: eq.Confidence.String(),
				})
			}
		}

		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

type passesResponse struct {
	Observer     transform.Observer       `json:"observer"`
	Start        time.Time                `json:"start"`
	HorizonHours float64                  `json:"horizon_hours"`
	MinElevation float64                  `json:"min_elevation"`
	Satellites   []passes.SatellitePasses `json:"satellites"`
}

// passesHandler predicts satellite passes over the observer.
// GET /api/v1/passes?lat&lon&elev&tz&at&horizon_hours&min_elevation&norad_id
func passesHandler(logger *slog.Logger, store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obs, err := httputil.ObserverFromQuery(r)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		at, err := httputil.TimeFromQuery(r, "at")
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		horizonHours, err := httputil.FloatFromQuery(r, "horizon_hours", 24)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if horizonHours <= 0 || horizonHours > maxHorizonHours {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":             fmt.Sprintf("horizon_hours %g outside (0, %d]", horizonHours, maxHorizonHours),
				"max_horizon_hours": maxHorizonHours,
			})
			return
		}
		minElevation, err := httputil.FloatFromQuery(r, "min_elevation", 10)
		if err != nil || minElevation < 0 || minElevation > 90 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid min_elevation parameter, must be 0-90")
			return
		}
		noradID, err := httputil.IntFromQuery(r, "norad_id", 0)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		ds := store.Get()
		if ds == nil || len(ds.Satellites) == 0 {
			httputil.WriteError(w, http.StatusServiceUnavailable, "TLE data not loaded")
			return
		}
		entries := ds.Satellites
		if noradID != 0 {
			entries = nil
			for _, e := range ds.Satellites {
				if e.NORADID == noradID {
					entries = []tle.TLEEntry{e}
					break
				}
			}
			if entries == nil {
				httputil.WriteError(w, http.StatusNotFound, fmt.Sprintf("no elements for norad_id %d", noradID))
				return
			}
		}

		result := passes.Predict(r.Context(), passes.Request{
			Observer:     obs,
			Entries:      entries,
			Start:        at,
			HorizonHours: horizonHours,
			MinElevation: minElevation,
		})

		windows := 0
		for _, sp := range result {
			windows += len(sp.Passes)
		}
		metrics.RecordPassPrediction(windows)

		httputil.WriteJSON(w, http.StatusOK, passesResponse{
			Observer:     obs,
			Start:        at,
			HorizonHours: horizonHours,
			MinElevation: minElevation,
			Satellites:   result,
		})
	}
}

type moonResponse struct {
	At       time.Time             `json:"at"`
	Phase    moonphase.Phase       `json:"phase"`
	Position *moonPosition         `json:"position,omitempty"`
	Times    *visibility.BodyTimes `json:"times,omitempty"`
}

type moonPosition struct {
	ephemeris.Equatorial
	transform.Horizontal
	Confidence string `json:"confidence"`
}

// moonHandler serves the lunar phase, plus the Moon's position and
// rise/set times when an observer is given.
// GET /api/v1/moon?at&lat&lon&elev&tz
func moonHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, err := httputil.TimeFromQuery(r, "at")
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		resp := moonResponse{At: at, Phase: moonphase.Compute(at)}

		q := r.URL.Query()
		if q.Get("lat") != "" || q.Get("lon") != "" {
			obs, err := httputil.ObserverFromQuery(r)
			if err != nil {
				httputil.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			eq, err := ephemeris.Position(ephemeris.Moon, at)
			if err != nil {
				logger.Warn("moon position failed", "error", err)
			} else {
				metrics.RecordBodyLookup(ephemeris.Moon.String(), eq.Confidence.String())
				times := visibility.ComputeEvents(ephemeris.Moon, obs, at, visibility.Options{})
				resp.Position = &moonPosition{
					Equatorial: eq,
					Horizontal: transform.EquatorialToHorizontal(eq, obs, at),
					Confidence: eq.Confidence.String(),
				}
				resp.Times = &times
			}
		}

		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// tleMetadataHandler reports the loaded element set: where it came
// from, when, and the epoch span it covers.
// GET /api/v1/tle/metadata
func tleMetadataHandler(store *tle.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := store.Get()
		if ds == nil {
			httputil.WriteError(w, http.StatusServiceUnavailable, "TLE data not loaded")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"source":      ds.Source,
			"fetched_at":  ds.FetchedAt.UTC(),
			"age_seconds": int(time.Since(ds.FetchedAt).Seconds()),
			"satellites":  len(ds.Satellites),
			"epoch_range": ds.EpochRange,
		})
	}
}
