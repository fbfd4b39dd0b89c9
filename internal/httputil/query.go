// Package httputil holds the small request/response helpers shared by
// the API handlers and the stream: client IP extraction, query-string
// parsing, JSON writing.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// ObserverFromQuery builds an Observer from the lat, lon, elev and tz
// query parameters. lat and lon are required; elev defaults to 0 m and
// tz to UTC. Validation errors wrap transform.ErrInvalidObserver.
func ObserverFromQuery(r *http.Request) (transform.Observer, error) {
	q := r.URL.Query()

	lat, err := requiredFloat(q.Get("lat"), "lat")
	if err != nil {
		return transform.Observer{}, err
	}
	lon, err := requiredFloat(q.Get("lon"), "lon")
	if err != nil {
		return transform.Observer{}, err
	}

	elev := 0.0
	if s := q.Get("elev"); s != "" {
		elev, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return transform.Observer{}, fmt.Errorf("invalid elev %q", s)
		}
	}

	return transform.NewObserver(lat, lon, elev, q.Get("tz"))
}

// TimeFromQuery parses an RFC 3339 instant from the named parameter,
// defaulting to the current time.
func TimeFromQuery(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want RFC 3339", name, s)
	}
	return t.UTC(), nil
}

// FloatFromQuery parses an optional float parameter with a default.
func FloatFromQuery(r *http.Request, name string, def float64) (float64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

// IntFromQuery parses an optional integer parameter with a default.
func IntFromQuery(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}

func requiredFloat(s, name string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing required parameter %q", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, nil
}
