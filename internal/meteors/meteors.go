// Package meteors carries a static catalog of the major annual meteor
// showers and reports which are active at a given instant, including
// how badly moonlight will wash them out.
package meteors

import (
	"sort"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/moonphase"
)

// Moon interference tiers, bucketed from the illuminated fraction.
const (
	InterferenceLow      = "low"
	InterferenceModerate = "moderate"
	InterferenceSevere   = "severe"
)

type monthDay struct {
	month time.Month
	day   int
}

// Shower is one catalog entry. Activity windows and peaks recur on the
// same calendar dates each year; drift between years is under a day
// and ignored.
type Shower struct {
	Name    string `json:"name"`
	Radiant string `json:"radiant"`
	// ZHR is the zenithal hourly rate at peak under ideal skies.
	ZHR int `json:"zhr"`

	start monthDay
	end   monthDay
	peak  monthDay
}

// Activity is a shower that is active at the queried instant.
type Activity struct {
	Name    string    `json:"name"`
	Radiant string    `json:"radiant"`
	ZHR     int       `json:"zhr"`
	Peak    time.Time `json:"peak"`
	// DaysToPeak is negative once the peak has passed.
	DaysToPeak       float64 `json:"days_to_peak"`
	MoonIllumination float64 `json:"moon_illumination"`
	MoonInterference string  `json:"moon_interference"`
}

// IMO working-list values for the eight strongest annual showers.
var catalog = []Shower{
	{
		Name: "Quadrantids", Radiant: "Bootes", ZHR: 120,
		start: monthDay{time.December, 28}, end: monthDay{time.January, 12}, peak: monthDay{time.January, 3},
	},
	{
		Name: "Lyrids", Radiant: "Lyra", ZHR: 18,
		start: monthDay{time.April, 14}, end: monthDay{time.April, 30}, peak: monthDay{time.April, 22},
	},
	{
		Name: "Eta Aquariids", Radiant: "Aquarius", ZHR: 50,
		start: monthDay{time.April, 19}, end: monthDay{time.May, 28}, peak: monthDay{time.May, 6},
	},
	{
		Name: "Delta Aquariids", Radiant: "Aquarius", ZHR: 25,
		start: monthDay{time.July, 12}, end: monthDay{time.August, 23}, peak: monthDay{time.July, 30},
	},
	{
		Name: "Perseids", Radiant: "Perseus", ZHR: 100,
		start: monthDay{time.July, 17}, end: monthDay{time.August, 24}, peak: monthDay{time.August, 13},
	},
	{
		Name: "Orionids", Radiant: "Orion", ZHR: 20,
		start: monthDay{time.October, 2}, end: monthDay{time.November, 7}, peak: monthDay{time.October, 21},
	},
	{
		Name: "Leonids", Radiant: "Leo", ZHR: 15,
		start: monthDay{time.November, 6}, end: monthDay{time.November, 30}, peak: monthDay{time.November, 17},
	},
	{
		Name: "Geminids", Radiant: "Gemini", ZHR: 120,
		start: monthDay{time.December, 4}, end: monthDay{time.December, 17}, peak: monthDay{time.December, 14},
	},
}

// Catalog returns the full shower list in calendar order.
func Catalog() []Shower {
	out := make([]Shower, len(catalog))
	copy(out, catalog)
	return out
}

// Active returns the showers whose activity window contains t, ordered
// by peak time. Moon interference is shared across entries since it
// depends only on the instant.
func Active(t time.Time) []Activity {
	illum := moonphase.Illumination(t)
	tier := interferenceFor(illum)

	var out []Activity
	for _, s := range catalog {
		peak, ok := s.activeAt(t)
		if !ok {
			continue
		}
		out = append(out, Activity{
			Name:             s.Name,
			Radiant:          s.Radiant,
			ZHR:              s.ZHR,
			Peak:             peak,
			DaysToPeak:       peak.Sub(t).Hours() / 24,
			MoonIllumination: illum,
			MoonInterference: tier,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peak.Before(out[j].Peak) })
	return out
}

// activeAt reports whether t falls inside the shower's window and, if
// so, resolves the peak to a concrete instant. Windows that span the
// year boundary (Quadrantids) are anchored to the start year, so both
// the current and previous year's instance must be checked.
func (s Shower) activeAt(t time.Time) (time.Time, bool) {
	for _, year := range []int{t.Year() - 1, t.Year()} {
		start, end, peak := s.instance(year)
		if !t.Before(start) && t.Before(end) {
			return peak, true
		}
	}
	return time.Time{}, false
}

// instance materializes the window starting in the given year. The end
// day is inclusive.
func (s Shower) instance(year int) (start, end, peak time.Time) {
	start = time.Date(year, s.start.month, s.start.day, 0, 0, 0, 0, time.UTC)

	endYear, peakYear := year, year
	if mdBefore(s.end, s.start) {
		endYear = year + 1
	}
	if mdBefore(s.peak, s.start) {
		peakYear = year + 1
	}
	end = time.Date(endYear, s.end.month, s.end.day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	peak = time.Date(peakYear, s.peak.month, s.peak.day, 0, 0, 0, 0, time.UTC)
	return start, end, peak
}

func mdBefore(a, b monthDay) bool {
	if a.month != b.month {
		return a.month < b.month
	}
	return a.day < b.day
}

func interferenceFor(illumination float64) string {
	switch {
	case illumination < 0.3:
		return InterferenceLow
	case illumination < 0.7:
		return InterferenceModerate
	default:
		return InterferenceSevere
	}
}
