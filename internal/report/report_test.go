package report

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/visibility"
)

// ISS element set, epoch 2025-02-14T04:19:40Z.
var issTLE = tle.TLEEntry{
	NORADID: 25544,
	Name:    "ISS (ZARYA)",
	Epoch:   time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC),
	Line1:   "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996",
	Line2:   "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057",
}

func nycObserver(t *testing.T) transform.Observer {
	t.Helper()
	obs, err := transform.NewObserver(40.7128, -74.0060, 10, "America/New_York")
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	return obs
}

func TestCompute_FullReport(t *testing.T) {
	obs := nycObserver(t)
	req := Request{
		Observer: obs,
		At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
	}

	rep, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	all := ephemeris.AllBodies()
	if len(rep.Bodies) != len(all) {
		t.Fatalf("got %d body entries, want %d", len(rep.Bodies), len(all))
	}
	for i, br := range rep.Bodies {
		if br.Body != all[i].String() {
			t.Errorf("entry %d: body %q, want %q (request order preserved)", i, br.Body, all[i].String())
		}
		if br.Error != "" {
			t.Errorf("%s: unexpected error %q", br.Body, br.Error)
			continue
		}
		if br.Confidence != "high" {
			t.Errorf("%s: confidence %q, want high in 2024", br.Body, br.Confidence)
		}
		// At 40.7 N no solar-system body is circumpolar.
		if br.Times.Status != visibility.StatusEvents {
			t.Errorf("%s: status %q, want %q", br.Body, br.Times.Status, visibility.StatusEvents)
		}
		t.Logf("%-8s alt %+7.2f az %6.2f mag %v events %d",
			br.Body, br.Horizontal.AltDeg, br.Horizontal.AzDeg, br.Magnitude, len(br.Times.Events))
	}

	sun := rep.Bodies[0]
	if sun.Body != "Sun" {
		t.Fatalf("first entry is %q, want Sun", sun.Body)
	}
	if len(sun.Times.Events) == 0 {
		t.Error("sun has no events on a solstice day")
	}

	if rep.SunTimes.Status != visibility.StatusEvents {
		t.Errorf("sun times status %q, want %q", rep.SunTimes.Status, visibility.StatusEvents)
	}
	if rep.SunTimes.Sunrise == nil || rep.SunTimes.Sunset == nil {
		t.Error("sun times missing sunrise or sunset")
	}
	if rep.MoonPhase.Name == "" {
		t.Error("moon phase name empty")
	}
	if rep.MoonPhase.Illumination < 0 || rep.MoonPhase.Illumination > 1 {
		t.Errorf("moon illumination %f outside [0, 1]", rep.MoonPhase.Illumination)
	}
	// Late June sits between the spring and summer shower seasons.
	if len(rep.Meteors) != 0 {
		t.Errorf("got %d active showers on June 21, want none", len(rep.Meteors))
	}
	if rep.Passes != nil {
		t.Error("passes present without element sets")
	}
}

func TestCompute_Idempotent(t *testing.T) {
	obs := nycObserver(t)
	req := Request{
		Observer: obs,
		At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
		Elements: []tle.TLEEntry{},
	}

	r1, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("first Compute: %v", err)
	}
	r2, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("second Compute: %v", err)
	}
	if !reflect.DeepEqual(r1, r2) {
		t.Error("identical requests produced different reports")
	}
}

func TestCompute_BodySubset(t *testing.T) {
	obs := nycObserver(t)
	req := Request{
		Observer: obs,
		At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
		Bodies:   []ephemeris.Body{ephemeris.Jupiter, ephemeris.Moon},
	}

	rep, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(rep.Bodies) != 2 {
		t.Fatalf("got %d entries, want 2", len(rep.Bodies))
	}
	if rep.Bodies[0].Body != "Jupiter" || rep.Bodies[1].Body != "Moon" {
		t.Errorf("got order [%s, %s], want [Jupiter, Moon]", rep.Bodies[0].Body, rep.Bodies[1].Body)
	}
	if rep.Bodies[0].Magnitude == nil {
		t.Error("Jupiter magnitude missing")
	}
	if rep.Bodies[1].Magnitude != nil {
		t.Error("Moon carries a magnitude; its brightness is phase-dominated")
	}
}

func TestCompute_WithPasses(t *testing.T) {
	obs := nycObserver(t)
	req := Request{
		Observer:        obs,
		At:              time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonDays:     1,
		MinElevationDeg: 0,
		Elements:        []tle.TLEEntry{issTLE},
	}

	rep, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(rep.Passes) != 1 {
		t.Fatalf("got %d satellite results, want 1", len(rep.Passes))
	}
	sat := rep.Passes[0]
	if sat.Error != "" {
		t.Fatalf("pass prediction failed: %s", sat.Error)
	}
	if sat.NORADID != 25544 {
		t.Errorf("NORAD ID %d, want 25544", sat.NORADID)
	}
	if len(sat.Passes) == 0 {
		t.Fatal("no ISS passes above 0 degrees in 24 h from New York")
	}
	t.Logf("%d ISS passes in 24 h", len(sat.Passes))
}

func TestCompute_StaleElementsIsolated(t *testing.T) {
	obs := nycObserver(t)
	req := Request{
		Observer: obs,
		// 30 days past the element epoch.
		At:       time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC),
		Elements: []tle.TLEEntry{issTLE},
	}

	rep, err := Compute(context.Background(), req)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for _, br := range rep.Bodies {
		if br.Error != "" {
			t.Errorf("%s: body computation affected by stale elements: %s", br.Body, br.Error)
		}
	}
	if len(rep.Passes) != 1 {
		t.Fatalf("got %d satellite results, want 1", len(rep.Passes))
	}
	sat := rep.Passes[0]
	if !strings.Contains(sat.Error, "stale") {
		t.Errorf("satellite error %q does not mention stale elements", sat.Error)
	}
	if len(sat.Passes) != 0 {
		t.Errorf("got %d passes from stale elements, want 0", len(sat.Passes))
	}
}

func TestCompute_InvalidObserver(t *testing.T) {
	tests := []struct {
		name string
		obs  transform.Observer
	}{
		{"latitude out of range", transform.Observer{LatDeg: 95, TZ: time.UTC}},
		{"zero value", transform.Observer{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(context.Background(), Request{
				Observer: tt.obs,
				At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
			})
			if !errors.Is(err, transform.ErrInvalidObserver) {
				t.Errorf("got %v, want ErrInvalidObserver", err)
			}
		})
	}
}

func TestCompute_ZeroInstant(t *testing.T) {
	obs := nycObserver(t)
	if _, err := Compute(context.Background(), Request{Observer: obs}); err == nil {
		t.Error("zero query instant accepted")
	}
}

func TestCompute_Cancelled(t *testing.T) {
	obs := nycObserver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Compute(ctx, Request{
		Observer: obs,
		At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	// Entries either finished before observing the cancellation or were
	// marked; none may be left empty.
	for i, br := range rep.Bodies {
		if br.Body == "" {
			t.Errorf("entry %d has no body name", i)
		}
		if br.Error != "" && br.Error != "cancelled" {
			t.Errorf("%s: unexpected error %q", br.Body, br.Error)
		}
	}
}

func TestVisibilityReport_JSONShape(t *testing.T) {
	obs := nycObserver(t)
	rep, err := Compute(context.Background(), Request{
		Observer: obs,
		At:       time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	raw, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, key := range []string{`"observer"`, `"at"`, `"bodies"`, `"sun_times"`, `"moon_phase"`} {
		if !strings.Contains(body, key) {
			t.Errorf("marshalled report missing %s", key)
		}
	}
	// Empty sections are omitted, not serialized as null.
	for _, key := range []string{`"passes"`, `"meteor_showers"`} {
		if strings.Contains(body, key) {
			t.Errorf("marshalled report contains %s despite having none", key)
		}
	}
	if strings.Contains(body, `"error"`) {
		t.Error("marshalled report contains error fields for successful bodies")
	}
}
