// README: Matcher unit tests over an in-memory ride finder.
package matching

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"ridebud/internal/config"
	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/location"
	"ridebud/internal/modules/pricing"
	"ridebud/internal/types"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const metersPerDegreeLat = 6371000.0 * math.Pi / 180

var (
	origin      = types.Point{Lng: -6.2603, Lat: 53.3400}
	destination = types.Point{Lng: -6.1500, Lat: 53.3400}
	noon        = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

// north returns p moved m metres along its meridian.
func north(p types.Point, m float64) *types.Point {
	return &types.Point{Lng: p.Lng, Lat: p.Lat + m/metersPerDegreeLat}
}

func openRide(id string, pickup, dropoff *types.Point, start time.Time) *carpool.Ride {
	return &carpool.Ride{
		ID:             types.ID(id),
		OwnerID:        types.ID("owner-" + id),
		Pickup:         pickup,
		Dropoff:        dropoff,
		StartTime:      start,
		Date:           carpool.DayOf(start),
		RiderIDs:       []types.ID{types.ID("owner-" + id)},
		Status:         carpool.StatusNoMatch,
		DistanceText:   "10 km",
		PassengerCount: 1,
	}
}

// fakeFinder applies the same filters as the production finder to a slice.
type fakeFinder struct {
	mu    sync.Mutex
	rides []*carpool.Ride
	calls []Endpoint
	err   error
}

func (f *fakeFinder) OpenRidesNear(_ context.Context, end Endpoint, p types.Point, radiusM float64, w *carpool.Window) ([]*carpool.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, end)
	if f.err != nil {
		return nil, f.err
	}
	var out []*carpool.Ride
	for _, r := range f.rides {
		pt := r.Pickup
		if end == EndpointDropoff {
			pt = r.Dropoff
		}
		if pt == nil || location.DistanceMeters(*pt, p) > radiusM {
			continue
		}
		if w != nil && (r.Status != carpool.StatusNoMatch || !w.Contains(r.Date, r.StartTime)) {
			continue
		}
		if w == nil && r.Terminal() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func newTestService(f RideFinder) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	cfg := config.MatchingConfig{WindowMinutes: 60, BrowseRadiusKm: 10, Location: time.UTC}
	return NewService(f, pricing.NewService(log), cfg, log), &buf
}

func request(at time.Time) Request {
	o, d := origin, destination
	return Request{JourneyID: "j1", RiderID: "rider", Origin: &o, Destination: &d, PreferredAt: at, PassengerCount: 1}
}

// ---------------------------------------------------------------------------
// FindBalancedRide
// ---------------------------------------------------------------------------

func TestFindBalancedRide_MissingData(t *testing.T) {
	svc, _ := newTestService(&fakeFinder{})
	full := request(noon)

	cases := map[string]Request{
		"no origin":      {Destination: full.Destination, PreferredAt: noon},
		"no destination": {Origin: full.Origin, PreferredAt: noon},
		"no time":        {Origin: full.Origin, Destination: full.Destination},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.FindBalancedRide(context.Background(), req); !errors.Is(err, ErrMissingData) {
				t.Fatalf("err = %v, want ErrMissingData", err)
			}
		})
	}
}

func TestFindBalancedRide_EmptyIsNil(t *testing.T) {
	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("next-day", north(origin, 100), north(destination, 100), noon.Add(24*time.Hour)),
		openRide("too-late", north(origin, 100), north(destination, 100), noon.Add(2*time.Hour)),
		openRide("far", north(origin, 5000), north(destination, 5000), noon),
	}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil candidate, got %s", got.Ride.ID)
	}
	if len(f.calls) != 2 || f.calls[0] != EndpointPickup || f.calls[1] != EndpointDropoff {
		t.Fatalf("finder calls = %v, want pickup then dropoff", f.calls)
	}
}

func TestFindBalancedRide_PrefersSmallerMiss(t *testing.T) {
	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("r-2000", north(origin, 100), north(destination, 2000), noon),
		openRide("r-200", north(origin, 100), north(destination, 200), noon.Add(30*time.Minute)),
	}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("FindBalancedRide: %v", err)
	}
	if got == nil || got.Ride.ID != "r-200" {
		t.Fatalf("got %+v, want r-200", got)
	}
	if math.Abs(got.SecondaryDistanceMeters-200) > 0.5 {
		t.Fatalf("secondary = %v, want ~200", got.SecondaryDistanceMeters)
	}
	if !got.PickupClose || !got.DropoffClose {
		t.Fatalf("closeness flags = %v/%v, want both true", got.PickupClose, got.DropoffClose)
	}
	if got.PassengerCount != 1 {
		t.Fatalf("passenger count = %d", got.PassengerCount)
	}
}

func TestFindBalancedRide_DropoffOnlyMatchRanksByPickupMiss(t *testing.T) {
	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("pickup-miss-3000", north(origin, 3000), north(destination, 50), noon),
		openRide("pickup-miss-1800", north(origin, 1800), north(destination, 900), noon),
	}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("FindBalancedRide: %v", err)
	}
	if got == nil || got.Ride.ID != "pickup-miss-1800" {
		t.Fatalf("got %+v, want pickup-miss-1800", got)
	}
	if got.PickupClose || !got.DropoffClose {
		t.Fatalf("closeness flags = %v/%v", got.PickupClose, got.DropoffClose)
	}
}

func TestFindBalancedRide_UnrankableStillReturned(t *testing.T) {
	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("no-dropoff", north(origin, 100), nil, noon),
	}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("FindBalancedRide: %v", err)
	}
	if got == nil || got.Ride.ID != "no-dropoff" {
		t.Fatalf("got %+v, want no-dropoff", got)
	}
	if !math.IsInf(got.SecondaryDistanceMeters, 1) {
		t.Fatalf("secondary = %v, want +Inf", got.SecondaryDistanceMeters)
	}
}

func TestFindBalancedRide_TieBreakByRideID(t *testing.T) {
	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("ride-b", north(origin, 10), north(destination, 300), noon),
		openRide("ride-a", north(origin, 10), north(destination, 300), noon),
	}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("FindBalancedRide: %v", err)
	}
	if got.Ride.ID != "ride-a" {
		t.Fatalf("tie broken to %s, want ride-a", got.Ride.ID)
	}
}

func TestFindBalancedRide_SkipsRequesterOwnRide(t *testing.T) {
	own := openRide("own", north(origin, 0), north(destination, 0), noon)
	own.RiderIDs = []types.ID{"rider"}
	f := &fakeFinder{rides: []*carpool.Ride{own}}
	svc, _ := newTestService(f)

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v; want nil, nil", got, err)
	}
}

func TestFindBalancedRide_PricesAtJourneyHour(t *testing.T) {
	early := time.Date(2026, 6, 1, 5, 30, 0, 0, time.UTC)
	cases := []struct {
		name      string
		at        time.Time
		rideStart time.Time
		distance  string
		wantPrice float64
		wantWarn  bool
	}{
		// journey hour decides the tariff even though the ride leaves at 06:15
		{"night journey, day ride", early, early.Add(45 * time.Minute), "10 km", 10.98, false},
		{"day journey", noon, noon, "10 km", 8.80, false},
		{"metres", noon, noon, "500 m", 2.63, false},
		{"unreadable distance", noon, noon, "ten km", 2.30, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := openRide("r1", north(origin, 100), north(destination, 100), tc.rideStart)
			r.DistanceText = tc.distance
			svc, logs := newTestService(&fakeFinder{rides: []*carpool.Ride{r}})

			got, err := svc.FindBalancedRide(context.Background(), request(tc.at))
			if err != nil {
				t.Fatalf("FindBalancedRide: %v", err)
			}
			if got.EstimatedPrice != tc.wantPrice {
				t.Errorf("price = %v, want %v", got.EstimatedPrice, tc.wantPrice)
			}
			if warned := strings.Contains(logs.String(), "level=warning"); warned != tc.wantWarn {
				t.Errorf("warning logged = %v, want %v", warned, tc.wantWarn)
			}
		})
	}
}

func TestFindBalancedRide_ReturnsSnapshot(t *testing.T) {
	r := openRide("r1", north(origin, 100), north(destination, 100), noon)
	svc, _ := newTestService(&fakeFinder{rides: []*carpool.Ride{r}})

	got, err := svc.FindBalancedRide(context.Background(), request(noon))
	if err != nil {
		t.Fatalf("FindBalancedRide: %v", err)
	}
	got.Ride.RiderIDs[0] = "tampered"
	if r.RiderIDs[0] == "tampered" {
		t.Fatal("candidate ride shares memory with the stored ride")
	}
}

func TestFindBalancedRide_FinderError(t *testing.T) {
	boom := errors.New("redis down")
	svc, _ := newTestService(&fakeFinder{err: boom})
	if _, err := svc.FindBalancedRide(context.Background(), request(noon)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped finder error", err)
	}
}

// ---------------------------------------------------------------------------
// Pure helpers
// ---------------------------------------------------------------------------

func TestMergeCandidates_DedupKeepsOrder(t *testing.T) {
	a := openRide("a", nil, nil, noon)
	b := openRide("b", nil, nil, noon)
	c := openRide("c", nil, nil, noon)

	got := mergeCandidates("", []*carpool.Ride{b, a}, []*carpool.Ride{a, c, b})
	want := []types.ID{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestRank_InfinityLast(t *testing.T) {
	rides := []*carpool.Ride{
		openRide("inf", nil, nil, noon),
		openRide("close", north(origin, 0), north(destination, 20), noon),
		openRide("mid", north(origin, 0), north(destination, 900), noon),
	}
	got := Rank(rides, origin, destination)
	order := []types.ID{got[0].Ride.ID, got[1].Ride.ID, got[2].Ride.ID}
	if order[0] != "close" || order[1] != "mid" || order[2] != "inf" {
		t.Fatalf("order = %v", order)
	}
}

// ---------------------------------------------------------------------------
// Browse and Finder
// ---------------------------------------------------------------------------

func TestBrowse_NearestFirst(t *testing.T) {
	completed := openRide("done", north(origin, 50), nil, noon)
	completed.Status = carpool.StatusCompleted
	matched := openRide("matched", north(origin, 4000), nil, noon.Add(5*time.Hour))
	matched.Status = carpool.StatusMatched

	f := &fakeFinder{rides: []*carpool.Ride{
		openRide("far", north(origin, 9000), nil, noon),
		openRide("near", north(origin, 300), nil, noon.Add(-6*time.Hour)),
		openRide("outside", north(origin, 12000), nil, noon),
		completed,
		matched,
	}}
	svc, _ := newTestService(f)

	got, err := svc.Browse(context.Background(), origin)
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	var ids []types.ID
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "near" || ids[1] != "matched" || ids[2] != "far" {
		t.Fatalf("browse = %v, want [near matched far]", ids)
	}
}

type stubIndex struct {
	ids []types.ID
	err error
}

func (s stubIndex) Nearby(context.Context, Endpoint, types.Point, float64) ([]types.ID, error) {
	return s.ids, s.err
}

type stubLister struct {
	openCalls, statusCalls int
	statuses               []carpool.Status
}

func (s *stubLister) ListOpen(_ context.Context, ids []types.ID, _ carpool.Window) ([]*carpool.Ride, error) {
	s.openCalls++
	return []*carpool.Ride{{ID: ids[0]}}, nil
}

func (s *stubLister) ListByStatus(_ context.Context, ids []types.ID, statuses ...carpool.Status) ([]*carpool.Ride, error) {
	s.statusCalls++
	s.statuses = statuses
	return []*carpool.Ride{{ID: ids[0]}}, nil
}

func TestFinder_RoutesByWindow(t *testing.T) {
	ctx := context.Background()
	lister := &stubLister{}
	f := NewFinder(stubIndex{ids: []types.ID{"x"}}, lister)

	w := carpool.WindowAround(noon, time.Hour)
	if _, err := f.OpenRidesNear(ctx, EndpointPickup, origin, 1500, &w); err != nil {
		t.Fatal(err)
	}
	if _, err := f.OpenRidesNear(ctx, EndpointPickup, origin, 10000, nil); err != nil {
		t.Fatal(err)
	}
	if lister.openCalls != 1 || lister.statusCalls != 1 {
		t.Fatalf("calls open=%d status=%d", lister.openCalls, lister.statusCalls)
	}
	if len(lister.statuses) != 2 {
		t.Fatalf("browse statuses = %v", lister.statuses)
	}

	empty := NewFinder(stubIndex{}, lister)
	got, err := empty.OpenRidesNear(ctx, EndpointDropoff, origin, 1500, &w)
	if err != nil || got != nil {
		t.Fatalf("empty index: got %v, %v", got, err)
	}
	if lister.openCalls != 1 {
		t.Fatal("ride store must not be queried when the index has no hits")
	}
}
