package journey

import (
	"testing"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusNone, StatusPendingSelection, true},
		{StatusNone, StatusMatched, false},
		{StatusPendingSelection, StatusMatched, true},
		{StatusPendingSelection, StatusNoMatch, true},
		{StatusPendingSelection, StatusCancelled, true},
		{StatusNoMatch, StatusMatched, true},
		{StatusNoMatch, StatusPendingSelection, true},
		{StatusMatched, StatusNoMatch, true},
		{StatusMatched, StatusCompleted, true},
		{StatusCompleted, StatusPendingSelection, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusMatched, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	rideID := types.ID("r1")
	solo := &carpool.Ride{ID: rideID, RiderIDs: []types.ID{"o"}}
	shared := &carpool.Ride{ID: rideID, RiderIDs: []types.ID{"o", "a"}}

	cases := []struct {
		name string
		j    *Journey
		ride *carpool.Ride
		want Status
	}{
		{"no reference", &Journey{Status: StatusMatched}, nil, StatusPendingSelection},
		{"dangling reference", &Journey{Status: StatusMatched, MatchedRideID: &rideID}, nil, StatusNoMatch},
		{"single rider", &Journey{Status: StatusPendingSelection, MatchedRideID: &rideID}, solo, StatusNoMatch},
		{"shared ride", &Journey{Status: StatusNoMatch, MatchedRideID: &rideID}, shared, StatusMatched},
		{"completed is sticky", &Journey{Status: StatusCompleted, MatchedRideID: &rideID}, solo, StatusCompleted},
		{"cancelled is sticky", &Journey{Status: StatusCancelled}, nil, StatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.j, tc.ride); got != tc.want {
				t.Fatalf("DeriveStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestJourneyClone_IsDeep(t *testing.T) {
	id := types.ID("r1")
	j := &Journey{Origin: &types.Point{Lng: 1, Lat: 2}, MatchedRideID: &id}
	c := j.Clone()
	c.Origin.Lat = 9
	*c.MatchedRideID = "r2"
	if j.Origin.Lat != 2 || *j.MatchedRideID != "r1" {
		t.Fatalf("clone shares pointers with original: %+v", j)
	}
}
