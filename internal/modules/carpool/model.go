// README: Carpool ride aggregate, statuses and membership helpers.
package carpool

import (
	"errors"
	"time"

	"ridebud/internal/types"
)

type Status string

const (
	StatusNoMatch   Status = "no-match"
	StatusMatched   Status = "matched"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var ErrNotFound = errors.New("ride not found")

// Ride is an offered trip that several journeys can share. OwnerID is set
// once at creation and never written again.
type Ride struct {
	ID             types.ID     `json:"id"`
	OwnerID        types.ID     `json:"owner_id"`
	PickupText     string       `json:"pickup_text"`
	DropoffText    string       `json:"dropoff_text"`
	Pickup         *types.Point `json:"pickup,omitempty"`
	Dropoff        *types.Point `json:"dropoff,omitempty"`
	StartTime      time.Time    `json:"start_time"`
	Date           time.Time    `json:"date"`
	RiderIDs       []types.ID   `json:"rider_ids"`
	Status         Status       `json:"status"`
	EstimatedPrice float64      `json:"estimated_price"`
	DurationText   string       `json:"duration_text"`
	DistanceText   string       `json:"distance_text"`
	PassengerCount int          `json:"passenger_count"`
	Version        int          `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Window bounds the rides a matcher may consider: the UTC calendar day and
// the departure interval around a preferred time.
type Window struct {
	DayStart time.Time
	DayEnd   time.Time
	From     time.Time
	To       time.Time
}

// WindowAround returns the day window containing at and the interval at±slack.
func WindowAround(at time.Time, slack time.Duration) Window {
	day := DayOf(at)
	return Window{
		DayStart: day,
		DayEnd:   day.Add(24 * time.Hour),
		From:     at.Add(-slack),
		To:       at.Add(slack),
	}
}

// Contains reports whether a ride departing at startTime on date falls in w.
func (w Window) Contains(date, startTime time.Time) bool {
	return !date.Before(w.DayStart) && date.Before(w.DayEnd) &&
		!startTime.Before(w.From) && !startTime.After(w.To)
}

// DayOf returns UTC midnight of the day containing t.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *Ride) HasRider(id types.ID) bool {
	for _, v := range r.RiderIDs {
		if v == id {
			return true
		}
	}
	return false
}

// AddRider appends id unless it is already a rider. It reports whether the set changed.
func (r *Ride) AddRider(id types.ID) bool {
	if r.HasRider(id) {
		return false
	}
	r.RiderIDs = append(r.RiderIDs, id)
	return true
}

// RemoveRider drops id, keeping the order of the remaining riders.
func (r *Ride) RemoveRider(id types.ID) bool {
	for i, v := range r.RiderIDs {
		if v == id {
			r.RiderIDs = append(r.RiderIDs[:i:i], r.RiderIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Shared reports whether more than one rider is on the ride.
func (r *Ride) Shared() bool {
	return len(r.RiderIDs) > 1
}

func (r *Ride) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusCancelled
}

// PerPassengerCost is the canonical share of EstimatedPrice.
func (r *Ride) PerPassengerCost() float64 {
	return types.Split(r.EstimatedPrice, r.PassengerCount)
}

// Clone returns a deep copy safe to hand to callers.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	c := *r
	c.RiderIDs = append([]types.ID(nil), r.RiderIDs...)
	if r.Pickup != nil {
		p := *r.Pickup
		c.Pickup = &p
	}
	if r.Dropoff != nil {
		p := *r.Dropoff
		c.Dropoff = &p
	}
	return &c
}
