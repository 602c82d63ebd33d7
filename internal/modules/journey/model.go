// README: Journey aggregate, status definitions and the journey/ride status derivation.
package journey

import (
	"time"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

type Status string

const (
	StatusNone             Status = "none"
	StatusPendingSelection Status = "pending-selection"
	StatusNoMatch          Status = "no-match"
	StatusMatched          Status = "matched"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const (
	MinPassengers = 1
	MaxPassengers = 2
)

type Journey struct {
	ID              types.ID     `json:"id"`
	RiderID         types.ID     `json:"rider_id"`
	OriginText      string       `json:"origin_text"`
	DestinationText string       `json:"destination_text"`
	Origin          *types.Point `json:"origin,omitempty"`
	Destination     *types.Point `json:"destination,omitempty"`
	PreferredAt     time.Time    `json:"preferred_at"`
	PassengerCount  int          `json:"passenger_count"`
	Status          Status       `json:"status"`
	MatchedRideID   *types.ID    `json:"matched_ride_id,omitempty"`
	WasResetByOwner bool         `json:"was_reset_by_owner"`
	Version         int          `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (j *Journey) Clone() *Journey {
	if j == nil {
		return nil
	}
	c := *j
	if j.Origin != nil {
		p := *j.Origin
		c.Origin = &p
	}
	if j.Destination != nil {
		p := *j.Destination
		c.Destination = &p
	}
	if j.MatchedRideID != nil {
		id := *j.MatchedRideID
		c.MatchedRideID = &id
	}
	return &c
}

type Event struct {
	ID         int64
	JourneyID  types.ID
	FromStatus Status
	ToStatus   Status
	Actor      string
	CreatedAt  time.Time
}

const (
	ActorRider  = "rider"
	ActorOwner  = "owner"
	ActorSystem = "system"
)

// AllowedTransitions represents the journey state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusNone:             {StatusPendingSelection},
	StatusPendingSelection: {StatusMatched, StatusNoMatch, StatusCompleted, StatusCancelled},
	StatusNoMatch:          {StatusMatched, StatusPendingSelection, StatusCompleted, StatusCancelled},
	StatusMatched:          {StatusPendingSelection, StatusNoMatch, StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// DeriveStatus computes the status a journey must have given the ride it
// references. ride is nil when the reference is absent or dangling.
// Terminal statuses are never overwritten.
func DeriveStatus(j *Journey, ride *carpool.Ride) Status {
	if j.Status.Terminal() {
		return j.Status
	}
	if j.MatchedRideID == nil {
		return StatusPendingSelection
	}
	if ride == nil || !ride.Shared() {
		return StatusNoMatch
	}
	return StatusMatched
}
