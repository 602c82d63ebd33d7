// README: Ride lifecycle events for the excluded collaborators (chat membership, notifications).
package events

import (
	"context"
	"time"

	"ridebud/internal/types"
)

type Type string

const (
	RideOffered      Type = "ride.offered"
	RideJoined       Type = "ride.joined"
	RideLeft         Type = "ride.left"
	RideReset        Type = "ride.reset"
	RideCompleted    Type = "ride.completed"
	JourneyCancelled Type = "journey.cancelled"
)

type Event struct {
	Type      Type       `json:"type"`
	RideID    types.ID   `json:"ride_id,omitempty"`
	JourneyID types.ID   `json:"journey_id,omitempty"`
	RiderID   types.ID   `json:"rider_id,omitempty"`
	Affected  []types.ID `json:"affected_journey_ids,omitempty"`
	At        time.Time  `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
