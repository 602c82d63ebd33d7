// README: Navigation/cost records kept per journey (and per offered ride) for the UI layer.
package navigation

import (
	"errors"
	"time"

	"ridebud/internal/types"
)

var ErrNotFound = errors.New("navigation record not found")

// Record is keyed by a journey id, or by a ride id for the ride's own route.
type Record struct {
	ID               string    `bson:"_id" json:"id"`
	RideID           string    `bson:"ride_id,omitempty" json:"ride_id,omitempty"`
	CostPerPassenger float64   `bson:"cost_per_passenger" json:"cost_per_passenger"`
	Currency         string    `bson:"currency,omitempty" json:"currency,omitempty"`
	DurationText     string    `bson:"duration_text,omitempty" json:"duration_text,omitempty"`
	DistanceText     string    `bson:"distance_text,omitempty" json:"distance_text,omitempty"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// Cost is one journey's share of a ride.
type Cost struct {
	JourneyID    types.ID `json:"journey_id"`
	RideID       types.ID `json:"ride_id"`
	PerPassenger float64  `json:"per_passenger"`
}
