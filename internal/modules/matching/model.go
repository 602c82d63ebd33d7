// README: Match requests, ranked candidates and matching errors.
package matching

import (
	"errors"
	"time"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

var ErrMissingData = errors.New("journey is missing coordinates or preferred time")

// Endpoint selects which end of a ride a proximity query looks at.
type Endpoint string

const (
	EndpointPickup  Endpoint = "pickup"
	EndpointDropoff Endpoint = "dropoff"
)

// Request is the journey data the matcher needs.
type Request struct {
	JourneyID      types.ID
	RiderID        types.ID
	Origin         *types.Point
	Destination    *types.Point
	PreferredAt    time.Time
	PassengerCount int
}

func (r Request) complete() bool {
	return r.Origin != nil && r.Destination != nil && !r.PreferredAt.IsZero()
}

// Candidate is a ranked ride. SecondaryDistanceMeters is +Inf when neither
// end of the ride is close to the journey.
type Candidate struct {
	Ride                    *carpool.Ride
	PickupClose             bool
	DropoffClose            bool
	SecondaryDistanceMeters float64
	EstimatedPrice          float64
	PassengerCount          int
}
