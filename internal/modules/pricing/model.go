// README: Fare modes, tariff constants and request/result shapes.
package pricing

import (
	"errors"
	"time"
)

type Mode string

const (
	ModeTaxi     Mode = "taxi"
	ModeCarpool  Mode = "carpool"
	ModeBusTrain Mode = "bus/train"
)

var (
	ErrNegativeDistance = errors.New("distance must be finite and not negative")
	ErrUnknownMode      = errors.New("unknown transport mode")
)

// Tariff is a taxi rate card. Tier1 applies to the first TierBreakKm.
type Tariff struct {
	BaseFare float64
	Tier1    float64
	Tier2    float64
}

const (
	TierBreakKm  = 10.0
	AirportFee   = 5.00
	NightFromHr  = 0
	NightUntilHr = 6

	BusTrainMinFare = 1.19
	BusTrainMaxFare = 2.50
	BusTrainCapKm   = 50.0
)

var (
	DayTariff   = Tariff{BaseFare: 2.30, Tier1: 0.65, Tier2: 0.74}
	NightTariff = Tariff{BaseFare: 2.88, Tier1: 0.81, Tier2: 0.84}
)

// Options carries the time-of-day and airport inputs of a fare.
type Options struct {
	Hour      int
	IsAirport bool
}

// OptionsAt derives the hour of t in loc. A nil loc means UTC.
func OptionsAt(t time.Time, loc *time.Location, isAirport bool) Options {
	if loc == nil {
		loc = time.UTC
	}
	return Options{Hour: t.In(loc).Hour(), IsAirport: isAirport}
}

type FareRequest struct {
	Mode       Mode
	DistanceKm float64
	Options
}

type FareResult struct {
	Total     float64
	Night     bool
	Breakdown map[string]float64
}
