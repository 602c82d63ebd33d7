// README: Fare calculator for taxi/carpool and bus/train journeys.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridebud/internal/observability"
	"ridebud/internal/types"
)

// Fare computes the price of a trip. The result is rounded half-up at the cent.
func Fare(mode Mode, distanceKm float64, opts Options) (float64, error) {
	res, err := Calculate(FareRequest{Mode: mode, DistanceKm: distanceKm, Options: opts})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// Calculate computes a fare together with its breakdown.
func Calculate(req FareRequest) (FareResult, error) {
	if req.DistanceKm < 0 || math.IsNaN(req.DistanceKm) || math.IsInf(req.DistanceKm, 0) {
		return FareResult{}, ErrNegativeDistance
	}
	switch req.Mode {
	case ModeTaxi, ModeCarpool:
		return taxiFare(req.DistanceKm, req.Options), nil
	case ModeBusTrain:
		return busTrainFare(req.DistanceKm), nil
	default:
		return FareResult{}, ErrUnknownMode
	}
}

// IsNight reports whether hour falls in the night tariff window.
func IsNight(hour int) bool {
	h := ((hour % 24) + 24) % 24
	return h >= NightFromHr && h < NightUntilHr
}

func taxiFare(distanceKm float64, opts Options) FareResult {
	tariff := DayTariff
	night := IsNight(opts.Hour)
	if night {
		tariff = NightTariff
	}

	d := decimal.NewFromFloat(distanceKm)
	brk := decimal.NewFromFloat(TierBreakKm)
	tier1Km := decimal.Min(d, brk)
	tier2Km := decimal.Max(d.Sub(brk), decimal.Zero)

	base := decimal.NewFromFloat(tariff.BaseFare)
	tier1 := tier1Km.Mul(decimal.NewFromFloat(tariff.Tier1))
	tier2 := tier2Km.Mul(decimal.NewFromFloat(tariff.Tier2))
	total := base.Add(tier1).Add(tier2)

	airport := decimal.Zero
	if opts.IsAirport {
		airport = decimal.NewFromFloat(AirportFee)
		total = total.Add(airport)
	}

	return FareResult{
		Total: total.Round(2).InexactFloat64(),
		Night: night,
		Breakdown: map[string]float64{
			"base":    base.InexactFloat64(),
			"tier1":   tier1.Round(2).InexactFloat64(),
			"tier2":   tier2.Round(2).InexactFloat64(),
			"airport": airport.InexactFloat64(),
		},
	}
}

func busTrainFare(distanceKm float64) FareResult {
	d := decimal.Min(decimal.NewFromFloat(distanceKm), decimal.NewFromFloat(BusTrainCapKm))
	minFare := decimal.NewFromFloat(BusTrainMinFare)
	span := decimal.NewFromFloat(BusTrainMaxFare).Sub(minFare)
	variable := d.Mul(span).Div(decimal.NewFromFloat(BusTrainCapKm))
	total := minFare.Add(variable)

	return FareResult{
		Total: total.Round(2).InexactFloat64(),
		Breakdown: map[string]float64{
			"base":     minFare.InexactFloat64(),
			"distance": variable.Round(2).InexactFloat64(),
		},
	}
}

// Service is the logging front of the calculator: invalid input is reported
// as a warning and priced at 0 instead of failing the caller.
type Service struct {
	log logrus.FieldLogger
}

func NewService(log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{log: log}
}

func (s *Service) Estimate(mode Mode, distanceKm float64, opts Options) float64 {
	res := s.EstimateDetailed(FareRequest{Mode: mode, DistanceKm: distanceKm, Options: opts})
	return res.Total
}

func (s *Service) EstimateDetailed(req FareRequest) FareResult {
	label := string(req.Mode)
	switch req.Mode {
	case ModeTaxi, ModeCarpool, ModeBusTrain:
	default:
		label = "unknown"
	}
	observability.FareEstimatesTotal.WithLabelValues(label).Inc()
	res, err := Calculate(req)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"mode":        req.Mode,
			"distance_km": req.DistanceKm,
		}).WithError(err).Warn("fare estimate coerced to 0")
		return FareResult{}
	}
	return res
}

// PerPassenger splits a ride price evenly, rounded at the cent. It is 0 when
// passengers is not positive.
func PerPassenger(total float64, passengers int) float64 {
	return types.Split(total, passengers)
}
