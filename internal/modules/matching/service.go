// README: Ride matcher: finds the best open ride for a journey and prices it.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ridebud/internal/config"
	"ridebud/internal/maps"
	"ridebud/internal/modules/carpool"
	"ridebud/internal/modules/location"
	"ridebud/internal/modules/pricing"
	"ridebud/internal/observability"
	"ridebud/internal/types"
)

// RideFinder returns rides open for matching whose given end lies within
// radiusM of p. A nil window lists every joinable ride regardless of time.
type RideFinder interface {
	OpenRidesNear(ctx context.Context, end Endpoint, p types.Point, radiusM float64, w *carpool.Window) ([]*carpool.Ride, error)
}

type Service struct {
	finder  RideFinder
	pricing *pricing.Service
	cfg     config.MatchingConfig
	log     logrus.FieldLogger
	tracer  trace.Tracer
}

func NewService(finder RideFinder, pricing *pricing.Service, cfg config.MatchingConfig, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = 60
	}
	if cfg.BrowseRadiusKm <= 0 {
		cfg.BrowseRadiusKm = location.BrowseRadiusMeters / 1000
	}
	return &Service{
		finder:  finder,
		pricing: pricing,
		cfg:     cfg,
		log:     log.WithField("module", "matching"),
		tracer:  otel.Tracer("ridebud/matching"),
	}
}

// FindBalancedRide returns the open ride that best serves req, or nil when
// no ride departs near the journey's endpoints inside its time window.
func (s *Service) FindBalancedRide(ctx context.Context, req Request) (*Candidate, error) {
	ctx, span := s.tracer.Start(ctx, "matching.FindBalancedRide")
	defer span.End()
	start := time.Now()
	defer func() { observability.MatchLatency.Observe(time.Since(start).Seconds()) }()

	if !req.complete() {
		observability.MatchesTotal.WithLabelValues("invalid").Inc()
		return nil, ErrMissingData
	}

	w := carpool.WindowAround(req.PreferredAt, s.cfg.Window())
	nearPickup, err := s.finder.OpenRidesNear(ctx, EndpointPickup, *req.Origin, location.ProximityMeters, &w)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("pickup candidates: %w", err))
	}
	nearDropoff, err := s.finder.OpenRidesNear(ctx, EndpointDropoff, *req.Destination, location.ProximityMeters, &w)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("dropoff candidates: %w", err))
	}

	pool := mergeCandidates(req.RiderID, nearPickup, nearDropoff)
	span.SetAttributes(attribute.Int("matching.candidates", len(pool)))
	if len(pool) == 0 {
		observability.MatchesTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}

	ranked := Rank(pool, *req.Origin, *req.Destination)
	best := ranked[0]
	best.Ride = best.Ride.Clone()
	best.EstimatedPrice = s.priceFor(best.Ride, req)
	best.PassengerCount = req.PassengerCount

	observability.MatchesTotal.WithLabelValues("found").Inc()
	s.log.WithFields(logrus.Fields{
		"journey_id":  req.JourneyID,
		"ride_id":     best.Ride.ID,
		"candidates":  len(pool),
		"secondary_m": best.SecondaryDistanceMeters,
		"price":       best.EstimatedPrice,
	}).Info("ride matched")
	return &best, nil
}

// Browse lists joinable rides whose pickup is inside the marketplace radius
// around p, nearest first.
func (s *Service) Browse(ctx context.Context, p types.Point) ([]*carpool.Ride, error) {
	ctx, span := s.tracer.Start(ctx, "matching.Browse")
	defer span.End()

	rides, err := s.finder.OpenRidesNear(ctx, EndpointPickup, p, s.cfg.BrowseRadiusKm*1000, nil)
	if err != nil {
		return nil, s.fail(span, err)
	}
	location.SortByDistance(rides, func(r *carpool.Ride) float64 {
		if r.Pickup == nil {
			return math.Inf(1)
		}
		return location.DistanceMeters(*r.Pickup, p)
	})
	return rides, nil
}

// Rank scores every ride by how far its other end misses the journey and
// sorts ascending. Equal scores are ordered by ride id.
func Rank(rides []*carpool.Ride, origin, destination types.Point) []Candidate {
	out := make([]Candidate, 0, len(rides))
	for _, r := range rides {
		out = append(out, score(r, origin, destination))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SecondaryDistanceMeters != b.SecondaryDistanceMeters {
			return a.SecondaryDistanceMeters < b.SecondaryDistanceMeters
		}
		return a.Ride.ID < b.Ride.ID
	})
	return out
}

func score(r *carpool.Ride, origin, destination types.Point) Candidate {
	c := Candidate{Ride: r, SecondaryDistanceMeters: math.Inf(1)}
	c.PickupClose = r.Pickup != nil && location.IsNearby(*r.Pickup, origin)
	c.DropoffClose = r.Dropoff != nil && location.IsNearby(*r.Dropoff, destination)
	switch {
	case c.PickupClose && r.Dropoff != nil:
		c.SecondaryDistanceMeters = location.DistanceMeters(*r.Dropoff, destination)
	case c.DropoffClose && r.Pickup != nil:
		c.SecondaryDistanceMeters = location.DistanceMeters(*r.Pickup, origin)
	}
	return c
}

// mergeCandidates unions the pickup and dropoff hits by ride id, keeping
// first-seen order and skipping rides the requester already rides in.
func mergeCandidates(riderID types.ID, sets ...[]*carpool.Ride) []*carpool.Ride {
	seen := make(map[types.ID]bool)
	var out []*carpool.Ride
	for _, set := range sets {
		for _, r := range set {
			if r == nil || seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			if riderID != "" && r.HasRider(riderID) {
				continue
			}
			out = append(out, r)
		}
	}
	return out
}

// priceFor prices the ride as a taxi trip at the journey's hour. Airport
// trips are not detected.
func (s *Service) priceFor(r *carpool.Ride, req Request) float64 {
	km, err := maps.ParseDistance(r.DistanceText)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"ride_id":       r.ID,
			"distance_text": r.DistanceText,
		}).WithError(err).Warn("ride distance unreadable, pricing as 0 km")
		km = 0
	}
	return s.pricing.Estimate(pricing.ModeTaxi, km, pricing.OptionsAt(req.PreferredAt, s.cfg.Location, false))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	observability.MatchesTotal.WithLabelValues("error").Inc()
	return err
}
