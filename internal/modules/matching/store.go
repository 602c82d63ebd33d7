// README: Ride geo index backed by Redis GEO, plus the candidate finder that joins it with the ride store.
package matching

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ridebud/internal/modules/carpool"
	"ridebud/internal/types"
)

const (
	pickupGeoKey  = "carpool:rides:pickup"
	dropoffGeoKey = "carpool:rides:dropoff"
)

func geoKey(end Endpoint) string {
	if end == EndpointDropoff {
		return dropoffGeoKey
	}
	return pickupGeoKey
}

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// IndexRide stores both ends of r. An end without coordinates is removed
// from its index.
func (s *Store) IndexRide(ctx context.Context, r *carpool.Ride) error {
	pipe := s.redis.Pipeline()
	for _, end := range []struct {
		key string
		p   *types.Point
	}{{pickupGeoKey, r.Pickup}, {dropoffGeoKey, r.Dropoff}} {
		if end.p == nil {
			pipe.ZRem(ctx, end.key, string(r.ID))
			continue
		}
		pipe.GeoAdd(ctx, end.key, &redis.GeoLocation{
			Name:      string(r.ID),
			Longitude: end.p.Lng,
			Latitude:  end.p.Lat,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) RemoveRide(ctx context.Context, id types.ID) error {
	pipe := s.redis.Pipeline()
	pipe.ZRem(ctx, pickupGeoKey, string(id))
	pipe.ZRem(ctx, dropoffGeoKey, string(id))
	_, err := pipe.Exec(ctx)
	return err
}

// Nearby returns ride ids whose end lies within radiusM of p, nearest first.
func (s *Store) Nearby(ctx context.Context, end Endpoint, p types.Point, radiusM float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, geoKey(end), &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusM,
		RadiusUnit: "m",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

type GeoIndex interface {
	Nearby(ctx context.Context, end Endpoint, p types.Point, radiusM float64) ([]types.ID, error)
}

type RideLister interface {
	ListOpen(ctx context.Context, ids []types.ID, w carpool.Window) ([]*carpool.Ride, error)
	ListByStatus(ctx context.Context, ids []types.ID, statuses ...carpool.Status) ([]*carpool.Ride, error)
}

// Finder answers proximity queries from the geo index and filters the hits
// against the ride store, which stays the source of truth for status and time.
// Without a window it lists every joinable ride (marketplace browse).
type Finder struct {
	index GeoIndex
	rides RideLister
}

func NewFinder(index GeoIndex, rides RideLister) *Finder {
	return &Finder{index: index, rides: rides}
}

func (f *Finder) OpenRidesNear(ctx context.Context, end Endpoint, p types.Point, radiusM float64, w *carpool.Window) ([]*carpool.Ride, error) {
	ids, err := f.index.Nearby(ctx, end, p, radiusM)
	if err != nil {
		return nil, fmt.Errorf("geo search %s: %w", end, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if w == nil {
		return f.rides.ListByStatus(ctx, ids, carpool.StatusNoMatch, carpool.StatusMatched)
	}
	return f.rides.ListOpen(ctx, ids, *w)
}
