// README: Google Maps collaborator: driving route text for offered rides and address geocoding.
package maps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"ridebud/internal/types"
)

var ErrNoRoute = errors.New("no route found")

// Route is the subset of a Directions leg stored on a ride.
type Route struct {
	DistanceText   string
	DurationText   string
	DistanceMeters int
	Duration       time.Duration
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client *maps.Client
	region string
}

// NewRouteService creates a new RouteService with the given API Key.
// Region biases geocoding and routing results, e.g. "ie".
func NewRouteService(apiKey, region string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, region: region}, nil
}

// Estimate returns the driving distance and duration text between two points.
// Text is requested in English so ParseDistance can read it back.
func (s *RouteService) Estimate(ctx context.Context, origin, destination types.Point) (Route, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin.LatLng(),
		Destination: destination.LatLng(),
		Mode:        maps.TravelModeDriving,
		Language:    "en",
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return Route{
		DistanceText:   leg.Distance.HumanReadable,
		DurationText:   FormatDuration(leg.Duration),
		DistanceMeters: leg.Distance.Meters,
		Duration:       leg.Duration,
	}, nil
}

// Geocode resolves a free-text address to its first matching coordinate.
func (s *RouteService) Geocode(ctx context.Context, address string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   s.region,
		Language: "en",
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("maps geocode error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lng: loc.Lng, Lat: loc.Lat}, nil
}
