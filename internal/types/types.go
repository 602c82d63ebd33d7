// README: Identifier and coordinate value objects used across modules.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type ID string

// NewID returns a random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ValidID reports whether v looks like an identifier produced by NewID.
func ValidID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

// Point is a WGS84 coordinate. Over JSON it is a GeoJSON style [lng, lat] pair.
type Point struct {
	Lng float64
	Lat float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// LatLng renders the point the way Google Maps expects an origin string.
func (p Point) LatLng() string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lng, p.Lat})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var c []float64
	if err := json.Unmarshal(b, &c); err != nil {
		return err
	}
	if len(c) != 2 {
		return fmt.Errorf("point: want [lng, lat], got %d values", len(c))
	}
	p.Lng, p.Lat = c[0], c[1]
	return nil
}

// SplitPoint returns nullable lng and lat columns for p. A nil point maps to
// two NULLs.
func SplitPoint(p *Point) (lng, lat *float64) {
	if p == nil {
		return nil, nil
	}
	x, y := p.Lng, p.Lat
	return &x, &y
}

// JoinPoint is the inverse of SplitPoint. Either column being NULL yields nil.
func JoinPoint(lng, lat *float64) *Point {
	if lng == nil || lat == nil {
		return nil
	}
	return &Point{Lng: *lng, Lat: *lat}
}
