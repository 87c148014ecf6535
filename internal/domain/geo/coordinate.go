package geo

import (
	"errors"
	"math"
	"strings"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Place is an addressed point (pickup or dropoff).
type Place struct {
	Address string `json:"address"`
	Point
}

var (
	ErrEmptyAddress     = errors.New("address cannot be empty")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewPoint constructs a Point with range checks.
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if err := point.Validate(); err != nil {
		return Point{}, err
	}
	return point, nil
}

// NewPlace constructs a Place with a trimmed, non-empty address.
func NewPlace(address string, latitude, longitude float64) (Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Place{}, ErrEmptyAddress
	}
	point, err := NewPoint(latitude, longitude)
	if err != nil {
		return Place{}, err
	}
	return Place{Address: address, Point: point}, nil
}

// Validate checks the coordinate ranges.
func (point Point) Validate() error {
	if point.Latitude < -90 || point.Latitude > 90 || math.IsNaN(point.Latitude) {
		return ErrInvalidLatitude
	}
	if point.Longitude < -180 || point.Longitude > 180 || math.IsNaN(point.Longitude) {
		return ErrInvalidLongitude
	}
	return nil
}

// Validate checks the address and coordinate ranges.
func (place Place) Validate() error {
	if strings.TrimSpace(place.Address) == "" {
		return ErrEmptyAddress
	}
	return place.Point.Validate()
}

// DistanceKM returns the great-circle distance to other in kilometers.
func (point Point) DistanceKM(other Point) float64 {
	return HaversineKM(point.Latitude, point.Longitude, other.Latitude, other.Longitude)
}

// HaversineKM returns the haversine distance in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius in km
	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
