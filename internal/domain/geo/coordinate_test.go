package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlace(t *testing.T) {
	place, err := NewPlace("  台北車站 ", 25.0478, 121.5170)
	require.NoError(t, err)
	assert.Equal(t, "台北車站", place.Address)

	_, err = NewPlace(" ", 25, 121)
	assert.ErrorIs(t, err, ErrEmptyAddress)
	_, err = NewPlace("x", 91, 121)
	assert.ErrorIs(t, err, ErrInvalidLatitude)
	_, err = NewPlace("x", 25, -181)
	assert.ErrorIs(t, err, ErrInvalidLongitude)
	_, err = NewPoint(math.NaN(), 0)
	assert.ErrorIs(t, err, ErrInvalidLatitude)
}

func TestHaversineKM(t *testing.T) {
	assert.InDelta(t, 0, HaversineKM(25, 121, 25, 121), 1e-9)
	// one degree of latitude is ~111.2 km
	assert.InDelta(t, 111.19, HaversineKM(0, 0, 1, 0), 0.01)

	a := Point{Latitude: 25.0478, Longitude: 121.5170}
	b := Point{Latitude: 25.0340, Longitude: 121.5645}
	assert.InDelta(t, a.DistanceKM(b), b.DistanceKM(a), 1e-9)
}
