package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidLatitude(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected bool
	}{
		{"zero", 0, true},
		{"north pole", 90, true},
		{"south pole", -90, true},
		{"just above range", 90.0001, false},
		{"just below range", -90.0001, false},
		{"NaN", math.NaN(), false},
		{"+Inf", math.Inf(1), false},
		{"-Inf", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidLatitude(tt.value))
		})
	}
}

func TestIsValidLongitude(t *testing.T) {
	assert.True(t, IsValidLongitude(180))
	assert.True(t, IsValidLongitude(-180))
	assert.True(t, IsValidLongitude(14.42076))
	assert.False(t, IsValidLongitude(180.5))
	assert.False(t, IsValidLongitude(math.NaN()))
	assert.False(t, IsValidLongitude(math.Inf(1)))
}

// Property check over random floats including the non-finite specials: the
// pair predicate must agree with the range definition everywhere.
func TestIsValidLatLngProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	sample := func() float64 {
		switch rng.Intn(8) {
		case 0:
			return math.NaN()
		case 1:
			return math.Inf(1)
		case 2:
			return math.Inf(-1)
		default:
			return (rng.Float64() - 0.5) * 800
		}
	}

	for i := 0; i < 5000; i++ {
		lat, lng := sample(), sample()
		expected := !math.IsNaN(lat) && !math.IsInf(lat, 0) && lat >= -90 && lat <= 90 &&
			!math.IsNaN(lng) && !math.IsInf(lng, 0) && lng >= -180 && lng <= 180
		assert.Equal(t, expected, IsValidLatLng(lat, lng), "lat=%v lng=%v", lat, lng)
	}
}

func TestAssertValidLatLng(t *testing.T) {
	assert.NoError(t, AssertValidLatLng(50.087, 14.421, "event"))

	err := AssertValidLatLng(120, 14.421, "event")
	assert.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "event", verr.Label)
}

func TestFilterValidPointsDropsMalformed(t *testing.T) {
	points := []Point{
		{ID: "a", Lat: 50.1, Lng: 14.4},
		{ID: "b", Lat: 91, Lng: 14.4},
		{ID: "c", Lat: 50.2, Lng: math.NaN()},
		{ID: "d", Lat: -33.86, Lng: 151.21},
	}

	filtered := FilterValidPoints(points)

	assert.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "d", filtered[1].ID)
}

func TestFilterValidPointsIdempotent(t *testing.T) {
	points := []Point{
		{ID: "a", Lat: 50.1, Lng: 14.4},
		{ID: "b", Lat: math.Inf(1), Lng: 0},
		{ID: "c", Lat: 0, Lng: 0},
	}

	once := FilterValidPoints(points)
	twice := FilterValidPoints(once)

	assert.Equal(t, once, twice)
}

func TestFormatCoordinates(t *testing.T) {
	assert.Equal(t, "50.08700, 14.42100", FormatCoordinates(50.087, 14.421))
}
