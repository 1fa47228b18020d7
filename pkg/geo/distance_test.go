package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters_ZeroDistance(t *testing.T) {
	d := HaversineMeters(-23.5505, -46.6333, -23.5505, -46.6333)
	assert.Equal(t, 0.0, d)
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Sao Paulo -> Rio de Janeiro, roughly 360 km great-circle.
	d := HaversineMeters(-23.5505, -46.6333, -22.9068, -43.1729)
	assert.InDelta(t, 360000, d, 5000)
}

func TestHaversineMeters_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2 km on a 6371 km sphere.
	d := HaversineMeters(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 10)
}

func TestHaversineMeters_Symmetry(t *testing.T) {
	a := HaversineMeters(-23.5505, -46.6333, -25.4284, -49.2733)
	b := HaversineMeters(-25.4284, -49.2733, -23.5505, -46.6333)
	assert.InDelta(t, a, b, 1e-6)
}

func TestHaversineMeters_NaNPropagates(t *testing.T) {
	d := HaversineMeters(math.NaN(), 0, 0, 0)
	assert.True(t, math.IsNaN(d))
}
