package matching

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotafrete/freight-marketplace/pkg/geo"
)

func f64Ptr(v float64) *float64 { return &v }
func strPtr(s string) *string   { return &s }

func spatialArea(driverID uuid.UUID, lat, lng, radiusKm float64) CoverageArea {
	return CoverageArea{
		ID:       uuid.New(),
		DriverID: driverID,
		CityRef: &City{
			ID:    uuid.New(),
			Name:  "Campinas",
			State: "SP",
			Lat:   f64Ptr(lat),
			Lng:   f64Ptr(lng),
		},
		RadiusKm: radiusKm,
		Kind:     AreaKindOrigin,
		IsActive: true,
	}
}

func cityOnlyArea(driverID uuid.UUID, cityID uuid.UUID, name, state string) CoverageArea {
	return CoverageArea{
		ID:       uuid.New(),
		DriverID: driverID,
		CityRef: &City{
			ID:    cityID,
			Name:  name,
			State: state,
		},
		RadiusKm: 50,
		Kind:     AreaKindOrigin,
		IsActive: true,
	}
}

func TestWithinRadius_BoundaryIsInclusive(t *testing.T) {
	assert.True(t, withinRadius(49999.99, 50000))
	assert.True(t, withinRadius(50000, 50000))
	assert.False(t, withinRadius(50000.01, 50000))
}

func TestSpatialScore(t *testing.T) {
	cfg := DefaultConfig()

	assert.InDelta(t, 1.0, spatialScore(0, cfg), 1e-9)
	assert.InDelta(t, 0.5, spatialScore(25000, cfg), 1e-9)
	// 1 - 49000/50000 = 0.02, clamped to the floor.
	assert.InDelta(t, 0.1, spatialScore(49000, cfg), 1e-9)
	assert.InDelta(t, 0.1, spatialScore(200000, cfg), 1e-9)
}

func TestFindBestMatch_SpatialWithinRadius(t *testing.T) {
	driverID := uuid.New()
	cfg := DefaultConfig()

	area := spatialArea(driverID, 0, 0, 50)
	candidate := Candidate{
		ID:   uuid.New(),
		Kind: CandidateFreight,
		Lat:  f64Ptr(0.25),
		Lng:  f64Ptr(0),
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{area}, cfg)
	require.NotNil(t, match)

	wantDistance := geo.HaversineMeters(0.25, 0, 0, 0)
	assert.Equal(t, candidate.ID, match.CandidateID)
	assert.Equal(t, driverID, match.DriverID)
	assert.Equal(t, CandidateFreight, match.CandidateKind)
	assert.Equal(t, MatchSpatialRadius, match.MatchType)
	assert.Equal(t, int(math.Round(wantDistance)), match.DistanceMeters)
	assert.InDelta(t, spatialScore(wantDistance, cfg), match.MatchScore, 1e-9)
}

func TestFindBestMatch_OutsideAllRadii(t *testing.T) {
	driverID := uuid.New()

	// Roughly 111 km from the centroid against a 50 km radius.
	area := spatialArea(driverID, 0, 0, 50)
	candidate := Candidate{
		ID:   uuid.New(),
		Kind: CandidateFreight,
		Lat:  f64Ptr(1.0),
		Lng:  f64Ptr(0),
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{area}, DefaultConfig())
	assert.Nil(t, match)
}

func TestFindBestMatch_ClosestAreaWins(t *testing.T) {
	driverID := uuid.New()
	cfg := DefaultConfig()

	far := spatialArea(driverID, 0.3, 0, 50)  // ~33 km
	near := spatialArea(driverID, 0.1, 0, 50) // ~11 km
	candidate := Candidate{
		ID:   uuid.New(),
		Kind: CandidateServiceRequest,
		Lat:  f64Ptr(0),
		Lng:  f64Ptr(0),
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{far, near}, cfg)
	require.NotNil(t, match)

	wantDistance := geo.HaversineMeters(0, 0, 0.1, 0)
	assert.Equal(t, CandidateServiceRequest, match.CandidateKind)
	assert.Equal(t, int(math.Round(wantDistance)), match.DistanceMeters)
}

func TestFindBestMatch_DefaultRadiusApplied(t *testing.T) {
	driverID := uuid.New()

	area := spatialArea(driverID, 0, 0, 0) // unset radius, defaults to 50 km
	candidate := Candidate{
		ID:   uuid.New(),
		Kind: CandidateFreight,
		Lat:  f64Ptr(0.3), // ~33 km
		Lng:  f64Ptr(0),
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{area}, DefaultConfig())
	require.NotNil(t, match)
	assert.Equal(t, MatchSpatialRadius, match.MatchType)
}

func TestFindBestMatch_CityMatchBeatsEarlierSpatialHit(t *testing.T) {
	driverID := uuid.New()
	cityID := uuid.New()

	spatial := spatialArea(driverID, 0.05, 0, 50) // ~5.5 km, qualifies
	city := cityOnlyArea(driverID, cityID, "Sorocaba", "SP")
	candidate := Candidate{
		ID:        uuid.New(),
		Kind:      CandidateFreight,
		Lat:       f64Ptr(0),
		Lng:       f64Ptr(0),
		CityRefID: &cityID,
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{spatial, city}, DefaultConfig())
	require.NotNil(t, match)
	assert.Equal(t, MatchCity, match.MatchType)
	assert.Equal(t, 0, match.DistanceMeters)
	assert.Equal(t, 1.0, match.MatchScore)
}

func TestFindBestMatch_CityNameNormalization(t *testing.T) {
	driverID := uuid.New()

	area := cityOnlyArea(driverID, uuid.New(), "são paulo", "SP")
	candidate := Candidate{
		ID:         uuid.New(),
		Kind:       CandidateFreight,
		CityLabel:  strPtr("  São Paulo "),
		StateLabel: strPtr("sp"),
	}

	match := findBestMatch(driverID, candidate, []CoverageArea{area}, DefaultConfig())
	require.NotNil(t, match)
	assert.Equal(t, MatchCity, match.MatchType)
}

func TestFindBestMatch_BlankStateIsWildcard(t *testing.T) {
	driverID := uuid.New()
	area := cityOnlyArea(driverID, uuid.New(), "Ourinhos", "SP")

	noState := Candidate{
		ID:        uuid.New(),
		Kind:      CandidateFreight,
		CityLabel: strPtr("Ourinhos"),
	}
	match := findBestMatch(driverID, noState, []CoverageArea{area}, DefaultConfig())
	require.NotNil(t, match)
	assert.Equal(t, MatchCity, match.MatchType)

	wrongState := Candidate{
		ID:         uuid.New(),
		Kind:       CandidateFreight,
		CityLabel:  strPtr("Ourinhos"),
		StateLabel: strPtr("PR"),
	}
	assert.Nil(t, findBestMatch(driverID, wrongState, []CoverageArea{area}, DefaultConfig()))
}

func TestFindBestMatch_SpatialEvaluationSuppressesCityFallback(t *testing.T) {
	driverID := uuid.New()

	// Both sides have coordinates, so only the radius check runs for this
	// area; the matching city name does not rescue an out-of-range candidate.
	area := spatialArea(driverID, 0, 0, 50)
	candidate := Candidate{
		ID:         uuid.New(),
		Kind:       CandidateFreight,
		Lat:        f64Ptr(1.0),
		Lng:        f64Ptr(0),
		CityLabel:  strPtr("Campinas"),
		StateLabel: strPtr("SP"),
	}

	assert.Nil(t, findBestMatch(driverID, candidate, []CoverageArea{area}, DefaultConfig()))
}

func TestFindBestMatch_NoLocationSignal(t *testing.T) {
	driverID := uuid.New()
	area := spatialArea(driverID, 0, 0, 50)

	candidate := Candidate{ID: uuid.New(), Kind: CandidateFreight}
	assert.Nil(t, findBestMatch(driverID, candidate, []CoverageArea{area}, DefaultConfig()))

	nanCandidate := Candidate{
		ID:   uuid.New(),
		Kind: CandidateFreight,
		Lat:  f64Ptr(math.NaN()),
		Lng:  f64Ptr(0),
	}
	assert.Nil(t, findBestMatch(driverID, nanCandidate, []CoverageArea{area}, DefaultConfig()))
}

func TestEligibleAreas(t *testing.T) {
	driverID := uuid.New()

	active := spatialArea(driverID, 0, 0, 50)
	inactive := spatialArea(driverID, 0, 0, 50)
	inactive.IsActive = false
	noCity := CoverageArea{ID: uuid.New(), DriverID: driverID, RadiusKm: 50, IsActive: true}
	destination := spatialArea(driverID, 1, 1, 50)
	destination.Kind = AreaKindDestination

	eligible := eligibleAreas([]CoverageArea{active, inactive, noCity, destination})

	require.Len(t, eligible, 2)
	assert.Equal(t, active.ID, eligible[0].ID)
	// Destination areas are pooled with origin areas.
	assert.Equal(t, destination.ID, eligible[1].ID)
}
