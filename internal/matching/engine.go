package matching

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rotafrete/freight-marketplace/pkg/geo"
)

// locationSignal is a candidate's effective location: precise coordinates if
// present, else a canonical city id, else a normalized city name and state.
type locationSignal struct {
	hasCoords bool
	lat, lng  float64
	cityID    *uuid.UUID
	cityName  string
	state     string
}

func (s locationSignal) empty() bool {
	return !s.hasCoords && s.cityID == nil && s.cityName == ""
}

// candidateSignal extracts the candidate's location signal. A candidate with
// neither coordinates nor any city identifier or label cannot match anything.
func candidateSignal(c Candidate) locationSignal {
	sig := locationSignal{}
	if c.Lat != nil && c.Lng != nil && !math.IsNaN(*c.Lat) && !math.IsNaN(*c.Lng) {
		sig.hasCoords = true
		sig.lat = *c.Lat
		sig.lng = *c.Lng
	}
	sig.cityID = c.CityRefID
	if c.CityLabel != nil {
		sig.cityName = normalizeCityName(*c.CityLabel)
	}
	if c.StateLabel != nil {
		sig.state = normalizeState(*c.StateLabel)
	}
	return sig
}

func normalizeCityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// eligibleAreas applies the area-kind policy. Origin and destination areas
// are pooled: a driver matches work touching either end of their declared
// coverage. Kind-specific matching would be implemented here without
// touching the evaluation loop.
func eligibleAreas(areas []CoverageArea) []CoverageArea {
	eligible := make([]CoverageArea, 0, len(areas))
	for _, a := range areas {
		if !a.IsActive {
			continue
		}
		if a.CityRef == nil {
			// No centroid and no city identity: contributes nothing.
			continue
		}
		eligible = append(eligible, a)
	}
	return eligible
}

// areaRadiusMeters returns the area's search radius in meters, applying the
// default when the driver never set one.
func areaRadiusMeters(a CoverageArea, cfg Config) float64 {
	radiusKm := a.RadiusKm
	if radiusKm <= 0 {
		radiusKm = cfg.DefaultRadiusKm
	}
	return radiusKm * 1000
}

// withinRadius is the spatial qualification test. The boundary is inclusive:
// a candidate sitting exactly at the radius still qualifies.
func withinRadius(distanceMeters, radiusMeters float64) bool {
	return distanceMeters <= radiusMeters
}

// spatialScore maps a distance to (0, 1]. The normalization constant is fixed
// and independent of the area's declared radius, so far-but-in-radius matches
// on wide areas bottom out at the floor instead of going non-positive.
func spatialScore(distanceMeters float64, cfg Config) float64 {
	score := 1 - distanceMeters/cfg.ScoreNormalizationM
	if score < cfg.ScoreFloor {
		return cfg.ScoreFloor
	}
	return score
}

// findBestMatch evaluates one candidate against a driver's coverage areas and
// returns the single best match, or nil when no area qualifies.
//
// Evaluation order is the areas' creation order. For each area, the spatial
// check runs when both sides have coordinates, and a hit is kept if it is the
// closest seen so far; a geometrically possible spatial evaluation suppresses
// the city fallback for that area. A city-identity hit (id, or normalized
// name plus state with a blank state acting as a wildcard) wins outright and
// stops the loop: first qualifying city match beats any spatial match.
func findBestMatch(driverID uuid.UUID, c Candidate, areas []CoverageArea, cfg Config) *MatchRecord {
	sig := candidateSignal(c)
	if sig.empty() {
		return nil
	}

	bestDistance := math.Inf(1)
	haveSpatial := false
	cityMatched := false

	for _, area := range areas {
		areaLat, areaLng, hasCentroid := area.Centroid()

		if sig.hasCoords && hasCentroid {
			distance := geo.HaversineMeters(sig.lat, sig.lng, areaLat, areaLng)
			if withinRadius(distance, areaRadiusMeters(area, cfg)) && distance < bestDistance {
				bestDistance = distance
				haveSpatial = true
			}
			continue
		}

		if sig.cityID != nil && *sig.cityID == area.CityRef.ID {
			cityMatched = true
			break
		}

		if sig.cityName != "" {
			areaName := normalizeCityName(area.CityRef.Name)
			areaState := normalizeState(area.CityRef.State)
			if areaName == sig.cityName && (sig.state == "" || areaState == "" || sig.state == areaState) {
				cityMatched = true
				break
			}
		}
	}

	switch {
	case cityMatched:
		return &MatchRecord{
			CandidateID:    c.ID,
			DriverID:       driverID,
			CandidateKind:  c.Kind,
			MatchType:      MatchCity,
			DistanceMeters: 0,
			MatchScore:     1.0,
		}
	case haveSpatial:
		return &MatchRecord{
			CandidateID:    c.ID,
			DriverID:       driverID,
			CandidateKind:  c.Kind,
			MatchType:      MatchSpatialRadius,
			DistanceMeters: int(math.Round(bestDistance)),
			MatchScore:     spatialScore(bestDistance, cfg),
		}
	default:
		return nil
	}
}
