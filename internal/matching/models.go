package matching

import (
	"time"

	"github.com/google/uuid"
)

// AreaKind distinguishes origin from destination coverage declarations.
type AreaKind string

const (
	AreaKindOrigin      AreaKind = "ORIGIN"
	AreaKindDestination AreaKind = "DESTINATION"
)

// CandidateKind identifies the two candidate tables.
type CandidateKind string

const (
	CandidateFreight        CandidateKind = "FREIGHT"
	CandidateServiceRequest CandidateKind = "SERVICE_REQUEST"
)

// CandidateStatus values. Only OPEN candidates are ever matched.
type CandidateStatus string

const (
	StatusOpen      CandidateStatus = "OPEN"
	StatusAssigned  CandidateStatus = "ASSIGNED"
	StatusCancelled CandidateStatus = "CANCELLED"
	StatusCompleted CandidateStatus = "COMPLETED"
)

// MatchType says how a match qualified.
type MatchType string

const (
	MatchSpatialRadius MatchType = "SPATIAL_RADIUS"
	MatchCity          MatchType = "CITY_MATCH"
)

// City is a canonical city reference with an optional resolved centroid.
type City struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	State string    `json:"state" db:"state"`
	Lat   *float64  `json:"lat,omitempty" db:"lat"`
	Lng   *float64  `json:"lng,omitempty" db:"lng"`
}

// CoverageArea is a driver-declared operating area: a canonical city plus a
// search radius. An area with neither a resolvable centroid nor a city
// reference contributes no matches.
type CoverageArea struct {
	ID        uuid.UUID `json:"id" db:"id"`
	DriverID  uuid.UUID `json:"driver_id" db:"driver_id"`
	CityRef   *City     `json:"city,omitempty"`
	RadiusKm  float64   `json:"radius_km" db:"radius_km"`
	Kind      AreaKind  `json:"kind" db:"kind"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Centroid returns the area's resolved centroid, if any.
func (a *CoverageArea) Centroid() (lat, lng float64, ok bool) {
	if a.CityRef == nil || a.CityRef.Lat == nil || a.CityRef.Lng == nil {
		return 0, 0, false
	}
	return *a.CityRef.Lat, *a.CityRef.Lng, true
}

// Candidate is an open, unassigned freight posting or service request.
// Freights and service requests are structurally identical for matching.
type Candidate struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Kind             CandidateKind   `json:"kind" db:"kind"`
	Status           CandidateStatus `json:"status" db:"status"`
	AssignedDriverID *uuid.UUID      `json:"assigned_driver_id,omitempty" db:"assigned_driver_id"`
	Lat              *float64        `json:"lat,omitempty" db:"lat"`
	Lng              *float64        `json:"lng,omitempty" db:"lng"`
	CityLabel        *string         `json:"city_label,omitempty" db:"city_label"`
	StateLabel       *string         `json:"state_label,omitempty" db:"state_label"`
	CityRefID        *uuid.UUID      `json:"city_ref_id,omitempty" db:"city_ref_id"`
	ServiceType      *string         `json:"service_type,omitempty" db:"service_type"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}

// MatchRecord is one driver/candidate pairing. (CandidateID, DriverID) is
// unique per candidate kind; the whole set for a driver is rewritten on each
// matching run.
type MatchRecord struct {
	CandidateID    uuid.UUID     `json:"candidate_id" db:"candidate_id"`
	DriverID       uuid.UUID     `json:"driver_id" db:"driver_id"`
	CandidateKind  CandidateKind `json:"candidate_kind" db:"candidate_kind"`
	MatchType      MatchType     `json:"match_type" db:"match_type"`
	DistanceMeters int           `json:"distance_meters" db:"distance_meters"`
	MatchScore     float64       `json:"match_score" db:"match_score"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// UpsertResult reports partial-failure-tolerant batch persistence.
type UpsertResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// CurrentMatches is the assembled view of a driver's persisted matches joined
// to their still-open candidates. Only the match arrays serialize here; the
// joined candidates are carried for assembly and appear at the top level of
// RunResult instead.
type CurrentMatches struct {
	FreightMatches        []MatchRecord `json:"freight_matches"`
	ServiceRequestMatches []MatchRecord `json:"service_request_matches"`
	Freights              []Candidate   `json:"-"`
	ServiceRequests       []Candidate   `json:"-"`
}

// RunResult is the response payload of a matching run.
type RunResult struct {
	Matches         *CurrentMatches `json:"matches"`
	Freights        []Candidate     `json:"freights"`
	ServiceRequests []Candidate     `json:"service_requests"`
	Created         *RunCreated     `json:"created,omitempty"`
	Processed       *RunProcessed   `json:"processed,omitempty"`
}

// RunCreated counts match rows persisted by the run.
type RunCreated struct {
	FreightMatches        int `json:"freight_matches"`
	ServiceRequestMatches int `json:"service_request_matches"`
}

// RunProcessed counts candidates evaluated by the run.
type RunProcessed struct {
	FreightsChecked        int `json:"freights_checked"`
	ServiceRequestsChecked int `json:"service_requests_checked"`
}

// Config holds the engine tunables. All former magic numbers live here so
// tests can exercise the score formula and allow-list under other values.
type Config struct {
	DefaultRadiusKm     float64
	ScoreNormalizationM float64
	ScoreFloor          float64
	CandidatePageSize   int
	UrbanServiceTypes   []string
	MatchesCacheTTL     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultRadiusKm:     50,
		ScoreNormalizationM: 50000,
		ScoreFloor:          0.1,
		CandidatePageSize:   200,
		UrbanServiceTypes: []string{
			"FRETE_MOTO",
			"GUINCHO",
			"MUDANCA",
			"PICAPE",
			"FRETE_URBANO",
			"MOTO",
			"GUINCHO_URBANO",
		},
		MatchesCacheTTL: time.Minute,
	}
}

// MatchingCompletedEvent is published after each run for downstream
// consumers (notification delivery lives outside this service).
type MatchingCompletedEvent struct {
	DriverID              uuid.UUID `json:"driver_id"`
	FreightMatches        int       `json:"freight_matches"`
	ServiceRequestMatches int       `json:"service_request_matches"`
	CompletedAt           time.Time `json:"completed_at"`
}

// MatchingFailedEvent is published when a run aborts, so monitors can tell an
// empty match set apart from a run that never finished.
type MatchingFailedEvent struct {
	DriverID uuid.UUID `json:"driver_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
