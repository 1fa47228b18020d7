package matching

import (
	"context"

	"github.com/google/uuid"
)

// CoverageRepository reads a driver's declared operating areas.
type CoverageRepository interface {
	// ListActiveAreas returns the driver's active coverage areas in creation
	// order. Order matters: the first qualifying city match wins outright.
	ListActiveAreas(ctx context.Context, driverID uuid.UUID) ([]CoverageArea, error)
}

// CandidateRepository reads open, unassigned candidates.
type CandidateRepository interface {
	// ListOpenFreights returns up to limit open unassigned freights,
	// most recent first.
	ListOpenFreights(ctx context.Context, limit int) ([]Candidate, error)
	// ListOpenServiceRequests returns up to limit open unassigned service
	// requests whose service type is in the allow-list, most recent first.
	ListOpenServiceRequests(ctx context.Context, limit int, serviceTypes []string) ([]Candidate, error)
}

// MatchRepository owns the match tables for a driver.
type MatchRepository interface {
	// ClearDriverMatches deletes all of the driver's match rows for both
	// candidate kinds in a single transaction.
	ClearDriverMatches(ctx context.Context, driverID uuid.UUID) error
	// ReplaceDriverMatches rewrites the driver's full match set: deletes for
	// both kinds and the bulk upserts run in one transaction, so a failure
	// mid-replace rolls back to the previous set. If the transaction cannot
	// commit it degrades to clear plus row-by-row inserts and reports counts;
	// a non-zero Failed is not an error.
	ReplaceDriverMatches(ctx context.Context, driverID uuid.UUID, freightRows, serviceRows []MatchRecord) (UpsertResult, UpsertResult, error)
	// ListOpenMatches joins match rows to candidates and filters out any
	// candidate no longer OPEN.
	ListOpenMatches(ctx context.Context, driverID uuid.UUID) (*CurrentMatches, error)
}

// EventPublisher emits matching lifecycle events for downstream consumers.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event MatchingCompletedEvent) error
	PublishRunFailed(ctx context.Context, event MatchingFailedEvent) error
}
