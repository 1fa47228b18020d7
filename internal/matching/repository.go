package matching

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotafrete/freight-marketplace/pkg/logger"
	"go.uber.org/zap"
)

// DB is the subset of pgxpool.Pool the repository relies on, extracted so
// tests can substitute a mock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository handles database access for coverage areas, candidates and
// match rows.
type Repository struct {
	db DB
}

// NewRepository creates a new matching repository
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// ListActiveAreas returns the driver's active coverage areas joined to their
// canonical cities, ordered by creation so match evaluation is deterministic.
func (r *Repository) ListActiveAreas(ctx context.Context, driverID uuid.UUID) ([]CoverageArea, error) {
	query := `
		SELECT ca.id, ca.driver_id, ca.radius_km, ca.kind, ca.is_active, ca.created_at,
		       c.id, c.name, c.state, c.lat, c.lng
		FROM coverage_areas ca
		LEFT JOIN cities c ON c.id = ca.city_id
		WHERE ca.driver_id = $1 AND ca.is_active = true
		ORDER BY ca.created_at, ca.id
	`

	rows, err := r.db.Query(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coverage areas: %w", err)
	}
	defer rows.Close()

	areas := make([]CoverageArea, 0)
	for rows.Next() {
		var a CoverageArea
		var cityID *uuid.UUID
		var cityName, cityState *string
		var cityLat, cityLng *float64
		err := rows.Scan(
			&a.ID, &a.DriverID, &a.RadiusKm, &a.Kind, &a.IsActive, &a.CreatedAt,
			&cityID, &cityName, &cityState, &cityLat, &cityLng,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coverage area: %w", err)
		}
		if cityID != nil {
			a.CityRef = &City{
				ID:    *cityID,
				Name:  derefString(cityName),
				State: derefString(cityState),
				Lat:   cityLat,
				Lng:   cityLng,
			}
		}
		areas = append(areas, a)
	}

	return areas, rows.Err()
}

// ListOpenFreights returns a bounded page of open, unassigned freights,
// most recent first.
func (r *Repository) ListOpenFreights(ctx context.Context, limit int) ([]Candidate, error) {
	query := `
		SELECT id, status, assigned_driver_id, lat, lng, city_label, state_label,
		       city_ref_id, created_at
		FROM freights
		WHERE status = 'OPEN' AND assigned_driver_id IS NULL
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open freights: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, CandidateFreight, false)
}

// ListOpenServiceRequests returns a bounded page of open, unassigned service
// requests restricted to the given service types, most recent first.
func (r *Repository) ListOpenServiceRequests(ctx context.Context, limit int, serviceTypes []string) ([]Candidate, error) {
	query := `
		SELECT id, status, assigned_driver_id, lat, lng, city_label, state_label,
		       city_ref_id, service_type, created_at
		FROM service_requests
		WHERE status = 'OPEN' AND assigned_driver_id IS NULL
		  AND service_type = ANY($2)
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit, serviceTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to list open service requests: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, CandidateServiceRequest, true)
}

// ClearDriverMatches deletes all match rows for the driver, both kinds, in
// one transaction.
func (r *Repository) ClearDriverMatches(ctx context.Context, driverID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM freight_matches WHERE driver_id = $1`, driverID); err != nil {
		return fmt.Errorf("failed to clear freight matches: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM service_request_matches WHERE driver_id = $1`, driverID); err != nil {
		return fmt.Errorf("failed to clear service request matches: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit clear transaction: %w", err)
	}
	return nil
}

// ReplaceDriverMatches rewrites the driver's full match set. The deletes for
// both kinds and the bulk upserts run in one transaction, so a failure
// mid-replace rolls back to the previous set. If the transaction cannot
// commit it degrades to a clear followed by row-by-row inserts, counting
// successes and failures so one malformed row cannot discard its siblings.
func (r *Repository) ReplaceDriverMatches(ctx context.Context, driverID uuid.UUID, freightRows, serviceRows []MatchRecord) (UpsertResult, UpsertResult, error) {
	txErr := r.replaceInTx(ctx, driverID, freightRows, serviceRows)
	if txErr == nil {
		return UpsertResult{Succeeded: len(freightRows)}, UpsertResult{Succeeded: len(serviceRows)}, nil
	}
	logger.Warn("transactional match replace failed, retrying row by row",
		zap.String("driver_id", driverID.String()),
		zap.Error(txErr),
	)

	if err := r.ClearDriverMatches(ctx, driverID); err != nil {
		return UpsertResult{}, UpsertResult{}, err
	}
	return r.upsertRowByRow(ctx, CandidateFreight, freightRows),
		r.upsertRowByRow(ctx, CandidateServiceRequest, serviceRows),
		nil
}

func (r *Repository) replaceInTx(ctx context.Context, driverID uuid.UUID, freightRows, serviceRows []MatchRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM freight_matches WHERE driver_id = $1`, driverID); err != nil {
		return fmt.Errorf("failed to clear freight matches: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM service_request_matches WHERE driver_id = $1`, driverID); err != nil {
		return fmt.Errorf("failed to clear service request matches: %w", err)
	}

	batch := &pgx.Batch{}
	queueUpserts(batch, CandidateFreight, freightRows)
	queueUpserts(batch, CandidateServiceRequest, serviceRows)
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to bulk upsert matches: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit replace transaction: %w", err)
	}
	return nil
}

func (r *Repository) upsertRowByRow(ctx context.Context, kind CandidateKind, rows []MatchRecord) UpsertResult {
	query := upsertQuery(kind)
	result := UpsertResult{}
	for _, row := range rows {
		_, err := r.db.Exec(ctx, query, row.CandidateID, row.DriverID, row.MatchType, row.DistanceMeters, row.MatchScore)
		if err != nil {
			result.Failed++
			logger.Warn("match upsert failed",
				zap.String("kind", string(kind)),
				zap.String("candidate_id", row.CandidateID.String()),
				zap.String("driver_id", row.DriverID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}
	return result
}

func queueUpserts(batch *pgx.Batch, kind CandidateKind, rows []MatchRecord) {
	query := upsertQuery(kind)
	for _, row := range rows {
		batch.Queue(query, row.CandidateID, row.DriverID, row.MatchType, row.DistanceMeters, row.MatchScore)
	}
}

func upsertQuery(kind CandidateKind) string {
	return fmt.Sprintf(`
		INSERT INTO %s (candidate_id, driver_id, match_type, distance_meters, match_score, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (candidate_id, driver_id) DO UPDATE
		SET match_type = EXCLUDED.match_type,
		    distance_meters = EXCLUDED.distance_meters,
		    match_score = EXCLUDED.match_score,
		    created_at = now()
	`, matchTable(kind))
}

// ListOpenMatches joins the driver's match rows to their candidates and
// filters out candidates whose status has moved away from OPEN. Stale rows
// are left in place; the next run's replace removes them.
func (r *Repository) ListOpenMatches(ctx context.Context, driverID uuid.UUID) (*CurrentMatches, error) {
	freightQuery := `
		SELECT m.candidate_id, m.driver_id, m.match_type, m.distance_meters, m.match_score, m.created_at,
		       f.id, f.status, f.assigned_driver_id, f.lat, f.lng, f.city_label, f.state_label,
		       f.city_ref_id, f.created_at
		FROM freight_matches m
		JOIN freights f ON f.id = m.candidate_id
		WHERE m.driver_id = $1 AND f.status = 'OPEN'
		ORDER BY m.match_score DESC, m.distance_meters
	`
	serviceQuery := `
		SELECT m.candidate_id, m.driver_id, m.match_type, m.distance_meters, m.match_score, m.created_at,
		       s.id, s.status, s.assigned_driver_id, s.lat, s.lng, s.city_label, s.state_label,
		       s.city_ref_id, s.service_type, s.created_at
		FROM service_request_matches m
		JOIN service_requests s ON s.id = m.candidate_id
		WHERE m.driver_id = $1 AND s.status = 'OPEN'
		ORDER BY m.match_score DESC, m.distance_meters
	`

	current := &CurrentMatches{
		FreightMatches:        make([]MatchRecord, 0),
		ServiceRequestMatches: make([]MatchRecord, 0),
		Freights:              make([]Candidate, 0),
		ServiceRequests:       make([]Candidate, 0),
	}

	if err := r.scanJoinedMatches(ctx, freightQuery, driverID, CandidateFreight,
		&current.FreightMatches, &current.Freights); err != nil {
		return nil, err
	}
	if err := r.scanJoinedMatches(ctx, serviceQuery, driverID, CandidateServiceRequest,
		&current.ServiceRequestMatches, &current.ServiceRequests); err != nil {
		return nil, err
	}

	return current, nil
}

func (r *Repository) scanJoinedMatches(ctx context.Context, query string, driverID uuid.UUID, kind CandidateKind, matches *[]MatchRecord, candidates *[]Candidate) error {
	rows, err := r.db.Query(ctx, query, driverID)
	if err != nil {
		return fmt.Errorf("failed to list %s matches: %w", kind, err)
	}
	defer rows.Close()

	withServiceType := kind == CandidateServiceRequest

	for rows.Next() {
		var m MatchRecord
		var c Candidate
		dest := []interface{}{
			&m.CandidateID, &m.DriverID, &m.MatchType, &m.DistanceMeters, &m.MatchScore, &m.CreatedAt,
			&c.ID, &c.Status, &c.AssignedDriverID, &c.Lat, &c.Lng, &c.CityLabel, &c.StateLabel,
			&c.CityRefID,
		}
		if withServiceType {
			dest = append(dest, &c.ServiceType)
		}
		dest = append(dest, &c.CreatedAt)

		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan %s match: %w", kind, err)
		}
		m.CandidateKind = kind
		c.Kind = kind
		*matches = append(*matches, m)
		*candidates = append(*candidates, c)
	}

	return rows.Err()
}

func scanCandidates(rows pgx.Rows, kind CandidateKind, withServiceType bool) ([]Candidate, error) {
	candidates := make([]Candidate, 0)
	for rows.Next() {
		var c Candidate
		dest := []interface{}{
			&c.ID, &c.Status, &c.AssignedDriverID, &c.Lat, &c.Lng,
			&c.CityLabel, &c.StateLabel, &c.CityRefID,
		}
		if withServiceType {
			dest = append(dest, &c.ServiceType)
		}
		dest = append(dest, &c.CreatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.Kind = kind
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func matchTable(kind CandidateKind) string {
	if kind == CandidateServiceRequest {
		return "service_request_matches"
	}
	return "freight_matches"
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
