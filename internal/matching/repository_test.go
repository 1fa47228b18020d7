package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewRepository(pool), pool
}

func matchRow(driverID uuid.UUID) MatchRecord {
	return MatchRecord{
		CandidateID:    uuid.New(),
		DriverID:       driverID,
		CandidateKind:  CandidateFreight,
		MatchType:      MatchSpatialRadius,
		DistanceMeters: 4200,
		MatchScore:     0.916,
	}
}

func TestListOpenFreights_OnlyOpenUnassigned(t *testing.T) {
	repo, pool := newMockRepository(t)

	id := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "status", "assigned_driver_id", "lat", "lng",
		"city_label", "state_label", "city_ref_id", "created_at",
	}).AddRow(id, StatusOpen, nil, f64Ptr(-23.55), f64Ptr(-46.63), nil, nil, nil, time.Now())

	pool.ExpectQuery(`FROM freights\s+WHERE status = 'OPEN' AND assigned_driver_id IS NULL`).
		WithArgs(200).
		WillReturnRows(rows)

	candidates, err := repo.ListOpenFreights(context.Background(), 200)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, id, candidates[0].ID)
	assert.Equal(t, CandidateFreight, candidates[0].Kind)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestListOpenServiceRequests_FiltersByServiceType(t *testing.T) {
	repo, pool := newMockRepository(t)

	allowList := []string{"GUINCHO", "MOTO"}
	id := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "status", "assigned_driver_id", "lat", "lng",
		"city_label", "state_label", "city_ref_id", "service_type", "created_at",
	}).AddRow(id, StatusOpen, nil, nil, nil, strPtr("São Paulo"), strPtr("SP"), nil, strPtr("GUINCHO"), time.Now())

	pool.ExpectQuery(`FROM service_requests\s+WHERE status = 'OPEN' AND assigned_driver_id IS NULL\s+AND service_type = ANY\(\$2\)`).
		WithArgs(200, allowList).
		WillReturnRows(rows)

	candidates, err := repo.ListOpenServiceRequests(context.Background(), 200, allowList)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].ServiceType)
	assert.Equal(t, "GUINCHO", *candidates[0].ServiceType)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestListOpenMatches_DropsCandidatesNoLongerOpen(t *testing.T) {
	repo, pool := newMockRepository(t)

	driverID := uuid.New()
	candidateID := uuid.New()
	now := time.Now()

	// Rows whose candidate left OPEN never come back: filtered in SQL.
	freightRows := pgxmock.NewRows([]string{
		"candidate_id", "driver_id", "match_type", "distance_meters", "match_score", "m_created_at",
		"id", "status", "assigned_driver_id", "lat", "lng", "city_label", "state_label",
		"city_ref_id", "created_at",
	}).AddRow(candidateID, driverID, MatchSpatialRadius, 4200, 0.916, now,
		candidateID, StatusOpen, nil, f64Ptr(-23.55), f64Ptr(-46.63), nil, nil, nil, now)

	serviceRows := pgxmock.NewRows([]string{
		"candidate_id", "driver_id", "match_type", "distance_meters", "match_score", "m_created_at",
		"id", "status", "assigned_driver_id", "lat", "lng", "city_label", "state_label",
		"city_ref_id", "service_type", "created_at",
	})

	pool.ExpectQuery(`WHERE m\.driver_id = \$1 AND f\.status = 'OPEN'`).
		WithArgs(driverID).
		WillReturnRows(freightRows)
	pool.ExpectQuery(`WHERE m\.driver_id = \$1 AND s\.status = 'OPEN'`).
		WithArgs(driverID).
		WillReturnRows(serviceRows)

	current, err := repo.ListOpenMatches(context.Background(), driverID)

	require.NoError(t, err)
	require.Len(t, current.FreightMatches, 1)
	assert.Equal(t, candidateID, current.FreightMatches[0].CandidateID)
	assert.Empty(t, current.ServiceRequestMatches)
	assert.Empty(t, current.ServiceRequests)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceDriverMatches_SingleTransaction(t *testing.T) {
	repo, pool := newMockRepository(t)

	driverID := uuid.New()
	row := matchRow(driverID)

	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM freight_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	pool.ExpectExec(`DELETE FROM service_request_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	batch := pool.ExpectBatch()
	batch.ExpectExec(`INSERT INTO freight_matches`).
		WithArgs(row.CandidateID, row.DriverID, row.MatchType, row.DistanceMeters, row.MatchScore).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectCommit()

	freightRes, serviceRes, err := repo.ReplaceDriverMatches(context.Background(), driverID, []MatchRecord{row}, nil)

	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Succeeded: 1}, freightRes)
	assert.Equal(t, UpsertResult{}, serviceRes)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestReplaceDriverMatches_RollsBackThenFallsBackRowByRow(t *testing.T) {
	repo, pool := newMockRepository(t)

	driverID := uuid.New()
	bad := matchRow(driverID)
	good := matchRow(driverID)

	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM freight_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec(`DELETE FROM service_request_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	batch := pool.ExpectBatch()
	batch.ExpectExec(`INSERT INTO freight_matches`).
		WithArgs(bad.CandidateID, bad.DriverID, bad.MatchType, bad.DistanceMeters, bad.MatchScore).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec(`INSERT INTO freight_matches`).
		WithArgs(good.CandidateID, good.DriverID, good.MatchType, good.DistanceMeters, good.MatchScore).
		WillReturnError(errors.New("malformed row"))
	pool.ExpectRollback()

	// Fallback: clear in its own transaction, then insert one row at a time.
	pool.ExpectBegin()
	pool.ExpectExec(`DELETE FROM freight_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	pool.ExpectExec(`DELETE FROM service_request_matches WHERE driver_id = \$1`).
		WithArgs(driverID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pool.ExpectCommit()

	pool.ExpectExec(`INSERT INTO freight_matches`).
		WithArgs(bad.CandidateID, bad.DriverID, bad.MatchType, bad.DistanceMeters, bad.MatchScore).
		WillReturnError(errors.New("malformed row"))
	pool.ExpectExec(`INSERT INTO freight_matches`).
		WithArgs(good.CandidateID, good.DriverID, good.MatchType, good.DistanceMeters, good.MatchScore).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	freightRes, serviceRes, err := repo.ReplaceDriverMatches(context.Background(), driverID, []MatchRecord{bad, good}, nil)

	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Succeeded: 1, Failed: 1}, freightRes)
	assert.Equal(t, UpsertResult{}, serviceRes)
	require.NoError(t, pool.ExpectationsWereMet())
}
