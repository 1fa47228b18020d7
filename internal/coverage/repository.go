package coverage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCityNotFound is returned when a city name/state pair has no canonical row.
var ErrCityNotFound = errors.New("city not found")

// ErrAreaNotFound is returned when an area id does not exist.
var ErrAreaNotFound = errors.New("coverage area not found")

// Repository handles database operations for coverage areas
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new coverage repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ResolveCity finds the canonical city id for a name/state pair,
// case-insensitively.
func (r *Repository) ResolveCity(ctx context.Context, name, state string) (uuid.UUID, error) {
	query := `
		SELECT id FROM cities
		WHERE lower(name) = lower(trim($1)) AND upper(state) = upper(trim($2))
	`
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, name, state).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrCityNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve city: %w", err)
	}
	return id, nil
}

// CreateArea inserts a coverage area and returns the stored row.
func (r *Repository) CreateArea(ctx context.Context, area *Area) error {
	query := `
		INSERT INTO coverage_areas (id, driver_id, city_id, radius_km, kind, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		area.ID, area.DriverID, area.CityID, area.RadiusKm, area.Kind,
	).Scan(&area.CreatedAt, &area.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create coverage area: %w", err)
	}
	area.IsActive = true
	return nil
}

// ListAreasByDriver returns all of a driver's areas, active or not, in
// creation order.
func (r *Repository) ListAreasByDriver(ctx context.Context, driverID uuid.UUID) ([]*Area, error) {
	query := `
		SELECT ca.id, ca.driver_id, ca.city_id, c.name, c.state,
		       ca.radius_km, ca.kind, ca.is_active, ca.created_at, ca.updated_at
		FROM coverage_areas ca
		JOIN cities c ON c.id = ca.city_id
		WHERE ca.driver_id = $1
		ORDER BY ca.created_at, ca.id
	`
	rows, err := r.db.Query(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list coverage areas: %w", err)
	}
	defer rows.Close()

	areas := make([]*Area, 0)
	for rows.Next() {
		a := &Area{}
		err := rows.Scan(
			&a.ID, &a.DriverID, &a.CityID, &a.CityName, &a.CityState,
			&a.RadiusKm, &a.Kind, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coverage area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

// GetAreaByID returns a single area.
func (r *Repository) GetAreaByID(ctx context.Context, id uuid.UUID) (*Area, error) {
	query := `
		SELECT ca.id, ca.driver_id, ca.city_id, c.name, c.state,
		       ca.radius_km, ca.kind, ca.is_active, ca.created_at, ca.updated_at
		FROM coverage_areas ca
		JOIN cities c ON c.id = ca.city_id
		WHERE ca.id = $1
	`
	a := &Area{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.DriverID, &a.CityID, &a.CityName, &a.CityState,
		&a.RadiusKm, &a.Kind, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAreaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coverage area: %w", err)
	}
	return a, nil
}

// UpdateArea persists radius/active changes.
func (r *Repository) UpdateArea(ctx context.Context, area *Area) error {
	query := `
		UPDATE coverage_areas
		SET radius_km = $2, is_active = $3, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, area.ID, area.RadiusKm, area.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update coverage area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAreaNotFound
	}
	return nil
}

// DeleteArea removes an area owned by the driver.
func (r *Repository) DeleteArea(ctx context.Context, id, driverID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM coverage_areas WHERE id = $1 AND driver_id = $2`, id, driverID)
	if err != nil {
		return fmt.Errorf("failed to delete coverage area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAreaNotFound
	}
	return nil
}
