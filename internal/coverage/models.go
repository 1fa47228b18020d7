package coverage

import (
	"time"

	"github.com/google/uuid"
)

// Area is a driver-declared operating area row. The matching engine reads
// these through its own repository; this package owns the write side.
type Area struct {
	ID        uuid.UUID `json:"id" db:"id"`
	DriverID  uuid.UUID `json:"driver_id" db:"driver_id"`
	CityID    uuid.UUID `json:"city_id" db:"city_id"`
	CityName  string    `json:"city_name" db:"city_name"`
	CityState string    `json:"city_state" db:"city_state"`
	RadiusKm  float64   `json:"radius_km" db:"radius_km"`
	Kind      string    `json:"kind" db:"kind"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateAreaRequest declares a new coverage area. City is resolved against
// the canonical cities table by name and state.
type CreateAreaRequest struct {
	CityName  string  `json:"city_name" binding:"required"`
	CityState string  `json:"city_state" binding:"required"`
	RadiusKm  float64 `json:"radius_km"`
	Kind      string  `json:"kind" binding:"required,oneof=ORIGIN DESTINATION"`
}

// UpdateAreaRequest adjusts an existing area.
type UpdateAreaRequest struct {
	RadiusKm *float64 `json:"radius_km,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}
