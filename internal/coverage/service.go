package coverage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rotafrete/freight-marketplace/pkg/common"
)

// RepositoryInterface lets tests substitute a mock.
type RepositoryInterface interface {
	ResolveCity(ctx context.Context, name, state string) (uuid.UUID, error)
	CreateArea(ctx context.Context, area *Area) error
	ListAreasByDriver(ctx context.Context, driverID uuid.UUID) ([]*Area, error)
	GetAreaByID(ctx context.Context, id uuid.UUID) (*Area, error)
	UpdateArea(ctx context.Context, area *Area) error
	DeleteArea(ctx context.Context, id, driverID uuid.UUID) error
}

// Service handles business logic for coverage areas
type Service struct {
	repo            RepositoryInterface
	defaultRadiusKm float64
	maxRadiusKm     float64
}

// NewService creates a new coverage service
func NewService(repo RepositoryInterface, defaultRadiusKm float64) *Service {
	return &Service{
		repo:            repo,
		defaultRadiusKm: defaultRadiusKm,
		maxRadiusKm:     500,
	}
}

// CreateArea declares a new coverage area for the driver. The city must
// resolve against the canonical cities table; the radius falls back to the
// marketplace default when unset.
func (s *Service) CreateArea(ctx context.Context, driverID uuid.UUID, req CreateAreaRequest) (*Area, error) {
	radius := req.RadiusKm
	if radius == 0 {
		radius = s.defaultRadiusKm
	}
	if radius < 0 || radius > s.maxRadiusKm {
		return nil, common.NewValidationError("radius_km out of range")
	}

	cityID, err := s.repo.ResolveCity(ctx, req.CityName, req.CityState)
	if err != nil {
		if errors.Is(err, ErrCityNotFound) {
			return nil, common.NewNotFoundError("city not found", err)
		}
		return nil, err
	}

	area := &Area{
		ID:       uuid.New(),
		DriverID: driverID,
		CityID:   cityID,
		RadiusKm: radius,
		Kind:     req.Kind,
	}
	if err := s.repo.CreateArea(ctx, area); err != nil {
		return nil, err
	}
	area.CityName = req.CityName
	area.CityState = req.CityState
	return area, nil
}

// ListAreas returns all of the driver's areas.
func (s *Service) ListAreas(ctx context.Context, driverID uuid.UUID) ([]*Area, error) {
	return s.repo.ListAreasByDriver(ctx, driverID)
}

// UpdateArea adjusts radius or active flag on an area the driver owns.
func (s *Service) UpdateArea(ctx context.Context, id, driverID uuid.UUID, req UpdateAreaRequest) (*Area, error) {
	area, err := s.repo.GetAreaByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAreaNotFound) {
			return nil, common.NewNotFoundError("coverage area not found", err)
		}
		return nil, err
	}
	if area.DriverID != driverID {
		return nil, common.NewForbiddenError("coverage area belongs to another driver")
	}

	if req.RadiusKm != nil {
		if *req.RadiusKm <= 0 || *req.RadiusKm > s.maxRadiusKm {
			return nil, common.NewValidationError("radius_km out of range")
		}
		area.RadiusKm = *req.RadiusKm
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateArea(ctx, area); err != nil {
		return nil, err
	}
	return area, nil
}

// DeleteArea removes an area the driver owns.
func (s *Service) DeleteArea(ctx context.Context, id, driverID uuid.UUID) error {
	err := s.repo.DeleteArea(ctx, id, driverID)
	if errors.Is(err, ErrAreaNotFound) {
		return common.NewNotFoundError("coverage area not found", err)
	}
	return err
}
