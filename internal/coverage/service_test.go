package coverage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rotafrete/freight-marketplace/pkg/common"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ResolveCity(ctx context.Context, name, state string) (uuid.UUID, error) {
	args := m.Called(ctx, name, state)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) CreateArea(ctx context.Context, area *Area) error {
	args := m.Called(ctx, area)
	return args.Error(0)
}

func (m *mockRepository) ListAreasByDriver(ctx context.Context, driverID uuid.UUID) ([]*Area, error) {
	args := m.Called(ctx, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Area), args.Error(1)
}

func (m *mockRepository) GetAreaByID(ctx context.Context, id uuid.UUID) (*Area, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Area), args.Error(1)
}

func (m *mockRepository) UpdateArea(ctx context.Context, area *Area) error {
	args := m.Called(ctx, area)
	return args.Error(0)
}

func (m *mockRepository) DeleteArea(ctx context.Context, id, driverID uuid.UUID) error {
	args := m.Called(ctx, id, driverID)
	return args.Error(0)
}

func TestCreateArea_Success(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	driverID := uuid.New()
	cityID := uuid.New()
	repo.On("ResolveCity", mock.Anything, "Campinas", "SP").Return(cityID, nil)
	repo.On("CreateArea", mock.Anything, mock.MatchedBy(func(a *Area) bool {
		return a.DriverID == driverID && a.CityID == cityID && a.RadiusKm == 80 && a.Kind == "ORIGIN"
	})).Return(nil)

	area, err := svc.CreateArea(context.Background(), driverID, CreateAreaRequest{
		CityName:  "Campinas",
		CityState: "SP",
		RadiusKm:  80,
		Kind:      "ORIGIN",
	})

	require.NoError(t, err)
	assert.Equal(t, "Campinas", area.CityName)
	assert.Equal(t, 80.0, area.RadiusKm)
	repo.AssertExpectations(t)
}

func TestCreateArea_DefaultRadius(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	repo.On("ResolveCity", mock.Anything, mock.Anything, mock.Anything).Return(uuid.New(), nil)
	repo.On("CreateArea", mock.Anything, mock.MatchedBy(func(a *Area) bool {
		return a.RadiusKm == 50
	})).Return(nil)

	_, err := svc.CreateArea(context.Background(), uuid.New(), CreateAreaRequest{
		CityName:  "Sorocaba",
		CityState: "SP",
		Kind:      "DESTINATION",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateArea_RadiusOutOfRange(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	_, err := svc.CreateArea(context.Background(), uuid.New(), CreateAreaRequest{
		CityName:  "Campinas",
		CityState: "SP",
		RadiusKm:  900,
		Kind:      "ORIGIN",
	})

	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	repo.AssertNotCalled(t, "ResolveCity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateArea_UnknownCity(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	repo.On("ResolveCity", mock.Anything, "Atlantis", "SP").Return(uuid.Nil, ErrCityNotFound)

	_, err := svc.CreateArea(context.Background(), uuid.New(), CreateAreaRequest{
		CityName:  "Atlantis",
		CityState: "SP",
		Kind:      "ORIGIN",
	})

	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestUpdateArea_OwnershipEnforced(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	areaID := uuid.New()
	owner := uuid.New()
	repo.On("GetAreaByID", mock.Anything, areaID).Return(&Area{ID: areaID, DriverID: owner}, nil)

	stranger := uuid.New()
	newRadius := 30.0
	_, err := svc.UpdateArea(context.Background(), areaID, stranger, UpdateAreaRequest{RadiusKm: &newRadius})

	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusForbidden, appErr.Code)
	repo.AssertNotCalled(t, "UpdateArea", mock.Anything, mock.Anything)
}

func TestUpdateArea_TogglesActiveFlag(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	areaID := uuid.New()
	driverID := uuid.New()
	repo.On("GetAreaByID", mock.Anything, areaID).
		Return(&Area{ID: areaID, DriverID: driverID, RadiusKm: 50, IsActive: true}, nil)
	repo.On("UpdateArea", mock.Anything, mock.MatchedBy(func(a *Area) bool {
		return !a.IsActive && a.RadiusKm == 50
	})).Return(nil)

	inactive := false
	area, err := svc.UpdateArea(context.Background(), areaID, driverID, UpdateAreaRequest{IsActive: &inactive})

	require.NoError(t, err)
	assert.False(t, area.IsActive)
	repo.AssertExpectations(t)
}

func TestUpdateArea_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	areaID := uuid.New()
	repo.On("GetAreaByID", mock.Anything, areaID).Return(nil, ErrAreaNotFound)

	_, err := svc.UpdateArea(context.Background(), areaID, uuid.New(), UpdateAreaRequest{})

	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestDeleteArea_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	areaID := uuid.New()
	driverID := uuid.New()
	repo.On("DeleteArea", mock.Anything, areaID, driverID).Return(ErrAreaNotFound)

	err := svc.DeleteArea(context.Background(), areaID, driverID)

	require.Error(t, err)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Code)
}

func TestDeleteArea_Success(t *testing.T) {
	repo := new(mockRepository)
	svc := NewService(repo, 50)

	areaID := uuid.New()
	driverID := uuid.New()
	repo.On("DeleteArea", mock.Anything, areaID, driverID).Return(nil)

	require.NoError(t, svc.DeleteArea(context.Background(), areaID, driverID))
	repo.AssertExpectations(t)
}
