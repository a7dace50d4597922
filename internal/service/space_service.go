package service

import (
	"context"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

// ParkingSpaceService covers the admin surface for spaces. Occupancy is
// never mutated here; only SessionService flips it, as part of the entry
// and completion flows.
type ParkingSpaceService struct {
	spaces repository.ParkingSpaceRepository
}

func NewParkingSpaceService(spaces repository.ParkingSpaceRepository) *ParkingSpaceService {
	return &ParkingSpaceService{spaces: spaces}
}

func (s *ParkingSpaceService) Create(ctx context.Context, dto domain.ParkingSpaceDTO) (*domain.ParkingSpace, error) {
	class := domain.VehicleClass(dto.VehicleClass)
	if !class.Valid() {
		return nil, ErrInvalidVehicleClass
	}
	active := true
	if dto.Active != nil {
		active = *dto.Active
	}
	space := &domain.ParkingSpace{
		SpaceIdentifier: dto.SpaceIdentifier,
		VehicleClass:    class,
		Active:          active,
	}
	return s.spaces.Create(ctx, space)
}

func (s *ParkingSpaceService) List(ctx context.Context) ([]domain.ParkingSpace, error) {
	return s.spaces.FindAll(ctx)
}

func (s *ParkingSpaceService) Get(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	return s.spaces.FindByID(ctx, id)
}

// SetActive takes a space in or out of service for maintenance. An occupied
// space may be deactivated; it simply stops being allocatable once freed.
func (s *ParkingSpaceService) SetActive(ctx context.Context, id int, active bool) error {
	return s.spaces.SetActive(ctx, id, active)
}
