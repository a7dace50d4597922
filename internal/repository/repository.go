package repository

import (
	"context"
	"errors"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateEntry         = errors.New("record already exists")
	ErrNoSpaceAvailable       = errors.New("no compatible parking space available")
	ErrDuplicateActiveSession = errors.New("vehicle already has an active session")
	ErrNoActiveSchedule       = errors.New("no active rate schedule for vehicle class")
	ErrScheduleReferenced     = errors.New("rate schedule already referenced by billing, create a new version instead")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

type ParkingSessionRepository interface {
	Create(ctx context.Context, session *domain.ParkingSession) error
	Update(ctx context.Context, session *domain.ParkingSession) error
	FindByID(ctx context.Context, id string) (*domain.ParkingSession, error)
	FindByTicketCode(ctx context.Context, code string) (*domain.ParkingSession, error)
	// HasActiveSession reports whether any session for the plate is in a
	// non-terminal status. Must be evaluated inside the same serialization
	// boundary as the space reservation.
	HasActiveSession(ctx context.Context, plate string) (bool, error)
	TicketCodeExists(ctx context.Context, code string) (bool, error)
	Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error)
	// FindStuck returns sessions sitting in one of the given statuses since
	// before the cutoff; used by the expiry sweep.
	FindStuck(ctx context.Context, statuses []domain.SessionStatus, cutoff time.Time) ([]domain.ParkingSession, error)
}

type ParkingSpaceRepository interface {
	Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error)
	FindAll(ctx context.Context) ([]domain.ParkingSpace, error)
	// ReserveFirstAvailable atomically claims the lowest-id active, vacant
	// space compatible with the class, returning ErrNoSpaceAvailable when
	// none exists. The claim and the occupied flag flip are one statement.
	ReserveFirstAvailable(ctx context.Context, class domain.VehicleClass, source string) (*domain.ParkingSpace, error)
	// Release clears the occupied flag. Safe to call on an already-free space.
	Release(ctx context.Context, id int, source string) error
	SetActive(ctx context.Context, id int, active bool) error
}

type RateScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.RateSchedule) (*domain.RateSchedule, error)
	FindByID(ctx context.Context, id int) (*domain.RateSchedule, error)
	FindAll(ctx context.Context) ([]domain.RateSchedule, error)
	// FindActive resolves the schedule in effect for the class at the given
	// instant, returning ErrNoActiveSchedule when none matches.
	FindActive(ctx context.Context, class domain.VehicleClass, at time.Time) (*domain.RateSchedule, error)
}

type HardwareEventLogRepository interface {
	Create(ctx context.Context, event *domain.HardwareEventLog) error
}
