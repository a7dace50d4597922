package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

type pgParkingSpaceRepository struct {
	db *sql.DB
}

func NewPgParkingSpaceRepository(db *sql.DB) repository.ParkingSpaceRepository {
	return &pgParkingSpaceRepository{db: db}
}

const spaceColumns = `id, space_identifier, vehicle_class, occupied, active,
	last_change_source, last_occupied_change_time, created_at, updated_at`

func (r *pgParkingSpaceRepository) Create(ctx context.Context, space *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	query := `INSERT INTO parking_spaces (space_identifier, vehicle_class, occupied, active, last_change_source)
	           VALUES ($1, $2, FALSE, $3, 'admin_creation')
	           RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, space.SpaceIdentifier, space.VehicleClass, space.Active).
		Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: space '%s'", repository.ErrDuplicateEntry, space.SpaceIdentifier)
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.Create: %w", err)
	}
	space.Occupied = false
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindByID(ctx context.Context, id int) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&space.ID, &space.SpaceIdentifier, &space.VehicleClass, &space.Occupied, &space.Active,
		&space.LastChangeSource, &space.LastOccupiedChangeTime, &space.CreatedAt, &space.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.FindByID: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) FindAll(ctx context.Context) ([]domain.ParkingSpace, error) {
	query := `SELECT ` + spaceColumns + ` FROM parking_spaces ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var spaces []domain.ParkingSpace
	for rows.Next() {
		var space domain.ParkingSpace
		if err := rows.Scan(
			&space.ID, &space.SpaceIdentifier, &space.VehicleClass, &space.Occupied, &space.Active,
			&space.LastChangeSource, &space.LastOccupiedChangeTime, &space.CreatedAt, &space.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ParkingSpaceRepository.FindAll (scanning row): %w", err)
		}
		space.CreatedAt = space.CreatedAt.In(time.UTC)
		space.UpdatedAt = space.UpdatedAt.In(time.UTC)
		spaces = append(spaces, space)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpaceRepository.FindAll (rows error): %w", err)
	}
	return spaces, nil
}

// ReserveFirstAvailable claims the lowest-id compatible free space in a
// single statement. FOR UPDATE SKIP LOCKED keeps concurrent entry lanes from
// racing on the same row; ties always resolve to the lowest id so allocation
// stays deterministic.
func (r *pgParkingSpaceRepository) ReserveFirstAvailable(ctx context.Context, class domain.VehicleClass, source string) (*domain.ParkingSpace, error) {
	space := &domain.ParkingSpace{}
	query := `UPDATE parking_spaces
	           SET occupied = TRUE, last_change_source = $2, last_occupied_change_time = CURRENT_TIMESTAMP,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = (
	               SELECT id FROM parking_spaces
	               WHERE vehicle_class = $1 AND active = TRUE AND occupied = FALSE
	               ORDER BY id
	               LIMIT 1
	               FOR UPDATE SKIP LOCKED
	           )
	           RETURNING ` + spaceColumns

	err := r.db.QueryRowContext(ctx, query, class, source).Scan(
		&space.ID, &space.SpaceIdentifier, &space.VehicleClass, &space.Occupied, &space.Active,
		&space.LastChangeSource, &space.LastOccupiedChangeTime, &space.CreatedAt, &space.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoSpaceAvailable
		}
		return nil, fmt.Errorf("ParkingSpaceRepository.ReserveFirstAvailable: %w", err)
	}
	space.CreatedAt = space.CreatedAt.In(time.UTC)
	space.UpdatedAt = space.UpdatedAt.In(time.UTC)
	return space, nil
}

func (r *pgParkingSpaceRepository) Release(ctx context.Context, id int, source string) error {
	query := `UPDATE parking_spaces
	           SET occupied = FALSE, last_change_source = $2, last_occupied_change_time = CURRENT_TIMESTAMP,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, source)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Release: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.Release (rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgParkingSpaceRepository) SetActive(ctx context.Context, id int, active bool) error {
	query := `UPDATE parking_spaces
	           SET active = $2, last_change_source = 'admin_update', updated_at = CURRENT_TIMESTAMP
	           WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.SetActive: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingSpaceRepository.SetActive (rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
