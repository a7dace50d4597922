package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

type pgParkingSessionRepository struct {
	db *sql.DB
}

func NewPgParkingSessionRepository(db *sql.DB) repository.ParkingSessionRepository {
	return &pgParkingSessionRepository{db: db}
}

const sessionColumns = `id, plate, vehicle_class, space_id, ticket_code, entry_time, exit_time,
	status, fee, rate_schedule_id, payment_status, payment_method,
	entry_image_ref, exit_image_ref, created_at, updated_at`

func (r *pgParkingSessionRepository) Create(ctx context.Context, session *domain.ParkingSession) error {
	query := `INSERT INTO parking_sessions
	           (id, plate, vehicle_class, space_id, ticket_code, entry_time, status,
	            fee, rate_schedule_id, payment_status, payment_method, entry_image_ref, created_at, updated_at)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.ID, session.Plate, session.VehicleClass, session.SpaceID, session.TicketCode,
		session.EntryTime, session.Status, session.Fee, session.RateScheduleID,
		session.PaymentStatus, session.PaymentMethod, session.EntryImageRef,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if strings.Contains(pqErr.Constraint, "ticket_code") {
				return fmt.Errorf("%w: ticket code '%s'", repository.ErrDuplicateEntry, session.TicketCode)
			}
			return fmt.Errorf("%w: session '%s'", repository.ErrDuplicateEntry, session.ID)
		}
		return fmt.Errorf("ParkingSessionRepository.Create: %w", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSessionRepository) Update(ctx context.Context, session *domain.ParkingSession) error {
	query := `UPDATE parking_sessions
	           SET space_id = $1, exit_time = $2, status = $3, fee = $4, rate_schedule_id = $5,
	               payment_status = $6, payment_method = $7, entry_image_ref = $8, exit_image_ref = $9,
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = $10
	           RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.SpaceID, session.ExitTime, session.Status, session.Fee, session.RateScheduleID,
		session.PaymentStatus, session.PaymentMethod, session.EntryImageRef, session.ExitImageRef,
		session.ID,
	).Scan(&session.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("ParkingSessionRepository.Update: %w", err)
	}
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return nil
}

func (r *pgParkingSessionRepository) FindByID(ctx context.Context, id string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgParkingSessionRepository) FindByTicketCode(ctx context.Context, code string) (*domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ticket_code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code), "FindByTicketCode")
}

func (r *pgParkingSessionRepository) HasActiveSession(ctx context.Context, plate string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM parking_sessions WHERE plate = $1 AND status = ANY($2))`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, plate, pq.Array(statusStrings(domain.NonTerminalStatuses))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ParkingSessionRepository.HasActiveSession: %w", err)
	}
	return exists, nil
}

func (r *pgParkingSessionRepository) TicketCodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM parking_sessions WHERE ticket_code = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("ParkingSessionRepository.TicketCodeExists: %w", err)
	}
	return exists, nil
}

func (r *pgParkingSessionRepository) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	baseQuery := `SELECT ` + sessionColumns + ` FROM parking_sessions`

	var conditions []string
	var args []interface{}
	argID := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Plate != nil {
		conditions = append(conditions, fmt.Sprintf("plate = $%d", argID))
		args = append(args, domain.NormalizePlate(*filter.Plate))
		argID++
	}

	query := baseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY entry_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.Find: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows, "Find")
}

func (r *pgParkingSessionRepository) FindStuck(ctx context.Context, statuses []domain.SessionStatus, cutoff time.Time) ([]domain.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
	           WHERE status = ANY($1) AND updated_at < $2
	           ORDER BY updated_at ASC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(statusStrings(statuses)), cutoff)
	if err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.FindStuck: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows, "FindStuck")
}

func (r *pgParkingSessionRepository) scanOne(row *sql.Row, op string) (*domain.ParkingSession, error) {
	session := &domain.ParkingSession{}
	err := row.Scan(
		&session.ID, &session.Plate, &session.VehicleClass, &session.SpaceID, &session.TicketCode,
		&session.EntryTime, &session.ExitTime, &session.Status, &session.Fee, &session.RateScheduleID,
		&session.PaymentStatus, &session.PaymentMethod, &session.EntryImageRef, &session.ExitImageRef,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingSessionRepository.%s: %w", op, err)
	}
	normalizeSessionTimes(session)
	return session, nil
}

func (r *pgParkingSessionRepository) scanMany(rows *sql.Rows, op string) ([]domain.ParkingSession, error) {
	var sessions []domain.ParkingSession
	for rows.Next() {
		var session domain.ParkingSession
		if err := rows.Scan(
			&session.ID, &session.Plate, &session.VehicleClass, &session.SpaceID, &session.TicketCode,
			&session.EntryTime, &session.ExitTime, &session.Status, &session.Fee, &session.RateScheduleID,
			&session.PaymentStatus, &session.PaymentMethod, &session.EntryImageRef, &session.ExitImageRef,
			&session.CreatedAt, &session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ParkingSessionRepository.%s (scanning row): %w", op, err)
		}
		normalizeSessionTimes(&session)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSessionRepository.%s (rows error): %w", op, err)
	}
	return sessions, nil
}

func normalizeSessionTimes(session *domain.ParkingSession) {
	session.EntryTime = session.EntryTime.In(time.UTC)
	if session.ExitTime.Valid {
		session.ExitTime.Time = session.ExitTime.Time.In(time.UTC)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
}

func statusStrings(statuses []domain.SessionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
