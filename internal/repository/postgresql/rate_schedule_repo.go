package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

type pgRateScheduleRepository struct {
	db *sql.DB
}

func NewPgRateScheduleRepository(db *sql.DB) repository.RateScheduleRepository {
	return &pgRateScheduleRepository{db: db}
}

const scheduleColumns = `id, vehicle_class, base_rate, hourly_rate, additional_hour_rate,
	additional_hour_after, daily_cap, weekly_rate, monthly_rate, penalty_rate,
	max_stay_hours, effective_from, effective_to, active, created_by, created_at`

func (r *pgRateScheduleRepository) Create(ctx context.Context, schedule *domain.RateSchedule) (*domain.RateSchedule, error) {
	// Rows already priced into completed sessions are immutable; a new
	// version closes the previous open-ended schedule for the class.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.Create (begin tx): %w", err)
	}
	defer tx.Rollback()

	closeQuery := `UPDATE rate_schedules
	                SET effective_to = $2
	                WHERE vehicle_class = $1 AND active = TRUE AND effective_to IS NULL AND effective_from < $2`
	if _, err = tx.ExecContext(ctx, closeQuery, schedule.VehicleClass, schedule.EffectiveFrom); err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.Create (closing previous version): %w", err)
	}

	insertQuery := `INSERT INTO rate_schedules
	                 (vehicle_class, base_rate, hourly_rate, additional_hour_rate, additional_hour_after,
	                  daily_cap, weekly_rate, monthly_rate, penalty_rate, max_stay_hours,
	                  effective_from, effective_to, active, created_by)
	                 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13)
	                 RETURNING id, created_at`
	err = tx.QueryRowContext(ctx, insertQuery,
		schedule.VehicleClass, schedule.BaseRate, schedule.HourlyRate, schedule.AdditionalHourRate,
		schedule.AdditionalHourAfter, schedule.DailyCap, schedule.WeeklyRate, schedule.MonthlyRate,
		schedule.PenaltyRate, schedule.MaxStayHours, schedule.EffectiveFrom, schedule.EffectiveTo,
		schedule.CreatedBy,
	).Scan(&schedule.ID, &schedule.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.Create: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.Create (commit): %w", err)
	}
	schedule.Active = true
	schedule.CreatedAt = schedule.CreatedAt.In(time.UTC)
	return schedule, nil
}

func (r *pgRateScheduleRepository) FindByID(ctx context.Context, id int) (*domain.RateSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM rate_schedules WHERE id = $1`
	return scanSchedule(r.db.QueryRowContext(ctx, query, id), "FindByID")
}

func (r *pgRateScheduleRepository) FindAll(ctx context.Context) ([]domain.RateSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM rate_schedules ORDER BY vehicle_class, effective_from DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var schedules []domain.RateSchedule
	for rows.Next() {
		var s domain.RateSchedule
		if err := rows.Scan(
			&s.ID, &s.VehicleClass, &s.BaseRate, &s.HourlyRate, &s.AdditionalHourRate,
			&s.AdditionalHourAfter, &s.DailyCap, &s.WeeklyRate, &s.MonthlyRate, &s.PenaltyRate,
			&s.MaxStayHours, &s.EffectiveFrom, &s.EffectiveTo, &s.Active, &s.CreatedBy, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("RateScheduleRepository.FindAll (scanning row): %w", err)
		}
		normalizeScheduleTimes(&s)
		schedules = append(schedules, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("RateScheduleRepository.FindAll (rows error): %w", err)
	}
	return schedules, nil
}

func (r *pgRateScheduleRepository) FindActive(ctx context.Context, class domain.VehicleClass, at time.Time) (*domain.RateSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM rate_schedules
	           WHERE vehicle_class = $1 AND active = TRUE
	             AND effective_from <= $2
	             AND (effective_to IS NULL OR effective_to > $2)
	           ORDER BY effective_from DESC
	           LIMIT 1`
	schedule, err := scanSchedule(r.db.QueryRowContext(ctx, query, class, at), "FindActive")
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNoActiveSchedule
		}
		return nil, err
	}
	return schedule, nil
}

func scanSchedule(row *sql.Row, op string) (*domain.RateSchedule, error) {
	s := &domain.RateSchedule{}
	err := row.Scan(
		&s.ID, &s.VehicleClass, &s.BaseRate, &s.HourlyRate, &s.AdditionalHourRate,
		&s.AdditionalHourAfter, &s.DailyCap, &s.WeeklyRate, &s.MonthlyRate, &s.PenaltyRate,
		&s.MaxStayHours, &s.EffectiveFrom, &s.EffectiveTo, &s.Active, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("RateScheduleRepository.%s: %w", op, err)
	}
	normalizeScheduleTimes(s)
	return s, nil
}

func normalizeScheduleTimes(s *domain.RateSchedule) {
	s.EffectiveFrom = s.EffectiveFrom.In(time.UTC)
	if s.EffectiveTo.Valid {
		s.EffectiveTo.Time = s.EffectiveTo.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
}
