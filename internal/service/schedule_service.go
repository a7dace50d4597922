package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

const scheduleCacheTTL = 5 * time.Minute

// RateScheduleService resolves and administers tariff schedules. Lookups of
// the currently active schedule are cached in Redis; when no Redis client
// is configured every lookup goes straight to the database.
type RateScheduleService struct {
	repo  repository.RateScheduleRepository
	cache *redis.Client // nil disables caching
}

func NewRateScheduleService(repo repository.RateScheduleRepository, cache *redis.Client) *RateScheduleService {
	return &RateScheduleService{repo: repo, cache: cache}
}

func (s *RateScheduleService) Create(ctx context.Context, dto domain.RateScheduleDTO, createdBy string) (*domain.RateSchedule, error) {
	effectiveFrom, err := time.Parse(time.RFC3339, dto.EffectiveFrom)
	if err != nil {
		return nil, fmt.Errorf("parsing effective_from: %w", err)
	}
	schedule := &domain.RateSchedule{
		VehicleClass:        domain.VehicleClass(dto.VehicleClass),
		BaseRate:            dto.BaseRate,
		HourlyRate:          dto.HourlyRate,
		AdditionalHourRate:  dto.AdditionalHourRate,
		AdditionalHourAfter: dto.AdditionalHourAfter,
		DailyCap:            dto.DailyCap,
		WeeklyRate:          dto.WeeklyRate,
		MonthlyRate:         dto.MonthlyRate,
		PenaltyRate:         dto.PenaltyRate,
		MaxStayHours:        dto.MaxStayHours,
		EffectiveFrom:       effectiveFrom.UTC(),
		CreatedBy:           createdBy,
	}
	if !schedule.VehicleClass.Valid() {
		return nil, ErrInvalidVehicleClass
	}
	if dto.EffectiveTo != "" {
		effectiveTo, err := time.Parse(time.RFC3339, dto.EffectiveTo)
		if err != nil {
			return nil, fmt.Errorf("parsing effective_to: %w", err)
		}
		schedule.EffectiveTo.SetValid(effectiveTo.UTC())
	}

	created, err := s.repo.Create(ctx, schedule)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, created.VehicleClass)
	return created, nil
}

func (s *RateScheduleService) List(ctx context.Context) ([]domain.RateSchedule, error) {
	return s.repo.FindAll(ctx)
}

func (s *RateScheduleService) Get(ctx context.Context, id int) (*domain.RateSchedule, error) {
	return s.repo.FindByID(ctx, id)
}

// ActiveFor resolves the schedule in effect for the class at the given
// instant, preferring the cache when the cached row still covers it.
func (s *RateScheduleService) ActiveFor(ctx context.Context, class domain.VehicleClass, at time.Time) (*domain.RateSchedule, error) {
	if cached := s.fromCache(ctx, class); cached != nil && cached.ActiveAt(at) {
		return cached, nil
	}

	schedule, err := s.repo.FindActive(ctx, class, at)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, schedule)
	return schedule, nil
}

func cacheKey(class domain.VehicleClass) string {
	return "rate_schedule:active:" + string(class)
}

func (s *RateScheduleService) fromCache(ctx context.Context, class domain.VehicleClass) *domain.RateSchedule {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, cacheKey(class)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("RateScheduleService: cache read failed: %v", err)
		}
		return nil
	}
	var schedule domain.RateSchedule
	if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
		log.Printf("RateScheduleService: malformed cache entry: %v", err)
		return nil
	}
	return &schedule
}

func (s *RateScheduleService) toCache(ctx context.Context, schedule *domain.RateSchedule) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(schedule)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(schedule.VehicleClass), raw, scheduleCacheTTL).Err(); err != nil {
		log.Printf("RateScheduleService: cache write failed: %v", err)
	}
}

func (s *RateScheduleService) invalidate(ctx context.Context, class domain.VehicleClass) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(class)).Err(); err != nil {
		log.Printf("RateScheduleService: cache invalidation failed: %v", err)
	}
}
