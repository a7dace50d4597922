package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// RateSchedule is one versioned tariff row for a vehicle class. All amounts
// are whole rupiah. A schedule that has been used to price a completed
// session is immutable; price changes are introduced as a new row with a
// later EffectiveFrom, never as an in-place edit.
type RateSchedule struct {
	ID                  int          `json:"id"`
	VehicleClass        VehicleClass `json:"vehicle_class"`
	BaseRate            int64        `json:"base_rate"`   // covers the first billed hour when > 0
	HourlyRate          int64        `json:"hourly_rate"` // each billed hour after the first
	AdditionalHourRate  int64        `json:"additional_hour_rate"`
	AdditionalHourAfter int64        `json:"additional_hour_after"` // billed hours before AdditionalHourRate kicks in; 0 = unused
	DailyCap            int64        `json:"daily_cap"`             // max charge within 24h; 0 = uncapped
	WeeklyRate          int64        `json:"weekly_rate"`
	MonthlyRate         int64        `json:"monthly_rate"`
	PenaltyRate         int64        `json:"penalty_rate"`
	MaxStayHours        int64        `json:"max_stay_hours"` // penalty applies past this; 0 = no limit
	EffectiveFrom       time.Time    `json:"effective_from"`
	EffectiveTo         null.Time    `json:"effective_to"` // null = open ended
	Active              bool         `json:"active"`
	CreatedBy           string       `json:"created_by,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
}

// ActiveAt reports whether this schedule is in effect at the given instant.
func (s *RateSchedule) ActiveAt(t time.Time) bool {
	if !s.Active {
		return false
	}
	if t.Before(s.EffectiveFrom) {
		return false
	}
	if s.EffectiveTo.Valid && !t.Before(s.EffectiveTo.Time) {
		return false
	}
	return true
}

type RateScheduleDTO struct {
	VehicleClass        string `json:"vehicle_class" binding:"required,oneof=motorcycle car other"`
	BaseRate            int64  `json:"base_rate"`
	HourlyRate          int64  `json:"hourly_rate" binding:"required"`
	AdditionalHourRate  int64  `json:"additional_hour_rate"`
	AdditionalHourAfter int64  `json:"additional_hour_after"`
	DailyCap            int64  `json:"daily_cap"`
	WeeklyRate          int64  `json:"weekly_rate"`
	MonthlyRate         int64  `json:"monthly_rate"`
	PenaltyRate         int64  `json:"penalty_rate"`
	MaxStayHours        int64  `json:"max_stay_hours"`
	EffectiveFrom       string `json:"effective_from" binding:"required"` // RFC3339
	EffectiveTo         string `json:"effective_to,omitempty"`
}
