// Package rate computes parking fees. The engine is pure: identical
// (entry, exit, schedule) inputs always produce the identical amount, so
// historical fees stay reproducible against the schedule version that
// priced them.
package rate

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("exit time precedes entry time")

// Result is one fee computation.
type Result struct {
	Amount         int64 // whole rupiah
	BilledHours    int64
	BilledDays     int64
	PenaltyApplied bool
}

// Schedule is the tariff slice the engine needs. The domain RateSchedule
// satisfies it by value copy; keeping the engine off the domain package
// keeps it trivially testable.
type Schedule struct {
	BaseRate            int64 // covers the first billed hour when > 0
	HourlyRate          int64
	AdditionalHourRate  int64 // per hour past AdditionalHourAfter; 0 = unused
	AdditionalHourAfter int64
	DailyCap            int64 // 0 = uncapped
	WeeklyRate          int64
	MonthlyRate         int64
	PenaltyRate         int64
	MaxStayHours        int64 // 0 = no limit
}

// Compute prices the stay from entry to exit against the schedule.
//
// Whole-hour billing: partial hours round up, so a one-minute stay bills as
// one hour. A zero-length stay bills nothing. Stays within a day use
// base + hourly tiers under the daily cap; longer stays pro-rate the weekly
// or monthly rate by whole days. A stay past the maximum allowed adds the
// penalty once on top.
func Compute(entry, exit time.Time, s Schedule) (Result, error) {
	if exit.Before(entry) {
		return Result{}, ErrInvalidInterval
	}

	elapsed := exit.Sub(entry)
	hours := ceilDiv(int64(elapsed), int64(time.Hour))
	days := ceilDiv(int64(elapsed), int64(24*time.Hour))

	res := Result{BilledHours: hours, BilledDays: days}
	if hours == 0 {
		return res, nil
	}

	switch {
	case elapsed <= 24*time.Hour:
		res.Amount = hourlyFee(hours, s)
		if s.DailyCap > 0 && res.Amount > s.DailyCap {
			res.Amount = s.DailyCap
		}
	case elapsed <= 7*24*time.Hour:
		// Weekly rate pro-rated by whole days, never above the full weeks.
		res.Amount = roundDiv(s.WeeklyRate*days, 7)
		if cap := s.WeeklyRate * ceilDiv(days, 7); res.Amount > cap {
			res.Amount = cap
		}
	default:
		res.Amount = roundDiv(s.MonthlyRate*days, 30)
		if cap := s.MonthlyRate * ceilDiv(days, 30); res.Amount > cap {
			res.Amount = cap
		}
	}

	if s.MaxStayHours > 0 && hours > s.MaxStayHours {
		res.Amount += s.PenaltyRate
		res.PenaltyApplied = true
	}
	if res.Amount < 0 {
		res.Amount = 0
	}
	return res, nil
}

// hourlyFee applies the base/hourly/additional-hour tiers for stays within
// one day. The base rate, when set, pays for the first billed hour.
func hourlyFee(hours int64, s Schedule) int64 {
	remaining := hours
	fee := int64(0)
	if s.BaseRate > 0 {
		fee = s.BaseRate
		remaining--
	}
	if remaining <= 0 {
		return fee
	}
	if s.AdditionalHourRate > 0 && s.AdditionalHourAfter > 0 && hours > s.AdditionalHourAfter {
		normal := s.AdditionalHourAfter
		if s.BaseRate > 0 {
			normal--
		}
		if normal < 0 {
			normal = 0
		}
		if normal > remaining {
			normal = remaining
		}
		fee += s.HourlyRate * normal
		fee += s.AdditionalHourRate * (remaining - normal)
		return fee
	}
	return fee + s.HourlyRate*remaining
}

// ceilDiv rounds a/b up for non-negative a, positive b.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// roundDiv divides a by b rounding half up, for non-negative a, positive b.
func roundDiv(a, b int64) int64 {
	return (2*a + b) / (2 * b)
}
