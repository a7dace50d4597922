package rate

import (
	"errors"
	"testing"
	"time"
)

var harian = Schedule{
	BaseRate:   5000,
	HourlyRate: 5000,
	DailyCap:   50000,
	WeeklyRate: 250000,
	MonthlyRate: 800000,
	PenaltyRate: 100000,
	MaxStayHours: 72,
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 8, day, hour, minute, 0, 0, time.UTC)
}

func TestComputeHourlyTiers(t *testing.T) {
	tests := []struct {
		name     string
		entry    time.Time
		exit     time.Time
		schedule Schedule
		want     int64
		hours    int64
	}{
		{
			name: "five minutes bills one hour at base",
			entry: at(1, 10, 0), exit: at(1, 10, 5),
			schedule: harian, want: 5000, hours: 1,
		},
		{
			name: "three hours one minute bills four hours",
			entry: at(1, 10, 0), exit: at(1, 13, 1),
			schedule: harian, want: 5000 + 3*5000, hours: 4,
		},
		{
			name: "zero length stay bills nothing",
			entry: at(1, 10, 0), exit: at(1, 10, 0),
			schedule: harian, want: 0, hours: 0,
		},
		{
			name: "exact hour boundary does not round up",
			entry: at(1, 10, 0), exit: at(1, 12, 0),
			schedule: harian, want: 5000 + 5000, hours: 2,
		},
		{
			name: "daily cap clamps a long day",
			entry: at(1, 0, 0), exit: at(1, 23, 30),
			schedule: harian, want: 50000, hours: 24,
		},
		{
			name: "no base rate bills every hour",
			entry: at(1, 10, 0), exit: at(1, 12, 30),
			schedule: Schedule{HourlyRate: 3000},
			want:     3 * 3000, hours: 3,
		},
		{
			name: "additional hour rate past threshold",
			entry: at(1, 10, 0), exit: at(1, 15, 0),
			schedule: Schedule{
				BaseRate: 5000, HourlyRate: 5000,
				AdditionalHourRate: 2000, AdditionalHourAfter: 3,
			},
			// 5 hours: base + 2 normal + 2 additional
			want: 5000 + 2*5000 + 2*2000, hours: 5,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(tc.entry, tc.exit, tc.schedule)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			if got.Amount != tc.want {
				t.Errorf("amount = %d, want %d", got.Amount, tc.want)
			}
			if got.BilledHours != tc.hours {
				t.Errorf("billed hours = %d, want %d", got.BilledHours, tc.hours)
			}
		})
	}
}

func TestComputeMultiDay(t *testing.T) {
	tests := []struct {
		name  string
		entry time.Time
		exit  time.Time
		want  int64
	}{
		{
			// 2 days -> weekly prorated: round(250000*2/7) = 71429
			name: "two days prorates weekly rate",
			entry: at(1, 10, 0), exit: at(3, 9, 0),
			want: 71429,
		},
		{
			// exactly 7 days -> full weekly rate
			name: "seven days bills one full week",
			entry: at(1, 10, 0), exit: at(8, 10, 0),
			want: 250000,
		},
		{
			// 10 days -> monthly prorated: round(800000*10/30) = 266667
			name: "ten days prorates monthly rate",
			entry: at(1, 10, 0), exit: at(11, 10, 0),
			want: 266667,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := harian
			s.MaxStayHours = 0
			got, err := Compute(tc.entry, tc.exit, s)
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			if got.Amount != tc.want {
				t.Errorf("amount = %d, want %d", got.Amount, tc.want)
			}
		})
	}
}

func TestComputePenalty(t *testing.T) {
	// 4 days with a 72 hour limit: weekly proration plus one penalty.
	got, err := Compute(at(1, 10, 0), at(5, 10, 0), harian)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	base := roundDiv(250000*4, 7)
	if got.Amount != base+100000 {
		t.Errorf("amount = %d, want %d", got.Amount, base+100000)
	}
	if !got.PenaltyApplied {
		t.Error("expected penalty to be applied")
	}

	// Just under the limit: no penalty.
	got, err = Compute(at(1, 10, 0), at(3, 10, 0), harian)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if got.PenaltyApplied {
		t.Error("penalty applied below the maximum stay")
	}
}

func TestComputeInvalidInterval(t *testing.T) {
	_, err := Compute(at(1, 10, 0), at(1, 9, 0), harian)
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("err = %v, want ErrInvalidInterval", err)
	}
}

func TestComputeDeterministic(t *testing.T) {
	entry, exit := at(1, 8, 30), at(2, 19, 45)
	first, err := Compute(entry, exit, harian)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Compute(entry, exit, harian)
		if err != nil {
			t.Fatalf("Compute returned error: %v", err)
		}
		if again != first {
			t.Fatalf("run %d: result %+v differs from %+v", i, again, first)
		}
	}
}

func TestRoundDiv(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{10, 4, 3},  // 2.5 rounds up
		{9, 4, 2},   // 2.25 rounds down
		{500000, 7, 71429},
		{0, 7, 0},
	}
	for _, tc := range tests {
		if got := roundDiv(tc.a, tc.b); got != tc.want {
			t.Errorf("roundDiv(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
