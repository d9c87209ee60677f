package calculator

import (
	"testing"
	"time"

	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalInterestAndDue(t *testing.T) {
	tests := []struct {
		name             string
		principal        decimal.Decimal
		rate             decimal.Decimal
		expectedInterest decimal.Decimal
		expectedDue      decimal.Decimal
	}{
		{
			name:             "ten percent flat",
			principal:        decimal.NewFromInt(10000),
			rate:             decimal.NewFromInt(10),
			expectedInterest: decimal.NewFromInt(1000),
			expectedDue:      decimal.NewFromInt(11000),
		},
		{
			name:             "zero interest rate",
			principal:        decimal.NewFromInt(5000),
			rate:             decimal.Zero,
			expectedInterest: decimal.Zero,
			expectedDue:      decimal.NewFromInt(5000),
		},
		{
			name:             "fractional rate",
			principal:        decimal.NewFromInt(2000),
			rate:             decimal.RequireFromString("2.5"),
			expectedInterest: decimal.NewFromInt(50),
			expectedDue:      decimal.NewFromInt(2050),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, TotalInterest(tt.principal, tt.rate).Equal(tt.expectedInterest),
				"Expected interest %v, got %v", tt.expectedInterest, TotalInterest(tt.principal, tt.rate))
			assert.True(t, TotalDue(tt.principal, tt.rate).Equal(tt.expectedDue),
				"Expected due %v, got %v", tt.expectedDue, TotalDue(tt.principal, tt.rate))
		})
	}
}

func TestEMI(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		rate     decimal.Decimal
		months   int
		expected decimal.Decimal
	}{
		{"twelve percent over a year", 12000, decimal.NewFromInt(12), 12, decimal.NewFromInt(1066)},
		{"zero rate splits evenly", 12000, decimal.Zero, 12, decimal.NewFromInt(1000)},
		{"zero rate rounds to whole units", 1000, decimal.Zero, 3, decimal.NewFromInt(333)},
		{"single month", 5000, decimal.NewFromInt(12), 1, decimal.NewFromInt(5050)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EMI(decimal.NewFromInt(tt.amount), tt.rate, tt.months)
			require.NoError(t, err)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestEMI_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		months    int
	}{
		{"zero tenure", decimal.NewFromInt(1000), decimal.NewFromInt(12), 0},
		{"negative tenure", decimal.NewFromInt(1000), decimal.NewFromInt(12), -3},
		{"zero principal", decimal.Zero, decimal.NewFromInt(12), 12},
		{"negative rate", decimal.NewFromInt(1000), decimal.NewFromInt(-1), 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EMI(tt.principal, tt.rate, tt.months)
			assert.True(t, customError.IsInvalidInput(err))
		})
	}
}

func TestEMISchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	principal := decimal.NewFromInt(12000)

	schedule, err := EMISchedule(principal, decimal.NewFromInt(12), start, 12)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	first := schedule[0]
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.True(t, first.EMIAmount.Equal(decimal.NewFromInt(1066)))
	assert.True(t, first.InterestComponent.Equal(decimal.NewFromInt(120)))
	assert.True(t, first.PrincipalComponent.Equal(decimal.NewFromInt(946)))

	last := schedule[11]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), last.DueDate)
	assert.True(t, last.RemainingBalance.IsZero())

	sum := decimal.Zero
	for i, entry := range schedule {
		assert.Equal(t, i+1, entry.Month)
		assert.False(t, entry.RemainingBalance.IsNegative())
		sum = sum.Add(entry.PrincipalComponent)
	}
	tolerance := decimal.NewFromInt(int64(len(schedule)))
	assert.True(t, sum.Sub(principal).Abs().LessThanOrEqual(tolerance),
		"principal components sum to %v", sum)
}

func TestEMISchedule_ZeroRate(t *testing.T) {
	start := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	schedule, err := EMISchedule(decimal.NewFromInt(1000), decimal.Zero, start, 3)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	for _, entry := range schedule {
		assert.True(t, entry.InterestComponent.IsZero())
	}
	assert.True(t, schedule[0].PrincipalComponent.Equal(decimal.NewFromInt(333)))
	assert.True(t, schedule[2].PrincipalComponent.Equal(decimal.NewFromInt(334)))
	assert.True(t, schedule[2].RemainingBalance.IsZero())
}

func TestEMISchedule_Restartable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a, err := EMISchedule(decimal.NewFromInt(50000), decimal.NewFromInt(18), start, 24)
	require.NoError(t, err)
	b, err := EMISchedule(decimal.NewFromInt(50000), decimal.NewFromInt(18), start, 24)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestLateFeeSuggestion(t *testing.T) {
	pct := decimal.RequireFromString(DefaultLateFeePercentage)

	tests := []struct {
		name     string
		days     int
		expected decimal.Decimal
	}{
		{"ten days", 10, decimal.NewFromInt(500)},
		{"one day rounds", 1, decimal.NewFromInt(50)},
		{"not overdue", 0, decimal.Zero},
		{"negative days", -4, decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LateFeeSuggestion(decimal.NewFromInt(10000), tt.days, pct)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysOverdue(due, due.Add(10*time.Hour)))
	assert.Equal(t, 1, DaysOverdue(due, due.AddDate(0, 0, 1)))
	assert.Equal(t, 31, DaysOverdue(due, time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysOverdue(due, due.AddDate(0, 0, -5)))
}

func TestMonthBoundsAndWindow(t *testing.T) {
	now := time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC)
	from, to := MonthBounds(now)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), to)
	assert.True(t, InWindow(from, from, to))
	assert.False(t, InWindow(to, from, to))
}

func TestPastDue_MixedZones(t *testing.T) {
	due := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	newYork := time.FixedZone("EDT", -4*60*60)
	tokyo := time.FixedZone("JST", 9*60*60)

	tests := []struct {
		name    string
		now     time.Time
		pastDue bool
		days    int
	}{
		{"due day morning west of UTC", time.Date(2024, 7, 1, 10, 0, 0, 0, newYork), false, 0},
		{"due day late evening west of UTC", time.Date(2024, 7, 1, 23, 30, 0, 0, newYork), false, 0},
		{"day after west of UTC", time.Date(2024, 7, 2, 0, 30, 0, 0, newYork), true, 1},
		{"due day early east of UTC", time.Date(2024, 7, 1, 2, 0, 0, 0, tokyo), false, 0},
		{"ten days later east of UTC", time.Date(2024, 7, 11, 8, 0, 0, 0, tokyo), true, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pastDue, IsPastDue(due, tt.now))
			assert.Equal(t, tt.days, DaysOverdue(due, tt.now))
		})
	}
}

func TestDateOf_NormalizesZone(t *testing.T) {
	evening := time.Date(2024, 7, 1, 22, 0, 0, 0, time.FixedZone("EDT", -4*60*60))
	fromDB := time.Date(2024, 7, 1, 0, 0, 0, 0, time.FixedZone("", 0))

	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), DateOf(evening))
	assert.True(t, DateOf(evening).Equal(DateOf(fromDB)))
}

func TestMonthBounds_NonUTC(t *testing.T) {
	// Still May 31st locally, already June in UTC.
	now := time.Date(2024, 5, 31, 21, 0, 0, 0, time.FixedZone("EDT", -4*60*60))
	from, to := MonthBounds(now)

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), to)
	assert.True(t, InWindow(DateOf(now), from, to))
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		start    time.Time
		months   int
		expected time.Time
	}{
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 3, time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), 6, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 12, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, AddMonths(tt.start, tt.months), "%s + %d months", tt.start.Format(time.DateOnly), tt.months)
	}
}

func TestEMISchedule_MonthEndStart(t *testing.T) {
	schedule, err := EMISchedule(decimal.NewFromInt(12000), decimal.NewFromInt(12), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.Len(t, schedule, 3)

	expected := []string{"2024-02-29", "2024-03-31", "2024-04-30"}
	for i, entry := range schedule {
		assert.Equal(t, expected[i], entry.DueDate.Format(time.DateOnly))
	}
}
