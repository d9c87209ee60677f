// Package calculator holds the pure money and calendar arithmetic used by the
// loan ledger. Nothing here performs I/O or reads the clock.
package calculator

import (
	"time"

	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/shopspring/decimal"
)

// DefaultLateFeePercentage is the per-day percentage of principal suggested
// as a late fee.
const DefaultLateFeePercentage = "0.5"

// Internal precision for the compounding factor; outputs are rounded separately.
const powPrecision = 28

var (
	one     = decimal.NewFromInt(1)
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

// ScheduleEntry is one month of an amortization schedule.
type ScheduleEntry struct {
	Month              int             `json:"month"`
	DueDate            time.Time       `json:"due_date"`
	EMIAmount          decimal.Decimal `json:"emi_amount"`
	PrincipalComponent decimal.Decimal `json:"principal_component"`
	InterestComponent  decimal.Decimal `json:"interest_component"`
	RemainingBalance   decimal.Decimal `json:"remaining_balance"`
}

// TotalInterest calculates flat interest over the whole term.
// Formula: principal * rate / 100
func TotalInterest(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Mul(ratePercent).Div(hundred)
}

// TotalDue is principal plus flat interest.
func TotalDue(principal, ratePercent decimal.Decimal) decimal.Decimal {
	return principal.Add(TotalInterest(principal, ratePercent))
}

// MonthlyRate converts an annual percentage into a monthly fraction.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(twelve).Div(hundred)
}

// EMI calculates the equated monthly installment rounded to whole currency units.
// Formula: P * r * (1+r)^n / ((1+r)^n - 1), or P / n when r is zero.
func EMI(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if err := validateTerms(principal, annualRatePercent, tenureMonths); err != nil {
		return decimal.Zero, err
	}
	return exactEMI(principal, MonthlyRate(annualRatePercent), tenureMonths).Round(0), nil
}

// EMISchedule builds the full amortization table. Running balances keep full
// precision; the final month absorbs whatever drift the rounded EMI left so
// the balance lands on exactly zero.
func EMISchedule(principal, annualRatePercent decimal.Decimal, startDate time.Time, tenureMonths int) ([]ScheduleEntry, error) {
	emi, err := EMI(principal, annualRatePercent, tenureMonths)
	if err != nil {
		return nil, err
	}

	rate := MonthlyRate(annualRatePercent)
	remaining := principal
	schedule := make([]ScheduleEntry, 0, tenureMonths)

	for month := 1; month <= tenureMonths; month++ {
		interest := remaining.Mul(rate)
		principalPart := emi.Sub(interest)
		amount := emi

		if month == tenureMonths {
			principalPart = remaining
			amount = principalPart.Add(interest).Round(0)
		}

		remaining = remaining.Sub(principalPart)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		schedule = append(schedule, ScheduleEntry{
			Month:              month,
			DueDate:            AddMonths(startDate, month),
			EMIAmount:          amount,
			PrincipalComponent: principalPart,
			InterestComponent:  interest,
			RemainingBalance:   remaining,
		})
	}

	return schedule, nil
}

// LateFeeSuggestion is advisory only; applying a fee is always an explicit action.
// Formula: round(principal * percentage * daysOverdue / 100)
func LateFeeSuggestion(principal decimal.Decimal, daysOverdue int, percentage decimal.Decimal) decimal.Decimal {
	if daysOverdue <= 0 || !principal.IsPositive() || !percentage.IsPositive() {
		return decimal.Zero
	}
	return principal.
		Mul(percentage).
		Mul(decimal.NewFromInt(int64(daysOverdue))).
		Div(hundred).
		Round(0)
}

func validateTerms(principal, annualRatePercent decimal.Decimal, tenureMonths int) error {
	if tenureMonths <= 0 {
		return customError.InvalidInput("tenure must be at least one month, got %d", tenureMonths)
	}
	if !principal.IsPositive() {
		return customError.InvalidInput("principal must be positive, got %s", principal)
	}
	if annualRatePercent.IsNegative() {
		return customError.InvalidInput("interest rate must not be negative, got %s", annualRatePercent)
	}
	return nil
}

func exactEMI(principal, monthlyRate decimal.Decimal, tenureMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(tenureMonths))
	if monthlyRate.IsZero() {
		return principal.Div(n)
	}
	factor := pow(one.Add(monthlyRate), tenureMonths)
	return principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one))
}

// pow raises base to a non-negative integer power by squaring, bounding the
// digit count at each step.
func pow(base decimal.Decimal, exp int) decimal.Decimal {
	result := one
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(powPrecision)
		}
		base = base.Mul(base).Round(powPrecision)
		exp >>= 1
	}
	return result
}
