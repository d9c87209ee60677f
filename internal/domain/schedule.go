package domain

import (
	"time"

	"github.com/segyhp/microloan-ledger/pkg/calculator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ScheduleRequest struct {
	Principal    decimal.Decimal `json:"principal" validate:"gt=0"`
	AnnualRate   decimal.Decimal `json:"annual_rate" validate:"gte=0"`
	StartDate    time.Time       `json:"start_date" validate:"required"`
	TenureMonths int             `json:"tenure_months" validate:"required,gt=0,lte=600"`
}

type ScheduleResponse struct {
	EMI       decimal.Decimal            `json:"emi"`
	TotalPaid decimal.Decimal            `json:"total_paid"`
	Schedule  []calculator.ScheduleEntry `json:"schedule"`
}

type LateFeeSuggestion struct {
	LoanID      string          `json:"loan_id"`
	DaysOverdue int             `json:"days_overdue"`
	Percentage  decimal.Decimal `json:"percentage"`
	Suggested   decimal.Decimal `json:"suggested"`
}

// LoanDetails pairs a loan with its borrower's display data.
type LoanDetails struct {
	Loan     *Loan          `json:"loan"`
	Borrower *Borrower      `json:"borrower,omitempty"`
	Balance  BalanceSummary `json:"balance"`
}

type LoanFilter struct {
	Status     LoanStatus `json:"status,omitempty"`
	BorrowerID *uuid.UUID `json:"borrower_id,omitempty"`
	IssuedByID *uuid.UUID `json:"issued_by_id,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
