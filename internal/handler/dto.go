package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Date accepts either a calendar date (2006-01-02) or a full RFC 3339 timestamp.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("date %q must be YYYY-MM-DD or RFC 3339", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.DateOnly))
}

type IssueLoanBody struct {
	BorrowerID   uuid.UUID       `json:"borrower_id"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	StartDate    Date            `json:"start_date"`
	DueDate      Date            `json:"due_date"`
}

func (b IssueLoanBody) toRequest(actor domain.Actor) domain.IssueLoanRequest {
	return domain.IssueLoanRequest{
		BorrowerID:   b.BorrowerID,
		Principal:    b.Principal,
		InterestRate: b.InterestRate,
		StartDate:    b.StartDate.Time,
		DueDate:      b.DueDate.Time,
		IssuedBy:     actor,
	}
}

type RecordPaymentBody struct {
	BorrowerID uuid.UUID       `json:"borrower_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
}

func (b RecordPaymentBody) toRequest(actor domain.Actor) domain.RecordPaymentRequest {
	return domain.RecordPaymentRequest{
		BorrowerID: b.BorrowerID,
		Amount:     b.Amount,
		Date:       b.Date.Time,
		RecordedBy: actor,
	}
}

type ExtendDueDateBody struct {
	DueDate Date   `json:"due_date"`
	Reason  string `json:"reason"`
}

func (b ExtendDueDateBody) toRequest(actor domain.Actor) domain.ExtendDueDateRequest {
	return domain.ExtendDueDateRequest{DueDate: b.DueDate.Time, Reason: b.Reason, ExtendedBy: actor}
}

type ScheduleBody struct {
	Principal    decimal.Decimal `json:"principal"`
	AnnualRate   decimal.Decimal `json:"annual_rate"`
	StartDate    Date            `json:"start_date"`
	TenureMonths int             `json:"tenure_months"`
}

func (b ScheduleBody) toRequest() domain.ScheduleRequest {
	return domain.ScheduleRequest{
		Principal:    b.Principal,
		AnnualRate:   b.AnnualRate,
		StartDate:    b.StartDate.Time,
		TenureMonths: b.TenureMonths,
	}
}

// LoanResponse is a loan with its derived balance.
type LoanResponse struct {
	*domain.Loan
	Balance domain.BalanceSummary `json:"balance"`
}

func newLoanResponse(loan *domain.Loan) LoanResponse {
	return LoanResponse{Loan: loan, Balance: loan.Summary()}
}

type LoanListResponse struct {
	Loans  []LoanResponse `json:"loans"`
	Count  int            `json:"count"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// EntryResponse pairs a newly recorded ledger entry with the balance after it.
type EntryResponse struct {
	Entry   any                   `json:"entry"`
	Balance domain.BalanceSummary `json:"balance"`
}
