package domain

import (
	"time"

	"github.com/segyhp/microloan-ledger/pkg/calculator"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one repayment event. BalanceAfter is the outstanding balance at
// the moment of recording and is never rewritten.
type Payment struct {
	ID           uuid.UUID       `json:"id"`
	LoanID       uuid.UUID       `json:"loan_id"`
	Amount       decimal.Decimal `json:"amount"`
	Date         time.Time       `json:"date"`
	RecordedBy   Actor           `json:"recorded_by"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

type RecordPaymentRequest struct {
	// BorrowerID is the borrower the caller believes owns the loan.
	BorrowerID uuid.UUID       `json:"borrower_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	Date       time.Time       `json:"date" validate:"required"`
	RecordedBy Actor           `json:"-"`
}

// RecordPayment appends a payment and recomputes status. Overpayment is
// accepted; the outstanding balance is clamped at zero and the loan closes.
// Every check runs before the loan is touched.
func (l *Loan) RecordPayment(req RecordPaymentRequest, now time.Time) (*Payment, Activity, error) {
	if !req.Amount.IsPositive() {
		return nil, Activity{}, customError.InvalidInput("payment amount must be positive, got %s", req.Amount)
	}
	if err := checkPlaces("payment amount", req.Amount, AmountPlaces); err != nil {
		return nil, Activity{}, err
	}
	if req.Date.IsZero() {
		return nil, Activity{}, customError.InvalidInput("payment date is required")
	}
	if err := req.RecordedBy.Validate(); err != nil {
		return nil, Activity{}, err
	}
	if req.BorrowerID != uuid.Nil && req.BorrowerID != l.BorrowerID {
		return nil, Activity{}, customError.InvalidInput("loan %s does not belong to borrower %s", l.ID, req.BorrowerID)
	}
	if l.Status == LoanStatusClosed {
		return nil, Activity{}, customError.InvalidState("cannot record a payment on closed loan %s", l.ID)
	}

	prev := l.Status
	payment := Payment{
		ID:         uuid.New(),
		LoanID:     l.ID,
		Amount:     req.Amount,
		Date:       calculator.DateOf(req.Date),
		RecordedBy: req.RecordedBy,
		RecordedAt: now,
	}
	l.Payments = append(l.Payments, payment)

	idx := len(l.Payments) - 1
	l.Payments[idx].BalanceAfter = l.Outstanding()
	l.touch(now)

	if l.RecomputeStatus(now) && l.Status == LoanStatusClosed {
		l.settleLateFees()
	}

	activity := newActivity(l, ActivityPaymentRecorded, req.RecordedBy, req.Amount, now,
		"recorded payment of %s dated %s, balance now %s", req.Amount.StringFixed(2),
		payment.Date.Format(time.DateOnly), l.Payments[idx].BalanceAfter.StringFixed(2))
	activity.StatusBefore = prev
	activity.StatusAfter = l.Status

	recorded := l.Payments[idx]
	return &recorded, activity, nil
}

// PaymentByID looks a payment up in the loan's history.
func (l *Loan) PaymentByID(id uuid.UUID) (*Payment, bool) {
	for i := range l.Payments {
		if l.Payments[i].ID == id {
			return &l.Payments[i], true
		}
	}
	return nil, false
}

func (l *Loan) settleLateFees() {
	for i := range l.LateFees {
		if !l.LateFees[i].IsWaived {
			l.LateFees[i].IsPaid = true
		}
	}
}

func (l *Loan) touch(now time.Time) {
	l.UpdatedAt = now
}
