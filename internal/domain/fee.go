package domain

import (
	"time"

	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LateFee is a penalty applied by an explicit actor action. Once waived it is
// excluded from the amount due for good.
type LateFee struct {
	ID          uuid.UUID       `json:"id"`
	LoanID      uuid.UUID       `json:"loan_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	DaysOverdue *int            `json:"days_overdue,omitempty"`
	AppliedDate time.Time       `json:"applied_date"`
	AppliedBy   Actor           `json:"applied_by"`
	IsPaid      bool            `json:"is_paid"`
	IsWaived    bool            `json:"is_waived"`
	WaivedAt    *time.Time      `json:"waived_at,omitempty"`
}

type WaiverType string

const (
	WaiverTypeLateFee  WaiverType = "late_fee_waiver"
	WaiverTypeGoodwill WaiverType = "goodwill"
	WaiverTypeInterest WaiverType = "interest_waiver"
)

// Waiver is a reduction granted against the amount due. A waiver with a
// LateFeeID is the audit record of a waived fee.
type Waiver struct {
	ID          uuid.UUID       `json:"id"`
	LoanID      uuid.UUID       `json:"loan_id"`
	LateFeeID   *uuid.UUID      `json:"late_fee_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        WaiverType      `json:"type"`
	Reason      string          `json:"reason"`
	GrantedDate time.Time       `json:"granted_date"`
	GrantedBy   Actor           `json:"granted_by"`
}

type ApplyLateFeeRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Reason      string          `json:"reason" validate:"required,max=500"`
	DaysOverdue *int            `json:"days_overdue,omitempty" validate:"omitempty,gte=0"`
	AppliedBy   Actor           `json:"-"`
}

type WaiveLateFeeRequest struct {
	Reason    string `json:"reason" validate:"required,max=500"`
	GrantedBy Actor  `json:"-"`
}

type GrantWaiverRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Type      WaiverType      `json:"type" validate:"required,oneof=goodwill interest_waiver"`
	Reason    string          `json:"reason" validate:"required,max=500"`
	GrantedBy Actor           `json:"-"`
}

// ApplyLateFee adds a penalty. A fee never closes a loan on its own, but it
// can keep an otherwise settled balance open.
func (l *Loan) ApplyLateFee(req ApplyLateFeeRequest, now time.Time) (*LateFee, Activity, error) {
	if !req.Amount.IsPositive() {
		return nil, Activity{}, customError.InvalidInput("late fee amount must be positive, got %s", req.Amount)
	}
	if err := checkPlaces("late fee amount", req.Amount, AmountPlaces); err != nil {
		return nil, Activity{}, err
	}
	if req.Reason == "" {
		return nil, Activity{}, customError.InvalidInput("late fee reason is required")
	}
	if req.DaysOverdue != nil && *req.DaysOverdue < 0 {
		return nil, Activity{}, customError.InvalidInput("days overdue must not be negative")
	}
	if err := req.AppliedBy.Validate(); err != nil {
		return nil, Activity{}, err
	}
	if l.Status == LoanStatusClosed {
		return nil, Activity{}, customError.InvalidState("cannot apply late fee to closed loan %s", l.ID)
	}

	prev := l.Status
	fee := LateFee{
		ID:          uuid.New(),
		LoanID:      l.ID,
		Amount:      req.Amount,
		Reason:      req.Reason,
		DaysOverdue: req.DaysOverdue,
		AppliedDate: now,
		AppliedBy:   req.AppliedBy,
	}
	l.LateFees = append(l.LateFees, fee)
	l.touch(now)
	l.RecomputeStatus(now)

	activity := newActivity(l, ActivityLateFeeApplied, req.AppliedBy, req.Amount, now,
		"applied late fee of %s: %s", req.Amount.StringFixed(2), req.Reason)
	activity.StatusBefore = prev
	activity.StatusAfter = l.Status

	return &fee, activity, nil
}

// WaiveLateFee marks a fee waived and records a matching waiver for the audit
// trail. The amount due drops by exactly the fee amount.
func (l *Loan) WaiveLateFee(feeID uuid.UUID, req WaiveLateFeeRequest, now time.Time) (*Waiver, Activity, error) {
	if req.Reason == "" {
		return nil, Activity{}, customError.InvalidInput("waiver reason is required")
	}
	if err := req.GrantedBy.Validate(); err != nil {
		return nil, Activity{}, err
	}

	idx := -1
	for i := range l.LateFees {
		if l.LateFees[i].ID == feeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, Activity{}, customError.NotFound("late fee", feeID)
	}
	if l.LateFees[idx].IsWaived {
		return nil, Activity{}, customError.InvalidState("late fee %s is already waived", feeID)
	}
	if l.Status == LoanStatusClosed {
		return nil, Activity{}, customError.InvalidState("cannot waive a fee on closed loan %s", l.ID)
	}

	prev := l.Status
	fee := &l.LateFees[idx]
	fee.IsWaived = true
	waivedAt := now
	fee.WaivedAt = &waivedAt

	feeRef := fee.ID
	waiver := Waiver{
		ID:          uuid.New(),
		LoanID:      l.ID,
		LateFeeID:   &feeRef,
		Amount:      fee.Amount,
		Type:        WaiverTypeLateFee,
		Reason:      req.Reason,
		GrantedDate: now,
		GrantedBy:   req.GrantedBy,
	}
	l.Waivers = append(l.Waivers, waiver)
	l.touch(now)
	if l.RecomputeStatus(now) && l.Status == LoanStatusClosed {
		l.settleLateFees()
	}

	activity := newActivity(l, ActivityLateFeeWaived, req.GrantedBy, fee.Amount, now,
		"waived late fee %s of %s: %s", fee.ID, fee.Amount.StringFixed(2), req.Reason)
	activity.StatusBefore = prev
	activity.StatusAfter = l.Status

	return &waiver, activity, nil
}

// GrantWaiver records a standalone reduction such as goodwill. It may not
// exceed what is still outstanding.
func (l *Loan) GrantWaiver(req GrantWaiverRequest, now time.Time) (*Waiver, Activity, error) {
	if !req.Amount.IsPositive() {
		return nil, Activity{}, customError.InvalidInput("waiver amount must be positive, got %s", req.Amount)
	}
	if err := checkPlaces("waiver amount", req.Amount, AmountPlaces); err != nil {
		return nil, Activity{}, err
	}
	if req.Type != WaiverTypeGoodwill && req.Type != WaiverTypeInterest {
		return nil, Activity{}, customError.InvalidInput("waiver type %q cannot be granted directly", req.Type)
	}
	if req.Reason == "" {
		return nil, Activity{}, customError.InvalidInput("waiver reason is required")
	}
	if err := req.GrantedBy.Validate(); err != nil {
		return nil, Activity{}, err
	}
	if l.Status == LoanStatusClosed {
		return nil, Activity{}, customError.InvalidState("cannot grant a waiver on closed loan %s", l.ID)
	}
	if outstanding := l.Outstanding(); req.Amount.GreaterThan(outstanding) {
		return nil, Activity{}, customError.InvalidInput("waiver of %s exceeds outstanding balance %s",
			req.Amount.StringFixed(2), outstanding.StringFixed(2))
	}

	prev := l.Status
	waiver := Waiver{
		ID:          uuid.New(),
		LoanID:      l.ID,
		Amount:      req.Amount,
		Type:        req.Type,
		Reason:      req.Reason,
		GrantedDate: now,
		GrantedBy:   req.GrantedBy,
	}
	l.Waivers = append(l.Waivers, waiver)
	l.touch(now)
	if l.RecomputeStatus(now) && l.Status == LoanStatusClosed {
		l.settleLateFees()
	}

	activity := newActivity(l, ActivityWaiverGranted, req.GrantedBy, req.Amount, now,
		"granted %s waiver of %s: %s", req.Type, req.Amount.StringFixed(2), req.Reason)
	activity.StatusBefore = prev
	activity.StatusAfter = l.Status

	return &waiver, activity, nil
}

// LateFeeByID looks a fee up in the loan's history.
func (l *Loan) LateFeeByID(id uuid.UUID) (*LateFee, bool) {
	for i := range l.LateFees {
		if l.LateFees[i].ID == id {
			return &l.LateFees[i], true
		}
	}
	return nil, false
}
