package domain

import (
	"time"

	"github.com/segyhp/microloan-ledger/pkg/calculator"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive  LoanStatus = "active"
	LoanStatusOverdue LoanStatus = "overdue"
	LoanStatusClosed  LoanStatus = "closed"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusOverdue, LoanStatusClosed:
		return true
	}
	return false
}

// Loan is the aggregate root: one extension of credit to one borrower, plus
// its append-only payment, late fee and waiver history. Balances are never
// stored; they are derived from the history on every read.
type Loan struct {
	ID           uuid.UUID       `json:"id"`
	BorrowerID   uuid.UUID       `json:"borrower_id"`
	IssuedBy     Actor           `json:"issued_by"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	StartDate    time.Time       `json:"start_date"`
	DueDate      time.Time       `json:"due_date"`
	Status       LoanStatus      `json:"status"`
	Payments     []Payment       `json:"payments"`
	LateFees     []LateFee       `json:"late_fees"`
	Waivers      []Waiver        `json:"waivers"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BalanceSummary is the derived view of a loan's money at one instant.
type BalanceSummary struct {
	LoanID        uuid.UUID       `json:"loan_id"`
	Status        LoanStatus      `json:"status"`
	Principal     decimal.Decimal `json:"principal"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	LateFees      decimal.Decimal `json:"late_fees"`
	Waivers       decimal.Decimal `json:"waivers"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
}

// Money is stored to the cent and rates to four places; anything finer would
// be rounded away on save and could leave paid == due on an active loan.
const (
	AmountPlaces = 2
	RatePlaces   = 4
)

func checkPlaces(field string, d decimal.Decimal, places int32) error {
	if !d.Truncate(places).Equal(d) {
		return customError.InvalidInput("%s %s has more than %d decimal places", field, d, places)
	}
	return nil
}

type IssueLoanRequest struct {
	BorrowerID   uuid.UUID       `json:"borrower_id" validate:"required"`
	Principal    decimal.Decimal `json:"principal" validate:"gt=0"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"gte=0"`
	StartDate    time.Time       `json:"start_date" validate:"required"`
	DueDate      time.Time       `json:"due_date" validate:"required"`
	IssuedBy     Actor           `json:"-"`
}

func (r IssueLoanRequest) Validate() error {
	if r.BorrowerID == uuid.Nil {
		return customError.InvalidInput("borrower id is required")
	}
	if !r.Principal.IsPositive() {
		return customError.InvalidInput("principal must be positive, got %s", r.Principal)
	}
	if r.InterestRate.IsNegative() {
		return customError.InvalidInput("interest rate must not be negative, got %s", r.InterestRate)
	}
	if err := checkPlaces("principal", r.Principal, AmountPlaces); err != nil {
		return err
	}
	if err := checkPlaces("interest rate", r.InterestRate, RatePlaces); err != nil {
		return err
	}
	if r.StartDate.IsZero() || r.DueDate.IsZero() {
		return customError.InvalidInput("start date and due date are required")
	}
	if !calculator.DateOf(r.DueDate).After(calculator.DateOf(r.StartDate)) {
		return customError.InvalidInput("due date %s must be after start date %s",
			r.DueDate.Format(time.DateOnly), r.StartDate.Format(time.DateOnly))
	}
	return r.IssuedBy.Validate()
}

// NewLoan issues a loan. Status starts active and is immediately recomputed,
// so a loan back-dated past its due date starts overdue.
func NewLoan(req IssueLoanRequest, now time.Time) (*Loan, Activity, error) {
	if err := req.Validate(); err != nil {
		return nil, Activity{}, err
	}

	loan := &Loan{
		ID:           uuid.New(),
		BorrowerID:   req.BorrowerID,
		IssuedBy:     req.IssuedBy,
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		StartDate:    calculator.DateOf(req.StartDate),
		DueDate:      calculator.DateOf(req.DueDate),
		Status:       LoanStatusActive,
		Payments:     []Payment{},
		LateFees:     []LateFee{},
		Waivers:      []Waiver{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	loan.RecomputeStatus(now)

	activity := newActivity(loan, ActivityLoanIssued, req.IssuedBy, req.Principal, now,
		"issued loan of %s at %s%% due %s", req.Principal.StringFixed(2), req.InterestRate.String(),
		loan.DueDate.Format(time.DateOnly))
	activity.StatusAfter = loan.Status

	return loan, activity, nil
}

func (l *Loan) TotalInterest() decimal.Decimal {
	return calculator.TotalInterest(l.Principal, l.InterestRate)
}

// ActiveLateFees sums fees that have not been waived.
func (l *Loan) ActiveLateFees() decimal.Decimal {
	total := decimal.Zero
	for _, fee := range l.LateFees {
		if !fee.IsWaived {
			total = total.Add(fee.Amount)
		}
	}
	return total
}

// WaivedAmount sums standalone waivers. Fee waivers are excluded because the
// fee they offset is already dropped from ActiveLateFees.
func (l *Loan) WaivedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, w := range l.Waivers {
		if w.LateFeeID == nil {
			total = total.Add(w.Amount)
		}
	}
	return total
}

func (l *Loan) TotalDue() decimal.Decimal {
	return l.Principal.
		Add(l.TotalInterest()).
		Add(l.ActiveLateFees()).
		Sub(l.WaivedAmount())
}

func (l *Loan) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Outstanding is max(0, TotalDue - TotalPaid).
func (l *Loan) Outstanding() decimal.Decimal {
	return clampZero(l.TotalDue().Sub(l.TotalPaid()))
}

func (l *Loan) IsFullyPaid() bool {
	return l.TotalPaid().GreaterThanOrEqual(l.TotalDue())
}

func (l *Loan) Summary() BalanceSummary {
	return BalanceSummary{
		LoanID:        l.ID,
		Status:        l.Status,
		Principal:     l.Principal,
		TotalInterest: l.TotalInterest(),
		LateFees:      l.ActiveLateFees(),
		Waivers:       l.WaivedAmount(),
		TotalDue:      l.TotalDue(),
		TotalPaid:     l.TotalPaid(),
		Outstanding:   l.Outstanding(),
	}
}

// RecomputeStatus applies the status rules in order and reports whether the
// status changed:
//  1. fully paid -> closed, whatever the prior state
//  2. not closed and past due -> overdue
//  3. overdue but no longer past due -> active
//  4. otherwise unchanged
func (l *Loan) RecomputeStatus(now time.Time) bool {
	prev := l.Status
	pastDue := calculator.IsPastDue(l.DueDate, now)

	switch {
	case l.IsFullyPaid():
		l.Status = LoanStatusClosed
	case l.Status != LoanStatusClosed && pastDue:
		l.Status = LoanStatusOverdue
	case l.Status == LoanStatusOverdue && !pastDue:
		l.Status = LoanStatusActive
	}

	return l.Status != prev
}

// MarkOverdueIfPastDue is the sweep's only transition: active and past due
// becomes overdue. Anything else is left alone, which makes it idempotent.
func (l *Loan) MarkOverdueIfPastDue(now time.Time) bool {
	if l.Status != LoanStatusActive || !calculator.IsPastDue(l.DueDate, now) {
		return false
	}
	l.Status = LoanStatusOverdue
	return true
}

// Clone returns a deep copy so callers can hand out loans without sharing
// the history slices.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	c := *l
	if l.Payments != nil {
		c.Payments = make([]Payment, len(l.Payments))
		copy(c.Payments, l.Payments)
	}
	if l.LateFees != nil {
		c.LateFees = make([]LateFee, len(l.LateFees))
		for i, f := range l.LateFees {
			if f.DaysOverdue != nil {
				d := *f.DaysOverdue
				f.DaysOverdue = &d
			}
			if f.WaivedAt != nil {
				at := *f.WaivedAt
				f.WaivedAt = &at
			}
			c.LateFees[i] = f
		}
	}
	if l.Waivers == nil {
		return &c
	}
	c.Waivers = make([]Waiver, len(l.Waivers))
	for i, w := range l.Waivers {
		if w.LateFeeID != nil {
			id := *w.LateFeeID
			w.LateFeeID = &id
		}
		c.Waivers[i] = w
	}
	return &c
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

type ExtendDueDateRequest struct {
	DueDate    time.Time `json:"due_date" validate:"required"`
	Reason     string    `json:"reason" validate:"required,max=500"`
	ExtendedBy Actor     `json:"-"`
}

// ExtendDueDate moves the due date and re-runs the status rules, which is how
// an overdue loan returns to active.
func (l *Loan) ExtendDueDate(req ExtendDueDateRequest, now time.Time) (Activity, error) {
	if req.DueDate.IsZero() {
		return Activity{}, customError.InvalidInput("due date is required")
	}
	if req.Reason == "" {
		return Activity{}, customError.InvalidInput("reason is required")
	}
	if err := req.ExtendedBy.Validate(); err != nil {
		return Activity{}, err
	}
	newDue := calculator.DateOf(req.DueDate)
	if !newDue.After(l.StartDate) {
		return Activity{}, customError.InvalidInput("due date %s must be after start date %s",
			newDue.Format(time.DateOnly), l.StartDate.Format(time.DateOnly))
	}
	if l.Status == LoanStatusClosed {
		return Activity{}, customError.InvalidState("cannot change the due date of closed loan %s", l.ID)
	}

	prev := l.Status
	oldDue := l.DueDate
	l.DueDate = newDue
	l.touch(now)
	l.RecomputeStatus(now)

	activity := newActivity(l, ActivityDueDateChanged, req.ExtendedBy, decimal.Zero, now,
		"moved due date from %s to %s: %s", oldDue.Format(time.DateOnly), newDue.Format(time.DateOnly), req.Reason)
	activity.StatusBefore = prev
	activity.StatusAfter = l.Status
	return activity, nil
}
