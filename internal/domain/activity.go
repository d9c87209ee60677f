package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ActivityAction string

const (
	ActivityLoanIssued      ActivityAction = "loan.issued"
	ActivityPaymentRecorded ActivityAction = "payment.recorded"
	ActivityLateFeeApplied  ActivityAction = "late_fee.applied"
	ActivityLateFeeWaived   ActivityAction = "late_fee.waived"
	ActivityWaiverGranted   ActivityAction = "waiver.granted"
	ActivityDueDateChanged  ActivityAction = "loan.due_date_changed"
	ActivityMarkedOverdue   ActivityAction = "loan.marked_overdue"
)

// Activity describes a committed mutation. The ledger builds it; persisting
// or publishing it is somebody else's job.
type Activity struct {
	ID           uuid.UUID       `json:"id"`
	LoanID       uuid.UUID       `json:"loan_id"`
	BorrowerID   uuid.UUID       `json:"borrower_id"`
	Action       ActivityAction  `json:"action"`
	Actor        Actor           `json:"actor"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	StatusBefore LoanStatus      `json:"status_before,omitempty"`
	StatusAfter  LoanStatus      `json:"status_after,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func newActivity(l *Loan, action ActivityAction, actor Actor, amount decimal.Decimal, now time.Time, format string, args ...any) Activity {
	return Activity{
		ID:          uuid.New(),
		LoanID:      l.ID,
		BorrowerID:  l.BorrowerID,
		Action:      action,
		Actor:       actor,
		Amount:      amount,
		Description: fmt.Sprintf(format, args...),
		OccurredAt:  now,
	}
}

// OverdueActivity describes a sweep transition.
func OverdueActivity(l *Loan, now time.Time) Activity {
	a := newActivity(l, ActivityMarkedOverdue, SystemActor, decimal.Zero, now,
		"marked overdue, due date %s passed", l.DueDate.Format(time.DateOnly))
	a.StatusBefore = LoanStatusActive
	a.StatusAfter = LoanStatusOverdue
	return a
}
