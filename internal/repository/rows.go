package repository

import (
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type loanRow struct {
	ID           uuid.UUID       `db:"id"`
	BorrowerID   uuid.UUID       `db:"borrower_id"`
	IssuedByID   uuid.UUID       `db:"issued_by_id"`
	IssuedByRole string          `db:"issued_by_role"`
	Principal    decimal.Decimal `db:"principal"`
	InterestRate decimal.Decimal `db:"interest_rate"`
	StartDate    time.Time       `db:"start_date"`
	DueDate      time.Time       `db:"due_date"`
	Status       string          `db:"status"`
	Version      int64           `db:"version"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func newLoanRow(l *domain.Loan) loanRow {
	return loanRow{
		ID:           l.ID,
		BorrowerID:   l.BorrowerID,
		IssuedByID:   l.IssuedBy.ID,
		IssuedByRole: string(l.IssuedBy.Role),
		Principal:    l.Principal,
		InterestRate: l.InterestRate,
		StartDate:    l.StartDate,
		DueDate:      l.DueDate,
		Status:       string(l.Status),
		Version:      l.Version,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func (r loanRow) toDomain() *domain.Loan {
	return &domain.Loan{
		ID:           r.ID,
		BorrowerID:   r.BorrowerID,
		IssuedBy:     domain.Actor{ID: r.IssuedByID, Role: domain.ActorRole(r.IssuedByRole)},
		Principal:    r.Principal,
		InterestRate: r.InterestRate,
		StartDate:    r.StartDate,
		DueDate:      r.DueDate,
		Status:       domain.LoanStatus(r.Status),
		Payments:     []domain.Payment{},
		LateFees:     []domain.LateFee{},
		Waivers:      []domain.Waiver{},
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type paymentRow struct {
	ID             uuid.UUID       `db:"id"`
	LoanID         uuid.UUID       `db:"loan_id"`
	Amount         decimal.Decimal `db:"amount"`
	PaymentDate    time.Time       `db:"payment_date"`
	RecordedByID   uuid.UUID       `db:"recorded_by_id"`
	RecordedByRole string          `db:"recorded_by_role"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	RecordedAt     time.Time       `db:"recorded_at"`
}

func (r paymentRow) toDomain() domain.Payment {
	return domain.Payment{
		ID:           r.ID,
		LoanID:       r.LoanID,
		Amount:       r.Amount,
		Date:         r.PaymentDate,
		RecordedBy:   domain.Actor{ID: r.RecordedByID, Role: domain.ActorRole(r.RecordedByRole)},
		BalanceAfter: r.BalanceAfter,
		RecordedAt:   r.RecordedAt,
	}
}

type lateFeeRow struct {
	ID            uuid.UUID       `db:"id"`
	LoanID        uuid.UUID       `db:"loan_id"`
	Amount        decimal.Decimal `db:"amount"`
	Reason        string          `db:"reason"`
	DaysOverdue   *int            `db:"days_overdue"`
	AppliedDate   time.Time       `db:"applied_date"`
	AppliedByID   uuid.UUID       `db:"applied_by_id"`
	AppliedByRole string          `db:"applied_by_role"`
	IsPaid        bool            `db:"is_paid"`
	IsWaived      bool            `db:"is_waived"`
	WaivedAt      *time.Time      `db:"waived_at"`
}

func (r lateFeeRow) toDomain() domain.LateFee {
	return domain.LateFee{
		ID:          r.ID,
		LoanID:      r.LoanID,
		Amount:      r.Amount,
		Reason:      r.Reason,
		DaysOverdue: r.DaysOverdue,
		AppliedDate: r.AppliedDate,
		AppliedBy:   domain.Actor{ID: r.AppliedByID, Role: domain.ActorRole(r.AppliedByRole)},
		IsPaid:      r.IsPaid,
		IsWaived:    r.IsWaived,
		WaivedAt:    r.WaivedAt,
	}
}

type waiverRow struct {
	ID            uuid.UUID       `db:"id"`
	LoanID        uuid.UUID       `db:"loan_id"`
	LateFeeID     *uuid.UUID      `db:"late_fee_id"`
	Amount        decimal.Decimal `db:"amount"`
	WaiverType    string          `db:"waiver_type"`
	Reason        string          `db:"reason"`
	GrantedDate   time.Time       `db:"granted_date"`
	GrantedByID   uuid.UUID       `db:"granted_by_id"`
	GrantedByRole string          `db:"granted_by_role"`
}

func (r waiverRow) toDomain() domain.Waiver {
	return domain.Waiver{
		ID:          r.ID,
		LoanID:      r.LoanID,
		LateFeeID:   r.LateFeeID,
		Amount:      r.Amount,
		Type:        domain.WaiverType(r.WaiverType),
		Reason:      r.Reason,
		GrantedDate: r.GrantedDate,
		GrantedBy:   domain.Actor{ID: r.GrantedByID, Role: domain.ActorRole(r.GrantedByRole)},
	}
}

type activityRow struct {
	ID           uuid.UUID       `db:"id"`
	LoanID       uuid.UUID       `db:"loan_id"`
	BorrowerID   uuid.UUID       `db:"borrower_id"`
	Action       string          `db:"action"`
	ActorID      uuid.UUID       `db:"actor_id"`
	ActorRole    string          `db:"actor_role"`
	Amount       decimal.Decimal `db:"amount"`
	Description  string          `db:"description"`
	StatusBefore string          `db:"status_before"`
	StatusAfter  string          `db:"status_after"`
	OccurredAt   time.Time       `db:"occurred_at"`
}

func (r activityRow) toDomain() domain.Activity {
	return domain.Activity{
		ID:           r.ID,
		LoanID:       r.LoanID,
		BorrowerID:   r.BorrowerID,
		Action:       domain.ActivityAction(r.Action),
		Actor:        domain.Actor{ID: r.ActorID, Role: domain.ActorRole(r.ActorRole)},
		Amount:       r.Amount,
		Description:  r.Description,
		StatusBefore: domain.LoanStatus(r.StatusBefore),
		StatusAfter:  domain.LoanStatus(r.StatusAfter),
		OccurredAt:   r.OccurredAt,
	}
}
