package repository

import (
	"context"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/google/uuid"
)

// LoanRepository loads and saves whole loan aggregates. Implementations
// return customError.NotFound for a missing loan and
// customError.ConcurrencyConflict when Save loses an optimistic lock.
type LoanRepository interface {
	// Create inserts a new loan and its issue activity atomically
	Create(ctx context.Context, loan *domain.Loan, activity domain.Activity) error

	// GetByID loads a loan with its full payment, late fee and waiver history
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Save persists a mutated loan if nobody else saved it since it was
	// loaded. New history rows and activities are written in the same
	// transaction. On success loan.Version is advanced.
	Save(ctx context.Context, loan *domain.Loan, activities ...domain.Activity) error

	// List returns loans matching filter, newest first, with their history
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)

	// ListOverdueCandidates returns ids of active loans whose due date is
	// before the calendar day of now
	ListOverdueCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// BorrowerRepository is the read side of the borrower registry.
type BorrowerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error)
	Create(ctx context.Context, borrower *domain.Borrower) error
}

// ActivityRepository reads the audit trail written alongside loan saves.
type ActivityRepository interface {
	ListByLoan(ctx context.Context, loanID uuid.UUID, limit int) ([]domain.Activity, error)
}
