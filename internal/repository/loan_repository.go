package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/pkg/calculator"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const selectLoanColumns = `
	SELECT id, borrower_id, issued_by_id, issued_by_role, principal, interest_rate,
	       start_date, due_date, status, version, created_at, updated_at
	FROM loans
`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, activity domain.Activity) error {
	query := `
		INSERT INTO loans (id, borrower_id, issued_by_id, issued_by_role, principal, interest_rate,
		                   start_date, due_date, status, version, created_at, updated_at)
		VALUES (:id, :borrower_id, :issued_by_id, :issued_by_role, :principal, :interest_rate,
		        :start_date, :due_date, :status, :version, :created_at, :updated_at)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.NamedExecContext(ctx, query, newLoanRow(loan)); err != nil {
		return translateLoanError(err, loan)
	}

	if err = writeHistory(ctx, tx, loan); err != nil {
		return err
	}

	if err = insertActivities(ctx, tx, activity); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var row loanRow
	err := r.db.GetContext(ctx, &row, selectLoanColumns+` WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NotFound("loan", id)
		}
		return nil, err
	}

	loan := row.toDomain()
	if err := loadHistory(ctx, r.db, []*domain.Loan{loan}); err != nil {
		return nil, err
	}

	return loan, nil
}

func (r *loanRepository) Save(ctx context.Context, loan *domain.Loan, activities ...domain.Activity) error {
	query := `
		UPDATE loans
		SET due_date = $3, status = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, loan.ID, loan.Version, loan.DueDate, string(loan.Status), loan.UpdatedAt)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, loan.ID); err != nil {
			return err
		}
		if !exists {
			return customError.NotFound("loan", loan.ID)
		}
		return customError.ConcurrencyConflict(loan.ID)
	}

	if err = writeHistory(ctx, tx, loan); err != nil {
		return err
	}

	if err = insertActivities(ctx, tx, activities...); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	loan.Version++
	return nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BorrowerID != nil {
		args = append(args, *filter.BorrowerID)
		conditions = append(conditions, fmt.Sprintf("borrower_id = $%d", len(args)))
	}
	if filter.IssuedByID != nil {
		args = append(args, *filter.IssuedByID)
		conditions = append(conditions, fmt.Sprintf("issued_by_id = $%d", len(args)))
	}

	query := selectLoanColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.toDomain())
	}

	if err := loadHistory(ctx, r.db, loans); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListOverdueCandidates(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM loans
		WHERE status = 'active' AND due_date < $1
		ORDER BY due_date, id
	`

	today := calculator.DateOf(now)
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, query, today.Format(time.DateOnly)); err != nil {
		return nil, err
	}

	return ids, nil
}

// loadHistory fills the payment, fee and waiver slices of loans with one
// query per table.
func loadHistory(ctx context.Context, q sqlx.QueryerContext, loans []*domain.Loan) error {
	if len(loans) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Loan, len(loans))
	ids := make([]string, 0, len(loans))
	for _, l := range loans {
		byID[l.ID] = l
		ids = append(ids, l.ID.String())
	}

	payments, err := selectPayments(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if l, ok := byID[p.LoanID]; ok {
			l.Payments = append(l.Payments, p)
		}
	}

	fees, err := selectLateFees(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, f := range fees {
		if l, ok := byID[f.LoanID]; ok {
			l.LateFees = append(l.LateFees, f)
		}
	}

	waivers, err := selectWaivers(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, w := range waivers {
		if l, ok := byID[w.LoanID]; ok {
			l.Waivers = append(l.Waivers, w)
		}
	}

	return nil
}

// writeHistory upserts every history row of loan. Rows already stored are left
// alone except for the mutable fee flags.
func writeHistory(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan) error {
	if err := upsertPayments(ctx, tx, loan.Payments); err != nil {
		return err
	}
	if err := upsertLateFees(ctx, tx, loan.LateFees); err != nil {
		return err
	}
	return upsertWaivers(ctx, tx, loan.Waivers)
}

func translateLoanError(err error, loan *domain.Loan) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code.Name() {
	case "foreign_key_violation":
		return customError.NotFound("borrower", loan.BorrowerID)
	case "unique_violation":
		return customError.InvalidState("loan %s already exists", loan.ID)
	case "check_violation":
		return customError.InvalidInput("loan %s violates %s", loan.ID, pqErr.Constraint)
	}
	return err
}
