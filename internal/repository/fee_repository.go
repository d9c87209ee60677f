package repository

import (
	"context"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func selectLateFees(ctx context.Context, q sqlx.QueryerContext, loanIDs []string) ([]domain.LateFee, error) {
	query := `
		SELECT id, loan_id, amount, reason, days_overdue, applied_date, applied_by_id, applied_by_role,
		       is_paid, is_waived, waived_at
		FROM late_fees
		WHERE loan_id = ANY($1::uuid[])
		ORDER BY loan_id, seq
	`

	var rows []lateFeeRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(loanIDs)); err != nil {
		return nil, err
	}

	fees := make([]domain.LateFee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, row.toDomain())
	}
	return fees, nil
}

// upsertLateFees inserts new fees and refreshes the paid/waived flags of
// stored ones. Amount and reason never change after insert.
func upsertLateFees(ctx context.Context, tx *sqlx.Tx, fees []domain.LateFee) error {
	query := `
		INSERT INTO late_fees (id, loan_id, amount, reason, days_overdue, applied_date, applied_by_id,
		                       applied_by_role, is_paid, is_waived, waived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET is_paid = EXCLUDED.is_paid, is_waived = EXCLUDED.is_waived, waived_at = EXCLUDED.waived_at
	`

	for _, f := range fees {
		_, err := tx.ExecContext(ctx, query,
			f.ID,
			f.LoanID,
			f.Amount,
			f.Reason,
			f.DaysOverdue,
			f.AppliedDate,
			f.AppliedBy.ID,
			string(f.AppliedBy.Role),
			f.IsPaid,
			f.IsWaived,
			f.WaivedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func selectWaivers(ctx context.Context, q sqlx.QueryerContext, loanIDs []string) ([]domain.Waiver, error) {
	query := `
		SELECT id, loan_id, late_fee_id, amount, waiver_type, reason, granted_date, granted_by_id, granted_by_role
		FROM waivers
		WHERE loan_id = ANY($1::uuid[])
		ORDER BY loan_id, seq
	`

	var rows []waiverRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(loanIDs)); err != nil {
		return nil, err
	}

	waivers := make([]domain.Waiver, 0, len(rows))
	for _, row := range rows {
		waivers = append(waivers, row.toDomain())
	}
	return waivers, nil
}

func upsertWaivers(ctx context.Context, tx *sqlx.Tx, waivers []domain.Waiver) error {
	query := `
		INSERT INTO waivers (id, loan_id, late_fee_id, amount, waiver_type, reason, granted_date,
		                     granted_by_id, granted_by_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	for _, w := range waivers {
		_, err := tx.ExecContext(ctx, query,
			w.ID,
			w.LoanID,
			w.LateFeeID,
			w.Amount,
			string(w.Type),
			w.Reason,
			w.GrantedDate,
			w.GrantedBy.ID,
			string(w.GrantedBy.Role),
		)
		if err != nil {
			return err
		}
	}

	return nil
}
