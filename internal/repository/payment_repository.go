package repository

import (
	"context"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func selectPayments(ctx context.Context, q sqlx.QueryerContext, loanIDs []string) ([]domain.Payment, error) {
	query := `
		SELECT id, loan_id, amount, payment_date, recorded_by_id, recorded_by_role, balance_after, recorded_at
		FROM payments
		WHERE loan_id = ANY($1::uuid[])
		ORDER BY loan_id, seq
	`

	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(loanIDs)); err != nil {
		return nil, err
	}

	payments := make([]domain.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toDomain())
	}
	return payments, nil
}

// upsertPayments inserts payments not stored yet. Payments are immutable, so
// an existing id is skipped.
func upsertPayments(ctx context.Context, tx *sqlx.Tx, payments []domain.Payment) error {
	query := `
		INSERT INTO payments (id, loan_id, amount, payment_date, recorded_by_id, recorded_by_role, balance_after, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	for _, p := range payments {
		_, err := tx.ExecContext(ctx, query,
			p.ID,
			p.LoanID,
			p.Amount,
			p.Date,
			p.RecordedBy.ID,
			string(p.RecordedBy.Role),
			p.BalanceAfter,
			p.RecordedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
