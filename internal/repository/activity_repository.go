package repository

import (
	"context"

	"github.com/segyhp/microloan-ledger/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const defaultActivityLimit = 100

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) ListByLoan(ctx context.Context, loanID uuid.UUID, limit int) ([]domain.Activity, error) {
	query := `
		SELECT id, loan_id, borrower_id, action, actor_id, actor_role, amount, description,
		       status_before, status_after, occurred_at
		FROM activity_logs
		WHERE loan_id = $1
		ORDER BY occurred_at DESC, id
		LIMIT $2
	`

	if limit <= 0 {
		limit = defaultActivityLimit
	}

	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, query, loanID, limit); err != nil {
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, row.toDomain())
	}
	return activities, nil
}

func insertActivities(ctx context.Context, tx *sqlx.Tx, activities ...domain.Activity) error {
	query := `
		INSERT INTO activity_logs (id, loan_id, borrower_id, action, actor_id, actor_role, amount,
		                           description, status_before, status_after, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, a := range activities {
		_, err := tx.ExecContext(ctx, query,
			a.ID,
			a.LoanID,
			a.BorrowerID,
			string(a.Action),
			a.Actor.ID,
			string(a.Actor.Role),
			a.Amount,
			a.Description,
			string(a.StatusBefore),
			string(a.StatusAfter),
			a.OccurredAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
