package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/segyhp/microloan-ledger/internal/domain"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type borrowerRepository struct {
	db *sqlx.DB
}

func NewBorrowerRepository(db *sqlx.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Borrower, error) {
	query := `
		SELECT id, name, phone
		FROM borrowers
		WHERE id = $1
	`

	var borrower domain.Borrower
	err := r.db.GetContext(ctx, &borrower, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.NotFound("borrower", id)
		}
		return nil, err
	}

	return &borrower, nil
}

func (r *borrowerRepository) Create(ctx context.Context, borrower *domain.Borrower) error {
	query := `
		INSERT INTO borrowers (id, name, phone)
		VALUES (:id, :name, :phone)
	`

	_, err := r.db.NamedExecContext(ctx, query, borrower)
	return err
}
