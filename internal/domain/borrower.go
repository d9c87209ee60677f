package domain

import "github.com/google/uuid"

// Borrower is read-only display data owned by the borrower registry.
type Borrower struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Phone string    `json:"phone" db:"phone"`
}
