package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/segyhp/microloan-ledger/internal/domain"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Tests that
// need Postgres are skipped when the variable is not set.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, MigrateUp(db))

	t.Cleanup(func() { db.Close() })
	return db
}

var testActor = domain.Actor{ID: uuid.MustParse("9d3c1a7e-5b2f-4c8d-a6e0-1f2b3c4d5e6f"), Role: domain.ActorRoleManager}

func seedLoan(t *testing.T, db *sqlx.DB) (*domain.Loan, *domain.Borrower) {
	t.Helper()
	ctx := context.Background()

	borrower := &domain.Borrower{ID: uuid.New(), Name: "Siti Rahma", Phone: "+62811000111"}
	require.NoError(t, NewBorrowerRepository(db).Create(ctx, borrower))

	now := time.Now().UTC().Truncate(time.Microsecond)
	loan, activity, err := domain.NewLoan(domain.IssueLoanRequest{
		BorrowerID:   borrower.ID,
		Principal:    decimal.NewFromInt(10000),
		InterestRate: decimal.NewFromInt(10),
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		IssuedBy:     testActor,
	}, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	loan.CreatedAt, loan.UpdatedAt = now, now

	require.NoError(t, NewLoanRepository(db).Create(ctx, loan, activity))
	return loan, borrower
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	loan, borrower := seedLoan(t, db)
	repo := NewLoanRepository(db)

	got, err := repo.GetByID(context.Background(), loan.ID)
	require.NoError(t, err)

	assert.Equal(t, borrower.ID, got.BorrowerID)
	assert.Equal(t, testActor, got.IssuedBy)
	assert.True(t, got.Principal.Equal(loan.Principal))
	assert.True(t, got.InterestRate.Equal(loan.InterestRate))
	assert.Equal(t, domain.LoanStatusActive, got.Status)
	assert.Empty(t, got.Payments)
	assert.Equal(t, int64(0), got.Version)

	found, err := NewBorrowerRepository(db).GetByID(context.Background(), borrower.ID)
	require.NoError(t, err)
	assert.Equal(t, borrower.Name, found.Name)
}

func TestLoanRepository_GetByID_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := NewLoanRepository(db).GetByID(context.Background(), uuid.New())
	assert.True(t, customError.IsNotFound(err))

	_, err = NewBorrowerRepository(db).GetByID(context.Background(), uuid.New())
	assert.True(t, customError.IsNotFound(err))
}

func TestLoanRepository_Create_UnknownBorrower(t *testing.T) {
	db := openTestDB(t)

	loan, activity, err := domain.NewLoan(domain.IssueLoanRequest{
		BorrowerID:   uuid.New(),
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.Zero,
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		IssuedBy:     testActor,
	}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	err = NewLoanRepository(db).Create(context.Background(), loan, activity)
	assert.True(t, customError.IsNotFound(err))
}

func TestLoanRepository_SaveHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loan, _ := seedLoan(t, db)
	repo := NewLoanRepository(db)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fee, feeActivity, err := loan.ApplyLateFee(domain.ApplyLateFeeRequest{
		Amount: decimal.NewFromInt(200), Reason: "late", AppliedBy: testActor,
	}, now)
	require.NoError(t, err)
	_, payActivity, err := loan.RecordPayment(domain.RecordPaymentRequest{
		Amount: decimal.NewFromInt(3000), Date: now, RecordedBy: testActor,
	}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loan, feeActivity, payActivity))
	assert.Equal(t, int64(1), loan.Version)

	_, waiveActivity, err := loan.WaiveLateFee(fee.ID, domain.WaiveLateFeeRequest{Reason: "ok", GrantedBy: testActor}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loan, waiveActivity))

	got, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, got.Payments, 1)
	require.Len(t, got.LateFees, 1)
	require.Len(t, got.Waivers, 1)
	assert.True(t, got.LateFees[0].IsWaived)
	assert.Equal(t, fee.ID, *got.Waivers[0].LateFeeID)
	assert.True(t, got.Outstanding().Equal(decimal.NewFromInt(8000)))
	assert.Equal(t, int64(2), got.Version)

	activities, err := NewActivityRepository(db).ListByLoan(ctx, loan.ID, 10)
	require.NoError(t, err)
	assert.Len(t, activities, 4)
}

func TestLoanRepository_Save_ConcurrencyConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loan, _ := seedLoan(t, db)
	repo := NewLoanRepository(db)

	first, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, a1, err := first.RecordPayment(domain.RecordPaymentRequest{Amount: decimal.NewFromInt(100), Date: now, RecordedBy: testActor}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first, a1))

	_, a2, err := second.RecordPayment(domain.RecordPaymentRequest{Amount: decimal.NewFromInt(200), Date: now, RecordedBy: testActor}, now)
	require.NoError(t, err)
	err = repo.Save(ctx, second, a2)
	assert.True(t, customError.IsConcurrencyConflict(err))

	got, err := repo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, 1, "losing save must not write its payment")
}

func TestLoanRepository_ListAndOverdueCandidates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	loan, borrower := seedLoan(t, db)
	repo := NewLoanRepository(db)

	loans, err := repo.List(ctx, domain.LoanFilter{BorrowerID: &borrower.ID})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, loan.ID, loans[0].ID)

	ids, err := repo.ListOverdueCandidates(ctx, time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, ids, loan.ID)

	ids, err = repo.ListOverdueCandidates(ctx, time.Date(2024, 7, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, ids, loan.ID)
}
