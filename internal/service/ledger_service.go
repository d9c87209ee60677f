package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/segyhp/microloan-ledger/internal/cache"
	"github.com/segyhp/microloan-ledger/internal/config"
	"github.com/segyhp/microloan-ledger/internal/domain"
	"github.com/segyhp/microloan-ledger/internal/event"
	"github.com/segyhp/microloan-ledger/internal/monitoring"
	"github.com/segyhp/microloan-ledger/internal/report"
	"github.com/segyhp/microloan-ledger/internal/repository"
	"github.com/segyhp/microloan-ledger/pkg/calculator"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService runs every ledger operation as load, mutate, save. A save that
// loses an optimistic lock is retried once against a freshly loaded loan.
type LedgerService struct {
	loanRepo     repository.LoanRepository
	borrowerRepo repository.BorrowerRepository
	activityRepo repository.ActivityRepository
	balanceCache cache.BalanceCache
	publisher    event.ActivityPublisher
	config       *config.Config
	logger       *slog.Logger
	now          func() time.Time
}

func NewLedgerService(
	loanRepo repository.LoanRepository,
	borrowerRepo repository.BorrowerRepository,
	activityRepo repository.ActivityRepository,
	balanceCache cache.BalanceCache,
	publisher event.ActivityPublisher,
	config *config.Config,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		loanRepo:     loanRepo,
		borrowerRepo: borrowerRepo,
		activityRepo: activityRepo,
		balanceCache: balanceCache,
		publisher:    publisher,
		config:       config,
		logger:       logger.With("component", "LedgerService"),
		now:          time.Now,
	}
}

// mutation changes a loaded loan and returns the activities describing the
// change. Returning no activities means there was nothing to save.
type mutation func(loan *domain.Loan, now time.Time) ([]domain.Activity, error)

// IssueLoan creates a loan for an existing borrower
func (s *LedgerService) IssueLoan(ctx context.Context, req domain.IssueLoanRequest) (loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("issue_loan", err) }()

	if err = req.Validate(); err != nil {
		return nil, err
	}

	if _, err = s.borrowerRepo.GetByID(ctx, req.BorrowerID); err != nil {
		return nil, dbError(err)
	}

	loan, activity, err := domain.NewLoan(req, s.now())
	if err != nil {
		return nil, err
	}

	if err = s.loanRepo.Create(ctx, loan, activity); err != nil {
		return nil, dbError(err)
	}

	monitoring.RecordAmount("issue_loan", loan.Principal.InexactFloat64())
	s.afterCommit(ctx, loan, []domain.Activity{activity})
	return loan, nil
}

// RecordPayment appends a repayment to a loan
func (s *LedgerService) RecordPayment(ctx context.Context, loanID uuid.UUID, req domain.RecordPaymentRequest) (payment *domain.Payment, loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("record_payment", err) }()

	loan, err = s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		p, activity, err := l.RecordPayment(req, now)
		if err != nil {
			return nil, err
		}
		payment = p
		return []domain.Activity{activity}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	monitoring.RecordAmount("record_payment", payment.Amount.InexactFloat64())
	return payment, loan, nil
}

// ApplyLateFee charges a penalty on a loan
func (s *LedgerService) ApplyLateFee(ctx context.Context, loanID uuid.UUID, req domain.ApplyLateFeeRequest) (fee *domain.LateFee, loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("apply_late_fee", err) }()

	loan, err = s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		f, activity, err := l.ApplyLateFee(req, now)
		if err != nil {
			return nil, err
		}
		fee = f
		return []domain.Activity{activity}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	monitoring.RecordAmount("apply_late_fee", fee.Amount.InexactFloat64())
	return fee, loan, nil
}

// WaiveLateFee waives one late fee in full
func (s *LedgerService) WaiveLateFee(ctx context.Context, loanID, feeID uuid.UUID, req domain.WaiveLateFeeRequest) (waiver *domain.Waiver, loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("waive_late_fee", err) }()

	loan, err = s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		w, activity, err := l.WaiveLateFee(feeID, req, now)
		if err != nil {
			return nil, err
		}
		waiver = w
		return []domain.Activity{activity}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	monitoring.RecordAmount("waive_late_fee", waiver.Amount.InexactFloat64())
	return waiver, loan, nil
}

// GrantWaiver records a standalone reduction of the amount due
func (s *LedgerService) GrantWaiver(ctx context.Context, loanID uuid.UUID, req domain.GrantWaiverRequest) (waiver *domain.Waiver, loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("grant_waiver", err) }()

	loan, err = s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		w, activity, err := l.GrantWaiver(req, now)
		if err != nil {
			return nil, err
		}
		waiver = w
		return []domain.Activity{activity}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	monitoring.RecordAmount("grant_waiver", waiver.Amount.InexactFloat64())
	return waiver, loan, nil
}

// ExtendDueDate moves a loan's due date
func (s *LedgerService) ExtendDueDate(ctx context.Context, loanID uuid.UUID, req domain.ExtendDueDateRequest) (loan *domain.Loan, err error) {
	defer func() { monitoring.RecordOperation("extend_due_date", err) }()

	return s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		activity, err := l.ExtendDueDate(req, now)
		if err != nil {
			return nil, err
		}
		return []domain.Activity{activity}, nil
	})
}

// MarkOverdue moves a single loan to overdue if it is active and past due.
// It reports whether the loan changed; running it again is a no-op.
func (s *LedgerService) MarkOverdue(ctx context.Context, loanID uuid.UUID) (changed bool, err error) {
	defer func() { monitoring.RecordOperation("mark_overdue", err) }()

	_, err = s.mutate(ctx, loanID, func(l *domain.Loan, now time.Time) ([]domain.Activity, error) {
		changed = l.MarkOverdueIfPastDue(now)
		if !changed {
			return nil, nil
		}
		l.UpdatedAt = now
		return []domain.Activity{domain.OverdueActivity(l, now)}, nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// OverdueCandidates lists active loans that are past due as of now
func (s *LedgerService) OverdueCandidates(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.loanRepo.ListOverdueCandidates(ctx, s.now())
	if err != nil {
		return nil, dbError(err)
	}
	return ids, nil
}

func (s *LedgerService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.loadLoan(ctx, loanID)
}

// GetLoanDetails returns a loan with its borrower's display data. A missing
// borrower is logged and left out rather than failing the read.
func (s *LedgerService) GetLoanDetails(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetails, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	details := &domain.LoanDetails{Loan: loan, Balance: loan.Summary()}

	borrower, err := s.borrowerRepo.GetByID(ctx, loan.BorrowerID)
	switch {
	case err == nil:
		details.Borrower = borrower
	case customError.IsNotFound(err):
		s.logger.WarnContext(ctx, "Borrower missing for loan",
			slog.String("loanID", loan.ID.String()), slog.String("borrowerID", loan.BorrowerID.String()))
	default:
		return nil, dbError(err)
	}

	return details, nil
}

// GetBalance serves the derived balance, from cache when possible
func (s *LedgerService) GetBalance(ctx context.Context, loanID uuid.UUID) (*domain.BalanceSummary, error) {
	if s.balanceCache != nil {
		summary, ok, err := s.balanceCache.Get(ctx, loanID)
		if err != nil {
			s.logger.WarnContext(ctx, "Balance cache read failed", slog.String("loanID", loanID.String()), slog.Any("error", err))
		}
		monitoring.RecordCacheLookup(ok)
		if ok {
			return summary, nil
		}
	}

	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	summary := loan.Summary()
	if s.balanceCache != nil {
		if err := s.balanceCache.Set(ctx, summary); err != nil {
			s.logger.WarnContext(ctx, "Balance cache write failed", slog.String("loanID", loanID.String()), slog.Any("error", err))
		}
	}
	return &summary, nil
}

// SuggestLateFee computes the configured late fee for a loan's current lateness
func (s *LedgerService) SuggestLateFee(ctx context.Context, loanID uuid.UUID) (*domain.LateFeeSuggestion, error) {
	loan, err := s.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	pct := s.lateFeePercentage()
	days := calculator.DaysOverdue(loan.DueDate, s.now())

	return &domain.LateFeeSuggestion{
		LoanID:      loan.ID.String(),
		DaysOverdue: days,
		Percentage:  pct,
		Suggested:   calculator.LateFeeSuggestion(loan.Principal, days, pct),
	}, nil
}

func (s *LedgerService) ListLoans(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, customError.InvalidInput("unknown loan status %q", filter.Status)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, customError.InvalidInput("limit and offset must not be negative")
	}
	if filter.Limit == 0 && s.config != nil {
		filter.Limit = s.config.Business.DefaultPageSize
	}

	loans, err := s.loanRepo.List(ctx, filter)
	if err != nil {
		return nil, dbError(err)
	}
	return loans, nil
}

// Dashboard aggregates every loan matching filter. Pagination is ignored so
// the totals cover the whole portfolio.
func (s *LedgerService) Dashboard(ctx context.Context, filter domain.LoanFilter) (*report.Dashboard, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, customError.InvalidInput("unknown loan status %q", filter.Status)
	}
	filter.Limit, filter.Offset = 0, 0

	loans, err := s.loanRepo.List(ctx, filter)
	if err != nil {
		return nil, dbError(err)
	}

	dashboard := report.BuildDashboard(loans, s.now())
	return &dashboard, nil
}

func (s *LedgerService) ListActivity(ctx context.Context, loanID uuid.UUID, limit int) ([]domain.Activity, error) {
	if _, err := s.loadLoan(ctx, loanID); err != nil {
		return nil, err
	}

	activities, err := s.activityRepo.ListByLoan(ctx, loanID, limit)
	if err != nil {
		return nil, dbError(err)
	}
	return activities, nil
}

// EMISchedule builds an amortization schedule. It touches no loan.
func (s *LedgerService) EMISchedule(req domain.ScheduleRequest) (*domain.ScheduleResponse, error) {
	if req.StartDate.IsZero() {
		return nil, customError.InvalidInput("start date is required")
	}

	emi, err := calculator.EMI(req.Principal, req.AnnualRate, req.TenureMonths)
	if err != nil {
		return nil, err
	}

	schedule, err := calculator.EMISchedule(req.Principal, req.AnnualRate, req.StartDate, req.TenureMonths)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, entry := range schedule {
		total = total.Add(entry.EMIAmount)
	}

	return &domain.ScheduleResponse{EMI: emi, TotalPaid: total, Schedule: schedule}, nil
}

func (s *LedgerService) mutate(ctx context.Context, loanID uuid.UUID, fn mutation) (*domain.Loan, error) {
	for attempt := 1; ; attempt++ {
		loan, err := s.loadLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}

		prev := loan.Status
		activities, err := fn(loan, s.now())
		if err != nil {
			return nil, err
		}
		if len(activities) == 0 {
			return loan, nil
		}

		err = s.loanRepo.Save(ctx, loan, activities...)
		if err == nil {
			monitoring.RecordTransition(string(prev), string(loan.Status))
			s.afterCommit(ctx, loan, activities)
			return loan, nil
		}

		if customError.IsConcurrencyConflict(err) && attempt == 1 {
			monitoring.Ledger.ConflictRetries.Inc()
			s.logger.WarnContext(ctx, "Loan modified concurrently, retrying on fresh copy",
				slog.String("loanID", loanID.String()))
			continue
		}
		return nil, dbError(err)
	}
}

// afterCommit runs side effects that must not fail a committed mutation.
func (s *LedgerService) afterCommit(ctx context.Context, loan *domain.Loan, activities []domain.Activity) {
	if s.balanceCache != nil {
		if err := s.balanceCache.Invalidate(ctx, loan.ID); err != nil {
			s.logger.WarnContext(ctx, "Balance cache invalidation failed",
				slog.String("loanID", loan.ID.String()), slog.Any("error", err))
		}
	}

	for _, activity := range activities {
		s.logger.InfoContext(ctx, "Ledger activity",
			slog.String("action", string(activity.Action)),
			slog.String("loanID", activity.LoanID.String()),
			slog.String("actor", activity.Actor.String()),
			slog.String("status", string(loan.Status)),
		)

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishActivity(ctx, activity); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish activity",
				slog.String("activityID", activity.ID.String()), slog.Any("error", err))
		}
	}
}

func (s *LedgerService) loadLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	if loanID == uuid.Nil {
		return nil, customError.InvalidInput("loan id is required")
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, dbError(err)
	}
	return loan, nil
}

func (s *LedgerService) lateFeePercentage() decimal.Decimal {
	if s.config == nil {
		return decimal.RequireFromString(calculator.DefaultLateFeePercentage)
	}
	return s.config.GetLateFeePercentage()
}

// dbError keeps typed errors from the repository and wraps anything else.
func dbError(err error) error {
	if customError.Code(err) != "" {
		return err
	}
	return customError.WrapDatabaseError(err)
}
