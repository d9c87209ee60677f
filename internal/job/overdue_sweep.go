package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segyhp/microloan-ledger/internal/monitoring"
	customError "github.com/segyhp/microloan-ledger/pkg/errors"

	"github.com/google/uuid"
)

const defaultWorkers = 4

// OverdueMarker is the slice of the ledger service the sweep needs.
type OverdueMarker interface {
	OverdueCandidates(ctx context.Context) ([]uuid.UUID, error)
	MarkOverdue(ctx context.Context, loanID uuid.UUID) (bool, error)
}

// OverdueSweepJob moves every active, past-due loan to overdue. Each loan goes
// through the normal versioned save, so a rerun or an overlapping run only
// finds nothing left to change.
type OverdueSweepJob struct {
	ledger  OverdueMarker
	logger  *slog.Logger
	timeout time.Duration
	workers int
}

func NewOverdueSweepJob(ledger OverdueMarker, timeout time.Duration, logger *slog.Logger) *OverdueSweepJob {
	if ledger == nil || logger == nil {
		panic("OverdueSweepJob dependencies cannot be nil")
	}
	return &OverdueSweepJob{
		ledger:  ledger,
		logger:  logger.With("job", "OverdueSweep"),
		timeout: timeout,
		workers: defaultWorkers,
	}
}

// SweepResult summarizes one run.
type SweepResult struct {
	Candidates int
	Marked     int
	Unchanged  int
	Errors     int
}

func (j *OverdueSweepJob) Run(ctx context.Context) (result SweepResult, err error) {
	startTime := time.Now()
	defer func() { monitoring.RecordSweep(startTime, result.Marked, err) }()

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.logger.InfoContext(ctx, "Starting overdue sweep.")

	ids, err := j.ledger.OverdueCandidates(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list overdue candidates, aborting sweep.", slog.Any("error", err))
		return result, fmt.Errorf("cannot run sweep, failed to list candidates: %w", err)
	}
	result.Candidates = len(ids)

	if len(ids) == 0 {
		j.logger.InfoContext(ctx, "No loans past due.", slog.Duration("duration", time.Since(startTime)))
		return result, nil
	}

	var marked, unchanged, errorCount atomic.Int32
	queue := make(chan uuid.UUID)
	var wg sync.WaitGroup

	for range min(j.workers, len(ids)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loanID := range queue {
				logCtx := j.logger.With(slog.String("loanID", loanID.String()))

				changed, markErr := j.ledger.MarkOverdue(ctx, loanID)
				switch {
				case markErr == nil && changed:
					logCtx.DebugContext(ctx, "Loan marked overdue.")
					marked.Add(1)
				case markErr == nil:
					unchanged.Add(1)
				case customError.IsNotFound(markErr):
					logCtx.WarnContext(ctx, "Loan disappeared before it could be marked.", slog.Any("error", markErr))
					unchanged.Add(1)
				default:
					logCtx.ErrorContext(ctx, "Failed to mark loan overdue.", slog.Any("error", markErr))
					errorCount.Add(1)
				}
			}
		}()
	}

feed:
	for _, id := range ids {
		select {
		case queue <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	result.Marked = int(marked.Load())
	result.Unchanged = int(unchanged.Load())
	result.Errors = int(errorCount.Load())

	skipped := result.Candidates - result.Marked - result.Unchanged - result.Errors
	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("candidates", result.Candidates),
		slog.Int("marked", result.Marked),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("skipped", skipped),
		slog.Int("errors", result.Errors),
	)

	if ctxErr := ctx.Err(); ctxErr != nil && skipped > 0 {
		summaryLog.WarnContext(ctx, "Overdue sweep stopped before finishing.", slog.Any("error", ctxErr))
		return result, fmt.Errorf("sweep interrupted with %d loans left: %w", skipped, ctxErr)
	}
	if result.Errors > 0 {
		summaryLog.WarnContext(ctx, "Overdue sweep finished with errors.")
		return result, fmt.Errorf("sweep completed with %d errors", result.Errors)
	}

	summaryLog.InfoContext(ctx, "Overdue sweep finished successfully.")
	return result, nil
}
