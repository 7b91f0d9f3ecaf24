package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"library-service/internal/logger"
	"library-service/internal/models"
	"library-service/internal/notification"
	"library-service/internal/repositories"
	"library-service/internal/services"
)

// OverdueSweepJob is the registered name of the daily overdue report.
const OverdueSweepJob = "borrowings list"

// ErrUnknownJob is returned when no runner exists for a job name.
var ErrUnknownJob = errors.New("unknown job")

// OverdueSource lists overdue borrowings as of a calendar day.
type OverdueSource interface {
	ListOverdue(ctx context.Context, today models.Date) ([]models.Borrowing, error)
	Today() models.Date
}

// Runner coordinates all scheduled jobs.
type Runner struct {
	jobRepo  repositories.ScheduledJobRepository
	overdue  OverdueSource
	notifier services.Notifier
	jobs     map[string]func(ctx context.Context) error
	log      *slog.Logger
}

func NewRunner(jobRepo repositories.ScheduledJobRepository, overdue OverdueSource, notifier services.Notifier) *Runner {
	r := &Runner{
		jobRepo:  jobRepo,
		overdue:  overdue,
		notifier: notifier,
		log:      logger.WithService("jobs"),
	}
	r.jobs = map[string]func(ctx context.Context) error{
		OverdueSweepJob: r.SendOverdueReport,
	}
	return r
}

// Names returns the job names this runner can execute, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) Has(name string) bool {
	_, ok := r.jobs[name]
	return ok
}

// Run executes a scheduled occurrence of the job. Each job runs at most once per
// calendar day: the day is claimed in the job registry first and a lost claim skips
// the run, so several replicas can share one schedule.
func (r *Runner) Run(ctx context.Context, name string) error {
	fn, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	today := r.overdue.Today()
	claimed, err := r.jobRepo.ClaimRun(nil, name, today)
	if err != nil {
		r.log.ErrorContext(ctx, "failed to claim job run", "job", name, "error", err)
		return fmt.Errorf("claiming %s run: %w", name, err)
	}
	if !claimed {
		r.log.InfoContext(ctx, "job already ran today", "job", name, "day", today.String())
		return nil
	}

	return r.runWithRecovery(ctx, name, fn)
}

// RunNow executes the job immediately without claiming the day.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	fn, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return r.runWithRecovery(ctx, name, fn)
}

// runWithRecovery wraps job execution with panic recovery.
func (r *Runner) runWithRecovery(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.ErrorContext(ctx, "job panicked", "job", name, "panic", p)
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
	}()

	r.log.InfoContext(ctx, "starting job", "job", name)
	if err := fn(ctx); err != nil {
		r.log.ErrorContext(ctx, "job failed", "job", name, "error", err)
		return err
	}
	r.log.InfoContext(ctx, "job completed", "job", name)
	return nil
}

// SendOverdueReport queues exactly one message: the per-borrower summary of overdue
// borrowings, or the "nothing overdue" text. It changes no records.
func (r *Runner) SendOverdueReport(ctx context.Context) error {
	today := r.overdue.Today()
	overdue, err := r.overdue.ListOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("listing overdue borrowings: %w", err)
	}

	r.log.InfoContext(ctx, "overdue borrowings found", "count", len(overdue), "day", today.String())
	r.notifier.Notify(ctx, notification.OverdueReport(overdue))
	return nil
}
