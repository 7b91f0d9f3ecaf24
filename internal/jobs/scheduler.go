package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"library-service/internal/logger"
	"library-service/internal/repositories"
)

// Scheduler manages cron job scheduling.
type Scheduler struct {
	cron    *cron.Cron
	runner  *Runner
	jobRepo repositories.ScheduledJobRepository
}

// NewScheduler creates a scheduler with seconds precision in loc.
func NewScheduler(runner *Runner, jobRepo repositories.ScheduledJobRepository, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
		),
		runner:  runner,
		jobRepo: jobRepo,
	}
}

// Load schedules every registered job the runner knows. Jobs run with ctx.
func (s *Scheduler) Load(ctx context.Context) error {
	registered, err := s.jobRepo.List(nil)
	if err != nil {
		return fmt.Errorf("listing registered jobs: %w", err)
	}

	for _, job := range registered {
		if !s.runner.Has(job.Name) {
			logger.Warn("Registered job has no runner", "job", job.Name)
			continue
		}
		name := job.Name
		if _, err := s.cron.AddFunc(job.Schedule, func() {
			_ = s.runner.Run(ctx, name)
		}); err != nil {
			return fmt.Errorf("scheduling job %q with %q: %w", name, job.Schedule, err)
		}
		logger.Info("Job scheduled", "job", name, "schedule", job.Schedule)
	}
	return nil
}

// Start begins the cron scheduler.
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries returns the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
