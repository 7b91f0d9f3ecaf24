package jobs

import (
	"context"
	"fmt"

	"library-service/internal/logger"
	"library-service/internal/repositories"
)

// Definition is a recurring job known to the process.
type Definition struct {
	Name     string
	Schedule string
}

// Registry records job definitions in the database.
type Registry struct {
	repo repositories.ScheduledJobRepository
	defs []Definition
}

func NewRegistry(repo repositories.ScheduledJobRepository, defs ...Definition) *Registry {
	return &Registry{repo: repo, defs: defs}
}

// Ensure upserts every definition by name. Calling it on every startup, from any number
// of processes, leaves exactly one registration per job.
func (r *Registry) Ensure(ctx context.Context) error {
	for _, def := range r.defs {
		if err := r.repo.Ensure(nil, def.Name, def.Schedule); err != nil {
			return fmt.Errorf("registering job %q: %w", def.Name, err)
		}
		logger.InfoContext(ctx, "job registered", "job", def.Name, "schedule", def.Schedule)
	}
	return nil
}
