// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/davidbz/promptdesk/internal/observability"
)

// OrphanScheduler enqueues asynchronous requests that have no job yet.
type OrphanScheduler interface {
	ScheduleOrphans(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Config contains reconciler settings.
type Config struct {
	Schedule string
	Grace    time.Duration
	Batch    int
}

// Reconciler periodically re-enqueues requests that missed the queue.
type Reconciler struct {
	target OrphanScheduler
	cfg    Config
	c      *cron.Cron
}

// NewReconciler creates a reconciler. Start must be called to schedule it.
func NewReconciler(target OrphanScheduler, cfg Config) *Reconciler {
	return &Reconciler{
		target: target,
		cfg:    cfg,
		c:      cron.New(),
	}
}

// Start registers the job and starts the cron loop. ctx carries the logger
// and is passed to every run.
func (r *Reconciler) Start(ctx context.Context) error {
	if _, err := r.c.AddFunc(r.cfg.Schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", r.cfg.Schedule, err)
	}
	r.c.Start()

	observability.FromContext(ctx).Info("reconciler started",
		observability.String("schedule", r.cfg.Schedule),
		observability.Duration("grace", r.cfg.Grace),
	)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (r *Reconciler) Stop() {
	<-r.c.Stop().Done()
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	logger := observability.FromContext(ctx)

	scheduled, err := r.target.ScheduleOrphans(ctx, r.cfg.Grace, r.cfg.Batch)
	if err != nil {
		logger.Error("reconciliation failed", observability.Error(err))
		return 0
	}
	if scheduled > 0 {
		logger.Info("rescheduled orphaned requests", observability.Int("count", scheduled))
	}
	return scheduled
}
