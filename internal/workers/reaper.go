package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Reaper recovers tasks whose worker died and sweeps expired results. A
// started task whose heartbeat is older than the stuck threshold goes back
// to queued; its unacked queue message redelivers on its own once the
// visibility timeout lapses, so only the task record needs fixing here.
// Tasks already at the attempt limit are marked failed and their message
// dropped at next delivery by the terminal-status check in the processor.
type Reaper struct {
	tasks   interfaces.TaskStorage
	results interfaces.ResultStorage
	logger  arbor.ILogger

	stuckThreshold time.Duration
	maxAttempts    int
	sweepInterval  time.Duration

	cron *cron.Cron
}

// NewReaper creates the stuck-task and expired-result sweeper.
func NewReaper(tasks interfaces.TaskStorage, results interfaces.ResultStorage, logger arbor.ILogger, stuckThreshold time.Duration, maxAttempts int, sweepInterval time.Duration) *Reaper {
	if stuckThreshold <= 0 {
		stuckThreshold = 5 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Reaper{
		tasks:          tasks,
		results:        results,
		logger:         logger,
		stuckThreshold: stuckThreshold,
		maxAttempts:    maxAttempts,
		sweepInterval:  sweepInterval,
	}
}

// Start schedules the sweeps: stuck tasks every sweep interval, expired
// results hourly.
func (r *Reaper) Start() error {
	if r.cron != nil {
		return fmt.Errorf("reaper already started")
	}
	c := cron.New()

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.sweepInterval), r.SweepStuckTasks); err != nil {
		return fmt.Errorf("failed to schedule stuck-task sweep: %w", err)
	}
	if _, err := c.AddFunc("@every 1h", r.SweepExpiredResults); err != nil {
		return fmt.Errorf("failed to schedule result sweep: %w", err)
	}

	c.Start()
	r.cron = c
	r.logger.Info().
		Str("stuck_threshold", r.stuckThreshold.String()).
		Int("max_attempts", r.maxAttempts).
		Msg("Reaper started")
	return nil
}

// Stop halts the schedules and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
	r.logger.Info().Msg("Reaper stopped")
}

// SweepStuckTasks requeues started tasks whose heartbeat went stale, up to
// the attempt limit.
func (r *Reaper) SweepStuckTasks() {
	ctx := context.Background()
	started, err := r.tasks.ListTasksByStatus(ctx, models.TaskStatusStarted)
	if err != nil {
		r.logger.Error().Err(err).Msg("Stuck-task sweep failed to list tasks")
		return
	}

	now := time.Now()
	for _, task := range started {
		if task.HeartbeatAge(now) < r.stuckThreshold {
			continue
		}

		taskID := task.ID
		err := r.tasks.Mutate(ctx, taskID, func(t *models.Task) error {
			// Re-check under the lock; the worker may have finished or
			// heartbeat since the list was taken.
			if t.Status != models.TaskStatusStarted || t.HeartbeatAge(time.Now()) < r.stuckThreshold {
				return nil
			}
			if t.Attempts >= r.maxAttempts {
				r.logger.Warn().
					Str("task_id", taskID).
					Int("attempts", t.Attempts).
					Msg("Stuck task exhausted attempts, marking failed")
				t.MarkFailed(string(models.ErrCodeInternal), "task stalled and exhausted retry attempts")
				return nil
			}
			r.logger.Warn().
				Str("task_id", taskID).
				Int("attempts", t.Attempts).
				Msg("Requeueing stuck task")
			t.Requeue()
			return nil
		})
		if err != nil {
			r.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to reap stuck task")
		}
	}
}

// SweepExpiredResults deletes results past their TTL.
func (r *Reaper) SweepExpiredResults() {
	ctx := context.Background()
	removed, err := r.results.DeleteExpired(ctx, time.Now())
	if err != nil {
		r.logger.Error().Err(err).Msg("Expired-result sweep failed")
		return
	}
	if removed > 0 {
		r.logger.Info().Int("removed", removed).Msg("Expired results deleted")
	}
}
