package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
	"github.com/ternarybob/casestrainer/internal/pipeline"
)

// AnalysisWorker runs the citation pipeline for queued tasks. Input is
// decoded to cleaned text at dispatch, so the early phases are published
// here as markers and the heavy lifting starts at citation extraction.
type AnalysisWorker struct {
	pipeline interfaces.Pipeline
	tasks    interfaces.TaskStorage
	results  interfaces.ResultStorage
	events   interfaces.EventPublisher
	logger   arbor.ILogger
}

var _ interfaces.TaskWorker = (*AnalysisWorker)(nil)

// NewAnalysisWorker creates the worker for citation analysis tasks.
func NewAnalysisWorker(pl interfaces.Pipeline, tasks interfaces.TaskStorage, results interfaces.ResultStorage, events interfaces.EventPublisher, logger arbor.ILogger) *AnalysisWorker {
	if events == nil {
		events = interfaces.NopEventPublisher{}
	}
	return &AnalysisWorker{
		pipeline: pl,
		tasks:    tasks,
		results:  results,
		events:   events,
		logger:   logger,
	}
}

func (w *AnalysisWorker) GetTaskType() string {
	return models.TaskTypeAnalysis
}

func (w *AnalysisWorker) Validate(payload *models.AnalysisPayload) error {
	if payload == nil {
		return fmt.Errorf("payload is required")
	}
	if payload.Text == "" {
		return fmt.Errorf("payload has no text")
	}
	switch payload.SourceKind {
	case models.SourceKindText, models.SourceKindFile, models.SourceKindURL:
	default:
		return fmt.Errorf("unknown source kind %q", payload.SourceKind)
	}
	return nil
}

// Execute runs the pipeline to completion, persisting progress and the
// final result. Cancellation surfaces as pipeline.ErrCanceled.
func (w *AnalysisWorker) Execute(ctx context.Context, task *models.Task, payload *models.AnalysisPayload) error {
	w.publishPhase(ctx, task.ID, models.PhaseInitializing, models.PhaseInitializing.PercentFloor())
	if payload.SourceKind == models.SourceKindURL {
		w.publishPhase(ctx, task.ID, models.PhaseFetching, models.PhaseFetching.PercentFloor())
	}
	w.publishPhase(ctx, task.ID, models.PhaseExtractingText, models.PhaseExtractingText.PercentFloor())

	opts := interfaces.AnalyzeOptions{
		TaskID:     task.ID,
		SourceKind: payload.SourceKind,
		SourceName: payload.SourceName,
		Progress: func(phase models.TaskPhase, percent int) {
			w.publishPhase(ctx, task.ID, phase, percent)
		},
		Cancelled: func() bool {
			current, err := w.tasks.GetTask(ctx, task.ID)
			if err != nil {
				return false
			}
			return current.CancelRequested
		},
	}

	result, err := w.pipeline.Analyze(ctx, payload.Text, opts)
	if err != nil {
		return err
	}

	if err := w.results.SaveResult(ctx, result); err != nil {
		return models.NewAppError(models.ErrCodeInternal, "failed to persist result", err)
	}

	if err := w.tasks.Mutate(ctx, task.ID, func(t *models.Task) error {
		t.MarkFinished(result.ID)
		return nil
	}); err != nil {
		return models.NewAppError(models.ErrCodeInternal, "failed to finish task", err)
	}

	w.publishPhase(ctx, task.ID, models.PhaseDone, 100)
	return nil
}

// publishPhase persists the transition and pushes it to subscribers.
// Percent never regresses; SetPhase and SetPercent enforce that.
func (w *AnalysisWorker) publishPhase(ctx context.Context, taskID string, phase models.TaskPhase, percent int) {
	err := w.tasks.Mutate(ctx, taskID, func(t *models.Task) error {
		t.SetPhase(phase)
		t.SetPercent(percent)
		return nil
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("task_id", taskID).Msg("Failed to persist progress")
	}

	w.events.Publish(interfaces.Event{
		Type:   interfaces.EventTaskProgress,
		TaskID: taskID,
		Payload: map[string]interface{}{
			"phase":   phase,
			"percent": percent,
		},
		Timestamp: time.Now(),
	})
}

// isCancellation reports whether the error is cooperative cancellation
// rather than a failure.
func isCancellation(err error) bool {
	return errors.Is(err, pipeline.ErrCanceled) || errors.Is(err, context.Canceled)
}
