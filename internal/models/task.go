// -----------------------------------------------------------------------
// Analysis Task - Queued unit of work with runtime execution state
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the state of an analysis task
type TaskStatus string

const (
	TaskStatusQueued   TaskStatus = "queued"
	TaskStatusStarted  TaskStatus = "started"
	TaskStatusFinished TaskStatus = "finished"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusCanceled TaskStatus = "canceled"
)

// TaskPhase is the pipeline stage a running task is in. Each phase carries
// a percent floor; percent never regresses within a task.
type TaskPhase string

const (
	PhaseInitializing        TaskPhase = "initializing"
	PhaseFetching            TaskPhase = "fetching" // Only when input is a URL
	PhaseExtractingText      TaskPhase = "extracting_text"
	PhaseExtractingCitations TaskPhase = "extracting_citations"
	PhaseClustering          TaskPhase = "clustering"
	PhaseVerifying           TaskPhase = "verifying" // Advances to 95 as clusters complete
	PhaseFinalizing          TaskPhase = "finalizing"
	PhaseDone                TaskPhase = "done"
)

// PercentFloor returns the progress floor published when the phase begins.
func (p TaskPhase) PercentFloor() int {
	switch p {
	case PhaseInitializing:
		return 0
	case PhaseFetching:
		return 10
	case PhaseExtractingText:
		return 20
	case PhaseExtractingCitations:
		return 40
	case PhaseClustering:
		return 55
	case PhaseVerifying:
		return 70
	case PhaseFinalizing:
		return 95
	case PhaseDone:
		return 100
	default:
		return 0
	}
}

// SourceKind identifies how the document entered the system.
type SourceKind string

const (
	SourceKindText SourceKind = "text"
	SourceKindFile SourceKind = "file"
	SourceKindURL  SourceKind = "url"
)

// Task is a persisted analysis job. The input is decoded to cleaned text at
// dispatch time, so the payload carried on the queue is the text itself;
// decode failures are returned to the caller and never enqueue a task.
//
// Task lifecycle: queued -> (worker claim) started -> finished | failed | canceled.
// A started task whose heartbeat is older than the stuck threshold is
// returned to queued by the reaper, up to the attempt limit.
type Task struct {
	ID string `json:"id"`

	// Input provenance
	SourceKind SourceKind `json:"source_kind"`
	SourceName string     `json:"source_name,omitempty"` // Filename or URL when applicable
	TextBytes  int        `json:"text_bytes"`            // Size of the cleaned text

	// Runtime state
	Status          TaskStatus `json:"status"`
	Phase           TaskPhase  `json:"phase"`
	Percent         int        `json:"percent"`
	CancelRequested bool       `json:"cancel_requested"`
	Attempts        int        `json:"attempts"`
	WorkerID        string     `json:"worker_id,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorCode       string     `json:"error_code,omitempty"`
	ResultID        string     `json:"result_id,omitempty"` // Present when status = finished

	// Timestamps
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	HeartbeatAt *time.Time `json:"heartbeat_at,omitempty"`
}

// NewTask creates a queued task for already-decoded source text.
func NewTask(id string, kind SourceKind, sourceName string, textBytes int) *Task {
	return &Task{
		ID:         id,
		SourceKind: kind,
		SourceName: sourceName,
		TextBytes:  textBytes,
		Status:     TaskStatusQueued,
		Phase:      PhaseInitializing,
		Percent:    0,
		EnqueuedAt: time.Now(),
	}
}

// MarkStarted transitions the task to started and records the claiming worker.
func (t *Task) MarkStarted(workerID string) {
	t.Status = TaskStatusStarted
	t.WorkerID = workerID
	t.Attempts++
	now := time.Now()
	t.StartedAt = &now
	t.Heartbeat()
}

// MarkFinished records the result reference and closes the task.
func (t *Task) MarkFinished(resultID string) {
	t.Status = TaskStatusFinished
	t.ResultID = resultID
	t.Phase = PhaseDone
	t.Percent = 100
	now := time.Now()
	t.EndedAt = &now
}

// MarkFailed closes the task with a typed error.
func (t *Task) MarkFailed(code, message string) {
	t.Status = TaskStatusFailed
	t.ErrorCode = code
	t.Error = message
	now := time.Now()
	t.EndedAt = &now
}

// MarkCanceled closes the task as canceled.
func (t *Task) MarkCanceled() {
	t.Status = TaskStatusCanceled
	now := time.Now()
	t.EndedAt = &now
}

// Requeue returns a reaped task to the queue for another attempt.
func (t *Task) Requeue() {
	t.Status = TaskStatusQueued
	t.WorkerID = ""
	t.StartedAt = nil
	t.HeartbeatAt = nil
}

// SetPhase publishes a phase transition. Percent is raised to the phase
// floor but never lowered.
func (t *Task) SetPhase(phase TaskPhase) {
	t.Phase = phase
	if floor := phase.PercentFloor(); floor > t.Percent {
		t.Percent = floor
	}
}

// SetPercent raises percent within the current phase. Regressions are ignored.
func (t *Task) SetPercent(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent > t.Percent {
		t.Percent = percent
	}
}

// Heartbeat updates the liveness timestamp.
func (t *Task) Heartbeat() {
	now := time.Now()
	t.HeartbeatAt = &now
}

// HeartbeatAge returns the time since the last heartbeat, or since start
// when no heartbeat has been recorded yet.
func (t *Task) HeartbeatAge(now time.Time) time.Duration {
	if t.HeartbeatAt != nil {
		return now.Sub(*t.HeartbeatAt)
	}
	if t.StartedAt != nil {
		return now.Sub(*t.StartedAt)
	}
	return 0
}

// IsTerminal returns true if the task is in a terminal state
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusFinished ||
		t.Status == TaskStatusFailed ||
		t.Status == TaskStatusCanceled
}

// Validate checks the task is well-formed before persistence.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if t.SourceKind == "" {
		return fmt.Errorf("task source kind is required")
	}
	if t.TextBytes < 0 {
		return fmt.Errorf("task text size cannot be negative")
	}
	return nil
}

// ToJSON serializes the task for queue storage
func (t *Task) ToJSON() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return data, nil
}

// TaskFromJSON deserializes a task from JSON
func TaskFromJSON(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}
