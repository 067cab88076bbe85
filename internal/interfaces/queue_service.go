package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/casestrainer/internal/models"
)

// QueueManager manages the persistent message queue.
// Delivery is at-least-once: a received message becomes invisible for the
// visibility timeout and reappears unless the returned delete function is
// called.
type QueueManager interface {
	// Enqueue adds a message to the queue, immediately visible.
	Enqueue(ctx context.Context, msg *models.QueueMessage) error

	// Receive claims the next visible message. The second return value
	// acknowledges (deletes) the message. Returns models.ErrNoMessage when
	// the queue is empty.
	Receive(ctx context.Context) (*models.QueueMessage, func() error, error)

	// Extend pushes out the visibility timeout for a claimed message.
	Extend(ctx context.Context, taskID string, duration time.Duration) error

	// QueueLength returns the number of messages currently stored.
	QueueLength(ctx context.Context) (int, error)

	Close() error
}

// TaskWorker defines the interface that all task workers must implement.
// The processor uses this interface to execute tasks in a type-agnostic manner.
type TaskWorker interface {
	// Execute runs the task to completion or error
	Execute(ctx context.Context, task *models.Task, payload *models.AnalysisPayload) error

	// GetTaskType returns the task type this worker handles
	GetTaskType() string

	// Validate checks the payload is compatible with this worker
	Validate(payload *models.AnalysisPayload) error
}

// WorkerPool manages concurrent task processing
type WorkerPool interface {
	RegisterWorker(worker TaskWorker)
	Start()
	Stop()
}
