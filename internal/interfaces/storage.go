package interfaces

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ternarybob/casestrainer/internal/models"
)

// TaskStorage - interface for analysis task persistence.
// All state transitions go through Mutate so concurrent writers (handler
// cancel requests, worker heartbeats, the reaper) never clobber each other.
type TaskStorage interface {
	// CRUD operations
	SaveTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// Mutate atomically applies fn to the stored task and persists the
	// result. fn returning an error aborts the write.
	Mutate(ctx context.Context, id string, fn func(task *models.Task) error) error

	// List operations
	ListTasksByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)
	CountTasks(ctx context.Context) (int, error)

	// Bulk operations
	ClearAll(ctx context.Context) error
}

// ResultStorage - interface for immutable analysis result persistence
type ResultStorage interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	GetResult(ctx context.Context, id string) (*models.AnalysisResult, error)
	DeleteResult(ctx context.Context, id string) error

	// DeleteExpired removes results whose TTL lapsed before now and
	// returns the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)

	CountResults(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) error
}

// LogStorage - interface for persisted per-task log entries
type LogStorage interface {
	AppendLogs(ctx context.Context, taskID string, entries []models.LogEntry) error
	GetLogs(ctx context.Context, taskID string, limit int) ([]models.LogEntry, error)
	DeleteLogs(ctx context.Context, taskID string) error
	CountLogs(ctx context.Context, taskID string) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	TaskStorage() TaskStorage
	ResultStorage() ResultStorage
	LogStorage() LogStorage
	DB() *badger.DB
	Close() error
}
