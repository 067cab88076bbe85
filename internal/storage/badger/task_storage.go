package badger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// TaskStorage implements the TaskStorage interface on Badger. Mutations are
// serialized under a mutex so handler cancels, worker heartbeats, and the
// reaper never lose each other's writes.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

var _ interfaces.TaskStorage = (*TaskStorage)(nil)

// NewTaskStorage creates a new TaskStorage instance
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) *TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TaskStorage) SaveTask(ctx context.Context, task *models.Task) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if err := s.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *TaskStorage) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := s.db.Store().Get(id, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError(fmt.Sprintf("task not found: %s", id))
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *TaskStorage) DeleteTask(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Task{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// Mutate applies fn to the stored task under the storage lock and persists
// the outcome. fn returning an error aborts without writing.
func (s *TaskStorage) Mutate(ctx context.Context, id string, fn func(task *models.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(task); err != nil {
		return err
	}
	return s.SaveTask(ctx, task)
}

func (s *TaskStorage) ListTasksByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	var tasks []models.Task
	query := badgerhold.Where("Status").Eq(status).SortBy("EnqueuedAt")
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	out := make([]*models.Task, len(tasks))
	for i := range tasks {
		out[i] = &tasks[i]
	}
	return out, nil
}

func (s *TaskStorage) CountTasks(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Task{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return int(count), nil
}

func (s *TaskStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Task{}, nil); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	return nil
}
