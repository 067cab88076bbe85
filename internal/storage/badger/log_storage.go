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

// LogStorage persists per-task log entries. Line numbers are assigned here
// so each task's log reads as a contiguous 1-based sequence regardless of
// batch boundaries.
type LogStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	mu        sync.Mutex
	nextLines map[string]int // taskID -> next line number
}

var _ interfaces.LogStorage = (*LogStorage)(nil)

// NewLogStorage creates a new LogStorage instance
func NewLogStorage(db *BadgerDB, logger arbor.ILogger) *LogStorage {
	return &LogStorage{
		db:        db,
		logger:    logger,
		nextLines: make(map[string]int),
	}
}

func (s *LogStorage) AppendLogs(ctx context.Context, taskID string, entries []models.LogEntry) error {
	if taskID == "" {
		return fmt.Errorf("task ID is required")
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.nextLines[taskID]
	if !ok {
		count, err := s.countLocked(taskID)
		if err != nil {
			return err
		}
		next = count + 1
	}

	for i := range entries {
		entries[i].TaskIDField = taskID
		entries[i].LineNumber = next
		key := fmt.Sprintf("%s:%08d", taskID, next)
		if err := s.db.Store().Upsert(key, &entries[i]); err != nil {
			return fmt.Errorf("failed to append log entry: %w", err)
		}
		next++
	}
	s.nextLines[taskID] = next
	return nil
}

func (s *LogStorage) GetLogs(ctx context.Context, taskID string, limit int) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	query := badgerhold.Where("TaskIDField").Eq(taskID).Index("TaskIDField").SortBy("LineNumber")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	return entries, nil
}

func (s *LogStorage) DeleteLogs(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := badgerhold.Where("TaskIDField").Eq(taskID).Index("TaskIDField")
	if err := s.db.Store().DeleteMatching(&models.LogEntry{}, query); err != nil {
		return fmt.Errorf("failed to delete logs: %w", err)
	}
	delete(s.nextLines, taskID)
	return nil
}

func (s *LogStorage) CountLogs(ctx context.Context, taskID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(taskID)
}

func (s *LogStorage) countLocked(taskID string) (int, error) {
	query := badgerhold.Where("TaskIDField").Eq(taskID).Index("TaskIDField")
	count, err := s.db.Store().Count(&models.LogEntry{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count logs: %w", err)
	}
	return int(count), nil
}
