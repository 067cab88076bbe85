package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// ResultStorage implements the ResultStorage interface on Badger. Results
// are written once and never mutated; expiry is enforced on read and by
// the periodic sweep.
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.ResultStorage = (*ResultStorage)(nil)

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) *ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	if result == nil || result.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if err := s.db.Store().Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// GetResult returns the stored result. An expired result reads as not
// found even before the sweep deletes it.
func (s *ResultStorage) GetResult(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.NewNotFoundError(fmt.Sprintf("result not found: %s", id))
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result.IsExpired(time.Now()) {
		return nil, models.NewNotFoundError(fmt.Sprintf("result expired: %s", id))
	}
	return &result, nil
}

func (s *ResultStorage) DeleteResult(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.AnalysisResult{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	return nil
}

// DeleteExpired removes results whose TTL lapsed before now, using the
// ExpiresAt index.
func (s *ResultStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []models.AnalysisResult
	query := badgerhold.Where("ExpiresAt").Lt(now).Index("ExpiresAt")
	if err := s.db.Store().Find(&expired, query); err != nil {
		return 0, fmt.Errorf("failed to find expired results: %w", err)
	}

	removed := 0
	for i := range expired {
		if err := s.db.Store().Delete(expired[i].ID, &models.AnalysisResult{}); err != nil {
			if err == badgerhold.ErrNotFound {
				continue
			}
			return removed, fmt.Errorf("failed to delete expired result %s: %w", expired[i].ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Swept expired results")
	}
	return removed, nil
}

func (s *ResultStorage) CountResults(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.AnalysisResult{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return int(count), nil
}

func (s *ResultStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.AnalysisResult{}, nil); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	return nil
}
