package badger

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	tasks   interfaces.TaskStorage
	results interfaces.ResultStorage
	logs    interfaces.LogStorage
	logger  arbor.ILogger
}

var _ interfaces.StorageManager = (*Manager)(nil)

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		tasks:   NewTaskStorage(db, logger),
		results: NewResultStorage(db, logger),
		logs:    NewLogStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TaskStorage returns the task storage interface
func (m *Manager) TaskStorage() interfaces.TaskStorage {
	return m.tasks
}

// ResultStorage returns the result storage interface
func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.results
}

// LogStorage returns the task log storage interface
func (m *Manager) LogStorage() interfaces.LogStorage {
	return m.logs
}

// DB exposes the raw Badger handle for the queue, which manages its own
// key scheme outside badgerhold.
func (m *Manager) DB() *badger.DB {
	return m.db.Store().Badger()
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
