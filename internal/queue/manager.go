package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// envelope wraps a queue message with delivery state. Messages are keyed by
// task ID; a visibility index keyed by timestamp gives FIFO ordering and
// cheap scans for ready messages.
type envelope struct {
	Message      *models.QueueMessage `json:"message"`
	EnqueuedAt   time.Time            `json:"enqueued_at"`
	VisibleAt    time.Time            `json:"visible_at"`
	ReceiveCount int                  `json:"receive_count"`
}

// Manager is a persistent at-least-once queue on Badger. A received message
// becomes invisible for the visibility timeout and reappears unless the ack
// function is called. Redelivery counting is a backstop against poison
// messages; normal retry policy lives with the reaper.
type Manager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
	logger            arbor.ILogger
}

var _ interfaces.QueueManager = (*Manager)(nil)

// NewManager creates a Badger-backed queue manager on an externally managed DB.
func NewManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int, logger arbor.ILogger) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 5
	}

	return &Manager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
		logger:            logger,
	}, nil
}

// Enqueue stores a message, immediately visible. Re-enqueueing the same task
// ID replaces the prior entry, so a reaped task never queues twice.
func (m *Manager) Enqueue(ctx context.Context, msg *models.QueueMessage) error {
	if msg == nil || msg.TaskID == "" {
		return errors.New("queue message requires a task ID")
	}

	now := time.Now()
	env := envelope{
		Message:    msg,
		EnqueuedAt: now,
		VisibleAt:  now,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal queue message: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		if err := m.removeStaleIndex(txn, msg.TaskID); err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(msg.TaskID), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(env.VisibleAt, msg.TaskID), []byte{})
	})
}

// Receive claims the oldest visible message. Returns models.ErrNoMessage
// when nothing is ready.
func (m *Manager) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	var env envelope
	var taskID string

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := m.indexPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false
		var claimedIndexKey []byte

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue
			}
			// Index keys sort by timestamp, so the first future entry
			// ends the scan.
			if ts.After(now) {
				break
			}

			item, err := txn.Get(m.msgKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Orphaned index entry.
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			if env.ReceiveCount >= m.maxReceive {
				if m.logger != nil {
					m.logger.Warn().
						Str("task_id", id).
						Int("receive_count", env.ReceiveCount).
						Msg("Dropping message after too many deliveries")
				}
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(m.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			found = true
			taskID = id
			claimedIndexKey = key
			break
		}

		if !found {
			return models.ErrNoMessage
		}

		env.ReceiveCount++
		env.VisibleAt = time.Now().Add(m.visibilityTimeout)

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(taskID), data); err != nil {
			return err
		}
		if err := txn.Delete(claimedIndexKey); err != nil {
			return err
		}
		return txn.Set(m.indexKey(env.VisibleAt, taskID), []byte{})
	})
	if err != nil {
		return nil, nil, err
	}

	ack := func() error { return m.delete(taskID) }
	return env.Message, ack, nil
}

// Extend pushes out the visibility timeout for a claimed message, typically
// from the worker heartbeat. Extending an already-acked message is a no-op.
func (m *Manager) Extend(ctx context.Context, taskID string, duration time.Duration) error {
	return m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(m.msgKey(taskID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		var env envelope
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		}); err != nil {
			return err
		}

		oldIndexKey := m.indexKey(env.VisibleAt, taskID)
		env.VisibleAt = time.Now().Add(duration)

		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(taskID), data); err != nil {
			return err
		}
		if err := txn.Delete(oldIndexKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(m.indexKey(env.VisibleAt, taskID), []byte{})
	})
}

// QueueLength returns the number of stored messages, visible or claimed.
func (m *Manager) QueueLength(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count queue messages: %w", err)
	}
	return count, nil
}

// Close is a no-op; the DB handle is owned by the storage manager.
func (m *Manager) Close() error {
	return nil
}

func (m *Manager) delete(taskID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		if err := m.removeStaleIndex(txn, taskID); err != nil {
			return err
		}
		if err := txn.Delete(m.msgKey(taskID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// removeStaleIndex drops the index entry for a stored message, located via
// the message's current VisibleAt.
func (m *Manager) removeStaleIndex(txn *badger.Txn, taskID string) error {
	item, err := txn.Get(m.msgKey(taskID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	var env envelope
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &env)
	}); err != nil {
		return err
	}
	if err := txn.Delete(m.indexKey(env.VisibleAt, taskID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (m *Manager) msgKey(taskID string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, taskID))
}

func (m *Manager) indexPrefix() []byte {
	return []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
}

// indexKey zero-pads the timestamp to 20 digits so lexicographic order
// matches numeric order.
func (m *Manager) indexKey(visibleAt time.Time, taskID string) []byte {
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), taskID))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefix := m.indexPrefix()
	if len(key) <= len(prefix) {
		return time.Time{}, "", fmt.Errorf("invalid index key")
	}
	suffix := string(key[len(prefix):])
	if len(suffix) < 22 {
		return time.Time{}, "", fmt.Errorf("invalid index key suffix")
	}

	var ts int64
	if _, err := fmt.Sscanf(suffix[:20], "%d", &ts); err != nil {
		return time.Time{}, "", err
	}
	return time.Unix(0, ts), suffix[21:], nil
}
