package badger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	cfg := &common.BadgerConfig{Path: filepath.Join(t.TempDir(), "badger")}
	mgr, err := NewManager(common.GetLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestTaskStorage_CRUD(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.TaskStorage()
	ctx := context.Background()

	task := models.NewTask("task_abc", models.SourceKindText, "brief.txt", 4096)
	require.NoError(t, store.SaveTask(ctx, task))

	got, err := store.GetTask(ctx, "task_abc")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusQueued, got.Status)
	assert.Equal(t, models.SourceKindText, got.SourceKind)

	count, err := store.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.DeleteTask(ctx, "task_abc"))
	_, err = store.GetTask(ctx, "task_abc")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNotFound, models.AsAppError(err).Code)
}

func TestTaskStorage_MutateIsAtomic(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.TaskStorage()
	ctx := context.Background()

	task := models.NewTask("task_mut", models.SourceKindText, "", 100)
	require.NoError(t, store.SaveTask(ctx, task))

	// Concurrent attempt increments must not lose updates.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Mutate(ctx, "task_mut", func(task *models.Task) error {
				task.Attempts++
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := store.GetTask(ctx, "task_mut")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Attempts)
}

func TestTaskStorage_MutateErrorAborts(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.TaskStorage()
	ctx := context.Background()

	task := models.NewTask("task_err", models.SourceKindText, "", 100)
	require.NoError(t, store.SaveTask(ctx, task))

	boom := errors.New("boom")
	err := store.Mutate(ctx, "task_err", func(task *models.Task) error {
		task.Attempts = 99
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetTask(ctx, "task_err")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Attempts, "aborted mutation must not persist")
}

func TestTaskStorage_ListByStatus(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.TaskStorage()
	ctx := context.Background()

	queued := models.NewTask("task_q", models.SourceKindText, "", 1)
	started := models.NewTask("task_s", models.SourceKindText, "", 1)
	started.MarkStarted("worker-1")
	require.NoError(t, store.SaveTask(ctx, queued))
	require.NoError(t, store.SaveTask(ctx, started))

	got, err := store.ListTasksByStatus(ctx, models.TaskStatusStarted)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "task_s", got[0].ID)
}

func TestResultStorage_SaveGetExpiry(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.ResultStorage()
	ctx := context.Background()

	fresh := models.NewAnalysisResult("result_fresh", "task_1", time.Hour)
	expired := models.NewAnalysisResult("result_old", "task_2", -time.Minute)
	require.NoError(t, store.SaveResult(ctx, fresh))
	require.NoError(t, store.SaveResult(ctx, expired))

	got, err := store.GetResult(ctx, "result_fresh")
	require.NoError(t, err)
	assert.Equal(t, "task_1", got.TaskID)

	// Expired results read as not found even before the sweep.
	_, err = store.GetResult(ctx, "result_old")
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNotFound, models.AsAppError(err).Code)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err := store.CountResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLogStorage_AppendAssignsContiguousLines(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.LogStorage()
	ctx := context.Background()

	first := []models.LogEntry{
		{Level: "info", Message: "starting"},
		{Level: "info", Message: "extracting"},
	}
	second := []models.LogEntry{
		{Level: "warn", Message: "slow source"},
	}
	require.NoError(t, store.AppendLogs(ctx, "task_log", first))
	require.NoError(t, store.AppendLogs(ctx, "task_log", second))

	entries, err := store.GetLogs(ctx, "task_log", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i+1, e.LineNumber)
		assert.Equal(t, "task_log", e.TaskIDField)
	}
	assert.Equal(t, "slow source", entries[2].Message)

	count, err := store.CountLogs(ctx, "task_log")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.DeleteLogs(ctx, "task_log"))
	count, err = store.CountLogs(ctx, "task_log")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLogStorage_TasksAreIsolated(t *testing.T) {
	mgr := newTestManager(t)
	store := mgr.LogStorage()
	ctx := context.Background()

	require.NoError(t, store.AppendLogs(ctx, "task_a", []models.LogEntry{{Message: "a1"}}))
	require.NoError(t, store.AppendLogs(ctx, "task_b", []models.LogEntry{{Message: "b1"}, {Message: "b2"}}))

	a, err := store.GetLogs(ctx, "task_a", 0)
	require.NoError(t, err)
	assert.Len(t, a, 1)

	b, err := store.GetLogs(ctx, "task_b", 0)
	require.NoError(t, err)
	assert.Len(t, b, 2)
}
