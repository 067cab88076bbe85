package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/models"
)

func newTestQueue(t *testing.T, visibility time.Duration) *Manager {
	t.Helper()
	opts := badger.DefaultOptions(filepath.Join(t.TempDir(), "queue")).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr, err := NewManager(db, "test", visibility, 3, common.GetLogger())
	require.NoError(t, err)
	return mgr
}

func analysisMessage(t *testing.T, taskID string) *models.QueueMessage {
	t.Helper()
	msg, err := models.NewAnalysisMessage(taskID, models.AnalysisPayload{
		Text:       "See 198 P.3d 1021.",
		SourceKind: models.SourceKindText,
	})
	require.NoError(t, err)
	return msg
}

func TestQueue_EnqueueReceiveAck(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_1")))

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task_1", msg.TaskID)
	assert.Equal(t, models.TaskTypeAnalysis, msg.Type)

	payload, err := models.DecodeAnalysisPayload(msg)
	require.NoError(t, err)
	assert.Equal(t, models.SourceKindText, payload.SourceKind)

	require.NoError(t, ack())

	length, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestQueue_EmptyReturnsErrNoMessage(t *testing.T) {
	q := newTestQueue(t, time.Minute)

	_, _, err := q.Receive(context.Background())
	require.ErrorIs(t, err, models.ErrNoMessage)
}

func TestQueue_FIFOOrder(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_first")))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_second")))

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task_first", msg.TaskID)
	require.NoError(t, ack())

	msg, ack, err = q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task_second", msg.TaskID)
	require.NoError(t, ack())
}

func TestQueue_ClaimedMessageIsInvisible(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_claim")))

	_, _, err := q.Receive(ctx)
	require.NoError(t, err)

	// Claimed but not acked: invisible until the timeout lapses.
	_, _, err = q.Receive(ctx)
	require.ErrorIs(t, err, models.ErrNoMessage)

	length, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length, "unacked message stays stored")
}

func TestQueue_UnackedMessageRedelivers(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_redeliver")))

	_, _, err := q.Receive(ctx)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task_redeliver", msg.TaskID)
	require.NoError(t, ack())
}

func TestQueue_ExtendKeepsMessageInvisible(t *testing.T) {
	q := newTestQueue(t, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_extend")))

	_, ack, err := q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Extend(ctx, "task_extend", time.Minute))
	time.Sleep(40 * time.Millisecond)

	// Extension outlives the original visibility window.
	_, _, err = q.Receive(ctx)
	require.ErrorIs(t, err, models.ErrNoMessage)

	require.NoError(t, ack())
}

func TestQueue_ExtendAfterAckIsNoOp(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_gone")))
	_, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, ack())

	require.NoError(t, q.Extend(ctx, "task_gone", time.Minute))
}

func TestQueue_PoisonMessageDropped(t *testing.T) {
	q := newTestQueue(t, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_poison")))

	// maxReceive is 3: the fourth delivery attempt drops the message.
	for i := 0; i < 3; i++ {
		_, _, err := q.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	_, _, err := q.Receive(ctx)
	require.ErrorIs(t, err, models.ErrNoMessage)

	length, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestQueue_ReEnqueueReplaces(t *testing.T) {
	q := newTestQueue(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_dup")))
	require.NoError(t, q.Enqueue(ctx, analysisMessage(t, "task_dup")))

	length, err := q.QueueLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	msg, ack, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task_dup", msg.TaskID)
	require.NoError(t, ack())

	_, _, err = q.Receive(ctx)
	require.ErrorIs(t, err, models.ErrNoMessage)
}
