// -----------------------------------------------------------------------
// Task Processor - Routes queued analysis tasks to registered workers
// -----------------------------------------------------------------------

package workers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Idle polling backs off exponentially from the configured poll interval
// up to this cap.
const maxBackoff = 5 * time.Second

// Processor pulls messages off the queue and runs the registered worker for
// each task type. Each claimed task gets a heartbeat goroutine that bumps
// HeartbeatAt and extends queue visibility until execution returns, so the
// reaper only ever reclaims tasks whose worker actually died.
type Processor struct {
	queue       interfaces.QueueManager
	tasks       interfaces.TaskStorage
	events      interfaces.EventPublisher
	workers     map[string]interfaces.TaskWorker
	logger      arbor.ILogger
	concurrency int

	pollInterval      time.Duration
	heartbeatInterval time.Duration
	visibilityTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var _ interfaces.WorkerPool = (*Processor)(nil)

// NewProcessor creates a task processor.
func NewProcessor(queue interfaces.QueueManager, tasks interfaces.TaskStorage, events interfaces.EventPublisher, logger arbor.ILogger, concurrency int, pollInterval, heartbeatInterval, visibilityTimeout time.Duration) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	if heartbeatInterval <= 0 {
		heartbeatInterval = 5 * time.Second
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if events == nil {
		events = interfaces.NopEventPublisher{}
	}

	return &Processor{
		queue:             queue,
		tasks:             tasks,
		events:            events,
		workers:           make(map[string]interfaces.TaskWorker),
		logger:            logger,
		concurrency:       concurrency,
		pollInterval:      pollInterval,
		heartbeatInterval: heartbeatInterval,
		visibilityTimeout: visibilityTimeout,
		ctx:               ctx,
		cancel:            cancel,
	}
}

// RegisterWorker registers a worker for its task type. Must be called
// before Start.
func (p *Processor) RegisterWorker(worker interfaces.TaskWorker) {
	taskType := worker.GetTaskType()
	p.workers[taskType] = worker
	p.logger.Debug().
		Str("task_type", taskType).
		Msg("Task worker registered")
}

// Start launches the worker pool.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Warn().Msg("Task processor already running")
		return
	}
	p.running = true

	p.logger.Info().
		Int("concurrency", p.concurrency).
		Msg("Starting task processor")

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

// Stop drains the pool. In-flight tasks observe cancellation at their next
// phase boundary.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info().Msg("Stopping task processor...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("Task processor stopped")
}

func (p *Processor) run(workerNum int) {
	defer p.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", stackTrace()).
				Int("worker_num", workerNum).
				Msg("Task processor goroutine panicked")
		}
	}()

	workerID := fmt.Sprintf("worker-%d", workerNum)
	p.logger.Debug().Str("worker_id", workerID).Msg("Task processor worker started")

	backoff := p.pollInterval
	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().Str("worker_id", workerID).Msg("Task processor worker stopping")
			return
		default:
			if p.processNext(workerID) {
				backoff = p.pollInterval
				continue
			}
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// processNext claims and runs one task. Returns false when the queue was
// empty so the caller can back off.
func (p *Processor) processNext(workerID string) bool {
	msg, ack, err := p.queue.Receive(p.ctx)
	if err != nil {
		if err != models.ErrNoMessage && p.ctx.Err() == nil {
			p.logger.Error().Err(err).Msg("Queue receive failed")
		}
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", stackTrace()).
				Str("task_id", msg.TaskID).
				Msg("Recovered from panic while processing task")
			p.failTask(msg.TaskID, string(models.ErrCodeInternal), fmt.Sprintf("task panicked: %v", r))
			p.ackQuietly(msg.TaskID, ack)
		}
	}()

	worker, ok := p.workers[msg.Type]
	if !ok {
		p.logger.Error().
			Str("task_id", msg.TaskID).
			Str("task_type", msg.Type).
			Msg("No worker registered for task type")
		p.failTask(msg.TaskID, string(models.ErrCodeInternal), fmt.Sprintf("no worker for task type %q", msg.Type))
		p.ackQuietly(msg.TaskID, ack)
		return true
	}

	payload, err := models.DecodeAnalysisPayload(msg)
	if err != nil {
		p.logger.Error().Err(err).Str("task_id", msg.TaskID).Msg("Malformed queue payload")
		p.failTask(msg.TaskID, string(models.ErrCodeInternal), "malformed queue payload")
		p.ackQuietly(msg.TaskID, ack)
		return true
	}
	if err := worker.Validate(payload); err != nil {
		p.logger.Error().Err(err).Str("task_id", msg.TaskID).Msg("Payload rejected by worker")
		p.failTask(msg.TaskID, string(models.ErrCodeInputError), err.Error())
		p.ackQuietly(msg.TaskID, ack)
		return true
	}

	task, err := p.tasks.GetTask(p.ctx, msg.TaskID)
	if err != nil {
		// Task record gone; drop the orphaned message.
		p.logger.Warn().Str("task_id", msg.TaskID).Msg("Dropping message for unknown task")
		p.ackQuietly(msg.TaskID, ack)
		return true
	}
	if task.IsTerminal() {
		p.logger.Debug().
			Str("task_id", task.ID).
			Str("status", string(task.Status)).
			Msg("Skipping terminal task")
		p.ackQuietly(msg.TaskID, ack)
		return true
	}
	if task.CancelRequested {
		p.logger.Info().Str("task_id", task.ID).Msg("Task canceled while queued")
		p.cancelTask(task.ID)
		p.ackQuietly(msg.TaskID, ack)
		return true
	}

	started := time.Now()
	if err := p.tasks.Mutate(p.ctx, task.ID, func(t *models.Task) error {
		t.MarkStarted(workerID)
		return nil
	}); err != nil {
		p.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to mark task started")
		return true
	}

	p.logger.Info().
		Str("task_id", task.ID).
		Str("task_type", msg.Type).
		Str("worker_id", workerID).
		Msg("Task started")

	stopHeartbeat := p.startHeartbeat(task.ID)
	task, _ = p.tasks.GetTask(p.ctx, task.ID)
	err = worker.Execute(p.ctx, task, payload)
	stopHeartbeat()

	elapsed := time.Since(started)
	switch {
	case err == nil:
		p.logger.Info().
			Str("task_id", task.ID).
			Str("worker_id", workerID).
			Dur("duration", elapsed).
			Msg("Task completed")
	case isCancellation(err):
		p.logger.Info().
			Str("task_id", task.ID).
			Str("worker_id", workerID).
			Dur("duration", elapsed).
			Msg("Task canceled")
		p.cancelTask(task.ID)
	default:
		appErr := models.AsAppError(err)
		p.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Str("worker_id", workerID).
			Dur("duration", elapsed).
			Msg("Task failed")
		p.failTask(task.ID, string(appErr.Code), appErr.Message)
	}

	p.publishDone(task.ID)
	p.ackQuietly(msg.TaskID, ack)
	return true
}

// startHeartbeat launches the per-task liveness goroutine. The returned
// function stops it and must be called on every exit path.
func (p *Processor) startHeartbeat(taskID string) func() {
	hbCtx, hbCancel := context.WithCancel(p.ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := p.tasks.Mutate(hbCtx, taskID, func(t *models.Task) error {
					t.Heartbeat()
					return nil
				}); err != nil && hbCtx.Err() == nil {
					p.logger.Warn().Err(err).Str("task_id", taskID).Msg("Heartbeat update failed")
				}
				if err := p.queue.Extend(hbCtx, taskID, p.visibilityTimeout); err != nil && hbCtx.Err() == nil {
					p.logger.Warn().Err(err).Str("task_id", taskID).Msg("Visibility extension failed")
				}
			}
		}
	}()

	return func() {
		hbCancel()
		<-done
	}
}

func (p *Processor) failTask(taskID, code, message string) {
	err := p.tasks.Mutate(context.Background(), taskID, func(t *models.Task) error {
		if t.IsTerminal() {
			return nil
		}
		t.MarkFailed(code, message)
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to mark task failed")
	}
}

func (p *Processor) cancelTask(taskID string) {
	err := p.tasks.Mutate(context.Background(), taskID, func(t *models.Task) error {
		if t.IsTerminal() {
			return nil
		}
		t.MarkCanceled()
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to mark task canceled")
	}
}

func (p *Processor) publishDone(taskID string) {
	task, err := p.tasks.GetTask(context.Background(), taskID)
	if err != nil {
		return
	}
	p.events.Publish(interfaces.Event{
		Type:   interfaces.EventTaskDone,
		TaskID: taskID,
		Payload: map[string]interface{}{
			"status":    task.Status,
			"result_id": task.ResultID,
			"error":     task.Error,
		},
		Timestamp: time.Now(),
	})
}

func (p *Processor) ackQuietly(taskID string, ack func() error) {
	if err := ack(); err != nil {
		p.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to ack queue message")
	}
}

func stackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
