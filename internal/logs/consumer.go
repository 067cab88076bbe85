package logs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	arborlevels "github.com/ternarybob/arbor/levels"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// Consumer drains arbor's context channel and fans each batch out to task
// log storage and the event publisher. Workers log through
// WithCorrelationId(taskID); entries without a correlation ID are request
// tracing noise and are not persisted.
type Consumer struct {
	storage       interfaces.LogStorage
	events        interfaces.EventPublisher
	logger        arbor.ILogger
	channel       chan []arbormodels.LogEvent
	done          chan struct{}
	wg            sync.WaitGroup
	minEventLevel arbor.LogLevel
	seq           atomic.Uint64
}

// NewConsumer creates a log consumer. minEventLevel gates which entries are
// pushed to websocket subscribers; everything is persisted regardless.
func NewConsumer(storage interfaces.LogStorage, events interfaces.EventPublisher, logger arbor.ILogger, minEventLevel string) *Consumer {
	if events == nil {
		events = interfaces.NopEventPublisher{}
	}
	return &Consumer{
		storage:       storage,
		events:        events,
		logger:        logger,
		channel:       make(chan []arbormodels.LogEvent, 10),
		done:          make(chan struct{}),
		minEventLevel: parseLogLevel(minEventLevel),
	}
}

// GetChannel returns the channel arbor delivers log batches to.
func (c *Consumer) GetChannel() chan []arbormodels.LogEvent {
	return c.channel
}

// Start launches the consumer goroutine.
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go c.consume()
	return nil
}

// Stop drains and shuts down the consumer.
func (c *Consumer) Stop() error {
	close(c.done)
	c.wg.Wait()
	c.logger.Info().Msg("Log consumer stopped")
	return nil
}

func (c *Consumer) consume() {
	defer c.wg.Done()

	defer func() {
		if r := recover(); r != nil {
			// Logged without a correlation ID to avoid feeding the channel
			// we are consuming.
			c.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Log consumer panic recovered")
		}
	}()

	for {
		select {
		case batch, ok := <-c.channel:
			if !ok {
				return
			}
			c.processBatch(batch)
		case <-c.done:
			return
		}
	}
}

func (c *Consumer) processBatch(batch []arbormodels.LogEvent) {
	byTask := make(map[string][]models.LogEntry)

	for _, event := range batch {
		if isRequestNoise(event.Message) {
			continue
		}
		taskID := event.CorrelationID
		if taskID == "" {
			continue
		}

		entry := c.transformEvent(event)
		byTask[taskID] = append(byTask[taskID], entry)

		if c.shouldPublish(event.Level) {
			c.events.Publish(interfaces.Event{
				Type:   interfaces.EventTaskLog,
				TaskID: taskID,
				Payload: map[string]interface{}{
					"level":     entry.Level,
					"message":   entry.Message,
					"timestamp": entry.Timestamp,
					"context":   entry.Context,
				},
				Timestamp: time.Now(),
			})
		}
	}

	for taskID, entries := range byTask {
		if err := c.storage.AppendLogs(context.Background(), taskID, entries); err != nil {
			c.logger.Warn().
				Err(err).
				Str("task_id", taskID).
				Int("log_count", len(entries)).
				Msg("Failed to persist task logs")
		}
	}
}

func (c *Consumer) shouldPublish(level log.Level) bool {
	return arborlevels.FromLogLevel(level) >= c.minEventLevel
}

// transformEvent converts an arbor log event into a persisted entry.
// Context keys (phase, originator, citation) are lifted out; remaining
// fields fold into the message text.
func (c *Consumer) transformEvent(event arbormodels.LogEvent) models.LogEntry {
	entry := models.LogEntry{
		Timestamp:     event.Timestamp.Format("15:04:05.000"),
		FullTimestamp: event.Timestamp.Format(time.RFC3339Nano),
		Level:         normalizeLevel(event.Level.String()),
		Message:       event.Message,
		Sequence:      fmt.Sprintf("%020d_%06d", event.Timestamp.UnixNano(), c.seq.Add(1)),
	}

	if len(event.Fields) > 0 {
		var extra []string
		for key, value := range event.Fields {
			switch key {
			case models.LogCtxPhase, models.LogCtxOriginator, models.LogCtxCitation:
				entry.SetContext(key, fmt.Sprintf("%v", value))
			case models.LogCtxTaskID:
				// Redundant with the correlation ID.
			default:
				extra = append(extra, fmt.Sprintf("%s=%v", key, value))
			}
		}
		sort.Strings(extra)
		for _, field := range extra {
			entry.Message += " " + field
		}
	}
	return entry
}

// isRequestNoise filters middleware log lines that carry a correlation ID
// but belong to request tracing, not task execution.
func isRequestNoise(message string) bool {
	return message == "HTTP request" ||
		strings.HasPrefix(message, "HTTP request - ") ||
		strings.Contains(message, "WebSocket client")
}

func parseLogLevel(levelStr string) arbor.LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return arbor.DebugLevel
	case "info":
		return arbor.InfoLevel
	case "warn", "warning":
		return arbor.WarnLevel
	case "error":
		return arbor.ErrorLevel
	default:
		return arbor.InfoLevel
	}
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "warning":
		return "warn"
	case "debug", "info", "warn", "error":
		return strings.ToLower(level)
	default:
		return "info"
	}
}
