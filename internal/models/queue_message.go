package models

import (
	"encoding/json"
	"errors"
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// TaskTypeAnalysis routes citation analysis payloads to the analysis worker.
const TaskTypeAnalysis = "citation_analysis"

// QueueMessage is the structure stored in the queue.
// Keep it simple - just enough to route the task.
type QueueMessage struct {
	TaskID  string          `json:"task_id"` // References tasks.id
	Type    string          `json:"type"`    // Task type for executor routing
	Payload json.RawMessage `json:"payload"` // Task-specific data (passed through)
}

// AnalysisPayload carries the decoded source text for a queued analysis.
// Decoding happens at dispatch; the worker never re-fetches input.
type AnalysisPayload struct {
	Text       string     `json:"text"`
	SourceKind SourceKind `json:"source_kind"`
	SourceName string     `json:"source_name,omitempty"`
}

// NewAnalysisMessage builds the queue message for a task and its payload.
func NewAnalysisMessage(taskID string, payload AnalysisPayload) (*QueueMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &QueueMessage{
		TaskID:  taskID,
		Type:    TaskTypeAnalysis,
		Payload: data,
	}, nil
}

// DecodeAnalysisPayload extracts the analysis payload from a queue message.
func DecodeAnalysisPayload(msg *QueueMessage) (*AnalysisPayload, error) {
	var payload AnalysisPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
