package models

// LogEntry represents a single log entry with extensible context.
// Used for persistent task logs captured during analysis runs.
//
// All metadata is stored in the Context map for consistency and flexibility.
// Badgerhold indexes on the dedicated fields enable efficient queries.
//
// Timestamp Format:
//   - Timestamp: "15:04:05.000" (HH:MM:SS.mmm) for display
//   - FullTimestamp: RFC3339Nano for accurate sorting
//
// Log Levels: "debug", "info", "warn", "error"
type LogEntry struct {
	// Core fields
	Timestamp     string `json:"timestamp"`                // HH:MM:SS.mmm format for display
	FullTimestamp string `json:"full_timestamp"`           // RFC3339Nano for sorting
	Level         string `json:"level" badgerhold:"index"` // Log level (indexed)
	Message       string `json:"message"`                  // Log message

	// LineNumber is a per-task monotonically increasing counter (1-based)
	// providing stable, contiguous line numbers for each task's logs
	LineNumber int `json:"line_number" badgerhold:"index"`

	// Sequence is a global counter for stable ordering when timestamps are
	// identical (UnixNano timestamp + sequence counter)
	Sequence string `json:"sequence" badgerhold:"index"`

	// TaskIDField is the primary query field - stored separately for efficient
	// badgerhold indexing (badgerhold cannot query into map fields)
	TaskIDField string `json:"task_id" badgerhold:"index"`

	// Context stores additional metadata as key-value pairs
	// Standard keys: phase, originator, citation
	Context map[string]string `json:"context,omitempty"`
}

// Context key constants for consistent access
const (
	LogCtxTaskID     = "task_id"
	LogCtxPhase      = "phase"
	LogCtxOriginator = "originator"
	LogCtxCitation   = "citation"
)

// GetContext safely retrieves a context value
func (e *LogEntry) GetContext(key string) string {
	if e.Context == nil {
		return ""
	}
	return e.Context[key]
}

// SetContext safely sets a context value (initializes map if needed)
func (e *LogEntry) SetContext(key, value string) {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	if value != "" {
		e.Context[key] = value
	}
}

// TaskID returns the task ID from the dedicated indexed field
func (e *LogEntry) TaskID() string     { return e.TaskIDField }
func (e *LogEntry) Phase() string      { return e.GetContext(LogCtxPhase) }
func (e *LogEntry) Originator() string { return e.GetContext(LogCtxOriginator) }
