package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique analysis task ID with the "task_" prefix
// Format: task_<uuid>
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewResultID generates a unique result ID with the "result_" prefix
// Format: result_<uuid>
func NewResultID() string {
	return "result_" + uuid.New().String()
}
