// -----------------------------------------------------------------------
// Task Handlers - Status, cancellation, and per-task logs
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/casestrainer/internal/interfaces"
	"github.com/ternarybob/casestrainer/internal/models"
)

// TaskHandler serves task status, cancellation, and captured logs.
type TaskHandler struct {
	tasks  interfaces.TaskStorage
	logs   interfaces.LogStorage
	logger arbor.ILogger
}

// NewTaskHandler creates the task endpoints handler.
func NewTaskHandler(tasks interfaces.TaskStorage, logs interfaces.LogStorage, logger arbor.ILogger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logs: logs, logger: logger}
}

// taskStatusResponse is the GET /task_status body.
type taskStatusResponse struct {
	TaskID      string            `json:"task_id"`
	Status      models.TaskStatus `json:"status"`
	Phase       models.TaskPhase  `json:"phase"`
	Percent     int               `json:"percent"`
	HeartbeatAt *time.Time        `json:"heartbeat_at,omitempty"`
	ResultID    string            `json:"result_id,omitempty"`
	Error       string            `json:"error,omitempty"`
	ErrorCode   string            `json:"error_code,omitempty"`
}

// Status handles GET /task_status/{task_id}.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	taskID := pathParam(r.URL.Path, "/task_status/")
	if taskID == "" {
		WriteError(w, models.NewInputError("task id is required"))
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, taskStatusResponse{
		TaskID:      task.ID,
		Status:      task.Status,
		Phase:       task.Phase,
		Percent:     task.Percent,
		HeartbeatAt: task.HeartbeatAt,
		ResultID:    task.ResultID,
		Error:       task.Error,
		ErrorCode:   task.ErrorCode,
	})
}

// Cancel handles POST /cancel/{task_id}. Cancellation is cooperative: the
// flag is set here and the worker honors it at its next phase boundary.
// Queued tasks are canceled at claim time.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	taskID := pathParam(r.URL.Path, "/cancel/")
	if taskID == "" {
		WriteError(w, models.NewInputError("task id is required"))
		return
	}

	err := h.tasks.Mutate(r.Context(), taskID, func(task *models.Task) error {
		if task.IsTerminal() {
			return models.NewAppError(models.ErrCodeConflict, "task already "+string(task.Status), nil)
		}
		task.CancelRequested = true
		return nil
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info().Str("task_id", taskID).Msg("Cancellation requested")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  "cancel_requested",
	})
}

// Logs handles GET /task_logs/{task_id}, newest last.
func (h *TaskHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	taskID := pathParam(r.URL.Path, "/task_logs/")
	if taskID == "" {
		WriteError(w, models.NewInputError("task id is required"))
		return
	}

	// The task must exist; logs may legitimately be empty.
	if _, err := h.tasks.GetTask(r.Context(), taskID); err != nil {
		WriteError(w, err)
		return
	}

	entries, err := h.logs.GetLogs(r.Context(), taskID, 0)
	if err != nil {
		WriteError(w, models.NewAppError(models.ErrCodeInternal, "failed to read task logs", err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task_id": taskID,
		"logs":    entries,
	})
}
