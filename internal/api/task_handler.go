// Package api contains the HTTP handlers for the administrative surface:
// task creation and task status lookup. The scheduling core never depends
// on this package.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/phamilton/collector-api/internal/api/shared"
	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/store"
)

// CreateTaskRequest represents the request body for creating a collection task.
type CreateTaskRequest struct {
	URL      string            `json:"url"       validate:"required,url"`
	Method   string            `json:"method"    validate:"omitempty,oneof=GET POST PUT PATCH DELETE HEAD"`
	Body     string            `json:"body"      validate:"omitempty"`
	Headers  map[string]string `json:"headers"   validate:"omitempty"`
	TotalNum int               `json:"total_num" validate:"required,gt=0"`

	// TimeoutSeconds of zero selects the default fetch timeout.
	TimeoutSeconds int `json:"timeout_seconds" validate:"omitempty,gt=0"`
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Method         string    `json:"method"`
	Status         string    `json:"status"`
	TotalNum       int       `json:"total_num"`
	VisitedNum     int       `json:"visited_num"`
	RetryCount     int       `json:"retry_count"`
	CompletionRate float64   `json:"completion_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	tasks          store.TaskStore
	validator      *validator.Validate
	defaultTimeout time.Duration
}

// NewTaskHandler creates a new TaskHandler. defaultTimeout applies to
// created tasks that carry no timeout_seconds of their own; a non-positive
// value falls back to domain.DefaultTaskTimeout.
func NewTaskHandler(tasks store.TaskStore, defaultTimeout time.Duration) *TaskHandler {
	if defaultTimeout <= 0 {
		defaultTimeout = domain.DefaultTaskTimeout
	}
	return &TaskHandler{
		tasks:          tasks,
		validator:      validator.New(),
		defaultTimeout: defaultTimeout,
	}
}

// CreateTask handles POST /api/tasks requests.
// Task definitions are validated eagerly; an invalid total_num is rejected here
// and never reaches the store or the scheduler.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = h.defaultTimeout
	}

	task, err := domain.NewTask(
		req.URL,
		req.Method,
		req.Body,
		req.Headers,
		req.TotalNum,
		timeout,
	)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task: "+err.Error())
		return
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task: "+err.Error())
			return
		}
		slog.Error("failed to create task", "error", err, "url", req.URL)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.tasks.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("failed to get task", "error", err, "task_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /api/tasks requests.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(r.Context())
	if err != nil {
		slog.Error("failed to list tasks", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             task.ID.String(),
		URL:            task.URL,
		Method:         task.Method,
		Status:         string(task.Status),
		TotalNum:       task.TotalNum,
		VisitedNum:     task.VisitedNum,
		RetryCount:     task.RetryCount,
		CompletionRate: task.CompletionRate(),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}
