package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the scheduling state of a collection task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// DefaultTaskTimeout applies when a task is created without an explicit
// fetch timeout.
const DefaultTaskTimeout = 30 * time.Second

// Common validation errors for Task
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrTaskURLMissing     = errors.New("task URL cannot be empty")
	ErrTaskURLInvalid     = errors.New("task URL is not a valid absolute URL")
	ErrTaskMethodInvalid  = errors.New("task method must be a valid HTTP method")
	ErrTaskTotalNumber    = errors.New("task total_num must be greater than zero")
	ErrTaskTimeoutInvalid = errors.New("task timeout must be greater than zero")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrTaskNotPending     = errors.New("task is not pending")
	ErrTaskNotRunning     = errors.New("task is not running")
)

// Task represents one recurring unit of collection work: an HTTP endpoint
// to poll until TotalNum records have been captured for it.
type Task struct {
	ID         uuid.UUID         `json:"id"`
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Body       string            `json:"body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Timeout    time.Duration     `json:"timeout"`
	TotalNum   int               `json:"total_num"`
	VisitedNum int               `json:"visited_num"`
	Status     TaskStatus        `json:"status"`
	RetryCount int               `json:"retry_count"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewTask creates a new pending Task for the given endpoint. Validation is
// eager: an invalid task is rejected here, before anything is persisted.
// A zero timeout selects DefaultTaskTimeout.
func NewTask(rawURL, method string, body string, headers map[string]string,
	totalNum int, timeout time.Duration) (*Task, error) {
	if timeout == 0 {
		timeout = DefaultTaskTimeout
	}
	if method == "" {
		method = "GET"
	}

	task := &Task{
		ID:        uuid.New(),
		URL:       rawURL,
		Method:    strings.ToUpper(method),
		Body:      body,
		Headers:   headers,
		Timeout:   timeout,
		TotalNum:  totalNum,
		Status:    TaskStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if strings.TrimSpace(t.URL) == "" {
		return ErrTaskURLMissing
	}

	parsed, err := url.Parse(t.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return ErrTaskURLInvalid
	}

	switch t.Method {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD":
	default:
		return ErrTaskMethodInvalid
	}

	if t.TotalNum <= 0 {
		return ErrTaskTotalNumber
	}

	if t.Timeout <= 0 {
		return ErrTaskTimeoutInvalid
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// MarkRunning transitions a pending task to running. Only one task may be
// running at a time; the scheduler enforces that by dispatching a single
// task per tick.
func (t *Task) MarkRunning() error {
	if t.Status != TaskStatusPending {
		return ErrTaskNotPending
	}
	t.Status = TaskStatusRunning
	return nil
}

// RecordVisit counts one successful or skipped execution against the task.
// The task completes when VisitedNum reaches TotalNum, otherwise it becomes
// pending again and stays eligible for the next tick.
func (t *Task) RecordVisit() error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}

	t.VisitedNum++
	if t.VisitedNum >= t.TotalNum {
		t.Status = TaskStatusCompleted
	} else {
		t.Status = TaskStatusPending
	}
	return nil
}

// RecordFailure counts one failed execution. The task is returned to pending
// while RetryCount stays below ceiling, and is marked failed (terminal) once
// the ceiling is reached.
func (t *Task) RecordFailure(ceiling int) error {
	if t.Status != TaskStatusRunning {
		return ErrTaskNotRunning
	}

	t.RetryCount++
	if t.RetryCount >= ceiling {
		t.Status = TaskStatusFailed
	} else {
		t.Status = TaskStatusPending
	}
	return nil
}

// IsTerminal reports whether the task can never be scheduled again.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// CompletionRate returns the fraction of the target already captured,
// clamped to [0, 1].
func (t *Task) CompletionRate() float64 {
	if t.TotalNum <= 0 {
		return 0
	}
	rate := float64(t.VisitedNum) / float64(t.TotalNum)
	if rate > 1 {
		return 1
	}
	return rate
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
