package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	task, err := NewTask("https://api.example.com/address", "get", "", nil, 5, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.Method != "GET" {
		t.Errorf("Expected method to be upper-cased to GET, got %s", task.Method)
	}

	if task.Timeout != DefaultTaskTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTaskTimeout, task.Timeout)
	}

	if task.Status != TaskStatusPending {
		t.Errorf("Expected status %s, got %s", TaskStatusPending, task.Status)
	}

	if task.VisitedNum != 0 || task.RetryCount != 0 {
		t.Errorf("Expected zero counters, got visited=%d retry=%d", task.VisitedNum, task.RetryCount)
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}
}

func TestNewTaskValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		method   string
		totalNum int
		timeout  time.Duration
		wantErr  error
	}{
		{"missing url", "", "GET", 1, 0, ErrTaskURLMissing},
		{"relative url", "/address", "GET", 1, 0, ErrTaskURLInvalid},
		{"bad method", "https://api.example.com", "FETCH", 1, 0, ErrTaskMethodInvalid},
		{"zero total_num", "https://api.example.com", "GET", 0, 0, ErrTaskTotalNumber},
		{"negative total_num", "https://api.example.com", "GET", -3, 0, ErrTaskTotalNumber},
		{"negative timeout", "https://api.example.com", "GET", 1, -time.Second, ErrTaskTimeoutInvalid},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTask(tc.url, tc.method, "", nil, tc.totalNum, tc.timeout)
			if err != tc.wantErr {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTaskStateMachine(t *testing.T) {
	t.Parallel()

	task, err := NewTask("https://api.example.com/address", "GET", "", nil, 2, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// pending -> running -> pending (success, threshold not met)
	if err := task.MarkRunning(); err != nil {
		t.Fatalf("Expected pending task to start, got %v", err)
	}
	if err := task.RecordVisit(); err != nil {
		t.Fatalf("Expected visit to apply, got %v", err)
	}
	if task.Status != TaskStatusPending || task.VisitedNum != 1 {
		t.Errorf("Expected pending with visited=1, got %s visited=%d", task.Status, task.VisitedNum)
	}

	// running -> completed (success, threshold met)
	if err := task.MarkRunning(); err != nil {
		t.Fatalf("Expected pending task to start again, got %v", err)
	}
	if err := task.RecordVisit(); err != nil {
		t.Fatalf("Expected visit to apply, got %v", err)
	}
	if task.Status != TaskStatusCompleted {
		t.Errorf("Expected completed at threshold, got %s", task.Status)
	}
	if !task.IsTerminal() {
		t.Error("Expected completed task to be terminal")
	}

	// No transition exits completed.
	if err := task.MarkRunning(); err != ErrTaskNotPending {
		t.Errorf("Expected ErrTaskNotPending from completed task, got %v", err)
	}
}

func TestTaskRecordFailure(t *testing.T) {
	t.Parallel()

	task, err := NewTask("https://api.example.com/address", "GET", "", nil, 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	const ceiling = 3

	// Failures below the ceiling return the task to pending.
	for i := 1; i < ceiling; i++ {
		if err := task.MarkRunning(); err != nil {
			t.Fatalf("Expected task to start, got %v", err)
		}
		if err := task.RecordFailure(ceiling); err != nil {
			t.Fatalf("Expected failure to apply, got %v", err)
		}
		if task.Status != TaskStatusPending {
			t.Fatalf("Expected pending after %d failures, got %s", i, task.Status)
		}
		if task.RetryCount != i {
			t.Fatalf("Expected retry_count %d, got %d", i, task.RetryCount)
		}
	}

	// The failure that reaches the ceiling is terminal.
	if err := task.MarkRunning(); err != nil {
		t.Fatalf("Expected task to start, got %v", err)
	}
	if err := task.RecordFailure(ceiling); err != nil {
		t.Fatalf("Expected failure to apply, got %v", err)
	}
	if task.Status != TaskStatusFailed {
		t.Errorf("Expected failed at ceiling, got %s", task.Status)
	}
	if !task.IsTerminal() {
		t.Error("Expected failed task to be terminal")
	}
	if task.VisitedNum != 0 {
		t.Errorf("Expected failures to leave visited_num untouched, got %d", task.VisitedNum)
	}
}

func TestTaskVisitedNumNeverExceedsThreshold(t *testing.T) {
	t.Parallel()

	task, err := NewTask("https://api.example.com/address", "GET", "", nil, 3, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	prev := task.VisitedNum
	for task.Status == TaskStatusPending {
		if err := task.MarkRunning(); err != nil {
			t.Fatalf("Expected task to start, got %v", err)
		}
		if err := task.RecordVisit(); err != nil {
			t.Fatalf("Expected visit to apply, got %v", err)
		}
		if task.VisitedNum < prev {
			t.Fatalf("visited_num decreased from %d to %d", prev, task.VisitedNum)
		}
		prev = task.VisitedNum
	}

	if task.VisitedNum != task.TotalNum {
		t.Errorf("Expected completion exactly at total_num, got visited=%d total=%d",
			task.VisitedNum, task.TotalNum)
	}
}

func TestTaskCompletionRate(t *testing.T) {
	t.Parallel()

	task, err := NewTask("https://api.example.com/address", "GET", "", nil, 4, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rate := task.CompletionRate(); rate != 0 {
		t.Errorf("Expected zero rate, got %f", rate)
	}

	task.VisitedNum = 2
	if rate := task.CompletionRate(); rate != 0.5 {
		t.Errorf("Expected rate 0.5, got %f", rate)
	}

	task.VisitedNum = 8
	if rate := task.CompletionRate(); rate != 1 {
		t.Errorf("Expected rate clamped to 1, got %f", rate)
	}
}
