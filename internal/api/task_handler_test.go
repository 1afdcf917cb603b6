package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/store"
)

// stubTaskStore is a minimal store.TaskStore for handler tests.
type stubTaskStore struct {
	tasks map[uuid.UUID]*domain.Task
}

func newStubTaskStore() *stubTaskStore {
	return &stubTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (s *stubTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.ErrInvalidEntity
	}
	s.tasks[task.ID] = task
	return nil
}

func (s *stubTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (s *stubTaskStore) Update(ctx context.Context, task *domain.Task) error { return nil }

func (s *stubTaskStore) FindNextEligible(ctx context.Context) (*domain.Task, error) {
	return nil, store.ErrNoEligibleTask
}

func (s *stubTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (s *stubTaskStore) ResetRunning(ctx context.Context) (int, error) { return 0, nil }

func (s *stubTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

func newTestRouter(tasks store.TaskStore) http.Handler {
	r := chi.NewRouter()
	h := NewTaskHandler(tasks, 45*time.Second)
	r.Post("/api/tasks", h.CreateTask)
	r.Get("/api/tasks", h.ListTasks)
	r.Get("/api/tasks/{id}", h.GetTask)
	return r
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	tasks := newStubTaskStore()
	router := newTestRouter(tasks)

	body := `{"url":"https://api.example.com/address","total_num":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "GET", resp.Method)
	assert.Equal(t, 5, resp.TotalNum)
	assert.Zero(t, resp.VisitedNum)
	assert.Len(t, tasks.tasks, 1)
}

func TestCreateTaskTimeoutDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		// The handler's configured default applies when the request
		// carries no timeout_seconds.
		{"omitted timeout uses configured default", `{"url":"https://api.example.com/address","total_num":5}`, 45 * time.Second},
		{"explicit timeout wins", `{"url":"https://api.example.com/address","total_num":5,"timeout_seconds":10}`, 10 * time.Second},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tasks := newStubTaskStore()
			router := newTestRouter(tasks)

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusCreated, rec.Code)

			require.Len(t, tasks.tasks, 1)
			for _, task := range tasks.tasks {
				assert.Equal(t, tc.want, task.Timeout)
			}
		})
	}
}

func TestCreateTaskRejectsInvalidTotalNum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"zero total_num", `{"url":"https://api.example.com/address","total_num":0}`},
		{"negative total_num", `{"url":"https://api.example.com/address","total_num":-2}`},
		{"missing total_num", `{"url":"https://api.example.com/address"}`},
		{"missing url", `{"total_num":5}`},
		{"bad method", `{"url":"https://api.example.com/address","total_num":5,"method":"FETCH"}`},
		{"malformed body", `{"url":`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tasks := newStubTaskStore()
			router := newTestRouter(tasks)

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, tasks.tasks, "rejected task must never be persisted")
		})
	}
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	tasks := newStubTaskStore()
	task, err := domain.NewTask("https://api.example.com/address", "GET", "", nil, 4, 0)
	require.NoError(t, err)
	task.VisitedNum = 2
	tasks.tasks[task.ID] = task

	router := newTestRouter(tasks)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, task.ID.String(), resp.ID)
	assert.Equal(t, 2, resp.VisitedNum)
	assert.Equal(t, 0.5, resp.CompletionRate)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestGetTaskNotFound(t *testing.T) {
	t.Parallel()

	router := newTestRouter(newStubTaskStore())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskInvalidID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(newStubTaskStore())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	tasks := newStubTaskStore()
	for i := 0; i < 3; i++ {
		task, err := domain.NewTask("https://api.example.com/address", "GET", "", nil, 1, 0)
		require.NoError(t, err)
		tasks.tasks[task.ID] = task
	}

	router := newTestRouter(tasks)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 3)
}
