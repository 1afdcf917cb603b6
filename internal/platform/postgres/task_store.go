package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/platform/logger"
	"github.com/phamilton/collector-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// taskColumns is the canonical column list shared by every SELECT.
const taskColumns = `id, url, method, body, headers, timeout_seconds,
	total_num, visited_num, status, retry_count, created_at, updated_at`

// Create implements store.TaskStore.Create
// It saves a new task to the database, handling domain validation first so
// an invalid task is rejected before anything is persisted.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	headers, err := json.Marshal(task.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal task headers: %w", err)
	}

	query := `
		INSERT INTO tasks (id, url, method, body, headers, timeout_seconds,
			total_num, visited_num, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.URL,
		task.Method,
		task.Body,
		headers,
		int(task.Timeout/time.Second),
		task.TotalNum,
		task.VisitedNum,
		task.Status,
		task.RetryCount,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("url", task.URL))
	return nil
}

// Get implements store.TaskStore.Get
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	task, err := s.scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
// The updated_at timestamp is assigned here, as an explicit step of the
// store operation, never as an implicit model hook.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	headers, err := json.Marshal(task.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal task headers: %w", err)
	}

	query := `
		UPDATE tasks
		SET url = $2, method = $3, body = $4, headers = $5, timeout_seconds = $6,
			total_num = $7, visited_num = $8, status = $9, retry_count = $10,
			updated_at = $11
		WHERE id = $1
	`
	task.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.URL,
		task.Method,
		task.Body,
		headers,
		int(task.Timeout/time.Second),
		task.TotalNum,
		task.VisitedNum,
		task.Status,
		task.RetryCount,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// FindNextEligible implements store.TaskStore.FindNextEligible
// Selection ordering is deterministic: oldest eligible task first.
func (s *PostgresTaskStore) FindNextEligible(ctx context.Context) (*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = $1 AND visited_num < total_num AND total_num > 0
		ORDER BY created_at ASC
		LIMIT 1
	`, taskColumns)

	task, err := s.scanTask(s.db.QueryRowContext(ctx, query, domain.TaskStatusPending))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrNoEligibleTask
		}
		return nil, fmt.Errorf("failed to find next eligible task: %w", err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks ORDER BY created_at ASC`, taskColumns)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// ResetRunning implements store.TaskStore.ResetRunning
// A running task found here was interrupted mid-tick; it is returned to
// pending so the scheduler picks it up again.
func (s *PostgresTaskStore) ResetRunning(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE status = $3
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.TaskStatusPending,
		time.Now().UTC(),
		domain.TaskStatusRunning,
	)
	if err != nil {
		log.Error("failed to reset running tasks",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Info("reset interrupted tasks to pending",
			slog.Int64("count", rowsAffected))
	}
	return int(rowsAffected), nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row in taskColumns order.
func (s *PostgresTaskStore) scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		body           sql.NullString
		headers        []byte
		timeoutSeconds int
	)

	err := row.Scan(
		&task.ID,
		&task.URL,
		&task.Method,
		&body,
		&headers,
		&timeoutSeconds,
		&task.TotalNum,
		&task.VisitedNum,
		&task.Status,
		&task.RetryCount,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Body = body.String
	task.Timeout = time.Duration(timeoutSeconds) * time.Second

	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &task.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task headers: %w", err)
		}
	}

	return &task, nil
}
