package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phamilton/collector-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrInvalidEntity (wrapping the validation error) if the task
	// fails domain validation, so an invalid total_num never reaches disk.
	Create(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists the task's current field values and assigns the
	// updated_at timestamp. Returns ErrTaskNotFound if the task does not
	// exist.
	Update(ctx context.Context, task *domain.Task) error

	// FindNextEligible returns the oldest task with status=pending,
	// visited_num < total_num and total_num > 0, or ErrNoEligibleTask if
	// no task satisfies the predicate.
	FindNextEligible(ctx context.Context) (*domain.Task, error)

	// List returns all tasks ordered by creation time, oldest first.
	List(ctx context.Context) ([]*domain.Task, error)

	// ResetRunning flips every running task back to pending and returns
	// the number of tasks reset. Called once at startup so a crash
	// mid-tick never leaves a task permanently stuck in running.
	ResetRunning(ctx context.Context) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
