// Package events provides the reporting sink for tick outcomes.
//
// The scheduler emits one event per executed tick without knowing which
// handlers consume them; handlers (logging, future metrics) register with
// an emitter. This keeps the reporting surface decoupled from the tick
// loop itself.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutcomeKind mirrors the tri-state result of one task execution.
type OutcomeKind string

// Possible outcome kinds
const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// TickOutcomeEvent describes the result of one scheduler tick that
// dispatched a task.
type TickOutcomeEvent struct {
	// TaskID identifies the executed task.
	TaskID uuid.UUID `json:"task_id"`

	// Kind is the tri-state outcome.
	Kind OutcomeKind `json:"kind"`

	// Reason carries the skip reason or failure kind, empty on success.
	Reason string `json:"reason,omitempty"`

	// StatusCode is the upstream HTTP status, when one was observed.
	StatusCode int `json:"status_code,omitempty"`

	// At is the time the outcome was recorded.
	At time.Time `json:"at"`
}

// Handler defines an interface for components that consume tick outcomes.
type Handler interface {
	// HandleOutcome processes one outcome event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleOutcome(ctx context.Context, event *TickOutcomeEvent) error
}

// Emitter defines an interface for components that publish tick outcomes.
// This allows the scheduler to report without direct knowledge of handlers.
type Emitter interface {
	// EmitOutcome publishes the given event to all registered handlers.
	EmitOutcome(ctx context.Context, event *TickOutcomeEvent) error

	// RegisterHandler adds a new handler to receive events.
	RegisterHandler(handler Handler)
}
