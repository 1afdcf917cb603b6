package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEmitter is a simple implementation of the Emitter interface
// that stores registered handlers in memory and dispatches events to them
// synchronously, in registration order.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates a new instance of InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEmitter{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "outcome_emitter"),
	}
}

// RegisterHandler adds a new handler to receive events.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered outcome handler", "handler_count", len(e.handlers))
}

// EmitOutcome publishes the given event to all registered handlers.
// If any handler returns an error, the event is still sent to all other
// handlers, and the first error encountered is returned.
func (e *InMemoryEmitter) EmitOutcome(ctx context.Context, event *TickOutcomeEvent) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleOutcome(ctx, event); err != nil {
			e.logger.Error("handler failed to process outcome event",
				"error", err,
				"handler_index", i,
				"task_id", event.TaskID,
				"kind", event.Kind)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// LogHandler is the default reporting sink: it writes every outcome to the
// structured log with its task id, kind and context fields.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler writing to the given logger.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger.With("component", "outcome_log")}
}

// HandleOutcome implements Handler.
func (h *LogHandler) HandleOutcome(_ context.Context, event *TickOutcomeEvent) error {
	attrs := []any{
		"task_id", event.TaskID,
		"kind", event.Kind,
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if event.StatusCode != 0 {
		attrs = append(attrs, "status_code", event.StatusCode)
	}

	switch event.Kind {
	case OutcomeFailed:
		h.logger.Warn("task execution failed", attrs...)
	default:
		h.logger.Info("task executed", attrs...)
	}
	return nil
}
