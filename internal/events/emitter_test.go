package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler captures every event it receives and optionally fails.
type recordingHandler struct {
	events []*TickOutcomeEvent
	err    error
}

func (h *recordingHandler) HandleOutcome(_ context.Context, event *TickOutcomeEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newEvent(kind OutcomeKind) *TickOutcomeEvent {
	return &TickOutcomeEvent{
		TaskID: uuid.New(),
		Kind:   kind,
		At:     time.Now().UTC(),
	}
}

func TestEmitOutcomeDispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(nil)
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event := newEvent(OutcomeSucceeded)
	require.NoError(t, emitter.EmitOutcome(context.Background(), event))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, event.TaskID, first.events[0].TaskID)
}

func TestEmitOutcomeWithNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(nil)
	assert.NoError(t, emitter.EmitOutcome(context.Background(), newEvent(OutcomeSkipped)))
}

func TestEmitOutcomeContinuesPastFailingHandler(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(nil)
	failErr := errors.New("sink unavailable")
	failing := &recordingHandler{err: failErr}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	err := emitter.EmitOutcome(context.Background(), newEvent(OutcomeFailed))

	assert.ErrorIs(t, err, failErr)
	assert.Len(t, healthy.events, 1, "later handlers still receive the event")
}

func TestEmitOutcomeReturnsFirstError(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEmitter(nil)
	firstErr := errors.New("first failure")
	secondErr := errors.New("second failure")
	emitter.RegisterHandler(&recordingHandler{err: firstErr})
	emitter.RegisterHandler(&recordingHandler{err: secondErr})

	err := emitter.EmitOutcome(context.Background(), newEvent(OutcomeFailed))
	assert.ErrorIs(t, err, firstErr)
	assert.NotErrorIs(t, err, secondErr)
}

func TestLogHandlerNeverFails(t *testing.T) {
	t.Parallel()

	handler := NewLogHandler(nil)
	for _, kind := range []OutcomeKind{OutcomeSucceeded, OutcomeSkipped, OutcomeFailed} {
		event := newEvent(kind)
		event.Reason = "http_status"
		event.StatusCode = 503
		assert.NoError(t, handler.HandleOutcome(context.Background(), event))
	}
}
