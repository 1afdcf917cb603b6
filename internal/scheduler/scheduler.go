// Package scheduler drives task execution at a fixed interval. Once per
// tick it selects at most one eligible task, hands it to the executor, and
// applies the outcome to the task's progress counters inside a single
// transaction. A failing task never stops future ticks.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/events"
	"github.com/phamilton/collector-api/internal/executor"
	"github.com/phamilton/collector-api/internal/platform/logger"
	"github.com/phamilton/collector-api/internal/store"
)

// txRunner abstracts store.RunInTransaction so the tick body can be
// exercised without a live database.
type txRunner func(ctx context.Context, fn store.TxFn) error

// Scheduler owns the tick loop and its run statistics.
type Scheduler struct {
	runTx   txRunner
	tasks   store.TaskStore
	records store.RecordStore
	exec    *executor.Executor
	emitter events.Emitter
	cfg     config.SchedulerConfig
	logger  *slog.Logger

	stats Stats

	// quit stops the loop without cancelling an in-flight tick. It is
	// recreated on every Start so a stopped scheduler can be restarted.
	quit    chan struct{}
	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
}

// New creates a Scheduler. The emitter may be nil, in which case outcomes
// are only logged and counted.
func New(
	db *sql.DB,
	tasks store.TaskStore,
	records store.RecordStore,
	exec *executor.Executor,
	emitter events.Emitter,
	cfg config.SchedulerConfig,
	log *slog.Logger,
) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		runTx: func(ctx context.Context, fn store.TxFn) error {
			return store.RunInTransaction(ctx, db, fn)
		},
		tasks:   tasks,
		records: records,
		exec:    exec,
		emitter: emitter,
		cfg:     cfg,
		logger:  log.With(slog.String("component", "scheduler")),
	}
}

// Start recovers interrupted tasks and begins the tick loop.
// It returns an error if recovery fails or the scheduler already runs.
func (s *Scheduler) Start() error {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}

	// A running task found here was interrupted by a crash mid-tick;
	// reset it so it is eligible again.
	reset, err := s.tasks.ResetRunning(context.Background())
	if err != nil {
		return fmt.Errorf("failed to recover interrupted tasks: %w", err)
	}
	if reset > 0 {
		s.logger.Info("recovered interrupted tasks", slog.Int("count", reset))
	}

	s.started = true
	s.quit = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.quit)

	s.logger.Info("scheduler started",
		slog.Duration("tick_interval", s.cfg.TickInterval),
		slog.Int("report_every", s.cfg.ReportEvery))
	return nil
}

// Stop prevents the next tick from starting and waits for an in-flight
// tick to finish before returning. It never cancels a tick mid-flight.
// A stopped scheduler can be started again with Start.
func (s *Scheduler) Stop() {
	s.startMu.Lock()
	if !s.started {
		s.startMu.Unlock()
		return
	}
	s.started = false
	quit := s.quit
	s.startMu.Unlock()

	close(quit)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Stats returns a snapshot of the current run statistics.
func (s *Scheduler) Stats() Snapshot {
	return s.stats.Snapshot()
}

// loop runs ticks strictly sequentially: the ticker fires at the
// configured interval and a slow tick simply delays the next one, so at
// most one tick is ever in flight.
func (s *Scheduler) loop(quit <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.runTick(context.Background())
		}
	}
}

// runTick executes one scheduler activation: select a task, execute it,
// apply the outcome. All store mutations happen inside one transaction,
// so a crash mid-tick leaves the task re-derivable as pending on restart.
func (s *Scheduler) runTick(ctx context.Context) {
	ctx = logger.WithLogger(ctx, s.logger)

	var (
		executed *domain.Task
		outcome  executor.Outcome
	)

	err := s.runTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		task, err := tasks.FindNextEligible(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNoEligibleTask) {
				return err
			}
			return fmt.Errorf("task selection failed: %w", err)
		}

		if err := task.MarkRunning(); err != nil {
			return fmt.Errorf("task %s cannot run: %w", task.ID, err)
		}
		if err := tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to mark task running: %w", err)
		}

		outcome = s.exec.RunWith(ctx, task, s.records.WithTx(tx))
		executed = task

		if outcome.Failed() {
			if err := task.RecordFailure(s.cfg.RetryCeiling); err != nil {
				return fmt.Errorf("failed to apply failure to task: %w", err)
			}
		} else {
			// Success and skip both count as one visit; a skip does
			// not touch retry_count.
			if err := task.RecordVisit(); err != nil {
				return fmt.Errorf("failed to apply visit to task: %w", err)
			}
		}

		return tasks.Update(ctx, task)
	})

	switch {
	case errors.Is(err, store.ErrNoEligibleTask):
		s.stats.recordIdle()
	case err != nil:
		// A tick-level fault counts as a failed tick but never aborts
		// the loop; the next tick proceeds regardless.
		s.logger.Error("tick failed", slog.String("error", err.Error()))
		s.noteFailure()
	case outcome.Failed():
		s.noteFailure()
	case outcome.Kind == executor.OutcomeSkipped:
		s.stats.recordSkip()
	default:
		s.stats.recordSuccess()
	}

	// A tick whose transaction failed rolled back everything the executor
	// wrote; the in-memory task and outcome no longer describe anything
	// persisted, so nothing is reported for it.
	if err == nil && executed != nil {
		s.report(ctx, executed, outcome)
	}
	s.maybeSummarize()
}

// noteFailure bumps the failure counters and emits a warning once per
// failure streak, when the consecutive-failure threshold is crossed.
func (s *Scheduler) noteFailure() {
	consecutive := s.stats.recordFailure()
	if consecutive == s.cfg.FailureWarnThreshold {
		s.logger.Warn("consecutive tick failures reached threshold",
			slog.Int("consecutive_failures", consecutive),
			slog.Int("threshold", s.cfg.FailureWarnThreshold))
	}
}

// report publishes the tick outcome to the reporting sink and logs
// terminal task transitions.
func (s *Scheduler) report(ctx context.Context, task *domain.Task, outcome executor.Outcome) {
	if task.Status == domain.TaskStatusCompleted {
		s.logger.Info("task completed",
			slog.String("task_id", task.ID.String()),
			slog.Int("visited_num", task.VisitedNum),
			slog.Int("total_num", task.TotalNum))
	}
	if task.Status == domain.TaskStatusFailed {
		s.logger.Warn("task failed permanently",
			slog.String("task_id", task.ID.String()),
			slog.Int("retry_count", task.RetryCount))
	}

	if s.emitter == nil {
		return
	}

	kind := events.OutcomeSucceeded
	switch outcome.Kind {
	case executor.OutcomeSkipped:
		kind = events.OutcomeSkipped
	case executor.OutcomeFailure:
		kind = events.OutcomeFailed
	}

	event := &events.TickOutcomeEvent{
		TaskID:     task.ID,
		Kind:       kind,
		Reason:     outcome.Reason,
		StatusCode: outcome.StatusCode,
		At:         time.Now().UTC(),
	}
	if err := s.emitter.EmitOutcome(ctx, event); err != nil {
		s.logger.Error("failed to emit outcome event",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
	}
}

// maybeSummarize logs the aggregate summary once per reporting interval.
// The interval is a fixed tick count, not a wall-clock minute, so slow
// ticks stretch the period instead of drifting against it.
func (s *Scheduler) maybeSummarize() {
	snapshot := s.stats.Snapshot()
	if snapshot.Ticks == 0 || snapshot.Ticks%s.cfg.ReportEvery != 0 {
		return
	}

	snapshot = s.stats.SnapshotAndMaybeReset(true)
	s.logger.Info("scheduler summary",
		slog.Int("succeeded", snapshot.Succeeded),
		slog.Int("failed", snapshot.Failed),
		slog.Int("skipped", snapshot.Skipped),
		slog.Int("idle", snapshot.Idle),
		slog.Int("total_succeeded", snapshot.TotalSucceeded),
		slog.Int("total_failed", snapshot.TotalFailed),
		slog.Int("total_skipped", snapshot.TotalSkipped))
}
