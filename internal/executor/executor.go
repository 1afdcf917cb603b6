// Package executor performs the fetch, extract, validate, dedup and
// persist sequence for exactly one task. Every internal fault is converted
// into a typed Outcome; nothing propagates past Run as a raw error or
// panic, so the scheduler can never be taken down by a single task.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/fetcher"
	"github.com/phamilton/collector-api/internal/platform/logger"
	"github.com/phamilton/collector-api/internal/store"
	"github.com/phamilton/collector-api/internal/validate"
)

// AddressFetcher abstracts the fetcher so tests can substitute a fake.
type AddressFetcher interface {
	Fetch(ctx context.Context, task *domain.Task) (*fetcher.AddressPayload, error)
}

// Executor runs one task execution per call.
type Executor struct {
	fetcher AddressFetcher
	records store.RecordStore
	logger  *slog.Logger

	// cooldown and maxAttempts bound the in-tick retry loop for HTTP 429.
	// This is the only retry the executor performs.
	cooldown    time.Duration
	maxAttempts int
}

// New creates an Executor. The record store passed here is the default;
// Run accepts a per-call store so a tick's writes can share the tick
// transaction.
func New(f AddressFetcher, records store.RecordStore, cfg config.CrawlerConfig, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		fetcher:     f,
		records:     records,
		logger:      log.With(slog.String("component", "executor")),
		cooldown:    cfg.RateLimitCooldown,
		maxAttempts: cfg.RateLimitAttempts,
	}
}

// Run executes one task against the default record store.
func (e *Executor) Run(ctx context.Context, task *domain.Task) Outcome {
	return e.RunWith(ctx, task, e.records)
}

// RunWith executes one task, persisting through the given record store.
// It always returns an Outcome, never panics.
func (e *Executor) RunWith(ctx context.Context, task *domain.Task, records store.RecordStore) (outcome Outcome) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("task_id", task.ID.String()))

	defer func() {
		if p := recover(); p != nil {
			log.Error("task execution panicked", slog.Any("panic", p))
			outcome = failureOutcome(FailureReasonInternal, fmt.Sprint(p), 0)
		}
	}()

	payload, ferr := e.fetchWithRateLimitRetry(ctx, task, log)
	if ferr != nil {
		return classifyFetchError(ferr)
	}

	record, adjustments, err := validate.Normalize(payload, task.URL)
	if err != nil {
		log.Info("record skipped by validation", slog.String("reason", err.Error()))
		return skippedOutcome(SkipReasonInvalid, err.Error())
	}

	// Adjustments are warnings, not failures; the validator reports them
	// so the I/O-free check stays pure and logging happens here.
	for _, adjustment := range adjustments {
		log.Warn("record field adjusted", slog.String("adjustment", string(adjustment)))
	}

	exists, err := records.Exists(ctx, record.Address, record.Telephone)
	if err != nil {
		log.Error("duplicate lookup failed", slog.String("error", err.Error()))
		return failureOutcome(FailureReasonStore, err.Error(), 0)
	}
	if exists {
		log.Info("record skipped as duplicate",
			slog.String("address", record.Address),
			slog.String("telephone", record.Telephone))
		return skippedOutcome(SkipReasonDuplicate,
			fmt.Sprintf("address=%q telephone=%q", record.Address, record.Telephone))
	}

	if err := records.Save(ctx, record); err != nil {
		if store.IsDuplicateError(err) {
			// A concurrent writer won the race; same outcome as the
			// lookup catching it.
			return skippedOutcome(SkipReasonDuplicate, err.Error())
		}
		log.Error("record save failed", slog.String("error", err.Error()))
		return failureOutcome(FailureReasonStore, err.Error(), 0)
	}

	log.Info("record captured",
		slog.String("record_id", record.ID.String()),
		slog.String("city", record.City))
	return successOutcome()
}

// fetchWithRateLimitRetry performs the fetch, retrying within the same
// tick only on HTTP 429: up to maxAttempts attempts separated by the
// configured cooldown. Every other failure is surfaced immediately.
func (e *Executor) fetchWithRateLimitRetry(ctx context.Context, task *domain.Task, log *slog.Logger) (*fetcher.AddressPayload, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		payload, err := e.fetcher.Fetch(ctx, task)
		if err == nil {
			return payload, nil
		}

		var fetchErr *fetcher.Error
		if !errors.As(err, &fetchErr) || fetchErr.Kind != fetcher.KindRateLimited {
			return nil, err
		}

		lastErr = err
		if attempt == e.maxAttempts {
			break
		}

		log.Warn("rate limited by source, cooling down",
			slog.Int("attempt", attempt),
			slog.Duration("cooldown", e.cooldown))
		if err := sleepContext(ctx, e.cooldown); err != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// classifyFetchError converts a fetch failure into a Failure outcome.
func classifyFetchError(err error) Outcome {
	var fetchErr *fetcher.Error
	if errors.As(err, &fetchErr) {
		return failureOutcome(string(fetchErr.Kind), fetchErr.Error(), fetchErr.StatusCode)
	}
	return failureOutcome(string(fetcher.KindConnectionFailed), err.Error(), 0)
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
