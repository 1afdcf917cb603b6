package scheduler

import "sync"

// Stats is the rolling outcome counter owned by one Scheduler instance.
// Counters cover the window since the last report; Totals accumulate for
// the life of the process. No package-level state: reporting reads the
// struct the scheduler hands it.
type Stats struct {
	mu sync.Mutex

	// Window counters, reset on every report.
	Succeeded int
	Failed    int
	Skipped   int
	Idle      int

	// Ticks counts every scheduler activation, idle or not.
	Ticks int

	// ConsecutiveFailures counts tick failures across tasks since the
	// last non-failed tick.
	ConsecutiveFailures int

	TotalSucceeded int
	TotalFailed    int
	TotalSkipped   int
}

// Snapshot is a copy of the counters safe to read outside the tick loop.
type Snapshot struct {
	Succeeded           int
	Failed              int
	Skipped             int
	Idle                int
	Ticks               int
	ConsecutiveFailures int
	TotalSucceeded      int
	TotalFailed         int
	TotalSkipped        int
}

func (s *Stats) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Succeeded++
	s.TotalSucceeded++
	s.Ticks++
	s.ConsecutiveFailures = 0
}

func (s *Stats) recordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
	s.TotalSkipped++
	s.Ticks++
	s.ConsecutiveFailures = 0
}

// recordFailure returns the updated consecutive failure count so the
// caller can decide whether the warning threshold was just crossed.
func (s *Stats) recordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
	s.TotalFailed++
	s.Ticks++
	s.ConsecutiveFailures++
	return s.ConsecutiveFailures
}

func (s *Stats) recordIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Idle++
	s.Ticks++
}

// SnapshotAndMaybeReset returns the current counters and, when reset is
// true, clears the window counters for the next reporting interval.
func (s *Stats) SnapshotAndMaybeReset(reset bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		Succeeded:           s.Succeeded,
		Failed:              s.Failed,
		Skipped:             s.Skipped,
		Idle:                s.Idle,
		Ticks:               s.Ticks,
		ConsecutiveFailures: s.ConsecutiveFailures,
		TotalSucceeded:      s.TotalSucceeded,
		TotalFailed:         s.TotalFailed,
		TotalSkipped:        s.TotalSkipped,
	}

	if reset {
		s.Succeeded = 0
		s.Failed = 0
		s.Skipped = 0
		s.Idle = 0
	}

	return snapshot
}

// Snapshot returns the current counters without resetting anything.
func (s *Stats) Snapshot() Snapshot {
	return s.SnapshotAndMaybeReset(false)
}
