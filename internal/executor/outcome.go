package executor

// OutcomeKind is the tri-state result of one task execution.
type OutcomeKind string

// Possible outcome kinds
const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailure OutcomeKind = "failure"
)

// Skip reasons
const (
	SkipReasonInvalid   = "invalid"
	SkipReasonDuplicate = "duplicate"
)

// Failure reasons not derived from a fetch error kind
const (
	FailureReasonStore    = "store_error"
	FailureReasonInternal = "internal"
)

// Outcome is what one task execution produced. Exactly one record is
// persisted on Success; none on Skipped or Failure. A Skipped outcome does
// not count toward the task's retry ceiling, a Failure does.
type Outcome struct {
	Kind OutcomeKind

	// Reason carries the skip reason (invalid, duplicate) or failure kind
	// (timeout, rate_limited, http_status, ...). Empty on success.
	Reason string

	// Detail adds human-readable context: the validation error, the
	// duplicate dedup key, or the underlying fault.
	Detail string

	// StatusCode is the upstream HTTP status, when one was observed.
	StatusCode int
}

// Success reports whether the execution persisted a record.
func (o Outcome) Success() bool { return o.Kind == OutcomeSuccess }

// Failed reports whether the execution should count toward retry_count.
func (o Outcome) Failed() bool { return o.Kind == OutcomeFailure }

func successOutcome() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

func skippedOutcome(reason, detail string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason, Detail: detail}
}

func failureOutcome(reason, detail string, statusCode int) Outcome {
	return Outcome{Kind: OutcomeFailure, Reason: reason, Detail: detail, StatusCode: statusCode}
}
