package models

import "fmt"

// Error taxonomy for the sync engine. Handlers and callers distinguish
// these with errors.As; wrapping preserves the transport-level cause.

// SubmissionError means the backend rejected a job submission.
// Fatal to that run; submission is not retried automatically.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("job submission rejected: %s", e.Reason)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollTransportError means polling failed at the network level.
// Single occurrences are absorbed; repeated consecutive occurrences
// escalate a watch to a terminal failure carrying this error.
type PollTransportError struct {
	JobID    string
	Attempts int
	Err      error
}

func (e *PollTransportError) Error() string {
	return fmt.Sprintf("polling job %s failed after %d consecutive transport errors", e.JobID, e.Attempts)
}

func (e *PollTransportError) Unwrap() error { return e.Err }

// JobFailedError means the server reported the job as failed.
type JobFailedError struct {
	JobID   string
	Message string // server's status message, advisory
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// TimedOutError means the client exhausted its poll attempts and gave up.
// Distinct from JobFailedError: the job may still complete server-side,
// and watching the same job ID again is valid.
type TimedOutError struct {
	JobID    string
	Attempts int
}

func (e *TimedOutError) Error() string {
	return fmt.Sprintf("gave up watching job %s after %d attempts", e.JobID, e.Attempts)
}

// PersistenceError means normalized recommendations could not be saved
// to the backend. Recoverable by retrying ingestion; the raw payload is
// retained in the local cache so it is not lost.
type PersistenceError struct {
	BatchID string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist recommendation batch %s: %v", e.BatchID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ActionError means an accept/reject decision could not be recorded.
// Fatal to that action; the user must retry explicitly.
type ActionError struct {
	RecommendationID string
	Err              error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to record action on recommendation %s: %v", e.RecommendationID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// DownstreamPushError means a price update or POS push failed after the
// user's decision was already recorded. Non-fatal: the action stands and
// the push can be retried independently.
type DownstreamPushError struct {
	ItemID string
	Target string // "price" or "pos"
	Err    error
}

func (e *DownstreamPushError) Error() string {
	return fmt.Sprintf("price sync to %s failed for item %s: %v", e.Target, e.ItemID, e.Err)
}

func (e *DownstreamPushError) Unwrap() error { return e.Err }
