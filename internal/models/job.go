package models

import "encoding/json"

// JobStatus represents the current state of a background analysis job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// IsValidStatus returns true if the status string is a valid JobStatus
func IsValidStatus(s string) bool {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is one the server never leaves.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// lifecycleRank orders statuses so a watch can reject regressions
// (a snapshot must never move backwards within one watch).
func (s JobStatus) lifecycleRank() int {
	switch s {
	case JobStatusPending:
		return 0
	case JobStatusRunning:
		return 1
	case JobStatusSucceeded, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether s is at or past other in the job lifecycle.
func (s JobStatus) AtLeast(other JobStatus) bool {
	return s.lifecycleRank() >= other.lifecycleRank()
}

// Job is one snapshot of a background analysis invocation as reported
// by the status endpoint. Result is present only when Status is succeeded.
type Job struct {
	ID            string          `json:"job_id"`
	Status        JobStatus       `json:"status"`
	StatusMessage string          `json:"status_message,omitempty"` // advisory only
	Result        json.RawMessage `json:"result,omitempty"`
}
