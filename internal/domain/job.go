package domain

import "time"

// JobKind selects the remote capability a job executes against.
type JobKind string

const (
	JobKindEdit     JobKind = "edit"
	JobKindGenerate JobKind = "generate"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one asynchronous remote image call. RawPath and PNGPath
// point at staged input files owned by the job until cleanup; they are
// empty for jobs without an uploaded source image. Exactly one of
// Result and Error is set once the job reaches a terminal state.
type Job struct {
	ID        string
	Kind      JobKind
	Status    JobStatus
	Prompt    string
	RawPath   string
	PNGPath   string
	Result    *Image
	Error     string
	Created   time.Time
	Completed *time.Time
}
