package domain

import "time"

// JobType identifies which external capability a job exercises.
type JobType string

const (
	JobProvisionDNS     JobType = "provision_dns"
	JobProvisionHosting JobType = "provision_hosting"
	JobProvisionMail    JobType = "provision_mail"
	JobProvisionPod     JobType = "provision_pod"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether a status permits no further execution.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// Job is the unit of durable provisioning work: one capability for one order.
// The job store exclusively owns status transitions; handlers only report
// outcomes.
type Job struct {
	ID          string
	OrderID     string
	TenantID    string
	Type        JobType
	Intent      Intent
	Status      JobStatus
	Attempts    int
	LastError   string
	ClaimedBy   string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// NewJob creates a pending job carrying the given intent.
func NewJob(id string, jobType JobType, intent Intent) Job {
	return Job{
		ID:        id,
		OrderID:   intent.OrderID,
		TenantID:  intent.TenantID,
		Type:      jobType,
		Intent:    intent,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Outcome is a handler's report for one job execution.
type Outcome struct {
	Success bool
	Error   string
}

// SuccessOutcome reports a clean completion.
func SuccessOutcome() Outcome { return Outcome{Success: true} }

// FailureOutcome reports a failed execution with an operator-visible message.
func FailureOutcome(msg string) Outcome { return Outcome{Success: false, Error: msg} }

// JobFilter holds optional criteria for listing jobs.
type JobFilter struct {
	OrderID string
	Status  *JobStatus
	Limit   int
	Offset  int
}
