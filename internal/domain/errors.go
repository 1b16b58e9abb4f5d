package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrJobNotFound          = errors.New("job not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoClaimableJob       = errors.New("no claimable job")
)

// UnknownPlanError is returned when an order references a plan code that
// does not exist in the catalog.
type UnknownPlanError struct {
	Code string
}

func (e *UnknownPlanError) Error() string {
	return fmt.Sprintf("plan %q does not exist", e.Code)
}

// PlanDisabledError is returned when an order references a plan that is
// administratively disabled.
type PlanDisabledError struct {
	Code string
}

func (e *PlanDisabledError) Error() string {
	return fmt.Sprintf("plan %q is disabled", e.Code)
}

// JobStateError is returned when an operation is not legal from the job's
// current status (e.g. requeuing a job that has not failed).
type JobStateError struct {
	JobID  string
	Status JobStatus
	Op     string
}

func (e *JobStateError) Error() string {
	return fmt.Sprintf("cannot %s job %s in status %q", e.Op, e.JobID, e.Status)
}

// TransitionError is returned when a subscription state transition is not
// allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}
