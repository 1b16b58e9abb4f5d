package domain

import "time"

// Status represents the activation state of a subscription.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	StatusFailed       Status = "failed"
)

// Event represents an aggregate outcome that triggers a state transition.
type Event string

const (
	EventJobsSucceeded Event = "jobs_succeeded"
	EventJobFailed     Event = "job_failed"
	EventRequeue       Event = "requeue"
)

// Transition defines a valid state change: an event moves a subscription
// from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid subscription state changes. A subscription
// becomes active only through jobs_succeeded, and only the aggregator emits
// that event. This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventJobsSucceeded, Src: StatusProvisioning, Dst: StatusActive},
	{Event: EventJobFailed, Src: StatusProvisioning, Dst: StatusFailed},
	{Event: EventRequeue, Src: StatusFailed, Dst: StatusProvisioning},
}

// Subscription is the downstream entity whose status field is owned by the
// activation aggregator. Handlers never write it directly.
type Subscription struct {
	OrderID    string
	TenantID   string
	DomainName string
	Status     Status
	StatusNote string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSubscription creates a subscription in the initial provisioning state.
func NewSubscription(orderID, tenantID, domainName string) Subscription {
	now := time.Now().UTC()
	return Subscription{
		OrderID:    orderID,
		TenantID:   tenantID,
		DomainName: domainName,
		Status:     StatusProvisioning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
