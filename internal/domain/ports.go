package domain

import "context"

// JobStore defines the persistence contract for provisioning jobs. It is the
// single owner of job state transitions and the only queue in the system:
// workers coordinate exclusively through it, never through shared memory.
type JobStore interface {
	// CreateBatch persists all jobs atomically. A partial write must never
	// be observable as committed.
	CreateBatch(ctx context.Context, jobs []Job) error
	// ClaimNext atomically selects one pending job, marks it running and
	// records the claiming worker. Returns ErrNoClaimableJob when the
	// queue is empty. Safe under concurrent callers.
	ClaimNext(ctx context.Context, workerID string) (Job, error)
	// Complete writes the terminal status for a running job.
	Complete(ctx context.Context, jobID string, outcome Outcome) error
	// Requeue resets a failed job to pending, clearing its error. Attempts
	// stay cumulative for audit.
	Requeue(ctx context.Context, jobID string) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	List(ctx context.Context, filter JobFilter) ([]Job, error)
	ListByOrder(ctx context.Context, orderID string) ([]Job, error)
	// DeleteFailed removes all failed jobs and returns how many were removed.
	DeleteFailed(ctx context.Context) (int, error)
}

// SubscriptionRepository defines the persistence contract for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub Subscription) error
	GetByOrderID(ctx context.Context, orderID string) (Subscription, error)
	Update(ctx context.Context, sub Subscription) error
}

// Handler performs exactly one capability's side effect against one external
// system. Implementations are expected to be idempotent: they check the
// external system for existing state before creating anything.
type Handler interface {
	Provision(ctx context.Context, intent Intent) error
}

// EventPublisher defines the contract for emitting lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, sub Subscription) error
}

// TransitionValidator checks and applies subscription state transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
