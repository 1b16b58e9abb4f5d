package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/im7mortal/kmutex"

	"github.com/cirrohost/provisiond/internal/domain"
)

// Aggregator owns the subscription status field. After every job completion
// it re-reads the order's full job set from the store and recomputes the
// aggregate, so its view never drifts from the source of truth. A
// subscription goes active only when every job succeeded.
type Aggregator struct {
	store     domain.JobStore
	subs      domain.SubscriptionRepository
	validator domain.TransitionValidator
	publisher domain.EventPublisher
	locks     *kmutex.Kmutex
	log       *slog.Logger
}

// NewAggregator creates an aggregator with the given adapters.
func NewAggregator(
	store domain.JobStore,
	subs domain.SubscriptionRepository,
	validator domain.TransitionValidator,
	publisher domain.EventPublisher,
	log *slog.Logger,
) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{
		store:     store,
		subs:      subs,
		validator: validator,
		publisher: publisher,
		locks:     kmutex.New(),
		log:       log,
	}
}

// JobCompleted re-evaluates activation for one order. Evaluations for the
// same order are serialized through a per-order lock so two workers cannot
// decide activation from stale reads.
func (a *Aggregator) JobCompleted(ctx context.Context, orderID string) error {
	a.locks.Lock(orderID)
	defer a.locks.Unlock(orderID)

	jobs, err := a.store.ListByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("reading jobs for order %s: %w", orderID, err)
	}
	if len(jobs) == 0 {
		return nil
	}

	sub, err := a.subs.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			// A job without an owning subscription is an inconsistency,
			// not a reason to crash the aggregation path.
			a.log.WarnContext(ctx, "jobs reference order with no subscription",
				"order_id", orderID, "jobs", len(jobs))
			return nil
		}
		return fmt.Errorf("reading subscription for order %s: %w", orderID, err)
	}

	// Only a provisioning subscription has a pending decision. This guard
	// makes activation fire exactly once per provisioning round.
	if sub.Status != domain.StatusProvisioning {
		return nil
	}

	event, note, decided := decide(jobs)
	if !decided {
		return nil
	}

	newStatus, err := a.validator.Apply(ctx, sub.Status, event)
	if err != nil {
		return fmt.Errorf("applying %q to order %s: %w", event, orderID, err)
	}

	sub.Status = newStatus
	sub.StatusNote = note
	if err := a.subs.Update(ctx, sub); err != nil {
		return fmt.Errorf("updating subscription %s: %w", orderID, err)
	}

	a.log.InfoContext(ctx, "subscription state changed",
		"order_id", orderID, "status", string(newStatus), "event", string(event))

	if err := a.publisher.Publish(ctx, event, sub); err != nil {
		return fmt.Errorf("publishing %q for order %s: %w", event, orderID, err)
	}

	return nil
}

// RequeueJob resets a failed job to pending and moves its subscription back
// to provisioning. Both writes happen under the same per-order lock that
// serializes JobCompleted: the subscription must read provisioning before the
// job becomes claimable again, otherwise a fast worker could complete the job
// and find the activation decision already closed.
func (a *Aggregator) RequeueJob(ctx context.Context, jobID string) error {
	job, err := a.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	a.locks.Lock(job.OrderID)
	defer a.locks.Unlock(job.OrderID)

	// Re-read under the lock; a concurrent requeue may have won.
	job, err = a.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobFailed {
		return &domain.JobStateError{JobID: jobID, Status: job.Status, Op: "requeue"}
	}

	if err := a.reopen(ctx, job.OrderID); err != nil {
		return err
	}

	return a.store.Requeue(ctx, jobID)
}

// reopen applies the requeue transition when the subscription sits in failed.
// A subscription still provisioning (other jobs outstanding) stays untouched.
func (a *Aggregator) reopen(ctx context.Context, orderID string) error {
	sub, err := a.subs.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	newStatus, err := a.validator.Apply(ctx, sub.Status, domain.EventRequeue)
	if err != nil {
		var trErr *domain.TransitionError
		if errors.As(err, &trErr) {
			return nil
		}
		return err
	}

	sub.Status = newStatus
	sub.StatusNote = ""
	if err := a.subs.Update(ctx, sub); err != nil {
		return fmt.Errorf("reopening subscription %s: %w", orderID, err)
	}

	if err := a.publisher.Publish(ctx, domain.EventRequeue, sub); err != nil {
		return fmt.Errorf("publishing requeue event: %w", err)
	}
	return nil
}

// decide maps the full job set onto an aggregate event. Any failed job wins
// over everything else; all-success activates; outstanding work decides
// nothing.
func decide(jobs []domain.Job) (domain.Event, string, bool) {
	allSuccess := true
	for _, job := range jobs {
		if job.Status == domain.JobFailed {
			note := fmt.Sprintf("%s: %s", job.Type, job.LastError)
			return domain.EventJobFailed, note, true
		}
		if job.Status != domain.JobSuccess {
			allSuccess = false
		}
	}
	if allSuccess {
		return domain.EventJobsSucceeded, "", true
	}
	return "", "", false
}
