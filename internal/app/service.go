package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cirrohost/provisiond/internal/domain"
	"github.com/cirrohost/provisiond/internal/intent"
)

// PlanLookup resolves a plan code against the catalog.
type PlanLookup func(code string) (domain.Plan, error)

// ProvisioningService turns accepted orders into durable provisioning jobs
// and exposes the operator actions on them. Requeue delegates to the
// aggregator, which owns the subscription status field and the per-order
// serialization.
type ProvisioningService struct {
	store      domain.JobStore
	subs       domain.SubscriptionRepository
	orders     *Aggregator
	lookupPlan PlanLookup
	infra      domain.InfraConfig
}

// NewProvisioningService creates a service with the given adapters.
func NewProvisioningService(
	store domain.JobStore,
	subs domain.SubscriptionRepository,
	orders *Aggregator,
	lookupPlan PlanLookup,
	infra domain.InfraConfig,
) *ProvisioningService {
	return &ProvisioningService{
		store:      store,
		subs:       subs,
		orders:     orders,
		lookupPlan: lookupPlan,
		infra:      infra,
	}
}

// Enqueue builds intents for every item of an accepted order and persists
// one job per required capability, all in one batch. Build errors (unknown
// or disabled plan) surface before any write happens.
func (s *ProvisioningService) Enqueue(ctx context.Context, orderID string, items []domain.OrderItem) ([]domain.Job, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order %s has no items", orderID)
	}

	intents := make([]domain.Intent, 0, len(items))
	for _, item := range items {
		item.OrderID = orderID

		plan, err := s.lookupPlan(item.PlanCode)
		if err != nil {
			return nil, err
		}

		in, err := intent.Build(item, plan, s.infra)
		if err != nil {
			return nil, err
		}
		intents = append(intents, in)
	}

	if err := s.ensureSubscription(ctx, orderID, items[0]); err != nil {
		return nil, err
	}

	var jobs []domain.Job
	for _, in := range intents {
		for _, jobType := range in.Capabilities() {
			id, err := generateID()
			if err != nil {
				return nil, fmt.Errorf("generating job id: %w", err)
			}
			jobs = append(jobs, domain.NewJob(id, jobType, in))
		}
	}

	if err := s.store.CreateBatch(ctx, jobs); err != nil {
		return nil, fmt.Errorf("creating jobs for order %s: %w", orderID, err)
	}

	return jobs, nil
}

// ensureSubscription creates the subscription record if checkout has not
// already done so.
func (s *ProvisioningService) ensureSubscription(ctx context.Context, orderID string, item domain.OrderItem) error {
	_, err := s.subs.GetByOrderID(ctx, orderID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		return err
	}

	sub := domain.NewSubscription(orderID, item.TenantID, item.DomainName)
	if err := s.subs.Create(ctx, sub); err != nil {
		return fmt.Errorf("creating subscription for order %s: %w", orderID, err)
	}
	return nil
}

// GetJob returns a job by its unique identifier.
func (s *ProvisioningService) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return s.store.GetByID(ctx, id)
}

// ListJobs returns jobs matching the given filter.
func (s *ProvisioningService) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	return s.store.List(ctx, filter)
}

// GetSubscription returns the subscription owning an order.
func (s *ProvisioningService) GetSubscription(ctx context.Context, orderID string) (domain.Subscription, error) {
	return s.subs.GetByOrderID(ctx, orderID)
}

// Requeue resets a failed job to pending and moves its subscription back to
// provisioning so the next completion can re-decide activation.
func (s *ProvisioningService) Requeue(ctx context.Context, jobID string) (domain.Job, error) {
	if err := s.orders.RequeueJob(ctx, jobID); err != nil {
		return domain.Job{}, err
	}
	return s.store.GetByID(ctx, jobID)
}

// ClearFailed deletes all failed jobs and returns how many were removed.
func (s *ProvisioningService) ClearFailed(ctx context.Context) (int, error) {
	return s.store.DeleteFailed(ctx)
}
