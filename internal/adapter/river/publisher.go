package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/cirrohost/provisiond/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// LifecycleJobArgs carries the data needed to process a subscription
// lifecycle event asynchronously. River serializes this as JSON into its job
// queue table. It includes a snapshot of the subscription at publish time,
// so the worker never needs to query the database.
type LifecycleJobArgs struct {
	Event      string `json:"event"`
	OrderID    string `json:"order_id"`
	TenantID   string `json:"tenant_id"`
	DomainName string `json:"domain_name"`
	Status     string `json:"status"`
	StatusNote string `json:"status_note"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (LifecycleJobArgs) Kind() string { return "subscription.lifecycle" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, sub domain.Subscription) error {
	_, err := p.client.Insert(ctx, LifecycleJobArgs{
		Event:      string(event),
		OrderID:    sub.OrderID,
		TenantID:   sub.TenantID,
		DomainName: sub.DomainName,
		Status:     string(sub.Status),
		StatusNote: sub.StatusNote,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing lifecycle job: %w", err)
	}
	return nil
}
