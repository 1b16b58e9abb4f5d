package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository on the
// same SQLite database as the job store.
type SubscriptionRepository struct {
	db *sql.DB
}

// Compile-time check: SubscriptionRepository implements the domain port.
var _ domain.SubscriptionRepository = (*SubscriptionRepository)(nil)

// NewSubscriptionRepository wraps an already-migrated database connection.
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub domain.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (order_id, tenant_id, domain_name, status, status_note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.OrderID, sub.TenantID, sub.DomainName, string(sub.Status), sub.StatusNote,
		sub.CreatedAt.Format(timeFormat),
		sub.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByOrderID(ctx context.Context, orderID string) (domain.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT order_id, tenant_id, domain_name, status, status_note, created_at, updated_at
		 FROM subscriptions WHERE order_id = ?`, orderID,
	)

	var s domain.Subscription
	var status, createdAt, updatedAt string

	err := row.Scan(&s.OrderID, &s.TenantID, &s.DomainName, &status, &s.StatusNote, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, domain.ErrSubscriptionNotFound
		}
		return domain.Subscription{}, fmt.Errorf("scanning subscription: %w", err)
	}

	s.Status = domain.Status(status)
	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return s, nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub domain.Subscription) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET status = ?, status_note = ?, updated_at = ?
		 WHERE order_id = ?`,
		string(sub.Status), sub.StatusNote,
		time.Now().UTC().Format(timeFormat), sub.OrderID,
	)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrSubscriptionNotFound
	}

	return nil
}
