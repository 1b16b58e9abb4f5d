package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cirrohost/provisiond/internal/adapter/sqlite"
	"github.com/cirrohost/provisiond/internal/domain"
)

func newTestSubRepo(t *testing.T) *sqlite.SubscriptionRepository {
	t.Helper()
	store := newTestStore(t)
	return sqlite.NewSubscriptionRepository(store.DB())
}

func TestSubscription_CreateAndGet(t *testing.T) {
	repo := newTestSubRepo(t)
	ctx := context.Background()

	sub := domain.NewSubscription("ord-1", "ten-1", "example.com")
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByOrderID(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetByOrderID failed: %v", err)
	}
	if got.Status != domain.StatusProvisioning {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusProvisioning)
	}
	if got.DomainName != "example.com" {
		t.Errorf("DomainName = %q, want %q", got.DomainName, "example.com")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestSubscription_GetNotFound(t *testing.T) {
	repo := newTestSubRepo(t)

	_, err := repo.GetByOrderID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestSubscription_Update(t *testing.T) {
	repo := newTestSubRepo(t)
	ctx := context.Background()

	sub := domain.NewSubscription("ord-1", "ten-1", "")
	if err := repo.Create(ctx, sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sub.Status = domain.StatusFailed
	sub.StatusNote = "provision_hosting: disk allocation error"
	if err := repo.Update(ctx, sub); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, _ := repo.GetByOrderID(ctx, "ord-1")
	if got.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusFailed)
	}
	if got.StatusNote != sub.StatusNote {
		t.Errorf("StatusNote = %q, want %q", got.StatusNote, sub.StatusNote)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Error("UpdatedAt should not be before CreatedAt")
	}
}

func TestSubscription_UpdateNotFound(t *testing.T) {
	repo := newTestSubRepo(t)

	sub := domain.NewSubscription("nonexistent", "ten-1", "")
	err := repo.Update(context.Background(), sub)
	if !errors.Is(err, domain.ErrSubscriptionNotFound) {
		t.Errorf("expected ErrSubscriptionNotFound, got %v", err)
	}
}
