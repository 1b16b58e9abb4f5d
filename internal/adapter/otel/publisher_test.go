package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"

	adapter "github.com/cirrohost/provisiond/internal/adapter/otel"
	"github.com/cirrohost/provisiond/internal/domain"
)

type mockPublisher struct {
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.Event, _ domain.Subscription) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestTracingPublisher_Publish_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := &mockPublisher{}
	pub := adapter.NewTracingPublisher(inner)

	sub := domain.NewSubscription("ord-1", "ten-1", "example.com")
	if err := pub.Publish(context.Background(), domain.EventJobsSucceeded, sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inner.events) != 1 {
		t.Fatalf("got %d published events, want 1", len(inner.events))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "EventPublisher.Publish" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "EventPublisher.Publish")
	}

	assertAttribute(t, spans[0], "event.type", "jobs_succeeded")
	assertAttribute(t, spans[0], "order.id", "ord-1")
}

func TestTracingPublisher_Publish_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	wantErr := errors.New("queue unavailable")
	pub := adapter.NewTracingPublisher(&mockPublisher{err: wantErr})

	sub := domain.NewSubscription("ord-1", "ten-1", "example.com")
	err := pub.Publish(context.Background(), domain.EventJobFailed, sub)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}

	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}
