package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cirrohost/provisiond/internal/domain"
)

const tracerName = "github.com/cirrohost/provisiond/internal/adapter/otel"

// TracingJobStore wraps a domain.JobStore with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingJobStore struct {
	next   domain.JobStore
	tracer trace.Tracer
}

// Compile-time check: TracingJobStore implements domain.JobStore.
var _ domain.JobStore = (*TracingJobStore)(nil)

// NewTracingJobStore creates a tracing decorator around the given store.
func NewTracingJobStore(next domain.JobStore) *TracingJobStore {
	return &TracingJobStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingJobStore) CreateBatch(ctx context.Context, jobs []domain.Job) error {
	ctx, span := s.tracer.Start(ctx, "JobStore.CreateBatch",
		trace.WithAttributes(attribute.Int("job.count", len(jobs))),
	)
	defer span.End()

	if len(jobs) > 0 {
		span.SetAttributes(attribute.String("order.id", jobs[0].OrderID))
	}

	err := s.next.CreateBatch(ctx, jobs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *TracingJobStore) ClaimNext(ctx context.Context, workerID string) (domain.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobStore.ClaimNext",
		trace.WithAttributes(attribute.String("worker.id", workerID)),
	)
	defer span.End()

	job, err := s.next.ClaimNext(ctx, workerID)
	if err != nil {
		// ErrNoClaimableJob is the idle-poll case, not a failure.
		if err != domain.ErrNoClaimableJob {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return job, err
	}

	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.type", string(job.Type)),
		attribute.Int("job.attempts", job.Attempts),
	)
	return job, nil
}

func (s *TracingJobStore) Complete(ctx context.Context, jobID string, outcome domain.Outcome) error {
	ctx, span := s.tracer.Start(ctx, "JobStore.Complete",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.Bool("job.success", outcome.Success),
		),
	)
	defer span.End()

	err := s.next.Complete(ctx, jobID, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *TracingJobStore) Requeue(ctx context.Context, jobID string) error {
	ctx, span := s.tracer.Start(ctx, "JobStore.Requeue",
		trace.WithAttributes(attribute.String("job.id", jobID)),
	)
	defer span.End()

	err := s.next.Requeue(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *TracingJobStore) GetByID(ctx context.Context, jobID string) (domain.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobStore.GetByID",
		trace.WithAttributes(attribute.String("job.id", jobID)),
	)
	defer span.End()

	job, err := s.next.GetByID(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return job, err
}

func (s *TracingJobStore) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobStore.List")
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.OrderID != "" {
		span.SetAttributes(attribute.String("filter.order_id", filter.OrderID))
	}

	jobs, err := s.next.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(jobs)))
	}
	return jobs, err
}

func (s *TracingJobStore) ListByOrder(ctx context.Context, orderID string) ([]domain.Job, error) {
	ctx, span := s.tracer.Start(ctx, "JobStore.ListByOrder",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer span.End()

	jobs, err := s.next.ListByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", len(jobs)))
	}
	return jobs, err
}

func (s *TracingJobStore) DeleteFailed(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "JobStore.DeleteFailed")
	defer span.End()

	n, err := s.next.DeleteFailed(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", n))
	}
	return n, err
}
