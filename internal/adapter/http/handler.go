package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cirrohost/provisiond/internal/app"
	"github.com/cirrohost/provisiond/internal/domain"
)

// JobResponse is the API representation of a provisioning job.
type JobResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	OrderID     string `json:"order_id" doc:"Owning order"`
	TenantID    string `json:"tenant_id" doc:"Owning tenant"`
	Type        string `json:"type" doc:"Capability this job provisions"`
	Status      string `json:"status" doc:"Lifecycle state"`
	Attempts    int    `json:"attempts" doc:"Cumulative execution attempts"`
	LastError   string `json:"last_error,omitempty" doc:"Message from the most recent failure"`
	ClaimedBy   string `json:"claimed_by,omitempty" doc:"Worker that last claimed the job"`
	StartedAt   string `json:"started_at,omitempty" doc:"Last claim timestamp (ISO 8601)"`
	CompletedAt string `json:"completed_at,omitempty" doc:"Completion timestamp (ISO 8601)"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toJobResponse(j domain.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		OrderID:     j.OrderID,
		TenantID:    j.TenantID,
		Type:        string(j.Type),
		Status:      string(j.Status),
		Attempts:    j.Attempts,
		LastError:   j.LastError,
		ClaimedBy:   j.ClaimedBy,
		StartedAt:   formatTime(j.StartedAt),
		CompletedAt: formatTime(j.CompletedAt),
		CreatedAt:   j.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z")
}

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	OrderID    string `json:"order_id" doc:"Owning order"`
	TenantID   string `json:"tenant_id" doc:"Owning tenant"`
	DomainName string `json:"domain_name,omitempty" doc:"Customer domain, if any"`
	Status     string `json:"status" doc:"Activation state"`
	StatusNote string `json:"status_note,omitempty" doc:"Failure detail when status is failed"`
	CreatedAt  string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt  string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toSubscriptionResponse(s domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		OrderID:    s.OrderID,
		TenantID:   s.TenantID,
		DomainName: s.DomainName,
		Status:     string(s.Status),
		StatusNote: s.StatusNote,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// --- Enqueue order ---

type OrderItemInput struct {
	TenantID   string `json:"tenant_id" minLength:"1" doc:"Owning tenant"`
	PlanCode   string `json:"plan_code" minLength:"1" doc:"Catalog plan code"`
	DomainName string `json:"domain_name,omitempty" doc:"Customer domain to configure, empty for internal hostname only"`
	Label      string `json:"label,omitempty" doc:"Customer-chosen name for the service instance"`
}

type EnqueueOrderInput struct {
	Body struct {
		OrderID string           `json:"order_id" minLength:"1" doc:"Accepted order to provision"`
		Items   []OrderItemInput `json:"items" minItems:"1" doc:"Purchased service instances"`
	}
}

type EnqueueOrderOutput struct {
	Body []JobResponse
}

// --- Get job ---

type GetJobInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type GetJobOutput struct {
	Body JobResponse
}

// --- List jobs ---

type ListJobsInput struct {
	OrderID string `query:"order_id" required:"false" doc:"Filter by order"`
	Status  string `query:"status" required:"false" doc:"Filter by status"`
	Limit   int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset  int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListJobsOutput struct {
	Body []JobResponse
}

// --- Retry job ---

type RetryJobInput struct {
	ID string `path:"id" doc:"Job ID"`
}

type RetryJobOutput struct {
	Body JobResponse
}

// --- Clear failed jobs ---

type ClearFailedOutput struct {
	Body struct {
		Deleted int `json:"deleted" doc:"Number of failed jobs removed"`
	}
}

// --- Get subscription ---

type GetSubscriptionInput struct {
	OrderID string `path:"orderID" doc:"Order ID"`
}

type GetSubscriptionOutput struct {
	Body SubscriptionResponse
}

// Register adds all provisioning API routes to the Huma API.
func Register(api huma.API, svc *app.ProvisioningService) {
	huma.Register(api, huma.Operation{
		OperationID: "enqueue-order",
		Method:      http.MethodPost,
		Path:        "/api/v1/provisioning",
		Summary:     "Enqueue provisioning jobs for an accepted order",
		Tags:        []string{"Provisioning"},
	}, func(ctx context.Context, input *EnqueueOrderInput) (*EnqueueOrderOutput, error) {
		items := make([]domain.OrderItem, len(input.Body.Items))
		for i, it := range input.Body.Items {
			items[i] = domain.OrderItem{
				TenantID:   it.TenantID,
				PlanCode:   it.PlanCode,
				DomainName: it.DomainName,
				Label:      it.Label,
			}
		}

		jobs, err := svc.Enqueue(ctx, input.Body.OrderID, items)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]JobResponse, len(jobs))
		for i, j := range jobs {
			resp[i] = toJobResponse(j)
		}
		return &EnqueueOrderOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs/{id}",
		Summary:     "Get a job by ID",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
		job, err := svc.GetJob(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetJobOutput{Body: toJobResponse(job)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/v1/jobs",
		Summary:     "List jobs",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		filter := domain.JobFilter{
			OrderID: input.OrderID,
			Limit:   input.Limit,
			Offset:  input.Offset,
		}
		if input.Status != "" {
			s := domain.JobStatus(input.Status)
			filter.Status = &s
		}

		jobs, err := svc.ListJobs(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]JobResponse, len(jobs))
		for i, j := range jobs {
			resp[i] = toJobResponse(j)
		}
		return &ListJobsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retry-job",
		Method:      http.MethodPost,
		Path:        "/api/v1/jobs/{id}/retry",
		Summary:     "Requeue a failed job",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *RetryJobInput) (*RetryJobOutput, error) {
		job, err := svc.Requeue(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RetryJobOutput{Body: toJobResponse(job)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-failed-jobs",
		Method:      http.MethodDelete,
		Path:        "/api/v1/jobs/failed",
		Summary:     "Delete all failed jobs",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, _ *struct{}) (*ClearFailedOutput, error) {
		n, err := svc.ClearFailed(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &ClearFailedOutput{}
		out.Body.Deleted = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subscription",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscriptions/{orderID}",
		Summary:     "Get the subscription owning an order",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *GetSubscriptionInput) (*GetSubscriptionOutput, error) {
		sub, err := svc.GetSubscription(ctx, input.OrderID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetSubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrJobNotFound) {
		return huma.Error404NotFound("job not found")
	}
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return huma.Error404NotFound("subscription not found")
	}

	var planErr *domain.UnknownPlanError
	if errors.As(err, &planErr) {
		return huma.Error422UnprocessableEntity(planErr.Error())
	}

	var disabledErr *domain.PlanDisabledError
	if errors.As(err, &disabledErr) {
		return huma.Error422UnprocessableEntity(disabledErr.Error())
	}

	var stateErr *domain.JobStateError
	if errors.As(err, &stateErr) {
		return huma.Error409Conflict(stateErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
