package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/cirrohost/provisiond/internal/adapter/fsm"
	adapter "github.com/cirrohost/provisiond/internal/adapter/http"
	"github.com/cirrohost/provisiond/internal/adapter/sqlite"
	"github.com/cirrohost/provisiond/internal/app"
	"github.com/cirrohost/provisiond/internal/catalog"
	"github.com/cirrohost/provisiond/internal/domain"
)

// noopPublisher is a no-op EventPublisher for tests.
type noopPublisher struct{}

func (p *noopPublisher) Publish(_ context.Context, _ domain.Event, _ domain.Subscription) error {
	return nil
}

var testInfra = domain.InfraConfig{
	DNSHost:        "dns.test.internal",
	MailHost:       "mail.test.internal",
	HypervisorHost: "hv.test.internal",
	SharedIP:       "203.0.113.10",
	Nameservers:    []string{"ns1.test.internal", "ns2.test.internal"},
	InternalSuffix: "svc.test.internal",
}

// newTestServer creates a full-stack httptest.Server with SQLite in-memory.
// The worker pool is not running, so enqueued jobs stay pending.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	subs := sqlite.NewSubscriptionRepository(store.DB())
	agg := app.NewAggregator(store, subs, fsm.New(), &noopPublisher{}, nil)
	svc := app.NewProvisioningService(store, subs, agg, catalog.Lookup, testInfra)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("provisiond", "0.1.0"))
	adapter.Register(api, svc)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

// doRequest performs an HTTP request with context (avoids noctx linter).
func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}

	return resp
}

// mustEnqueue enqueues an order via the API and returns the created jobs.
func mustEnqueue(t *testing.T, srv *httptest.Server, orderID, planCode, domainName string) []adapter.JobResponse {
	t.Helper()

	body := fmt.Sprintf(`{"order_id":%q,"items":[{"tenant_id":"ten-1","plan_code":%q,"domain_name":%q,"label":"site"}]}`,
		orderID, planCode, domainName)
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/provisioning", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("enqueue order: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var jobs []adapter.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}

	return jobs
}

// --- Enqueue ---

func TestEnqueue(t *testing.T) {
	srv := newTestServer(t)
	jobs := mustEnqueue(t, srv, "ord-1", "web-basic", "example.com")

	// web-basic with a domain and standard email needs dns, hosting and mail.
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}

	types := make(map[string]bool)
	for _, j := range jobs {
		types[j.Type] = true
		if j.Status != "pending" {
			t.Errorf("job %s status = %q, want %q", j.ID, j.Status, "pending")
		}
		if j.OrderID != "ord-1" {
			t.Errorf("job %s order = %q, want %q", j.ID, j.OrderID, "ord-1")
		}
		if j.CreatedAt == "" {
			t.Error("CreatedAt should not be empty")
		}
	}
	for _, want := range []string{"provision_dns", "provision_hosting", "provision_mail"} {
		if !types[want] {
			t.Errorf("missing job type %q", want)
		}
	}
}

func TestEnqueue_PodWithoutDomain(t *testing.T) {
	srv := newTestServer(t)
	jobs := mustEnqueue(t, srv, "ord-2", "pod-s", "")

	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Type != "provision_pod" {
		t.Errorf("Type = %q, want %q", jobs[0].Type, "provision_pod")
	}
}

func TestEnqueue_UnknownPlan(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/provisioning",
		`{"order_id":"ord-3","items":[{"tenant_id":"ten-1","plan_code":"nonexistent"}]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestEnqueue_DisabledPlan(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/provisioning",
		`{"order_id":"ord-4","items":[{"tenant_id":"ten-1","plan_code":"web-legacy"}]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestEnqueue_NoItems(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/provisioning",
		`{"order_id":"ord-5","items":[]}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}
}

// --- Get job ---

func TestGetJob(t *testing.T) {
	srv := newTestServer(t)
	jobs := mustEnqueue(t, srv, "ord-1", "pod-s", "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/jobs/"+jobs[0].ID, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var job adapter.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if job.ID != jobs[0].ID {
		t.Errorf("ID = %q, want %q", job.ID, jobs[0].ID)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/jobs/nonexistent", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- List jobs ---

func TestListJobs(t *testing.T) {
	srv := newTestServer(t)
	mustEnqueue(t, srv, "ord-1", "pod-s", "")
	mustEnqueue(t, srv, "ord-2", "pod-s", "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/jobs", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var jobs []adapter.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(jobs) != 2 {
		t.Errorf("got %d jobs, want 2", len(jobs))
	}
}

func TestListJobs_FilterByOrder(t *testing.T) {
	srv := newTestServer(t)
	mustEnqueue(t, srv, "ord-1", "pod-s", "")
	mustEnqueue(t, srv, "ord-2", "web-basic", "example.com")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/jobs?order_id=ord-1", "")
	defer resp.Body.Close()

	var jobs []adapter.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].OrderID != "ord-1" {
		t.Errorf("OrderID = %q, want %q", jobs[0].OrderID, "ord-1")
	}
}

func TestListJobs_FilterByStatus(t *testing.T) {
	srv := newTestServer(t)
	mustEnqueue(t, srv, "ord-1", "pod-s", "")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/jobs?status=failed", "")
	defer resp.Body.Close()

	var jobs []adapter.JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(jobs) != 0 {
		t.Errorf("got %d jobs, want 0", len(jobs))
	}
}

// --- Retry ---

func TestRetryJob_NotFailed(t *testing.T) {
	srv := newTestServer(t)
	jobs := mustEnqueue(t, srv, "ord-1", "pod-s", "")

	// The job is still pending, so a retry must be rejected.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/jobs/"+jobs[0].ID+"/retry", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestRetryJob_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/jobs/nonexistent/retry", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- Clear failed ---

func TestClearFailed_Empty(t *testing.T) {
	srv := newTestServer(t)
	mustEnqueue(t, srv, "ord-1", "pod-s", "")

	resp := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/jobs/failed", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", out.Deleted)
	}
}

// --- Subscription ---

func TestGetSubscription(t *testing.T) {
	srv := newTestServer(t)
	mustEnqueue(t, srv, "ord-1", "web-basic", "example.com")

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions/ord-1", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var sub adapter.SubscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if sub.OrderID != "ord-1" {
		t.Errorf("OrderID = %q, want %q", sub.OrderID, "ord-1")
	}
	if sub.Status != "provisioning" {
		t.Errorf("Status = %q, want %q", sub.Status, "provisioning")
	}
	if sub.DomainName != "example.com" {
		t.Errorf("DomainName = %q, want %q", sub.DomainName, "example.com")
	}
}

func TestGetSubscription_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/subscriptions/nonexistent", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
