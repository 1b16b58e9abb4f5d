// Package provider implements the capability handlers: each one drives a
// single external control plane (DNS, hosting panel, mail server,
// hypervisor) over its JSON API. Handlers check for existing state before
// creating anything, so re-running a job after a partial failure does not
// create duplicates.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// client is a minimal JSON API client shared by the handlers. The timeout
// bounds every call; job-level requeue is the only retry mechanism above it.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

// get fetches a resource and reports its HTTP status. A 404 is not an
// error: handlers use it to decide whether the resource must be created.
func (c *client) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("GET %s: backend returned %d", path, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// post sends a JSON body and requires a 2xx response.
func (c *client) post(ctx context.Context, path string, body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: backend returned %d: %s", path, resp.StatusCode, string(detail))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
