package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// HostingHandler creates the shared-hosting account on the control panel.
type HostingHandler struct {
	api *client
}

// Compile-time check: HostingHandler implements domain.Handler.
var _ domain.Handler = (*HostingHandler)(nil)

// NewHostingHandler creates a handler against the hosting panel API.
func NewHostingHandler(baseURL string, timeout time.Duration) *HostingHandler {
	return &HostingHandler{api: newClient(baseURL, timeout)}
}

type accountRequest struct {
	Hostname   string   `json:"hostname"`
	TenantID   string   `json:"tenant_id"`
	DomainName string   `json:"domain_name,omitempty"`
	CPUCores   int      `json:"cpu_cores"`
	MemoryMB   int      `json:"memory_mb"`
	DiskGB     int      `json:"disk_gb"`
	StackFlags []string `json:"stack_flags"`
	BackupTier string   `json:"backup_tier"`
}

// Provision creates the hosting account unless the panel already knows it.
func (h *HostingHandler) Provision(ctx context.Context, in domain.Intent) error {
	status, err := h.api.get(ctx, "/accounts/"+in.InternalHostname)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		// Account already exists; a re-run must not create a duplicate.
		return nil
	}

	req := accountRequest{
		Hostname:   in.InternalHostname,
		TenantID:   in.TenantID,
		CPUCores:   in.CPUCores,
		MemoryMB:   in.MemoryMB,
		DiskGB:     in.DiskGB,
		StackFlags: in.StackFlags,
		BackupTier: string(in.BackupTier),
	}
	if in.Domain != nil {
		req.DomainName = in.Domain.Zone
	}

	if err := h.api.post(ctx, "/accounts", req); err != nil {
		return fmt.Errorf("creating hosting account %s: %w", in.InternalHostname, err)
	}
	return nil
}
