package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// PodHandler clones and configures a compute pod on the hypervisor host.
type PodHandler struct {
	api *client
}

// Compile-time check: PodHandler implements domain.Handler.
var _ domain.Handler = (*PodHandler)(nil)

// NewPodHandler creates a handler against the hypervisor API.
func NewPodHandler(baseURL string, timeout time.Duration) *PodHandler {
	return &PodHandler{api: newClient(baseURL, timeout)}
}

type cloneRequest struct {
	Hostname   string   `json:"hostname"`
	TenantID   string   `json:"tenant_id"`
	CPUCores   int      `json:"cpu_cores"`
	MemoryMB   int      `json:"memory_mb"`
	DiskGB     int      `json:"disk_gb"`
	StackFlags []string `json:"stack_flags"`
	BackupTier string   `json:"backup_tier"`
}

// Provision clones the pod template unless a pod with this hostname is
// already present on the hypervisor.
func (h *PodHandler) Provision(ctx context.Context, in domain.Intent) error {
	status, err := h.api.get(ctx, "/pods/"+in.InternalHostname)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		return nil
	}

	err = h.api.post(ctx, "/pods/clone", cloneRequest{
		Hostname:   in.InternalHostname,
		TenantID:   in.TenantID,
		CPUCores:   in.CPUCores,
		MemoryMB:   in.MemoryMB,
		DiskGB:     in.DiskGB,
		StackFlags: in.StackFlags,
		BackupTier: string(in.BackupTier),
	})
	if err != nil {
		return fmt.Errorf("cloning pod %s: %w", in.InternalHostname, err)
	}
	return nil
}
