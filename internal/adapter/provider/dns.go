package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// DNSHandler creates the zone and seed records on the authoritative DNS
// server.
type DNSHandler struct {
	api *client
}

// Compile-time check: DNSHandler implements domain.Handler.
var _ domain.Handler = (*DNSHandler)(nil)

// NewDNSHandler creates a handler against the DNS control API.
func NewDNSHandler(baseURL string, timeout time.Duration) *DNSHandler {
	return &DNSHandler{api: newClient(baseURL, timeout)}
}

type zoneRequest struct {
	Name        string   `json:"name"`
	Nameservers []string `json:"nameservers"`
}

type recordRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Prio    int    `json:"prio,omitempty"`
}

// Provision ensures the zone exists and upserts the service records. Record
// upserts are idempotent on the DNS side, so only zone creation needs the
// existence check.
func (h *DNSHandler) Provision(ctx context.Context, in domain.Intent) error {
	cfg := in.Domain
	if cfg == nil {
		return nil
	}

	status, err := h.api.get(ctx, "/zones/"+cfg.Zone)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		err := h.api.post(ctx, "/zones", zoneRequest{
			Name:        cfg.Zone,
			Nameservers: cfg.Nameservers,
		})
		if err != nil {
			return fmt.Errorf("creating zone %s: %w", cfg.Zone, err)
		}
	}

	records := []recordRequest{}
	if cfg.TargetIP != "" {
		records = append(records,
			recordRequest{Name: cfg.Zone, Type: "A", Content: cfg.TargetIP},
			recordRequest{Name: "www." + cfg.Zone, Type: "A", Content: cfg.TargetIP},
		)
	} else {
		// Dedicated IP not assigned yet: only www gets a CNAME to the
		// internal hostname (a CNAME at the apex is not valid). The apex A
		// record lands when the hypervisor reports the address.
		records = append(records,
			recordRequest{Name: "www." + cfg.Zone, Type: "CNAME", Content: in.InternalHostname},
		)
	}
	if cfg.PointMX {
		records = append(records,
			recordRequest{Name: cfg.Zone, Type: "MX", Content: cfg.MailHost, Prio: 10},
			recordRequest{Name: cfg.Zone, Type: "TXT", Content: "v=spf1 mx a:" + cfg.MailHost + " ~all"},
		)
	}

	for _, rec := range records {
		if err := h.api.post(ctx, "/zones/"+cfg.Zone+"/records", rec); err != nil {
			return fmt.Errorf("upserting %s record for %s: %w", rec.Type, cfg.Zone, err)
		}
	}

	return nil
}
