package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cirrohost/provisiond/internal/domain"
)

// MailHandler provisions the mail domain and its mailbox allowance on the
// central mail server.
type MailHandler struct {
	api *client
}

// Compile-time check: MailHandler implements domain.Handler.
var _ domain.Handler = (*MailHandler)(nil)

// NewMailHandler creates a handler against the mail server API.
func NewMailHandler(baseURL string, timeout time.Duration) *MailHandler {
	return &MailHandler{api: newClient(baseURL, timeout)}
}

type mailDomainRequest struct {
	Domain    string `json:"domain"`
	TenantID  string `json:"tenant_id"`
	Tier      string `json:"tier"`
	Mailboxes int    `json:"mailboxes"`
}

// Provision registers the mail domain unless it already exists. Without an
// ordered domain the account mail lives on the internal hostname.
func (h *MailHandler) Provision(ctx context.Context, in domain.Intent) error {
	if in.EmailTier == domain.EmailNone {
		return nil
	}

	mailDomain := in.InternalHostname
	if in.Domain != nil {
		mailDomain = in.Domain.Zone
	}

	status, err := h.api.get(ctx, "/domains/"+mailDomain)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		return nil
	}

	err = h.api.post(ctx, "/domains", mailDomainRequest{
		Domain:    mailDomain,
		TenantID:  in.TenantID,
		Tier:      string(in.EmailTier),
		Mailboxes: in.Mailboxes,
	})
	if err != nil {
		return fmt.Errorf("creating mail domain %s: %w", mailDomain, err)
	}
	return nil
}
