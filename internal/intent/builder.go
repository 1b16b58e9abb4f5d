// Package intent builds provisioning intents: the fully resolved desired
// end-state for one purchased service instance.
package intent

import (
	"strings"

	"github.com/cirrohost/provisiond/internal/domain"
)

// Build projects an order item, its plan and the infrastructure config into
// an immutable intent. It is pure: no I/O, no clock, no randomness, so
// identical inputs always produce an identical intent. Defaults (backup
// tier, email tier, stack flags) come strictly from the plan; the order item
// contributes only its own fields (domain name, tenant, label).
func Build(item domain.OrderItem, plan domain.Plan, infra domain.InfraConfig) (domain.Intent, error) {
	if plan.Disabled {
		return domain.Intent{}, &domain.PlanDisabledError{Code: plan.Code}
	}

	out := domain.Intent{
		Kind:             plan.Kind,
		OrderID:          item.OrderID,
		TenantID:         item.TenantID,
		PlanCode:         plan.Code,
		CPUCores:         plan.CPUCores,
		MemoryMB:         plan.MemoryMB,
		DiskGB:           plan.DiskGB,
		Mailboxes:        plan.Mailboxes,
		StackFlags:       append([]string(nil), plan.StackFlags...),
		BackupTier:       plan.BackupTier,
		EmailTier:        plan.EmailTier,
		InternalHostname: internalHostname(item, infra),
	}

	if item.DomainName != "" {
		dedicated := plan.Kind == domain.KindPod
		cfg := &domain.DomainConfig{
			Zone:        strings.ToLower(item.DomainName),
			Nameservers: append([]string(nil), infra.Nameservers...),
			DedicatedIP: dedicated,
			PointMX:     plan.EmailTier != domain.EmailNone,
			MailHost:    infra.MailHost,
		}
		// Pods get their own address only once the hypervisor assigns it;
		// until then DNS targets the internal hostname. Shared hosting
		// always sits behind the shared address.
		if !dedicated {
			cfg.TargetIP = infra.SharedIP
		}
		out.Domain = cfg
	}

	return out, nil
}

// internalHostname derives the service's name inside the provider network.
// It must be deterministic: the label (or failing that the order id) is
// slugified and anchored under the configured suffix.
func internalHostname(item domain.OrderItem, infra domain.InfraConfig) string {
	base := slugify(item.Label)
	if base == "" {
		base = slugify(item.OrderID)
	}
	return base + "." + infra.InternalSuffix
}

// slugify lowercases and reduces a label to [a-z0-9-], collapsing runs of
// other characters into single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
