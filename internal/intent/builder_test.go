package intent_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cirrohost/provisiond/internal/domain"
	"github.com/cirrohost/provisiond/internal/intent"
)

var testInfra = domain.InfraConfig{
	DNSHost:        "ns1.example.net",
	MailHost:       "mail.example.net",
	HypervisorHost: "hv1.example.net",
	SharedIP:       "203.0.113.10",
	Nameservers:    []string{"ns1.example.net", "ns2.example.net"},
	InternalSuffix: "srv.example.net",
}

func hostingPlan() domain.Plan {
	return domain.Plan{
		Code: "web-basic", Name: "Web Basic", Kind: domain.KindHosting,
		CPUCores: 1, MemoryMB: 1024, DiskGB: 10, Mailboxes: 5,
		StackFlags: []string{"php", "mysql"},
		BackupTier: domain.BackupDaily, EmailTier: domain.EmailStandard,
	}
}

func podPlan() domain.Plan {
	return domain.Plan{
		Code: "pod-s", Name: "Cloud Pod S", Kind: domain.KindPod,
		CPUCores: 2, MemoryMB: 2048, DiskGB: 40,
		StackFlags: []string{"ssh"},
		BackupTier: domain.BackupDaily, EmailTier: domain.EmailNone,
	}
}

func TestBuild_Hosting(t *testing.T) {
	item := domain.OrderItem{
		OrderID:    "ord-1",
		TenantID:   "ten-1",
		PlanCode:   "web-basic",
		DomainName: "Example.COM",
		Label:      "Acme Site",
	}

	in, err := intent.Build(item, hostingPlan(), testInfra)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if in.Kind != domain.KindHosting {
		t.Errorf("Kind = %q, want %q", in.Kind, domain.KindHosting)
	}
	if in.CPUCores != 1 || in.MemoryMB != 1024 || in.DiskGB != 10 {
		t.Errorf("sizing = %d/%d/%d, want 1/1024/10", in.CPUCores, in.MemoryMB, in.DiskGB)
	}
	if in.BackupTier != domain.BackupDaily {
		t.Errorf("BackupTier = %q, want %q", in.BackupTier, domain.BackupDaily)
	}
	if in.InternalHostname != "acme-site.srv.example.net" {
		t.Errorf("InternalHostname = %q, want %q", in.InternalHostname, "acme-site.srv.example.net")
	}

	if in.Domain == nil {
		t.Fatal("Domain config should be present")
	}
	if in.Domain.Zone != "example.com" {
		t.Errorf("Zone = %q, want %q (lowercased)", in.Domain.Zone, "example.com")
	}
	if in.Domain.DedicatedIP {
		t.Error("shared hosting should not get a dedicated IP")
	}
	if in.Domain.TargetIP != testInfra.SharedIP {
		t.Errorf("TargetIP = %q, want shared IP %q", in.Domain.TargetIP, testInfra.SharedIP)
	}
	if !in.Domain.PointMX {
		t.Error("PointMX should be set for a plan with an email tier")
	}
	if in.Domain.MailHost != "mail.example.net" {
		t.Errorf("MailHost = %q, want %q", in.Domain.MailHost, "mail.example.net")
	}
}

func TestBuild_PodWithDomain(t *testing.T) {
	item := domain.OrderItem{
		OrderID:    "ord-2",
		TenantID:   "ten-1",
		PlanCode:   "pod-s",
		DomainName: "pods.example.org",
	}

	in, err := intent.Build(item, podPlan(), testInfra)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !in.Domain.DedicatedIP {
		t.Error("pod plans should request a dedicated IP")
	}
	if in.Domain.TargetIP != "" {
		t.Errorf("TargetIP = %q, want empty until the hypervisor assigns one", in.Domain.TargetIP)
	}
	if in.Domain.PointMX {
		t.Error("PointMX should not be set without an email tier")
	}
	// No label: the order id anchors the internal hostname.
	if in.InternalHostname != "ord-2.srv.example.net" {
		t.Errorf("InternalHostname = %q, want %q", in.InternalHostname, "ord-2.srv.example.net")
	}
}

func TestBuild_NoDomain(t *testing.T) {
	item := domain.OrderItem{OrderID: "ord-3", TenantID: "ten-2", PlanCode: "web-basic"}

	in, err := intent.Build(item, hostingPlan(), testInfra)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if in.Domain != nil {
		t.Error("Domain config should be absent when no domain was ordered")
	}
}

func TestBuild_DisabledPlan(t *testing.T) {
	plan := hostingPlan()
	plan.Code = "web-legacy"
	plan.Disabled = true

	_, err := intent.Build(domain.OrderItem{OrderID: "ord-4"}, plan, testInfra)
	var disabledErr *domain.PlanDisabledError
	if !errors.As(err, &disabledErr) {
		t.Fatalf("expected PlanDisabledError, got %v", err)
	}
	if disabledErr.Code != "web-legacy" {
		t.Errorf("code = %q, want %q", disabledErr.Code, "web-legacy")
	}
}

// Building twice from identical inputs must yield structurally equal intents.
func TestBuild_Deterministic(t *testing.T) {
	item := domain.OrderItem{
		OrderID:    "ord-5",
		TenantID:   "ten-3",
		PlanCode:   "web-basic",
		DomainName: "repeat.example.com",
		Label:      "Repeat Site",
	}

	first, err := intent.Build(item, hostingPlan(), testInfra)
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	second, err := intent.Build(item, hostingPlan(), testInfra)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("intents differ:\n first: %+v\nsecond: %+v", first, second)
	}
}

func TestBuild_DoesNotAliasPlanSlices(t *testing.T) {
	plan := hostingPlan()
	in, err := intent.Build(domain.OrderItem{OrderID: "ord-6"}, plan, testInfra)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	plan.StackFlags[0] = "mutated"
	if in.StackFlags[0] == "mutated" {
		t.Error("intent should snapshot plan stack flags, not alias them")
	}
}
