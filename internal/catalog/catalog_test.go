package catalog_test

import (
	"errors"
	"testing"

	"github.com/cirrohost/provisiond/internal/catalog"
	"github.com/cirrohost/provisiond/internal/domain"
)

func TestLookup_Known(t *testing.T) {
	plan, err := catalog.Lookup("web-basic")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if plan.Kind != domain.KindHosting {
		t.Errorf("Kind = %q, want %q", plan.Kind, domain.KindHosting)
	}
	if plan.Disabled {
		t.Error("web-basic should not be disabled")
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := catalog.Lookup("does-not-exist")
	var unknownErr *domain.UnknownPlanError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownPlanError, got %v", err)
	}
	if unknownErr.Code != "does-not-exist" {
		t.Errorf("code = %q, want %q", unknownErr.Code, "does-not-exist")
	}
}

func TestLookup_DisabledStillReturned(t *testing.T) {
	plan, err := catalog.Lookup("web-legacy")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !plan.Disabled {
		t.Error("web-legacy should be disabled")
	}
}

func TestCodes_CoverAllPlans(t *testing.T) {
	codes := catalog.Codes()
	if len(codes) == 0 {
		t.Fatal("Codes returned nothing")
	}
	for _, code := range codes {
		if _, err := catalog.Lookup(code); err != nil {
			t.Errorf("Lookup(%q) failed: %v", code, err)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := catalog.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	if cfg.PollIntervalMS != 5000 {
		t.Errorf("PollIntervalMS = %d, want 5000", cfg.PollIntervalMS)
	}

	infra := cfg.Infra()
	if len(infra.Nameservers) != 2 {
		t.Errorf("got %d nameservers, want 2", len(infra.Nameservers))
	}
	if infra.SharedIP == "" {
		t.Error("SharedIP should have a default")
	}
}
