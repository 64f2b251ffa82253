package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lukasbauer/callcontrol/internal/pricing"
	"go.uber.org/zap"
)

func TestDefaultRulesCoverTheDay(t *testing.T) {
	rules := DefaultRules()
	if err := pricing.Validate(rules); err != nil {
		t.Fatalf("Validate(DefaultRules()) = %v", err)
	}
	if gaps := pricing.CoverageGaps(rules); len(gaps) != 0 {
		t.Errorf("gaps = %v, want none", gaps)
	}
	if overlaps := pricing.Overlaps(rules); len(overlaps) != 0 {
		t.Errorf("overlaps = %v, want none", overlaps)
	}
}

func TestNewMemoryApp(t *testing.T) {
	cfg := Config{Store: StoreMemory, BillingTimezone: "UTC"}
	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	rules, err := a.Billing().Rules(context.Background())
	if err != nil {
		t.Fatalf("Rules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("got %d rules, want the 2 default rules", len(rules))
	}

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}

	report, err := a.AuditJob().Audit(context.Background())
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if !report.Clean() {
		t.Errorf("default schedule audit = %+v, want clean", report)
	}
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"postgres without url", Config{Store: StorePostgres, BillingTimezone: "UTC"}},
		{"unknown store", Config{Store: "redis", BillingTimezone: "UTC"}},
		{"bad timezone", Config{Store: StoreMemory, BillingTimezone: "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg, zap.NewNop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
