package eventlog

import (
	"context"
	"testing"
)

func TestEventTypeConstants(t *testing.T) {
	expectedEvents := map[EventType]string{
		EventCallStarted:        "call_started",
		EventCallEnded:          "call_ended",
		EventCallPriced:         "call_priced",
		EventCallPricingFailed:  "call_pricing_failed",
		EventPricingRulesUpdate: "pricing_rules_updated",
	}

	for eventType, expectedValue := range expectedEvents {
		if string(eventType) != expectedValue {
			t.Errorf("EventType %q = %q, want %q", expectedValue, string(eventType), expectedValue)
		}
	}
}

func TestLoggerWithNilDB(t *testing.T) {
	logger := New(nil, nil)

	if logger.Enabled() {
		t.Error("logger without a pool should be disabled")
	}

	// Should not panic and should return nil
	err := logger.Log(context.Background(), 42, EventCallStarted, map[string]any{"test": "data"})
	if err != nil {
		t.Errorf("Log() with nil DB should return nil, got %v", err)
	}

	// LogAsync should not panic
	logger.LogAsync(42, EventCallPriced, map[string]any{"price": "0.54"})
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	if logger.Enabled() {
		t.Error("nil logger should be disabled")
	}
	if err := logger.Log(context.Background(), 1, EventCallEnded, nil); err != nil {
		t.Errorf("Log() on nil logger = %v, want nil", err)
	}
}
