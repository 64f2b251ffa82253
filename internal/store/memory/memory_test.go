package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/lukasbauer/callcontrol/internal/store"
	"github.com/shopspring/decimal"
)

func at(day, hour, min int) time.Time {
	return time.Date(2017, time.December, day, hour, min, 0, 0, time.UTC)
}

func recordCall(t *testing.T, s *Store, id int64, source string, start, end time.Time) {
	t.Helper()
	ctx := context.Background()
	if _, err := s.RecordCallEvent(ctx, store.CallEvent{
		CallID: id, Type: store.RecordStart, Timestamp: start, Source: source, Destination: "9933468278",
	}); err != nil {
		t.Fatalf("record start %d: %v", id, err)
	}
	if _, err := s.RecordCallEvent(ctx, store.CallEvent{CallID: id, Type: store.RecordEnd, Timestamp: end}); err != nil {
		t.Fatalf("record end %d: %v", id, err)
	}
}

func TestRecordCallEventOutOfOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	call, err := s.RecordCallEvent(ctx, store.CallEvent{CallID: 7, Type: store.RecordEnd, Timestamp: at(12, 4, 0)})
	if err != nil {
		t.Fatalf("RecordCallEvent(end) failed: %v", err)
	}
	if call.Complete() {
		t.Error("call should not be complete after only an end")
	}
	if call.ID == "" {
		t.Error("call ID should not be empty")
	}
	firstID := call.ID

	call, err = s.RecordCallEvent(ctx, store.CallEvent{
		CallID: 7, Type: store.RecordStart, Timestamp: at(11, 15, 7), Source: "99988526423", Destination: "9933468278",
	})
	if err != nil {
		t.Fatalf("RecordCallEvent(start) failed: %v", err)
	}
	if !call.Complete() {
		t.Fatal("call should be complete")
	}
	if call.ID != firstID {
		t.Errorf("call ID changed from %q to %q", firstID, call.ID)
	}
	if call.Source != "99988526423" {
		t.Errorf("source = %q", call.Source)
	}
}

func TestRecordCallEventRejectsUnknownType(t *testing.T) {
	s := New()
	_, err := s.RecordCallEvent(context.Background(), store.CallEvent{CallID: 1, Type: "pause", Timestamp: at(1, 0, 0)})
	if err == nil {
		t.Fatal("expected error for unknown record type")
	}
}

func TestSetCallPrice(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SetCallPrice(ctx, 1, nil, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetCallPrice on missing call = %v, want ErrNotFound", err)
	}

	recordCall(t, s, 1, "99988526423", at(12, 4, 57), at(12, 6, 10))
	price := decimal.RequireFromString("0.54")
	if err := s.SetCallPrice(ctx, 1, &price, ""); err != nil {
		t.Fatalf("SetCallPrice failed: %v", err)
	}

	call, err := s.GetCall(ctx, 1)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if call.Price == nil || !call.Price.Equal(price) {
		t.Errorf("price = %v, want 0.54", call.Price)
	}

	// Mutating the returned call must not leak into the store.
	*call.Price = decimal.RequireFromString("99")
	again, _ := s.GetCall(ctx, 1)
	if !again.Price.Equal(price) {
		t.Errorf("stored price changed to %v", again.Price)
	}

	if err := s.SetCallPrice(ctx, 1, nil, "no standing price determined"); err != nil {
		t.Fatalf("SetCallPrice(error) failed: %v", err)
	}
	again, _ = s.GetCall(ctx, 1)
	if again.Price != nil {
		t.Errorf("price = %v, want nil after failure", again.Price)
	}
	if again.PricingError == nil || *again.PricingError != "no standing price determined" {
		t.Errorf("pricing error = %v", again.PricingError)
	}
}

func TestGetCallNotFound(t *testing.T) {
	if _, err := New().GetCall(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCall error = %v, want ErrNotFound", err)
	}
}

func TestListCallsEndedIn(t *testing.T) {
	s := New()
	ctx := context.Background()

	recordCall(t, s, 1, "99988526423", at(12, 4, 57), at(12, 6, 10))
	recordCall(t, s, 2, "99988526423", at(31, 23, 50), at(31, 23, 59))
	recordCall(t, s, 3, "99988526423", at(31, 23, 55), time.Date(2018, 1, 1, 0, 5, 0, 0, time.UTC)) // next month
	recordCall(t, s, 4, "11111111111", at(5, 10, 0), at(5, 10, 30))                                 // other subscriber
	recordCall(t, s, 5, "99988526423", at(1, 0, 0), at(1, 0, 0))                                     // ends at the boundary

	// Incomplete call.
	if _, err := s.RecordCallEvent(ctx, store.CallEvent{
		CallID: 6, Type: store.RecordStart, Timestamp: at(2, 0, 0), Source: "99988526423", Destination: "9933468278",
	}); err != nil {
		t.Fatal(err)
	}

	calls, err := s.ListCallsEndedIn(ctx, "99988526423",
		time.Date(2017, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListCallsEndedIn failed: %v", err)
	}

	want := []int64{5, 1, 2}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i, id := range want {
		if calls[i].CallID != id {
			t.Errorf("calls[%d].CallID = %d, want %d", i, calls[i].CallID, id)
		}
	}
}

func TestPricingRulesSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()

	rules, err := s.ListPricingRules(ctx)
	if err != nil {
		t.Fatalf("ListPricingRules failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("new store has %d rules, want 0", len(rules))
	}

	in := pricing.Schedule{{
		Name:           "standard",
		PeriodStart:    pricing.MustParseTimeOfDay("06:00"),
		PeriodEnd:      pricing.MustParseTimeOfDay("22:00"),
		StandingCharge: decimal.RequireFromString("0.36"),
		RatePerMinute:  decimal.RequireFromString("0.09"),
	}}
	if err := s.ReplacePricingRules(ctx, in); err != nil {
		t.Fatalf("ReplacePricingRules failed: %v", err)
	}
	in[0].Name = "mutated"

	got, _ := s.ListPricingRules(ctx)
	if len(got) != 1 || got[0].Name != "standard" {
		t.Errorf("rules = %+v, want the original snapshot", got)
	}
	got[0].Name = "mutated again"
	again, _ := s.ListPricingRules(ctx)
	if again[0].Name != "standard" {
		t.Errorf("returned schedule aliases the snapshot")
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _ = s.RecordCallEvent(ctx, store.CallEvent{
				CallID: id, Type: store.RecordStart, Timestamp: at(3, 10, 0), Source: "99988526423", Destination: "9933468278",
			})
			_, _ = s.RecordCallEvent(ctx, store.CallEvent{CallID: id, Type: store.RecordEnd, Timestamp: at(3, 11, 0)})
		}(i)
	}
	wg.Wait()

	calls, err := s.ListCallsEndedIn(ctx, "99988526423", at(1, 0, 0), at(31, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 50 {
		t.Errorf("got %d calls, want 50", len(calls))
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().GetCall(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("GetCall error = %v, want context.Canceled", err)
	}
}
