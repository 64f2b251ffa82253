// Package memory keeps calls and the pricing schedule in process memory.
// It backs development runs without Postgres and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/lukasbauer/callcontrol/internal/store"
	"github.com/shopspring/decimal"
)

type callRecord struct {
	call store.Call
	// insertion order breaks ties between calls ending at the same instant
	seq uint64
}

// Store keeps calls and the schedule in process memory. It is safe for
// concurrent use.
type Store struct {
	rules atomic.Pointer[pricing.Schedule] // immutable snapshot

	mu    sync.RWMutex
	calls map[int64]*callRecord
	seq   uint64
}

// New returns an empty store with an empty schedule.
func New() *Store {
	s := &Store{calls: make(map[int64]*callRecord)}
	s.rules.Store(&pricing.Schedule{})
	return s
}

// Ping only fails on a canceled context.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// RecordCallEvent merges a start or end record into the call, creating it on
// first sight.
func (s *Store) RecordCallEvent(ctx context.Context, ev store.CallEvent) (store.Call, error) {
	if err := ctx.Err(); err != nil {
		return store.Call{}, err
	}
	if !ev.Type.Valid() {
		return store.Call{}, fmt.Errorf("record call event: unknown type %q", ev.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.calls[ev.CallID]
	if !ok {
		s.seq++
		rec = &callRecord{
			call: store.Call{ID: uuid.NewString(), CallID: ev.CallID},
			seq:  s.seq,
		}
		s.calls[ev.CallID] = rec
	}

	ts := ev.Timestamp
	switch ev.Type {
	case store.RecordStart:
		rec.call.StartedAt = &ts
		rec.call.Source = ev.Source
		rec.call.Destination = ev.Destination
	case store.RecordEnd:
		rec.call.EndedAt = &ts
	}
	return copyCall(rec.call), nil
}

// GetCall returns a copy of the call, or store.ErrNotFound.
func (s *Store) GetCall(ctx context.Context, callID int64) (store.Call, error) {
	if err := ctx.Err(); err != nil {
		return store.Call{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.calls[callID]
	if !ok {
		return store.Call{}, store.ErrNotFound
	}
	return copyCall(rec.call), nil
}

// SetCallPrice stores a price or, with a nil price, the pricing error.
func (s *Store) SetCallPrice(ctx context.Context, callID int64, price *decimal.Decimal, pricingError string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.calls[callID]
	if !ok {
		return store.ErrNotFound
	}
	rec.call.Price = nil
	rec.call.PricingError = nil
	if price != nil {
		p := *price
		rec.call.Price = &p
	}
	if pricingError != "" {
		e := pricingError
		rec.call.PricingError = &e
	}
	return nil
}

// ListCallsEndedIn returns source's complete calls that ended in [from, to),
// ordered by end time.
func (s *Store) ListCallsEndedIn(ctx context.Context, source string, from, to time.Time) ([]store.Call, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var recs []*callRecord
	for _, rec := range s.calls {
		c := rec.call
		if c.Source != source || !c.Complete() {
			continue
		}
		if c.EndedAt.Before(from) || !c.EndedAt.Before(to) {
			continue
		}
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].call.EndedAt, recs[j].call.EndedAt
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return recs[i].seq < recs[j].seq
	})

	out := make([]store.Call, 0, len(recs))
	for _, rec := range recs {
		out = append(out, copyCall(rec.call))
	}
	return out, nil
}

// ListPricingRules returns a copy of the current schedule.
func (s *Store) ListPricingRules(ctx context.Context) (pricing.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.rules.Load().Clone(), nil
}

// ReplacePricingRules swaps in a copy of rules.
func (s *Store) ReplacePricingRules(ctx context.Context, rules pricing.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := rules.Clone()
	s.rules.Store(&snap)
	return nil
}

// copyCall detaches the pointer fields so callers cannot mutate stored state.
func copyCall(c store.Call) store.Call {
	if c.StartedAt != nil {
		t := *c.StartedAt
		c.StartedAt = &t
	}
	if c.EndedAt != nil {
		t := *c.EndedAt
		c.EndedAt = &t
	}
	if c.Price != nil {
		p := *c.Price
		c.Price = &p
	}
	if c.PricingError != nil {
		e := *c.PricingError
		c.PricingError = &e
	}
	return c
}
