// Package billing records call events, prices completed calls and builds
// monthly bills from the priced calls.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lukasbauer/callcontrol/internal/eventlog"
	"github.com/lukasbauer/callcontrol/internal/notifications"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/lukasbauer/callcontrol/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CallStore persists call records and their prices.
type CallStore interface {
	RecordCallEvent(ctx context.Context, ev store.CallEvent) (store.Call, error)
	GetCall(ctx context.Context, callID int64) (store.Call, error)
	SetCallPrice(ctx context.Context, callID int64, price *decimal.Decimal, pricingError string) error
	ListCallsEndedIn(ctx context.Context, source string, from, to time.Time) ([]store.Call, error)
}

// RuleStore holds the pricing schedule.
type RuleStore interface {
	ListPricingRules(ctx context.Context) (pricing.Schedule, error)
	ReplacePricingRules(ctx context.Context, rules pricing.Schedule) error
}

// EventRecorder receives the audit trail of call and schedule changes.
// *eventlog.Logger is the production implementation.
type EventRecorder interface {
	LogAsync(callID int64, eventType eventlog.EventType, data map[string]any)
}

// Store is satisfied by both store.Store and memory.Store.
type Store interface {
	CallStore
	RuleStore
	Ping(ctx context.Context) error
}

type Config struct {
	// Location is where a call's wall-clock times are read for rule windows
	// and for the month a bill covers. Defaults to UTC.
	Location *time.Location

	// MaxCallDuration bounds the calls the pricer accepts. Zero means no bound.
	MaxCallDuration time.Duration
}

// scheduleEventCallID is the call_events.call_id of events that concern the
// schedule rather than a single call.
const scheduleEventCallID = 0

type Service struct {
	store    Store
	pricer   pricing.Pricer
	loc      *time.Location
	logger   *zap.Logger
	events   EventRecorder
	notifier *notifications.Discord
	now      func() time.Time
}

// NewService wires the billing service. events and notifier may be nil.
func NewService(s Store, cfg Config, logger *zap.Logger, events EventRecorder, notifier *notifications.Discord) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = eventlog.New(nil, logger)
	}
	return &Service{
		store:    s,
		pricer:   pricing.Pricer{MaxDuration: cfg.MaxCallDuration},
		loc:      cfg.Location,
		logger:   logger.Named("billing"),
		events:   events,
		notifier: notifier,
		now:      time.Now,
	}
}

// Location returns the billing location, in which call times are displayed.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Call returns the stored state of one call. A missing call satisfies IsNotFound.
func (s *Service) Call(ctx context.Context, callID int64) (store.Call, error) {
	call, err := s.store.GetCall(ctx, callID)
	if err != nil {
		return store.Call{}, fmt.Errorf("get call %d: %w", callID, err)
	}
	return call, nil
}

// RecordEvent stores a call event and, once both ends of the call are known,
// prices it against the current schedule.
//
// A schedule that cannot price the call is recorded on the call and returned
// as a *pricing.ConfigurationError alongside the stored call.
func (s *Service) RecordEvent(ctx context.Context, ev store.CallEvent) (store.Call, error) {
	call, err := s.store.RecordCallEvent(ctx, ev)
	if err != nil {
		return store.Call{}, fmt.Errorf("record call event: %w", err)
	}

	evType := eventlog.EventCallStarted
	if ev.Type == store.RecordEnd {
		evType = eventlog.EventCallEnded
	}
	s.events.LogAsync(call.CallID, evType, map[string]any{
		"timestamp": ev.Timestamp.UTC().Format(time.RFC3339),
	})

	if !call.Complete() {
		return call, nil
	}
	return s.priceCall(ctx, call)
}

func (s *Service) priceCall(ctx context.Context, call store.Call) (store.Call, error) {
	rules, err := s.store.ListPricingRules(ctx)
	if err != nil {
		return call, fmt.Errorf("load pricing rules: %w", err)
	}

	start, end := call.StartedAt.In(s.loc), call.EndedAt.In(s.loc)
	price, perr := s.pricer.Price(start, end, rules)
	if perr != nil {
		return s.recordPricingFailure(ctx, call, perr)
	}

	if err := s.store.SetCallPrice(ctx, call.CallID, &price, ""); err != nil {
		return call, fmt.Errorf("store price for call %d: %w", call.CallID, err)
	}
	call.Price = &price
	call.PricingError = nil

	s.logger.Debug("call priced",
		zap.Int64("call_id", call.CallID),
		zap.Duration("duration", call.Duration()),
		zap.Stringer("price", price))
	s.events.LogAsync(call.CallID, eventlog.EventCallPriced, map[string]any{
		"price":    price.StringFixed(2),
		"duration": call.Duration().String(),
	})
	return call, nil
}

func (s *Service) recordPricingFailure(ctx context.Context, call store.Call, cause error) (store.Call, error) {
	msg := cause.Error()
	if err := s.store.SetCallPrice(ctx, call.CallID, nil, msg); err != nil {
		s.logger.Error("failed to store pricing error", zap.Int64("call_id", call.CallID), zap.Error(err))
	} else {
		call.Price = nil
		call.PricingError = &msg
	}

	s.logger.Error("call could not be priced",
		zap.Int64("call_id", call.CallID),
		zap.String("source", call.Source),
		zap.Timep("started_at", call.StartedAt),
		zap.Timep("ended_at", call.EndedAt),
		zap.Error(cause))
	s.events.LogAsync(call.CallID, eventlog.EventCallPricingFailed, map[string]any{"error": msg})

	if pricing.IsConfigurationError(cause) {
		s.notifier.NotifyPricingFailure(ctx, call.CallID, call.Source, cause)
		captureException(ctx, cause, call.CallID)
	}
	return call, cause
}

func captureException(ctx context.Context, err error, callID int64) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("call_id", fmt.Sprint(callID))
		hub.CaptureException(err)
	})
}

// Quote prices an arbitrary interval against the current schedule without
// storing anything.
func (s *Service) Quote(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	rules, err := s.store.ListPricingRules(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load pricing rules: %w", err)
	}
	return s.pricer.Price(start.In(s.loc), end.In(s.loc), rules)
}

// Rules returns the current schedule.
func (s *Service) Rules(ctx context.Context) (pricing.Schedule, error) {
	return s.store.ListPricingRules(ctx)
}

// ReplaceRules validates and installs a new schedule. Calls already priced
// keep their price.
func (s *Service) ReplaceRules(ctx context.Context, rules pricing.Schedule) error {
	if err := pricing.Validate(rules); err != nil {
		return err
	}
	if err := s.store.ReplacePricingRules(ctx, rules); err != nil {
		return fmt.Errorf("replace pricing rules: %w", err)
	}

	gaps := pricing.CoverageGaps(rules)
	overlaps := pricing.Overlaps(rules)
	s.logger.Info("pricing rules replaced",
		zap.Int("rules", len(rules)),
		zap.Int("gaps", len(gaps)),
		zap.Int("overlaps", len(overlaps)))
	s.events.LogAsync(scheduleEventCallID, eventlog.EventPricingRulesUpdate, map[string]any{
		"rules":    len(rules),
		"gaps":     len(gaps),
		"overlaps": len(overlaps),
	})
	if len(gaps) > 0 || len(overlaps) > 0 {
		s.notifier.NotifyScheduleIssues(ctx, gaps, overlaps)
	}
	return nil
}

// IsNotFound reports whether err means the call does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
