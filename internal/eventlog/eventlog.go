package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// EventType represents the type of call event
type EventType string

const (
	EventCallStarted        EventType = "call_started"
	EventCallEnded          EventType = "call_ended"
	EventCallPriced         EventType = "call_priced"
	EventCallPricingFailed  EventType = "call_pricing_failed"
	EventPricingRulesUpdate EventType = "pricing_rules_updated"
)

// Logger provides async event logging to the database
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// New creates a new event logger. A nil pool turns every call into a no-op,
// which is what the in-memory store runs with.
func New(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{db: db, logger: logger.Named("eventlog")}
}

// Enabled reports whether events are persisted.
func (l *Logger) Enabled() bool {
	return l != nil && l.db != nil
}

// Log writes an event to the database synchronously
func (l *Logger) Log(ctx context.Context, callID int64, eventType EventType, data map[string]any) error {
	if !l.Enabled() {
		return nil
	}

	dataJSON, err := json.Marshal(data)
	if err != nil || data == nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO call_events (call_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, callID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(callID int64, eventType EventType, data map[string]any) {
	if !l.Enabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.Log(ctx, callID, eventType, data); err != nil {
			l.logger.Warn("failed to write call event",
				zap.Int64("call_id", callID),
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}()
}
