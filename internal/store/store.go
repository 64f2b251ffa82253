package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a call does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RecordType is the kind of call record: the call's start or its end.
type RecordType string

const (
	RecordStart RecordType = "start"
	RecordEnd   RecordType = "end"
)

// Valid reports whether t is a known record type.
func (t RecordType) Valid() bool {
	return t == RecordStart || t == RecordEnd
}

// CallEvent is one observed start or end of a call. Source and destination
// are only carried by start events.
type CallEvent struct {
	CallID      int64
	Type        RecordType
	Timestamp   time.Time
	Source      string
	Destination string
}

// Call is a phone call as reconstructed from its records. When several
// records of the same type exist the most recent one wins.
type Call struct {
	ID           string           `json:"id"`
	CallID       int64            `json:"call_id"`
	Source       string           `json:"source"`
	Destination  string           `json:"destination"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	PricingError *string          `json:"pricing_error,omitempty"`
}

// Complete reports whether both the start and the end have been observed.
func (c Call) Complete() bool {
	return c.StartedAt != nil && c.EndedAt != nil
}

// Duration is the call length; zero until the call is complete.
func (c Call) Duration() time.Duration {
	if !c.Complete() {
		return 0
	}
	return c.EndedAt.Sub(*c.StartedAt)
}
