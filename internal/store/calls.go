package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const callColumns = `
	c.id, c.call_id, COALESCE(c.source, '') AS source, COALESCE(c.destination, '') AS destination,
	(SELECT r.timestamp FROM phone_call_records r
	  WHERE r.call_id = c.call_id AND r.type = 'start' ORDER BY r.id DESC LIMIT 1) AS started_at,
	(SELECT r.timestamp FROM phone_call_records r
	  WHERE r.call_id = c.call_id AND r.type = 'end' ORDER BY r.id DESC LIMIT 1) AS ended_at,
	c.price, c.pricing_error`

// RecordCallEvent stores a start or end record and returns the call as it
// stands afterwards. A start record replaces the call's participants.
func (s *Store) RecordCallEvent(ctx context.Context, ev CallEvent) (Call, error) {
	if !ev.Type.Valid() {
		return Call{}, fmt.Errorf("record call event: unknown type %q", ev.Type)
	}

	var source, destination *string
	if ev.Type == RecordStart {
		source, destination = &ev.Source, &ev.Destination
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Call{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO phone_calls (id, call_id, source, destination)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (call_id) DO UPDATE SET
			source = COALESCE(EXCLUDED.source, phone_calls.source),
			destination = COALESCE(EXCLUDED.destination, phone_calls.destination),
			updated_at = NOW()
	`, uuid.New(), ev.CallID, source, destination)
	if err != nil {
		return Call{}, fmt.Errorf("upsert call %d: %w", ev.CallID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO phone_call_records (call_id, type, timestamp)
		VALUES ($1, $2, $3)
	`, ev.CallID, string(ev.Type), ev.Timestamp)
	if err != nil {
		return Call{}, fmt.Errorf("insert %s record for call %d: %w", ev.Type, ev.CallID, err)
	}

	call, err := getCall(ctx, tx, ev.CallID)
	if err != nil {
		return Call{}, err
	}
	return call, tx.Commit(ctx)
}

// GetCall returns a call by its external call ID.
func (s *Store) GetCall(ctx context.Context, callID int64) (Call, error) {
	return getCall(ctx, s.db, callID)
}

func getCall(ctx context.Context, q querier, callID int64) (Call, error) {
	row := q.QueryRow(ctx, `SELECT `+callColumns+` FROM phone_calls c WHERE c.call_id = $1`, callID)
	c, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	return c, err
}

// SetCallPrice stores the outcome of pricing a call. Exactly one of price and
// pricingError is expected to be set; setting one clears the other.
func (s *Store) SetCallPrice(ctx context.Context, callID int64, price *decimal.Decimal, pricingError string) error {
	var errText *string
	if pricingError != "" {
		errText = &pricingError
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE phone_calls
		SET price = $2, pricing_error = $3, updated_at = NOW()
		WHERE call_id = $1
	`, callID, decimal.NullDecimal{Decimal: derefDecimal(price), Valid: price != nil}, errText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCallsEndedIn returns the complete calls placed by source whose latest
// end record falls in [from, to), oldest first. Unpriced calls are included.
func (s *Store) ListCallsEndedIn(ctx context.Context, source string, from, to time.Time) ([]Call, error) {
	rows, err := s.db.Query(ctx, `
		SELECT * FROM (
			SELECT `+callColumns+`
			FROM phone_calls c
			WHERE c.source = $1
		) x
		WHERE x.started_at IS NOT NULL AND x.ended_at >= $2 AND x.ended_at < $3
		ORDER BY x.ended_at, x.call_id
	`, source, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCall(row pgx.Row) (Call, error) {
	var (
		c     Call
		id    uuid.UUID
		price decimal.NullDecimal
	)
	err := row.Scan(&id, &c.CallID, &c.Source, &c.Destination, &c.StartedAt, &c.EndedAt, &price, &c.PricingError)
	if err != nil {
		return Call{}, err
	}
	c.ID = id.String()
	if price.Valid {
		p := price.Decimal
		c.Price = &p
	}
	return c, nil
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
