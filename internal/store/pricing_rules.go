package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasbauer/callcontrol/internal/pricing"
	"github.com/shopspring/decimal"
)

// ListPricingRules returns the full schedule in its configured order.
func (s *Store) ListPricingRules(ctx context.Context) (pricing.Schedule, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, period_start, period_end, standing_charge, rate_per_minute
		FROM pricing_rules
		ORDER BY position, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out pricing.Schedule
	for rows.Next() {
		var (
			r          pricing.Rule
			start, end pgtype.Time
			standing   decimal.Decimal
			rate       decimal.Decimal
		)
		if err := rows.Scan(&r.Name, &start, &end, &standing, &rate); err != nil {
			return nil, err
		}
		r.PeriodStart = timeOfDayFromPG(start)
		r.PeriodEnd = timeOfDayFromPG(end)
		r.StandingCharge = standing
		r.RatePerMinute = rate
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplacePricingRules swaps the whole schedule atomically.
func (s *Store) ReplacePricingRules(ctx context.Context, rules pricing.Schedule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM pricing_rules`); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, r := range rules {
		batch.Queue(`
			INSERT INTO pricing_rules (position, name, period_start, period_end, standing_charge, rate_per_minute)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, i, r.Name, timeOfDayToPG(r.PeriodStart), timeOfDayToPG(r.PeriodEnd), r.StandingCharge, r.RatePerMinute)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert pricing rules: %w", err)
	}

	return tx.Commit(ctx)
}

func timeOfDayFromPG(t pgtype.Time) pricing.TimeOfDay {
	return pricing.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

func timeOfDayToPG(t pricing.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(time.Duration(t) / time.Microsecond), Valid: true}
}
