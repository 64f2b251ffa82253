package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bill is a subscriber's statement for one closed month.
type Bill struct {
	Subscriber   string          `json:"subscriber"`
	Period       Period          `json:"period"`
	Total        decimal.Decimal `json:"total_amount"`
	TotalDisplay string          `json:"total"`
	Items        []BillItem      `json:"list"`

	// Complete is false when some calls in the period have no price. Those
	// calls are listed in Unpriced and not counted in Total.
	Complete bool           `json:"complete"`
	Unpriced []UnpricedCall `json:"unpriced,omitempty"`
}

type BillItem struct {
	CallID       int64           `json:"call_id"`
	Destination  string          `json:"destination"`
	StartDate    string          `json:"start_date"`
	StartTime    string          `json:"start_time"`
	Duration     string          `json:"duration"`
	Price        decimal.Decimal `json:"price_amount"`
	PriceDisplay string          `json:"price"`
}

type UnpricedCall struct {
	CallID      int64  `json:"call_id"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	StartTime   string `json:"start_time"`
	Reason      string `json:"reason"`
}

const unpricedPending = "price not computed"

// Bill builds the statement of the calls placed by phone that ended inside
// period. Calls with a non-positive duration are not billable and are left out.
func (s *Service) Bill(ctx context.Context, phone string, period Period) (Bill, error) {
	calls, err := s.store.ListCallsEndedIn(ctx, phone, period.Start(s.loc), period.End(s.loc))
	if err != nil {
		return Bill{}, fmt.Errorf("list calls for %s in %s: %w", phone, period, err)
	}

	bill := Bill{
		Subscriber: phone,
		Period:     period,
		Total:      decimal.Zero,
		Items:      []BillItem{},
		Complete:   true,
	}
	for _, c := range calls {
		if c.Duration() <= 0 {
			continue
		}
		start := c.StartedAt.In(s.loc)

		if c.Price == nil {
			reason := unpricedPending
			if c.PricingError != nil {
				reason = *c.PricingError
			}
			bill.Unpriced = append(bill.Unpriced, UnpricedCall{
				CallID:      c.CallID,
				Destination: c.Destination,
				StartDate:   start.Format("2006-01-02"),
				StartTime:   start.Format("15:04:05"),
				Reason:      reason,
			})
			bill.Complete = false
			continue
		}

		bill.Total = bill.Total.Add(*c.Price)
		bill.Items = append(bill.Items, BillItem{
			CallID:       c.CallID,
			Destination:  c.Destination,
			StartDate:    start.Format("2006-01-02"),
			StartTime:    start.Format("15:04:05"),
			Duration:     FormatDuration(c.Duration()),
			Price:        *c.Price,
			PriceDisplay: FormatCurrency(*c.Price),
		})
	}
	bill.TotalDisplay = FormatCurrency(bill.Total)

	if !bill.Complete {
		s.logger.Warn("bill has unpriced calls",
			zap.String("phone", phone),
			zap.Stringer("period", period),
			zap.Int("unpriced", len(bill.Unpriced)))
	}
	return bill, nil
}

// BillFor resolves the raw period against the service clock and builds the bill.
func (s *Service) BillFor(ctx context.Context, phone, rawPeriod string) (Bill, error) {
	period, err := ResolvePeriod(rawPeriod, s.now().In(s.loc))
	if err != nil {
		return Bill{}, err
	}
	return s.Bill(ctx, phone, period)
}
