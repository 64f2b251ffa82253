package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pricer prices calls against a schedule. The zero value has no duration
// bound. A Pricer holds no mutable state and is safe for concurrent use.
type Pricer struct {
	// MaxDuration rejects longer calls with ErrCallTooLong. Zero disables the check.
	MaxDuration time.Duration
}

// Price computes the cost of a call from start to end with no duration bound.
func Price(start, end time.Time, rules Schedule) (decimal.Decimal, error) {
	return Pricer{}.Price(start, end, rules)
}

// Price computes the cost of the call [start, end] under rules.
//
// A call with end <= start costs zero. Time-of-day values are taken in start's
// location; callers normalize both instants to the billing location first.
// The result is rounded to cents.
func (p Pricer) Price(start, end time.Time, rules Schedule) (decimal.Decimal, error) {
	if !end.After(start) {
		return decimal.Zero, nil
	}
	if p.MaxDuration > 0 && end.Sub(start) > p.MaxDuration {
		return decimal.Zero, fmt.Errorf("%w: %s > %s", ErrCallTooLong, end.Sub(start), p.MaxDuration)
	}

	startTOD := TimeOfDayOf(start)

	total := decimal.Zero
	standing := decimal.Zero
	standingFound := false

	for _, rule := range rules {
		w := rule.Window()
		if !standingFound && w.Contains(startTOD) {
			standing = rule.StandingCharge
			standingFound = true
		}

		minutes := billableMinutes(start, end, w)
		if minutes > 0 {
			total = total.Add(rule.RatePerMinute.Mul(decimal.NewFromInt(minutes)))
		}
	}

	if !standingFound {
		return decimal.Zero, noStandingCharge(start, len(rules))
	}

	return total.Add(standing).Round(2), nil
}

// billableMinutes sums the whole minutes of overlap between the call and each
// daily instance of w. Every calendar day from the call's start through its
// end is materialized separately; a wrapping window also gets the instance
// opened the evening before the start day.
func billableMinutes(start, end time.Time, w Window) int64 {
	loc := start.Location()
	end = end.In(loc)

	y, m, d := start.Date()
	first := 0
	if w.Wraps() {
		first = -1
	}
	days := calendarDaysBetween(start, end)

	var minutes int64
	for i := first; i <= days; i++ {
		ws := w.Start.On(y, m, d+i, loc)
		we := w.End.On(y, m, d+i, loc)
		if we.Before(ws) {
			we = w.End.On(y, m, d+i+1, loc)
		}

		lo := latest(start, ws)
		hi := earliest(end, we)
		if lo.After(hi) {
			continue
		}

		// Elapsed time, so a window on a daylight-saving change day bills the
		// hour it gains or loses.
		minutes += int64(hi.Sub(lo) / time.Minute)
	}
	return minutes
}

// calendarDaysBetween counts date boundaries crossed from a to b in a's location.
func calendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / day)
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
