// Package pricing computes call prices under a time-of-day pricing schedule.
package pricing

import "github.com/shopspring/decimal"

// Rule is one entry of a pricing schedule. Its window recurs every day; the
// standing charge applies once per call started inside the window and the
// rate applies to every whole minute of overlap on every day the call spans.
type Rule struct {
	Name           string          `json:"name"`
	PeriodStart    TimeOfDay       `json:"period_start"`
	PeriodEnd      TimeOfDay       `json:"period_end"`
	StandingCharge decimal.Decimal `json:"standing_charge"`
	RatePerMinute  decimal.Decimal `json:"rate_per_minute"`
}

// Window returns the rule's daily active window.
func (r Rule) Window() Window {
	return Window{Start: r.PeriodStart, End: r.PeriodEnd}
}

// Schedule is an ordered rule set. Order matters: the first rule whose window
// contains a call's start supplies the standing charge.
type Schedule []Rule

// Clone returns a copy safe to hand to another goroutine.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}
