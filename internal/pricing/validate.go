package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Validate checks a schedule before it is stored or used. The pricer itself
// does not re-check these constraints.
func Validate(rules Schedule) error {
	for i, r := range rules {
		label := fmt.Sprintf("rule %d", i)
		if strings.TrimSpace(r.Name) == "" {
			return &ConfigurationError{Err: ErrInvalidRule, Detail: label + ": name is required"}
		}
		label = fmt.Sprintf("rule %d (%s)", i, r.Name)
		if r.PeriodStart < 0 || time.Duration(r.PeriodStart) >= day || r.PeriodEnd < 0 || time.Duration(r.PeriodEnd) >= day {
			return &ConfigurationError{Err: ErrInvalidRule, Detail: label + ": period outside 00:00-24:00"}
		}
		if r.StandingCharge.IsNegative() {
			return &ConfigurationError{Err: ErrInvalidRule, Detail: label + ": negative standing charge"}
		}
		if r.RatePerMinute.IsNegative() {
			return &ConfigurationError{Err: ErrInvalidRule, Detail: label + ": negative rate per minute"}
		}
		if !r.StandingCharge.Equal(r.StandingCharge.Round(2)) || !r.RatePerMinute.Equal(r.RatePerMinute.Round(2)) {
			return &ConfigurationError{Err: ErrInvalidRule, Detail: label + ": amounts are limited to 2 decimal places"}
		}
	}
	return nil
}

// span is a linear [from, to) stretch of the 24h clock.
type span struct {
	from, to time.Duration
}

func spans(w Window) []span {
	s, e := time.Duration(w.Start), time.Duration(w.End)
	switch {
	case s == e:
		return nil
	case w.Wraps():
		out := []span{{from: s, to: day}}
		if e > 0 {
			out = append(out, span{from: 0, to: e})
		}
		return out
	default:
		return []span{{from: s, to: e}}
	}
}

// CoverageGaps returns the parts of the 24h clock that no rule covers. A call
// starting inside a gap cannot be priced.
func CoverageGaps(rules Schedule) []Window {
	var all []span
	for _, r := range rules {
		all = append(all, spans(r.Window())...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].from < all[j].from })

	var gaps []Window
	cursor := time.Duration(0)
	for _, sp := range all {
		if sp.from > cursor {
			gaps = append(gaps, Window{Start: TimeOfDay(cursor), End: TimeOfDay(sp.from)})
		}
		if sp.to > cursor {
			cursor = sp.to
		}
	}
	if cursor < day {
		gaps = append(gaps, Window{Start: TimeOfDay(cursor), End: 0})
	}

	// A gap running to midnight and one starting at midnight are the same gap.
	if len(gaps) > 1 && gaps[0].Start == 0 && gaps[len(gaps)-1].End == 0 {
		gaps[len(gaps)-1].End = gaps[0].End
		gaps = gaps[1:]
	}
	return gaps
}

// RuleOverlap names two rules whose windows share time of day. Per-minute
// charges of both rules accrue for calls in the shared stretch.
type RuleOverlap struct {
	First  string        `json:"first"`
	Second string        `json:"second"`
	Shared time.Duration `json:"shared"`
}

// Overlaps lists every pair of rules with overlapping windows, in schedule order.
func Overlaps(rules Schedule) []RuleOverlap {
	var out []RuleOverlap
	for i := 0; i < len(rules); i++ {
		a := spans(rules[i].Window())
		for j := i + 1; j < len(rules); j++ {
			b := spans(rules[j].Window())
			var shared time.Duration
			for _, x := range a {
				for _, y := range b {
					lo, hi := max(x.from, y.from), min(x.to, y.to)
					if hi > lo {
						shared += hi - lo
					}
				}
			}
			if shared > 0 {
				out = append(out, RuleOverlap{First: rules[i].Name, Second: rules[j].Name, Shared: shared})
			}
		}
	}
	return out
}
