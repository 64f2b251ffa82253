package billing

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPeriod is returned for a period string in neither accepted layout.
	ErrInvalidPeriod = errors.New("invalid period format")

	// ErrPeriodNotClosed is returned when a bill is requested for the current
	// or a future month.
	ErrPeriodNotClosed = errors.New("period is not closed yet")
)

var periodLayouts = []string{"2006-01", "01/2006"}

// Period is a calendar month.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t, in t's location.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts "2006-01" and "01/2006".
func ParsePeriod(s string) (Period, error) {
	for _, layout := range periodLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return PeriodOf(t), nil
		}
	}
	return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// ResolvePeriod turns the raw query value into a closed period. An empty value
// selects the month before now.
func ResolvePeriod(raw string, now time.Time) (Period, error) {
	current := PeriodOf(now)
	if raw == "" {
		return current.Prev(), nil
	}
	p, err := ParsePeriod(raw)
	if err != nil {
		return Period{}, err
	}
	if !p.Before(current) {
		return Period{}, fmt.Errorf("%w: %s", ErrPeriodNotClosed, p)
	}
	return p, nil
}

// Start is the first instant of the month in loc.
func (p Period) Start(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
}

// End is the first instant of the following month in loc.
func (p Period) End(loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, loc)
}

// Prev returns the month before p.
func (p Period) Prev() Period {
	return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// Before reports whether p is an earlier month than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String formats p as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText encodes p as YYYY-MM.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts any form ParsePeriod does.
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
