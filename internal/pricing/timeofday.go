package pricing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// TimeOfDay is a wall-clock offset from midnight, independent of date.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// TimeOfDayOf returns the wall-clock time of t in t's own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return NewTimeOfDay(h, m, s) + TimeOfDay(t.Nanosecond())
}

// ParseTimeOfDay accepts "HH:MM", "HH:MM:SS" and "HH:MM:SS.ffffff".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("time of day: bad %q", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time of day: bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day: bad minute in %q", s)
	}

	var sec int
	var frac time.Duration
	if len(parts) == 3 {
		secPart, fracPart, hasFrac := strings.Cut(parts[2], ".")
		sec, err = strconv.Atoi(secPart)
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("time of day: bad second in %q", s)
		}
		if hasFrac {
			if fracPart == "" || len(fracPart) > 9 {
				return 0, fmt.Errorf("time of day: bad fraction in %q", s)
			}
			n, err := strconv.Atoi(fracPart)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("time of day: bad fraction in %q", s)
			}
			for i := len(fracPart); i < 9; i++ {
				n *= 10
			}
			frac = time.Duration(n)
		}
	}

	return NewTimeOfDay(h, m, sec) + TimeOfDay(frac), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for literals; it panics on error.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// On places the time of day on the given calendar date. Day overflow is
// normalized by time.Date.
func (t TimeOfDay) On(year int, month time.Month, dayOfMonth int, loc *time.Location) time.Time {
	d := time.Duration(t)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	ns := int(d % time.Second)
	return time.Date(year, month, dayOfMonth, h, m, s, ns, loc)
}

// String formats t as HH:MM:SS, with a fraction only when one is set.
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	out := fmt.Sprintf("%02d:%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second))
	if ns := int(d % time.Second); ns != 0 {
		out += strings.TrimRight(fmt.Sprintf(".%09d", ns), "0")
	}
	return out
}

// MarshalJSON encodes t as its String form.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a JSON string in any form ParseTimeOfDay accepts.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time of day: %w", err)
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Window is a recurring daily interval [Start, End). End before Start wraps
// past midnight; equal bounds describe an empty window.
type Window struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Wraps reports whether the window spans midnight.
func (w Window) Wraps() bool {
	return w.End < w.Start
}

// Contains reports whether tod falls inside the window.
func (w Window) Contains(tod TimeOfDay) bool {
	if w.Wraps() {
		return tod >= w.Start || tod < w.End
	}
	return tod >= w.Start && tod < w.End
}

// Length is the window's duration on a 24h clock.
func (w Window) Length() time.Duration {
	if w.Wraps() {
		return day - time.Duration(w.Start) + time.Duration(w.End)
	}
	return time.Duration(w.End - w.Start)
}

// String formats w as start-end.
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}
