package pricing

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"06:00", NewTimeOfDay(6, 0, 0), false},
		{"22:00:00", NewTimeOfDay(22, 0, 0), false},
		{" 23:59:59 ", NewTimeOfDay(23, 59, 59), false},
		{"00:00:00.5", NewTimeOfDay(0, 0, 0) + TimeOfDay(500*time.Millisecond), false},
		{"12:30:15.000250", NewTimeOfDay(12, 30, 15) + TimeOfDay(250*time.Microsecond), false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12:00:60", 0, true},
		{"12", 0, true},
		{"12:00:00:00", 0, true},
		{"ab:cd", 0, true},
		{"12:00:00.", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimeOfDay(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	tests := []struct {
		in   TimeOfDay
		want string
	}{
		{NewTimeOfDay(6, 0, 0), "06:00:00"},
		{NewTimeOfDay(21, 57, 13), "21:57:13"},
		{NewTimeOfDay(0, 0, 1) + TimeOfDay(250*time.Millisecond), "00:00:01.25"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"name":"night","period_start":"22:00","period_end":"06:00:00","standing_charge":"0.36","rate_per_minute":"0"}`), &r)
	if err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if r.PeriodStart != NewTimeOfDay(22, 0, 0) || r.PeriodEnd != NewTimeOfDay(6, 0, 0) {
		t.Errorf("window = %s, want 22:00:00-06:00:00", r.Window())
	}

	out, err := json.Marshal(r.PeriodStart)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	if string(out) != `"22:00:00"` {
		t.Errorf("Marshal = %s, want %q", out, "22:00:00")
	}

	if err := json.Unmarshal([]byte(`{"period_start":"25:00"}`), &r); err == nil {
		t.Error("Unmarshal of 25:00 should fail")
	}
}

func TestTimeOfDayOn(t *testing.T) {
	tod := MustParseTimeOfDay("22:00:00")

	got := tod.On(2018, time.February, 29, time.UTC)
	want := time.Date(2018, time.March, 1, 22, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("On(2018-02-29) = %s, want %s", got, want)
	}
}

func TestWindowContains(t *testing.T) {
	day := Window{Start: MustParseTimeOfDay("06:00"), End: MustParseTimeOfDay("22:00")}
	night := Window{Start: MustParseTimeOfDay("22:00"), End: MustParseTimeOfDay("06:00")}
	empty := Window{Start: MustParseTimeOfDay("10:00"), End: MustParseTimeOfDay("10:00")}

	tests := []struct {
		name string
		w    Window
		at   string
		want bool
	}{
		{"day start inclusive", day, "06:00", true},
		{"day end exclusive", day, "22:00", false},
		{"day middle", day, "12:34", true},
		{"day before start", day, "05:59:59", false},
		{"night start inclusive", night, "22:00", true},
		{"night before midnight", night, "23:59:59", true},
		{"night midnight", night, "00:00", true},
		{"night end exclusive", night, "06:00", false},
		{"night excludes day", night, "12:00", false},
		{"empty window", empty, "10:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Contains(MustParseTimeOfDay(tt.at)); got != tt.want {
				t.Errorf("%s.Contains(%s) = %v, want %v", tt.w, tt.at, got, tt.want)
			}
		})
	}
}

func TestWindowLength(t *testing.T) {
	night := Window{Start: MustParseTimeOfDay("22:00"), End: MustParseTimeOfDay("06:00")}
	if got := night.Length(); got != 8*time.Hour {
		t.Errorf("Length() = %s, want 8h", got)
	}
	day := Window{Start: MustParseTimeOfDay("06:00"), End: MustParseTimeOfDay("22:00")}
	if got := day.Length(); got != 16*time.Hour {
		t.Errorf("Length() = %s, want 16h", got)
	}
}
