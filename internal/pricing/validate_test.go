package pricing

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rules   Schedule
		wantErr bool
	}{
		{"standard schedule", standardSchedule(), false},
		{"empty schedule", nil, false},
		{"negative standing charge", Schedule{rule("x", "06:00", "22:00", "-0.01", "0.09")}, true},
		{"negative rate", Schedule{rule("x", "06:00", "22:00", "0.36", "-0.09")}, true},
		{"too many decimals", Schedule{rule("x", "06:00", "22:00", "0.365", "0.09")}, true},
		{"trailing zero decimals allowed", Schedule{rule("x", "06:00", "22:00", "0.360", "0.090")}, false},
		{"missing name", Schedule{rule(" ", "06:00", "22:00", "0.36", "0.09")}, true},
		{"period out of range", Schedule{{Name: "x", PeriodStart: TimeOfDay(25 * time.Hour)}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rules)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRule) {
				t.Errorf("errors.Is(err, ErrInvalidRule) = false, err = %v", err)
			}
		})
	}
}

func TestCoverageGaps(t *testing.T) {
	tests := []struct {
		name  string
		rules Schedule
		want  []string
	}{
		{"full coverage", standardSchedule(), nil},
		{"no rules", nil, []string{"00:00:00-00:00:00"}},
		{"day only", Schedule{rule("d", "06:00", "22:00", "0", "0")}, []string{"22:00:00-06:00:00"}},
		{"night only", Schedule{rule("n", "22:00", "06:00", "0", "0")}, []string{"06:00:00-22:00:00"}},
		{
			name: "hole in the afternoon",
			rules: Schedule{
				rule("a", "00:00", "12:00", "0", "0"),
				rule("b", "13:00", "00:00", "0", "0"),
			},
			want: []string{"12:00:00-13:00:00"},
		},
		{
			name: "overlapping rules cover everything",
			rules: Schedule{
				rule("a", "00:00", "14:00", "0", "0"),
				rule("b", "12:00", "02:00", "0", "0"),
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoverageGaps(tt.rules)
			if len(got) != len(tt.want) {
				t.Fatalf("CoverageGaps() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].String() != tt.want[i] {
					t.Errorf("gap[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	if got := Overlaps(standardSchedule()); len(got) != 0 {
		t.Errorf("Overlaps(standard) = %v, want none", got)
	}

	rules := Schedule{
		rule("day", "06:00", "22:00", "0.36", "0.09"),
		rule("night", "22:00", "06:00", "0.36", "0.00"),
		rule("evening", "20:00", "23:00", "0.00", "0.01"),
	}
	got := Overlaps(rules)
	if len(got) != 2 {
		t.Fatalf("Overlaps() = %v, want 2 overlaps", got)
	}
	if got[0].First != "day" || got[0].Second != "evening" || got[0].Shared != 2*time.Hour {
		t.Errorf("overlap[0] = %+v, want day/evening 2h", got[0])
	}
	if got[1].First != "night" || got[1].Second != "evening" || got[1].Shared != time.Hour {
		t.Errorf("overlap[1] = %+v, want night/evening 1h", got[1])
	}
}
