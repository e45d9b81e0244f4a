package schedule

import (
	"encoding/json"
	"testing"
	"time"
)

const scenarioEpoch = int64(1759716000) // 2025-10-06T02:00:00Z

func TestToEpochSeconds(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int64
		ok       bool
	}{
		{"epoch seconds", int64(1759716000), scenarioEpoch, true},
		{"epoch milliseconds", int64(1759716000000), scenarioEpoch, true},
		{"float milliseconds", 1759716000999.0, scenarioEpoch, true},
		{"int seconds", 1759716000, scenarioEpoch, true},
		{"numeric string seconds", "1759716000", scenarioEpoch, true},
		{"numeric string milliseconds", " 1759716000000 ", scenarioEpoch, true},
		{"json number", json.Number("1759716000000"), scenarioEpoch, true},
		{"iso string", "2025-10-06T02:00:00Z", scenarioEpoch, true},
		{"iso string with offset", "2025-10-06T04:00:00+02:00", scenarioEpoch, true},
		{"time value", time.Date(2025, 10, 6, 2, 0, 0, 0, time.UTC), scenarioEpoch, true},
		{"nil", nil, 0, false},
		{"empty string", "", 0, false},
		{"garbage", "not-a-date", 0, false},
		{"zero time", time.Time{}, 0, false},
		{"unsupported type", []string{"x"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToEpochSeconds(tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestToEpochSecondsIdempotentOnMilliseconds(t *testing.T) {
	inputs := []any{int64(1759716000), int64(1759716000123), "1700000000", 1.8e9, "2030-01-01T00:00:00Z"}

	for _, input := range inputs {
		first, ok := ToEpochSeconds(input)
		if !ok {
			t.Fatalf("Expected %v to convert", input)
		}
		second, ok := ToEpochSeconds(first * 1000)
		if !ok {
			t.Fatalf("Expected %d to convert", first*1000)
		}
		if first != second {
			t.Errorf("Expected %d after round trip, got %d", first, second)
		}
	}
}

func TestDayKey(t *testing.T) {
	now := time.Date(2025, 3, 15, 23, 30, 0, 0, time.FixedZone("X", 5*3600))

	tests := []struct {
		label    string
		expected string
	}{
		{"Monday 06th Oct 2025 - Schedule Time UK GMT", "2025-10-06"},
		{"Saturday 1st November 2025", "2025-11-01"},
		{"22nd Dec 2025", "2025-12-22"},
		{"3 Foo 2025", "2025-01-03"},
		{"2025-10-07", "2025-10-07"},
		{"Schedule", "2025-03-15"},
		{"", "2025-03-15"},
	}

	for _, tt := range tests {
		if got := DayKey(tt.label, now); got != tt.expected {
			t.Errorf("DayKey(%q): expected %s, got %s", tt.label, tt.expected, got)
		}
	}
}

func TestEpochFromClock(t *testing.T) {
	got, ok := EpochFromClock("02:00", "2025-10-06")
	if !ok || got != scenarioEpoch {
		t.Errorf("Expected %d, got %d (ok=%v)", scenarioEpoch, got, ok)
	}

	got, ok = EpochFromClock("2:00", "2025-10-06")
	if !ok || got != scenarioEpoch {
		t.Errorf("Expected single-digit hour to parse, got %d (ok=%v)", got, ok)
	}

	for _, clock := range []string{"", "25:00", "12:75", "noon", "12:00:00"} {
		if _, ok := EpochFromClock(clock, "2025-10-06"); ok {
			t.Errorf("Expected clock %q to be rejected", clock)
		}
	}

	if _, ok := EpochFromClock("02:00", "October"); ok {
		t.Error("Expected invalid day key to be rejected")
	}
}

func TestIsOnCurrentLocalDay(t *testing.T) {
	original := time.Local
	time.Local = time.FixedZone("UTC-5", -5*3600)
	defer func() { time.Local = original }()

	// 2025-10-05 22:00 in the viewer's zone
	now := func() time.Time { return time.Unix(1759719600, 0) }

	if !IsOnCurrentLocalDay(Int64Ptr(scenarioEpoch), now) {
		t.Error("Expected 2025-10-06T02:00Z to fall on the viewer's 2025-10-05")
	}
	if IsOnCurrentLocalDay(Int64Ptr(1759752000), now) {
		t.Error("Expected 2025-10-06T12:00Z to fall on the viewer's next day")
	}
	if !IsOnCurrentLocalDay(nil, now) {
		t.Error("Expected unknown start to count as today")
	}
}
