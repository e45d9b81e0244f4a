package schedule

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Values above this are epoch milliseconds, anything else is epoch seconds.
const millisecondThreshold = 1e12

var (
	dayLabelPattern = regexp.MustCompile(`(\d{1,2})(?:st|nd|rd|th)?\s+([A-Za-z]{3,9})\s+(\d{4})`)
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

	monthNumbers = map[string]string{
		"jan": "01", "feb": "02", "mar": "03", "apr": "04",
		"may": "05", "jun": "06", "jul": "07", "aug": "08",
		"sep": "09", "oct": "10", "nov": "11", "dec": "12",
	}
)

// ToEpochSeconds converts a timestamp in any of the encodings seen upstream.
// Strings without a zone are read as UTC. It reports false for anything it
// cannot interpret.
func ToEpochSeconds(value any) (int64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case time.Time:
		if v.IsZero() {
			return 0, false
		}
		return v.Unix(), true
	case *time.Time:
		if v == nil {
			return 0, false
		}
		return ToEpochSeconds(*v)
	case int:
		return fromNumber(float64(v))
	case int64:
		return fromNumber(float64(v))
	case int32:
		return fromNumber(float64(v))
	case float64:
		return fromNumber(v)
	case float32:
		return fromNumber(float64(v))
	case json.Number:
		return ToEpochSeconds(string(v))
	case string:
		return fromString(v)
	default:
		return 0, false
	}
}

func fromNumber(n float64) (int64, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if n > millisecondThreshold {
		return int64(math.Floor(n / 1000)), true
	}
	return int64(math.Floor(n)), true
}

func fromString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromNumber(n)
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// DayKey reduces a free-text day banner such as
// "Monday 06th Oct 2025 - Schedule Time UK GMT" to "2025-10-06".
// Labels without a recognizable day fall back to a directly parseable date,
// then to the current UTC day.
func DayKey(label string, now time.Time) string {
	if m := dayLabelPattern.FindStringSubmatch(label); m != nil {
		day := m[1]
		if len(day) == 1 {
			day = "0" + day
		}
		month, ok := monthNumbers[strings.ToLower(m[2][:3])]
		if !ok {
			month = "01"
		}
		return fmt.Sprintf("%s-%s-%s", m[3], month, day)
	}

	if t, err := dateparse.ParseIn(strings.TrimSpace(label), time.UTC); err == nil {
		return t.UTC().Format("2006-01-02")
	}

	return now.UTC().Format("2006-01-02")
}

// EpochFromClock combines an "HH:MM" clock reading (UTC) with a YYYY-MM-DD day key.
func EpochFromClock(clock, dayKey string) (int64, bool) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return 0, false
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, false
	}

	day, err := time.ParseInLocation("2006-01-02", dayKey, time.UTC)
	if err != nil {
		return 0, false
	}

	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).Unix(), true
}

// IsOnCurrentLocalDay compares calendar days in the viewer's zone (time.Local).
// Events without a start time always count as today.
func IsOnCurrentLocalDay(epochSeconds *int64, now func() time.Time) bool {
	if epochSeconds == nil {
		return true
	}

	target := time.Unix(*epochSeconds, 0).In(time.Local)
	current := now().In(time.Local)

	ty, tm, td := target.Date()
	cy, cm, cd := current.Date()
	return ty == cy && tm == cm && td == cd
}
