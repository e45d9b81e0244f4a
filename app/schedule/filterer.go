package schedule

import (
	"strings"
	"time"
)

// Filterer applies the relevance rules shared by every adapter.
type Filterer struct {
	now func() time.Time
}

func NewFilterer(now func() time.Time) *Filterer {
	if now == nil {
		now = time.Now
	}
	return &Filterer{now: now}
}

func (f *Filterer) Now() time.Time {
	return f.now()
}

// Relevant keeps always-live events and, unless ended events are requested,
// only events on the viewer's current day.
func (f *Filterer) Relevant(event Event, params FilterParams) bool {
	if event.AlwaysLive || params.ShowEnded {
		return true
	}
	return IsOnCurrentLocalDay(event.StartsAt, f.now)
}

func (f *Filterer) Run(events []Event, params FilterParams) []Event {
	kept := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Relevant(e, params) {
			kept = append(kept, e)
		}
	}
	return kept
}

// MatchedKeyword returns the first keyword found in value, case-insensitively.
func MatchedKeyword(value string, keywords []string) (string, bool) {
	lower := strings.ToLower(value)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return keyword, true
		}
	}
	return "", false
}

// IsDenylisted compares trimmed names case-insensitively.
func IsDenylisted(name string, denylist []string) bool {
	name = strings.TrimSpace(name)
	for _, denied := range denylist {
		if strings.EqualFold(name, strings.TrimSpace(denied)) {
			return true
		}
	}
	return false
}
