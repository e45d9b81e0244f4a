package schedule

import (
	"cmp"
	"slices"
	"time"
)

type StatusClass string

const (
	StatusLive     StatusClass = "live"
	StatusUpcoming StatusClass = "upcoming"
	StatusEnded    StatusClass = "ended"
)

const (
	LabelLive         = "LIVE"
	LabelScheduled    = "Scheduled"
	LabelStartingSoon = "Starting Soon"
	LabelUpcoming     = "Upcoming"
	LabelEnded        = "Ended"
)

const (
	DefaultStartingSoonWindow = 60 * time.Minute
	DefaultAssumedDuration    = 180 * time.Minute
)

var statusRanks = map[StatusClass]int{
	StatusLive:     0,
	StatusUpcoming: 1,
	StatusEnded:    2,
}

type Status struct {
	Label    string      `json:"label"`
	Class    StatusClass `json:"category"`
	SortRank int         `json:"sortRank"`
}

type StatusConfig struct {
	StartingSoonWindow time.Duration
	AssumedDuration    time.Duration
}

type Classifier struct {
	startingSoon time.Duration
	assumed      time.Duration
}

func NewClassifier(config StatusConfig) *Classifier {
	c := &Classifier{
		startingSoon: config.StartingSoonWindow,
		assumed:      config.AssumedDuration,
	}
	if c.startingSoon <= 0 {
		c.startingSoon = DefaultStartingSoonWindow
	}
	if c.assumed <= 0 {
		c.assumed = DefaultAssumedDuration
	}
	return c
}

func newStatus(label string, class StatusClass) Status {
	return Status{Label: label, Class: class, SortRank: statusRanks[class]}
}

// Classify is total over every combination of alwaysLive, startsAt and endsAt.
func (c *Classifier) Classify(event Event, now time.Time) Status {
	if event.AlwaysLive {
		return newStatus(LabelLive, StatusLive)
	}
	if event.StartsAt == nil {
		return newStatus(LabelScheduled, StatusUpcoming)
	}

	nowMs := now.UnixMilli()
	startMs := *event.StartsAt * 1000

	if nowMs < startMs {
		if time.Duration(startMs-nowMs)*time.Millisecond <= c.startingSoon {
			return newStatus(LabelStartingSoon, StatusUpcoming)
		}
		return newStatus(LabelUpcoming, StatusUpcoming)
	}

	if event.EndsAt != nil {
		if nowMs > *event.EndsAt*1000 {
			return newStatus(LabelEnded, StatusEnded)
		}
		return newStatus(LabelLive, StatusLive)
	}

	if time.Duration(nowMs-startMs)*time.Millisecond > c.assumed {
		return newStatus(LabelEnded, StatusEnded)
	}
	return newStatus(LabelLive, StatusLive)
}

type ClassifiedEvent struct {
	Event
	Status Status `json:"status"`
}

// Sort orders live before upcoming before ended. Within a group earlier
// starts come first and unknown starts come last.
func (c *Classifier) Sort(events []Event, now time.Time) []ClassifiedEvent {
	out := make([]ClassifiedEvent, 0, len(events))
	for _, e := range events {
		out = append(out, ClassifiedEvent{Event: e, Status: c.Classify(e, now)})
	}

	slices.SortStableFunc(out, func(a, b ClassifiedEvent) int {
		if r := cmp.Compare(a.Status.SortRank, b.Status.SortRank); r != 0 {
			return r
		}
		switch {
		case a.StartsAt == nil && b.StartsAt == nil:
			return 0
		case a.StartsAt == nil:
			return 1
		case b.StartsAt == nil:
			return -1
		}
		return cmp.Compare(*a.StartsAt, *b.StartsAt)
	})

	return out
}
