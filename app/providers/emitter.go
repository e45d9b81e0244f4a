package providers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lysyi3m/stream-comb/app/metrics"
	"github.com/lysyi3m/stream-comb/app/schedule"
)

// emitter is the final step every adapter shares: branding, invariant repair
// and the relevance filter.
type emitter struct {
	source   string
	matcher  *schedule.TeamMatcher
	filterer *schedule.Filterer
}

func newEmitter(source string, deps Deps) emitter {
	matcher := deps.Matcher
	if matcher == nil {
		matcher = schedule.NewDefaultTeamMatcher("/logos")
	}
	filterer := deps.Filterer
	if filterer == nil {
		filterer = schedule.NewFilterer(nil)
	}
	return emitter{source: source, matcher: matcher, filterer: filterer}
}

func (e emitter) now() time.Time {
	return e.filterer.Now()
}

func (e emitter) drop(reason string) {
	metrics.DroppedEvents.WithLabelValues(e.source, reason).Inc()
}

func (e emitter) skip(err *schedule.ParseError) {
	slog.Warn("Skipping malformed record", "provider", e.source, "record", err.Record, "error", err.Err)
	e.drop("malformed")
}

// emit reports whether the event was added to the bundle.
func (e emitter) emit(bundle schedule.Bundle, event schedule.Event, params schedule.FilterParams) bool {
	event.Source = e.source

	if event.StartsAt != nil && event.EndsAt != nil && *event.EndsAt < *event.StartsAt {
		slog.Debug("Discarding end time before start", "provider", e.source, "id", event.ID)
		event.EndsAt = nil
	}

	if !e.filterer.Relevant(event, params) {
		e.drop("not_today")
		return false
	}

	event.TeamBranding = e.matcher.Branding(event.Category, event.Name)
	if event.Channels == nil {
		event.Channels = []schedule.Channel{}
	}

	bundle[event.Category] = append(bundle[event.Category], event)
	return true
}

func fingerprint(fields map[string]bool) string {
	data, _ := json.Marshal(fields)
	return string(data)
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

func observeNormalize(source string, start time.Time) {
	metrics.NormalizeDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
