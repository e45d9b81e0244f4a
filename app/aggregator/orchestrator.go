package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/lysyi3m/stream-comb/app/cache"
	"github.com/lysyi3m/stream-comb/app/database"
	"github.com/lysyi3m/stream-comb/app/metrics"
	"github.com/lysyi3m/stream-comb/app/providers"
	"github.com/lysyi3m/stream-comb/app/schedule"
)

const degradedMessage = "Using cached data (network error)"

var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoTarget      = errors.New("no playable target")
)

type Options struct {
	Registry   *providers.Registry
	Gate       *cache.Gate
	Settings   database.SettingsRepository
	Classifier *schedule.Classifier
	Now        func() time.Time

	DefaultProvider string
	DefaultCategory schedule.Category
}

// Snapshot is the published view of the active provider.
type Snapshot struct {
	Provider  string                `json:"provider"`
	Category  schedule.Category     `json:"category"`
	Filters   schedule.FilterParams `json:"filters"`
	Bundle    schedule.Bundle       `json:"bundle"`
	FetchedAt int64                 `json:"fetchedAt,omitempty"`
	Degraded  bool                  `json:"degraded"`
	Error     string                `json:"error,omitempty"`
	Loading   bool                  `json:"loading"`
}

// Orchestrator owns the active selection and the published bundle.
// Refreshes are not serialized: each captures the generation at start and
// its result is dropped if the selection or filters changed meanwhile.
type Orchestrator struct {
	registry   *providers.Registry
	gate       *cache.Gate
	settings   database.SettingsRepository
	classifier *schedule.Classifier
	now        func() time.Time

	mu             sync.RWMutex
	provider       string
	category       schedule.Category
	categoryChosen bool
	filters        schedule.FilterParams
	generation     uint64

	bundle    schedule.Bundle
	fetchedAt int64
	degraded  bool
	lastError string
	loading   int
}

func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = schedule.NewClassifier(schedule.StatusConfig{})
	}

	provider := opts.DefaultProvider
	if provider == "" || !opts.Registry.Has(provider) {
		provider = providers.DefaultProviderID
	}
	category := opts.DefaultCategory
	if !category.Valid() {
		category = schedule.CategoryBasketball
	}

	return &Orchestrator{
		registry:   opts.Registry,
		gate:       opts.Gate,
		settings:   opts.Settings,
		classifier: classifier,
		now:        now,
		provider:   provider,
		category:   category,
		bundle:     schedule.NewBundle(),
	}
}

func (o *Orchestrator) Provider() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.provider
}

func (o *Orchestrator) Filters() schedule.FilterParams {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.filters
}

// SetProvider reports whether the selection changed. A change clears the
// published bundle; the caller is expected to force a refresh.
func (o *Orchestrator) SetProvider(ctx context.Context, id string) (bool, error) {
	if !o.registry.Has(id) {
		return false, fmt.Errorf("unknown provider '%s'", id)
	}

	o.mu.Lock()
	if o.provider == id {
		o.mu.Unlock()
		return false, nil
	}
	o.provider = id
	o.generation++
	o.bundle = schedule.NewBundle()
	o.fetchedAt = 0
	o.degraded = false
	o.lastError = ""
	category := o.category
	o.mu.Unlock()

	slog.Info("Provider selected", "provider", id)
	return true, o.persistSelection(ctx, id, category)
}

func (o *Orchestrator) SetCategory(ctx context.Context, category schedule.Category) error {
	if !category.Valid() {
		return fmt.Errorf("unknown category '%s'", category)
	}

	o.mu.Lock()
	o.category = category
	o.categoryChosen = true
	provider := o.provider
	o.mu.Unlock()

	return o.persistSelection(ctx, provider, category)
}

// SetFilters reports whether the parameters changed.
func (o *Orchestrator) SetFilters(ctx context.Context, params schedule.FilterParams) (bool, error) {
	o.mu.Lock()
	if o.filters == params {
		o.mu.Unlock()
		return false, nil
	}
	o.filters = params
	o.generation++
	o.mu.Unlock()

	slog.Info("Filters updated", "allow_all_streams", params.AllowAllStreams, "show_ended", params.ShowEnded)
	return true, o.persistSettings(ctx, params)
}

// Refresh serves the cached bundle when it is fresh and was built under the
// current filters, otherwise fetches and normalizes. On failure a stale entry
// with the same fingerprint is published as degraded.
func (o *Orchestrator) Refresh(ctx context.Context, force bool) error {
	o.mu.Lock()
	generation := o.generation
	providerID := o.provider
	params := o.filters
	o.loading++
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.loading--
		o.mu.Unlock()
	}()

	p, err := o.registry.Get(providerID)
	if err != nil {
		return err
	}
	key := p.CacheKey()
	fingerprint := p.Fingerprint(params)

	if !force {
		entry, err := o.gate.Read(ctx, key, fingerprint)
		if err != nil {
			slog.Warn("Cache read failed", "provider", providerID, "error", err)
		}
		if entry != nil {
			o.publish(ctx, generation, providerID, entry.Data, entry.Timestamp, false, "", "cached")
			return nil
		}
	}

	bundle, fetchErr := o.fetch(ctx, p, params)
	if fetchErr != nil {
		slog.Error("Refresh failed", "provider", providerID, "error", fetchErr)

		stale, err := o.gate.ReadStale(ctx, key, fingerprint)
		if err != nil {
			slog.Warn("Stale cache read failed", "provider", providerID, "error", err)
		}
		if stale != nil {
			o.publish(ctx, generation, providerID, stale.Data, stale.Timestamp, true, degradedMessage, "degraded")
			return nil
		}

		o.fail(generation, providerID, fetchErr)
		return fmt.Errorf("failed to refresh %s: %w", providerID, fetchErr)
	}

	fetchedAt := o.now().UnixMilli()
	if entry, err := o.gate.Write(ctx, key, bundle, fingerprint); err != nil {
		slog.Warn("Cache write failed", "provider", providerID, "error", err)
	} else {
		fetchedAt = entry.Timestamp
	}

	o.publish(ctx, generation, providerID, bundle, fetchedAt, false, "", "fetched")
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, p providers.Provider, params schedule.FilterParams) (schedule.Bundle, error) {
	raw, err := p.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	bundle, err := p.Normalize(ctx, raw, params)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s: %w", p.ID(), err)
	}
	return bundle, nil
}

func (o *Orchestrator) publish(ctx context.Context, generation uint64, providerID string, bundle schedule.Bundle, fetchedAt int64, degraded bool, message, outcome string) {
	o.mu.Lock()
	if generation != o.generation {
		o.mu.Unlock()
		slog.Debug("Discarding refresh for inactive selection", "provider", providerID)
		metrics.Refreshes.WithLabelValues(providerID, "discarded").Inc()
		return
	}

	o.bundle = fillCategories(bundle)
	o.fetchedAt = fetchedAt
	o.degraded = degraded
	o.lastError = message

	var autoSelected schedule.Category
	if !o.categoryChosen {
		if category, ok := o.bundle.FirstPopulated(); ok {
			o.category = category
			o.categoryChosen = true
			autoSelected = category
		}
	}
	count := o.bundle.Count()
	o.mu.Unlock()

	metrics.Refreshes.WithLabelValues(providerID, outcome).Inc()
	metrics.PublishedEvents.WithLabelValues(providerID).Set(float64(count))
	slog.Info("Schedule published", "provider", providerID, "events", count, "outcome", outcome,
		"fetched_at", strconv.FormatInt(fetchedAt, 10))

	if autoSelected != "" {
		if err := o.persistSelection(ctx, providerID, autoSelected); err != nil {
			slog.Warn("Failed to persist initial category", "category", autoSelected, "error", err)
		}
	}
}

func (o *Orchestrator) fail(generation uint64, providerID string, err error) {
	metrics.Refreshes.WithLabelValues(providerID, "failed").Inc()

	o.mu.Lock()
	defer o.mu.Unlock()
	if generation != o.generation {
		return
	}
	o.degraded = false
	o.lastError = err.Error()
}

func fillCategories(bundle schedule.Bundle) schedule.Bundle {
	out := schedule.NewBundle()
	for category, events := range bundle {
		if events != nil {
			out[category] = events
		}
	}
	return out
}

// InvalidateCache drops every cached bundle. The published bundle stays until
// the next refresh replaces it.
func (o *Orchestrator) InvalidateCache(ctx context.Context) error {
	if err := o.gate.InvalidateAll(ctx); err != nil {
		return err
	}
	slog.Info("Cache purged")
	return nil
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Snapshot{
		Provider:  o.provider,
		Category:  o.category,
		Filters:   o.filters,
		Bundle:    o.bundle,
		FetchedAt: o.fetchedAt,
		Degraded:  o.degraded,
		Error:     o.lastError,
		Loading:   o.loading > 0,
	}
}

// Events returns one category of the published bundle classified at now.
// An empty category selects the active one.
func (o *Orchestrator) Events(category schedule.Category) (schedule.Category, []schedule.ClassifiedEvent) {
	o.mu.RLock()
	if category == "" {
		category = o.category
	}
	events := o.bundle[category]
	o.mu.RUnlock()

	return category, o.classifier.Sort(events, o.now())
}

func (o *Orchestrator) Event(id string) (schedule.Event, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, category := range schedule.AllCategories {
		for _, event := range o.bundle[category] {
			if event.ID == id {
				return event, true
			}
		}
	}
	return schedule.Event{}, false
}

// ResolvePlayback builds the play target of a published event on demand.
func (o *Orchestrator) ResolvePlayback(ctx context.Context, eventID string, selection schedule.PlaybackSelection) (string, error) {
	event, ok := o.Event(eventID)
	if !ok {
		return "", ErrEventNotFound
	}

	p, err := o.registry.Get(event.Source)
	if err != nil {
		return "", err
	}

	selection.AllowAllStreams = o.Filters().AllowAllStreams
	target, err := p.ResolvePlaybackTarget(ctx, event, selection)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", ErrNoTarget
	}
	return target, nil
}
