package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/stream-comb/app/metrics"
	"github.com/lysyi3m/stream-comb/app/schedule"
)

const DefaultTTL = 24 * time.Hour

type Entry struct {
	Data        schedule.Bundle `json:"data"`
	Timestamp   int64           `json:"timestamp"`
	Fingerprint string          `json:"fingerprint"`
}

func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.Timestamp))
}

// Gate serves normalized bundles while they are younger than the TTL and were
// produced under the same filter fingerprint. Stale entries stay in the store
// until overwritten or purged.
type Gate struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewGate(store Store, ttl time.Duration, now func() time.Time) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, ttl: ttl, now: now}
}

// Read returns nil when the entry is absent, expired or fingerprinted differently.
func (g *Gate) Read(ctx context.Context, key, fingerprint string) (*Entry, error) {
	entry, err := g.load(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}

	if entry.Fingerprint != fingerprint {
		metrics.CacheReads.WithLabelValues("fingerprint").Inc()
		slog.Debug("Cache fingerprint mismatch", "key", key)
		return nil, nil
	}

	if entry.Age(g.now()) > g.ttl {
		metrics.CacheReads.WithLabelValues("expired").Inc()
		slog.Debug("Cache entry expired", "key", key, "age", entry.Age(g.now()).String())
		return nil, nil
	}

	metrics.CacheReads.WithLabelValues("hit").Inc()
	return entry, nil
}

// ReadStale ignores the TTL but still requires a matching fingerprint.
// It backs the degraded path when an upstream fetch fails.
func (g *Gate) ReadStale(ctx context.Context, key, fingerprint string) (*Entry, error) {
	entry, err := g.load(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.Fingerprint != fingerprint {
		return nil, nil
	}
	metrics.CacheReads.WithLabelValues("stale").Inc()
	return entry, nil
}

func (g *Gate) Write(ctx context.Context, key string, bundle schedule.Bundle, fingerprint string) (*Entry, error) {
	entry := &Entry{
		Data:        bundle,
		Timestamp:   g.now().UnixMilli(),
		Fingerprint: fingerprint,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := g.store.Set(ctx, key, data); err != nil {
		return nil, fmt.Errorf("failed to write cache entry: %w", err)
	}
	return entry, nil
}

func (g *Gate) Invalidate(ctx context.Context, key string) error {
	if err := g.store.Clear(ctx, key); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	return nil
}

func (g *Gate) InvalidateAll(ctx context.Context) error {
	if err := g.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	return nil
}

func (g *Gate) load(ctx context.Context, key string) (*Entry, error) {
	data, err := g.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		metrics.CacheReads.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry behaves like a miss and is replaced on the next write.
		slog.Warn("Discarding unreadable cache entry", "key", key, "error", err)
		metrics.CacheReads.WithLabelValues("miss").Inc()
		return nil, nil
	}
	return &entry, nil
}
