package providers

import (
	"context"
	"maps"
	"slices"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

// Provider is one upstream schedule source.
type Provider interface {
	ID() string
	CacheKey() string
	// Fingerprint encodes the filter parameters that influence Normalize.
	Fingerprint(params schedule.FilterParams) string
	FetchRaw(ctx context.Context) ([]byte, error)
	Normalize(ctx context.Context, raw []byte, params schedule.FilterParams) (schedule.Bundle, error)
	// ResolvePlaybackTarget returns "" when no target can be built.
	ResolvePlaybackTarget(ctx context.Context, event schedule.Event, selection schedule.PlaybackSelection) (string, error)
}

type Config struct {
	Name            string              `yaml:"-"`
	URL             string              `yaml:"url"`
	EmbedBase       string              `yaml:"embed_base"`
	Settings        ConfigSettings      `yaml:"settings"`
	ExcludeKeywords []string            `yaml:"exclude_keywords"`
	ExcludedNames   []string            `yaml:"excluded_names"`
	Categories      schedule.AliasTable `yaml:"categories"`
}

type ConfigSettings struct {
	Enabled bool `yaml:"enabled"`
	Timeout int  `yaml:"timeout"`
}

func (c Config) clone() Config {
	out := c
	out.ExcludeKeywords = slices.Clone(c.ExcludeKeywords)
	out.ExcludedNames = slices.Clone(c.ExcludedNames)
	out.Categories = make(schedule.AliasTable, len(c.Categories))
	for category, aliases := range c.Categories {
		out.Categories[category] = slices.Clone(aliases)
	}
	return out
}

// Deps are shared by every adapter.
type Deps struct {
	Fetcher  Fetcher
	Matcher  *schedule.TeamMatcher
	Filterer *schedule.Filterer
	Configs  *ConfigCache

	LookupConcurrency int
}

func cacheKey(id string) string {
	return "schedule_" + id
}

// DefaultConfigs returns the built-in configuration of every adapter.
func DefaultConfigs() map[string]*Config {
	defaults := []Config{
		DefaultTimestampFeedConfig(),
		DefaultChannelScheduleConfig(),
		DefaultHTMLListingsConfig(),
		DefaultMatchAPIConfig(),
	}
	out := make(map[string]*Config, len(defaults))
	for _, c := range defaults {
		c := c.clone()
		out[c.Name] = &c
	}
	return out
}

func sortedIDs[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
