package providers

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const (
	MatchAPIID = "streamed"

	defaultLookupConcurrency = 4
)

var (
	versusPattern = regexp.MustCompile(`(?i)\bvs\b`)

	womensKeywords = []string{"wnba", "women's", "women ", "(w)", " ladies", "woman"}

	// Soccer and Football are exempt from team gating.
	teamInferenceOrder = []schedule.Category{
		schedule.CategoryBasketball,
		schedule.CategoryWNBA,
		schedule.CategorySoccer,
		schedule.CategoryFootball,
		schedule.CategoryBaseball,
		schedule.CategoryHockey,
		schedule.CategoryMotorsports,
		schedule.CategoryFighting,
		schedule.CategoryTennis,
	}
)

func DefaultMatchAPIConfig() Config {
	return Config{
		Name:       MatchAPIID,
		URL:        "https://streamed.pk/api/matches/all",
		EmbedBase:  "https://streamed.pk",
		Settings:   ConfigSettings{Enabled: true, Timeout: 30},
		Categories: schedule.DefaultAliasTable(MatchAPIID),
	}
}

type matchSource struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

type match struct {
	ID       flexString    `json:"id"`
	Title    string        `json:"title"`
	Category string        `json:"category"`
	Date     *float64      `json:"date"`
	Poster   string        `json:"poster"`
	Sources  []matchSource `json:"sources"`
}

type matchStream struct {
	ID       flexString `json:"id"`
	StreamNo int        `json:"streamNo"`
	Language string     `json:"language"`
	HD       bool       `json:"hd"`
	EmbedURL string     `json:"embedUrl"`
	Source   string     `json:"source"`
}

type matchExtra struct {
	Sources []matchSource `json:"sources"`
}

// MatchAPI reads matches that carry one or more external stream sources.
// Without allow-all, each surviving match costs one language lookup.
type MatchAPI struct {
	emitter
	fetcher     Fetcher
	configs     *ConfigCache
	concurrency int
}

var _ Provider = (*MatchAPI)(nil)

func NewMatchAPI(deps Deps) *MatchAPI {
	return &MatchAPI{
		emitter:     newEmitter(MatchAPIID, deps),
		fetcher:     deps.Fetcher,
		configs:     deps.Configs,
		concurrency: cmp.Or(deps.LookupConcurrency, defaultLookupConcurrency),
	}
}

func (p *MatchAPI) ID() string       { return MatchAPIID }
func (p *MatchAPI) CacheKey() string { return cacheKey(MatchAPIID) }

func (p *MatchAPI) Fingerprint(params schedule.FilterParams) string {
	return fingerprint(map[string]bool{
		"allowAllStreams": params.AllowAllStreams,
		"showEnded":       params.ShowEnded,
	})
}

func (p *MatchAPI) FetchRaw(ctx context.Context) ([]byte, error) {
	config := p.configs.configFor(MatchAPIID)
	ctx, cancel := withTimeout(ctx, config.Settings.Timeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, config.URL)
}

func (p *MatchAPI) Normalize(ctx context.Context, raw []byte, params schedule.FilterParams) (schedule.Bundle, error) {
	defer observeNormalize(MatchAPIID, time.Now())

	config := p.configs.configFor(MatchAPIID)
	bundle := schedule.NewBundle()

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}

	type candidate struct {
		event   schedule.Event
		primary matchSource
	}
	candidates := make([]candidate, 0, len(records))

	for _, rawMatch := range records {
		var m match
		if err := json.Unmarshal(rawMatch, &m); err != nil {
			p.skip(&schedule.ParseError{Source: MatchAPIID, Record: string(rawMatch), Err: err})
			continue
		}
		if len(m.Sources) == 0 {
			p.drop("no_sources")
			continue
		}

		title := cmp.Or(m.Title, "Unknown Event")
		if !versusPattern.MatchString(title) {
			p.drop("no_matchup")
			continue
		}

		category, ok := p.resolveCategory(m.Category, title, config, params)
		if !ok {
			p.drop("unrecognized_teams")
			continue
		}

		event := schedule.Event{
			ID:       "streamed_" + string(m.ID),
			Name:     title,
			Category: category,
			Tag:      "Streamed",
			Poster:   absolutePoster(config.EmbedBase, m.Poster),
		}
		if m.Date != nil {
			event.StartsAt = schedule.Int64Ptr(int64(*m.Date / 1000))
		}
		event.Extra, _ = json.Marshal(matchExtra{Sources: m.Sources})

		if !p.filterer.Relevant(event, params) {
			p.drop("not_today")
			continue
		}

		candidates = append(candidates, candidate{event: event, primary: m.Sources[0]})
	}

	keep := make([]bool, len(candidates))
	if params.AllowAllStreams {
		for i := range keep {
			keep[i] = true
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(p.concurrency)
		for i, c := range candidates {
			g.Go(func() error {
				language, ok := p.streamLanguage(ctx, config, c.primary)
				keep[i] = !ok || strings.EqualFold(strings.TrimSpace(language), "english")
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	for i, c := range candidates {
		if !keep[i] {
			p.drop("language")
			continue
		}
		p.emit(bundle, c.event, params)
	}

	return bundle, nil
}

// resolveCategory maps the source label, infers from team names when the label
// is unknown, then applies women's-basketball and team-match gating.
func (p *MatchAPI) resolveCategory(label, title string, config *Config, params schedule.FilterParams) (schedule.Category, bool) {
	category, ok := schedule.MapCategory(label, config.Categories)
	if !ok {
		category, ok = p.matcher.InferCategory(title, teamInferenceOrder)
		if !ok {
			return "", false
		}
	}

	if category == schedule.CategoryBasketball && isWomensEvent(title) {
		category = schedule.CategoryWNBA
	}

	if category == schedule.CategorySoccer || category == schedule.CategoryFootball {
		return category, true
	}
	if len(p.matcher.MatchTeams(category, title).MatchedTeams) > 0 {
		return category, true
	}
	if fallback, ok := p.matcher.InferCategory(title, teamInferenceOrder); ok {
		return fallback, true
	}
	return category, params.AllowAllStreams
}

func isWomensEvent(title string) bool {
	lower := strings.ToLower(title)
	for _, keyword := range womensKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func absolutePoster(base, poster string) string {
	if poster == "" || strings.HasPrefix(poster, "http") {
		return poster
	}
	return strings.TrimRight(base, "/") + poster
}

func (p *MatchAPI) streamURL(config *Config, src matchSource) string {
	return fmt.Sprintf("%s/api/stream/%s/%s",
		strings.TrimRight(config.EmbedBase, "/"), url.PathEscape(src.Source), url.PathEscape(src.ID))
}

func (p *MatchAPI) streams(ctx context.Context, config *Config, src matchSource) ([]matchStream, error) {
	ctx, cancel := withTimeout(ctx, config.Settings.Timeout)
	defer cancel()

	data, err := p.fetcher.Fetch(ctx, p.streamURL(config, src))
	if err != nil {
		return nil, err
	}

	var streams []matchStream
	if err := json.Unmarshal(data, &streams); err != nil {
		return nil, &schedule.ParseError{Source: MatchAPIID, Record: src.Source + "/" + src.ID, Err: err}
	}
	return streams, nil
}

// streamLanguage reports false when the lookup failed or carried no language.
func (p *MatchAPI) streamLanguage(ctx context.Context, config *Config, src matchSource) (string, bool) {
	streams, err := p.streams(ctx, config, src)
	if err != nil {
		slog.Warn("Language lookup failed", "provider", MatchAPIID, "source", src.Source, "id", src.ID, "error", err)
		return "", false
	}
	if len(streams) == 0 || streams[0].Language == "" {
		return "", false
	}
	return streams[0].Language, true
}

func (p *MatchAPI) ResolvePlaybackTarget(ctx context.Context, event schedule.Event, selection schedule.PlaybackSelection) (string, error) {
	var extra matchExtra
	if len(event.Extra) > 0 {
		if err := json.Unmarshal(event.Extra, &extra); err != nil {
			return "", &schedule.ParseError{Source: MatchAPIID, Record: event.ID, Err: err}
		}
	}

	candidates := make([]matchSource, 0, len(extra.Sources)+2)
	candidates = append(candidates, matchSource{Source: selection.Source, ID: selection.SourceID})
	if len(extra.Sources) > 0 {
		candidates = append(candidates, extra.Sources[0])
	}
	candidates = append(candidates, extra.Sources...)

	config := p.configs.configFor(MatchAPIID)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.Source == "" || c.ID == "" {
			continue
		}
		key := c.Source + ":" + c.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		streams, err := p.streams(ctx, config, c)
		if err != nil {
			return "", fmt.Errorf("failed to fetch streams for %s: %w", key, err)
		}
		if playable := playableStreams(streams, selection.AllowAllStreams); len(playable) > 0 {
			return playable[0].EmbedURL, nil
		}
	}

	slog.Warn("No playable streams after filtering", "provider", MatchAPIID, "id", event.ID, "allow_all", selection.AllowAllStreams)
	return "", nil
}

func playableStreams(streams []matchStream, allowAll bool) []matchStream {
	out := make([]matchStream, 0, len(streams))
	for _, s := range streams {
		if allowAll {
			if s.EmbedURL != "" {
				out = append(out, s)
			}
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Language), "english") {
			out = append(out, s)
		}
	}
	return out
}
