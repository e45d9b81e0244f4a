package providers

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const TimestampFeedID = "pptv"

func DefaultTimestampFeedConfig() Config {
	return Config{
		Name:          TimestampFeedID,
		URL:           "https://old.ppv.to/api/streams",
		EmbedBase:     "https://old.ppv.to",
		Settings:      ConfigSettings{Enabled: true, Timeout: 30},
		ExcludedNames: []string{"24/7 cows", "master stream test"},
		Categories:    schedule.DefaultAliasTable(TimestampFeedID),
	}
}

type timestampFeedPayload struct {
	Success flexBool              `json:"success"`
	Streams []timestampFeedBucket `json:"streams"`
}

type timestampFeedBucket struct {
	Category     string            `json:"category"`
	CategoryName string            `json:"category_name"`
	Streams      []json.RawMessage `json:"streams"`
}

type timestampFeedStream struct {
	ID               flexString      `json:"id"`
	Name             string          `json:"name"`
	Tag              string          `json:"tag"`
	Poster           string          `json:"poster"`
	StartsAt         json.RawMessage `json:"starts_at"`
	EndsAt           json.RawMessage `json:"ends_at"`
	Iframe           string          `json:"iframe"`
	URIName          string          `json:"uri_name"`
	AlwaysLive       flexBool        `json:"always_live"`
	AllowPastStreams flexBool        `json:"allowpaststreams"`
}

// timestampFeedExtra is kept on the event for playback resolution.
type timestampFeedExtra struct {
	Iframe           string `json:"iframe,omitempty"`
	URIName          string `json:"uri_name,omitempty"`
	AllowPastStreams bool   `json:"allowpaststreams,omitempty"`
}

// TimestampFeed reads category buckets of streams with epoch timestamps.
type TimestampFeed struct {
	emitter
	fetcher Fetcher
	configs *ConfigCache
}

var _ Provider = (*TimestampFeed)(nil)

func NewTimestampFeed(deps Deps) *TimestampFeed {
	return &TimestampFeed{
		emitter: newEmitter(TimestampFeedID, deps),
		fetcher: deps.Fetcher,
		configs: deps.Configs,
	}
}

func (p *TimestampFeed) ID() string       { return TimestampFeedID }
func (p *TimestampFeed) CacheKey() string { return cacheKey(TimestampFeedID) }

func (p *TimestampFeed) Fingerprint(params schedule.FilterParams) string {
	return fingerprint(map[string]bool{"showEnded": params.ShowEnded})
}

func (p *TimestampFeed) FetchRaw(ctx context.Context) ([]byte, error) {
	config := p.configs.configFor(TimestampFeedID)
	ctx, cancel := withTimeout(ctx, config.Settings.Timeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, config.URL)
}

func (p *TimestampFeed) Normalize(ctx context.Context, raw []byte, params schedule.FilterParams) (schedule.Bundle, error) {
	defer observeNormalize(TimestampFeedID, time.Now())

	config := p.configs.configFor(TimestampFeedID)
	bundle := schedule.NewBundle()

	var payload timestampFeedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode streams: %w", err)
	}
	if !payload.Success {
		slog.Warn("Upstream reported failure", "provider", TimestampFeedID)
		return bundle, nil
	}

	for _, bucket := range payload.Streams {
		label := cmp.Or(bucket.Category, bucket.CategoryName)
		category, ok := schedule.MapCategory(label, config.Categories)
		if !ok {
			slog.Debug("Unmapped category", "provider", TimestampFeedID, "category", label)
			continue
		}

		for _, rawStream := range bucket.Streams {
			var src timestampFeedStream
			if err := json.Unmarshal(rawStream, &src); err != nil {
				p.skip(&schedule.ParseError{Source: TimestampFeedID, Record: string(rawStream), Err: err})
				continue
			}

			if src.Iframe == "" && src.URIName == "" {
				p.drop("no_target")
				continue
			}

			event := p.normalizeStream(src, category)
			if schedule.IsDenylisted(event.Name, config.ExcludedNames) {
				p.drop("denylisted")
				continue
			}
			p.emit(bundle, event, params)
		}
	}

	return bundle, nil
}

func (p *TimestampFeed) normalizeStream(src timestampFeedStream, category schedule.Category) schedule.Event {
	event := schedule.Event{
		ID:         string(src.ID),
		Name:       cmp.Or(src.Name, "Unknown Event"),
		Category:   category,
		StartsAt:   timestampField(src.StartsAt),
		EndsAt:     timestampField(src.EndsAt),
		AlwaysLive: bool(src.AlwaysLive),
		Tag:        cmp.Or(src.Tag, "PPTV"),
		Poster:     src.Poster,
	}

	extra, _ := json.Marshal(timestampFeedExtra{
		Iframe:           src.Iframe,
		URIName:          src.URIName,
		AllowPastStreams: bool(src.AllowPastStreams),
	})
	event.Extra = extra

	return event
}

// timestampField treats null, 0, "" and false as unknown.
func timestampField(raw json.RawMessage) *int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil
	}

	switch v := value.(type) {
	case nil, bool:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return nil
		}
	}

	epoch, ok := schedule.ToEpochSeconds(value)
	if !ok {
		return nil
	}
	return schedule.Int64Ptr(epoch)
}

func (p *TimestampFeed) ResolvePlaybackTarget(ctx context.Context, event schedule.Event, selection schedule.PlaybackSelection) (string, error) {
	var extra timestampFeedExtra
	if len(event.Extra) > 0 {
		if err := json.Unmarshal(event.Extra, &extra); err != nil {
			return "", &schedule.ParseError{Source: TimestampFeedID, Record: event.ID, Err: err}
		}
	}

	if extra.Iframe != "" {
		return extra.Iframe, nil
	}
	if extra.URIName != "" {
		config := p.configs.configFor(TimestampFeedID)
		return fmt.Sprintf("%s/stream/%s", strings.TrimRight(config.EmbedBase, "/"), extra.URIName), nil
	}

	slog.Warn("No embed target for stream", "provider", TimestampFeedID, "id", event.ID)
	return "", nil
}
