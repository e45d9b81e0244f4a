package providers

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const ChannelScheduleID = "daddystreams"

func DefaultChannelScheduleConfig() Config {
	return Config{
		Name:      ChannelScheduleID,
		URL:       "https://daddylivestream.com/schedule/schedule-generated.php",
		EmbedBase: "https://dlhd.dad/embed",
		Settings:  ConfigSettings{Enabled: true, Timeout: 30},
		ExcludeKeywords: []string{
			"uk", "ca", "deportes", "cz", "nl", "argentina", "mexico",
			"brazil", "israel", "serbia", "france", "russia", "ontario",
		},
		Categories: schedule.DefaultAliasTable(ChannelScheduleID),
	}
}

type scheduleChannel struct {
	ChannelName string     `json:"channel_name"`
	ChannelID   flexString `json:"channel_id"`
}

type scheduleEvent struct {
	ID       flexString      `json:"id"`
	Time     string          `json:"time"`
	Event    string          `json:"event"`
	Name     string          `json:"name"`
	Poster   string          `json:"poster"`
	Channels json.RawMessage `json:"channels"`
}

// ChannelSchedule reads a daily schedule keyed by a rolling day banner.
// Only the first banner is processed; later keys are placeholders.
type ChannelSchedule struct {
	emitter
	fetcher Fetcher
	configs *ConfigCache
}

var _ Provider = (*ChannelSchedule)(nil)

func NewChannelSchedule(deps Deps) *ChannelSchedule {
	return &ChannelSchedule{
		emitter: newEmitter(ChannelScheduleID, deps),
		fetcher: deps.Fetcher,
		configs: deps.Configs,
	}
}

func (p *ChannelSchedule) ID() string       { return ChannelScheduleID }
func (p *ChannelSchedule) CacheKey() string { return cacheKey(ChannelScheduleID) }

func (p *ChannelSchedule) Fingerprint(params schedule.FilterParams) string {
	return fingerprint(map[string]bool{"showEnded": params.ShowEnded})
}

func (p *ChannelSchedule) FetchRaw(ctx context.Context) ([]byte, error) {
	config := p.configs.configFor(ChannelScheduleID)
	ctx, cancel := withTimeout(ctx, config.Settings.Timeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, config.URL)
}

func (p *ChannelSchedule) Normalize(ctx context.Context, raw []byte, params schedule.FilterParams) (schedule.Bundle, error) {
	defer observeNormalize(ChannelScheduleID, time.Now())

	config := p.configs.configFor(ChannelScheduleID)
	bundle := schedule.NewBundle()

	days, err := objectMembers(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if len(days) == 0 {
		return bundle, nil
	}

	dayKey := schedule.DayKey(days[0].Key, p.now())

	categories, err := objectMembers(days[0].Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode day %q: %w", days[0].Key, err)
	}

	for _, sport := range categories {
		category, ok := schedule.MapCategory(sport.Key, config.Categories)
		if !ok {
			slog.Debug("Unmapped category", "provider", ChannelScheduleID, "category", sport.Key)
			continue
		}

		var events []json.RawMessage
		if err := json.Unmarshal(sport.Value, &events); err != nil {
			p.skip(&schedule.ParseError{Source: ChannelScheduleID, Record: sport.Key, Err: err})
			continue
		}

		for _, rawEvent := range events {
			event, err := p.normalizeEvent(rawEvent, category, dayKey, config)
			if err != nil {
				p.skip(err)
				continue
			}
			if event == nil {
				continue
			}
			p.emit(bundle, *event, params)
		}
	}

	return bundle, nil
}

func (p *ChannelSchedule) normalizeEvent(raw json.RawMessage, category schedule.Category, dayKey string, config *Config) (*schedule.Event, *schedule.ParseError) {
	var src scheduleEvent
	if err := json.Unmarshal(raw, &src); err != nil {
		return nil, &schedule.ParseError{Source: ChannelScheduleID, Record: string(raw), Err: err}
	}

	name := cmp.Or(src.Event, src.Name, "Unknown Event")

	channels, err := p.channels(src.Channels, config.ExcludeKeywords)
	if err != nil {
		return nil, &schedule.ParseError{Source: ChannelScheduleID, Record: name, Err: err}
	}
	if len(channels) == 0 {
		p.drop("no_channels")
		return nil, nil
	}

	event := &schedule.Event{
		ID:       cmp.Or(string(src.ID), fmt.Sprintf("%s_%s_%s", name, cmp.Or(src.Time, "time"), dayKey)),
		Name:     name,
		Category: category,
		Channels: channels,
		Tag:      channels[0].ChannelName,
		Poster:   src.Poster,
	}

	if startsAt, ok := schedule.EpochFromClock(src.Time, dayKey); ok {
		event.StartsAt = schedule.Int64Ptr(startsAt)
	}

	return event, nil
}

func (p *ChannelSchedule) channels(raw json.RawMessage, excluded []string) ([]schedule.Channel, error) {
	items, err := listOrObject(raw)
	if err != nil {
		return nil, err
	}

	channels := make([]schedule.Channel, 0, len(items))
	for _, item := range items {
		var ch scheduleChannel
		if err := json.Unmarshal(item, &ch); err != nil {
			return nil, err
		}
		name := cmp.Or(strings.TrimSpace(ch.ChannelName), "Unknown Channel")
		if keyword, blocked := schedule.MatchedKeyword(name, excluded); blocked {
			slog.Debug("Dropping regional channel", "provider", ChannelScheduleID, "channel", name, "keyword", keyword)
			continue
		}
		channels = append(channels, schedule.Channel{ChannelID: string(ch.ChannelID), ChannelName: name})
	}
	return channels, nil
}

func (p *ChannelSchedule) ResolvePlaybackTarget(ctx context.Context, event schedule.Event, selection schedule.PlaybackSelection) (string, error) {
	channelID := selection.ChannelID
	if channelID == "" && len(event.Channels) > 0 {
		channelID = event.Channels[0].ChannelID
	}
	if channelID == "" {
		return "", nil
	}
	config := p.configs.configFor(ChannelScheduleID)
	return fmt.Sprintf("%s/stream-%s.php", strings.TrimRight(config.EmbedBase, "/"), channelID), nil
}
