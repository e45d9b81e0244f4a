package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const HTMLListingsID = "sharkstreams"

var (
	openEmbedPattern = regexp.MustCompile(`openEmbed\('([^']+)'\)`)
	channelPattern   = regexp.MustCompile(`channel=(\d+)`)
)

func DefaultHTMLListingsConfig() Config {
	return Config{
		Name:       HTMLListingsID,
		URL:        "https://sharkstreams.net/",
		EmbedBase:  "https://sharkstreams.net",
		Settings:   ConfigSettings{Enabled: true, Timeout: 30},
		Categories: schedule.DefaultAliasTable(HTMLListingsID),
	}
}

type listingExtra struct {
	EmbedURL  string `json:"embedUrl"`
	ChannelID string `json:"channelId"`
}

type listingRow struct {
	DateTime  string
	Category  string
	Name      string
	EmbedURL  string
	ChannelID string
}

// HTMLListings scrapes the listings page. Rows missing any of the date,
// category, name or embed elements are layout noise and skipped silently.
type HTMLListings struct {
	emitter
	fetcher Fetcher
	configs *ConfigCache
}

var _ Provider = (*HTMLListings)(nil)

func NewHTMLListings(deps Deps) *HTMLListings {
	return &HTMLListings{
		emitter: newEmitter(HTMLListingsID, deps),
		fetcher: deps.Fetcher,
		configs: deps.Configs,
	}
}

func (p *HTMLListings) ID() string       { return HTMLListingsID }
func (p *HTMLListings) CacheKey() string { return cacheKey(HTMLListingsID) }

func (p *HTMLListings) Fingerprint(params schedule.FilterParams) string {
	return fingerprint(map[string]bool{"showEnded": params.ShowEnded})
}

func (p *HTMLListings) FetchRaw(ctx context.Context) ([]byte, error) {
	config := p.configs.configFor(HTMLListingsID)
	ctx, cancel := withTimeout(ctx, config.Settings.Timeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, config.URL)
}

func (p *HTMLListings) Normalize(ctx context.Context, raw []byte, params schedule.FilterParams) (schedule.Bundle, error) {
	defer observeNormalize(HTMLListingsID, time.Now())

	config := p.configs.configFor(HTMLListingsID)
	bundle := schedule.NewBundle()

	rows, err := parseListingRows(raw)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		category, ok := schedule.MapCategory(row.Category, config.Categories)
		if !ok {
			slog.Debug("Unmapped category", "provider", HTMLListingsID, "category", row.Category)
			continue
		}

		event := schedule.Event{
			ID:       fmt.Sprintf("shark_%s_%s", row.ChannelID, row.DateTime),
			Name:     row.Name,
			Category: category,
			Channels: []schedule.Channel{{ChannelID: row.ChannelID, ChannelName: row.Category}},
			Tag:      row.Category,
		}
		if startsAt, ok := parseLocalDateTime(row.DateTime); ok {
			event.StartsAt = schedule.Int64Ptr(startsAt)
		}
		event.Extra, _ = json.Marshal(listingExtra{EmbedURL: row.EmbedURL, ChannelID: row.ChannelID})

		p.emit(bundle, event, params)
	}

	return bundle, nil
}

func parseListingRows(raw []byte) ([]listingRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows []listingRow
	doc.Find(".row").Each(func(_ int, s *goquery.Selection) {
		date := s.Find(".ch-date").First()
		category := s.Find(".ch-category").First()
		name := s.Find(".ch-name").First()
		button := s.Find(".hd-link.secondary").First()
		if date.Length() == 0 || category.Length() == 0 || name.Length() == 0 || button.Length() == 0 {
			return
		}

		onclick, _ := button.Attr("onclick")
		embed := openEmbedPattern.FindStringSubmatch(onclick)
		if embed == nil {
			return
		}
		channel := channelPattern.FindStringSubmatch(embed[1])
		if channel == nil {
			return
		}

		rows = append(rows, listingRow{
			DateTime:  strings.TrimSpace(date.Text()),
			Category:  strings.TrimSpace(category.Text()),
			Name:      strings.TrimSpace(name.Text()),
			EmbedURL:  embed[1],
			ChannelID: channel[1],
		})
	})

	return rows, nil
}

// parseLocalDateTime reads listing times in the viewer's zone.
func parseLocalDateTime(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	t, err := dateparse.ParseIn(value, time.Local)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// ResolvePlaybackTarget prefers the embed URL scraped for the listed channel.
// Another channel, or a row without one, gets the player URL built from its id.
func (p *HTMLListings) ResolvePlaybackTarget(ctx context.Context, event schedule.Event, selection schedule.PlaybackSelection) (string, error) {
	var extra listingExtra
	if len(event.Extra) > 0 {
		if err := json.Unmarshal(event.Extra, &extra); err != nil {
			return "", &schedule.ParseError{Source: HTMLListingsID, Record: event.ID, Err: err}
		}
	}

	channelID := selection.ChannelID
	if channelID == "" && len(event.Channels) > 0 {
		channelID = event.Channels[0].ChannelID
	}

	config := p.configs.configFor(HTMLListingsID)
	if extra.EmbedURL != "" && (channelID == "" || channelID == extra.ChannelID) {
		return absoluteEmbed(config.EmbedBase, extra.EmbedURL), nil
	}
	if channelID == "" {
		slog.Warn("Channel id required for playback", "provider", HTMLListingsID, "id", event.ID)
		return "", nil
	}
	return fmt.Sprintf("%s/player.php?channel=%s", strings.TrimRight(config.EmbedBase, "/"), url.QueryEscape(channelID)), nil
}

func absoluteEmbed(base, embed string) string {
	if strings.HasPrefix(embed, "http://") || strings.HasPrefix(embed, "https://") {
		return embed
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(embed, "/")
}
