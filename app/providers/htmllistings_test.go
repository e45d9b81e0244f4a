package providers

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const listingsPage = `<html><body>
<div class="container">
  <div class="row">
    <span class="ch-date">2025-10-06 20:00:00</span>
    <span class="ch-category">NBA</span>
    <span class="ch-name">Lakers vs Warriors</span>
    <a class="hd-link secondary" onclick="openEmbed('https://sharkstreams.net/player.php?channel=123')">Embed</a>
  </div>
  <div class="row">
    <span class="ch-date">2025-10-06 21:00:00</span>
    <span class="ch-category">NBA</span>
    <span class="ch-name">Missing Button</span>
  </div>
  <div class="row">
    <span class="ch-date">2025-10-06 21:00:00</span>
    <span class="ch-category">Cricket</span>
    <span class="ch-name">Unmapped</span>
    <a class="hd-link secondary" onclick="openEmbed('https://sharkstreams.net/player.php?channel=9')">Embed</a>
  </div>
  <div class="row">
    <span class="ch-date">2025-10-06 22:00:00</span>
    <span class="ch-category">NHL</span>
    <span class="ch-name">No Channel</span>
    <a class="hd-link secondary" onclick="openEmbed('https://sharkstreams.net/player.php')">Embed</a>
  </div>
</div>
</body></html>`

func TestParseListingRows(t *testing.T) {
	rows, err := parseListingRows([]byte(listingsPage))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 complete rows, got %d", len(rows))
	}

	row := rows[0]
	if row.ChannelID != "123" {
		t.Errorf("Expected channel 123, got %s", row.ChannelID)
	}
	if row.EmbedURL != "https://sharkstreams.net/player.php?channel=123" {
		t.Errorf("Expected embed url, got %s", row.EmbedURL)
	}
	if row.Name != "Lakers vs Warriors" || row.Category != "NBA" {
		t.Errorf("Expected trimmed name/category, got %q/%q", row.Name, row.Category)
	}
}

func TestHTMLListings_Normalize(t *testing.T) {
	useUTC(t)
	now := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)
	p := NewHTMLListings(testDeps(newFakeFetcher(), now))

	bundle, err := p.Normalize(context.Background(), []byte(listingsPage), schedule.FilterParams{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertAllCategories(t, bundle)

	if bundle.Count() != 1 {
		t.Fatalf("Expected 1 event, got %d", bundle.Count())
	}

	event := bundle[schedule.CategoryBasketball][0]
	expectedStart := time.Date(2025, 10, 6, 20, 0, 0, 0, time.UTC).Unix()
	if event.StartsAt == nil || *event.StartsAt != expectedStart {
		t.Errorf("Expected startsAt %d, got %v", expectedStart, event.StartsAt)
	}
	if event.ID != "shark_123_2025-10-06 20:00:00" {
		t.Errorf("Expected id shark_123_2025-10-06 20:00:00, got %s", event.ID)
	}
	if event.Tag != "NBA" {
		t.Errorf("Expected tag NBA, got %s", event.Tag)
	}

	target, err := p.ResolvePlaybackTarget(context.Background(), event, schedule.PlaybackSelection{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if target != "https://sharkstreams.net/player.php?channel=123" {
		t.Errorf("Expected player url, got %s", target)
	}
}

func TestParseLocalDateTime(t *testing.T) {
	original := time.Local
	time.Local = time.FixedZone("EDT", -4*60*60)
	defer func() { time.Local = original }()

	got, ok := parseLocalDateTime("2025-10-05 22:00:00")
	if !ok {
		t.Fatal("Expected date to parse")
	}
	if got != scenarioEpoch {
		t.Errorf("Expected %d, got %d", scenarioEpoch, got)
	}

	if _, ok := parseLocalDateTime(""); ok {
		t.Error("Expected empty value to fail")
	}
}

func TestHTMLListings_ResolvePlaybackTarget_PrefersScrapedEmbed(t *testing.T) {
	p := NewHTMLListings(testDeps(newFakeFetcher(), time.Now()))

	tests := []struct {
		name      string
		extra     string
		channels  []schedule.Channel
		selection schedule.PlaybackSelection
		expected  string
	}{
		{
			name:     "scraped embed for listed channel",
			extra:    `{"embedUrl":"https://sharkstreams.net/player.php?channel=123&mode=hd","channelId":"123"}`,
			channels: []schedule.Channel{{ChannelID: "123"}},
			expected: "https://sharkstreams.net/player.php?channel=123&mode=hd",
		},
		{
			name:     "relative scraped embed",
			extra:    `{"embedUrl":"/player.php?channel=55","channelId":"55"}`,
			channels: []schedule.Channel{{ChannelID: "55"}},
			expected: "https://sharkstreams.net/player.php?channel=55",
		},
		{
			name:      "other channel selected",
			extra:     `{"embedUrl":"https://sharkstreams.net/player.php?channel=123&mode=hd","channelId":"123"}`,
			channels:  []schedule.Channel{{ChannelID: "123"}},
			selection: schedule.PlaybackSelection{ChannelID: "77"},
			expected:  "https://sharkstreams.net/player.php?channel=77",
		},
		{
			name:     "no scraped embed",
			channels: []schedule.Channel{{ChannelID: "9"}},
			expected: "https://sharkstreams.net/player.php?channel=9",
		},
		{
			name:     "nothing to resolve",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := schedule.Event{ID: "shark_x", Channels: tt.channels}
			if tt.extra != "" {
				event.Extra = []byte(tt.extra)
			}
			got, err := p.ResolvePlaybackTarget(context.Background(), event, tt.selection)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
