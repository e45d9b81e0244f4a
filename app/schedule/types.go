package schedule

import "encoding/json"

type Category string

const (
	CategoryBasketball  Category = "Basketball"
	CategoryWNBA        Category = "WNBA"
	CategorySoccer      Category = "Soccer"
	CategoryFootball    Category = "Football"
	CategoryBaseball    Category = "Baseball"
	CategoryHockey      Category = "Hockey"
	CategoryMotorsports Category = "Motorsports"
	CategoryFighting    Category = "Fighting"
	CategoryTennis      Category = "Tennis"
	Category247         Category = "24/7"
	CategoryMovies      Category = "Movies & TV"
)

// AllCategories is the display order. Alias tables are scanned in this order,
// so the first category listing a label wins.
var AllCategories = []Category{
	CategoryBasketball,
	CategoryWNBA,
	CategorySoccer,
	CategoryFootball,
	CategoryBaseball,
	CategoryHockey,
	CategoryMotorsports,
	CategoryFighting,
	CategoryTennis,
	Category247,
	CategoryMovies,
}

func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

type Channel struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
}

type TeamBranding struct {
	Logos            []string `json:"logos"`
	TeamNames        []string `json:"teamNames"`
	LeagueLogo       *string  `json:"leagueLogo"`
	HasMatchup       bool     `json:"hasMatchup"`
	MatchedTeamCount int      `json:"matchedTeamCount"`
}

type Event struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     Category     `json:"category"`
	Source       string       `json:"source"`
	StartsAt     *int64       `json:"startsAt"`
	EndsAt       *int64       `json:"endsAt"`
	AlwaysLive   bool         `json:"alwaysLive"`
	HideSchedule bool         `json:"hideSchedule"`
	Channels     []Channel    `json:"channels"`
	TeamBranding TeamBranding `json:"teamBranding"`
	Tag          string       `json:"tag,omitempty"`
	Poster       string       `json:"poster,omitempty"`

	// Extra is only interpreted by the adapter that produced the event.
	Extra json.RawMessage `json:"extra,omitempty"`
}

// Bundle is the normalized output of one adapter pass.
type Bundle map[Category][]Event

func NewBundle() Bundle {
	b := make(Bundle, len(AllCategories))
	for _, c := range AllCategories {
		b[c] = []Event{}
	}
	return b
}

func (b Bundle) Count() int {
	total := 0
	for _, events := range b {
		total += len(events)
	}
	return total
}

// FirstPopulated returns the first category in display order with at least one event.
func (b Bundle) FirstPopulated() (Category, bool) {
	for _, c := range AllCategories {
		if len(b[c]) > 0 {
			return c, true
		}
	}
	return "", false
}

type FilterParams struct {
	AllowAllStreams bool `json:"allowAllStreams"`
	ShowEnded       bool `json:"showEnded"`
}

// PlaybackSelection carries what the viewer picked when opening an event.
type PlaybackSelection struct {
	ChannelID       string
	Source          string
	SourceID        string
	AllowAllStreams bool
}

func Int64Ptr(v int64) *int64 {
	return &v
}

func StringPtr(v string) *string {
	return &v
}
