package database

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

type WatchProgress struct {
	TMDBID      int64     `json:"tmdbId"`
	Type        MediaType `json:"type"`
	Season      int       `json:"season,omitempty"`
	Episode     int       `json:"episode,omitempty"`
	CurrentTime int64     `json:"currentTime"`
	Duration    int64     `json:"duration"`
	Progress    float64   `json:"progress"`
	Timestamp   int64     `json:"timestamp"`
}
