package metadata

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	imageBaseURL    = "https://image.tmdb.org/t/p"
	playerEmbedBase = "https://www.vidking.net/embed"
)

// Client is a thin TMDB v3 client. Every call requires an API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

func NewClient(httpClient *http.Client, baseURL, apiKey, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cmp.Or(baseURL, DefaultBaseURL), "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.apiKey == "" {
		return &schedule.ConfigurationError{Component: "tmdb", Reason: "API key is not configured"}
	}

	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("language", "en-US")
	query.Set("include_adult", "false")
	for k, v := range params {
		query[k] = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &schedule.FetchError{URL: c.baseURL + endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &schedule.FetchError{
			URL:    c.baseURL + endpoint,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("TMDB request failed: %s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode TMDB response: %w", err)
	}
	return nil
}

// Search runs a multi search and keeps movies and TV shows only.
func (c *Client) Search(ctx context.Context, query string) ([]Title, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Title{}, nil
	}

	var page tmdbPage
	if err := c.get(ctx, "/search/multi", url.Values{"query": {query}, "page": {"1"}}, &page); err != nil {
		return nil, err
	}
	return titlesFrom(page.Results), nil
}

func (c *Client) Trending(ctx context.Context) ([]Title, error) {
	var page tmdbPage
	if err := c.get(ctx, "/trending/all/day", url.Values{"page": {"1"}}, &page); err != nil {
		return nil, err
	}
	return titlesFrom(page.Results), nil
}

func (c *Client) Movie(ctx context.Context, id int64) (*MovieDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("movie id is required")
	}

	var m tmdbMovie
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(id, 10), nil, &m); err != nil {
		return nil, err
	}

	return &MovieDetails{
		ID:              m.ID,
		Title:           cmp.Or(m.Title, m.OriginalTitle),
		Tagline:         m.Tagline,
		Overview:        m.Overview,
		ReleaseDate:     m.ReleaseDate,
		Runtime:         m.Runtime,
		Poster:          imageURL(m.PosterPath, "w500"),
		Backdrop:        imageURL(m.BackdropPath, "w780"),
		Genres:          names(m.Genres),
		Rating:          roundRating(m.VoteAverage),
		Status:          m.Status,
		Budget:          m.Budget,
		Revenue:         m.Revenue,
		SpokenLanguages: names(m.SpokenLanguages),
		Homepage:        m.Homepage,
	}, nil
}

// Series drops specials (season 0 or a name containing "special").
func (c *Client) Series(ctx context.Context, id int64) (*SeriesDetails, error) {
	if id <= 0 {
		return nil, fmt.Errorf("series id is required")
	}

	var s tmdbSeries
	if err := c.get(ctx, "/tv/"+strconv.FormatInt(id, 10), nil, &s); err != nil {
		return nil, err
	}

	seasons := make([]Season, 0, len(s.Seasons))
	for _, season := range s.Seasons {
		if season.SeasonNumber == 0 || strings.Contains(strings.ToLower(season.Name), "special") {
			continue
		}
		seasons = append(seasons, Season{
			ID:           season.ID,
			Name:         season.Name,
			SeasonNumber: season.SeasonNumber,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
			Overview:     season.Overview,
			Poster:       imageURL(season.PosterPath, "w300"),
		})
	}

	return &SeriesDetails{
		ID:              s.ID,
		Name:            cmp.Or(s.Name, s.OriginalName),
		Tagline:         s.Tagline,
		Overview:        s.Overview,
		FirstAirDate:    s.FirstAirDate,
		Poster:          imageURL(s.PosterPath, "w500"),
		Backdrop:        imageURL(s.BackdropPath, "w780"),
		Genres:          names(s.Genres),
		Rating:          roundRating(s.VoteAverage),
		Status:          s.Status,
		SpokenLanguages: names(s.SpokenLanguages),
		Homepage:        s.Homepage,
		Seasons:         seasons,
	}, nil
}

func (c *Client) SeasonEpisodes(ctx context.Context, seriesID int64, season int) ([]Episode, error) {
	if seriesID <= 0 || season < 0 {
		return nil, fmt.Errorf("series id and season number are required")
	}

	var details tmdbSeasonDetails
	endpoint := fmt.Sprintf("/tv/%d/season/%d", seriesID, season)
	if err := c.get(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0, len(details.Episodes))
	for _, e := range details.Episodes {
		episodes = append(episodes, Episode{
			ID:            e.ID,
			Name:          cmp.Or(e.Name, fmt.Sprintf("Episode %d", e.EpisodeNumber)),
			EpisodeNumber: e.EpisodeNumber,
			Overview:      e.Overview,
			AirDate:       e.AirDate,
			Still:         imageURL(e.StillPath, "w500"),
		})
	}
	return episodes, nil
}

// PlayerURL builds the embed URL for a title, resuming at resumeSecs when positive.
func PlayerURL(mediaType MediaType, id int64, season, episode int, resumeSecs float64) string {
	segments := []string{playerEmbedBase, string(MediaMovie), strconv.FormatInt(id, 10)}
	if mediaType == MediaTV {
		segments[1] = string(MediaTV)
		if season > 0 && episode > 0 {
			segments = append(segments, strconv.Itoa(season), strconv.Itoa(episode))
		}
	}

	u := strings.Join(segments, "/") + "?autoPlay=true&nextEpisode=true&episodeSelector=true"
	if resumeSecs > 0 {
		u += "&progress=" + strconv.FormatInt(int64(math.Round(resumeSecs)), 10)
	}
	return u
}

func titlesFrom(results []tmdbResult) []Title {
	titles := make([]Title, 0, len(results))
	for _, r := range results {
		mediaType := MediaType(r.MediaType)
		if !mediaType.Valid() {
			continue
		}

		title := Title{
			ID:        fmt.Sprintf("%s-%d", mediaType, r.ID),
			TMDBID:    r.ID,
			MediaType: mediaType,
			Overview:  strings.TrimSpace(r.Overview),
			Poster:    imageURL(r.PosterPath, "w500"),
			Backdrop:  imageURL(r.BackdropPath, "w780"),
			Rating:    roundRating(r.VoteAverage),
		}

		released := r.ReleaseDate
		title.Title = cmp.Or(r.Title, "Untitled")
		title.Tag = "Movie"
		if mediaType == MediaTV {
			released = r.FirstAirDate
			title.Title = cmp.Or(r.Name, "Untitled")
			title.Tag = "TV Show"
		}

		title.Name = title.Title
		if released != "" {
			if t, err := dateparse.ParseIn(released, time.UTC); err == nil {
				title.ReleaseYear = t.Year()
				title.Name = fmt.Sprintf("%s (%d)", title.Title, title.ReleaseYear)
			} else {
				slog.Debug("Unparseable release date", "id", r.ID, "date", released)
			}
		}

		titles = append(titles, title)
	}
	return titles
}

func imageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return imageBaseURL + "/" + size + path
}

func roundRating(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*10) / 10
	return &r
}

func names(items []tmdbNamed) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, cmp.Or(item.EnglishName, item.Name))
	}
	return out
}
