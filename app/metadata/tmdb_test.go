package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lysyi3m/stream-comb/app/schedule"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status_message":"Invalid API key"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/multi":
			if r.URL.Query().Get("query") != "heat" {
				t.Errorf("Expected query heat, got %s", r.URL.Query().Get("query"))
			}
			w.Write([]byte(`{"results":[
				{"id":949,"media_type":"movie","title":"Heat","release_date":"1995-12-15","overview":" Crime ","poster_path":"/p.jpg","vote_average":7.934},
				{"id":1,"media_type":"person","name":"Someone"},
				{"id":1399,"media_type":"tv","name":"Heat Wave","first_air_date":""}
			]}`))
		case "/movie/949":
			w.Write([]byte(`{"id":949,"title":"","original_title":"Heat","runtime":170,"genres":[{"name":"Crime"}],"spoken_languages":[{"english_name":"English","name":"English"},{"name":"Español"}],"vote_average":7.95}`))
		case "/tv/1399":
			w.Write([]byte(`{"id":1399,"name":"Heat Wave","seasons":[
				{"id":1,"name":"Specials","season_number":0},
				{"id":2,"name":"Season 1","season_number":1,"episode_count":10,"poster_path":"/s1.jpg"},
				{"id":3,"name":"Holiday Special","season_number":2}
			]}`))
		case "/tv/1399/season/1":
			w.Write([]byte(`{"episodes":[{"id":10,"name":"","episode_number":1},{"id":11,"name":"Pilot II","episode_number":2,"still_path":"/e2.jpg"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClient_Search(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "secret", "test")
	titles, err := client.Search(context.Background(), "  heat ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("Expected 2 titles, got %d", len(titles))
	}

	movie := titles[0]
	if movie.ID != "movie-949" || movie.Name != "Heat (1995)" || movie.Tag != "Movie" {
		t.Errorf("Expected formatted movie, got %+v", movie)
	}
	if movie.Rating == nil || *movie.Rating != 7.9 {
		t.Errorf("Expected rating 7.9, got %v", movie.Rating)
	}
	if movie.Overview != "Crime" {
		t.Errorf("Expected trimmed overview, got %q", movie.Overview)
	}
	if movie.Poster != "https://image.tmdb.org/t/p/w500/p.jpg" {
		t.Errorf("Expected poster url, got %s", movie.Poster)
	}

	show := titles[1]
	if show.MediaType != MediaTV || show.Name != "Heat Wave" || show.Tag != "TV Show" {
		t.Errorf("Expected formatted show, got %+v", show)
	}

	empty, err := client.Search(context.Background(), "   ")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty result for blank query, got %v (%v)", empty, err)
	}
}

func TestClient_MovieAndSeries(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "secret", "test")

	movie, err := client.Movie(context.Background(), 949)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if movie.Title != "Heat" {
		t.Errorf("Expected original title fallback, got %s", movie.Title)
	}
	if len(movie.SpokenLanguages) != 2 || movie.SpokenLanguages[1] != "Español" {
		t.Errorf("Expected spoken languages, got %v", movie.SpokenLanguages)
	}

	series, err := client.Series(context.Background(), 1399)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(series.Seasons) != 1 || series.Seasons[0].SeasonNumber != 1 {
		t.Errorf("Expected specials to be dropped, got %+v", series.Seasons)
	}

	episodes, err := client.SeasonEpisodes(context.Background(), 1399, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(episodes) != 2 || episodes[0].Name != "Episode 1" {
		t.Errorf("Expected episode name fallback, got %+v", episodes)
	}

	if _, err := client.Movie(context.Background(), 0); err == nil {
		t.Error("Expected error for missing id")
	}
}

func TestClient_Errors(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	missing := NewClient(server.Client(), server.URL, "", "test")
	_, err := missing.Search(context.Background(), "heat")
	var configErr *schedule.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Errorf("Expected ConfigurationError, got %v", err)
	}

	wrong := NewClient(server.Client(), server.URL, "wrong", "test")
	_, err = wrong.Search(context.Background(), "heat")
	var fetchErr *schedule.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected 401 FetchError, got %v", err)
	}
}

func TestPlayerURL(t *testing.T) {
	tests := []struct {
		name      string
		mediaType MediaType
		season    int
		episode   int
		resume    float64
		expected  string
	}{
		{"movie", MediaMovie, 0, 0, 0, "https://www.vidking.net/embed/movie/42?autoPlay=true&nextEpisode=true&episodeSelector=true"},
		{"movie resume", MediaMovie, 0, 0, 61.6, "https://www.vidking.net/embed/movie/42?autoPlay=true&nextEpisode=true&episodeSelector=true&progress=62"},
		{"episode", MediaTV, 2, 3, 0, "https://www.vidking.net/embed/tv/42/2/3?autoPlay=true&nextEpisode=true&episodeSelector=true"},
		{"series", MediaTV, 0, 0, 0, "https://www.vidking.net/embed/tv/42?autoPlay=true&nextEpisode=true&episodeSelector=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlayerURL(tt.mediaType, 42, tt.season, tt.episode, tt.resume); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
