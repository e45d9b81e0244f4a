package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/stream-comb/app/aggregator"
	"github.com/lysyi3m/stream-comb/app/database"
	"github.com/lysyi3m/stream-comb/app/metadata"
	"github.com/lysyi3m/stream-comb/app/providers"
	"github.com/lysyi3m/stream-comb/app/schedule"
	"github.com/lysyi3m/stream-comb/app/tasks"
)

type stubProvider struct{ id string }

func (p stubProvider) ID() string                                  { return p.id }
func (p stubProvider) CacheKey() string                            { return "schedule_" + p.id }
func (p stubProvider) Fingerprint(schedule.FilterParams) string    { return "" }
func (p stubProvider) FetchRaw(context.Context) ([]byte, error)    { return nil, nil }
func (p stubProvider) Normalize(context.Context, []byte, schedule.FilterParams) (schedule.Bundle, error) {
	return schedule.NewBundle(), nil
}
func (p stubProvider) ResolvePlaybackTarget(context.Context, schedule.Event, schedule.PlaybackSelection) (string, error) {
	return "", nil
}

type fakeSchedule struct {
	mu       sync.Mutex
	provider string
	category schedule.Category
	filters  schedule.FilterParams
	events   []schedule.ClassifiedEvent
	targets  map[string]string
	playErr  error
}

func (f *fakeSchedule) Provider() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provider
}

func (f *fakeSchedule) Refresh(ctx context.Context, force bool) error { return nil }
func (f *fakeSchedule) InvalidateCache(ctx context.Context) error     { return nil }

func (f *fakeSchedule) Snapshot() aggregator.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return aggregator.Snapshot{Provider: f.provider, Category: f.category, Filters: f.filters, Bundle: schedule.NewBundle()}
}

func (f *fakeSchedule) Filters() schedule.FilterParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters
}

func (f *fakeSchedule) Events(category schedule.Category) (schedule.Category, []schedule.ClassifiedEvent) {
	if category == "" {
		category = f.category
	}
	var out []schedule.ClassifiedEvent
	for _, e := range f.events {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return category, out
}

func (f *fakeSchedule) ResolvePlayback(ctx context.Context, eventID string, selection schedule.PlaybackSelection) (string, error) {
	if f.playErr != nil {
		return "", f.playErr
	}
	target, ok := f.targets[eventID]
	if !ok {
		return "", aggregator.ErrEventNotFound
	}
	if target == "" {
		return "", aggregator.ErrNoTarget
	}
	return target + selection.ChannelID, nil
}

func (f *fakeSchedule) SetProvider(ctx context.Context, id string) (bool, error) {
	if id != "pptv" && id != "streamed" {
		return false, errors.New("unknown provider")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := f.provider != id
	f.provider = id
	return changed, nil
}

func (f *fakeSchedule) SetCategory(ctx context.Context, category schedule.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.category = category
	return nil
}

func (f *fakeSchedule) SetFilters(ctx context.Context, params schedule.FilterParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := f.filters != params
	f.filters = params
	return changed, nil
}

type fakeScheduler struct {
	mu    sync.Mutex
	tasks []tasks.TaskInterface
	err   error
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *fakeScheduler) types() []tasks.TaskType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tasks.TaskType
	for _, t := range s.tasks {
		out = append(out, t.GetType())
	}
	return out
}

type memoryProgress struct {
	movies map[int64]*database.WatchProgress
}

func (m *memoryProgress) SaveMovie(ctx context.Context, id int64, currentTime, duration float64) error {
	m.movies[id] = &database.WatchProgress{TMDBID: id, Type: database.MediaMovie, CurrentTime: int64(currentTime), Duration: int64(duration)}
	return nil
}

func (m *memoryProgress) GetMovie(ctx context.Context, id int64) (*database.WatchProgress, error) {
	return m.movies[id], nil
}

func (m *memoryProgress) ClearMovie(ctx context.Context, id int64) error {
	delete(m.movies, id)
	return nil
}

func (m *memoryProgress) SaveEpisode(context.Context, int64, int, int, float64, float64) error {
	return nil
}

func (m *memoryProgress) GetEpisode(context.Context, int64, int, int) (*database.WatchProgress, error) {
	return nil, nil
}

func (m *memoryProgress) ClearEpisode(context.Context, int64, int, int) error { return nil }
func (m *memoryProgress) ClearSeries(context.Context, int64) error            { return nil }

func (m *memoryProgress) LastWatchedEpisode(context.Context, int64) (*database.WatchProgress, error) {
	return nil, nil
}

func (m *memoryProgress) ContinueWatching(context.Context) ([]database.WatchProgress, error) {
	var out []database.WatchProgress
	for _, p := range m.movies {
		out = append(out, *p)
	}
	return out, nil
}

type fakeMedia struct {
	err error
}

func (m fakeMedia) Search(ctx context.Context, query string) ([]metadata.Title, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []metadata.Title{{ID: "movie-1", TMDBID: 1, MediaType: metadata.MediaMovie}}, nil
}

func (m fakeMedia) Trending(ctx context.Context) ([]metadata.Title, error) {
	return nil, m.err
}

func (m fakeMedia) Movie(ctx context.Context, id int64) (*metadata.MovieDetails, error) {
	return nil, m.err
}

func (m fakeMedia) Series(ctx context.Context, id int64) (*metadata.SeriesDetails, error) {
	return nil, m.err
}

func (m fakeMedia) SeasonEpisodes(ctx context.Context, id int64, season int) ([]metadata.Episode, error) {
	return nil, m.err
}

type testServer struct {
	engine    *gin.Engine
	schedule  *fakeSchedule
	scheduler *fakeScheduler
	progress  *memoryProgress
}

func newTestServer(t *testing.T, apiKey string, media MediaService) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := &fakeSchedule{
		provider: "pptv",
		category: schedule.CategoryBasketball,
		events: []schedule.ClassifiedEvent{
			{Event: schedule.Event{ID: "a", Name: "Lakers vs Celtics", Category: schedule.CategoryBasketball}},
			{Event: schedule.Event{ID: "b", Name: "Arsenal vs Chelsea", Category: schedule.CategorySoccer}},
		},
		targets: map[string]string{"a": "https://example.com/embed/", "b": ""},
	}
	scheduler := &fakeScheduler{}
	progress := &memoryProgress{movies: map[int64]*database.WatchProgress{}}
	registry := providers.NewRegistryOf(nil, stubProvider{id: "pptv"}, stubProvider{id: "streamed"})

	if media == nil {
		media = fakeMedia{}
	}
	handler := NewHandler(service, registry, nil, progress, media, scheduler, "test")
	return &testServer{
		engine:    NewServer(handler, apiKey, http.NotFoundHandler()),
		schedule:  service,
		scheduler: scheduler,
		progress:  progress,
	}
}

func (s *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHandler_RootAndHealth(t *testing.T) {
	s := newTestServer(t, "", nil)

	w := s.do("GET", "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["version"]; got != "test" {
		t.Errorf("Expected version 'test', got %v", got)
	}

	w = s.do("GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if got := decode(t, w)["provider"]; got != "pptv" {
		t.Errorf("Expected provider 'pptv', got %v", got)
	}

	if w := s.do("GET", "/favicon.ico", "", nil); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for favicon, got %d", w.Code)
	}
}

func TestHandler_ListProviders(t *testing.T) {
	s := newTestServer(t, "", nil)

	w := s.do("GET", "/providers", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["total"] != float64(2) {
		t.Errorf("Expected 2 providers, got %v", body["total"])
	}
	first := body["providers"].([]interface{})[0].(map[string]interface{})
	if first["id"] != "pptv" || first["active"] != true {
		t.Errorf("Expected active pptv first, got %v", first)
	}
}

func TestHandler_GetEvents(t *testing.T) {
	s := newTestServer(t, "", nil)

	tests := []struct {
		name     string
		path     string
		code     int
		category string
		count    float64
	}{
		{"active category", "/events", http.StatusOK, "Basketball", 1},
		{"explicit category", "/events?category=Soccer", http.StatusOK, "Soccer", 1},
		{"empty category", "/events?category=Tennis", http.StatusOK, "Tennis", 0},
		{"unknown category", "/events?category=Curling", http.StatusBadRequest, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("GET", tt.path, "", nil)
			if w.Code != tt.code {
				t.Fatalf("Expected %d, got %d", tt.code, w.Code)
			}
			if tt.code != http.StatusOK {
				return
			}
			body := decode(t, w)
			if body["category"] != tt.category {
				t.Errorf("Expected category %s, got %v", tt.category, body["category"])
			}
			if body["count"] != tt.count {
				t.Errorf("Expected count %v, got %v", tt.count, body["count"])
			}
		})
	}
}

func TestHandler_GetPlayTarget(t *testing.T) {
	s := newTestServer(t, "", nil)

	tests := []struct {
		name string
		path string
		code int
		url  string
	}{
		{"missing id", "/play", http.StatusBadRequest, ""},
		{"unknown event", "/play?id=zzz", http.StatusNotFound, ""},
		{"no target", "/play?id=b", http.StatusNotFound, ""},
		{"resolved", "/play?id=a&channel=7", http.StatusOK, "https://example.com/embed/7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do("GET", tt.path, "", nil)
			if w.Code != tt.code {
				t.Fatalf("Expected %d, got %d", tt.code, w.Code)
			}
			if tt.url != "" && decode(t, w)["url"] != tt.url {
				t.Errorf("Expected url %s, got %s", tt.url, w.Body.String())
			}
		})
	}

	s.schedule.playErr = errors.New("upstream down")
	if w := s.do("GET", "/play?id=a", "", nil); w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 on resolve failure, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, "secret", nil)

	tests := []struct {
		name    string
		headers map[string]string
		code    int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do("GET", "/api/selection", "", tt.headers); w.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, w.Code)
			}
		})
	}

	if w := s.do("GET", "/events", "", nil); w.Code != http.StatusOK {
		t.Errorf("Expected public routes to skip auth, got %d", w.Code)
	}
}

func TestHandler_UpdateSelection(t *testing.T) {
	s := newTestServer(t, "", nil)

	w := s.do("PUT", "/api/selection", `{"provider":"streamed","category":"Soccer"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["provider"] != "streamed" || body["category"] != "Soccer" {
		t.Errorf("Expected streamed/Soccer, got %v", body)
	}
	if got := s.scheduler.types(); len(got) != 1 || got[0] != tasks.TaskTypeRefreshSchedule {
		t.Errorf("Expected one refresh task, got %v", got)
	}

	// Same provider again does not refetch.
	s.do("PUT", "/api/selection", `{"provider":"streamed"}`, nil)
	if got := len(s.scheduler.types()); got != 1 {
		t.Errorf("Expected no additional task, got %d tasks", got)
	}

	if w := s.do("PUT", "/api/selection", `{"provider":"nowhere"}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown provider, got %d", w.Code)
	}
	if w := s.do("PUT", "/api/selection", `{"category":"Curling"}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown category, got %d", w.Code)
	}
	if w := s.do("PUT", "/api/selection", `not json`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid body, got %d", w.Code)
	}
}

func TestHandler_UpdateSettings(t *testing.T) {
	s := newTestServer(t, "", nil)

	w := s.do("PUT", "/api/settings", `{"showEnded":true}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["showEnded"] != true || body["allowAllStreams"] != false {
		t.Errorf("Expected only showEnded toggled, got %v", body)
	}
	if got := len(s.scheduler.types()); got != 1 {
		t.Errorf("Expected one refresh task, got %d", got)
	}

	s.do("PUT", "/api/settings", `{"showEnded":true}`, nil)
	if got := len(s.scheduler.types()); got != 1 {
		t.Errorf("Expected unchanged settings to skip refresh, got %d tasks", got)
	}
}

func TestHandler_TaskEndpoints(t *testing.T) {
	s := newTestServer(t, "", nil)

	if w := s.do("POST", "/api/refresh", "", nil); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for refresh, got %d", w.Code)
	}
	if w := s.do("DELETE", "/api/cache", "", nil); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for purge, got %d", w.Code)
	}

	got := s.scheduler.types()
	if len(got) != 2 || got[0] != tasks.TaskTypeRefreshSchedule || got[1] != tasks.TaskTypePurgeCache {
		t.Errorf("Expected refresh then purge, got %v", got)
	}

	s.scheduler.err = errors.New("task queue is full")
	if w := s.do("POST", "/api/refresh", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when queue is full, got %d", w.Code)
	}
}

func TestHandler_MovieProgress(t *testing.T) {
	s := newTestServer(t, "", nil)

	if w := s.do("GET", "/api/progress/movie/550", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before saving, got %d", w.Code)
	}
	if w := s.do("GET", "/api/progress/movie/abc", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", w.Code)
	}

	w := s.do("PUT", "/api/progress/movie/550", `{"currentTime":120,"duration":7200}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["currentTime"]; got != float64(120) {
		t.Errorf("Expected currentTime 120, got %v", got)
	}

	w = s.do("GET", "/media/play?type=movie&id=550", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if url := decode(t, w)["url"].(string); !strings.Contains(url, "/movie/550?") || !strings.HasSuffix(url, "&progress=120") {
		t.Errorf("Expected resumed movie url, got %s", url)
	}

	w = s.do("GET", "/api/progress", "", nil)
	if got := decode(t, w)["total"]; got != float64(1) {
		t.Errorf("Expected 1 continue watching item, got %v", got)
	}

	if w := s.do("DELETE", "/api/progress/movie/550", "", nil); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}
	if w := s.do("GET", "/api/progress/tv/1/1/0", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for episode 0, got %d", w.Code)
	}
}

func TestHandler_MediaPlay_InvalidType(t *testing.T) {
	s := newTestServer(t, "", nil)
	if w := s.do("GET", "/media/play?type=book&id=1", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestHandler_MediaErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"ok", nil, http.StatusOK},
		{"not configured", &schedule.ConfigurationError{Component: "tmdb", Reason: "missing API key"}, http.StatusServiceUnavailable},
		{"upstream failure", &schedule.FetchError{URL: "https://api.themoviedb.org/3/search/multi", Err: errors.New("timeout")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "", fakeMedia{err: tt.err})
			if w := s.do("GET", "/api/media/search?q=heat", "", nil); w.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, w.Code)
			}
		})
	}
}
