package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/stream-comb/app/aggregator"
	"github.com/lysyi3m/stream-comb/app/database"
	"github.com/lysyi3m/stream-comb/app/metadata"
	"github.com/lysyi3m/stream-comb/app/providers"
	"github.com/lysyi3m/stream-comb/app/schedule"
	"github.com/lysyi3m/stream-comb/app/tasks"
)

func NewHandler(service ScheduleService, registry *providers.Registry, configs *providers.ConfigCache,
	progress database.ProgressRepository, media MediaService,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		schedule:  service,
		registry:  registry,
		configs:   configs,
		progress:  progress,
		media:     media,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	snapshot := h.schedule.Snapshot()

	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"provider":  snapshot.Provider,
		"events":    snapshot.Bundle.Count(),
		"degraded":  snapshot.Degraded,
	}
	if snapshot.FetchedAt > 0 {
		health["fetched_at"] = time.UnixMilli(snapshot.FetchedAt).In(time.Local).Format(time.RFC3339)
	}
	if h.configs != nil {
		health["loaded_configurations"] = h.configs.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListProviders(c *gin.Context) {
	active := h.schedule.Provider()
	configs := map[string]*providers.Config{}
	if h.configs != nil {
		configs = h.configs.GetConfigs()
	}

	list := make([]map[string]interface{}, 0, len(h.registry.IDs()))
	for _, id := range h.registry.IDs() {
		info := map[string]interface{}{
			"id":     id,
			"active": id == active,
		}
		if config, ok := configs[id]; ok {
			info["url"] = config.URL
			info["enabled"] = config.Settings.Enabled
			info["timeout"] = (time.Duration(config.Settings.Timeout) * time.Second).String()
		}
		list = append(list, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"providers": list,
		"total":     len(list),
	})
}

func (h *Handler) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.schedule.Snapshot())
}

func (h *Handler) GetEvents(c *gin.Context) {
	category := schedule.Category(c.Query("category"))
	if category != "" && !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
		return
	}

	category, events := h.schedule.Events(category)
	snapshot := h.schedule.Snapshot()

	c.Header("X-Schedule-Provider", snapshot.Provider)
	c.JSON(http.StatusOK, gin.H{
		"provider": snapshot.Provider,
		"category": category,
		"events":   events,
		"count":    len(events),
		"degraded": snapshot.Degraded,
		"error":    snapshot.Error,
	})
}

func (h *Handler) GetPlayTarget(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing event id parameter"})
		return
	}

	selection := schedule.PlaybackSelection{
		ChannelID: c.Query("channel"),
		Source:    c.Query("source"),
		SourceID:  c.Query("source_id"),
	}

	target, err := h.schedule.ResolvePlayback(c.Request.Context(), id, selection)
	switch {
	case errors.Is(err, aggregator.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	case errors.Is(err, aggregator.ErrNoTarget):
		c.JSON(http.StatusNotFound, gin.H{"error": "No playable stream available"})
		return
	case err != nil:
		slog.Error("Failed to resolve play target", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to resolve play target", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "url": target})
}

// GetMediaPlayTarget resumes from stored progress when present.
func (h *Handler) GetMediaPlayTarget(c *gin.Context) {
	mediaType := metadata.MediaType(c.Query("type"))
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if !mediaType.Valid() || err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid media type or id"})
		return
	}
	season, _ := strconv.Atoi(c.Query("season"))
	episode, _ := strconv.Atoi(c.Query("episode"))

	var progress *database.WatchProgress
	if h.progress != nil {
		if mediaType == metadata.MediaMovie {
			progress, err = h.progress.GetMovie(c.Request.Context(), id)
		} else if season > 0 && episode > 0 {
			progress, err = h.progress.GetEpisode(c.Request.Context(), id, season, episode)
		}
		if err != nil {
			slog.Warn("Failed to read watch progress", "id", id, "error", err)
		}
	}

	var resume float64
	if progress != nil {
		resume = float64(progress.CurrentTime)
	}

	c.JSON(http.StatusOK, gin.H{"url": metadata.PlayerURL(mediaType, id, season, episode, resume)})
}

func (h *Handler) APIGetSelection(c *gin.Context) {
	snapshot := h.schedule.Snapshot()
	c.JSON(http.StatusOK, selectionRequest{Provider: snapshot.Provider, Category: snapshot.Category})
}

func (h *Handler) APIUpdateSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Provider != "" {
		changed, err := h.schedule.SetProvider(ctx, req.Provider)
		if err != nil {
			if !h.registry.Has(req.Provider) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
				return
			}
			slog.Error("Failed to persist selection", "provider", req.Provider, "error", err)
		}
		// Not forced: a fresh entry for the new provider is served from cache.
		if changed {
			h.enqueue(c, tasks.NewRefreshScheduleTask(h.schedule, false))
		}
	}

	if req.Category != "" {
		if !req.Category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category"})
			return
		}
		if err := h.schedule.SetCategory(ctx, req.Category); err != nil {
			slog.Error("Failed to persist selection", "category", req.Category, "error", err)
		}
	}

	h.APIGetSelection(c)
}

func (h *Handler) APIGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.schedule.Filters())
}

func (h *Handler) APIUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	params := h.schedule.Filters()
	if req.AllowAllStreams != nil {
		params.AllowAllStreams = *req.AllowAllStreams
	}
	if req.ShowEnded != nil {
		params.ShowEnded = *req.ShowEnded
	}

	changed, err := h.schedule.SetFilters(c.Request.Context(), params)
	if err != nil {
		slog.Error("Failed to persist settings", "error", err)
	}
	if changed {
		h.enqueue(c, tasks.NewRefreshScheduleTask(h.schedule, false))
	}

	c.JSON(http.StatusOK, params)
}

func (h *Handler) APIRefresh(c *gin.Context) {
	task := tasks.NewRefreshScheduleTask(h.schedule, true)
	if !h.enqueue(c, task) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue refresh task"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": task.GetID(), "provider": task.GetTarget()})
}

func (h *Handler) APIPurgeCache(c *gin.Context) {
	task := tasks.NewPurgeCacheTask(h.schedule)
	if !h.enqueue(c, task) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue purge task"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": task.GetID()})
}

func (h *Handler) APIReloadProviders(c *gin.Context) {
	if h.configs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Provider configuration is not file backed"})
		return
	}
	task := tasks.NewReloadProviderConfigTask(h.configs)
	if !h.enqueue(c, task) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue reload task"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": task.GetID()})
}

func (h *Handler) enqueue(c *gin.Context, task tasks.TaskInterface) bool {
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing task", "type", string(task.GetType()), "error", err)
		return false
	}
	return true
}

func (h *Handler) APIContinueWatching(c *gin.Context) {
	items, err := h.progress.ContinueWatching(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "continue_watching", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *Handler) APIGetMovieProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := h.progress.GetMovie(c.Request.Context(), id)
	respondProgress(c, progress, err)
}

func (h *Handler) APISaveMovieProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.progress.SaveMovie(c.Request.Context(), id, req.CurrentTime, req.Duration); err != nil {
		slog.Error("Database error", "operation", "save_movie_progress", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	progress, err := h.progress.GetMovie(c.Request.Context(), id)
	respondProgress(c, progress, err)
}

func (h *Handler) APIClearMovieProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.progress.ClearMovie(c.Request.Context(), id); err != nil {
		slog.Error("Database error", "operation", "clear_movie_progress", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIGetLastEpisode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	progress, err := h.progress.LastWatchedEpisode(c.Request.Context(), id)
	respondProgress(c, progress, err)
}

func (h *Handler) APIClearSeriesProgress(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.progress.ClearSeries(c.Request.Context(), id); err != nil {
		slog.Error("Database error", "operation", "clear_series_progress", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APIGetEpisodeProgress(c *gin.Context) {
	id, season, episode, ok := episodePath(c)
	if !ok {
		return
	}
	progress, err := h.progress.GetEpisode(c.Request.Context(), id, season, episode)
	respondProgress(c, progress, err)
}

func (h *Handler) APISaveEpisodeProgress(c *gin.Context) {
	id, season, episode, ok := episodePath(c)
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := h.progress.SaveEpisode(c.Request.Context(), id, season, episode, req.CurrentTime, req.Duration); err != nil {
		slog.Error("Database error", "operation", "save_episode_progress", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	progress, err := h.progress.GetEpisode(c.Request.Context(), id, season, episode)
	respondProgress(c, progress, err)
}

func (h *Handler) APIClearEpisodeProgress(c *gin.Context) {
	id, season, episode, ok := episodePath(c)
	if !ok {
		return
	}
	if err := h.progress.ClearEpisode(c.Request.Context(), id, season, episode); err != nil {
		slog.Error("Database error", "operation", "clear_episode_progress", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) APISearchMedia(c *gin.Context) {
	titles, err := h.media.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": titles, "total": len(titles)})
}

func (h *Handler) APITrendingMedia(c *gin.Context) {
	titles, err := h.media.Trending(c.Request.Context())
	if err != nil {
		respondMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": titles, "total": len(titles)})
}

func (h *Handler) APIGetMovie(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.media.Movie(c.Request.Context(), id)
	if err != nil {
		respondMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIGetSeries(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	details, err := h.media.Series(c.Request.Context(), id)
	if err != nil {
		respondMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *Handler) APIGetSeason(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid season parameter"})
		return
	}
	episodes, err := h.media.SeasonEpisodes(c.Request.Context(), id, season)
	if err != nil {
		respondMediaError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"episodes": episodes, "total": len(episodes)})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}

func episodePath(c *gin.Context) (int64, int, int, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return 0, 0, 0, false
	}
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid season parameter"})
		return 0, 0, 0, false
	}
	episode, err := strconv.Atoi(c.Param("episode"))
	if err != nil || episode <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid episode parameter"})
		return 0, 0, 0, false
	}
	return id, season, episode, true
}

func respondProgress(c *gin.Context, progress *database.WatchProgress, err error) {
	if err != nil {
		slog.Error("Database error", "operation", "get_progress", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No progress recorded"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

func respondMediaError(c *gin.Context, err error) {
	var configErr *schedule.ConfigurationError
	if errors.As(err, &configErr) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Media lookup is not configured"})
		return
	}
	slog.Error("Media lookup failed", "error", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "Media lookup failed", "details": err.Error()})
}
