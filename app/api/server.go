package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured.
// metricsHandler may be nil when metrics are not exposed.
func NewServer(handler *Handler, apiAccessKey string, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, metricsHandler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, metricsHandler http.Handler) {
	r.GET("/health", handler.GetHealth)
	r.GET("/providers", handler.ListProviders)
	r.GET("/schedule", handler.GetSchedule)
	r.GET("/events", handler.GetEvents)
	r.GET("/play", handler.GetPlayTarget)
	r.GET("/media/play", handler.GetMediaPlayTarget)

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/selection", handler.APIGetSelection)
		api.PUT("/selection", handler.APIUpdateSelection)
		api.GET("/settings", handler.APIGetSettings)
		api.PUT("/settings", handler.APIUpdateSettings)
		api.POST("/refresh", handler.APIRefresh)
		api.DELETE("/cache", handler.APIPurgeCache)
		api.POST("/providers/reload", handler.APIReloadProviders)

		if handler.progress != nil {
			api.GET("/progress", handler.APIContinueWatching)
			api.GET("/progress/movie/:id", handler.APIGetMovieProgress)
			api.PUT("/progress/movie/:id", handler.APISaveMovieProgress)
			api.DELETE("/progress/movie/:id", handler.APIClearMovieProgress)
			api.GET("/progress/tv/:id", handler.APIGetLastEpisode)
			api.DELETE("/progress/tv/:id", handler.APIClearSeriesProgress)
			api.GET("/progress/tv/:id/:season/:episode", handler.APIGetEpisodeProgress)
			api.PUT("/progress/tv/:id/:season/:episode", handler.APISaveEpisodeProgress)
			api.DELETE("/progress/tv/:id/:season/:episode", handler.APIClearEpisodeProgress)
		}

		if handler.media != nil {
			api.GET("/media/search", handler.APISearchMedia)
			api.GET("/media/trending", handler.APITrendingMedia)
			api.GET("/media/movie/:id", handler.APIGetMovie)
			api.GET("/media/tv/:id", handler.APIGetSeries)
			api.GET("/media/tv/:id/season/:season", handler.APIGetSeason)
		}
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"health":    "/health",
			"providers": "/providers",
			"schedule":  "/schedule",
			"events":    "/events?category=<category>",
			"play":      "/play?id=<event id>",
		}
		if metricsHandler != nil {
			endpoints["metrics"] = "/metrics"
		}

		suffix := ""
		if apiAccessKey != "" {
			suffix = " (requires X-API-Key header)"
		}
		endpoints["selection"] = "/api/selection" + suffix
		endpoints["settings"] = "/api/settings" + suffix
		endpoints["refresh"] = "/api/refresh (POST)" + suffix
		endpoints["cache"] = "/api/cache (DELETE)" + suffix

		c.JSON(http.StatusOK, gin.H{
			"service":     "Stream Comb",
			"version":     handler.version,
			"description": "Live event schedule aggregator with category, team and status normalization",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       true,
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
