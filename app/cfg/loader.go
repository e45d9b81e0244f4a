package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./data/stream-comb.db" description:"SQLite database file"`
	CacheBackend string `long:"cache-backend" env:"CACHE_BACKEND" default:"sqlite" choice:"sqlite" choice:"memory" choice:"redis" description:"Where normalized schedules are cached"`
	RedisURL     string `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis URL when cache backend is redis"`
	CachePrefix  string `long:"cache-prefix" env:"CACHE_PREFIX" default:"streamcomb:" description:"Key prefix for the redis cache backend"`
	CacheTTL     int    `long:"cache-ttl" env:"CACHE_TTL" default:"86400" description:"Schedule cache lifetime in seconds"`

	// Application configuration
	ProvidersDir      string `long:"providers-dir" env:"PROVIDERS_DIR" default:"./providers" description:"Directory containing provider override files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Schedule poll interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	DefaultProvider   string `long:"default-provider" env:"DEFAULT_PROVIDER" default:"pptv" description:"Provider selected when none is stored"`

	// Upstream access
	UserAgent                 string   `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36" description:"User agent string for upstream requests"`
	RequestTimeout            int      `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Upstream request timeout in seconds"`
	FetchProxies              []string `long:"fetch-proxy" env:"FETCH_PROXIES" env-delim:"," default:"https://corsproxy.io/?" default:"https://api.allorigins.win/raw?url=" description:"Proxy prefixes tried in order when a direct fetch fails"`
	LanguageLookupConcurrency int      `long:"language-lookups" env:"LANGUAGE_LOOKUPS" default:"4" description:"Concurrent stream language lookups"`

	// Schedule presentation
	LogoBasePath        string `long:"logo-base-path" env:"LOGO_BASE_PATH" default:"/logos" description:"Base path for team and league logos"`
	StartingSoonMinutes int    `long:"starting-soon" env:"STARTING_SOON_MINUTES" default:"60" description:"Minutes before start an event counts as starting soon"`
	AssumedDuration     int    `long:"assumed-duration" env:"ASSUMED_DURATION_MINUTES" default:"180" description:"Assumed event length in minutes when no end time is known"`

	// Media metadata
	TMDBAPIKey  string `long:"tmdb-api-key" env:"TMDB_API_KEY" description:"TMDB API key for movie and TV lookups (optional)"`
	TMDBBaseURL string `long:"tmdb-base-url" env:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3" description:"TMDB API base URL"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Viewer timezone for current-day checks (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFile  string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		DBPath:                    raw.DBPath,
		CacheBackend:              raw.CacheBackend,
		RedisURL:                  raw.RedisURL,
		CachePrefix:               raw.CachePrefix,
		CacheTTL:                  time.Duration(raw.CacheTTL) * time.Second,
		ProvidersDir:              raw.ProvidersDir,
		Port:                      raw.Port,
		WorkerCount:               raw.WorkerCount,
		SchedulerInterval:         raw.SchedulerInterval,
		APIAccessKey:              raw.APIAccessKey,
		DefaultProvider:           raw.DefaultProvider,
		UserAgent:                 raw.UserAgent,
		RequestTimeout:            time.Duration(raw.RequestTimeout) * time.Second,
		FetchProxies:              raw.FetchProxies,
		LanguageLookupConcurrency: raw.LanguageLookupConcurrency,
		LogoBasePath:              raw.LogoBasePath,
		StartingSoonWindow:        time.Duration(raw.StartingSoonMinutes) * time.Minute,
		AssumedDuration:           time.Duration(raw.AssumedDuration) * time.Minute,
		TMDBAPIKey:                raw.TMDBAPIKey,
		TMDBBaseURL:               raw.TMDBBaseURL,
		Timezone:                  raw.Timezone,
		Debug:                     raw.Debug,
		LogFile:                   raw.LogFile,
		Version:                   GetVersion(),
	}
}

func (c *Cfg) validate() error {
	positive := map[string]int{
		"worker count":       c.WorkerCount,
		"scheduler interval": c.SchedulerInterval,
		"language lookups":   c.LanguageLookupConcurrency,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	durations := map[string]time.Duration{
		"cache TTL":        c.CacheTTL,
		"request timeout":  c.RequestTimeout,
		"starting soon":    c.StartingSoonWindow,
		"assumed duration": c.AssumedDuration,
	}
	for name, value := range durations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
