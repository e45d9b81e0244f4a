package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath       string
	CacheBackend string
	RedisURL     string
	CachePrefix  string
	CacheTTL     time.Duration

	// Application configuration
	ProvidersDir      string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string
	DefaultProvider   string

	// Upstream access
	UserAgent                 string
	RequestTimeout            time.Duration
	FetchProxies              []string
	LanguageLookupConcurrency int

	// Schedule presentation
	LogoBasePath       string
	StartingSoonWindow time.Duration
	AssumedDuration    time.Duration

	// Media metadata
	TMDBAPIKey  string
	TMDBBaseURL string

	// Application metadata
	Timezone string
	Debug    bool
	LogFile  string
	Version  string
}
