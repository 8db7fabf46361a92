package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from environment variables.
// Defaults target local development with SQLite and disk storage.
type Config struct {
	AppName  string
	Env      string // development, production, test
	Port     string
	GinMode  string
	SiteURL  string
	SiteName string

	// Database
	DBDriver    string // postgres or sqlite
	DatabaseURL string
	DBMaxConns  int
	DBConnLife  time.Duration

	SessionSecret string
	CookieSecure  bool

	// Object storage. GCSBucket empty means local disk under MediaDir.
	MediaDir       string
	MediaURL       string
	GCSBucket      string
	GCSCredentials string

	// Redis backs rate limiting when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	VoteRateLimit int
	RateWindow    time.Duration

	CORSAllowedOrigins string

	TemplatesDir string
	StaticDir    string

	FacetCacheTTL time.Duration

	// Bootstrap superuser, created or promoted at start when both are set.
	SuperuserName     string
	SuperuserPassword string

	HTTPLogEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	c := &Config{
		AppName:  getenv("APP_NAME", "folio"),
		Env:      getenv("APP_ENV", "development"),
		Port:     getenv("PORT", "8080"),
		GinMode:  getenv("GIN_MODE", "release"),
		SiteURL:  getenv("SITE_URL", "http://localhost:8080"),
		SiteName: getenv("SITE_NAME", "Portfolio"),

		DBDriver:    getenv("DB_DRIVER", ""),
		DatabaseURL: getenv("DATABASE_URL", ""),
		DBMaxConns:  getint("DB_MAX_CONNS", 10),
		DBConnLife:  getdur("DB_CONN_MAX_LIFETIME", 10*time.Minute),

		SessionSecret: getenv("SESSION_SECRET", "secret_key_change_me"),
		CookieSecure:  getbool("COOKIE_SECURE", false),

		MediaDir:       getenv("MEDIA_DIR", "./media"),
		MediaURL:       getenv("MEDIA_URL", "/media"),
		GCSBucket:      getenv("GCS_BUCKET", ""),
		GCSCredentials: getenv("GCS_CREDENTIALS_FILE", ""),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),
		VoteRateLimit: getint("VOTE_RATE_LIMIT", 30),
		RateWindow:    getdur("RATE_LIMIT_WINDOW", time.Minute),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		TemplatesDir: getenv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:    getenv("STATIC_DIR", "./web/static"),

		FacetCacheTTL: getdur("FACET_CACHE_TTL", 5*time.Minute),

		SuperuserName:     getenv("SUPERUSER_USERNAME", ""),
		SuperuserPassword: getenv("SUPERUSER_PASSWORD", ""),

		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", true),
	}
	if c.DBDriver == "" {
		// postgres when a URL is given, a local file otherwise
		if c.DatabaseURL != "" {
			c.DBDriver = "postgres"
		} else {
			c.DBDriver = "sqlite"
		}
	}
	if c.DatabaseURL == "" && c.DBDriver == "sqlite" {
		c.DatabaseURL = "folio.db"
	}
	return c
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
