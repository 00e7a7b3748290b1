package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	OutputDir   string   `env:"OUTPUT_DIR" env-default:"./downloaded-images"`
	TargetsFile string   `env:"TARGETS_FILE" env-default:"./targets.yaml"`
	Sources     []string `env:"SOURCES" env-separator:"," env-default:"yelp,google,googlemaps,website"`
	LogLevel    string   `env:"LOG_LEVEL" env-default:"info"`

	MaxAssetsPerSource int           `env:"MAX_ASSETS_PER_SOURCE" env-default:"15"`
	MaxConcurrency     int           `env:"MAX_CONCURRENCY" env-default:"15"`
	RateLimitMs        int           `env:"RATE_LIMIT_MS" env-default:"0"`
	DownloadTimeout    time.Duration `env:"DOWNLOAD_TIMEOUT" env-default:"10s"`
	Cooldown           time.Duration `env:"COOLDOWN" env-default:"5s"`

	ReadyTimeout      time.Duration `env:"READY_TIMEOUT" env-default:"15s"`
	NavigationTimeout time.Duration `env:"NAVIGATION_TIMEOUT" env-default:"30s"`
	DiscoveryTimeout  time.Duration `env:"DISCOVERY_TIMEOUT" env-default:"2m"`
	MaxRetries        int           `env:"MAX_RETRIES" env-default:"2"`

	ChromeBin string `env:"CHROME_BIN"`
	Headless  bool   `env:"HEADLESS" env-default:"true"`
	UserAgent string `env:"USER_AGENT" env-default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`

	ManifestCSV string `env:"MANIFEST_CSV"`

	PostgresEnabled  bool   `env:"POSTGRES_ENABLED" env-default:"false"`
	PostgresHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" env-default:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" env-default:"scraper"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" env-default:"scraper123"`
	PostgresDB       string `env:"POSTGRES_DB" env-default:"itinerary"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" env-default:"disable"`

	Timeline TimelineConfig
}

// TimelineConfig configures the scroll-driven trip timeline.
type TimelineConfig struct {
	Days            []string `env:"TIMELINE_DAYS" env-separator:"," env-default:"Saturday,Sunday,Monday"`
	StartTime       string   `env:"TIMELINE_START" env-default:"9:50 AM"`
	ActiveStartHour float64  `env:"ACTIVE_START_HOUR" env-default:"7"`
	ActiveEndHour   float64  `env:"ACTIVE_END_HOUR" env-default:"22"`
}

// Load reads the .env file and returns a populated Config struct.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxAssetsPerSource < 1 {
		return fmt.Errorf("config: MAX_ASSETS_PER_SOURCE must be positive, got %d", c.MaxAssetsPerSource)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("config: DOWNLOAD_TIMEOUT must be positive, got %v", c.DownloadTimeout)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("config: COOLDOWN must not be negative, got %v", c.Cooldown)
	}
	if c.Timeline.ActiveEndHour <= c.Timeline.ActiveStartHour {
		return fmt.Errorf("config: ACTIVE_END_HOUR (%v) must be after ACTIVE_START_HOUR (%v)",
			c.Timeline.ActiveEndHour, c.Timeline.ActiveStartHour)
	}
	if len(c.Timeline.Days) == 0 {
		return fmt.Errorf("config: TIMELINE_DAYS must name at least one day")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}
