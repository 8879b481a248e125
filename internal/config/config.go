package config

import (
	"log"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"CatalogSync/internal/detector"
	"CatalogSync/internal/domain"
	"CatalogSync/internal/quality"
	"CatalogSync/internal/scoring"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "CATALOGSYNC_CONFIG"
	envPrefix       = "CATALOGSYNC"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig          `yaml:"database"`
	Redis         RedisConfig             `yaml:"redis"`
	HTTP          HTTPConfig              `yaml:"http"`
	Logging       LoggingConfig           `yaml:"logging"`
	Scheduler     SchedulerConfig         `yaml:"scheduler"`
	Fetch         FetchConfig             `yaml:"fetch"`
	Import        ImportConfig            `yaml:"import"`
	Sync          SyncConfig              `yaml:"sync"`
	Scoring       ScoringConfig           `yaml:"scoring"`
	Pricing       PricingConfig           `yaml:"pricing"`
	Backup        domain.BackupCriteria   `yaml:"backup"`
	Notifications NotificationConfig      `yaml:"notifications"`
	Platforms     []detector.PlatformRule `yaml:"platforms"`
	// Suppliers seed the in-memory registry when no database is configured.
	Suppliers []domain.Supplier `yaml:"suppliers"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN keeps
// the catalog in memory.
type DatabaseConfig struct {
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// RedisConfig locates the alert channel.
type RedisConfig struct {
	URL         string        `yaml:"url"`
	Channel     string        `yaml:"channel"`
	DialTimeout time.Duration `yaml:"dialTimeout"`
}

// HTTPConfig configures the operation surface listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SchedulerConfig defines how often suppliers are synced.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetchConfig tunes remote retrieval.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	Backoff   time.Duration `yaml:"backoff"`
	RPS       float64       `yaml:"rps"`
	Burst     int           `yaml:"burst"`
	UserAgent string        `yaml:"userAgent"`
}

// ImportConfig holds ingestion policy.
type ImportConfig struct {
	DuplicateStrategy      domain.DuplicateStrategy `yaml:"duplicateStrategy"`
	Criteria               quality.Criteria         `yaml:"criteria"`
	MaxVariantCombinations int                      `yaml:"maxVariantCombinations"`
	AssumedInStockQuantity int                      `yaml:"assumedInStockQuantity"`
	DefaultCurrency        string                   `yaml:"defaultCurrency"`
	MaxPages               int                      `yaml:"maxPages"`
	Parallel               int                      `yaml:"parallel"`
	MaxErrorList           int                      `yaml:"maxErrorList"`
	FeedAPIKey             string                   `yaml:"feedApiKey"`
	// AllowLocalFiles permits non-URL import locators. The CLI enables it for
	// one-shot commands; the HTTP surface never reads local files.
	AllowLocalFiles        bool                     `yaml:"-"`
	Tabular                TabularConfig            `yaml:"tabular"`
	Selectors              map[string][]string      `yaml:"selectors"`
}

// TabularConfig holds CSV/XML defaults.
type TabularConfig struct {
	Encoding    string `yaml:"encoding"`
	Delimiter   string `yaml:"delimiter"`
	ItemElement string `yaml:"itemElement"`
}

// SyncConfig bounds reconciliation runs.
type SyncConfig struct {
	MaxConcurrency    int     `yaml:"maxConcurrency"`
	FailureThreshold  float64 `yaml:"failureThreshold"`
	LowStockThreshold int     `yaml:"lowStockThreshold"`
}

// ScoringConfig carries scoring weights and alert thresholds.
type ScoringConfig struct {
	Product           scoring.ProductWeights  `yaml:"product"`
	Supplier          scoring.SupplierWeights `yaml:"supplier"`
	LowScoreThreshold float64                 `yaml:"lowScoreThreshold"`
}

// PricingConfig configures the pricing engine.
type PricingConfig struct {
	CompetitiveFactor float64              `yaml:"competitiveFactor"`
	Rules             []domain.PricingRule `yaml:"rules"`
	OracleURL         string               `yaml:"oracleUrl"`
	OracleAPIKey      string               `yaml:"oracleApiKey"`
	OracleTimeout     time.Duration        `yaml:"oracleTimeout"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// envOverrides are read with the CATALOGSYNC_ prefix.
type envOverrides struct {
	DatabaseDSN      string `envconfig:"DATABASE_DSN"`
	RedisURL         string `envconfig:"REDIS_URL"`
	HTTPAddr         string `envconfig:"HTTP_ADDR"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`
	PricingOracleURL string `envconfig:"PRICING_ORACLE_URL"`
	PricingOracleKey string `envconfig:"PRICING_ORACLE_KEY"`
	FeedAPIKey       string `envconfig:"FEED_API_KEY"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if fileCfg, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their
// default values.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.bindTimezone()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		log.Printf("config: cannot process environment: %v", err)
		return
	}

	if env.DatabaseDSN != "" {
		c.Database.DSN = env.DatabaseDSN
	}
	if env.RedisURL != "" {
		c.Redis.URL = env.RedisURL
	}
	if env.HTTPAddr != "" {
		c.HTTP.Addr = env.HTTPAddr
	}
	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.TelegramBotToken != "" {
		c.Notifications.Telegram.BotToken = env.TelegramBotToken
	}
	if env.TelegramChatID != "" {
		c.Notifications.Telegram.ChatID = env.TelegramChatID
	}
	if env.PricingOracleURL != "" {
		c.Pricing.OracleURL = env.PricingOracleURL
	}
	if env.PricingOracleKey != "" {
		c.Pricing.OracleAPIKey = env.PricingOracleKey
	}
	if env.FeedAPIKey != "" {
		c.Import.FeedAPIKey = env.FeedAPIKey
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Redis:     RedisConfig{Channel: "catalogsync.alerts", DialTimeout: 5 * time.Second},
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		Fetch: FetchConfig{
			Timeout:   15 * time.Second,
			Retries:   2,
			Backoff:   500 * time.Millisecond,
			RPS:       5,
			Burst:     5,
			UserAgent: "CatalogSync/1.0",
		},
		Import: ImportConfig{
			DuplicateStrategy:      domain.DuplicateSkip,
			MaxVariantCombinations: 100,
			AssumedInStockQuantity: 1,
			MaxPages:               50,
			Parallel:               4,
			MaxErrorList:           50,
			Tabular:                TabularConfig{Encoding: "utf-8"},
		},
		Sync: SyncConfig{
			MaxConcurrency:    4,
			FailureThreshold:  0.5,
			LowStockThreshold: 5,
		},
		Scoring: ScoringConfig{
			Product:           scoring.DefaultProductWeights,
			Supplier:          scoring.DefaultSupplierWeights,
			LowScoreThreshold: 40,
		},
		Pricing: PricingConfig{
			CompetitiveFactor: 1.15,
			OracleTimeout:     10 * time.Second,
		},
		Backup: domain.BackupCriteria{MinScore: 60},
	}
}
