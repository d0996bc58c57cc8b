package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bminaiev/zoopla-parser/internal/domain"
)

// Config holds all configuration for the application. Values are read by
// viper from a config file or environment variables.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Log      LogConfig      `mapstructure:"log"`

	// Site selects the adapter; "zoopla" (default) or "rightmove".
	Site string `mapstructure:"site"`

	Queries     []QueryConfig      `mapstructure:"queries"`
	Subscribers []SubscriberConfig `mapstructure:"subscribers"`
}

// TelegramConfig wires the delivery credentials.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// TestChatID receives deliveries from the diagnostic command.
	TestChatID int64 `mapstructure:"test_chat_id"`
}

// StorageConfig selects and locates the ledger backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"` // badger | postgres
	BadgerPath  string `mapstructure:"badger_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// FetchConfig controls the page fetcher and its response cache.
type FetchConfig struct {
	Kind         string `mapstructure:"kind"` // http | rod
	CacheDir     string `mapstructure:"cache_dir"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
}

// OCRConfig locates the external OCR engine.
type OCRConfig struct {
	TesseractBin string `mapstructure:"tesseract_bin"`
	TessdataPath string `mapstructure:"tessdata_path"`
}

// FilterConfig holds the global price defaults and the minimum plausible
// area. Per-query bounds override the prices.
type FilterConfig struct {
	MinPrice   int     `mapstructure:"min_price"`
	MaxPrice   int     `mapstructure:"max_price"`
	MinAreaSqM float64 `mapstructure:"min_area_sqm"`
}

// DeliveryConfig bounds the photo batch and the retry policy.
type DeliveryConfig struct {
	MaxPhotos     int           `mapstructure:"max_photos"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// QueryConfig is one saved search.
type QueryConfig struct {
	URL      string `mapstructure:"url"`
	Tag      string `mapstructure:"tag"`
	MinPrice *int   `mapstructure:"min_price"`
	MaxPrice *int   `mapstructure:"max_price"`
}

// SubscriberConfig is one delivery recipient.
type SubscriberConfig struct {
	Name   string   `mapstructure:"name"`
	ChatID int64    `mapstructure:"chat_id"`
	Tags   []string `mapstructure:"tags"`
}

// Load reads configuration from file or environment variables.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("site", "zoopla")
	viper.SetDefault("storage.backend", "badger")
	viper.SetDefault("storage.badger_path", "./ledger_data")
	viper.SetDefault("fetch.kind", "http")
	viper.SetDefault("fetch.cache_dir", "./responses-cache")
	viper.SetDefault("fetch.cache_enabled", true)
	viper.SetDefault("filter.min_price", 1500)
	viper.SetDefault("filter.max_price", 4000)
	viper.SetDefault("filter.min_area_sqm", 25.0)
	viper.SetDefault("delivery.max_photos", 9)
	viper.SetDefault("delivery.retry_attempts", 8)
	viper.SetDefault("delivery.retry_backoff", time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine, env vars may carry everything needed.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is not set")
	}
	if len(c.Queries) == 0 {
		return fmt.Errorf("no search queries configured")
	}
	if len(c.Subscribers) == 0 {
		return fmt.Errorf("no subscribers configured")
	}
	for _, q := range c.Queries {
		if q.Tag == "" || q.URL == "" {
			return fmt.Errorf("query needs both url and tag (got url=%q tag=%q)", q.URL, q.Tag)
		}
	}
	for _, s := range c.Subscribers {
		if s.Name == "" || s.ChatID == 0 {
			return fmt.Errorf("subscriber needs both name and chat_id (got name=%q)", s.Name)
		}
	}
	if c.Storage.Backend == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}
	return nil
}

// SearchQueries converts the configured queries to domain values.
func (c Config) SearchQueries() []domain.SearchQuery {
	queries := make([]domain.SearchQuery, 0, len(c.Queries))
	for _, q := range c.Queries {
		queries = append(queries, domain.SearchQuery{
			URL:      q.URL,
			Tag:      q.Tag,
			MinPrice: q.MinPrice,
			MaxPrice: q.MaxPrice,
		})
	}
	return queries
}

// TestSubscriber is the synthetic recipient used by the diagnostic command.
func (c Config) TestSubscriber() domain.Subscriber {
	return domain.Subscriber{Name: "diagnostic", ChatID: c.Telegram.TestChatID}
}

// SubscriberList converts the configured subscribers to domain values.
func (c Config) SubscriberList() []domain.Subscriber {
	subs := make([]domain.Subscriber, 0, len(c.Subscribers))
	for _, s := range c.Subscribers {
		tags := make(map[string]struct{}, len(s.Tags))
		for _, t := range s.Tags {
			tags[t] = struct{}{}
		}
		subs = append(subs, domain.Subscriber{Name: s.Name, ChatID: s.ChatID, Tags: tags})
	}
	return subs
}
