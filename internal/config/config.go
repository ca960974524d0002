package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	SelectorsFile  string `mapstructure:"selectors_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	SummarizeURL          string        `mapstructure:"webhook_summarize_url"`
	ChatURL               string        `mapstructure:"webhook_chat_url"`
	WebhookTimeoutSeconds int64         `mapstructure:"webhook_timeout_seconds"`
	WebhookTimeout        time.Duration `mapstructure:"-"`

	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`
	FetchRetries        int           `mapstructure:"fetch_retries"`
	UserAgent           string        `mapstructure:"fetch_user_agent"`
	MaxHTMLBytes        int           `mapstructure:"max_html_bytes"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SummaryTTLSeconds      int64         `mapstructure:"summary_cache_ttl_seconds"`
	SummaryCacheMaxEntries int           `mapstructure:"summary_cache_max_entries"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	SummaryTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	WatchIntervalSeconds int64         `mapstructure:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-"`
	WatchURLsFile        string        `mapstructure:"watch_urls_file"`
	WatchSchedule        string        `mapstructure:"watch_schedule"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-article-summarizer")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("selectors_file", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("webhook_summarize_url", "")
	v.SetDefault("webhook_chat_url", "")
	v.SetDefault("webhook_timeout_seconds", 30)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("fetch_retries", 2)
	v.SetDefault("fetch_user_agent", "samvad-article-summarizer/1.0")
	v.SetDefault("max_html_bytes", 2<<20)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/summarizer.db")
	v.SetDefault("summary_cache_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("summary_cache_max_entries", 20)
	v.SetDefault("storage_cleanup_interval_seconds", int64((time.Hour)/time.Second))
	v.SetDefault("watch_interval", 300) // seconds
	v.SetDefault("watch_urls_file", "./configs/watch.yaml")
	v.SetDefault("watch_schedule", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.SummarizeURL = strings.TrimSpace(c.SummarizeURL)
	c.ChatURL = strings.TrimSpace(c.ChatURL)
	if c.ChatURL == "" {
		c.ChatURL = c.SummarizeURL
	}

	if c.WebhookTimeoutSeconds < 0 {
		return fmt.Errorf("invalid webhook_timeout_seconds (must not be negative)")
	}
	// The webhook client clamps this into its accepted range.
	c.WebhookTimeout = time.Duration(c.WebhookTimeoutSeconds) * time.Second

	if c.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	c.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	if c.FetchRetries < 0 {
		return fmt.Errorf("invalid fetch_retries (must not be negative)")
	}

	if c.MaxHTMLBytes <= 0 {
		return fmt.Errorf("invalid max_html_bytes (must be positive)")
	}

	if c.SummaryTTLSeconds <= 0 {
		return fmt.Errorf("invalid summary_cache_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	if c.SummaryCacheMaxEntries <= 0 {
		return fmt.Errorf("invalid summary_cache_max_entries (must be positive)")
	}
	c.SummaryTTL = time.Duration(c.SummaryTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	if c.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	c.WatchInterval = time.Duration(c.WatchIntervalSeconds) * time.Second
	c.WatchSchedule = strings.TrimSpace(c.WatchSchedule)
	return nil
}
