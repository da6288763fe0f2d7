package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	LinksFile      string `mapstructure:"links_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	PollTimeoutSeconds  int64         `mapstructure:"poll_timeout_seconds"`
	HTTPTimeoutSeconds  int64         `mapstructure:"http_timeout_seconds"`
	MaxConcurrentPolls  int           `mapstructure:"max_concurrent_polls"`
	RequestsPerSecond   float64       `mapstructure:"requests_per_second"`
	PollInterval        time.Duration `mapstructure:"-"`
	PollTimeout         time.Duration `mapstructure:"-"`
	HTTPTimeout         time.Duration `mapstructure:"-"`

	StorageType string `mapstructure:"storage_type"`
	BBoltPath   string `mapstructure:"bbolt_path"`

	GitHubAPIURL        string `mapstructure:"github_api_url"`
	GitHubToken         string `mapstructure:"github_token"`
	StackOverflowAPIURL string `mapstructure:"stackoverflow_api_url"`
	StackOverflowKey    string `mapstructure:"stackoverflow_key"`
	UserAgent           string `mapstructure:"user_agent"`

	EnrichNotifications bool `mapstructure:"enrich_notifications"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-link-scrapper")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("links_file", "./configs/links.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 300) // seconds
	v.SetDefault("poll_timeout_seconds", 20)
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("max_concurrent_polls", 4)
	v.SetDefault("requests_per_second", 2.0)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/state.db")
	v.SetDefault("github_api_url", "https://api.github.com")
	v.SetDefault("github_token", "")
	v.SetDefault("stackoverflow_api_url", "https://api.stackexchange.com/2.3")
	v.SetDefault("stackoverflow_key", "")
	v.SetDefault("user_agent", "samvad-link-scrapper")
	v.SetDefault("enrich_notifications", true)

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

// normalize validates the raw values and derives the duration fields.
func (c *Config) normalize() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	if c.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid poll_timeout_seconds (must be positive seconds)")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	if c.MaxConcurrentPolls <= 0 {
		return fmt.Errorf("invalid max_concurrent_polls (must be positive)")
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid requests_per_second (must be positive)")
	}

	c.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second
	c.PollTimeout = time.Duration(c.PollTimeoutSeconds) * time.Second
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second
	return nil
}
