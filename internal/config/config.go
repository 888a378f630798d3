// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the catalog crawler reads at startup.
type Config struct {
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ExtractorConfig selects and tunes the fragment-extraction backend.
// Backend "service" posts to the hosted extraction API; "local" fetches and
// matches selectors in-process, rendering with headless Chrome when needed.
type ExtractorConfig struct {
	Backend           string `mapstructure:"backend"`
	Endpoint          string `mapstructure:"endpoint"`
	APIKey            string `mapstructure:"api_key"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	RenderMaxParallel int    `mapstructure:"render_max_parallel"`
}

// CrawlerConfig governs the category tree walk and product ingestion.
type CrawlerConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	StartPath       string `mapstructure:"start_path"`
	SectionSelector string `mapstructure:"section_selector"`
	ProductSelector string `mapstructure:"product_selector"`
	MaxDepth        int    `mapstructure:"max_depth"`
}

// DBConfig controls access to the Postgres catalog store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extractor.backend", "service")
	v.SetDefault("extractor.endpoint", "https://api.scrapeowl.com/v1/scrape")
	v.SetDefault("extractor.timeout_seconds", 30)
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.retry_delay_seconds", 2)
	v.SetDefault("extractor.user_agent", "catalog-crawler/1.0")
	v.SetDefault("extractor.render_max_parallel", 1)
	v.SetDefault("crawler.start_path", "gp/bestsellers/")
	v.SetDefault("crawler.max_depth", 3)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Extractor.Backend {
	case "service":
		if c.Extractor.APIKey == "" {
			return fmt.Errorf("extractor.api_key must be set for the service backend")
		}
		if c.Extractor.Endpoint == "" {
			return fmt.Errorf("extractor.endpoint must be set for the service backend")
		}
	case "local":
	default:
		return fmt.Errorf("extractor.backend must be %q or %q", "service", "local")
	}
	if c.Extractor.MaxRetries <= 0 {
		return fmt.Errorf("extractor.max_retries must be > 0")
	}
	if c.Extractor.RetryDelaySeconds < 0 {
		return fmt.Errorf("extractor.retry_delay_seconds must be >= 0")
	}
	if c.Crawler.BaseURL == "" {
		return fmt.Errorf("crawler.base_url must be set")
	}
	if c.Crawler.SectionSelector == "" {
		return fmt.Errorf("crawler.section_selector must be set")
	}
	if c.Crawler.ProductSelector == "" {
		return fmt.Errorf("crawler.product_selector must be set")
	}
	if c.Crawler.MaxDepth <= 0 {
		return fmt.Errorf("crawler.max_depth must be > 0")
	}
	return nil
}

// ExtractorTimeout converts the configured timeout into a duration.
func (c Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Extractor.TimeoutSeconds) * time.Second
}

// RetryDelay converts the configured inter-attempt delay into a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Extractor.RetryDelaySeconds) * time.Second
}
