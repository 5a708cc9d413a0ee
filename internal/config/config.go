// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
	"github.com/perfwatch/pagespeed-pipeline/internal/report"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	ProjectID string          `mapstructure:"project_id"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	PageSpeed PageSpeedConfig `mapstructure:"pagespeed"`
	GCS       GCSConfig       `mapstructure:"gcs"`
	BigQuery  BigQueryConfig  `mapstructure:"bigquery"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Debounce  DebounceConfig  `mapstructure:"debounce"`
	Output    OutputConfig    `mapstructure:"output"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AuthConfig defines trigger endpoint authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// SourceConfig is one configured page to audit.
type SourceConfig struct {
	ID         string   `mapstructure:"id"`
	URL        string   `mapstructure:"url"`
	Strategy   string   `mapstructure:"strategy"`
	Categories []string `mapstructure:"categories"`
}

// PageSpeedConfig controls the audit API client.
type PageSpeedConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GCSConfig sets the bucket for state, report and scratch objects.
type GCSConfig struct {
	BucketName string `mapstructure:"bucket_name"`
}

// BigQueryConfig identifies the warehouse target table.
type BigQueryConfig struct {
	DatasetID string `mapstructure:"dataset_id"`
	Table     string `mapstructure:"table"`
}

// PubSubConfig holds the fan-out topic.
type PubSubConfig struct {
	TopicID string `mapstructure:"topic_id"`
}

// DebounceConfig controls the minimum time between accepted triggers.
type DebounceConfig struct {
	MinIntervalMillis int64 `mapstructure:"min_interval_ms"`
}

// OutputConfig lists the report output formats to write.
type OutputConfig struct {
	Formats []string `mapstructure:"formats"`
}

// DatabaseConfig controls the optional run-history store.
type DatabaseConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
}

// ServerConfig controls the trigger HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment and validates it. Validation
// failures are fatal: the process must not start serving triggers on a bad
// config.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDIT")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("pagespeed.timeout_seconds", 60)
	v.SetDefault("bigquery.table", "reports")
	v.SetDefault("debounce.min_interval_ms", int64(5*time.Minute/time.Millisecond))
	v.SetDefault("output.formats", []string{"json"})
	v.SetDefault("database.provider", "noop")
	v.SetDefault("database.table", "runs")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.GCS.BucketName == "" {
		return fmt.Errorf("gcs.bucket_name is required")
	}
	if c.BigQuery.DatasetID == "" {
		return fmt.Errorf("bigquery.dataset_id is required")
	}
	if c.PubSub.TopicID == "" {
		return fmt.Errorf("pubsub.topic_id is required")
	}
	if c.Debounce.MinIntervalMillis <= 0 {
		return fmt.Errorf("debounce.min_interval_ms must be > 0")
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
		if src.URL == "" {
			return fmt.Errorf("source %q: url is required", src.ID)
		}
		if _, err := audit.ParseStrategy(src.Strategy); err != nil {
			return fmt.Errorf("source %q: %w", src.ID, err)
		}
	}
	if _, err := report.ParseFormats(c.Output.Formats); err != nil {
		return err
	}
	switch c.Database.Provider {
	case "noop":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required when database.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown database provider %q", c.Database.Provider)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// AuditSources converts the validated source list into domain sources.
func (c Config) AuditSources() []audit.Source {
	sources := make([]audit.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		strategy, _ := audit.ParseStrategy(src.Strategy)
		sources = append(sources, audit.Source{
			ID:         src.ID,
			URL:        src.URL,
			Strategy:   strategy,
			Categories: src.Categories,
		})
	}
	return sources
}

// MinInterval returns the debounce window as a duration.
func (c Config) MinInterval() time.Duration {
	return time.Duration(c.Debounce.MinIntervalMillis) * time.Millisecond
}

// PageSpeedTimeout returns the audit API timeout as a duration.
func (c Config) PageSpeedTimeout() time.Duration {
	return time.Duration(c.PageSpeed.TimeoutSeconds) * time.Second
}
