package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfwatch/pagespeed-pipeline/internal/audit"
)

const validYAML = `
project_id: perf-project
sources:
  - id: homepage
    url: https://example.com
    strategy: mobile
    categories: [performance, seo]
  - id: pricing
    url: https://example.com/pricing
    strategy: desktop
gcs:
  bucket_name: audit-reports
bigquery:
  dataset_id: web_perf
pubsub:
  topic_id: audit-triggers
debounce:
  min_interval_ms: 60000
output:
  formats: [json]
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "perf-project", cfg.ProjectID)
	assert.Equal(t, "audit-reports", cfg.GCS.BucketName)
	assert.Equal(t, "web_perf", cfg.BigQuery.DatasetID)
	assert.Equal(t, "reports", cfg.BigQuery.Table, "table should default")
	assert.Equal(t, "audit-triggers", cfg.PubSub.TopicID)
	assert.Equal(t, time.Minute, cfg.MinInterval())
	assert.Equal(t, 8080, cfg.Server.Port, "port should default")
	assert.Equal(t, "noop", cfg.Database.Provider, "database should default to noop")

	sources := cfg.AuditSources()
	require.Len(t, sources, 2)
	assert.Equal(t, audit.StrategyMobile, sources[0].Strategy)
	assert.Equal(t, []string{"performance", "seo"}, sources[0].Categories)
	assert.Equal(t, audit.StrategyDesktop, sources[1].Strategy)
	assert.Empty(t, sources[1].Categories)
}

func TestLoadRejectsInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing project", func(c *Config) { c.ProjectID = "" }, "project_id"},
		{"missing bucket", func(c *Config) { c.GCS.BucketName = "" }, "bucket_name"},
		{"missing dataset", func(c *Config) { c.BigQuery.DatasetID = "" }, "dataset_id"},
		{"missing topic", func(c *Config) { c.PubSub.TopicID = "" }, "topic_id"},
		{"zero interval", func(c *Config) { c.Debounce.MinIntervalMillis = 0 }, "min_interval_ms"},
		{"no sources", func(c *Config) { c.Sources = nil }, "source"},
		{"duplicate id", func(c *Config) { c.Sources[1].ID = c.Sources[0].ID }, "duplicate"},
		{"bad strategy", func(c *Config) { c.Sources[0].Strategy = "tablet" }, "strategy"},
		{"bad format", func(c *Config) { c.Output.Formats = []string{"xml"} }, "format"},
		{"bad db provider", func(c *Config) { c.Database.Provider = "mysql" }, "database provider"},
		{"postgres without dsn", func(c *Config) { c.Database.Provider = "postgres" }, "dsn"},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true }, "api_key"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			require.NoError(t, err)

			tc.mutate(&cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
