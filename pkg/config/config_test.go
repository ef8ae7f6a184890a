package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, "storage:\n  type: local\n"))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.Concurrency)
	assert.Equal(t, 10, cfg.Engine.MaxIterations)
	assert.Equal(t, int64(10000), cfg.Engine.MinBatchSize)
	assert.Equal(t, "./data", cfg.Engine.DataDir)
	assert.Equal(t, 0.1, cfg.Sampling.RestartProbability)
	assert.Equal(t, 0.15, cfg.Sampling.SamplingRatio)
	assert.Equal(t, 80, cfg.Sampling.WalkLength)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "zstd", cfg.Export.Compression)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_CustomValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
engine:
  concurrency: 16
  max_iterations: 50
  min_batch_size: 1
  data_dir: /tmp/graphs
sampling:
  sampling_ratio: 0.5
  restart_probability: 0.2
  seed: 42
database:
  type: postgres
  host: db.example.com
  port: 5433
  database: graphs
  user: admin
  password: secret
storage:
  type: cos
  bucket: results-1250000000
  region: ap-guangzhou
export:
  compression: gzip
log:
  level: debug
  format: json
telemetry:
  enabled: true
  endpoint: collector:4317
  sample_ratio: 0.25
`))
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Engine.Concurrency)
	assert.Equal(t, 50, cfg.Engine.MaxIterations)
	assert.Equal(t, int64(1), cfg.Engine.MinBatchSize)
	assert.Equal(t, int64(42), cfg.Sampling.Seed)
	assert.Equal(t, 0.5, cfg.Sampling.SamplingRatio)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "cos", cfg.Storage.Type)
	assert.Equal(t, "gzip", cfg.Export.Compression)
	assert.Equal(t, "json", cfg.Log.Format)

	o := cfg.Telemetry.Overrides()
	assert.True(t, o.Enabled)
	assert.Equal(t, "collector:4317", o.Endpoint)
	assert.Equal(t, 0.25, o.SampleRatio)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.Concurrency)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GRAPH_ANALYTICS_ENGINE_CONCURRENCY", "7")
	cfg, err := Load(writeConfig(t, "engine:\n  concurrency: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.Concurrency)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "engine: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero concurrency", func(c *Config) { c.Engine.Concurrency = 0 }, true},
		{"zero iterations", func(c *Config) { c.Engine.MaxIterations = 0 }, true},
		{"negative batch", func(c *Config) { c.Engine.MinBatchSize = -1 }, true},
		{"ratio too large", func(c *Config) { c.Sampling.SamplingRatio = 2 }, true},
		{"restart of one", func(c *Config) { c.Sampling.RestartProbability = 1 }, true},
		{"postgres without host", func(c *Config) { c.Database.Type = "postgres"; c.Database.Host = "" }, true},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, true},
		{"unknown database", func(c *Config) { c.Database.Type = "oracle" }, true},
		{"no database", func(c *Config) { c.Database.Type = "none" }, false},
		{"unknown compression", func(c *Config) { c.Export.Compression = "lz4" }, true},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_Enabled(t *testing.T) {
	assert.False(t, DatabaseConfig{}.Enabled())
	assert.False(t, DatabaseConfig{Type: "none"}.Enabled())
	assert.True(t, DatabaseConfig{Type: "mysql"}.Enabled())
}

func TestEnsureDataDirAndRunDir(t *testing.T) {
	cfg := Default()
	cfg.Engine.DataDir = filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, cfg.EnsureDataDir())

	info, err := os.Stat(cfg.Engine.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(cfg.Engine.DataDir, "run-1"), cfg.GetRunDir("run-1"))
}
