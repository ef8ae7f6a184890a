// Package config loads the graph-analytics configuration from YAML files
// and the environment.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/graph-analytics/pkg/compression"
	"github.com/graph-analytics/pkg/telemetry"
)

// Config holds all configuration for the application.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Sampling  SamplingConfig  `mapstructure:"sampling"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Export    ExportConfig    `mapstructure:"export"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// EngineConfig holds the iteration driver defaults.
type EngineConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	MaxIterations int    `mapstructure:"max_iterations"`
	MinBatchSize  int64  `mapstructure:"min_batch_size"`
	DataDir       string `mapstructure:"data_dir"` // downloaded inputs
}

// SamplingConfig holds random walk defaults.
type SamplingConfig struct {
	RestartProbability float64 `mapstructure:"restart_probability"`
	SamplingRatio      float64 `mapstructure:"sampling_ratio"`
	Seed               int64   `mapstructure:"seed"`
	WalkLength         int     `mapstructure:"walk_length"`
	WalksPerNode       int     `mapstructure:"walks_per_node"`
	BufferSize         int     `mapstructure:"buffer_size"`
	ReturnFactor       float64 `mapstructure:"return_factor"`
	InOutFactor        float64 `mapstructure:"in_out_factor"`
}

// DatabaseConfig holds the run history database connection.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql, sqlite or none
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Path     string `mapstructure:"path"` // sqlite file
}

// Enabled reports whether run history is persisted.
func (c DatabaseConfig) Enabled() bool {
	return c.Type != "" && c.Type != "none"
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// ExportConfig controls how per-node results are written.
type ExportConfig struct {
	Compression string `mapstructure:"compression"` // none, gzip or zstd
	Prefix      string `mapstructure:"prefix"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// TelemetryConfig overrides the OTEL_* environment.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Overrides converts the section for telemetry.Config.WithOverrides.
func (c TelemetryConfig) Overrides() telemetry.Overrides {
	return telemetry.Overrides{
		Enabled:     c.Enabled,
		ServiceName: c.ServiceName,
		Endpoint:    c.Endpoint,
		Protocol:    c.Protocol,
		SampleRatio: c.SampleRatio,
	}
}

// Load reads configuration from the specified file path. An empty path
// searches ./, ./configs and /etc/graph-analytics for config.yaml; a missing
// file leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/graph-analytics")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintln(os.Stderr, "Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// GRAPH_ANALYTICS_ENGINE_CONCURRENCY overrides engine.concurrency
	v.SetEnvPrefix("GRAPH_ANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := LoadFromReader("yaml", nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.concurrency", 4)
	v.SetDefault("engine.max_iterations", 10)
	v.SetDefault("engine.min_batch_size", 10000)
	v.SetDefault("engine.data_dir", "./data")

	// Sampling defaults
	v.SetDefault("sampling.restart_probability", 0.1)
	v.SetDefault("sampling.sampling_ratio", 0.15)
	v.SetDefault("sampling.seed", 0)
	v.SetDefault("sampling.walk_length", 80)
	v.SetDefault("sampling.walks_per_node", 10)
	v.SetDefault("sampling.buffer_size", 1000)
	v.SetDefault("sampling.return_factor", 1.0)
	v.SetDefault("sampling.in_out_factor", 1.0)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.path", "./graph-analytics.db")

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")

	// Export defaults
	v.SetDefault("export.compression", "zstd")
	v.SetDefault("export.prefix", "results")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.Concurrency < 1 {
		return fmt.Errorf("engine concurrency must be at least 1")
	}
	if c.Engine.MaxIterations < 1 {
		return fmt.Errorf("engine max iterations must be at least 1")
	}
	if c.Engine.MinBatchSize < 0 {
		return fmt.Errorf("engine min batch size must not be negative")
	}

	if r := c.Sampling.SamplingRatio; !(r > 0 && r <= 1) {
		return fmt.Errorf("sampling ratio must be in (0, 1], got %v", r)
	}
	if p := c.Sampling.RestartProbability; !(p > 0 && p < 1) {
		return fmt.Errorf("restart probability must be in (0, 1), got %v", p)
	}

	switch c.Database.Type {
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("sqlite database path is required")
		}
	case "none", "":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage config validation is delegated to storage package

	if _, err := compression.ParseType(c.Export.Compression); err != nil {
		return err
	}
	if f := c.Log.Format; f != "" && f != "text" && f != "json" {
		return fmt.Errorf("unsupported log format: %s", f)
	}
	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Engine.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Engine.DataDir, 0755)
}

// GetRunDir returns the run-specific directory path.
func (c *Config) GetRunDir(runID string) string {
	return filepath.Join(c.Engine.DataDir, runID)
}
