package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	API      APIConfig      `yaml:"api" envconfig:"API"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// APIConfig contains REData API client configuration
type APIConfig struct {
	BaseURL        string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://apidatos.ree.es/es" validate:"required,url"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	MaxRetries     int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3" validate:"min=0,max=10"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" envconfig:"RETRY_BACKOFF" default:"2s"`
	RequestsPerSec float64       `yaml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC" default:"2" validate:"gt=0"`
	RequestBurst   int           `yaml:"request_burst" envconfig:"REQUEST_BURST" default:"1" validate:"min=1"`
}

// PipelineConfig contains the statistical cleaning policy knobs
type PipelineConfig struct {
	// ZScoreThreshold flags |z| above this value as an outlier
	ZScoreThreshold float64 `yaml:"zscore_threshold" envconfig:"ZSCORE_THRESHOLD" default:"3" validate:"gt=0"`
	// IQRMultiplier widens the interquartile fence: Q1-k*IQR, Q3+k*IQR
	IQRMultiplier float64 `yaml:"iqr_multiplier" envconfig:"IQR_MULTIPLIER" default:"1.5" validate:"gt=0"`
	// SmallerValueIsDaily keeps the smaller of two colliding first-of-month
	// values as the daily figure. The feed has never been observed to do
	// the opposite, but the assumption is not verified upstream, so it
	// stays configurable.
	SmallerValueIsDaily bool `yaml:"smaller_value_is_daily" envconfig:"SMALLER_VALUE_IS_DAILY" default:"true"`
	// LargerPercentIsDaily keeps the larger of two colliding percentages
	// as the daily figure.
	LargerPercentIsDaily bool `yaml:"larger_percent_is_daily" envconfig:"LARGER_PERCENT_IS_DAILY" default:"true"`
	// MaxColumnWorkers bounds the per-column outlier detection workers
	MaxColumnWorkers int `yaml:"max_column_workers" envconfig:"MAX_COLUMN_WORKERS" default:"4" validate:"min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/genpulse.log"`
}

// TracingConfig contains OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1" validate:"min=0,max=1"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportDir string `yaml:"report_dir" envconfig:"REPORT_DIR" default:"reports"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and an optional
// YAML file. Environment variables (GENPULSE_ prefix) take precedence.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process("GENPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, keys, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileCfg, keys, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// fileKeys records which settings the YAML file actually contains, so the
// merge can tell an explicit false or zero apart from an absent key.
type fileKeys map[string]map[string]interface{}

func (f fileKeys) has(section, key string) bool {
	s, ok := f[section]
	if !ok {
		return false
	}
	_, ok = s[key]
	return ok
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, fileKeys, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, err
	}

	var keys fileKeys
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, nil, err
	}

	return &cfg, keys, nil
}

// mergeConfigs overlays the file config on the env config, covering every
// tagged field. A key present in the file wins over an envconfig default;
// an explicitly set environment variable wins over the file.
func mergeConfigs(fileCfg Config, keys fileKeys, envCfg Config) Config {
	merge := func(section, key, envVar string, apply func()) {
		if keys.has(section, key) && !envSet(envVar) {
			apply()
		}
	}

	merge("api", "base_url", "GENPULSE_API_BASE_URL", func() { envCfg.API.BaseURL = fileCfg.API.BaseURL })
	merge("api", "timeout", "GENPULSE_API_TIMEOUT", func() { envCfg.API.Timeout = fileCfg.API.Timeout })
	merge("api", "max_retries", "GENPULSE_API_MAX_RETRIES", func() { envCfg.API.MaxRetries = fileCfg.API.MaxRetries })
	merge("api", "retry_backoff", "GENPULSE_API_RETRY_BACKOFF", func() { envCfg.API.RetryBackoff = fileCfg.API.RetryBackoff })
	merge("api", "requests_per_sec", "GENPULSE_API_REQUESTS_PER_SEC", func() { envCfg.API.RequestsPerSec = fileCfg.API.RequestsPerSec })
	merge("api", "request_burst", "GENPULSE_API_REQUEST_BURST", func() { envCfg.API.RequestBurst = fileCfg.API.RequestBurst })

	merge("pipeline", "zscore_threshold", "GENPULSE_PIPELINE_ZSCORE_THRESHOLD", func() { envCfg.Pipeline.ZScoreThreshold = fileCfg.Pipeline.ZScoreThreshold })
	merge("pipeline", "iqr_multiplier", "GENPULSE_PIPELINE_IQR_MULTIPLIER", func() { envCfg.Pipeline.IQRMultiplier = fileCfg.Pipeline.IQRMultiplier })
	merge("pipeline", "smaller_value_is_daily", "GENPULSE_PIPELINE_SMALLER_VALUE_IS_DAILY", func() { envCfg.Pipeline.SmallerValueIsDaily = fileCfg.Pipeline.SmallerValueIsDaily })
	merge("pipeline", "larger_percent_is_daily", "GENPULSE_PIPELINE_LARGER_PERCENT_IS_DAILY", func() { envCfg.Pipeline.LargerPercentIsDaily = fileCfg.Pipeline.LargerPercentIsDaily })
	merge("pipeline", "max_column_workers", "GENPULSE_PIPELINE_MAX_COLUMN_WORKERS", func() { envCfg.Pipeline.MaxColumnWorkers = fileCfg.Pipeline.MaxColumnWorkers })

	merge("logging", "level", "GENPULSE_LOGGING_LEVEL", func() { envCfg.Logging.Level = fileCfg.Logging.Level })
	merge("logging", "format", "GENPULSE_LOGGING_FORMAT", func() { envCfg.Logging.Format = fileCfg.Logging.Format })
	merge("logging", "output", "GENPULSE_LOGGING_OUTPUT", func() { envCfg.Logging.Output = fileCfg.Logging.Output })
	merge("logging", "file_path", "GENPULSE_LOGGING_FILE_PATH", func() { envCfg.Logging.FilePath = fileCfg.Logging.FilePath })

	merge("tracing", "enabled", "GENPULSE_TRACING_ENABLED", func() { envCfg.Tracing.Enabled = fileCfg.Tracing.Enabled })
	merge("tracing", "sample_ratio", "GENPULSE_TRACING_SAMPLE_RATIO", func() { envCfg.Tracing.SampleRatio = fileCfg.Tracing.SampleRatio })

	merge("paths", "data_dir", "GENPULSE_PATHS_DATA_DIR", func() { envCfg.Paths.DataDir = fileCfg.Paths.DataDir })
	merge("paths", "report_dir", "GENPULSE_PATHS_REPORT_DIR", func() { envCfg.Paths.ReportDir = fileCfg.Paths.ReportDir })
	merge("paths", "logs_dir", "GENPULSE_PATHS_LOGS_DIR", func() { envCfg.Paths.LogsDir = fileCfg.Paths.LogsDir })

	return envCfg
}

func envSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// EnsureDirectories creates the configured data, report and log
// directories when they do not exist yet.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RawDataPath returns the path a fetched raw-records file is written to.
func (c *Config) RawDataPath(name string) string {
	return filepath.Join(c.Paths.DataDir, name)
}

// ReportPath returns the path an exported report is written to.
func (c *Config) ReportPath(name string) string {
	return filepath.Join(c.Paths.ReportDir, name)
}
