// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cx-datamart/acreage-cli/internal/acreage"
	"github.com/cx-datamart/acreage-cli/internal/warehouse"
)

// Config holds the full application configuration.
type Config struct {
	Acreage   AcreageConfig   `yaml:"acreage" mapstructure:"acreage"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Workbook  WorkbookConfig  `yaml:"workbook" mapstructure:"workbook"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AcreageConfig configures the discovery-and-download pipeline.
type AcreageConfig struct {
	IndexURL  string `yaml:"index_url" mapstructure:"index_url"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	FirstYear int    `yaml:"first_year" mapstructure:"first_year"`
}

// HTTPConfig configures the resilient transport.
type HTTPConfig struct {
	UserAgent           string  `yaml:"user_agent" mapstructure:"user_agent"`
	DialTimeoutSecs     int     `yaml:"dial_timeout_secs" mapstructure:"dial_timeout_secs"`
	GetTimeoutSecs      int     `yaml:"get_timeout_secs" mapstructure:"get_timeout_secs"`
	HeadTimeoutSecs     int     `yaml:"head_timeout_secs" mapstructure:"head_timeout_secs"`
	DownloadTimeoutSecs int     `yaml:"download_timeout_secs" mapstructure:"download_timeout_secs"`
	MaxAttempts         int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs    int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs        int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BackoffMultiplier   float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
}

// WorkbookConfig configures the extracted-workbook inventory step.
type WorkbookConfig struct {
	Sheet          string   `yaml:"sheet" mapstructure:"sheet"`
	HeaderKeywords []string `yaml:"header_keywords" mapstructure:"header_keywords"`
}

// WarehouseConfig configures the optional PostgreSQL warehouse. An empty DSN
// disables uploads entirely.
type WarehouseConfig struct {
	DSN         string               `yaml:"dsn" mapstructure:"dsn"`
	Destination string               `yaml:"destination" mapstructure:"destination"`
	Pool        warehouse.PoolConfig `yaml:"pool" mapstructure:"pool"`

	// ConflictKeys make repeated loads idempotent: appended workbooks are
	// merged on these columns instead of duplicated. Empty disables merging.
	ConflictKeys []string `yaml:"conflict_keys" mapstructure:"conflict_keys"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACREAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("acreage.index_url", acreage.IndexURL)
	v.SetDefault("acreage.output_dir", "county_fsa_downloads")
	v.SetDefault("acreage.first_year", 2007)
	v.SetDefault("http.dial_timeout_secs", 20)
	v.SetDefault("http.get_timeout_secs", 180)
	v.SetDefault("http.head_timeout_secs", 40)
	v.SetDefault("http.download_timeout_secs", 300)
	v.SetDefault("http.max_attempts", 8)
	v.SetDefault("http.initial_backoff_ms", 1500)
	v.SetDefault("http.max_backoff_ms", 30000)
	v.SetDefault("http.backoff_multiplier", 2.0)
	v.SetDefault("warehouse.destination", "fsa.crop_acreage")
	v.SetDefault("warehouse.conflict_keys", []string{"State Code", "County Code", "Crop", "crop_year"})
	v.SetDefault("workbook.sheet", "county_data")
	v.SetDefault("workbook.header_keywords", []string{"State Code", "County Code"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
