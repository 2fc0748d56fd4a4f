// Package config provides configuration management for the keiba predictor.
package config

import (
	"fmt"
	"time"
)

// DateLayout is the YYYYMMDD layout used by the feed and the CLI.
const DateLayout = "20060102"

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Model      ModelConfig      `mapstructure:"model" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataSourceConfig represents where race data comes from. The feed is used
// when FeedURL and SoftwareID are set, then DataFile, then the synthetic generator.
type DataSourceConfig struct {
	FeedURL         string  `mapstructure:"feed_url" validate:"omitempty,url"`
	SoftwareID      string  `mapstructure:"software_id"`
	UserID          string  `mapstructure:"user_id"`
	APIKey          string  `mapstructure:"api_key"`
	DataFile        string  `mapstructure:"data_file"`
	FromDate        string  `mapstructure:"from_date" validate:"required,yyyymmdd"`
	ToDate          string  `mapstructure:"to_date" validate:"required,yyyymmdd"`
	SyntheticRaces  int     `mapstructure:"synthetic_races" validate:"required,gt=0"`
	Seed            int64   `mapstructure:"seed"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
}

// ModelConfig represents predictor hyperparameters and artifact location
type ModelConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	NEstimators int    `mapstructure:"n_estimators" validate:"required,gt=0"`
	MaxDepth    int    `mapstructure:"max_depth" validate:"gte=0"`
	CVFolds     int    `mapstructure:"cv_folds" validate:"required,min=2"`
	Seed        int64  `mapstructure:"seed"`
}

// DatabaseConfig represents the optional model registry database
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// MetricsConfig represents metrics output configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
}

// ScheduleConfig represents periodic retraining
type ScheduleConfig struct {
	RetrainCron  string `mapstructure:"retrain_cron"`
	LookbackDays int    `mapstructure:"lookback_days" validate:"omitempty,gt=0"`
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// FeedAvailable reports whether the remote feed can be used at all.
func (c *DataSourceConfig) FeedAvailable() bool {
	return c.FeedURL != "" && c.SoftwareID != ""
}

// DateRange parses the configured from/to dates.
func (c *DataSourceConfig) DateRange() (time.Time, time.Time, error) {
	from, err := time.Parse(DateLayout, c.FromDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from_date %q: %w", c.FromDate, err)
	}
	to, err := time.Parse(DateLayout, c.ToDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to_date %q: %w", c.ToDate, err)
	}
	return from, to, nil
}

// CacheTTL returns the dataset cache lifetime.
func (c *DataSourceConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the feed request timeout.
func (c *DataSourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
