package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"   validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// SchedulerConfig controls the tick loop that drives task execution.
type SchedulerConfig struct {
	// TickInterval is the delay between scheduler activations.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"required,gt=0"`

	// ReportEvery is the number of ticks between aggregate summary logs.
	ReportEvery int `mapstructure:"report_every" validate:"required,gt=0"`

	// RetryCeiling is the number of consecutive failures after which a
	// task is marked failed and never scheduled again.
	RetryCeiling int `mapstructure:"retry_ceiling" validate:"required,gt=0"`

	// FailureWarnThreshold is the number of consecutive tick failures
	// after which a warning is emitted.
	FailureWarnThreshold int `mapstructure:"failure_warn_threshold" validate:"required,gt=0"`
}

// CrawlerConfig controls the HTTP fetch behavior of the executor.
type CrawlerConfig struct {
	// DefaultTimeout applies to tasks that do not carry their own timeout.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" validate:"required,gt=0"`

	// RateLimitCooldown is the wait between attempts after an HTTP 429.
	RateLimitCooldown time.Duration `mapstructure:"rate_limit_cooldown" validate:"required,gt=0"`

	// RateLimitAttempts is the number of fetch attempts within one tick
	// before a rate-limited execution is surfaced as a failure.
	RateLimitAttempts int `mapstructure:"rate_limit_attempts" validate:"required,gt=0"`

	// RequestsPerSecond caps outbound requests to the data source.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`

	// UserAgent is sent on every outbound request.
	UserAgent string `mapstructure:"user_agent" validate:"required"`
}
