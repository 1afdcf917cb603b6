package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; absence is not an error because every setting
	// can come from the environment.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables use the COLLECTOR_ prefix with underscores for
	// nesting, e.g. COLLECTOR_DATABASE_URL, COLLECTOR_SERVER_PORT.
	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers the baseline values so a minimal environment
// (database URL only) yields a runnable configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("scheduler.tick_interval", time.Second)
	v.SetDefault("scheduler.report_every", 60)
	v.SetDefault("scheduler.retry_ceiling", 3)
	v.SetDefault("scheduler.failure_warn_threshold", 10)

	v.SetDefault("crawler.default_timeout", 30*time.Second)
	v.SetDefault("crawler.rate_limit_cooldown", 60*time.Second)
	v.SetDefault("crawler.rate_limit_attempts", 3)
	v.SetDefault("crawler.requests_per_second", 1.0)
	v.SetDefault("crawler.user_agent", "collector-api/1.0")
}
