// Package config loads the service configuration from file and
// environment. Environment variables use the WASHPOINT_ prefix with
// dots replaced by underscores, e.g. WASHPOINT_SERVER_LISTEN_ADDRESS.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Payment PaymentConfig `mapstructure:"payment"`
	IoT     IoTConfig     `mapstructure:"iot"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"circuit_breaker"`
	Reaper  ReaperConfig  `mapstructure:"reaper"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines listen addresses.
type ServerConfig struct {
	ListenAddress   string `mapstructure:"listen_address"`
	MetricsAddress  string `mapstructure:"metrics_address"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// RedisConfig defines the session store connection.
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// PaymentConfig defines the payment gateway client.
type PaymentConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

// IoTConfig defines the machine controller bridge client.
type IoTConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Timeout       string `mapstructure:"timeout"`
	AllowDegraded bool   `mapstructure:"allow_degraded"`
}

// RetryConfig tunes one dependency's retry policy.
type RetryConfig struct {
	PaymentMaxAttempts  int    `mapstructure:"payment_max_attempts"`
	PaymentInitialDelay string `mapstructure:"payment_initial_delay"`
	IoTMaxAttempts      int    `mapstructure:"iot_max_attempts"`
	IoTInitialDelay     string `mapstructure:"iot_initial_delay"`
}

// BreakerConfig tunes the per-dependency circuit breakers.
type BreakerConfig struct {
	MaxFailures  int    `mapstructure:"max_failures"`
	CallTimeout  string `mapstructure:"call_timeout"`
	ResetTimeout string `mapstructure:"reset_timeout"`
}

// ReaperConfig tunes the expired-session sweep.
type ReaperConfig struct {
	Interval string `mapstructure:"interval"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file plus the environment.
// A missing file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("WASHPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", ":8080")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Payment gateway defaults
	v.SetDefault("payment.base_url", "http://localhost:9100")
	v.SetDefault("payment.timeout", "10s")

	// Controller bridge defaults
	v.SetDefault("iot.base_url", "http://localhost:9200")
	v.SetDefault("iot.timeout", "10s")
	v.SetDefault("iot.allow_degraded", false)

	// Retry defaults
	v.SetDefault("retry.payment_max_attempts", 3)
	v.SetDefault("retry.payment_initial_delay", "2s")
	v.SetDefault("retry.iot_max_attempts", 5)
	v.SetDefault("retry.iot_initial_delay", "1s")

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.max_failures", 5)
	v.SetDefault("circuit_breaker.call_timeout", "10s")
	v.SetDefault("circuit_breaker.reset_timeout", "30s")

	// Reaper defaults
	v.SetDefault("reaper.interval", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if cfg.Payment.BaseURL == "" {
		return fmt.Errorf("payment.base_url is required")
	}
	if cfg.IoT.BaseURL == "" {
		return fmt.Errorf("iot.base_url is required")
	}

	durations := map[string]string{
		"server.shutdown_timeout":       cfg.Server.ShutdownTimeout,
		"redis.dial_timeout":            cfg.Redis.DialTimeout,
		"redis.read_timeout":            cfg.Redis.ReadTimeout,
		"redis.write_timeout":           cfg.Redis.WriteTimeout,
		"payment.timeout":               cfg.Payment.Timeout,
		"iot.timeout":                   cfg.IoT.Timeout,
		"retry.payment_initial_delay":   cfg.Retry.PaymentInitialDelay,
		"retry.iot_initial_delay":       cfg.Retry.IoTInitialDelay,
		"circuit_breaker.call_timeout":  cfg.Breaker.CallTimeout,
		"circuit_breaker.reset_timeout": cfg.Breaker.ResetTimeout,
		"reaper.interval":               cfg.Reaper.Interval,
	}
	for key, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %q", cfg.Logging.Format)
	}

	return nil
}

// Duration parses a duration string that validate has already vetted.
// An empty string returns the fallback.
func Duration(val string, fallback time.Duration) time.Duration {
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
