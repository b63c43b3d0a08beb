package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Detector DetectorConfig `mapstructure:"detector"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	// Enforce makes the threat middleware reject requests; otherwise it only
	// annotates them.
	Enforce bool `mapstructure:"enforce"`
	// ProxyHeader is only honoured for peers listed in TrustedProxies
	// (addresses or CIDR ranges).
	ProxyHeader    string   `mapstructure:"proxy_header"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	TLS       bool   `mapstructure:"tls"`
	Stream    string `mapstructure:"stream"`
	StreamMax int64  `mapstructure:"stream_max"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuditConfig struct {
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	BreakerMaxFail uint32        `mapstructure:"breaker_max_failures"`
	RedactHeaders  []string      `mapstructure:"redact_headers"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// DetectorConfig holds the tunable thresholds of the detection engine.
type DetectorConfig struct {
	MaxFailedLogins          int           `mapstructure:"max_failed_logins"`
	FailedLoginWindow        time.Duration `mapstructure:"failed_login_window"`
	MaxRequestsPerMinute     int           `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerHour       int           `mapstructure:"max_requests_per_hour"`
	SuspiciousScoreThreshold int           `mapstructure:"suspicious_score_threshold"`
	CriticalScoreThreshold   int           `mapstructure:"critical_score_threshold"`
	TempBlockDuration        time.Duration `mapstructure:"temp_block_duration"`
	RateViolationLimit       int           `mapstructure:"rate_violation_limit"`
	ShardCount               int           `mapstructure:"shard_count"`
	IdleRetention            time.Duration `mapstructure:"idle_retention"`
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MaxFailedLogins:          5,
		FailedLoginWindow:        5 * time.Minute,
		MaxRequestsPerMinute:     100,
		MaxRequestsPerHour:       1000,
		SuspiciousScoreThreshold: 10,
		CriticalScoreThreshold:   20,
		TempBlockDuration:        time.Hour,
		RateViolationLimit:       3,
		ShardCount:               64,
		IdleRetention:            time.Hour,
	}
}

func (c DetectorConfig) Validate() error {
	switch {
	case c.MaxFailedLogins <= 0:
		return fmt.Errorf("%w: max_failed_logins must be positive, got %d", ErrInvalidConfig, c.MaxFailedLogins)
	case c.FailedLoginWindow <= 0:
		return fmt.Errorf("%w: failed_login_window must be positive, got %s", ErrInvalidConfig, c.FailedLoginWindow)
	case c.MaxRequestsPerMinute <= 0:
		return fmt.Errorf("%w: max_requests_per_minute must be positive, got %d", ErrInvalidConfig, c.MaxRequestsPerMinute)
	case c.MaxRequestsPerHour < c.MaxRequestsPerMinute:
		return fmt.Errorf("%w: max_requests_per_hour (%d) must be >= max_requests_per_minute (%d)",
			ErrInvalidConfig, c.MaxRequestsPerHour, c.MaxRequestsPerMinute)
	case c.SuspiciousScoreThreshold <= 0:
		return fmt.Errorf("%w: suspicious_score_threshold must be positive, got %d", ErrInvalidConfig, c.SuspiciousScoreThreshold)
	case c.CriticalScoreThreshold <= c.SuspiciousScoreThreshold:
		return fmt.Errorf("%w: critical_score_threshold (%d) must be greater than suspicious_score_threshold (%d)",
			ErrInvalidConfig, c.CriticalScoreThreshold, c.SuspiciousScoreThreshold)
	case c.TempBlockDuration <= 0:
		return fmt.Errorf("%w: temp_block_duration must be positive, got %s", ErrInvalidConfig, c.TempBlockDuration)
	case c.RateViolationLimit < 0:
		return fmt.Errorf("%w: rate_violation_limit must not be negative, got %d", ErrInvalidConfig, c.RateViolationLimit)
	case c.ShardCount <= 0:
		return fmt.Errorf("%w: shard_count must be positive, got %d", ErrInvalidConfig, c.ShardCount)
	case c.IdleRetention < time.Hour:
		return fmt.Errorf("%w: idle_retention must cover the one hour rate window, got %s", ErrInvalidConfig, c.IdleRetention)
	}
	return nil
}

func setDefaultValues(v *viper.Viper) {
	d := DefaultDetectorConfig()
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.enforce", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/threatguard.log")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.stream", "threatguard:violations")
	v.SetDefault("redis.stream_max", 100000)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("audit.workers", 4)
	v.SetDefault("audit.queue_size", 1000)
	v.SetDefault("audit.webhook_timeout", 5*time.Second)
	v.SetDefault("audit.breaker_timeout", 30*time.Second)
	v.SetDefault("audit.breaker_max_failures", 5)
	v.SetDefault("detector.max_failed_logins", d.MaxFailedLogins)
	v.SetDefault("detector.failed_login_window", d.FailedLoginWindow)
	v.SetDefault("detector.max_requests_per_minute", d.MaxRequestsPerMinute)
	v.SetDefault("detector.max_requests_per_hour", d.MaxRequestsPerHour)
	v.SetDefault("detector.suspicious_score_threshold", d.SuspiciousScoreThreshold)
	v.SetDefault("detector.critical_score_threshold", d.CriticalScoreThreshold)
	v.SetDefault("detector.temp_block_duration", d.TempBlockDuration)
	v.SetDefault("detector.rate_violation_limit", d.RateViolationLimit)
	v.SetDefault("detector.shard_count", d.ShardCount)
	v.SetDefault("detector.idle_retention", d.IdleRetention)
}

// Load reads config.yaml from configPath (then ./config and .), applies
// environment overrides and validates the detector thresholds. A missing
// file is not an error: defaults and environment variables are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaultValues(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Detector.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
