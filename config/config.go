// Package config loads worker configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config is the full worker configuration.
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	RPG           RPGConfig
	Scheduler     SchedulerConfig
	Features      *FeatureFlags
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Environment Environment
	Debug       bool
	Version     string

	// Timezone drives cron schedules; campus wall clock by default.
	Timezone string
	Location *time.Location

	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL settings. Pool sizing goes in the URL
// query string (pool_max_conns etc., per pgxpool).
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis settings. The cache layer is optional: with
// Redis disabled every read computes live.
type RedisConfig struct {
	URL      string
	Disabled bool
}

// RPGConfig holds scoring engine settings.
type RPGConfig struct {
	// CertificateKey signs level certificate checksums.
	CertificateKey string

	// LeaderboardCacheTTL bounds staleness of cached leaderboard rows.
	LeaderboardCacheTTL time.Duration
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	Enabled bool

	RebuildLeaderboardInterval time.Duration
	LevelUpSweepInterval       time.Duration

	// SnapshotRetention is how long old leaderboard snapshots are kept
	// before the daily cleanup deletes them.
	SnapshotRetention time.Duration

	// MaxConcurrentJobs bounds fan-out inside jobs (students checked in
	// parallel by the level-up sweep).
	MaxConcurrentJobs int
	JobTimeout        time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load reads every section from the environment and validates the
// result.
func Load() (*Config, error) {
	env := Environment(envString("APP_ENV", "development"))

	timezone := envString("APP_TIMEZONE", "America/New_York")
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	cfg := &Config{
		App: AppConfig{
			Environment:     env,
			Debug:           env == EnvDevelopment || envBool("APP_DEBUG", false),
			Version:         envString("APP_VERSION", "0.1.0"),
			Timezone:        timezone,
			Location:        loc,
			ShutdownTimeout: envDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL: envString("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:      envString("REDIS_URL", ""),
			Disabled: envBool("REDIS_DISABLED", false),
		},
		RPG: RPGConfig{
			CertificateKey:      envString("RPG_CERTIFICATE_KEY", ""),
			LeaderboardCacheTTL: envDuration("RPG_LEADERBOARD_CACHE_TTL", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:                    envBool("SCHEDULER_ENABLED", true),
			RebuildLeaderboardInterval: envDuration("SCHEDULER_LEADERBOARD_INTERVAL", 10*time.Minute),
			LevelUpSweepInterval:       envDuration("SCHEDULER_LEVEL_SWEEP_INTERVAL", 30*time.Minute),
			SnapshotRetention:          envDuration("SCHEDULER_SNAPSHOT_RETENTION", 7*24*time.Hour),
			MaxConcurrentJobs:          envInt("SCHEDULER_MAX_CONCURRENT", 5),
			JobTimeout:                 envDuration("SCHEDULER_JOB_TIMEOUT", 5*time.Minute),
		},
		Features: LoadFeatureFlags(),
		Observability: ObservabilityConfig{
			LogLevel:  envString("LOG_LEVEL", "info"),
			LogFormat: envString("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var problems []string

	if c.App.Environment == EnvProduction {
		if c.Database.URL == "" {
			problems = append(problems, "DATABASE_URL is required in production")
		}
		if c.RPG.CertificateKey == "" {
			problems = append(problems, "RPG_CERTIFICATE_KEY is required in production")
		}
	}
	if c.Scheduler.MaxConcurrentJobs < 1 {
		problems = append(problems, "SCHEDULER_MAX_CONCURRENT must be at least 1")
	}
	if c.Scheduler.SnapshotRetention < time.Hour {
		problems = append(problems, "SCHEDULER_SNAPSHOT_RETENTION must be at least 1h")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// IsDevelopment reports whether this is a development build.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction reports whether this is a production build.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

func envString(key, fallback string) string {
	if raw, ok := os.LookupEnv(key); ok && raw != "" {
		return raw
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if raw, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}
