package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string `env:"PORT" env-default:"8080"`
	SecretKey         string `env:"SECRET_KEY"`
	DBURL             string `env:"DB_URL"`
	LogLevel          string `env:"LOG_LEVEL" env-default:"info"`
	ReadTimeoutSecs   int    `env:"SERVER_READ_TIMEOUT" env-default:"15"`
	WriteTimeoutSecs  int    `env:"SERVER_WRITE_TIMEOUT" env-default:"15"`
	IdleTimeoutSecs   int    `env:"SERVER_IDLE_TIMEOUT" env-default:"60"`
	DBMaxConns        int    `env:"DB_MAX_CONNS" env-default:"20"`
	DBMinConns        int    `env:"DB_MIN_CONNS" env-default:"2"`
	DBMaxIdleSecs     int    `env:"DB_MAX_CONN_IDLE_SECS" env-default:"300"`
	DBMaxLifeSecs     int    `env:"DB_MAX_CONN_LIFETIME_SECS" env-default:"3600"`
	DBConnTimeoutSecs int    `env:"DB_CONN_TIMEOUT_SECS" env-default:"10"`
	DBStatementCache  int    `env:"DB_STATEMENT_CACHE_CAPACITY" env-default:"256"`
	PageSizeDefault   int    `env:"PAGE_SIZE_DEFAULT" env-default:"20"`
	PageSizeMax       int    `env:"PAGE_SIZE_MAX" env-default:"100"`
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that env tags cannot express.
func (cfg Config) Validate() error {
	if cfg.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.PageSizeMax <= 0 {
		return fmt.Errorf("PAGE_SIZE_MAX must be positive")
	}
	if cfg.PageSizeDefault <= 0 || cfg.PageSizeDefault > cfg.PageSizeMax {
		return fmt.Errorf("PAGE_SIZE_DEFAULT must be between 1 and PAGE_SIZE_MAX")
	}
	return nil
}

// ParseLogLevel maps LOG_LEVEL onto slog levels.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", level)
	}
}
