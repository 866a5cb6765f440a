// Package config loads server settings from an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"

	"github.com/soaringjerry/VisitPulse/internal/db"
	"github.com/soaringjerry/VisitPulse/internal/utils"
)

type Config struct {
	Addr          string
	DBDriver      string
	DBPath        string // empty selects the in-memory store
	MigrationsDir string
	StaticDir     string
	DevFrontend   string // proxied when StaticDir is empty
	CatalogPath   string

	AdminCode string
	JWTSecret string
	TokenTTL  time.Duration

	SessionTTL     time.Duration
	ResultsTimeout time.Duration
	SweepInterval  time.Duration

	LogMode       string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogHashSalt   string

	Commit    string
	BuildTime string
}

// Load reads envFiles, then the environment. Without envFiles it reads
// ".env" when present; named files must exist. Variables already set in the
// environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	err := godotenv.Load(envFiles...)
	if err != nil && (len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist)) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:          utils.SafeEnv("VISITPULSE_ADDR", ":8080"),
		DBDriver:      utils.SafeEnv("VISITPULSE_DB_DRIVER", db.DriverCGO),
		DBPath:        utils.SafeEnv("VISITPULSE_DB_PATH", ""),
		MigrationsDir: utils.SafeEnv("VISITPULSE_MIGRATIONS_DIR", ""),
		StaticDir:     utils.SafeEnv("VISITPULSE_STATIC_DIR", ""),
		DevFrontend:   utils.SafeEnv("VISITPULSE_DEV_FRONTEND_URL", ""),
		CatalogPath:   utils.SafeEnv("VISITPULSE_CATALOG_PATH", ""),
		AdminCode:     utils.SafeEnv("VISITPULSE_ADMIN_CODE", ""),
		JWTSecret:     utils.SafeEnv("VISITPULSE_JWT_SECRET", ""),
		LogMode:       utils.SafeEnv("VISITPULSE_LOG_MODE", "dev"),
		LogFile:       utils.SafeEnv("VISITPULSE_LOG_FILE", ""),
		LogHashSalt:   utils.SafeEnv("VISITPULSE_LOG_HASH_SALT", ""),
		Commit:        utils.SafeEnv("VISITPULSE_COMMIT", ""),
		BuildTime:     utils.SafeEnv("VISITPULSE_BUILD_TIME", ""),
	}
	if cfg.DBDriver != db.DriverCGO && cfg.DBDriver != db.DriverPure {
		return nil, fmt.Errorf("VISITPULSE_DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"VISITPULSE_TOKEN_TTL", &cfg.TokenTTL, 12 * time.Hour},
		{"VISITPULSE_SESSION_TTL", &cfg.SessionTTL, 30 * time.Minute},
		{"VISITPULSE_RESULTS_TIMEOUT", &cfg.ResultsTimeout, 30 * time.Second},
		{"VISITPULSE_SWEEP_INTERVAL", &cfg.SweepInterval, 10 * time.Second},
	}
	for _, d := range durations {
		if *d.dst, err = utils.EnvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}
	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"VISITPULSE_LOG_MAX_SIZE_MB", &cfg.LogMaxSizeMB, 50},
		{"VISITPULSE_LOG_MAX_BACKUPS", &cfg.LogMaxBackups, 5},
		{"VISITPULSE_LOG_MAX_AGE_DAYS", &cfg.LogMaxAgeDays, 30},
	}
	for _, n := range ints {
		if *n.dst, err = utils.EnvInt(n.key, n.def); err != nil {
			return nil, err
		}
	}
	if cfg.SweepInterval == 0 {
		return nil, errors.New("VISITPULSE_SWEEP_INTERVAL must be positive")
	}
	return cfg, nil
}
