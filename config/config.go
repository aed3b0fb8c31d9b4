/*
config.go - Environment-based configuration

PURPOSE:
  Loads service configuration from the environment, with an optional
  .env file for local development. All keys are prefixed BOOKSTOCK_.

KEYS:
  BOOKSTOCK_PORT               HTTP port                (default 8080)
  BOOKSTOCK_DB                 SQLite path or :memory:  (default bookstock.db)
  BOOKSTOCK_POOL_MIN           Resident parse workers   (default 2)
  BOOKSTOCK_POOL_MAX           Worker ceiling           (default 4)
  BOOKSTOCK_POOL_IDLE          Idle reclamation window  (default 30s)
  BOOKSTOCK_MAX_UPLOAD_BYTES   Import size cap          (default 10485760)
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/bookstock/ingest"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port           int
	DBPath         string
	PoolMin        int
	PoolMax        int
	PoolIdle       time.Duration
	MaxUploadBytes int64
}

// Load reads the optional .env file, then the environment. A missing
// .env is not an error; a malformed value is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           8080,
		DBPath:         "bookstock.db",
		PoolMin:        ingest.DefaultMinWorkers,
		PoolMax:        ingest.DefaultMaxWorkers,
		PoolIdle:       ingest.DefaultIdleTimeout,
		MaxUploadBytes: 10 << 20,
	}

	var err error
	if cfg.Port, err = intVar("BOOKSTOCK_PORT", cfg.Port); err != nil {
		return nil, err
	}
	if v := os.Getenv("BOOKSTOCK_DB"); v != "" {
		cfg.DBPath = v
	}
	if cfg.PoolMin, err = intVar("BOOKSTOCK_POOL_MIN", cfg.PoolMin); err != nil {
		return nil, err
	}
	if cfg.PoolMax, err = intVar("BOOKSTOCK_POOL_MAX", cfg.PoolMax); err != nil {
		return nil, err
	}
	if cfg.PoolIdle, err = durationVar("BOOKSTOCK_POOL_IDLE", cfg.PoolIdle); err != nil {
		return nil, err
	}
	maxUpload, err := intVar("BOOKSTOCK_MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes))
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("BOOKSTOCK_PORT out of range: %d", c.Port)
	}
	if c.PoolMin < 1 {
		return fmt.Errorf("BOOKSTOCK_POOL_MIN must be at least 1, got %d", c.PoolMin)
	}
	if c.PoolMax < c.PoolMin {
		return fmt.Errorf("BOOKSTOCK_POOL_MAX (%d) below BOOKSTOCK_POOL_MIN (%d)", c.PoolMax, c.PoolMin)
	}
	if c.PoolIdle <= 0 {
		return fmt.Errorf("BOOKSTOCK_POOL_IDLE must be positive, got %s", c.PoolIdle)
	}
	if c.MaxUploadBytes < 1 {
		return fmt.Errorf("BOOKSTOCK_MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func intVar(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationVar(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
