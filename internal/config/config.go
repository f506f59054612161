package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings for the MediFlow API. Values come from
// the environment, with an optional .env file for local development.
type Config struct {
	ListenAddr  string
	PostgresDSN string

	// Comma-separated origin allowlist. Empty means same-origin only.
	AllowedOrigins []string

	// Rate limiting. When RedisAddr is set the fixed-window Redis limiter is
	// used so multiple instances share state; otherwise a per-instance
	// token bucket applies.
	RateBurst     int
	RatePerSec    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:      getenv("MEDIFLOW_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("MEDIFLOW_PG_DSN"),
		RateBurst:       getenvInt("MEDIFLOW_RATE_BURST", 40),
		RatePerSec:      getenvInt("MEDIFLOW_RATE_PER_SEC", 20),
		RedisAddr:       os.Getenv("MEDIFLOW_REDIS_ADDR"),
		RedisPassword:   os.Getenv("MEDIFLOW_REDIS_PASSWORD"),
		RedisDB:         getenvInt("MEDIFLOW_REDIS_DB", 0),
		LogLevel:        getenv("MEDIFLOW_LOG_LEVEL", "info"),
		LogFormat:       getenv("MEDIFLOW_LOG_FORMAT", "json"),
		ShutdownTimeout: 10 * time.Second,
	}

	if raw := os.Getenv("MEDIFLOW_ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	return cfg, nil
}

// Validate reports configuration problems that must stop startup.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return fmt.Errorf("invalid rate limits: burst=%d per_sec=%d", c.RateBurst, c.RatePerSec)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
