package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	RawDir       string
	ConvertedDir string
	CorrectedDir string
	BinnedDir    string

	LocationsFile string

	DatabaseURL string
	NATSURL     string
	RedisAddr   string

	BinSize int
	Workers int
}

// Load loads the configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	rawDir := os.Getenv("RAW_DIR")
	if rawDir == "" {
		return nil, fmt.Errorf("RAW_DIR environment variable is required")
	}

	cfg := &Config{
		RawDir:        rawDir,
		ConvertedDir:  envOr("CONVERTED_DIR", "./converted"),
		CorrectedDir:  envOr("CORRECTED_DIR", "./corrected"),
		BinnedDir:     envOr("BINNED_DIR", "./binned"),
		LocationsFile: os.Getenv("LOCATIONS_FILE"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		NATSURL:       envOr("NATS_URL", "nats://localhost:4222"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		BinSize:       1,
		Workers:       4,
	}

	if v := os.Getenv("BIN_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("BIN_SIZE must be a positive integer, got %q", v)
		}
		cfg.BinSize = n
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
