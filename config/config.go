package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	InputQueueURL string
	RedisHost     string
	RedisPort     string

	// AsyncScraping toggles dispatching scrape jobs through the task queue.
	// When false every dispatch runs synchronously in-process.
	AsyncScraping bool

	FetchTimeout time.Duration
	NumWorkers   int

	// GroupTTL bounds how long task group state lives in Redis. Abandoned
	// groups expire instead of accumulating.
	GroupTTL time.Duration

	// PostgresDSN is optional; empty disables result archival.
	PostgresDSN string
}

func Load() (*Config, error) {
	cfg := &Config{
		InputQueueURL: os.Getenv("INPUT_QUEUE_URL"),
		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     os.Getenv("REDIS_PORT"),
		AsyncScraping: true,
		FetchTimeout:  10 * time.Second,
		NumWorkers:    20,
		GroupTTL:      1 * time.Hour,
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
	}

	if cfg.InputQueueURL == "" {
		return nil, fmt.Errorf("INPUT_QUEUE_URL is required")
	}

	if cfg.RedisHost == "" {
		cfg.RedisHost = "localhost"
	}
	if cfg.RedisPort == "" {
		cfg.RedisPort = "6379"
	}

	if v := os.Getenv("ASYNC_SCRAPING"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ASYNC_SCRAPING must be a boolean, got %q", v)
		}
		cfg.AsyncScraping = enabled
	}

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.FetchTimeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("NUM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("NUM_WORKERS must be a positive integer, got %q", v)
		}
		cfg.NumWorkers = n
	}

	if v := os.Getenv("GROUP_TTL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("GROUP_TTL_SECONDS must be a positive integer, got %q", v)
		}
		cfg.GroupTTL = time.Duration(secs) * time.Second
	}

	return cfg, nil
}
