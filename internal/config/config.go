package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	GenerationURL string
	AnalysisURL   string

	LogLevel  string
	LogFormat string

	IngestInterval    time.Duration
	AnalyzeInterval   time.Duration
	BroadcastInterval time.Duration
	HealthInterval    time.Duration

	GenerationTimeout time.Duration
	AnalysisTimeout   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		GenerationURL: getEnv("MODEL1_API_URL", ""),
		AnalysisURL:   getEnv("MODEL2_API_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.IngestInterval, err = getDuration("INGEST_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.AnalyzeInterval, err = getDuration("ANALYZE_INTERVAL", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BroadcastInterval, err = getDuration("BROADCAST_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.HealthInterval, err = getDuration("HEALTH_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.GenerationTimeout, err = getDuration("GENERATION_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalysisTimeout, err = getDuration("ANALYSIS_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.GenerationURL == "" {
		return nil, fmt.Errorf("MODEL1_API_URL is required")
	}
	if cfg.AnalysisURL == "" {
		return nil, fmt.Errorf("MODEL2_API_URL is required")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("PORT must be numeric: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 2m: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
