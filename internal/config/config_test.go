package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/civicpulse")
	t.Setenv("MODEL1_API_URL", "http://localhost:9001")
	t.Setenv("MODEL2_API_URL", "http://localhost:9002")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Minute, cfg.IngestInterval)
	assert.Equal(t, 2*time.Minute, cfg.AnalyzeInterval)
	assert.Equal(t, 15*time.Second, cfg.BroadcastInterval)
	assert.Equal(t, 5*time.Minute, cfg.HealthInterval)
	assert.Equal(t, 15*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 20*time.Second, cfg.AnalysisTimeout)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoadRequiresUpstreamURLs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MODEL2_API_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MODEL2_API_URL")
}

func TestLoadParsesIntervalOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ANALYZE_INTERVAL", "30s")
	t.Setenv("BROADCAST_INTERVAL", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.AnalyzeInterval)
	assert.Equal(t, 5*time.Second, cfg.BroadcastInterval)
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INGEST_INTERVAL", "often")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INGEST_INTERVAL")
}

func TestLoadRejectsNegativeDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HEALTH_INTERVAL", "-5m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HEALTH_INTERVAL")
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "eighty-eighty")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}
