package config_test

import (
	"testing"

	"github.com/decden/hotelsync/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithoutEnvFile(t *testing.T) {
	t.Setenv("HOTELSYNC_DB_PATH", "")
	t.Setenv("HOTELSYNC_LISTEN_ADDR", "")
	t.Setenv("HOTELSYNC_SERVER_ADDR", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("HOTELSYNC_LOG_LEVEL", "")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "hotelsync.db", cfg.SQLitePath)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("HOTELSYNC_LOG_LEVEL", "verbose")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	_, err := config.Load("")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	_, err := config.ParseLogLevel("debug")
	require.NoError(t, err)
	_, err = config.ParseLogLevel("nonsense")
	assert.Error(t, err)
}
