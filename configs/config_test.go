package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("POST_RETRIES", "")
	t.Setenv("POST_TIMEOUT", "")
	t.Setenv("PORT", "")

	cfg := LoadConfig()
	assert.Equal(t, 1, cfg.Posting.Retries)
	assert.Equal(t, 20*time.Minute, cfg.Posting.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Posting.Grace)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "@every 10m", cfg.LoginRefreshSpec)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("POST_RETRIES", "3")
	t.Setenv("POST_TIMEOUT", "90s")
	t.Setenv("EMPTY_QUEUE_ON_FAILED_POST", "true")
	t.Setenv("ADVERTISE", "false")

	cfg := LoadConfig()
	assert.Equal(t, 3, cfg.Posting.Retries)
	assert.Equal(t, 90*time.Second, cfg.Posting.Timeout)
	assert.True(t, cfg.Posting.EmptyQueueOnFailedPost)
	assert.False(t, cfg.Posting.Advertise)
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("POST_RETRIES", "many")
	t.Setenv("POST_GRACE", "soon")

	cfg := LoadConfig()
	assert.Equal(t, 1, cfg.Posting.Retries)
	assert.Equal(t, 5*time.Second, cfg.Posting.Grace)
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	assert.True(t, cfg.NewLogger().Enabled(context.Background(), slog.LevelDebug))

	cfg = &Config{LogLevel: "nonsense"}
	assert.False(t, cfg.NewLogger().Enabled(context.Background(), slog.LevelDebug))
}
