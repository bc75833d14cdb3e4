package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_BACKLOG_SIZE", "")
	t.Setenv("CHAT_STRICT_SEND", "")
	t.Setenv("CHAT_ROOM_IDLE_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, 50, cfg.Chat.BacklogSize)
	assert.Equal(t, "chat", cfg.Chat.DefaultFolder)
	assert.False(t, cfg.Chat.StrictSend)
	assert.Equal(t, time.Minute, cfg.Chat.SendRateWindow)
	assert.Equal(t, 5*time.Minute, cfg.Chat.RoomIdleTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_BACKLOG_SIZE", "20")
	t.Setenv("CHAT_STRICT_SEND", "true")
	t.Setenv("CHAT_SEND_RATE_WINDOW", "30s")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg := Load()

	assert.Equal(t, 20, cfg.Chat.BacklogSize)
	assert.True(t, cfg.Chat.StrictSend)
	assert.Equal(t, 30*time.Second, cfg.Chat.SendRateWindow)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	assert.Equal(t, 587, getEnvAsInt("SMTP_PORT", 587))
}
