package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DISCORD_REQUEST_TIMEOUT_MS", "")
	t.Setenv("TICKET_CLOSE_COOLDOWN_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverRedis, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Discord.RequestTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.Discord.GuildListTimeout())
	assert.Equal(t, 30*time.Minute, cfg.Ticket.CloseCooldown())
	assert.Equal(t, "TicketSystem", cfg.Ticket.WebhookName)
	assert.Equal(t, 10080, cfg.Ticket.AutoArchiveMinutes)
	assert.Equal(t, "ThreadMail", cfg.Discord.LinkedRolePlatform)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("DISCORD_GUILD_LIST_TIMEOUT_MS", "900")
	t.Setenv("TICKET_CLOSE_COOLDOWN_MINUTES", "5")
	t.Setenv("APP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, 900*time.Millisecond, cfg.Discord.GuildListTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Ticket.CloseCooldown())
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "etcd")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	t.Setenv("SOME_BOOL", "maybe")
	assert.True(t, getEnvAsBool("SOME_BOOL", true))
}
