package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("BOOKING_TIMEZONE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Booking.Timezone)
	assert.Equal(t, 24*time.Hour, cfg.Booking.SessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.Booking.DraftTTL)
	assert.Equal(t, "5 0 * * *", cfg.Booking.SweepCron)
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("BOOKING_DRAFT_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageRedis, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Booking.SessionTTL)
	assert.Equal(t, 30*time.Minute, cfg.Booking.DraftTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "localhost:6380", cfg.Redis.RedisAddr())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown storage driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "mongo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("BOOKING_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "hb", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=hb sslmode=disable", c.DatabaseDSN())
}
