package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "./airmove.db", cfg.DatabasePath)
	assert.Equal(t, 720*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.MQTT.ConnectTimeout)
	assert.Equal(t, 3*time.Second, cfg.MQTT.ReconnectInterval)
	assert.Equal(t, 5, cfg.MQTT.MaxReconnectAttempts)
	assert.Equal(t, 2*time.Hour, cfg.SessionStaleAfter)
	assert.False(t, cfg.MQTTEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")
	t.Setenv("MQTT_HEARTBEAT_INTERVAL", "0s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, time.Duration(0), cfg.MQTT.HeartbeatInterval)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_TTL", "forever")

	_, err := Load()
	assert.Error(t, err)
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test , ,https://b.test"}
	assert.Equal(t, []string{"http://a.test", "https://b.test"}, cfg.AllowedOrigins())

	cfg.CORSAllowedOrigins = ""
	assert.Empty(t, cfg.AllowedOrigins())
}
