package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the application configuration.
type Config struct {
	AppEnv       string        `env:"APP_ENV" envDefault:"development"`
	ServerPort   int           `env:"PORT" envDefault:"8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"./airmove.db"`
	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	// Comma-separated, e.g. "http://localhost:3001,https://app.example.com"
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3001"`

	MQTT MQTTConfig

	RedisURL       string `env:"REDIS_URL"`
	LoginRateLimit int    `env:"LOGIN_RATE_LIMIT" envDefault:"10"`

	SessionStaleAfter time.Duration `env:"SESSION_STALE_AFTER" envDefault:"2h"`
}

// MQTTConfig holds the broker connection settings for the robot bridge.
type MQTTConfig struct {
	BrokerURL            string        `env:"MQTT_BROKER_URL"`
	Username             string        `env:"MQTT_USERNAME"`
	Password             string        `env:"MQTT_PASSWORD"`
	ClientPrefix         string        `env:"MQTT_CLIENT_PREFIX" envDefault:"airmove"`
	ConnectTimeout       time.Duration `env:"MQTT_CONNECT_TIMEOUT" envDefault:"5s"`
	ReconnectInterval    time.Duration `env:"MQTT_RECONNECT_INTERVAL" envDefault:"3s"`
	MaxReconnectAttempts int           `env:"MQTT_MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	HeartbeatInterval    time.Duration `env:"MQTT_HEARTBEAT_INTERVAL" envDefault:"5s"`
}

// Load loads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LoginRateLimit < 0 {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT must not be negative")
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AllowedOrigins splits CORSAllowedOrigins into a trimmed slice.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.BrokerURL != ""
}

// RedisEnabled reports whether rate limiting has a backing store.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}
