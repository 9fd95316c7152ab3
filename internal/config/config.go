// Package config loads server configuration from YAML and environment variables.
//
// LOAD PRIORITY:
//  1. an explicit path passed to Load/MustLoad
//  2. the CONFIG_PATH environment variable
//  3. ./local.yaml in the working directory
//  4. environment variables only
//
// When a file is read, environment variables are overlaid on top of it, so a
// deployment can ship one YAML file and override single values per instance.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

// Relay drivers. A relay fans broadcast events out across server instances.
const (
	RelayNone  = "none"
	RelayNATS  = "nats"
	RelayRedis = "redis"
)

// Config is the root configuration.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Relay    RelayConfig    `yaml:"relay"`
	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"PORT" env-default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"30s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// StorageConfig picks the entity store.
type StorageConfig struct {
	Driver     string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite_path" env:"DB_PATH" env-default:"data/heapoverflow.db"`
	MongoURL   string `yaml:"mongo_url" env:"MONGO_URL" env-default:"mongodb://127.0.0.1:27017/heapoverflow"`
}

// RelayConfig picks the cross-instance broadcast relay.
type RelayConfig struct {
	Driver        string        `yaml:"driver" env:"RELAY_DRIVER" env-default:"none"`
	NATSURL       string        `yaml:"nats_url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB" env-default:"0"`
	Topic         string        `yaml:"topic" env:"RELAY_TOPIC" env-default:"heapoverflow.events"`
	MaxReconnects int           `yaml:"max_reconnects" env:"RELAY_MAX_RECONNECTS" env-default:"60"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"RELAY_RECONNECT_WAIT" env-default:"2s"`
}

// AuthConfig configures sessions and the GitHub login.
// An empty JWTSecret disables the /auth routes.
type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL           time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	GitHubClientID     string        `yaml:"github_client_id" env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string        `yaml:"github_client_secret" env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string        `yaml:"github_callback_url" env:"GITHUB_CALLBACK_URL"`
	ClientURL          string        `yaml:"client_url" env:"CLIENT_URL" env-default:"http://localhost:3000"`
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	SendBuffer   int           `yaml:"send_buffer" env:"WS_SEND_BUFFER" env-default:"256"`
	PingInterval time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL" env-default:"54s"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration following the priority in the package doc.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config: file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("config: reading %q: %w", p, err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := readFile("local.yaml"); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: reading env: %w", err)
		}
	}

	// ReadConfig already overlays env, but a second pass keeps the
	// env-only branch and the file branches symmetric.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: overlaying env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("config: storage.sqlite_path is required for the sqlite driver")
		}
	case StorageMongo:
		if c.Storage.MongoURL == "" {
			return fmt.Errorf("config: storage.mongo_url is required for the mongo driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.Relay.Driver {
	case RelayNone, RelayNATS, RelayRedis:
	default:
		return fmt.Errorf("config: unknown relay.driver %q", c.Relay.Driver)
	}
	if c.Relay.Driver != RelayNone && c.Relay.Topic == "" {
		return fmt.Errorf("config: relay.topic is required when a relay is enabled")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("config: realtime.send_buffer must be > 0")
	}
	return nil
}
