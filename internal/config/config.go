package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped
// onto config keys: CAFE_DATABASE_HOST -> database.host.
const EnvPrefix = "CAFE_"

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// Config holds all configuration for the back office
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	RabbitMQ  RabbitMQConfig  `koanf:"rabbitmq"`
	Redis     RedisConfig     `koanf:"redis"`
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Auth      AuthConfig      `koanf:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Printer   PrinterConfig   `koanf:"printer"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`
	MaxConns int32  `koanf:"max_conns"`
	MinConns int32  `koanf:"min_conns"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
}

// RedisConfig is used by the printer worker to drop duplicate deliveries.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	DedupTTL time.Duration `koanf:"dedup_ttl"`
}

// ServerConfig configures the HTTP listener. An empty CORSOrigins turns
// CORS handling off; CAFE_SERVER_CORS_ORIGINS takes a comma-separated list.
type ServerConfig struct {
	Port          int           `koanf:"port"`
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	MaxConcurrent int           `koanf:"max_concurrent"`
	CORSOrigins   []string      `koanf:"cors_origins"`
}

// StorageConfig selects the repository backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `koanf:"driver"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Disabled bool          `koanf:"disabled"`
}

// PrinterConfig drives the KOT dispatch sweeper and the printer worker.
type PrinterConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
	SweepAfter    time.Duration `koanf:"sweep_after"`
	SweepBatch    int           `koanf:"sweep_batch"`
	Prefetch      int           `koanf:"prefetch"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the built-in configuration. File and environment layers
// are applied on top of it.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "cafe",
			Password: "cafe",
			Database: "cafe_backoffice",
			MaxConns: 25,
			MinConns: 5,
		},
		RabbitMQ: RabbitMQConfig{
			Host:           "localhost",
			Port:           5672,
			User:           "guest",
			Password:       "guest",
			PublishTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DedupTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:          3000,
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  30 * time.Second,
			MaxConcurrent: 50,
		},
		Storage: StorageConfig{
			Driver: "postgres",
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
		},
		Printer: PrinterConfig{
			SweepInterval: 30 * time.Second,
			SweepAfter:    time.Minute,
			SweepBatch:    50,
			Prefetch:      1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration in three layers: defaults, the YAML file at
// filename (skipped when it does not exist), then CAFE_* environment
// variables. CONFIG_PATH, when set, replaces filename.
func Load(filename string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if p := os.Getenv(PathEnvVar); p != "" {
		filename = p
	}
	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := k.Load(file.Provider(filename), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", filename, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps CAFE_SECTION_SOME_KEY to section.some_key. Variables without
// a section part are ignored.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port <= 0 {
			return fmt.Errorf("database.port must be positive")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be postgres or memory, got %q", c.Storage.Driver)
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Printer.SweepBatch <= 0 {
		return fmt.Errorf("printer.sweep_batch must be positive")
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
