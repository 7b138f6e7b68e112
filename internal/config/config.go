package config

import (
	"ctchen222/Chess-Room/internal/validator"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultJWTSecret = "dev-secret-change-me"

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	RedisAddr      string `yaml:"redis_connstring"`
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	JWTSecret string `yaml:"jwt_secret"`

	OTLPEndpoint string `yaml:"otel_exporter_otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	LogLevel     string `yaml:"log_level"`

	DefaultRoom  string        `yaml:"default_room"`
	MaxRooms     int           `yaml:"max_rooms"`
	PingInterval time.Duration `yaml:"ping_interval"`

	StaticDir   string `yaml:"static_dir"`
	MessagesDir string `yaml:"messages_dir"`
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE and the environment, in that order of precedence.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":8080",
		DatabaseDriver: "sqlite",
		DatabaseURL:    "chess.db",
		JWTSecret:      DefaultJWTSecret,
		ServiceName:    "chess-room",
		LogLevel:       "info",
		DefaultRoom:    "lobby",
		MaxRooms:       100,
		PingInterval:   30 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.RedisAddr, "REDIS_CONNSTRING")
	setString(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.ServiceName, "SERVICE_NAME")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DefaultRoom, "DEFAULT_ROOM")
	setString(&cfg.StaticDir, "STATIC_DIR")
	setString(&cfg.MessagesDir, "MESSAGES_DIR")

	if v := strings.TrimSpace(os.Getenv("MAX_ROOMS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_ROOMS: %w", err)
		}
		cfg.MaxRooms = n
	}
	if v := strings.TrimSpace(os.Getenv("PING_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PING_INTERVAL: %w", err)
		}
		cfg.PingInterval = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if err := validator.GetValidator().Var(c.DefaultRoom, "required,room"); err != nil {
		return fmt.Errorf("DEFAULT_ROOM %q is not a valid room id: %w", c.DefaultRoom, err)
	}
	if c.MaxRooms <= 0 {
		return errors.New("MAX_ROOMS must be positive")
	}
	if c.PingInterval <= 0 {
		return errors.New("PING_INTERVAL must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *AppConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
