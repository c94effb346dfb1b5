package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	analytics "github.com/chemlink/analytics-api/lib"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the location of the optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultConfigPath = "config.yaml"

// Config is built once at startup and never modified afterwards.
type Config struct {
	Server   ServerConfig             `koanf:"server"`
	Database analytics.DatabaseConfig `koanf:"database"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	CORSOrigins     []string      `koanf:"cors_origins" validate:"min=1"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// envKeys maps the supported environment variables to config paths.
var envKeys = map[string]string{
	"PORT":                            "server.port",
	"CORS_ORIGINS":                    "server.cors_origins",
	"SHUTDOWN_TIMEOUT":                "server.shutdown_timeout",
	"ANALYTICS_DB_HOST":               "database.host",
	"ANALYTICS_DB_PORT":               "database.port",
	"ANALYTICS_DB_NAME":               "database.name",
	"ANALYTICS_DB_USER":               "database.user",
	"ANALYTICS_DB_PASSWORD":           "database.password",
	"ANALYTICS_DB_SSLMODE":            "database.sslmode",
	"ANALYTICS_DB_MAX_OPEN_CONNS":     "database.max_open_conns",
	"ANALYTICS_DB_MAX_IDLE_CONNS":     "database.max_idle_conns",
	"ANALYTICS_DB_CONN_MAX_IDLE_TIME": "database.conn_max_idle_time",
	"ANALYTICS_DB_QUERY_TIMEOUT":      "database.query_timeout",
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            5001,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Database: analytics.DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "chemlink_analytics",
			User:            "postgres",
			Password:        "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
		},
	}
}

// LoadConfig layers defaults, the optional YAML file and the environment,
// in that order of increasing priority.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, err := configPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// configPath returns the YAML file to load, or "" when there is none.
// An explicit CONFIG_PATH must exist.
func configPath() (string, error) {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}

	if _, err := os.Stat(defaultConfigPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config file: %w", err)
	}

	return defaultConfigPath, nil
}

func envTransform(key, value string) (string, any) {
	path, ok := envKeys[key]
	if !ok || value == "" {
		return "", nil
	}

	if path == "server.cors_origins" {
		origins := strings.Split(value, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return path, origins
	}

	return path, value
}
