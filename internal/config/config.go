package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the advisor desk.
type Config struct {
	Port     int    `yaml:"port"`
	Version  string `yaml:"version"`
	LogLevel string `yaml:"log_level"`

	Backend   BackendConfig   `yaml:"backend"`
	Chat      ChatConfig      `yaml:"chat"`
	Profiles  ProfileConfig   `yaml:"profiles"`
	Sessions  SessionConfig   `yaml:"sessions"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
}

type BackendConfig struct {
	URL string `yaml:"url"`
	// Timeout bounds a single backend call. Zero waits indefinitely.
	Timeout time.Duration `yaml:"timeout"`
	// CatalogRefresh is the background agent/team list refresh interval.
	// Zero disables the loop; the catalog is then only loaded on demand.
	CatalogRefresh time.Duration `yaml:"catalog_refresh"`
}

type ChatConfig struct {
	MaxHistory int `yaml:"max_history"`
}

type ProfileConfig struct {
	Backend     string `yaml:"backend"` // "sqlite", "memory" or "postgres"
	DataDir     string `yaml:"data_dir"`
	PostgresURL string `yaml:"postgres_url"`
}

type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type AuthConfig struct {
	// APIKeys gates /api/v1. Empty disables auth.
	APIKeys []string `yaml:"api_keys"`
}

// DefaultBackendURL is where the agent backend listens in a local setup.
const DefaultBackendURL = "http://localhost:5111"

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:     8501,
		Version:  "1.0.0",
		LogLevel: "info",
		Backend: BackendConfig{
			URL:            DefaultBackendURL,
			CatalogRefresh: 5 * time.Minute,
		},
		Chat: ChatConfig{MaxHistory: 5},
		Profiles: ProfileConfig{
			Backend: "sqlite",
			DataDir: defaultDataDir(),
		},
		Sessions: SessionConfig{IdleTTL: 2 * time.Hour},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "advisor-desk",
		},
	}
}

// Load reads configuration from environment variables with sensible defaults.
// If ADVISOR_CONFIG names a YAML file it is applied first; env vars win.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("ADVISOR_CONFIG"))
}

// LoadFile applies the YAML file at path (if non-empty) over the defaults and
// then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the system cannot run with.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend url must not be empty")
	}
	if c.Chat.MaxHistory < 0 {
		return fmt.Errorf("chat.max_history must be >= 0, got %d", c.Chat.MaxHistory)
	}
	switch c.Profiles.Backend {
	case "sqlite", "memory":
	case "postgres":
		if c.Profiles.PostgresURL == "" {
			return fmt.Errorf("profiles.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown profile backend %q", c.Profiles.Backend)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Port = envInt("ADVISOR_PORT", c.Port)
	c.Version = envStr("ADVISOR_VERSION", c.Version)
	c.LogLevel = envStr("ADVISOR_LOG_LEVEL", c.LogLevel)

	c.Backend.URL = strings.TrimRight(envStr("ADVISOR_BACKEND_URL", c.Backend.URL), "/")
	c.Backend.Timeout = envDuration("ADVISOR_BACKEND_TIMEOUT", c.Backend.Timeout)
	c.Backend.CatalogRefresh = envDuration("ADVISOR_CATALOG_REFRESH", c.Backend.CatalogRefresh)

	c.Chat.MaxHistory = envInt("ADVISOR_MAX_HISTORY", c.Chat.MaxHistory)

	c.Profiles.Backend = envStr("ADVISOR_PROFILE_BACKEND", c.Profiles.Backend)
	c.Profiles.DataDir = envStr("ADVISOR_DATA_DIR", c.Profiles.DataDir)
	c.Profiles.PostgresURL = envStr("ADVISOR_POSTGRES_URL", c.Profiles.PostgresURL)

	c.Sessions.IdleTTL = envDuration("ADVISOR_SESSION_IDLE_TTL", c.Sessions.IdleTTL)

	c.Telemetry.Enabled = envBool("OTEL_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)

	if v := os.Getenv("ADVISOR_API_KEYS"); v != "" {
		c.Auth.APIKeys = nil
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Auth.APIKeys = append(c.Auth.APIKeys, k)
			}
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".advisor-desk"
	}
	return filepath.Join(home, ".advisor-desk")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
