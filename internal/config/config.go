// Package config provides configuration loading with multiple sources.
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. Optional YAML file (config/portal.yaml, or CONFIG_PATH)
//  3. Environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the full application configuration.
type Config struct {
	Environment Environment `yaml:"environment"`
	Server      Server      `yaml:"server"`
	Backend     Backend     `yaml:"backend"`
	Demo        Demo        `yaml:"demo"`
	Cache       Cache       `yaml:"cache"`
	Session     Session     `yaml:"session"`
	Logging     Logging     `yaml:"logging"`
	Metrics     Metrics     `yaml:"metrics"`
	Tracing     Tracing     `yaml:"tracing"`

	// LoadedFrom tracks which sources contributed, for startup logging.
	LoadedFrom []string `yaml:"-"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// Backend describes the upstream graph service.
type Backend struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	AuthPath     string        `yaml:"auth_path"`
	GraphPath    string        `yaml:"graph_path"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// Demo holds the pre-filled demo credentials shown on the login form.
type Demo struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Cache configures the graph response cache.
type Cache struct {
	TTL      time.Duration `yaml:"ttl"`
	MaxItems int           `yaml:"max_items"`
}

// Session configures the in-memory session store.
type Session struct {
	IdleTTL    time.Duration `yaml:"idle_ttl"`
	CookieName string        `yaml:"cookie_name"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// Tracing configures the optional OTLP trace exporter.
type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Address returns the listen address in host:port form.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AuthURL returns the full auth endpoint URL.
func (b Backend) AuthURL() string {
	return strings.TrimRight(b.BaseURL, "/") + b.AuthPath
}

// GraphURL returns the full graph-fetch endpoint URL.
func (b Backend) GraphURL() string {
	return strings.TrimRight(b.BaseURL, "/") + b.GraphPath
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// environment variables, then validates the result.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/portal.yaml"
	}
	if err := loadFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	loadEnvironmentVariables(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// MustLoadConfig loads configuration and panics on error.
// Use this only in main().
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// loadEnvironmentVariables overlays environment variables on the
// configuration. This is the highest priority configuration source.
func loadEnvironmentVariables(cfg *Config) {
	if val := os.Getenv("ENVIRONMENT"); val != "" {
		cfg.Environment = Environment(strings.ToLower(val))
	}
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		if port := parseInt(val); port > 0 {
			cfg.Server.Port = port
		}
	}

	if val := os.Getenv("BACKEND_BASE_URL"); val != "" {
		cfg.Backend.BaseURL = val
	}
	if val := os.Getenv("API_KEY"); val != "" {
		cfg.Backend.APIKey = val
	}
	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.Backend.FetchTimeout = d
		}
	}

	if val := os.Getenv("DEMO_USER"); val != "" {
		cfg.Demo.User = val
	}
	if val := os.Getenv("DEMO_PASS"); val != "" {
		cfg.Demo.Password = val
	}

	if val := os.Getenv("CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.Cache.TTL = d
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("ENABLE_METRICS"); val != "" {
		cfg.Metrics.Enabled = parseBool(val)
	}
	if val := os.Getenv("ENABLE_TRACING"); val != "" {
		cfg.Tracing.Enabled = parseBool(val)
	}
	if val := os.Getenv("OTLP_ENDPOINT"); val != "" {
		cfg.Tracing.Endpoint = val
	}
}

// defaultConfig returns a configuration with sensible defaults.
// This ensures the application can run even without configuration files.
func defaultConfig() *Config {
	return &Config{
		Environment: Development,
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 * 1024 * 1024, // 10MB
		},
		Backend: Backend{
			BaseURL:      "https://api.example.com",
			AuthPath:     "/v1/auth/login",
			GraphPath:    "/v1/graph/fetch",
			FetchTimeout: 20 * time.Second,
		},
		Demo: Demo{
			User:     "demo@example.com",
			Password: "password123",
		},
		Cache: Cache{
			TTL:      300 * time.Second,
			MaxItems: 1000,
		},
		Session: Session{
			IdleTTL:    1 * time.Hour,
			CookieName: "ug_session",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "usergraph",
		},
		Tracing: Tracing{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "usergraph-portal",
		},
	}
}

// Validate checks the final configuration for values the server cannot
// run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base URL must be http(s): %q", c.Backend.BaseURL)
	}
	if c.Backend.FetchTimeout <= 0 {
		return fmt.Errorf("backend fetch timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session idle TTL must be positive")
	}
	switch c.Environment {
	case Development, Production:
	default:
		return fmt.Errorf("unknown environment: %q", c.Environment)
	}
	return nil
}

func parseInt(s string) int {
	val, _ := strconv.Atoi(s)
	return val
}

func parseBool(s string) bool {
	val, _ := strconv.ParseBool(s)
	return val
}
