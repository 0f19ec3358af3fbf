// Package config loads the gateway settings from the environment with an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/quizlive/go/internal/dbconfig"
)

// Session service backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

type Config struct {
	Port           string   `yaml:"port"`
	AppEnv         string   `yaml:"app_env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`

	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Session  SessionConfig  `yaml:"session"`

	RedisURL string `yaml:"redis_url"`
	NATSURL  string `yaml:"nats_url"`

	Database dbconfig.Config `yaml:"-"`
}

type AuthConfig struct {
	AdminSecret string        `yaml:"admin_secret"`
	TeamSecret  string        `yaml:"team_secret"`
	AdminTTL    time.Duration `yaml:"admin_ttl"`
	TeamTTL     time.Duration `yaml:"team_ttl"`
}

type RealtimeConfig struct {
	Path             string        `yaml:"path"`
	WarningBefore    time.Duration `yaml:"warning_before"`
	EnforceAdminRole bool          `yaml:"enforce_admin_role"`
}

type SessionConfig struct {
	Backend    string        `yaml:"backend"`
	ServiceURL string        `yaml:"service_url"`
	Token      string        `yaml:"token"`
	QuizFile   string        `yaml:"quiz_file"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// IsDevelopment reports whether the process runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "" || c.AppEnv == "development"
}

// FromEnv builds a Config from environment variables and defaults
func FromEnv() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Auth: AuthConfig{
			AdminSecret: os.Getenv("JWT_ADMIN_SECRET"),
			TeamSecret:  os.Getenv("JWT_TEAM_SECRET"),
			AdminTTL:    getEnvAsDuration("JWT_EXP_ADMIN", 90*time.Minute),
			TeamTTL:     getEnvAsDuration("JWT_EXP_TEAM", 90*time.Minute),
		},
		Realtime: RealtimeConfig{
			Path:             getEnv("REALTIME_PATH", "/realtime"),
			WarningBefore:    time.Duration(getEnvAsInt("QUESTION_WARNING_SEC", 5)) * time.Second,
			EnforceAdminRole: getEnvAsBool("ENFORCE_ADMIN_ROLE", false),
		},
		Session: SessionConfig{
			Backend:    getEnv("SESSION_BACKEND", BackendMemory),
			ServiceURL: os.Getenv("SESSION_SERVICE_URL"),
			Token:      os.Getenv("SESSION_SERVICE_TOKEN"),
			QuizFile:   getEnv("QUIZ_FILE", "quiz.yaml"),
			CacheTTL:   getEnvAsDuration("QUESTION_CACHE_TTL", 30*time.Second),
		},
		RedisURL: os.Getenv("REDIS_URL"),
		NATSURL:  os.Getenv("NATS_URL"),
		Database: dbconfig.NewConfigFromEnv(),
	}
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	return cfg
}

// Load reads the environment, then overlays the YAML file at path when path is not empty
func Load(path string) (*Config, error) {
	cfg := FromEnv()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.AdminSecret == "" {
		errs = append(errs, errors.New("JWT_ADMIN_SECRET is required"))
	}
	if c.Auth.TeamSecret == "" {
		errs = append(errs, errors.New("JWT_TEAM_SECRET is required"))
	}
	if !strings.HasPrefix(c.Realtime.Path, "/") {
		errs = append(errs, fmt.Errorf("realtime path %q must start with /", c.Realtime.Path))
	}
	if c.Realtime.WarningBefore < 0 {
		errs = append(errs, errors.New("QUESTION_WARNING_SEC must not be negative"))
	}
	switch c.Session.Backend {
	case BackendMemory, BackendPostgres:
	case BackendHTTP:
		if c.Session.ServiceURL == "" {
			errs = append(errs, errors.New("SESSION_SERVICE_URL is required for the http backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}
	return errors.Join(errs...)
}

// CORSOrigins returns the origins the HTTP surface accepts
func (c *Config) CORSOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return c.AllowedOrigins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90m") and bare seconds ("5400")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
