package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"page-reader/internal/domain"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"
)

// DefaultDatabasePath is the SQLite file used when nothing else is configured.
const DefaultDatabasePath = "./reader.db"

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort     string
	LogLevel       string
	StoreDriver    string
	DatabasePath   string
	SupabaseURL    string
	SupabaseKey    string
	APIToken       string
	AllowedOrigins []string
	ContextChars   int
	SettleDelay    time.Duration
	StoreTimeout   time.Duration
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables take precedence over it.
type fileConfig struct {
	Port           string   `yaml:"port"`
	LogLevel       string   `yaml:"log_level"`
	StoreDriver    string   `yaml:"store_driver"`
	DatabasePath   string   `yaml:"database_path"`
	SupabaseURL    string   `yaml:"supabase_url"`
	SupabaseKey    string   `yaml:"supabase_service_key"`
	APIToken       string   `yaml:"api_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ContextChars   int      `yaml:"context_chars"`
	SettleDelay    string   `yaml:"settle_delay"`
	StoreTimeout   string   `yaml:"store_timeout"`
}

// NewConfig reads the configuration from CONFIG_FILE (when set) and the environment.
func NewConfig() (*AppConfig, error) {
	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		file = *loaded
	}

	cfg := &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:   getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", orDefault(file.Port, "8080"))),
		LogLevel:     getEnvOrDefault("LOG_LEVEL", orDefault(file.LogLevel, "info")),
		StoreDriver:  strings.ToLower(getEnvOrDefault("STORE_DRIVER", orDefault(file.StoreDriver, DriverSQLite))),
		DatabasePath: getEnvOrDefault("DATABASE_PATH", orDefault(file.DatabasePath, DefaultDatabasePath)),
		SupabaseURL:  getEnvOrDefault("SUPABASE_URL", file.SupabaseURL),
		SupabaseKey:  getEnvOrDefault("SUPABASE_SERVICE_KEY", file.SupabaseKey),
		APIToken:     getEnvOrDefault("API_TOKEN", file.APIToken),
		ContextChars: getEnvIntOrDefault("CONTEXT_CHARS", positiveOr(file.ContextChars, domain.DefaultContextChars)),
	}

	origins := file.AllowedOrigins
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = splitList(raw)
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg.AllowedOrigins = origins

	var err error
	if cfg.SettleDelay, err = durationSetting("SETTLE_DELAY", file.SettleDelay, 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationSetting("STORE_TIMEOUT", file.StoreTimeout, 5*time.Second); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverSupabase:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fc, nil
}

func (c *AppConfig) GetServerPort() string          { return c.ServerPort }
func (c *AppConfig) GetLogLevel() string            { return c.LogLevel }
func (c *AppConfig) GetStoreDriver() string         { return c.StoreDriver }
func (c *AppConfig) GetDatabasePath() string        { return c.DatabasePath }
func (c *AppConfig) GetSupabaseURL() string         { return c.SupabaseURL }
func (c *AppConfig) GetSupabaseKey() string         { return c.SupabaseKey }
func (c *AppConfig) GetAPIToken() string            { return c.APIToken }
func (c *AppConfig) GetAllowedOrigins() []string    { return c.AllowedOrigins }
func (c *AppConfig) GetContextChars() int           { return c.ContextChars }
func (c *AppConfig) GetSettleDelay() time.Duration  { return c.SettleDelay }
func (c *AppConfig) GetStoreTimeout() time.Duration { return c.StoreTimeout }

var _ domain.Config = (*AppConfig)(nil)

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

// durationSetting resolves a duration from the environment, then the file value, then def.
func durationSetting(key, fileValue string, def time.Duration) (time.Duration, error) {
	raw := getEnvOrDefault(key, fileValue)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative duration such as 500ms", key, raw)
	}
	return d, nil
}

func orDefault(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func positiveOr(value, def int) int {
	if value > 0 {
		return value
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
