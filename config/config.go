// Package config handles loading and validation of application configuration
// from environment variables and potentially configuration files.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roamledger/roamledger/logger"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minSessionSecretLength = 32
)

// ServerConfig holds API server configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// SessionSecretKey signs the HS256 session cookies issued by /v1/session.
	SessionSecretKey string `mapstructure:"SESSION_SECRET_KEY" yaml:"session_secret_key"`
	// SessionTTLHours bounds how long an issued session cookie stays valid.
	SessionTTLHours int `mapstructure:"SESSION_TTL_HOURS" yaml:"session_ttl_hours"`
	// TrustedProxies is a list of CIDR ranges or IPs of trusted reverse proxies.
	// If empty, X-Forwarded-For headers are ignored entirely (safe default).
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS" yaml:"max_idle_conns"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and other
// URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// ClientConfig holds device-side configuration for the roam CLI.
type ClientConfig struct {
	// StorePath is the SQLite database file backing the local store.
	StorePath string `mapstructure:"STORE_PATH" yaml:"store_path"`
	// RemoteBaseURL is the base URL of the expense API, e.g. http://localhost:8080.
	RemoteBaseURL string `mapstructure:"REMOTE_BASE_URL" yaml:"remote_base_url"`
	// TimeoutSeconds is the HTTP client timeout for remote requests.
	TimeoutSeconds int `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// ReceiptArchiveConfig holds configuration for the optional S3 receipt offload.
type ReceiptArchiveConfig struct {
	// Enabled indicates whether receipt payloads are archived to object storage
	Enabled bool `mapstructure:"ENABLED" yaml:"enabled"`
	// Bucket is the S3 bucket receiving receipt payloads
	Bucket string `mapstructure:"BUCKET" yaml:"bucket"`
	// Region is the bucket's AWS region
	Region string `mapstructure:"REGION" yaml:"region"`
	// Endpoint overrides the S3 endpoint for S3-compatible providers
	Endpoint string `mapstructure:"ENDPOINT" yaml:"endpoint"`
	// KeyPrefix is prepended to every stored object key
	KeyPrefix string `mapstructure:"KEY_PREFIX" yaml:"key_prefix"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server         ServerConfig         `mapstructure:"SERVER" yaml:"server"`
	Database       DatabaseConfig       `mapstructure:"DATABASE" yaml:"database"`
	Client         ClientConfig         `mapstructure:"CLIENT" yaml:"client"`
	ReceiptArchive ReceiptArchiveConfig `mapstructure:"RECEIPT_ARCHIVE" yaml:"receipt_archive"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{}) // Empty = trust no one (safe default)
	v.SetDefault("SERVER.SESSION_TTL_HOURS", 720)
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "roamledger_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("CLIENT.STORE_PATH", defaultStorePath())
	v.SetDefault("CLIENT.REMOTE_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT.TIMEOUT_SECONDS", 30)
	v.SetDefault("RECEIPT_ARCHIVE.ENABLED", false)
	v.SetDefault("RECEIPT_ARCHIVE.KEY_PREFIX", "receipts")
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.SESSION_SECRET_KEY", "SESSION_SECRET_KEY"},
		{"SERVER.SESSION_TTL_HOURS", "SESSION_TTL_HOURS"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		// Client config
		{"CLIENT.STORE_PATH", "ROAM_STORE_PATH"},
		{"CLIENT.REMOTE_BASE_URL", "ROAM_REMOTE_URL"},
		{"CLIENT.TIMEOUT_SECONDS", "ROAM_TIMEOUT_SECONDS"},
		// Receipt archive config
		{"RECEIPT_ARCHIVE.ENABLED", "RECEIPT_ARCHIVE_ENABLED"},
		{"RECEIPT_ARCHIVE.BUCKET", "RECEIPT_ARCHIVE_BUCKET"},
		{"RECEIPT_ARCHIVE.REGION", "RECEIPT_ARCHIVE_REGION"},
		{"RECEIPT_ARCHIVE.ENDPOINT", "RECEIPT_ARCHIVE_ENDPOINT"},
		{"RECEIPT_ARCHIVE.KEY_PREFIX", "RECEIPT_ARCHIVE_KEY_PREFIX"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadConfig loads and validates the server-side configuration.
func LoadConfig() (*Config, error) {
	log := logger.GetLogger()

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"allowed_origins", v.GetString("SERVER.ALLOWED_ORIGINS"),
		"receipt_archive_enabled", v.GetBool("RECEIPT_ARCHIVE.ENABLED"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateServerConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

// LoadClientConfig loads and validates the device-side configuration for the
// roam CLI. Server sections are loaded but not validated; the client never
// touches them.
func LoadClientConfig() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateClientConfig(&cfg.Client); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// validateServerConfig checks if the loaded server configuration values are valid.
func validateServerConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.SessionSecretKey) < minSessionSecretLength {
		return fmt.Errorf("session secret key must be at least %d characters long", minSessionSecretLength)
	}
	if cfg.Server.SessionTTLHours <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., using trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	return validateReceiptArchiveConfig(&cfg.ReceiptArchive)
}

// validateClientConfig checks the device-side configuration section.
func validateClientConfig(cfg *ClientConfig) error {
	if cfg.StorePath == "" {
		return fmt.Errorf("store path is required")
	}
	if cfg.RemoteBaseURL == "" {
		return fmt.Errorf("remote base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.RemoteBaseURL); err != nil {
		return fmt.Errorf("invalid remote base URL '%s': %w", cfg.RemoteBaseURL, err)
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("client timeout must be positive")
	}
	return nil
}

// validateReceiptArchiveConfig validates the receipt archive configuration.
// If enabled but missing a bucket, it auto-disables the archive with a warning.
func validateReceiptArchiveConfig(cfg *ReceiptArchiveConfig) error {
	if !cfg.Enabled {
		return nil
	}
	log := logger.GetLogger()
	if cfg.Bucket == "" {
		log.Warn("Receipt archive bucket not set, auto-disabling receipt archive")
		cfg.Enabled = false
		return nil
	}
	if cfg.Region == "" && cfg.Endpoint == "" {
		return fmt.Errorf("receipt archive requires a region or an explicit endpoint")
	}
	return nil
}

// defaultStorePath places the local store under the user config directory,
// falling back to the working directory when none is resolvable.
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "roamledger.db"
	}
	return filepath.Join(dir, "roamledger", "roamledger.db")
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
