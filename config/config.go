// ABOUTME: Startup configuration loaded from .env, an optional YAML file and the environment
// ABOUTME: Validates required settings up front so a misconfigured process fails before serving
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingSetting wraps every fail-fast configuration error.
var ErrMissingSetting = errors.New("missing configuration")

// Backend names accepted by OpenGateway.
const (
	BackendMock     = "mock"
	BackendRemote   = "remote"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCharm    = "charm"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultFeedCap         = 50
	DefaultWebAddr         = "127.0.0.1:8080"
	DefaultLogLevel        = "info"
)

// Config is the resolved process configuration.
type Config struct {
	Backend         string        `yaml:"backend"`
	APIURL          string        `yaml:"api_url"`
	ProjectID       string        `yaml:"project_id"`
	PublicKey       string        `yaml:"public_key"`
	DBPath          string        `yaml:"db_path"`
	DatabaseURL     string        `yaml:"database_url"`
	RedisURL        string        `yaml:"redis_url"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	FeedCap         int           `yaml:"feed_cap"`
	MockLatency     time.Duration `yaml:"mock_latency"`
	WebAddr         string        `yaml:"web_addr"`
	LogLevel        string        `yaml:"log_level"`
	GmailToken      string        `yaml:"gmail_token"`
	SenderName      string        `yaml:"sender_name"`
	SenderEmail     string        `yaml:"sender_email"`
}

// Default returns a mock-backed configuration.
func Default() *Config {
	return &Config{
		Backend:         BackendMock,
		DBPath:          DefaultDBPath(),
		RefreshInterval: DefaultRefreshInterval,
		FeedCap:         DefaultFeedCap,
		WebAddr:         DefaultWebAddr,
		LogLevel:        DefaultLogLevel,
	}
}

// DefaultDBPath is the SQLite file under the XDG data home.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "crmdeck", "crmdeck.db")
}

// DefaultPath is the YAML config file under the XDG config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "crmdeck", "config.yaml")
}

// Load resolves configuration from .env, then the YAML file at path (or the
// default location when path is empty), then the process environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CRM_API_URL", &c.APIURL)
	str("CRM_PROJECT_ID", &c.ProjectID)
	str("CRM_PUBLIC_KEY", &c.PublicKey)
	str("CRMDECK_BACKEND", &c.Backend)
	str("CRMDECK_DB_PATH", &c.DBPath)
	str("CRMDECK_DATABASE_URL", &c.DatabaseURL)
	str("CRMDECK_REDIS_URL", &c.RedisURL)
	str("CRMDECK_WEB_ADDR", &c.WebAddr)
	str("CRMDECK_LOG_LEVEL", &c.LogLevel)
	str("CRMDECK_GMAIL_TOKEN", &c.GmailToken)
	str("CRMDECK_SENDER_NAME", &c.SenderName)
	str("CRMDECK_SENDER_EMAIL", &c.SenderEmail)

	for key, dst := range map[string]*time.Duration{
		"CRMDECK_REFRESH_INTERVAL": &c.RefreshInterval,
		"CRMDECK_MOCK_LATENCY":     &c.MockLatency,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := lookup("CRMDECK_FEED_CAP"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CRMDECK_FEED_CAP: %w", err)
		}
		c.FeedCap = n
	}
	return nil
}

// Validate fails fast on settings the chosen backend cannot run without.
func (c *Config) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))

	var missing []string
	switch c.Backend {
	case BackendMock, BackendCharm:
	case BackendRemote:
		if c.APIURL == "" {
			missing = append(missing, "CRM_API_URL")
		}
		if c.ProjectID == "" {
			missing = append(missing, "CRM_PROJECT_ID")
		}
		if c.PublicKey == "" {
			missing = append(missing, "CRM_PUBLIC_KEY")
		}
	case BackendSQLite:
		if c.DBPath == "" {
			missing = append(missing, "CRMDECK_DB_PATH")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "CRMDECK_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s backend requires %s", ErrMissingSetting, c.Backend, strings.Join(missing, ", "))
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: CRMDECK_REFRESH_INTERVAL must be positive", ErrMissingSetting)
	}
	if c.FeedCap <= 0 {
		return fmt.Errorf("%w: CRMDECK_FEED_CAP must be positive", ErrMissingSetting)
	}
	if c.MockLatency < 0 {
		return fmt.Errorf("CRMDECK_MOCK_LATENCY must not be negative")
	}
	return nil
}
