// ABOUTME: Sync settings for the charm backend, kept in a small YAML file
// ABOUTME: CRMDECK_CHARM_HOST overrides the saved host for one process

package charm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCharmHost is the public charm cloud.
	DefaultCharmHost = "cloud.charm.sh"

	// AppName names the charm KV database and the data directory.
	AppName = "crmdeck"

	ConfigFileName = "charm.yaml"

	hostEnv = "CRMDECK_CHARM_HOST"
)

// Config holds the sync settings for the charm store.
type Config struct {
	Host           string        `yaml:"host,omitempty"`
	AutoSync       bool          `yaml:"auto_sync"`
	StaleThreshold time.Duration `yaml:"stale_threshold,omitempty"`

	path string
}

// DefaultConfig syncs after every write against the public cloud.
func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// ConfigPath is where LoadConfig reads and Save writes.
func ConfigPath() string {
	return filepath.Join(xdg.DataHome, AppName, ConfigFileName)
}

// LoadConfig reads the settings file at ConfigPath.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom reads settings from path. A missing file yields defaults;
// a malformed one is an error so a typo never silently re-enables auto-sync.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if host := strings.TrimSpace(os.Getenv(hostEnv)); host != "" {
		cfg.Host = host
	}
	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = kv.DefaultStaleThreshold
	}
	return cfg, nil
}

// Path reports the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// Save writes the settings back to Path.
func (c *Config) Save() error {
	path := c.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return errors.New("host must not be empty")
	}
	c.Host = host
	return c.Save()
}

func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
