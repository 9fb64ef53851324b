// Package config loads flatshelf configuration.
//
// Values are layered: built-in defaults, then config.yaml in the config
// directory, then the optional whitelist file next to it, then FLATSHELF_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/flatshelf/internal/catalog"
	"github.com/blackwell-systems/flatshelf/internal/flatpak"
)

// EnvPrefix prefixes every environment override, e.g. FLATSHELF_SCOPE.
const EnvPrefix = "FLATSHELF"

// Config holds flatshelf settings.
type Config struct {
	CatalogURL    string        `yaml:"catalog_url" split_words:"true"`
	RemoteName    string        `yaml:"remote_name" split_words:"true"`
	RemoteURL     string        `yaml:"remote_url" split_words:"true"`
	Timeout       time.Duration `yaml:"timeout"`
	Scope         string        `yaml:"scope"` // auto, system or user
	Whitelist     []string      `yaml:"whitelist"`
	LogLevel      string        `yaml:"log_level" split_words:"true"`
	DBPath        string        `yaml:"db_path" split_words:"true"`
	WatchDebounce time.Duration `yaml:"watch_debounce" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CatalogURL:    catalog.DefaultURL,
		RemoteName:    flatpak.DefaultRemoteName,
		RemoteURL:     flatpak.DefaultRemoteURL,
		Timeout:       30 * time.Second,
		Scope:         "auto",
		LogLevel:      "warn",
		WatchDebounce: 2 * time.Second,
	}
}

// Dir returns the flatshelf config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/flatshelf if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "flatshelf"), nil
}

// DefaultPath returns the path of config.yaml in Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file at path. A missing file is not an error. The
// whitelist file in the same directory is merged into Whitelist, and
// environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	extra, err := LoadWhitelistFile(filepath.Join(filepath.Dir(path), "whitelist"))
	if err != nil {
		return nil, fmt.Errorf("failed to read whitelist: %w", err)
	}
	cfg.Whitelist = append(cfg.Whitelist, extra...)

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if _, err := c.ResolveScope(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid config: timeout must be positive, got %s", c.Timeout)
	}
	if strings.TrimSpace(c.CatalogURL) == "" {
		return fmt.Errorf("invalid config: catalog_url cannot be empty")
	}
	return nil
}

// ResolveScope maps the configured scope to a flatpak.Scope. "auto" (or
// empty) selects the system installation for root and the user one
// otherwise.
func (c *Config) ResolveScope() (flatpak.Scope, error) {
	switch strings.ToLower(strings.TrimSpace(c.Scope)) {
	case "", "auto":
		return flatpak.DetectScope(), nil
	default:
		return flatpak.ParseScope(c.Scope)
	}
}

// ResolveDBPath returns the journal database path, defaulting to
// ~/.flatshelf/flatshelf.db. The parent directory is created if needed.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.DBPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, ".flatshelf", "flatshelf.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create flatshelf directory: %w", err)
	}
	return path, nil
}

// CatalogOptions returns fetcher options derived from the config.
func (c *Config) CatalogOptions() catalog.Options {
	opts := catalog.DefaultOptions()
	opts.URL = c.CatalogURL
	opts.Timeout = c.Timeout
	return opts
}
