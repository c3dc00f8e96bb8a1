package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the client configuration for one manager connection.
// It is immutable after creation via Load().
type Config struct {
	// Username for HTTP basic authentication. Defaults to the OS user.
	Username string `yaml:"username"`

	// Password for HTTP basic authentication. When empty the user is
	// prompted at login.
	Password string `yaml:"password"`

	// ManagerURL is the manager base URL as written in the config file.
	// Use ResolveManagerURL to apply environment and default precedence.
	ManagerURL string `yaml:"manager_url"`

	// Certificate is the path to a PEM client certificate (mutual TLS)
	Certificate string `yaml:"certificate"`

	// Key is the path to the PEM private key matching Certificate
	Key string `yaml:"key"`

	// CACertificate is the path to a PEM CA bundle used to verify the manager.
	// When empty, server certificate verification is disabled.
	CACertificate string `yaml:"ca_certificate"`

	// PollInterval is how often the selected queue is refreshed
	PollInterval string `yaml:"poll_interval"`

	// Timeout bounds every request to the manager
	Timeout string `yaml:"timeout"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Path is the file this config was read from (empty when only
	// defaults and environment were used)
	Path string `yaml:"-"`
}

// PollIntervalDuration parses the poll interval as a Duration.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.PollInterval)
}

// TimeoutDuration parses the request timeout as a Duration.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// NeedsPassword reports whether the password must be entered interactively.
func (c *Config) NeedsPassword() bool {
	return c.Password == ""
}

// SearchPaths returns the config file locations in lookup order:
// the user-scoped file first, then the system-wide file.
func SearchPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "batchd", ConfigFileName))
	}
	return append(paths, filepath.Join(SystemConfigDir, ConfigFileName))
}

// Load reads configuration. An explicit path must exist; otherwise the
// SearchPaths are tried in order and the first existing file wins.
// A missing config file is not an error.
func Load(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		cfg, err := LoadFromPath(explicitPath)
		if err != nil {
			return nil, err
		}
		return finish(cfg)
	}
	return LoadFromPaths(SearchPaths())
}

// LoadFromPaths loads the first existing file from paths, then applies
// environment overrides and validates the result.
func LoadFromPaths(paths []string) (*Config, error) {
	for _, path := range paths {
		cfg, err := LoadFromPath(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return finish(cfg)
	}
	return finish(DefaultConfig())
}

// LoadFromPath parses a single config file over the defaults without
// applying environment overrides.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)

	if cfg.Username == "" {
		cfg.Username = currentUser()
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// currentUser mirrors getpass.getuser-style lookup used as the login default.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, env := range []string{"LOGNAME", "USER", "USERNAME"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}
