// Package config loads the user's embedding-provider configuration from the
// platform config directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "text-embedding-3-small"
)

// Config is the recognized option set from spec.md §6:
// {api_key, base_url, model}.
type Config struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`

	mu sync.RWMutex
}

var (
	global     *Config
	globalOnce sync.Once
	globalErr  error
)

// Get returns the lazily-loaded singleton configuration. A missing config
// file is not an error: Get returns the defaults, with APIKey taken from
// IDX_API_KEY when that is set.
func Get() (*Config, error) {
	globalOnce.Do(func() {
		global, globalErr = Load(Path())
	})
	return global, globalErr
}

// Path returns the platform config file location: ~/.config/idx/config.toml
// on Linux (resolved via os.UserConfigDir()), or the IDX_CONFIG_PATH
// override when set.
func Path() string {
	if custom := os.Getenv("IDX_CONFIG_PATH"); custom != "" {
		return custom
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "idx", "config.toml")
}

// Load reads and parses the config file at path, applying defaults for any
// option left unset. A missing file yields defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{BaseURL: defaultBaseURL, Model: defaultModel}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.APIKey = os.Getenv("IDX_API_KEY")
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("IDX_API_KEY")
	}
	return cfg, nil
}

// Save writes the configuration back to path, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

// RequireAPIKey returns a directed error when no embedding-provider API key
// is configured, per spec.md §6: "Missing api_key fails index and search
// with a directed error."
func (c *Config) RequireAPIKey() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.APIKey == "" {
		return fmt.Errorf("config: no api_key set; add one to %s or set IDX_API_KEY", Path())
	}
	return nil
}
