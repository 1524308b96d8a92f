// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/sidepop/internal/host"
	"github.com/jmylchreest/sidepop/internal/rules"
)

// Default configuration values.
const (
	DefaultSide           = string(host.SideBottom)
	DefaultSizeFraction   = 0.25
	DefaultTTL            = 5 * time.Second
	DefaultMaxFitFraction = 0.5
	DefaultMinSize        = 1
)

// Config is the sidepop configuration, rules included.
// Loaded from ~/.config/sidepop/sidepop.toml
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Layout   LayoutConfig   `toml:"layout"`
	Session  SessionConfig  `toml:"session"`
	Rules    []rules.Rule   `toml:"rules"`
}

// DefaultsConfig holds the placement values applied when no matching rule
// specifies a field.
type DefaultsConfig struct {
	Side     string         `toml:"side"`
	Size     rules.Size     `toml:"size"`
	TTL      rules.Duration `toml:"ttl"`
	Select   bool           `toml:"select"`
	Modeline bool           `toml:"modeline"`
	Quit     bool           `toml:"quit"`
	Autosave bool           `toml:"autosave"`
}

// LayoutConfig holds geometry limits for the layout engine.
type LayoutConfig struct {
	MaxFitFraction float64 `toml:"max_fit_fraction"` // ceiling for shrink-to-fit sizing
	MinSize        int     `toml:"min_size"`         // smallest popup extent in lines/columns
}

// SessionConfig holds autosave session settings.
type SessionConfig struct {
	File string `toml:"file"` // Path to the session file (default: data dir)
}

// DefaultConfig returns a Config with default values and no rules.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Side:     DefaultSide,
			Size:     rules.FractionSize(DefaultSizeFraction),
			TTL:      rules.Duration(DefaultTTL),
			Select:   false,
			Modeline: false,
			Quit:     true,
			Autosave: false,
		},
		Layout: LayoutConfig{
			MaxFitFraction: DefaultMaxFitFraction,
			MinSize:        DefaultMinSize,
		},
		Session: SessionConfig{
			File: "",
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "sidepop", "sidepop.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "sidepop")
}

// SessionPath returns the path to the autosave session file, honoring the
// configured override.
func (c *Config) SessionPath() string {
	if c.Session.File != "" {
		return c.Session.File
	}
	return filepath.Join(DataPath(), "session.jsonl")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed; the write is atomic.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid. Rules are compiled as part
// of validation so a bad pattern is caught at load time.
func (c *Config) Validate() error {
	validSide := false
	for _, s := range host.ValidSides() {
		if c.Defaults.Side == string(s) {
			validSide = true
			break
		}
	}
	if !validSide {
		return fmt.Errorf("invalid default side %q, must be one of: %v", c.Defaults.Side, host.ValidSides())
	}

	if c.Layout.MaxFitFraction <= 0 || c.Layout.MaxFitFraction > 1 {
		return fmt.Errorf("max_fit_fraction must be between 0 and 1, got %g", c.Layout.MaxFitFraction)
	}
	if c.Layout.MinSize < 1 {
		return fmt.Errorf("min_size must be at least 1, got %d", c.Layout.MinSize)
	}

	for i := range c.Rules {
		if err := c.Rules[i].Compile(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	return nil
}

// ResolverDefaults converts the configured defaults into the resolver's form.
func (c *Config) ResolverDefaults() rules.Defaults {
	return rules.Defaults{
		Side:     host.Side(c.Defaults.Side),
		Size:     c.Defaults.Size,
		TTL:      c.Defaults.TTL.Duration(),
		Select:   c.Defaults.Select,
		Modeline: c.Defaults.Modeline,
		Quit:     c.Defaults.Quit,
		Autosave: c.Defaults.Autosave,
	}
}

// RuleLoader returns a rules.Loader that re-reads the rule set from the given
// config file. Used by the hot-reload watcher.
func RuleLoader(path string) rules.Loader {
	return func() ([]rules.Rule, error) {
		cfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		return cfg.Rules, nil
	}
}
