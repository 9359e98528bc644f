// Package config handles fastpath daemon configuration.
//
// Configuration is loaded with overlay semantics:
//
//  1. Start with built-in defaults (embedded via go:embed from default.toml)
//  2. Overlay with config file values (if file exists)
//  3. CLI flags and environment variables override at runtime (handled by CLI layer)
//
// A valid configuration is always available, even when no config file
// exists. The TOML decoder only sets fields present in the file, leaving
// unspecified fields at their default values.
//
// If the config file exists but is invalid, Load returns an error rather
// than silently falling back to defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultConfigTOML string

// DefaultConfigPath is the default path to the fastpath config file.
const DefaultConfigPath = "/etc/fastpath/fastpath.toml"

// Config is the top-level fastpath configuration.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Runtime  RuntimeConfig  `toml:"runtime"`
	Datapath DatapathConfig `toml:"datapath"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	// Level is the log spec (e.g., "info" or "info,generic=debug").
	Level string `toml:"level"`
	// Format is the output format: "text" or "json".
	Format string `toml:"format"`
	// Components provides an alternative way to specify per-component levels.
	Components map[string]string `toml:"components"`
}

// ToSpec converts the LoggingConfig to a log spec string.
// If Level is set, it takes precedence. Otherwise, Components are used.
func (c *LoggingConfig) ToSpec() string {
	if c.Level != "" {
		return c.Level
	}

	if len(c.Components) == 0 {
		return ""
	}

	parts := make([]string, 0, len(c.Components)+1)
	parts = append(parts, "info")

	for component, level := range c.Components {
		parts = append(parts, component+"="+level)
	}

	return strings.Join(parts, ",")
}

// RuntimeConfig locates mutable daemon state.
type RuntimeConfig struct {
	// BaseDir is the runtime root (e.g., /run/fastpath). The settings
	// database lives under it.
	BaseDir string `toml:"base_dir"`
}

// DatapathConfig describes the packet programs and the interfaces to
// attach them to.
type DatapathConfig struct {
	// ObjectPath is the compiled BPF object containing the rx and tx
	// programs.
	ObjectPath string `toml:"object"`
	// Interfaces are the network interface names to serve.
	Interfaces []string `toml:"interfaces"`
}

// DefaultConfig returns the default configuration from the embedded default.toml.
// This provides a valid baseline that is always available.
func DefaultConfig() Config {
	var cfg Config
	if _, err := toml.Decode(defaultConfigTOML, &cfg); err != nil {
		// default.toml is embedded at build time; decoding it cannot
		// fail in a correct build. Fall back to a minimal safe config.
		return Config{
			Logging: LoggingConfig{Level: "info", Format: "text"},
			Runtime: RuntimeConfig{BaseDir: "/run/fastpath"},
		}
	}
	return cfg
}

// Load reads configuration from a file path with overlay semantics.
//
// Behaviour:
//   - File missing: returns default configuration (no error)
//   - File exists and valid: overlays file values onto defaults
//   - File exists but invalid: returns error (fail fast)
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Runtime.BaseDir == "" {
		return fmt.Errorf("runtime.base_dir cannot be empty")
	}
	return nil
}
