// Package cli implements the fastpath command line interface.
package cli

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-fastpath/config"
	"github.com/frobware/go-fastpath/logging"
)

// CLI is the root command structure for fastpath.
type CLI struct {
	Config     string `name:"config" help:"Config file path." default:"${default_config_path}"`
	Log        string `name:"log" help:"Log spec (e.g., 'info,generic=debug')." env:"FASTPATH_LOG"`
	RuntimeDir string `name:"runtime-dir" help:"Runtime state directory (overrides config)."`

	Serve   ServeCmd   `cmd:"" help:"Attach the fast path and serve until signalled."`
	Timeout TimeoutCmd `cmd:"" help:"Get or set the delay-detach timeout."`
}

// KongOptions returns the Kong configuration options for the CLI.
func KongOptions() []kong.Option {
	return []kong.Option{
		kong.Name("fastpath"),
		kong.Description("Software fast path attach manager."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"default_config_path": config.DefaultConfigPath,
		},
	}
}

// LoadConfig loads the configuration from the config file path.
func (c *CLI) LoadConfig() (config.Config, error) {
	return config.Load(c.Config)
}

// RuntimeDirs resolves the runtime directory layout, preferring the
// --runtime-dir flag over the config file.
func (c *CLI) RuntimeDirs() (config.RuntimeDirs, error) {
	base := c.RuntimeDir
	if base == "" {
		cfg, err := c.LoadConfig()
		if err != nil {
			return config.RuntimeDirs{}, err
		}
		base = cfg.Runtime.BaseDir
	}
	return config.NewRuntimeDirs(base)
}

// Logger creates a logger for CLI commands.
// CLI commands default to WARN level for quieter output.
// Use LoggerFromConfig for the long-running serve command.
func (c *CLI) Logger() (*slog.Logger, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	spec := c.Log
	if spec == "" {
		spec = "warn"
	}

	return logging.New(logging.Options{
		CLISpec:    spec,
		ConfigSpec: cfg.Logging.ToSpec(),
		Format:     format,
		Output:     os.Stderr,
	})
}

// LoggerFromConfig creates a logger using config file settings.
// Output goes to stdout for daemon/container log collection.
func (c *CLI) LoggerFromConfig() (*slog.Logger, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	return logging.New(logging.Options{
		CLISpec:    c.Log,
		ConfigSpec: cfg.Logging.ToSpec(),
		Format:     format,
		Output:     os.Stdout,
	})
}
