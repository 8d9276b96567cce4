// Package cli implements the command line interface of Gantry.
package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/gantry/app/config"
	actx "go.hackfix.me/gantry/app/context"
)

// CLI is the command line interface of Gantry.
type CLI struct {
	Serve  Serve  `kong:"cmd,help='Start the web server.'"`
	Routes Routes `kong:"cmd,help='List the registered route groups.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: I'm deliberately not using kong.ConfigFlag or its support for reading
	// values from configuration files, since I want to manage configuration
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the Gantry configuration file.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, version string) (*CLI, error) {
	c := &CLI{}
	kparser, err := kong.New(c,
		kong.Name("gantry"),
		kong.UsageOnError(),
		kong.DefaultEnvars("GANTRY"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they
// weren't already set.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Serve.Port == 0 && cfg.Server.Port.Valid {
		c.Serve.Port = cfg.Server.Port.V
	}
	if c.Serve.BaseURL == "" && cfg.Server.BaseURL.Valid {
		c.Serve.BaseURL = cfg.Server.BaseURL.V
	}
	if c.Serve.RoutesDir == "" && cfg.Server.RoutesDir.Valid {
		c.Serve.RoutesDir = cfg.Server.RoutesDir.V
	}
	if c.Routes.BaseURL == "" && cfg.Server.BaseURL.Valid {
		c.Routes.BaseURL = cfg.Server.BaseURL.V
	}
	if c.Routes.RoutesDir == "" && cfg.Server.RoutesDir.Valid {
		c.Routes.RoutesDir = cfg.Server.RoutesDir.V
	}
}
