// Package app assembles the application: it builds the application context
// from options, loads the configuration and hands execution to the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mandelsoft/vfs/pkg/memoryfs"

	cfg "go.hackfix.me/gantry/app/config"
	actx "go.hackfix.me/gantry/app/context"
	aerrors "go.hackfix.me/gantry/app/errors"
	"go.hackfix.me/gantry/cli"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application. configFilePath is the default location
// of the configuration file, overridable on the command line.
func New(name, configFilePath, version string, opts ...Option) (*App, error) {
	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version)
	var err error
	app.cli, err = cli.New(configFilePath, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	if app.ctx.Config == nil {
		config := cfg.NewConfig(app.ctx.FS, app.cli.ConfigFile)
		if err := config.Load(); err != nil {
			return aerrors.With(err, "config_file", app.cli.ConfigFile)
		}
		config.SetDefaults()
		app.ctx.Config = config
	}
	app.cli.ApplyConfig(app.ctx.Config)

	if err := app.cli.Execute(app.ctx); err != nil {
		return err
	}

	return nil
}
