package cli

import (
	"os"
	"os/signal"
	"syscall"

	actx "go.hackfix.me/gantry/app/context"
	aerrors "go.hackfix.me/gantry/app/errors"
	"go.hackfix.me/gantry/web/server"
	"go.hackfix.me/gantry/web/server/middleware"
	"go.hackfix.me/gantry/web/server/plugin"
)

// Serve starts the web server.
type Serve struct {
	Port      int    `help:"Port to listen on."`
	BaseURL   string `help:"Base URL to mount route groups under."`
	RoutesDir string `help:"Directory to load route plugins from."`
	Metrics   bool   `help:"Expose Prometheus metrics for handled requests."`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	srv, err := buildServer(appCtx, c.BaseURL, c.RoutesDir, c.Metrics)
	if err != nil {
		return err
	}

	if err = srv.ListenAsync(appCtx.Ctx, c.Port, nil); err != nil {
		return aerrors.WithCause(aerrors.NewWith("failed starting web server"), err)
	}

	// Gracefully shutdown the server if a process signal is received, or the
	// main context is done.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sigCh:
		appCtx.Logger.Debug("process received signal", "signal", s)
	case <-appCtx.Ctx.Done():
		appCtx.Logger.Debug("app context is done")
	}

	if err = srv.Close(); err != nil {
		return aerrors.WithCause(aerrors.NewWith("failed shutting down web server"), err)
	}

	return nil
}

// buildServer assembles a server from the application configuration and
// loads route plugins from the given directory, if any.
func buildServer(appCtx *actx.Context, baseURL, routesDir string, metrics bool) (*server.Server, error) {
	opts := []server.Option{
		server.WithBaseURL(baseURL),
		server.WithTimeouts(
			appCtx.Config.Server.ReadTimeout.V,
			appCtx.Config.Server.WriteTimeout.V,
			appCtx.Config.Server.ShutdownTimeout.V,
		),
	}
	if metrics {
		opts = append(opts, server.WithMiddleware(middleware.Metrics()))
	}

	srv := server.New(appCtx, opts...)

	if routesDir != "" {
		src := plugin.NewDirectorySource(appCtx.FS, routesDir, &plugin.SymbolLoader{})
		if err := srv.LoadRoutes(src); err != nil {
			return nil, aerrors.WithCause(
				aerrors.NewWith("failed loading route plugins", "dir", routesDir), err)
		}
	}

	return srv, nil
}
