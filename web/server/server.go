// Package server implements the HTTP server lifecycle: route registration,
// plugin loading, binding, rebinding and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	actx "go.hackfix.me/gantry/app/context"
	"go.hackfix.me/gantry/web/server/middleware"
	"go.hackfix.me/gantry/web/server/plugin"
	"go.hackfix.me/gantry/web/server/route"
)

// StartHook is a startup task run before the server binds its listener.
type StartHook func(ctx context.Context) error

// listenOptions captures the arguments of the last successful bind, so that
// Refresh can rebind with the same resolved port and ready callback.
type listenOptions struct {
	port    int
	onReady func()
}

// Server wires a route registry onto an http.Server and manages its
// lifecycle. The registry is composed during the setup phase; the transport
// handler is materialized from it on every bind, so a Refresh picks up
// groups and handlers registered since the previous bind.
type Server struct {
	logger   *slog.Logger
	registry *route.Registry

	mu         sync.Mutex
	started    bool
	httpServer *http.Server
	addr       net.Addr
	lastListen *listenOptions
	hooks      []StartHook

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	mws             []middleware.Middleware
}

// New returns a new Server. Unless overridden via options, requests pass
// through the ambient middleware chain: shared state, request ID, then
// request logging.
func New(appCtx *actx.Context, opts ...Option) *Server {
	logger := appCtx.Logger.With("component", "web-server")
	s := &Server{
		logger:          logger,
		registry:        route.NewRegistry(),
		readTimeout:     30 * time.Second,
		writeTimeout:    10 * time.Minute,
		shutdownTimeout: 5 * time.Second,
		mws: []middleware.Middleware{
			middleware.SharedState(),
			middleware.RequestID(),
			middleware.Logger(logger),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Route returns the group registered under (mountPath, baseURL), creating it
// if needed. Repeated calls with the same pair return the same group.
func (s *Server) Route(mountPath, baseURL string) *route.Group {
	return s.registry.Route(mountPath, baseURL)
}

// GetRoute returns the group registered under (mountPath, baseURL) without
// creating one.
func (s *Server) GetRoute(mountPath, baseURL string) (*route.Group, bool) {
	return s.registry.Get(mountPath, baseURL)
}

// Groups returns the registered groups in registration order.
func (s *Server) Groups() []*route.Group {
	return s.registry.Groups()
}

// MountURL resolves the URL a group will be mounted at.
func (s *Server) MountURL(g *route.Group) string {
	return s.registry.MountURL(g)
}

// SetBaseURL sets the default base URL for groups that don't carry their
// own. It only takes effect before the server has started; afterwards the
// call is logged and ignored, since already-mounted groups won't move.
func (s *Server) SetBaseURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.logger.Warn("ignoring base URL change on a started server", "base_url", u)
		return
	}
	s.registry.SetDefaultBaseURL(u)
}

// BaseURL returns the default base URL.
func (s *Server) BaseURL() string {
	return s.registry.DefaultBaseURL()
}

// OnStart replaces the set of startup hooks run by ListenAsync before the
// listener is bound.
func (s *Server) OnStart(hooks ...StartHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = hooks
}

// Started reports whether the server has ever successfully bound a listener.
// It remains true after Close, which marks the server as spent rather than
// restartable.
func (s *Server) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Addr returns the listener address of the last successful bind, or nil if
// the server never bound one. With port 0 this is the address the system
// actually assigned.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Listen binds the listener on the given port and starts serving in the
// background. Port 0 binds a system-assigned port. Calling Listen on a
// started server is a no-op. The ready callback runs with no internal locks
// held, so it is free to call back into the server, e.g. to read Addr.
func (s *Server) Listen(port int, onReady func()) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Debug("ignoring listen on a started server", "port", port)
		return nil
	}
	err := s.listen(port, onReady)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if onReady != nil {
		onReady()
	}
	return nil
}

// ListenAsync runs the registered startup hooks in parallel and, if they all
// succeed, binds the listener like Listen. Any hook error aborts the start
// before the listener is bound. Hooks run unlocked, like the ready callback.
func (s *Server) ListenAsync(ctx context.Context, port int, onReady func()) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		s.logger.Debug("ignoring listen on a started server", "port", port)
		return nil
	}
	hooks := slices.Clone(s.hooks)
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, hook := range hooks {
		g.Go(func() error { return hook(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("startup hook failed: %w", err)
	}

	return s.Listen(port, onReady)
}

// Refresh rebinds the server: it shuts the listener down and binds a new
// one with the options of the last bind, rematerializing the transport
// handler so groups registered since then are picked up. Refresh on a
// server that never started is a no-op.
func (s *Server) Refresh() error {
	s.mu.Lock()
	if !s.started || s.lastListen == nil {
		s.mu.Unlock()
		s.logger.Debug("ignoring refresh on a server that never started")
		return nil
	}

	if err := s.shutdown(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed shutting down listener: %w", err)
	}
	s.logger.Info("refreshing listener", "port", s.lastListen.port)

	onReady := s.lastListen.onReady
	err := s.listen(s.lastListen.port, onReady)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if onReady != nil {
		onReady()
	}
	return nil
}

// Close gracefully shuts the server down, waiting up to the shutdown
// timeout for in-flight requests. The server stays marked as started, so a
// later Listen is still a no-op; Refresh is the only way to bind again.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.httpServer == nil {
		return nil
	}

	if err := s.shutdown(); err != nil {
		return fmt.Errorf("failed shutting down listener: %w", err)
	}
	s.logger.Info("stopped listener")

	return nil
}

// LoadRoutes discovers units from the source and registers each one on a
// route group. By default a fresh root group is used; see the Load options.
func (s *Server) LoadRoutes(src plugin.Source, opts ...LoadOption) error {
	var lo loadOptions
	for _, opt := range opts {
		opt(&lo)
	}

	group := lo.group
	if group == nil {
		group = s.registry.Route("", lo.baseURL)
	}
	if len(lo.handlers) > 0 {
		group.Use(lo.handlers...)
	}

	units, err := src.Discover()
	if err != nil {
		return fmt.Errorf("failed discovering route plugins: %w", err)
	}

	for _, unit := range units {
		if err := unit.Register(group); err != nil {
			return fmt.Errorf("failed registering route plugin %q: %w", unit.Name(), err)
		}
		s.logger.Debug("registered route plugin",
			"plugin", unit.Name(), "mount_url", s.registry.MountURL(group))
	}

	return nil
}

// listen binds the listener and starts serving. It must be called with
// s.mu held, and never invokes the ready callback itself: callers run it
// after releasing the lock, so the callback can call back into the server.
func (s *Server) listen(port int, onReady func()) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed binding listener: %w", err)
	}

	s.addr = ln.Addr()
	s.started = true
	// Store the resolved port, so that a Refresh after binding port 0
	// rebinds the same port instead of drawing a new one.
	s.lastListen = &listenOptions{
		port:    s.addr.(*net.TCPAddr).Port,
		onReady: onReady,
	}

	s.httpServer = &http.Server{
		Handler:           s.materialize(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}
	s.logger.Info("started listener", "address", s.addr.String())

	go func(srv *http.Server) {
		if serveErr := srv.Serve(ln); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("server terminated", "error", serveErr)
		}
	}(s.httpServer)

	return nil
}

// materialize builds a fresh transport handler from the registry: each
// group mounted at its resolved URL in registration order, the whole tree
// wrapped in the server's middleware chain.
func (s *Server) materialize() http.Handler {
	mux := chi.NewRouter()

	mounted := make(map[string]bool)
	for _, g := range s.registry.Groups() {
		u := s.registry.MountURL(g)
		if mounted[u] {
			s.logger.Warn("skipping group with duplicate mount URL", "mount_url", u)
			continue
		}
		mounted[u] = true
		mux.Mount(u, g.Handler())
	}

	return middleware.Chain(mux, s.mws...)
}

// shutdown gracefully stops the current http.Server. It must be called with
// s.mu held.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	//nolint:wrapcheck // Callers wrap.
	return s.httpServer.Shutdown(ctx)
}
