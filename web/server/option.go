package server

import (
	"time"

	"go.hackfix.me/gantry/web/server/middleware"
	"go.hackfix.me/gantry/web/server/route"
)

// Option is a function that configures a Server.
type Option func(*Server)

// WithBaseURL sets the default base URL groups are mounted under.
func WithBaseURL(u string) Option {
	return func(s *Server) {
		s.registry.SetDefaultBaseURL(u)
	}
}

// WithTimeouts sets the read, write and graceful shutdown timeouts. A zero
// value keeps the default for that timeout.
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// WithMiddleware appends middlewares to the server-level chain, after the
// ambient ones. They wrap the entire route tree.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Server) {
		s.mws = append(s.mws, mws...)
	}
}

// LoadOption configures a LoadRoutes call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	group    *route.Group
	baseURL  string
	handlers []route.Handler
}

// LoadWithGroup registers the discovered units on an existing group instead
// of the default root group.
func LoadWithGroup(g *route.Group) LoadOption {
	return func(lo *loadOptions) {
		lo.group = g
	}
}

// LoadWithBaseURL sets the base URL of the group the units are registered
// on. Ignored when LoadWithGroup is also given.
func LoadWithBaseURL(u string) LoadOption {
	return func(lo *loadOptions) {
		lo.baseURL = u
	}
}

// LoadWithHandlers prepends handlers to the target group's chain before any
// unit registers its own.
func LoadWithHandlers(handlers ...route.Handler) LoadOption {
	return func(lo *loadOptions) {
		lo.handlers = append(lo.handlers, handlers...)
	}
}
