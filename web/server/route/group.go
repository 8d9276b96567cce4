// Package route implements named route groups with composable middleware
// chains, their owning registry, and the adapter that bridges
// capability-typed handlers onto the HTTP transport.
package route

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.hackfix.me/gantry/web/server/middleware"
)

// Group is a path-scoped collection of handlers bound to one mount path.
// Groups are created through a Registry and accumulate handlers through the
// Use methods; the chain is materialized onto the transport only when the
// server starts listening.
type Group struct {
	mountPath string
	baseURL   string

	chain     []middleware.Middleware
	mux       *chi.Mux
	subchains map[string]*subchain
}

func newGroup(mountPath, baseURL string) *Group {
	return &Group{
		mountPath: mountPath,
		baseURL:   baseURL,
		mux:       chi.NewRouter(),
		subchains: make(map[string]*subchain),
	}
}

// MountPath returns the group's mount path.
func (g *Group) MountPath() string {
	return g.mountPath
}

// BaseURL returns the group's own base URL. An empty value means the group
// inherits the registry's default base URL at materialization time.
func (g *Group) BaseURL() string {
	return g.baseURL
}

// Len returns the number of entries appended to the group's chain.
func (g *Group) Len() int {
	n := len(g.chain)
	for _, sc := range g.subchains {
		n += len(sc.mws)
	}
	return n
}

// Use appends capability-typed handlers to the group's chain, in order.
func (g *Group) Use(handlers ...Handler) *Group {
	for _, h := range handlers {
		g.chain = append(g.chain, Adapt(h))
	}
	return g
}

// UseRaw appends raw transport middlewares to the group's chain. No state
// threading or payload casing is applied around them; they access the shared
// state bag through the request context if they need it.
func (g *Group) UseRaw(mws ...middleware.Middleware) *Group {
	g.chain = append(g.chain, mws...)
	return g
}

// UseAt scopes handlers to a sub-path below the group's mount path.
// Successive calls with the same path extend the same sub-chain.
func (g *Group) UseAt(path string, handlers ...Handler) *Group {
	sc, ok := g.subchains[path]
	if !ok {
		sc = &subchain{}
		g.subchains[path] = sc
		g.mux.Mount(path, sc)
	}
	for _, h := range handlers {
		sc.mws = append(sc.mws, Adapt(h))
	}
	return g
}

// Handler builds the group's transport handler: the chain in registration
// order, terminated by the group's sub-router.
func (g *Group) Handler() http.Handler {
	return middleware.Chain(g.mux, g.chain...)
}

// subchain is a mounted sub-path chain that stays extensible after
// mounting. The chain is composed per request so that handlers appended
// after the mount still take part.
type subchain struct {
	mws []middleware.Middleware
}

func (sc *subchain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	middleware.Chain(http.NotFoundHandler(), sc.mws...).ServeHTTP(w, r)
}
