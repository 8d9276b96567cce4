package middleware

import (
	"net/http"

	"go.hackfix.me/gantry/web/state"
)

// SharedState attaches a fresh state bag to each inbound request. It must be
// the outermost middleware of the stack so that every other middleware and
// handler in the chain observes the same bag.
func SharedState() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := state.Attach(r.Context(), state.New())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
