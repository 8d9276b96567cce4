package middleware

import (
	"net/http"

	"github.com/nrednav/cuid2"

	"go.hackfix.me/gantry/web/state"
)

const (
	// RequestIDHeader is the response header carrying the request ID.
	RequestIDHeader = "X-Request-Id"
	// RequestIDKey is the shared state key the request ID is stored under.
	RequestIDKey = "requestId"
)

// RequestID assigns a unique ID to each request, exposing it in the response
// headers and in the shared state bag. It must run after SharedState.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cuid2.Generate()
			if bag, ok := state.From(r.Context()); ok {
				bag.Set(RequestIDKey, id)
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}
