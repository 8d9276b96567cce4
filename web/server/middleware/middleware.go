package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler to provide additional
// functionality such as logging, state initialization, metrics, etc. It
// takes a handler and returns a new handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with mws so that execution flows through the middlewares
// from left to right before reaching h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
