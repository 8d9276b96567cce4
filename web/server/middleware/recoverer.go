package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"go.hackfix.me/gantry/web/server/types"
)

// Recoverer recovers from panics raised further down the chain, including
// errors the handler adapter re-raises from capability-typed handlers. A
// *types.Error is written back with its own status code; anything else
// results in a plain 500. The adapter itself never recovers errors, so a
// chain without this middleware surfaces handler failures to the transport.
func Recoverer(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.Any("panic", rvr),
					slog.String("url", r.URL.String()),
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("stack", string(debug.Stack())),
				)

				var terr *types.Error
				if err, ok := rvr.(error); ok && errors.As(err, &terr) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(terr.StatusCode)
					_ = json.NewEncoder(w).Encode(terr)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
