package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"

	"go.hackfix.me/gantry/web/state"
)

// Logger logs request details and response metrics. If a request ID was
// stored in the shared state bag, it is included in the log line.
func Logger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			args := []any{
				"response_code", m.Code,
				"duration", m.Duration,
				"bytes_sent", m.Written,
				"remote_addr", r.RemoteAddr,
			}
			if bag, ok := state.From(r.Context()); ok {
				if id, idOK := bag.Get(RequestIDKey); idOK {
					args = append(args, "request_id", id)
				}
			}
			logger.Info(fmt.Sprintf("%s %s", r.Method, r.URL), args...)
		})
	}
}
