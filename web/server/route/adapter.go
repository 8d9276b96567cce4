package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"go.hackfix.me/gantry/web/casing"
	"go.hackfix.me/gantry/web/server/middleware"
	"go.hackfix.me/gantry/web/server/types"
)

const maxBodyReadSize = 1024 * 1024 // 1MiB

// Next continues execution of the downstream chain. A handler that neither
// calls next nor returns a response is assumed to have completed the request
// through the raw writer.
type Next func()

// Handler is the capability-typed handler contract. Handle receives a
// request whose body, params and query have been converted to the
// application casing convention, plus the shared state bag via ctx (see the
// state package). Returning a non-nil response has the adapter write it;
// returning nil leaves the response to next or to the raw writer.
type Handler interface {
	Handle(ctx context.Context, req *types.Request, next Next) (*types.Response, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *types.Request, next Next) (*types.Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *types.Request, next Next) (*types.Response, error) {
	return f(ctx, req, next)
}

// Adapt wraps a capability-typed handler into the uniform transport
// middleware signature. Around the handler invocation it converts the
// request payload to the application casing convention and the response body
// back to the wire convention. Handler errors are re-raised as panics so
// they reach the transport's own error path untouched; recovery is the
// business of an explicitly composed Recoverer middleware, never the
// adapter's.
func Adapt(h Handler) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := buildRequest(w, r)
			if err != nil {
				panic(err)
			}

			nextFn := func() { next.ServeHTTP(w, r) }
			resp, err := h.Handle(r.Context(), req, nextFn)
			if err != nil {
				panic(err)
			}
			if resp == nil {
				return
			}
			writeResponse(w, r, resp)
		})
	}
}

// buildRequest decodes the request payload into the internal casing
// convention. The raw body is restored afterwards so that downstream
// handlers can read it again.
func buildRequest(w http.ResponseWriter, r *http.Request) (*types.Request, error) {
	var body any
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyReadSize))
		if err != nil {
			return nil, types.NewError(http.StatusBadRequest,
				fmt.Sprintf("failed reading request body: %v", err))
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		if len(raw) > 0 {
			if err = json.Unmarshal(raw, &body); err != nil {
				return nil, types.NewError(http.StatusBadRequest,
					"failed decoding request body as JSON")
			}
			body = casing.ToInternal(body)
		}
	}

	params := make(map[string]any)
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}

	query := make(map[string]any)
	for key, vals := range r.URL.Query() {
		if len(vals) == 1 {
			query[key] = vals[0]
		} else {
			query[key] = vals
		}
	}

	return &types.Request{
		HTTP:   r,
		Writer: w,
		Body:   body,
		Params: casing.ToInternal(params).(map[string]any),
		Query:  casing.ToInternal(query).(map[string]any),
	}, nil
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp *types.Response) {
	for key, vals := range resp.Header {
		for _, v := range vals {
			w.Header().Add(key, v)
		}
	}
	render.Status(r, resp.StatusCode)
	render.JSON(w, r, casing.ToExternal(resp.Body))
}
