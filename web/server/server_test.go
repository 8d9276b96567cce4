package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/gantry/app/context"
	"go.hackfix.me/gantry/web/server/middleware"
	"go.hackfix.me/gantry/web/server/plugin"
	"go.hackfix.me/gantry/web/server/route"
	"go.hackfix.me/gantry/web/server/types"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	appCtx := &actx.Context{
		Ctx:    context.Background(),
		Logger: slog.New(slog.DiscardHandler),
	}
	srv := New(appCtx, opts...)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func pingHandler() route.Handler {
	return route.HandlerFunc(func(_ context.Context, _ *types.Request, _ route.Next) (*types.Response, error) {
		return types.NewResponse(http.StatusOK, map[string]any{"pingResult": "pong"}), nil
	})
}

func get(t *testing.T, srv *Server, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://%s%s", srv.Addr(), path))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, body
}

func TestServerListen(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.Route("/api", "").UseAt("/ping", pingHandler())

	ready := false
	require.NoError(t, srv.Listen(0, func() { ready = true }))
	assert.True(t, ready)
	assert.True(t, srv.Started())
	require.NotNil(t, srv.Addr())

	resp, body := get(t, srv, "/api/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	// The ambient chain assigns a request ID to every response.
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, map[string]any{"ping_result": "pong"}, payload)
}

func TestServerListenCallbackReentrancy(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	// Reading the resolved address from the ready callback is its canonical
	// use; it must not deadlock against the server's internal lock.
	var addrInReady string
	require.NoError(t, srv.Listen(0, func() {
		require.True(t, srv.Started())
		addrInReady = srv.Addr().String()
	}))
	assert.Equal(t, srv.Addr().String(), addrInReady)

	require.NoError(t, srv.Refresh())
	assert.Equal(t, srv.Addr().String(), addrInReady)
}

func TestServerListenAsyncHookReentrancy(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.Route("/api", "").UseAt("/ping", pingHandler())
	srv.OnStart(func(ctx context.Context) error {
		// Hooks run before the bind, unlocked.
		if srv.Started() {
			return errors.New("started before hooks completed")
		}
		srv.Route("/hooked", "").UseAt("/ping", pingHandler())
		return nil
	})

	var addrInReady string
	require.NoError(t, srv.ListenAsync(context.Background(), 0, func() {
		addrInReady = srv.Addr().String()
	}))
	assert.Equal(t, srv.Addr().String(), addrInReady)

	// Routes registered by a hook are part of the initial materialization.
	resp, _ := get(t, srv, "/hooked/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerListenTwice(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	require.NoError(t, srv.Listen(0, nil))
	addr := srv.Addr()

	// A second Listen on a started server is a silent no-op.
	require.NoError(t, srv.Listen(0, nil))
	assert.Equal(t, addr, srv.Addr())
}

func TestServerRefresh(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.Route("/api", "").UseAt("/ping", pingHandler())

	var readyCalls atomic.Int32
	require.NoError(t, srv.Listen(0, func() { readyCalls.Add(1) }))
	addr := srv.Addr().String()

	// Refresh picks up groups registered after the initial bind.
	srv.Route("/late", "").UseAt("/ping", pingHandler())
	require.NoError(t, srv.Refresh())

	// Same resolved port, ready callback re-invoked.
	assert.Equal(t, addr, srv.Addr().String())
	assert.Equal(t, int32(2), readyCalls.Load())

	resp, _ := get(t, srv, "/late/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerRefreshNeverStarted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	require.NoError(t, srv.Refresh())
	assert.False(t, srv.Started())
	assert.Nil(t, srv.Addr())
}

func TestServerClose(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	require.NoError(t, srv.Listen(0, nil))
	require.NoError(t, srv.Close())

	// Close marks the server as spent, not restartable: it stays "started",
	// and a later Listen is still a no-op.
	assert.True(t, srv.Started())
	require.NoError(t, srv.Listen(0, nil))

	_, err := http.Get(fmt.Sprintf("http://%s/", srv.Addr()))
	assert.Error(t, err)

	// Refresh is the one way to bind again after Close.
	srv.Route("/api", "").UseAt("/ping", pingHandler())
	require.NoError(t, srv.Refresh())
	resp, _ := get(t, srv, "/api/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerCloseNeverStarted(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	require.NoError(t, srv.Close())
	assert.False(t, srv.Started())
}

func TestServerSetBaseURL(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.SetBaseURL("/v1")
	assert.Equal(t, "/v1", srv.BaseURL())

	require.NoError(t, srv.Listen(0, nil))

	// Changing the base URL after start is ignored.
	srv.SetBaseURL("/v2")
	assert.Equal(t, "/v1", srv.BaseURL())
}

func TestServerListenAsync(t *testing.T) {
	t.Parallel()

	var hookRuns atomic.Int32
	srv := newTestServer(t)
	srv.Route("/api", "").UseAt("/ping", pingHandler())
	srv.OnStart(
		func(ctx context.Context) error { hookRuns.Add(1); return nil },
		func(ctx context.Context) error { hookRuns.Add(1); return nil },
	)

	require.NoError(t, srv.ListenAsync(context.Background(), 0, nil))
	assert.Equal(t, int32(2), hookRuns.Load())
	assert.True(t, srv.Started())

	resp, _ := get(t, srv, "/api/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerListenAsyncHookFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	srv.OnStart(
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errors.New("migration failed") },
	)

	err := srv.ListenAsync(context.Background(), 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration failed")

	// A failed hook aborts the start before the listener is bound.
	assert.False(t, srv.Started())
	assert.Nil(t, srv.Addr())
}

func TestServerOnStartReplaces(t *testing.T) {
	t.Parallel()

	var first, second atomic.Int32
	srv := newTestServer(t)
	srv.OnStart(func(ctx context.Context) error { first.Add(1); return nil })
	srv.OnStart(func(ctx context.Context) error { second.Add(1); return nil })

	require.NoError(t, srv.ListenAsync(context.Background(), 0, nil))
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestServerLoadRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	src := plugin.Static(
		plugin.Func("ping", func(g *route.Group) error {
			g.UseAt("/ping", pingHandler())
			return nil
		}),
	)
	require.NoError(t, srv.LoadRoutes(src, LoadWithBaseURL("/plugins")))

	require.NoError(t, srv.Listen(0, nil))
	resp, _ := get(t, srv, "/plugins/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerLoadRoutesRegisterError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	src := plugin.Static(
		plugin.Func("broken", func(g *route.Group) error {
			return errors.New("bad registration")
		}),
	)

	err := srv.LoadRoutes(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestServerWithMiddleware(t *testing.T) {
	t.Parallel()

	marker := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Marker", "on")
			next.ServeHTTP(w, r)
		})
	}

	srv := newTestServer(t, WithMiddleware(marker))
	srv.Route("/api", "").UseAt("/ping", pingHandler())
	require.NoError(t, srv.Listen(0, nil))

	resp, _ := get(t, srv, "/api/ping")
	assert.Equal(t, "on", resp.Header.Get("X-Marker"))
}

func TestServerShutdownWaitsForInflight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	slow := route.HandlerFunc(func(_ context.Context, _ *types.Request, _ route.Next) (*types.Response, error) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		return types.NewResponse(http.StatusOK, nil), nil
	})

	srv := newTestServer(t, WithTimeouts(0, 0, 2*time.Second))
	srv.Route("/slow", "").UseAt("/", slow)
	require.NoError(t, srv.Listen(0, nil))

	done := make(chan int, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/slow", srv.Addr()))
		if err != nil {
			done <- 0
			return
		}
		defer resp.Body.Close()
		done <- resp.StatusCode
	}()

	<-started
	require.NoError(t, srv.Close())
	assert.Equal(t, http.StatusOK, <-done)
}
