package httpserver_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forecastd/pkg/httpserver"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "unable to get free port")
	addr := l.Addr().String()
	require.NoError(t, l.Close(), "close listener")
	return addr
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRunAndCancel(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	srv := httpserver.New(httpserver.WithAddr(addr), httpserver.WithShutdownTimeout(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))
	}()

	var resp *http.Response
	var err error
	for range 50 {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "http get after retries")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()
	waitDone(t, done)
}

func TestManualShutdownRunsHooks(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	started := make(chan struct{})
	var stopped atomic.Int32

	srv := httpserver.New(
		httpserver.WithAddr(addr),
		httpserver.WithShutdownTimeout(50*time.Millisecond),
		httpserver.WithStartHook(func(context.Context) { close(started) }),
		httpserver.WithStopHook(func(context.Context) { stopped.Add(1) }),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()
	<-started

	require.NoError(t, srv.Shutdown(context.Background()), "first shutdown")
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown")
	waitDone(t, done)
	assert.Equal(t, int32(1), stopped.Load(), "stop hook runs once")
}

func TestStartError(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	srv := httpserver.New(httpserver.WithAddr(l.Addr().String()))
	err = srv.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpserver.ErrStart))
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	started := make(chan struct{})
	srv := httpserver.New(
		httpserver.WithAddr(addr),
		httpserver.WithStartHook(func(context.Context) { close(started) }),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()
	<-started

	err := srv.Run(context.Background(), nil)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	srv := httpserver.New()
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"write", func() { httpserver.WithWriteTimeout(0) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(0) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}

	assert.NotPanics(t, func() { httpserver.WithLogger(nil) })
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	started := make(chan struct{})
	srv := httpserver.NewFromConfig(httpserver.Config{Addr: addr, ShutdownTimeout: 50 * time.Millisecond},
		httpserver.WithStartHook(func(context.Context) { close(started) }),
	)
	done := make(chan error, 1)
	go func() { done <- srv.Run(context.Background(), nil) }()

	select {
	case <-started:
	case <-time.After(time.Second):
		require.Fail(t, "server did not start")
	}

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err, "server listens on configured addr")
	_ = conn.Close()

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		httpserver.HealthCheckHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ALIVE", rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		ok := func(context.Context) error { return nil }
		httpserver.HealthCheckHandler(nil, ok, ok)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "READY", rec.Body.String())
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		var calls atomic.Int32
		fail := func(context.Context) error { calls.Add(1); return errors.New("down") }
		httpserver.HealthCheckHandler(nil, fail, fail)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "NOT_READY", rec.Body.String())
		assert.Equal(t, int32(1), calls.Load(), "stops at first failure")
	})
}
