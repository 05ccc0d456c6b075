package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/forecastd/pkg/logger"
)

// Hook runs around the server life-cycle.
type Hook func(ctx context.Context)

type config struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	startHooks      []Hook
	stopHooks       []Hook
}

func defaultConfig() *config {
	return &config{
		addr:            ":8080",
		shutdownTimeout: 5 * time.Second,
		logger:          slog.New(slog.DiscardHandler),
	}
}

// Server wraps http.Server with graceful shutdown, hooks and logging.
type Server struct {
	cfg *config

	mu      sync.Mutex
	srv     *http.Server
	stopped bool
}

// New returns a configured Server.
func New(opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{cfg: cfg}
}

// Run listens on the configured address and serves handler until ctx is
// cancelled or Shutdown is called. Signal handling is left to the caller
// (see signal.NotifyContext).
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		return errors.Join(ErrStart, ErrAlreadyRunning)
	}
	srv := &http.Server{
		Addr:         s.cfg.addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.readTimeout,
		WriteTimeout: s.cfg.writeTimeout,
		IdleTimeout:  s.cfg.idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.srv = srv
	s.mu.Unlock()

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.Join(ErrStart, err)
	}

	s.cfg.logger.InfoContext(ctx, "http server listening",
		logger.Component("httpserver"),
		slog.String("addr", ln.Addr().String()),
	)
	for _, h := range s.cfg.startHooks {
		h(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	var runErr error
	select {
	case <-ctx.Done():
		_ = s.Shutdown(context.WithoutCancel(ctx))
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Shutdown stops the server gracefully within the configured timeout and runs
// the stop hooks. Calls after the first, or before Run, are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	if srv == nil || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	for _, h := range s.cfg.stopHooks {
		h(ctx)
	}
	s.cfg.logger.InfoContext(ctx, "http server stopped",
		logger.Component("httpserver"),
		logger.Error(err),
	)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
