// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts, life-cycle hooks and a health-check handler.
//
// Run blocks until the supplied context is cancelled or Shutdown is called.
// Signal handling belongs to the caller:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(ctx context.Context) { _ = store.Close() }),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Stop hooks run after in-flight requests have drained, which makes them the
// place to release process-local state.
//
// Listen errors are wrapped with ErrStart and drain errors with ErrShutdown;
// use errors.Is to tell them apart.
package httpserver
