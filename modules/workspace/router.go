package workspace

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/forecastd/handler"
	"github.com/dmitrymomot/forecastd/pkg/binder"
	"github.com/dmitrymomot/forecastd/pkg/httpserver"
	"github.com/dmitrymomot/forecastd/pkg/logger"
	"github.com/dmitrymomot/forecastd/pkg/requestid"
	"github.com/dmitrymomot/forecastd/pkg/session"
)

// Store is the subset of *session.Store the HTTP surface needs.
type Store interface {
	Create(ctx context.Context, id string) string
	Get(ctx context.Context, id string) (*session.Session, error)
	Extend(ctx context.Context, id string, d time.Duration) bool
	Remove(ctx context.Context, id string) bool
	Stats(ctx context.Context) session.Stats
}

// RouterOptions configures the workspace router.
type RouterOptions struct {
	Store  Store
	Logger *slog.Logger

	// ReadyChecks back GET /readyz. With none, /readyz behaves like /healthz.
	ReadyChecks []httpserver.Check
}

// Router exposes session workspaces over JSON.
//
// Example:
//
//	r := workspace.Router(workspace.RouterOptions{Store: store, Logger: log})
//	srv.Run(ctx, r)
func Router(opts RouterOptions) chi.Router {
	if opts.Store == nil {
		panic("workspace: store is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	h := &handlers{store: opts.Store}
	onError := handler.NewErrorHandler(log, sessionErrors)
	path := binder.Path(chi.URLParam)
	valueBody := binder.JSON(binder.WithMaxBodySize(maxValueBody))
	tableBody := binder.JSON(binder.WithMaxBodySize(maxTableBody))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, opts.ReadyChecks...))
	r.Get("/stats", wrap(h.stats, onError))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", wrap(h.createSession, onError,
			binder.JSON(binder.WithMaxBodySize(maxValueBody), binder.WithOptionalBody()),
		))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", wrap(h.getSession, onError, path))
			r.Delete("/", wrap(h.removeSession, onError, path))
			r.Post("/extend", wrap(h.extendSession, onError, path, valueBody))

			r.Put("/data/{key}", wrap(h.putData, onError, path, valueBody))
			r.Get("/data/{key}", wrap(h.getData, onError, path))
			r.Delete("/data/{key}", wrap(h.removeEntry, onError, path))

			r.Put("/tables/{key}", wrap(h.putTable, onError, path, tableBody))
			r.Get("/tables/{key}", wrap(h.getTable, onError, path))
			r.Delete("/tables/{key}", wrap(h.removeEntry, onError, path))
		})
	})

	return r
}

func wrap[R any](
	fn handler.HandlerFunc[handler.Context, R],
	onError handler.ErrorHandler[handler.Context],
	binders ...handler.Bind,
) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](onError),
	)
}

// accessLog writes one record per request after the response is sent.
func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.Log(r.Context(), level, "http request",
				logger.Component("workspace"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
