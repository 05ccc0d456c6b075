package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/forecastd/pkg/logger"
)

// Check reports whether a dependency is ready.
type Check func(ctx context.Context) error

// HealthCheckHandler serves liveness and readiness probes.
//
//   - Liveness: with no checks it always returns 200 "ALIVE".
//   - Readiness: every check runs against the request context; 200 "READY"
//     when all pass, 503 "NOT_READY" on the first failure.
func HealthCheckHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Component("httpserver"),
					logger.Error(err),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
