package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/forecastd/modules/workspace"
	"github.com/dmitrymomot/forecastd/pkg/config"
	"github.com/dmitrymomot/forecastd/pkg/httpserver"
	"github.com/dmitrymomot/forecastd/pkg/logger"
	"github.com/dmitrymomot/forecastd/pkg/requestid"
	"github.com/dmitrymomot/forecastd/pkg/session"
)

const statsInterval = time.Minute

func main() {
	var (
		logCfg     logger.Config
		httpCfg    httpserver.Config
		sessionCfg session.Config
	)
	config.MustLoad(&logCfg)
	config.MustLoad(&httpCfg)
	config.MustLoad(&sessionCfg)

	log := logger.NewFromConfig(logCfg,
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(log, httpCfg, sessionCfg); err != nil {
		log.Error("forecastd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger, httpCfg httpserver.Config, sessionCfg session.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewFromConfig(sessionCfg, session.WithLogger(log))
	if err := store.Sweeper().Start(ctx); err != nil {
		return err
	}

	router := workspace.Router(workspace.RouterOptions{
		Store:  store,
		Logger: log,
		ReadyChecks: []httpserver.Check{
			func(context.Context) error {
				if sessionCfg.CleanupInterval > 0 && !store.Sweeper().Running() {
					return errors.New("session sweeper is not running")
				}
				return nil
			},
		},
	})

	srv := httpserver.NewFromConfig(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(ctx context.Context) {
			n := store.Len()
			if err := store.Close(); err != nil {
				log.ErrorContext(ctx, "failed to stop session sweeper", logger.Error(err))
			}
			log.InfoContext(ctx, "session store closed", logger.Count(n))
		}),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, router)
	})
	g.Go(func() error {
		reportStats(ctx, log, store)
		return nil
	})
	return g.Wait()
}

// reportStats logs store occupancy until ctx is done.
func reportStats(ctx context.Context, log *slog.Logger, store *session.Store) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := store.Stats(ctx)
			level := slog.LevelDebug
			if st.MemoryPressure {
				level = slog.LevelWarn
			}
			log.Log(ctx, level, "session store stats",
				logger.Component("session.store"),
				slog.Int("active", st.Active),
				slog.Int("expired", st.Expired),
				logger.Bytes(st.MemoryBytes),
				slog.Int64("memory_budget", st.MemoryBudget),
			)
		}
	}
}
