package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dmitrymomot/forecastd/pkg/logger"
	"github.com/dmitrymomot/forecastd/pkg/statemachine"
)

// Sweeper lifecycle states.
const (
	SweeperStopped = statemachine.StringState("stopped")
	SweeperRunning = statemachine.StringState("running")
)

const (
	sweeperStart = statemachine.StringEvent("start")
	sweeperStop  = statemachine.StringEvent("stop")
)

// SweepResult summarizes one sweep cycle.
type SweepResult struct {
	Expired      int
	Evicted      int
	MemoryBefore int64
	MemoryAfter  int64
	Errors       []error
	Duration     time.Duration
}

// Sweeper periodically destroys expired sessions and evicts least recently
// accessed sessions while the aggregate estimate exceeds the memory budget.
type Sweeper struct {
	store     *Store
	interval  time.Duration
	newTicker TickerFunc
	logger    *slog.Logger
	fsm       statemachine.StateMachine

	// Guarded by the state machine: only touched from transition actions.
	cancel context.CancelFunc
	done   chan struct{}
}

func newSweeper(store *Store) *Sweeper {
	sw := &Sweeper{
		store:     store,
		interval:  store.config.CleanupInterval,
		newTicker: store.newTicker,
		logger:    store.logger,
	}
	sw.fsm = statemachine.MustNew(SweeperStopped,
		statemachine.WithTransition(SweeperStopped, SweeperRunning, sweeperStart,
			statemachine.WithGuard(sw.enabled),
			statemachine.WithAction(sw.launch),
		),
		statemachine.WithTransition(SweeperRunning, SweeperStopped, sweeperStop,
			statemachine.WithAction(sw.halt),
		),
	)
	return sw
}

// State returns the current lifecycle state.
func (sw *Sweeper) State() statemachine.State {
	return sw.fsm.Current()
}

// Running reports whether the sweep loop is active.
func (sw *Sweeper) Running() bool {
	return sw.fsm.Current() == SweeperRunning
}

// Start launches the sweep loop. It is a no-op when already running or when
// the cleanup interval is zero.
func (sw *Sweeper) Start(ctx context.Context) error {
	if sw.Running() {
		return nil
	}
	err := sw.fsm.Fire(ctx, sweeperStart, nil)
	if statemachine.IsNoTransitionAvailableError(err) || statemachine.IsTransitionRejectedError(err) {
		return nil
	}
	return err
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
// Stopping a stopped sweeper is a no-op.
func (sw *Sweeper) Stop(ctx context.Context) error {
	err := sw.fsm.Fire(ctx, sweeperStop, nil)
	if statemachine.IsNoTransitionAvailableError(err) {
		return nil
	}
	return err
}

func (sw *Sweeper) enabled(context.Context, statemachine.State, statemachine.Event, any) bool {
	return sw.interval > 0
}

func (sw *Sweeper) launch(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, _ any) error {
	// The loop outlives the request that happened to start it.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ticker := sw.newTicker(sw.interval)
	done := make(chan struct{})

	sw.cancel, sw.done = cancel, done
	go sw.loop(loopCtx, ticker, done)

	sw.logger.InfoContext(ctx, "session sweeper started",
		logger.Component("session.sweeper"),
		logger.Duration(sw.interval),
	)
	return nil
}

func (sw *Sweeper) halt(ctx context.Context, _, _ statemachine.State, _ statemachine.Event, _ any) error {
	if sw.cancel != nil {
		sw.cancel()
		<-sw.done
	}
	sw.cancel, sw.done = nil, nil

	sw.logger.InfoContext(ctx, "session sweeper stopped",
		logger.Component("session.sweeper"),
	)
	return nil
}

func (sw *Sweeper) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			sw.store.Sweep(ctx)
		}
	}
}

// Sweep runs one sweep cycle synchronously: expired sessions are destroyed,
// then, if the aggregate estimate exceeds the budget, sessions are evicted
// oldest-access first until it no longer does. Panics are recovered and
// reported in the result.
func (s *Store) Sweep(ctx context.Context) (res SweepResult) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	var start time.Time
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("%w: %v", ErrSweepPanic, rec)
			res.Errors = append(res.Errors, err)
			s.logger.ErrorContext(ctx, "session sweep recovered from panic",
				logger.Component("session.sweeper"),
				logger.Error(err),
			)
		}
		if !start.IsZero() {
			res.Duration = s.clock.Now().Sub(start)
		}
		for _, hook := range s.sweepHooks {
			if err := s.runSweepHook(hook, res); err != nil {
				res.Errors = append(res.Errors, err)
				s.logger.ErrorContext(ctx, "session sweep hook panicked",
					logger.Component("session.sweeper"),
					logger.Error(err),
				)
			}
		}
		s.logSweep(ctx, res)
	}()
	start = s.clock.Now()

	res.Expired = s.CleanupExpired(ctx)

	report := s.accountant.Measure(ctx, s.snapshot())
	res.Errors = append(res.Errors, report.Errors...)
	res.MemoryBefore = report.Total
	res.MemoryAfter = report.Total

	budget := s.config.MaxAggregateMemory
	if budget <= 0 || res.MemoryAfter <= budget {
		return res
	}

	for _, victim := range s.evictionOrder() {
		if res.MemoryAfter <= budget {
			break
		}
		if s.destroy(victim.ID(), victim) {
			res.Evicted++
			s.logger.WarnContext(ctx, "session evicted under memory pressure",
				logger.Component("session.sweeper"),
				logger.Event("session.evicted"),
				logger.SessionID(victim.ID()),
				logger.Bytes(report.PerSession[victim.ID()]),
			)
		}
		res.MemoryAfter = s.accountant.Measure(ctx, s.snapshot()).Total
	}

	return res
}

// runSweepHook calls hook and converts a panic into an ErrSweepPanic error.
func (s *Store) runSweepHook(hook func(SweepResult), res SweepResult) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: sweep hook: %v", ErrSweepPanic, rec)
		}
	}()
	hook(res)
	return nil
}

// evictionOrder returns live sessions sorted by last access ascending, ties
// broken by id.
func (s *Store) evictionOrder() []*Session {
	type candidate struct {
		sess *Session
		last time.Time
	}

	sessions := s.snapshot()
	cands := make([]candidate, len(sessions))
	for i, sess := range sessions {
		cands[i] = candidate{sess: sess, last: sess.LastAccessed()}
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		if c := a.last.Compare(b.last); c != 0 {
			return c
		}
		return strings.Compare(a.sess.ID(), b.sess.ID())
	})

	out := make([]*Session, len(cands))
	for i, c := range cands {
		out[i] = c.sess
	}
	return out
}

func (s *Store) logSweep(ctx context.Context, res SweepResult) {
	attrs := []any{
		logger.Component("session.sweeper"),
		logger.Event("session.sweep"),
		slog.Int("expired", res.Expired),
		slog.Int("evicted", res.Evicted),
		logger.Group("memory",
			slog.Int64("before", res.MemoryBefore),
			slog.Int64("after", res.MemoryAfter),
		),
		logger.Duration(res.Duration),
	}
	if len(res.Errors) > 0 {
		attrs = append(attrs, logger.Errors(res.Errors...))
	}
	if res.Expired+res.Evicted > 0 || len(res.Errors) > 0 {
		s.logger.InfoContext(ctx, "session sweep completed", attrs...)
		return
	}
	s.logger.DebugContext(ctx, "session sweep completed", attrs...)
}
