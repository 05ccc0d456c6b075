package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/dmitrymomot/forecastd/pkg/logger"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// Store is the authoritative, process-local map of live sessions.
// Nothing is persisted: a restart discards every session.
type Store struct {
	config     Config
	clock      Clock
	logger     *slog.Logger
	newTicker  TickerFunc
	sweepHooks []func(SweepResult)

	shards     [shardCount]*shard
	accountant *Accountant
	sweeper    *Sweeper
	sweepMu    sync.Mutex
	closed     atomic.Bool
}

// New creates a store with the given options. The sweeper is created stopped;
// it starts on the first Create or on an explicit Sweeper().Start.
func New(opts ...Option) *Store {
	s := &Store{
		config:    DefaultConfig(),
		clock:     systemClock{},
		logger:    slog.New(slog.DiscardHandler),
		newTicker: newTimeTicker,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.config.MaxSessionAge <= 0 {
		// Fail fast: sessions with a non-positive TTL would expire on creation
		panic("session: max session age must be positive")
	}

	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	s.accountant = NewAccountant(s.logger)
	s.sweeper = newSweeper(s)

	return s
}

// Config returns the configuration the store was built with.
func (s *Store) Config() Config {
	return s.config
}

// Sweeper returns the background sweeper bound to this store.
func (s *Store) Sweeper() *Sweeper {
	return s.sweeper
}

// Create registers a new session and returns its id. An empty id gets a fresh
// random one. A supplied id that is already live replaces the prior session,
// which is destroyed first.
func (s *Store) Create(ctx context.Context, id string) string {
	generate := id == ""

	for {
		if generate {
			id = uuid.NewString()
		}
		sh := s.shardFor(id)

		sh.mu.Lock()
		prev, exists := sh.sessions[id]
		if exists && generate {
			sh.mu.Unlock()
			continue
		}
		if exists {
			prev.wipe()
			delete(sh.sessions, id)
		}
		sh.sessions[id] = newSession(id, s.config.MaxSessionAge, s.clock, s.config.SecureWipe)
		sh.mu.Unlock()

		if exists {
			s.logger.WarnContext(ctx, "session id collision, prior session destroyed",
				logger.Component("session.store"),
				logger.SessionID(id),
			)
		}
		break
	}

	if s.closed.Load() {
		return id
	}
	if err := s.sweeper.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "failed to start session sweeper",
			logger.Component("session.store"),
			logger.Error(err),
		)
	}

	return id
}

// Get returns the live session with the given id. An expired session is
// destroyed on the spot and reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sh := s.shardFor(id)

	sh.mu.RLock()
	sess, ok := sh.sessions[id]
	if !ok {
		sh.mu.RUnlock()
		return nil, ErrSessionNotFound
	}
	expired := sess.IsExpired()
	if !expired {
		sess.mu.Lock()
		sess.touchLocked()
		sess.mu.Unlock()
	}
	sh.mu.RUnlock()

	if expired {
		if s.destroy(id, sess) {
			s.logger.DebugContext(ctx, "expired session destroyed on access",
				logger.Component("session.store"),
				logger.SessionID(id),
			)
		}
		return nil, errors.Join(ErrSessionNotFound, ErrSessionExpired)
	}

	return sess, nil
}

// Extend moves the expiry of a live session to now+d. It returns false when the
// session does not exist, has expired, or d is not positive.
func (s *Store) Extend(ctx context.Context, id string, d time.Duration) bool {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return false
	}
	return sess.Extend(d)
}

// Remove destroys the session unconditionally and reports whether it existed.
func (s *Store) Remove(ctx context.Context, id string) bool {
	if !s.destroy(id, nil) {
		return false
	}
	s.logger.DebugContext(ctx, "session removed",
		logger.Component("session.store"),
		logger.SessionID(id),
	)
	return true
}

// CleanupExpired destroys every expired session and returns how many were destroyed.
func (s *Store) CleanupExpired(ctx context.Context) int {
	count := 0
	for _, sess := range s.snapshot() {
		if sess.IsExpired() && s.destroy(sess.ID(), sess) {
			count++
		}
	}
	return count
}

// CleanupAll destroys every live session and returns how many were destroyed.
func (s *Store) CleanupAll(ctx context.Context) int {
	count := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			sess.wipe()
			delete(sh.sessions, id)
			count++
		}
		sh.mu.Unlock()
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "all sessions destroyed",
			logger.Component("session.store"),
			logger.Count(count),
		)
	}
	return count
}

// Len returns the number of sessions in the store, expired or not.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Stats is a read-only snapshot of the store.
type Stats struct {
	Total          int           `json:"total"`
	Active         int           `json:"active"`
	Expired        int           `json:"expired"`
	MemoryBytes    int64         `json:"memory_bytes"`
	MemoryBudget   int64         `json:"memory_budget"`
	MemoryPressure bool          `json:"memory_pressure"`
	OldestAge      time.Duration `json:"oldest_age"`
	NewestAge      time.Duration `json:"newest_age"`
}

// Stats returns aggregate statistics. It never counts as an access and never
// destroys anything.
func (s *Store) Stats(ctx context.Context) Stats {
	sessions := s.snapshot()
	now := s.clock.Now()

	st := Stats{
		Total:        len(sessions),
		MemoryBudget: s.config.MaxAggregateMemory,
	}
	for i, sess := range sessions {
		if sess.IsExpired() {
			st.Expired++
		} else {
			st.Active++
		}
		age := now.Sub(sess.CreatedAt())
		if i == 0 || age > st.OldestAge {
			st.OldestAge = age
		}
		if i == 0 || age < st.NewestAge {
			st.NewestAge = age
		}
	}

	st.MemoryBytes = s.accountant.Measure(ctx, sessions).Total
	st.MemoryPressure = st.MemoryBudget > 0 && st.MemoryBytes > st.MemoryBudget
	return st
}

// Close stops the sweeper and destroys every session. The sweeper is never
// restarted afterwards: sessions created on a closed store are only expired
// lazily on Get and destroyed by a later Close or CleanupAll.
func (s *Store) Close() error {
	ctx := context.Background()
	s.closed.Store(true)
	err := s.sweeper.Stop(ctx)
	s.CleanupAll(ctx)
	return err
}

// destroy wipes and unlinks the session under id. When expected is non-nil the
// session is only destroyed if it is still the one registered under id.
func (s *Store) destroy(id string, expected *Session) bool {
	sh := s.shardFor(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.sessions[id]
	if !ok || (expected != nil && cur != expected) {
		return false
	}
	cur.wipe()
	delete(sh.sessions, id)
	return true
}

func (s *Store) snapshot() []*Session {
	out := make([]*Session, 0, s.Len())
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sess := range sh.sessions {
			out = append(out, sess)
		}
		sh.mu.RUnlock()
	}
	return out
}

func (s *Store) shardFor(id string) *shard {
	return s.shards[xxhash.Sum64String(id)%shardCount]
}
