package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/forecastd/pkg/session"
)

func newTestStore(clock *fakeClock, opts ...session.Option) *session.Store {
	return session.New(append([]session.Option{
		session.WithClock(clock),
		session.WithCleanupInterval(0),
		session.WithMaxSessionAge(time.Hour),
		session.WithMaxAggregateMemory(0),
	}, opts...)...)
}

func TestNew_PanicsOnNonPositiveAge(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { session.New(session.WithMaxSessionAge(0)) })
	assert.NotPanics(t, func() { session.New() })
}

func TestStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock)

	id := store.Create(ctx, "")
	require.NotEmpty(t, id)

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID())
	assert.Equal(t, clock.Now(), sess.CreatedAt())
	assert.Equal(t, clock.Now().Add(time.Hour), sess.ExpiresAt())
	assert.Empty(t, sess.Keys())
	assert.Empty(t, sess.TableKeys())

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.NotErrorIs(t, err, session.ErrSessionExpired)
}

func TestStore_CreateWithID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())

	id := store.Create(ctx, "workspace-1")
	assert.Equal(t, "workspace-1", id)

	first, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, first.Set("k", "v"))

	assert.Equal(t, id, store.Create(ctx, id))
	second, err := store.Get(ctx, id)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.True(t, first.Destroyed(), "replaced session is destroyed")
	_, ok := second.Get("k")
	assert.False(t, ok, "replacement starts empty")
	assert.Equal(t, 1, store.Len())
}

func TestStore_CreateUniqueIDsConcurrently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())

	const n = 200
	ids := make([]string, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			ids[i] = store.Create(ctx, "")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]struct{}, n)
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, store.Len())
}

func TestStore_LazyExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock)

	id := store.Create(ctx, "")
	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, sess.Set("k", 1))

	clock.Advance(time.Hour)
	_, err = store.Get(ctx, id)
	require.NoError(t, err, "expiry is exclusive at the boundary")

	clock.Advance(time.Second)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.ErrorIs(t, err, session.ErrSessionExpired)
	assert.True(t, sess.Destroyed())
	assert.Equal(t, 0, store.Stats(ctx).Total)

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.NotErrorIs(t, err, session.ErrSessionExpired, "second lookup finds nothing at all")
}

func TestStore_Extend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock)
	id := store.Create(ctx, "")

	assert.False(t, store.Extend(ctx, "missing", time.Hour))
	assert.False(t, store.Extend(ctx, id, 0))

	clock.Advance(50 * time.Minute)
	assert.True(t, store.Extend(ctx, id, time.Hour))

	clock.Advance(50 * time.Minute)
	_, err := store.Get(ctx, id)
	assert.NoError(t, err, "extended past original expiry")

	clock.Advance(2 * time.Hour)
	assert.False(t, store.Extend(ctx, id, time.Hour))
	assert.Equal(t, 0, store.Len(), "failed extend on expired session destroys it")
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())
	id := store.Create(ctx, "")

	assert.True(t, store.Remove(ctx, id))
	assert.False(t, store.Remove(ctx, id))
	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestStore_CleanupExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock)

	for range 3 {
		store.Create(ctx, "")
	}
	clock.Advance(30 * time.Minute)
	fresh := store.Create(ctx, "")
	clock.Advance(31 * time.Minute)

	assert.Equal(t, 3, store.CleanupExpired(ctx))
	assert.Equal(t, 0, store.CleanupExpired(ctx))
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, fresh)
	assert.NoError(t, err)
}

func TestStore_CleanupAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())

	var sessions []*session.Session
	for range 5 {
		sess, err := store.Get(ctx, store.Create(ctx, ""))
		require.NoError(t, err)
		sessions = append(sessions, sess)
	}

	assert.Equal(t, 5, store.CleanupAll(ctx))
	assert.Equal(t, 0, store.Stats(ctx).Total)
	for _, sess := range sessions {
		assert.True(t, sess.Destroyed())
	}
	assert.Equal(t, 0, store.CleanupAll(ctx))
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock, session.WithMaxAggregateMemory(1))

	empty := store.Stats(ctx)
	assert.Equal(t, session.Stats{MemoryBudget: 1}, empty)

	oldID := store.Create(ctx, "")
	clock.Advance(40 * time.Minute)
	store.Create(ctx, "")
	clock.Advance(30 * time.Minute)

	old, err := store.Get(ctx, oldID)
	require.Error(t, err, "old session expired")
	assert.Nil(t, old)

	newest := store.Create(ctx, "")
	sess, err := store.Get(ctx, newest)
	require.NoError(t, err)
	lastAccessed := sess.LastAccessed()

	clock.Advance(10 * time.Minute)
	st := store.Stats(ctx)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 2, st.Active)
	assert.Equal(t, 0, st.Expired)
	assert.Equal(t, 40*time.Minute, st.OldestAge)
	assert.Equal(t, 10*time.Minute, st.NewestAge)
	assert.Positive(t, st.MemoryBytes)
	assert.True(t, st.MemoryPressure)

	assert.Equal(t, lastAccessed, sess.LastAccessed(), "stats never count as access")

	clock.Advance(time.Hour)
	st = store.Stats(ctx)
	assert.Equal(t, 2, st.Total, "stats never destroy")
	assert.Equal(t, 2, st.Expired)
}

func TestStore_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.New(
		session.WithCleanupInterval(time.Hour),
		session.WithTickerFunc(func(time.Duration) session.Ticker { return newManualTicker() }),
	)
	store.Create(ctx, "")
	require.True(t, store.Sweeper().Running())

	require.NoError(t, store.Close())
	assert.False(t, store.Sweeper().Running())
	assert.Equal(t, 0, store.Len())
}

func TestStore_CreateAfterCloseKeepsSweeperStopped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.New(
		session.WithCleanupInterval(time.Hour),
		session.WithTickerFunc(func(time.Duration) session.Ticker { return newManualTicker() }),
	)
	store.Create(ctx, "")
	require.NoError(t, store.Close())

	id := store.Create(ctx, "")
	assert.False(t, store.Sweeper().Running(), "closed store must not restart the sweeper")
	_, err := store.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.False(t, store.Sweeper().Running())
	assert.Equal(t, 0, store.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock()
	store := newTestStore(clock, session.WithMaxAggregateMemory(4096))

	var wg sync.WaitGroup
	for w := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				id := store.Create(ctx, fmt.Sprintf("w%d-%d", w, i%5))
				sess, err := store.Get(ctx, id)
				if err != nil {
					continue
				}
				_ = sess.Set("n", i)
				_ = sess.StoreTable("t", session.NewTable([]string{"v"}, [][]any{{float64(i)}}))
				_, _ = sess.GetTable("t")
				if i%7 == 0 {
					store.Remove(ctx, id)
				}
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 20 {
			store.Sweep(ctx)
		}
	}()
	go func() {
		defer wg.Done()
		for range 20 {
			_ = store.Stats(ctx)
			clock.Advance(time.Minute)
		}
	}()
	wg.Wait()

	st := store.Stats(ctx)
	assert.Equal(t, store.Len(), st.Total)
	assert.LessOrEqual(t, st.Total, 16*5)
}
