package session_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forecastd/pkg/session"
)

func numericTable(rows int) *session.Table {
	data := make([][]any, rows)
	for i := range data {
		data[i] = []any{float64(i), float64(i) * 2}
	}
	return session.NewTable([]string{"x", "y"}, data)
}

func TestEstimateValue(t *testing.T) {
	t.Parallel()

	assert.Positive(t, session.EstimateValue(session.NewScalar(nil)))
	assert.Zero(t, session.EstimateValue(nil))

	short := session.EstimateValue(session.NewScalar("a"))
	long := session.EstimateValue(session.NewScalar(strings.Repeat("a", 1000)))
	assert.Equal(t, int64(999), long-short, "string estimate tracks length")

	nested := session.NewScalar(map[string]any{
		"params": []any{1.0, 2.0, "three"},
		"when":   time.Now(),
	})
	assert.Greater(t, session.EstimateValue(nested), session.EstimateValue(session.NewScalar(1.0)))

	type opaque struct{ a, b int }
	assert.Positive(t, session.EstimateValue(session.NewScalar(opaque{})))
}

func TestEstimateValue_TableScalesWithRows(t *testing.T) {
	t.Parallel()
	small := session.EstimateValue(numericTable(10))
	large := session.EstimateValue(numericTable(10_000))

	assert.Positive(t, small)
	assert.Greater(t, large, small*100)
}

func TestEstimateValue_TextSampled(t *testing.T) {
	t.Parallel()
	rows := make([][]any, 5000)
	for i := range rows {
		rows[i] = []any{strings.Repeat("x", 20)}
	}
	est := session.EstimateValue(session.NewTable([]string{"label"}, rows))

	perRow := est / int64(len(rows))
	assert.GreaterOrEqual(t, perRow, int64(20), "text cells counted by content")
}

func TestSession_MemoryEstimateGrows(t *testing.T) {
	t.Parallel()
	_, sess := newTestSession(t, newFakeClock())

	base := sess.MemoryEstimate()
	assert.Zero(t, base.DataEntries)
	assert.Zero(t, base.TableEntries)
	assert.Positive(t, base.Bytes)

	require.NoError(t, sess.StoreTable("t", numericTable(1000)))
	withTable := sess.MemoryEstimate()
	assert.Equal(t, 1, withTable.TableEntries)
	assert.Greater(t, withTable.Bytes, base.Bytes)

	require.True(t, sess.RemoveData("t"))
	assert.Equal(t, base.Bytes, sess.MemoryEstimate().Bytes)
}

func TestAccountant_Measure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())

	var sessions []*session.Session
	for range 3 {
		sess, err := store.Get(ctx, store.Create(ctx, ""))
		require.NoError(t, err)
		require.NoError(t, sess.StoreTable("t", numericTable(50)))
		sessions = append(sessions, sess)
	}

	report := session.NewAccountant(nil).Measure(ctx, append(sessions, nil))
	assert.Len(t, report.PerSession, 3)
	assert.Empty(t, report.Errors)

	var sum int64
	for _, sess := range sessions {
		n := report.PerSession[sess.ID()]
		assert.Equal(t, sess.MemoryEstimate().Bytes, n)
		sum += n
	}
	assert.Equal(t, sum, report.Total)
	assert.Equal(t, report.Total, store.Stats(ctx).MemoryBytes)
}

func TestSession_MemoryEstimateMonotonicUnderInsertion(t *testing.T) {
	t.Parallel()
	_, sess := newTestSession(t, newFakeClock())

	values := []any{nil, true, 3.14, "label", []byte{1, 2, 3}, []any{1.0, "x"}, map[string]any{"k": "v"}}
	prev := sess.MemoryEstimate().Bytes
	for i, v := range values {
		require.NoError(t, sess.Set(strings.Repeat("k", i+1), v))
		cur := sess.MemoryEstimate().Bytes
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	for i := range 3 {
		require.NoError(t, sess.StoreTable(strings.Repeat("t", i+1), numericTable(i*10)))
		cur := sess.MemoryEstimate().Bytes
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestAccountant_MeasureIsolatesFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(newFakeClock())

	var sessions []*session.Session
	for _, id := range []string{"a", "b", "c"} {
		sess, err := store.Get(ctx, store.Create(ctx, id))
		require.NoError(t, err)
		require.NoError(t, sess.StoreTable("t", numericTable(20)))
		sessions = append(sessions, sess)
	}

	tests := []struct {
		name     string
		estimate func(*session.Session) int64
	}{
		{
			name: "panic",
			estimate: func(s *session.Session) int64 {
				if s.ID() == "b" {
					panic("corrupt value")
				}
				return s.MemoryEstimate().Bytes
			},
		},
		{
			name: "negative",
			estimate: func(s *session.Session) int64 {
				if s.ID() == "b" {
					return -1
				}
				return s.MemoryEstimate().Bytes
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			acc := session.NewAccountant(nil)
			session.SetEstimator(acc, tt.estimate)

			report := acc.Measure(ctx, sessions)
			require.Contains(t, report.PerSession, "b")
			assert.Zero(t, report.PerSession["b"])
			assert.Equal(t, sessions[0].MemoryEstimate().Bytes, report.PerSession["a"])
			assert.Equal(t, sessions[2].MemoryEstimate().Bytes, report.PerSession["c"])
			assert.Equal(t, report.PerSession["a"]+report.PerSession["c"], report.Total)
			require.Len(t, report.Errors, 1)
			assert.ErrorIs(t, report.Errors[0], session.ErrEstimateFailed)
		})
	}
}

func TestEstimateValue_WideTable(t *testing.T) {
	t.Parallel()
	const cols = 40
	names := make([]string, cols)
	rows := make([][]any, 1000)
	for c := range names {
		names[c] = fmt.Sprintf("c%d", c)
	}
	for i := range rows {
		row := make([]any, cols)
		for c := range row {
			row[c] = "abcd"
		}
		rows[i] = row
	}
	tbl := session.NewTable(names, rows)

	// Every text cell is "abcd": header plus four bytes.
	perCell := int64(16 + 4)
	got := session.EstimateValue(tbl)
	assert.GreaterOrEqual(t, got, int64(len(rows))*cols*perCell)
	assert.Equal(t, got, session.EstimateValue(tbl), "estimate is deterministic")
}
