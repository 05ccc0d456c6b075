package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/forecastd/pkg/logger"
)

// Size heuristics, in bytes. They approximate Go's in-memory layout and only
// need to rank sessions consistently.
const (
	sessionOverhead  = 256
	entryOverhead    = 48
	wordSize         = 8
	stringHeader     = 16
	sliceHeader      = 24
	mapOverhead      = 48
	ifaceSize        = 16
	timeSize         = 24
	opaqueValueSize  = 64
	textSampleRows   = 128
	maxEstimateDepth = 32
)

// MemoryEstimate is the approximate footprint of a single session.
type MemoryEstimate struct {
	DataEntries  int   `json:"data_entries"`
	TableEntries int   `json:"table_entries"`
	Bytes        int64 `json:"bytes"`
}

// EstimateValue returns the approximate number of bytes held by v.
// The result is never negative.
func EstimateValue(v Value) int64 {
	switch val := v.(type) {
	case Scalar:
		return estimateAny(val.V, 0)
	case *Table:
		return estimateTable(val)
	}
	return 0
}

// estimateTable uses rows × per-cell size by column type. Text columns are
// sampled rather than scanned.
func estimateTable(t *Table) int64 {
	if t == nil {
		return 0
	}
	size := int64(sliceHeader * 3)
	for _, c := range t.Columns {
		size += stringHeader + int64(len(c))
	}
	rows := int64(len(t.Rows))
	if rows == 0 {
		return size
	}
	cols := len(t.Columns)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	size += rows * (sliceHeader + int64(cols)*ifaceSize)
	sample := sampleRows(t.Rows)
	for col := 0; col < cols; col++ {
		size += rows * cellSize(t, sample, col)
	}
	return size
}

func cellSize(t *Table, sample [][]any, col int) int64 {
	var kind ColumnType
	if col < len(t.Types) && t.Types[col].Valid() {
		kind = t.Types[col]
	} else {
		kind = inferColumn(sample, col)
	}
	switch kind {
	case ColumnNumeric:
		return wordSize
	case ColumnDatetime:
		return timeSize
	}
	var total, n int64
	for _, row := range sample {
		if col < len(row) && row[col] != nil {
			total += estimateAny(row[col], 1)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / n
}

func sampleRows(rows [][]any) [][]any {
	if len(rows) <= textSampleRows {
		return rows
	}
	step := len(rows) / textSampleRows
	out := make([][]any, 0, textSampleRows)
	for i := 0; i < len(rows) && len(out) < textSampleRows; i += step {
		out = append(out, rows[i])
	}
	return out
}

func estimateAny(v any, depth int) int64 {
	if depth > maxEstimateDepth {
		return opaqueValueSize
	}
	switch val := v.(type) {
	case nil:
		return wordSize
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return wordSize
	case string:
		return stringHeader + int64(len(val))
	case json.Number:
		return stringHeader + int64(len(val))
	case []byte:
		return sliceHeader + int64(len(val))
	case time.Time:
		return timeSize
	case []any:
		size := int64(sliceHeader)
		for _, item := range val {
			size += ifaceSize + estimateAny(item, depth+1)
		}
		return size
	case []string:
		size := int64(sliceHeader)
		for _, s := range val {
			size += stringHeader + int64(len(s))
		}
		return size
	case []float64:
		return sliceHeader + int64(len(val))*wordSize
	case map[string]any:
		size := int64(mapOverhead)
		for k, item := range val {
			size += stringHeader + int64(len(k)) + ifaceSize + estimateAny(item, depth+1)
		}
		return size
	case *Table:
		return estimateTable(val)
	}
	return opaqueValueSize
}

// Report is the result of measuring a set of sessions.
type Report struct {
	PerSession map[string]int64
	Total      int64
	Errors     []error
}

// Accountant computes approximate per-session and aggregate memory usage.
// It never fails: a session whose estimate cannot be computed contributes zero.
type Accountant struct {
	logger   *slog.Logger
	estimate func(*Session) int64
}

// NewAccountant returns an Accountant that logs estimate failures to log.
func NewAccountant(log *slog.Logger) *Accountant {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Accountant{logger: log, estimate: estimateSession}
}

func estimateSession(s *Session) int64 {
	return s.MemoryEstimate().Bytes
}

// Measure estimates every session in sessions.
func (a *Accountant) Measure(ctx context.Context, sessions []*Session) Report {
	r := Report{PerSession: make(map[string]int64, len(sessions))}
	for _, s := range sessions {
		if s == nil {
			continue
		}
		n, err := a.measureOne(s)
		if err != nil {
			r.Errors = append(r.Errors, err)
			a.logger.ErrorContext(ctx, "session memory estimate failed",
				logger.Component("session.accountant"),
				logger.SessionID(s.ID()),
				logger.Error(err),
			)
			n = 0
		}
		r.PerSession[s.ID()] = n
		r.Total += n
	}
	return r
}

func (a *Accountant) measureOne(s *Session) (n int64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			n, err = 0, fmt.Errorf("%w: %s: %v", ErrEstimateFailed, s.ID(), rec)
		}
	}()
	n = a.estimate(s)
	if n < 0 {
		return 0, fmt.Errorf("%w: %s: negative estimate %d", ErrEstimateFailed, s.ID(), n)
	}
	return n, nil
}
