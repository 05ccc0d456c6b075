package session

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags the variant held by a Value.
type Kind string

const (
	KindScalar Kind = "scalar"
	KindTable  Kind = "table"
)

// Value is an entry stored in a session. It is either a Scalar or a *Table.
// The store never interprets values beyond estimating their size.
type Value interface {
	Kind() Kind
	sealed()
}

// Scalar wraps a JSON-like value: nil, bool, numbers, string, []byte,
// time.Time, []any or map[string]any.
type Scalar struct {
	V any
}

// NewScalar wraps v as a Scalar.
func NewScalar(v any) Scalar {
	return Scalar{V: v}
}

func (Scalar) Kind() Kind { return KindScalar }
func (Scalar) sealed()    {}

// ColumnType is the declared type of a table column.
type ColumnType string

const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnDatetime ColumnType = "datetime"
	ColumnText     ColumnType = "text"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnNumeric, ColumnDatetime, ColumnText:
		return true
	}
	return false
}

var (
	ErrTableNoColumns     = errors.New("session.table.no_columns")
	ErrTableTypesMismatch = errors.New("session.table.types_mismatch")
	ErrTableRowWidth      = errors.New("session.table.row_width")
	ErrTableUnknownType   = errors.New("session.table.unknown_type")
)

// Table is a row-major dataset with ordered columns and per-column type hints.
type Table struct {
	Columns []string     `json:"columns"`
	Types   []ColumnType `json:"types,omitempty"`
	Rows    [][]any      `json:"rows"`
}

// NewTable builds a table and infers column types from its rows.
func NewTable(columns []string, rows [][]any) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.InferTypes()
	return t
}

func (*Table) Kind() Kind { return KindTable }
func (*Table) sealed()    {}

func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Column returns the values of the named column in row order.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil {
		return nil, false
	}
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, true
}

// InferTypes fills Types from cell values when it is not already set for every column.
// A column is numeric when all non-nil cells are numbers, datetime when all are
// time.Time, and text otherwise.
func (t *Table) InferTypes() {
	if t == nil || len(t.Types) == len(t.Columns) {
		return
	}
	types := make([]ColumnType, len(t.Columns))
	for i := range t.Columns {
		types[i] = inferColumn(t.Rows, i)
	}
	t.Types = types
}

// Validate checks the table shape. The store itself never calls it.
func (t *Table) Validate() error {
	if t == nil || len(t.Columns) == 0 {
		return ErrTableNoColumns
	}
	if len(t.Types) != 0 && len(t.Types) != len(t.Columns) {
		return fmt.Errorf("%w: %d types for %d columns", ErrTableTypesMismatch, len(t.Types), len(t.Columns))
	}
	for i, ct := range t.Types {
		if !ct.Valid() {
			return fmt.Errorf("%w: column %q has type %q", ErrTableUnknownType, t.Columns[i], ct)
		}
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrTableRowWidth, i, len(row), len(t.Columns))
		}
	}
	return nil
}

func inferColumn(rows [][]any, col int) ColumnType {
	numeric, datetime, seen := true, true, false
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		seen = true
		switch row[col].(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			datetime = false
		case time.Time:
			numeric = false
		default:
			return ColumnText
		}
		if !numeric && !datetime {
			return ColumnText
		}
	}
	switch {
	case !seen:
		return ColumnText
	case numeric:
		return ColumnNumeric
	case datetime:
		return ColumnDatetime
	}
	return ColumnText
}

// wipeValue zeroes the payload of v in place.
func wipeValue(v Value) {
	switch val := v.(type) {
	case *Table:
		wipeTable(val)
	case Scalar:
		wipeAny(val.V, 0)
	}
}

func wipeTable(t *Table) {
	if t == nil {
		return
	}
	for _, row := range t.Rows {
		for i := range row {
			wipeAny(row[i], 0)
			row[i] = nil
		}
	}
	t.Rows = nil
}

func wipeAny(v any, depth int) {
	if depth > maxEstimateDepth {
		return
	}
	switch val := v.(type) {
	case []byte:
		clear(val)
	case []any:
		for i := range val {
			wipeAny(val[i], depth+1)
			val[i] = nil
		}
	case map[string]any:
		for k, item := range val {
			wipeAny(item, depth+1)
			delete(val, k)
		}
	}
}
