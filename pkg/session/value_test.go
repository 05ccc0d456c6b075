package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/forecastd/pkg/session"
)

func TestValue_Kind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, session.KindScalar, session.NewScalar(1).Kind())
	assert.Equal(t, session.KindTable, session.NewTable(nil, nil).Kind())
}

func TestNewTable_InfersTypes(t *testing.T) {
	t.Parallel()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tbl := session.NewTable(
		[]string{"ds", "y", "store", "promo", "empty"},
		[][]any{
			{day, 10, "north", nil, nil},
			{day.AddDate(0, 0, 1), 12.5, "south", 1.0, nil},
			{nil, int64(9), "east", "yes", nil},
		},
	)

	assert.Equal(t, []session.ColumnType{
		session.ColumnDatetime,
		session.ColumnNumeric,
		session.ColumnText,
		session.ColumnText,
		session.ColumnText,
	}, tbl.Types)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 5, tbl.NumCols())
	require.NoError(t, tbl.Validate())
}

func TestTable_InferTypesKeepsDeclared(t *testing.T) {
	t.Parallel()
	tbl := &session.Table{
		Columns: []string{"y"},
		Types:   []session.ColumnType{session.ColumnText},
		Rows:    [][]any{{1.0}},
	}
	tbl.InferTypes()
	assert.Equal(t, []session.ColumnType{session.ColumnText}, tbl.Types)
}

func TestTable_Column(t *testing.T) {
	t.Parallel()
	tbl := session.NewTable([]string{"a", "b"}, [][]any{{1, "x"}, {2}})

	col, ok := tbl.Column("b")
	require.True(t, ok)
	assert.Equal(t, []any{"x", nil}, col)

	_, ok = tbl.Column("c")
	assert.False(t, ok)

	var nilTable *session.Table
	assert.Equal(t, 0, nilTable.NumRows())
	_, ok = nilTable.Column("a")
	assert.False(t, ok)
}

func TestTable_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		tbl  *session.Table
		err  error
	}{
		{"nil", nil, session.ErrTableNoColumns},
		{"no columns", &session.Table{}, session.ErrTableNoColumns},
		{"types mismatch", &session.Table{
			Columns: []string{"a", "b"},
			Types:   []session.ColumnType{session.ColumnNumeric},
		}, session.ErrTableTypesMismatch},
		{"unknown type", &session.Table{
			Columns: []string{"a"},
			Types:   []session.ColumnType{"decimal"},
		}, session.ErrTableUnknownType},
		{"short row", &session.Table{
			Columns: []string{"a", "b"},
			Rows:    [][]any{{1, 2}, {3}},
		}, session.ErrTableRowWidth},
		{"valid", &session.Table{
			Columns: []string{"a"},
			Types:   []session.ColumnType{session.ColumnNumeric},
			Rows:    [][]any{{1}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.tbl.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
