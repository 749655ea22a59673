package domain

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcat(t *testing.T) {
	t.Run("union of columns in first-seen order", func(t *testing.T) {
		a := Table{Columns: []string{"A", "B"}, Rows: [][]string{{"1", "2"}}}
		b := Table{Columns: []string{"B", "C"}, Rows: [][]string{{"3", "4"}}}

		got := Concat(a, b)

		expected := Table{
			Columns: []string{"A", "B", "C"},
			Rows: [][]string{
				{"1", "2", Null},
				{Null, "3", "4"},
			},
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			t.Errorf("Concat mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("identical columns stack without gaps", func(t *testing.T) {
		a := Table{Columns: []string{"A", "B"}, Rows: [][]string{{"1", "2"}}}
		b := Table{Columns: []string{"A", "B"}, Rows: [][]string{{"3", "4"}}}

		got := Concat(a, b)

		assert.Equal(t, []string{"A", "B"}, got.Columns)
		assert.Len(t, got.Rows, 2)
	})

	t.Run("skips tables without columns", func(t *testing.T) {
		a := Table{Columns: []string{"A"}, Rows: [][]string{{"1"}}}

		got := Concat(Table{}, a)

		assert.Equal(t, []string{"A"}, got.Columns)
		assert.Len(t, got.Rows, 1)
	})

	t.Run("no tables yields empty table", func(t *testing.T) {
		got := Concat()
		assert.True(t, got.Empty())
	})
}

func TestSetColumn(t *testing.T) {
	t.Run("overwrites existing column", func(t *testing.T) {
		tbl := Table{Columns: []string{"A", "AÑO"}, Rows: [][]string{{"1", "x"}, {"2", "y"}}}

		tbl.SetColumn("AÑO", "2020")

		assert.Equal(t, "2020", tbl.Rows[0][1])
		assert.Equal(t, "2020", tbl.Rows[1][1])
	})

	t.Run("appends missing column", func(t *testing.T) {
		tbl := Table{Columns: []string{"A"}, Rows: [][]string{{"1"}, {"2"}}}

		tbl.SetColumn("AÑO", "2020")

		assert.Equal(t, []string{"A", "AÑO"}, tbl.Columns)
		assert.Equal(t, []string{"1", "2020"}, tbl.Rows[0])
	})
}

func TestRenameColumn(t *testing.T) {
	tbl := Table{Columns: []string{"time", "rain"}}

	assert.True(t, tbl.RenameColumn("time", "FECHA_HORA"))
	assert.Equal(t, []string{"FECHA_HORA", "rain"}, tbl.Columns)
	assert.False(t, tbl.RenameColumn("missing", "X"))
}

func TestSortByColumn(t *testing.T) {
	tbl := Table{
		Columns: []string{"FECHA_HORA", "V"},
		Rows: [][]string{
			{"2020-03-01T05:00", "b"},
			{"2018-01-01T00:00", "a"},
			{"2020-03-01T05:00", "c"},
		},
	}

	tbl.SortByColumn("FECHA_HORA")

	assert.Equal(t, "a", tbl.Rows[0][1])
	// Stable: equal keys keep their input order.
	assert.Equal(t, "b", tbl.Rows[1][1])
	assert.Equal(t, "c", tbl.Rows[2][1])
}

func TestClone(t *testing.T) {
	orig := Table{Columns: []string{"A"}, Rows: [][]string{{"1"}}}

	clone := orig.Clone()
	clone.Columns[0] = "B"
	clone.Rows[0][0] = "9"

	assert.Equal(t, "A", orig.Columns[0])
	assert.Equal(t, "1", orig.Rows[0][0])
}

func TestWriteCSV(t *testing.T) {
	t.Run("header plus rows", func(t *testing.T) {
		tbl := Table{
			Columns: []string{"A", "B"},
			Rows:    [][]string{{"1", ""}, {"va,lue", "2"}},
		}

		var buf bytes.Buffer
		require.NoError(t, tbl.WriteCSV(&buf))

		assert.Equal(t, "A,B\n1,\n\"va,lue\",2\n", buf.String())
	})

	t.Run("empty table writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Table{}.WriteCSV(&buf))
		assert.Zero(t, buf.Len())
	})
}
