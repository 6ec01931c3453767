package reader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat/types"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(t *testing.T, iter RowIterator) []types.Row {
	t.Helper()
	var rows []types.Row
	for {
		row, err := iter.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVSchemaInference(t *testing.T) {
	path := writeTempFile(t, "people.csv",
		"id,name,age,score,joined\n"+
			"1,Alice,30,8.5,2023-01-15\n"+
			"2,Bob,20,7.25,2023-06-01\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()

	schema, err := r.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "score", "joined"}, schema.Names())

	want := map[string]types.DataType{
		"id":     types.TypeInteger,
		"name":   types.TypeString,
		"age":    types.TypeInteger,
		"score":  types.TypeFloat,
		"joined": types.TypeDate,
	}
	for col, dt := range want {
		got, ok := schema.TypeOf(col)
		require.True(t, ok, col)
		assert.Equal(t, dt, got, col)
	}
}

func TestCSVSchemaIdempotent(t *testing.T) {
	path := writeTempFile(t, "a.csv", "x,y\n1,a\n2,b\n")

	first, err := InferSchemaForTest(path)
	require.NoError(t, err)
	second, err := InferSchemaForTest(path)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

// InferSchemaForTest opens a fresh reader and returns its schema.
func InferSchemaForTest(path string) (*types.Schema, error) {
	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()
	return r.Schema()
}

func TestCSVRows(t *testing.T) {
	path := writeTempFile(t, "e.csv", "id,name,age\n1,Alice,30\n2,Bob,20\n3,Cara,25\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 3)
	assert.Equal(t, types.Row{"id": int64(1), "name": "Alice", "age": int64(30)}, rows[0])
	assert.Equal(t, "Cara", rows[2]["name"])
}

func TestCSVMalformedRowsDegradeToNull(t *testing.T) {
	path := writeTempFile(t, "bad.csv", "id,age\n1,30\nx,notanumber\n3,25\n")

	// Sample only the first data row so the malformed line exercises
	// per-row coercion instead of widening the inferred types.
	warnings := &Warnings{}
	r := NewCSVReader(NewFileSource(path), Options{Warnings: warnings, SampleSize: 1})
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 3)
	assert.Nil(t, rows[1]["id"])
	assert.Nil(t, rows[1]["age"])
	assert.NotEmpty(t, warnings.List())
}

func TestCSVShortRecordPadsNull(t *testing.T) {
	path := writeTempFile(t, "short.csv", "a,b,c\n1,2,3\n4,5\n")

	warnings := &Warnings{}
	r := NewCSVReader(NewFileSource(path), Options{Warnings: warnings})
	defer r.Close()

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	assert.Nil(t, rows[1]["c"])
	assert.NotEmpty(t, warnings.List())
}

func TestCSVPushdownFilters(t *testing.T) {
	path := writeTempFile(t, "f.csv", "id,age\n1,30\n2,20\n3,25\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()

	accepted := r.SetPushdownFilters([]types.Predicate{
		{Column: "age", Op: types.OpGe, Value: int64(25)},
		{Column: "missing", Op: types.OpEq, Value: int64(1)},
	})
	require.Len(t, accepted, 1)
	assert.Equal(t, "age", accepted[0].Column)

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 2)
	for _, row := range rows {
		age := row["age"].(int64)
		assert.GreaterOrEqual(t, age, int64(25))
	}
}

func TestCSVRejectsIncomparableFilter(t *testing.T) {
	path := writeTempFile(t, "g.csv", "id,name\n1,Alice\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()

	accepted := r.SetPushdownFilters([]types.Predicate{
		{Column: "name", Op: types.OpGt, Value: int64(5)},
	})
	assert.Empty(t, accepted)
}

func TestCSVRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,v\n")
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, i*2)
	}
	path := writeTempFile(t, "big.csv", b.String())

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()
	r.SetRowCap(3)

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	assert.Len(t, rows, 3)
}

func TestCSVRequiredColumns(t *testing.T) {
	path := writeTempFile(t, "h.csv", "id,name,age\n1,Alice,30\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()
	r.SetRequiredColumns([]string{"name"})

	schema, err := r.Schema()
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, schema.Names())

	iter, err := r.Rows()
	require.NoError(t, err)
	rows := drain(t, iter)

	require.Len(t, rows, 1)
	assert.Equal(t, types.Row{"name": "Alice"}, rows[0])
}

func TestCSVCloseTwice(t *testing.T) {
	path := writeTempFile(t, "i.csv", "a\n1\n")

	r := NewCSVReader(NewFileSource(path), Options{})
	_, err := r.Rows()
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestCSVMissingHeader(t *testing.T) {
	path := writeTempFile(t, "empty.csv", "")

	r := NewCSVReader(NewFileSource(path), Options{})
	defer r.Close()

	_, err := r.Schema()
	require.Error(t, err)
	var de *DataError
	assert.ErrorAs(t, err, &de)
}
