package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/tablecat/types"
)

func sampleRows() ([]string, []types.Row) {
	columns := []string{"name", "age", "joined"}
	rows := []types.Row{
		{"name": "Alice", "age": int64(30), "joined": types.Date(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))},
		{"name": "Bob", "age": nil, "joined": nil},
	}
	return columns, rows
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	columns, rows := sampleRows()

	require.NoError(t, NewCSVFormatter(&buf).Format(columns, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "name,age,joined", lines[0])
	assert.Equal(t, "Alice,30,2023-01-15", lines[1])
	assert.Equal(t, "Bob,,", lines[2])
}

func TestCSVFormatterEscapesFormulas(t *testing.T) {
	var buf bytes.Buffer
	rows := []types.Row{{"v": "=SUM(A1)"}}

	require.NoError(t, NewCSVFormatter(&buf).Format([]string{"v"}, rows))
	assert.Contains(t, buf.String(), "'=SUM(A1)")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	columns, rows := sampleRows()

	require.NoError(t, NewJSONFormatter(&buf).Format(columns, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"Alice"`)
	assert.Contains(t, lines[0], `"joined":"2023-01-15"`)
	assert.Contains(t, lines[1], `"age":null`)
}

func TestJSONFormatterRawJSON(t *testing.T) {
	var buf bytes.Buffer
	rows := []types.Row{{"payload": types.JSON(`{"a":1}`)}}

	require.NoError(t, NewJSONFormatter(&buf).Format([]string{"payload"}, rows))
	assert.Contains(t, buf.String(), `"payload":{"a":1}`)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	columns, rows := sampleRows()

	require.NoError(t, NewTableFormatter(&buf).Format(columns, rows))

	text := buf.String()
	assert.Contains(t, text, "Alice")
	assert.Contains(t, text, "NULL")
	assert.Contains(t, text, "name")
}
