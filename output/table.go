package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/tablecat/types"
)

// TableFormatter outputs rows as an aligned text table.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer.
func (t *TableFormatter) SetOutput(w io.Writer) {
	t.writer = w
}

// Format renders the rows with a header line. Nulls print as NULL.
func (t *TableFormatter) Format(columns []string, rows []types.Row) error {
	table := tablewriter.NewWriter(t.writer)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if row[col] == nil {
				record[i] = "NULL"
				continue
			}
			record[i] = types.CanonicalString(row[col])
		}
		table.Append(record)
	}

	table.Render()
	return nil
}
