// Package output provides formatters for rendering query results.
//
// Supported formats:
//   - JSON Lines: one JSON object per line
//   - CSV: comma-separated values with a header row
//   - Table: aligned text table
//
// Example usage:
//
//	formatter := output.NewJSONFormatter(os.Stdout)
//	if err := formatter.Format(columns, rows); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"io"

	"github.com/vegasq/tablecat/types"
)

// Formatter renders rows in a specific output format.
type Formatter interface {
	// Format writes rows under the given column order.
	Format(columns []string, rows []types.Row) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}
