package output

import (
	"encoding/json"
	"io"

	"github.com/shopspring/decimal"

	"github.com/vegasq/tablecat/types"
)

// JSONFormatter outputs rows as JSON Lines, one object per line.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON Lines formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// SetOutput sets the output writer.
func (j *JSONFormatter) SetOutput(w io.Writer) {
	j.writer = w
}

// Format writes one JSON object per row, keyed in column order.
func (j *JSONFormatter) Format(columns []string, rows []types.Row) error {
	enc := json.NewEncoder(j.writer)

	for _, row := range rows {
		obj := make(map[string]any, len(columns))
		for _, col := range columns {
			obj[col] = jsonValue(row[col])
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}

// jsonValue maps engine values onto encodable JSON values.
func jsonValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case types.JSON:
		return json.RawMessage(val)
	case types.Date:
		return val.String()
	case types.TimeOfDay:
		return val.String()
	case decimal.Decimal:
		return val.String()
	default:
		return v
	}
}
