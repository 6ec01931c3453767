package reader

import (
	"strconv"

	"github.com/vegasq/tablecat/types"
)

// tabular is the shared core of the HTML and Markdown readers: a fully
// materialized header-plus-cells table with sampled type inference.
type tabular struct {
	pushdown
	src  ByteSource
	opts Options

	header []string
	rows   []types.Row
	schema *types.Schema
	closed bool
}

// buildTabular converts raw string cells to typed rows and infers the
// schema from a sample.
func buildTabular(src ByteSource, opts Options, header []string, cells [][]string) *tabular {
	t := &tabular{src: src, opts: opts, header: header}

	for _, record := range cells {
		row := make(types.Row, len(header))
		for i, name := range header {
			if i >= len(record) {
				row[name] = nil
				continue
			}
			value, _ := types.ParseString(record[i])
			row[name] = value
		}
		t.rows = append(t.rows, row)
	}

	sample := t.rows
	if len(sample) > opts.sampleSize() {
		sample = sample[:opts.sampleSize()]
	}
	t.schema = types.SchemaFromRows(header, sample)
	t.normalize()
	return t
}

// normalize reconciles per-cell types with the inferred column types.
// Mixed columns that promoted to string get their values stringified;
// numeric and temporal cells keep their own type and are promoted when
// compared.
func (t *tabular) normalize() {
	for _, row := range t.rows {
		for _, col := range t.schema.Columns() {
			v := row[col.Name]
			if v == nil {
				continue
			}
			vt := types.InferType(v)
			if vt == col.Type {
				continue
			}
			switch {
			case col.Type == types.TypeString:
				row[col.Name] = types.CanonicalString(v)
			case col.Type.IsNumeric() && vt.IsNumeric():
				// Comparison promotion handles mixed numerics.
			case col.Type == types.TypeDatetime && vt.IsTemporal():
				// Temporal promotion handled at comparison time.
			}
		}
	}
}

// Schema returns the inferred schema.
func (t *tabular) Schema() (*types.Schema, error) {
	return t.prunedSchema(t.schema), nil
}

// SetPushdownFilters accepts simple predicates over known columns,
// checked against the full schema rather than the pruned one.
func (t *tabular) SetPushdownFilters(preds []types.Predicate) []types.Predicate {
	return t.acceptFilters(t.schema, preds)
}

// Rows iterates the materialized table in document order.
func (t *tabular) Rows() (RowIterator, error) {
	return &sliceIterator{reader: &t.pushdown, rows: t.rows}, nil
}

// Close drops the materialized rows.
func (t *tabular) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.rows = nil
	return t.src.Close()
}

// selectTableIndex resolves a `:index` selector over n tables, with
// negative indices counting from the end. Default is the first table.
func selectTableIndex(selector string, n int, name string) (int, error) {
	idx := 0
	if selector != "" {
		parsed, err := strconv.Atoi(selector)
		if err != nil {
			return 0, &DataError{Path: name, Detail: "bad table index " + selector}
		}
		idx = parsed
	}
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, &DataError{Path: name, Detail: "table index out of range"}
	}
	return idx, nil
}
