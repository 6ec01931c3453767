// Package reader provides the per-format row producers behind the query
// engine: CSV, Parquet, JSON, JSONL, HTML, Markdown, and XML readers, a
// registry that binds source locators to reader implementations, and
// byte sources for local files, HTTP(S) URLs, and S3 objects.
//
// Every reader accepts pushdown hints before Rows is called: required
// columns, simple filter predicates, a row cap, and partition filters.
// Hints are declarative; a reader reports which filters it accepted so
// the executor does not re-apply them.
package reader

import (
	"fmt"
	"net/http"

	"github.com/vegasq/tablecat/types"
)

// RowIterator is a lazy, finite, non-restartable sequence of rows. Next
// returns io.EOF after the last row.
type RowIterator interface {
	Next() (types.Row, error)
}

// Reader is the common contract implemented by every format reader.
type Reader interface {
	// Schema returns the source schema, sampling on first call and
	// caching afterward.
	Schema() (*types.Schema, error)

	// SetRequiredColumns narrows the columns a reader should emit. The
	// reader may still include extras; the executor tolerates them.
	SetRequiredColumns(columns []string)

	// SetPushdownFilters offers simple predicates to the reader and
	// returns the subset the reader accepted. Rows emitted afterward
	// are guaranteed to satisfy the accepted predicates.
	SetPushdownFilters(preds []types.Predicate) []types.Predicate

	// SetRowCap bounds the number of rows the reader will emit.
	SetRowCap(n int64)

	// SetPartitionFilters prunes partitioned inputs before any
	// underlying file is opened. Non-partitioned readers ignore it.
	SetPartitionFilters(preds []types.Predicate)

	// Rows starts iteration. It may be called at most once.
	Rows() (RowIterator, error)

	// Close releases the reader's resources. Safe to call before the
	// iterator has reached its end, and safe to call twice.
	Close() error
}

// Warnings collects recoverable problems (malformed rows, dropped
// cells) raised while reading. Callers inspect it after iteration.
type Warnings struct {
	list []string
}

// Add appends a formatted warning.
func (w *Warnings) Add(format string, args ...any) {
	if w == nil {
		return
	}
	w.list = append(w.list, fmt.Sprintf(format, args...))
}

// List returns the collected warnings.
func (w *Warnings) List() []string {
	if w == nil {
		return nil
	}
	return w.list
}

// DefaultSampleSize is the number of rows sampled for schema inference
// in string-based readers.
const DefaultSampleSize = 100

// Options configures reader construction.
type Options struct {
	// SampleSize overrides DefaultSampleSize when positive.
	SampleSize int
	// Warnings receives recoverable row-level problems.
	Warnings *Warnings
	// HTTPClient overrides http.DefaultClient for remote sources.
	HTTPClient *http.Client
	// S3 overrides the S3 client, mainly for tests.
	S3 S3API
}

func (o Options) sampleSize() int {
	if o.SampleSize > 0 {
		return o.SampleSize
	}
	return DefaultSampleSize
}

// pushdown carries the hint state shared by all readers.
type pushdown struct {
	required   []string
	filters    []types.Predicate
	rowCap     int64
	hasRowCap  bool
	partitions []types.Predicate
}

func (p *pushdown) SetRequiredColumns(columns []string) {
	p.required = append([]string(nil), columns...)
}

func (p *pushdown) SetRowCap(n int64) {
	p.rowCap = n
	p.hasRowCap = true
}

func (p *pushdown) SetPartitionFilters(preds []types.Predicate) {
	p.partitions = append([]types.Predicate(nil), preds...)
}

// acceptFilters keeps the predicates whose column is known to the schema
// and whose literal is comparable with the column's type.
func (p *pushdown) acceptFilters(schema *types.Schema, preds []types.Predicate) []types.Predicate {
	var accepted []types.Predicate
	for _, pred := range preds {
		colType, ok := schema.TypeOf(pred.Column)
		if !ok {
			continue
		}
		if !types.IsComparable(colType, types.InferType(pred.Value)) {
			continue
		}
		accepted = append(accepted, pred)
		if !p.hasFilter(pred) {
			p.filters = append(p.filters, pred)
		}
	}
	return accepted
}

func (p *pushdown) hasFilter(pred types.Predicate) bool {
	for _, existing := range p.filters {
		if existing.Column == pred.Column && existing.Op == pred.Op &&
			existing.String() == pred.String() {
			return true
		}
	}
	return false
}

// wantColumn reports whether a column survives column pruning.
func (p *pushdown) wantColumn(name string) bool {
	if p.required == nil {
		return true
	}
	for _, col := range p.required {
		if col == name {
			return true
		}
	}
	return false
}

// capReached reports whether emitted rows have hit the row cap.
func (p *pushdown) capReached(emitted int64) bool {
	return p.hasRowCap && emitted >= p.rowCap
}

// prune drops non-required columns from a row.
func (p *pushdown) prune(row types.Row) types.Row {
	if p.required == nil {
		return row
	}
	out := make(types.Row, len(p.required))
	for _, col := range p.required {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}

// prunedSchema narrows a schema to the required columns.
func (p *pushdown) prunedSchema(s *types.Schema) *types.Schema {
	if p.required == nil {
		return s
	}
	out := types.NewSchema()
	for _, col := range s.Columns() {
		if p.wantColumn(col.Name) {
			out.Add(col.Name, col.Type)
		}
	}
	return out
}
