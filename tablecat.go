// Package tablecat is a file-oriented SQL query engine. It executes
// analytical read-only queries over CSV, Parquet, JSON, JSONL, HTML,
// Markdown, and XML sources addressed by local path, HTTP(S) URL, or
// s3:// URI, with an optimizer that pushes filters, column sets, row
// caps, and partition filters down into the readers.
//
// Example:
//
//	result, err := tablecat.Execute("SELECT name FROM 'people.csv' WHERE age >= 25", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer result.Close()
//	rows, err := result.ToList()
package tablecat

import (
	"io"

	"github.com/vegasq/tablecat/exec"
	"github.com/vegasq/tablecat/logger"
	"github.com/vegasq/tablecat/plan"
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/reader"
	"github.com/vegasq/tablecat/types"
)

// QueryResult is a lazy row iterator over one executed query. The
// operator tree opens on the first Next call; reaching end of stream or
// calling Close releases every reader exactly once.
type QueryResult struct {
	root     exec.Operator
	schema   *types.Schema
	plan     *plan.Plan
	warnings *reader.Warnings

	opened bool
	closed bool
}

// Next returns the next row, or io.EOF after the last one. The
// underlying readers are closed automatically at end of stream.
func (r *QueryResult) Next() (types.Row, error) {
	if r.closed {
		return nil, io.EOF
	}
	if !r.opened {
		if err := r.root.Open(); err != nil {
			r.Close()
			return nil, err
		}
		r.opened = true
	}

	row, err := r.root.Next()
	if err != nil {
		closeErr := r.Close()
		if err == io.EOF && closeErr != nil {
			return nil, closeErr
		}
		return nil, err
	}
	return row, nil
}

// Schema returns the result schema.
func (r *QueryResult) Schema() *types.Schema {
	return r.schema
}

// ToList drains the iterator into a slice.
func (r *QueryResult) ToList() ([]types.Row, error) {
	var rows []types.Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// Explain renders the operator nesting and the optimizer audit.
func (r *QueryResult) Explain() string {
	return r.plan.Explain()
}

// Warnings lists the recoverable problems readers raised; consult it
// after iteration.
func (r *QueryResult) Warnings() []string {
	return r.warnings.List()
}

// Close cancels the query and releases all reader resources. Safe to
// call at any point and more than once.
func (r *QueryResult) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.root.Close()
}

// Execute parses, plans, optimizes, and prepares a query. Inline quoted
// paths in the FROM clause bind to readers; unquoted table names bind
// to defaultSource when it is non-empty, else they are treated as
// locator strings themselves. Parser and planner errors are returned
// here, before any row is produced.
func Execute(sql string, defaultSource string) (*QueryResult, error) {
	stmt, err := query.Parse(sql)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("sql", sql).
		Int("inline_sources", len(query.ExtractSources(sql))).
		Msg("query parsed")

	warnings := &reader.Warnings{}
	opts := reader.Options{Warnings: warnings}

	var opened []reader.Reader
	bind := func(ref query.TableRef) (reader.Reader, error) {
		locator := ref.Source
		if !ref.Quoted && defaultSource != "" {
			locator = defaultSource
		}
		r, err := reader.Open(locator, opts)
		if err != nil {
			return nil, err
		}
		opened = append(opened, r)
		return r, nil
	}

	closeAll := func() {
		for _, r := range opened {
			_ = r.Close()
		}
	}

	p, err := plan.Build(stmt, bind)
	if err != nil {
		closeAll()
		return nil, err
	}

	p.Optimize()

	root, err := exec.Build(p.Root)
	if err != nil {
		closeAll()
		return nil, err
	}

	logger.Debug().
		Str("sql", sql).
		Msg("query planned")

	return &QueryResult{
		root:     root,
		schema:   p.Root.Schema(),
		plan:     p,
		warnings: warnings,
	}, nil
}

// InferSchema opens the source named by the locator and returns its
// inferred schema. Calling it twice on the same source yields equal
// schemas.
func InferSchema(locator string) (*types.Schema, error) {
	r, err := reader.Open(locator, reader.Options{})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Schema()
}
