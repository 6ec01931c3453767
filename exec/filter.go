package exec

import (
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// Filter emits the child's rows that satisfy the residual predicate.
// Null predicate results are false.
type Filter struct {
	Child Operator
	Cond  query.Expr
}

// Open opens the child.
func (f *Filter) Open() error {
	return f.Child.Open()
}

// Next pulls from the child until a row matches.
func (f *Filter) Next() (types.Row, error) {
	for {
		row, err := f.Child.Next()
		if err != nil {
			return nil, err
		}
		keep, err := evalFilter(f.Cond, row)
		if err != nil {
			return nil, err
		}
		if keep {
			return row, nil
		}
	}
}

// Close closes the child.
func (f *Filter) Close() error {
	return f.Child.Close()
}
