package exec

import (
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// Project evaluates the SELECT list against each child row and builds a
// new row under the aliased output names. Input rows are never mutated.
type Project struct {
	Child Operator
	Items []query.SelectItem
}

// Open opens the child.
func (p *Project) Open() error {
	return p.Child.Open()
}

// Next projects the child's next row.
func (p *Project) Next() (types.Row, error) {
	row, err := p.Child.Next()
	if err != nil {
		return nil, err
	}

	out := make(types.Row, len(p.Items))
	for _, item := range p.Items {
		if _, ok := item.Expr.(query.Star); ok {
			for name, value := range row {
				out[name] = value
			}
			continue
		}
		value, err := evalSelect(item.Expr, row)
		if err != nil {
			return nil, err
		}
		out[item.OutputName()] = value
	}
	return out, nil
}

// Close closes the child.
func (p *Project) Close() error {
	return p.Child.Close()
}
