package exec

import (
	"io"
	"sort"

	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// Sort materializes the child's rows and orders them by the composite
// sort key. The engine's convention: NULLs sort last regardless of
// ASC/DESC, and ties keep input order (stable sort).
type Sort struct {
	Child Operator
	Keys  []query.OrderKey

	rows   []types.Row
	pos    int
	opened bool
	closed bool
}

// Open drains the child and sorts the buffer.
func (s *Sort) Open() error {
	if err := s.Child.Open(); err != nil {
		return err
	}

	for {
		row, err := s.Child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		s.rows = append(s.rows, row)
	}

	var sortErr error
	sort.SliceStable(s.rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := s.less(s.rows[i], s.rows[j])
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}

	s.opened = true
	return nil
}

func (s *Sort) less(a, b types.Row) (bool, error) {
	for _, key := range s.Keys {
		av, bv := a[key.Column], b[key.Column]

		if av == nil && bv == nil {
			continue
		}
		if av == nil {
			return false, nil // NULLs last
		}
		if bv == nil {
			return true, nil
		}

		cmp, err := types.Order(av, bv)
		if err != nil {
			return false, wrapCompareErr("ORDER BY", err)
		}
		if cmp == 0 {
			continue
		}
		if key.Desc {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}

// Next emits the sorted rows in order.
func (s *Sort) Next() (types.Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// Close releases the buffer and closes the child.
func (s *Sort) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.rows = nil
	return s.Child.Close()
}
