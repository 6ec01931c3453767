package exec

import (
	"io"

	"github.com/vegasq/tablecat/reader"
	"github.com/vegasq/tablecat/types"
)

// Scan pulls rows from a bound reader, applying the scan's alias prefix
// to column names. The reader is closed exactly once, in Close.
type Scan struct {
	Source string
	Alias  string
	Reader reader.Reader

	iter    reader.RowIterator
	scanned int64
	closed  bool
}

// Open starts the reader's row iteration.
func (s *Scan) Open() error {
	iter, err := s.Reader.Rows()
	if err != nil {
		return err
	}
	s.iter = iter
	return nil
}

// Next forwards the reader's next row.
func (s *Scan) Next() (types.Row, error) {
	if s.iter == nil {
		return nil, io.EOF
	}

	row, err := s.iter.Next()
	if err != nil {
		return nil, err
	}
	s.scanned++

	if s.Alias == "" {
		return row, nil
	}
	prefixed := make(types.Row, len(row))
	for name, value := range row {
		prefixed[s.Alias+"."+name] = value
	}
	return prefixed, nil
}

// RowsScanned reports how many rows the reader produced; tests use it
// to observe limit pushdown.
func (s *Scan) RowsScanned() int64 {
	return s.scanned
}

// Close closes the reader once.
func (s *Scan) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.Reader.Close()
}
