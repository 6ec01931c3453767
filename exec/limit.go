package exec

import (
	"io"

	"github.com/vegasq/tablecat/types"
)

// Limit forwards up to N rows after skipping Offset rows, then closes
// the child. N below zero means no cap. Next stays at end once the cap
// is reached.
type Limit struct {
	Child  Operator
	N      int64
	Offset int64

	skipped int64
	emitted int64
	done    bool
}

// Open opens the child.
func (l *Limit) Open() error {
	return l.Child.Open()
}

// Next emits the next row within the window.
func (l *Limit) Next() (types.Row, error) {
	if l.done || (l.N >= 0 && l.emitted >= l.N) {
		if !l.done {
			l.done = true
			if err := l.Child.Close(); err != nil {
				return nil, err
			}
		}
		return nil, io.EOF
	}

	for l.skipped < l.Offset {
		if _, err := l.Child.Next(); err != nil {
			l.done = true
			return nil, err
		}
		l.skipped++
	}

	row, err := l.Child.Next()
	if err != nil {
		l.done = true
		return nil, err
	}
	l.emitted++
	return row, nil
}

// Close closes the child.
func (l *Limit) Close() error {
	return l.Child.Close()
}
