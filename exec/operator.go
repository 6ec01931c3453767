// Package exec implements the pull-based operator tree: Scan, Filter,
// Project, Aggregate, Sort, Limit, and the hash Join. One query is one
// cooperating thread of control; no operator sees concurrent Next
// calls. Next returns io.EOF at end of stream.
package exec

import (
	"fmt"

	"github.com/vegasq/tablecat/types"
)

// Operator is one node of the executing pipeline.
type Operator interface {
	// Open initializes the operator. Blocking operators drain their
	// child fully here.
	Open() error
	// Next returns the next row, or io.EOF after the last one.
	Next() (types.Row, error)
	// Close releases resources. Called on normal end and on early
	// termination; closing twice is safe.
	Close() error
}

// TypeError reports incompatible operand types discovered at runtime.
type TypeError struct {
	Op    string
	Left  types.DataType
	Right types.DataType
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: %s %s %s", e.Left, e.Op, e.Right)
}

// UnsupportedJoinConditionError reports a join condition the hash join
// cannot execute (anything but a conjunction of equi-comparisons).
type UnsupportedJoinConditionError struct {
	Condition string
}

func (e *UnsupportedJoinConditionError) Error() string {
	return "unsupported join condition: " + e.Condition
}

// wrapCompareErr converts a types comparability failure to a TypeError.
func wrapCompareErr(op string, err error) error {
	if nc, ok := err.(*types.ErrNotComparable); ok {
		return &TypeError{Op: op, Left: nc.Left, Right: nc.Right}
	}
	return err
}
