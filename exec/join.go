package exec

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// HashJoin builds a hash table from the right input and probes it with
// the left. Matched output follows probe order; FULL OUTER emits the
// unmatched build rows after the probe side is exhausted. Only
// conjunctions of equi-comparisons are executable; anything else fails
// at build time with UnsupportedJoinConditionError.
type HashJoin struct {
	Left  Operator
	Right Operator
	Kind  query.JoinKind

	// Equi-key column names, left side and right side pairwise. Empty
	// for CROSS joins.
	LeftKeys  []string
	RightKeys []string

	// Column names of each side, for null-extension.
	LeftColumns  []string
	RightColumns []string

	table    map[string][]*buildRow
	buildAll []*buildRow

	pending  []types.Row
	leftDone bool
	tailPos  int
	closed   bool
}

type buildRow struct {
	row     types.Row
	matched bool
}

// ExtractEquiKeys decomposes a join condition into pairwise equi-key
// columns, given the two input schemas. Non-equi conditions are
// unsupported.
func ExtractEquiKeys(on query.Expr, left, right *types.Schema) (leftKeys, rightKeys []string, err error) {
	if on == nil {
		return nil, nil, nil
	}

	for _, conjunct := range query.SplitConjuncts(on) {
		cmp, ok := conjunct.(*query.ColumnComparisonExpr)
		if !ok || cmp.Op != types.OpEq {
			return nil, nil, &UnsupportedJoinConditionError{Condition: conjunct.String()}
		}

		switch {
		case left.Has(cmp.Left) && right.Has(cmp.Right):
			leftKeys = append(leftKeys, cmp.Left)
			rightKeys = append(rightKeys, cmp.Right)
		case left.Has(cmp.Right) && right.Has(cmp.Left):
			leftKeys = append(leftKeys, cmp.Right)
			rightKeys = append(rightKeys, cmp.Left)
		default:
			return nil, nil, &UnsupportedJoinConditionError{Condition: conjunct.String()}
		}
	}

	return leftKeys, rightKeys, nil
}

// Open drains the build (right) side into the hash table.
func (j *HashJoin) Open() error {
	if err := j.Left.Open(); err != nil {
		return err
	}
	if err := j.Right.Open(); err != nil {
		return err
	}

	j.table = make(map[string][]*buildRow)
	for {
		row, err := j.Right.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		br := &buildRow{row: row}
		j.buildAll = append(j.buildAll, br)

		key, hasNull := joinKey(row, j.RightKeys)
		if !hasNull {
			j.table[key] = append(j.table[key], br)
		}
	}

	return nil
}

// joinKey renders the key tuple; a null component never matches.
func joinKey(row types.Row, keys []string) (string, bool) {
	var b strings.Builder
	for i, col := range keys {
		value := row[col]
		if value == nil {
			return "", true
		}
		if i > 0 {
			b.WriteString("\x00|\x00")
		}
		value = types.Canonical(value)
		fmt.Fprintf(&b, "%s:%s", normalizeKeyType(value), types.CanonicalString(value))
	}
	return b.String(), false
}

// normalizeKeyType buckets numerically comparable values together so
// int64(1) and float64(1) hash to the same key.
func normalizeKeyType(value any) string {
	if types.InferType(value).IsNumeric() {
		return "num"
	}
	return fmt.Sprintf("%T", value)
}

// Next emits the next joined row: pending matches first, then fresh
// probe rows, then (for FULL OUTER) unmatched build rows.
func (j *HashJoin) Next() (types.Row, error) {
	for {
		if len(j.pending) > 0 {
			row := j.pending[0]
			j.pending = j.pending[1:]
			return row, nil
		}

		if j.leftDone {
			return j.nextUnmatchedRight()
		}

		left, err := j.Left.Next()
		if err == io.EOF {
			j.leftDone = true
			continue
		}
		if err != nil {
			return nil, err
		}

		if j.Kind == query.JoinCross {
			for _, br := range j.buildAll {
				j.pending = append(j.pending, mergeRows(left, br.row))
			}
			continue
		}

		key, hasNull := joinKey(left, j.LeftKeys)
		var matches []*buildRow
		if !hasNull {
			matches = j.table[key]
		}

		if len(matches) == 0 {
			if j.Kind == query.JoinLeft || j.Kind == query.JoinFull {
				return mergeRows(left, nullRow(j.RightColumns)), nil
			}
			continue
		}

		for _, br := range matches {
			br.matched = true
			j.pending = append(j.pending, mergeRows(left, br.row))
		}
	}
}

// nextUnmatchedRight emits build rows no probe row matched, null-
// extended on the left. Only FULL OUTER reaches here with output.
func (j *HashJoin) nextUnmatchedRight() (types.Row, error) {
	if j.Kind != query.JoinFull {
		return nil, io.EOF
	}
	for j.tailPos < len(j.buildAll) {
		br := j.buildAll[j.tailPos]
		j.tailPos++
		if !br.matched {
			return mergeRows(nullRow(j.LeftColumns), br.row), nil
		}
	}
	return nil, io.EOF
}

// Close drops the hash table and closes both children.
func (j *HashJoin) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	j.table = nil
	j.buildAll = nil
	j.pending = nil

	err := j.Left.Close()
	if rightErr := j.Right.Close(); err == nil {
		err = rightErr
	}
	return err
}

// mergeRows combines a probe row and a build row into a fresh row.
func mergeRows(left, right types.Row) types.Row {
	out := make(types.Row, len(left)+len(right))
	for name, value := range left {
		out[name] = value
	}
	for name, value := range right {
		out[name] = value
	}
	return out
}

// nullRow builds an all-null row over the given columns.
func nullRow(columns []string) types.Row {
	out := make(types.Row, len(columns))
	for _, name := range columns {
		out[name] = nil
	}
	return out
}
