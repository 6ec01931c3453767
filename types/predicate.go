package types

import (
	"fmt"
)

// Predicate is a simple predicate of the form `column op literal`.
// Simple predicates are the only filter shape that travels down to
// readers as a pushdown hint; conjunctions are expressed as slices.
type Predicate struct {
	Column string
	Op     CompareOp
	Value  any
}

// String renders the predicate as "column op value".
func (p Predicate) String() string {
	return fmt.Sprintf("%s%s%s", p.Column, p.Op, CanonicalString(p.Value))
}

// Matches evaluates the predicate against a row. A null column value
// never matches, regardless of the operator.
func (p Predicate) Matches(row Row) (bool, error) {
	v, ok := row[p.Column]
	if !ok || v == nil {
		return false, nil
	}
	result, null, err := Apply(v, p.Op, p.Value)
	if err != nil {
		return false, err
	}
	if null {
		return false, nil
	}
	return result, nil
}

// MatchesAll evaluates a conjunction of predicates against a row.
func MatchesAll(preds []Predicate, row Row) (bool, error) {
	for _, p := range preds {
		ok, err := p.Matches(row)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
