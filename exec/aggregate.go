package exec

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// Aggregate drains its child into a hash table keyed by the GROUP BY
// tuple and computes accumulator state per group. Output rows carry the
// group key columns plus one column per aggregate call, named by the
// call's default name. Group order is unspecified. Memory is linear in
// the number of distinct keys.
type Aggregate struct {
	Child   Operator
	GroupBy []string
	Items   []query.SelectItem

	groups map[string]*group
	order  []string
	pos    int
	closed bool

	aggs []*query.AggregateCall
}

type group struct {
	keyValues types.Row
	accs      []accumulator
}

// Open drains the child and accumulates group state.
func (a *Aggregate) Open() error {
	if err := a.Child.Open(); err != nil {
		return err
	}

	for _, item := range a.Items {
		a.aggs = append(a.aggs, collectAggCalls(item.Expr)...)
	}
	a.groups = make(map[string]*group)

	for {
		row, err := a.Child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		key, keyValues := a.groupKey(row)
		g, ok := a.groups[key]
		if !ok {
			g = &group{keyValues: keyValues}
			for _, agg := range a.aggs {
				g.accs = append(g.accs, newAccumulator(agg))
			}
			a.groups[key] = g
			a.order = append(a.order, key)
		}

		for i, agg := range a.aggs {
			var value any
			if !agg.Star {
				value = row[agg.Column]
			}
			if err := g.accs[i].observe(value); err != nil {
				return err
			}
		}
	}

	// A groupless aggregate over empty input still yields one row:
	// COUNT(*)=0 and null for the rest.
	if len(a.GroupBy) == 0 && len(a.groups) == 0 {
		g := &group{keyValues: types.Row{}}
		for _, agg := range a.aggs {
			g.accs = append(g.accs, newAccumulator(agg))
		}
		a.groups[""] = g
		a.order = append(a.order, "")
	}

	return nil
}

// groupKey renders the GROUP BY tuple as a hashable string.
func (a *Aggregate) groupKey(row types.Row) (string, types.Row) {
	keyValues := make(types.Row, len(a.GroupBy))
	var b strings.Builder
	for i, col := range a.GroupBy {
		if i > 0 {
			b.WriteString("\x00|\x00")
		}
		value := row[col]
		keyValues[col] = value
		if value == nil {
			b.WriteString("\x00null\x00")
		} else {
			fmt.Fprintf(&b, "%T:%s", value, types.CanonicalString(value))
		}
	}
	return b.String(), keyValues
}

// Next emits the finalized groups.
func (a *Aggregate) Next() (types.Row, error) {
	if a.pos >= len(a.order) {
		return nil, io.EOF
	}
	g := a.groups[a.order[a.pos]]
	a.pos++

	row := make(types.Row, len(a.GroupBy)+len(a.aggs))
	for col, value := range g.keyValues {
		row[col] = value
	}
	for i, agg := range a.aggs {
		row[agg.Name()] = g.accs[i].final()
	}
	return row, nil
}

// Close drops the hash table and closes the child.
func (a *Aggregate) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.groups = nil
	a.order = nil
	return a.Child.Close()
}

func collectAggCalls(e query.SelectExpr) []*query.AggregateCall {
	switch v := e.(type) {
	case *query.AggregateCall:
		return []*query.AggregateCall{v}
	case *query.ArithExpr:
		return append(collectAggCalls(v.Left), collectAggCalls(v.Right)...)
	default:
		return nil
	}
}

// accumulator is per-group aggregate state.
type accumulator interface {
	observe(value any) error
	final() any
}

func newAccumulator(agg *query.AggregateCall) accumulator {
	switch agg.Func {
	case "COUNT":
		return &countAcc{star: agg.Star}
	case "SUM":
		return &sumAcc{}
	case "AVG":
		return &avgAcc{}
	case "MIN":
		return &extremeAcc{min: true}
	default:
		return &extremeAcc{}
	}
}

// countAcc counts rows (COUNT(*)) or non-null values (COUNT(col)).
type countAcc struct {
	star  bool
	count int64
}

func (c *countAcc) observe(value any) error {
	if c.star || value != nil {
		c.count++
	}
	return nil
}

func (c *countAcc) final() any {
	return c.count
}

// sumAcc sums numeric inputs, following numeric promotion of what it
// observes. An integer sum promotes to decimal on overflow risk and
// stays there. A sum over no non-null inputs is null.
type sumAcc struct {
	seen    bool
	kind    types.DataType
	intSum  int64
	fltSum  float64
	decSum  decimal.Decimal
}

func (s *sumAcc) observe(value any) error {
	if value == nil {
		return nil
	}
	value = types.Canonical(value)
	vt := types.InferType(value)
	if !vt.IsNumeric() {
		return &TypeError{Op: "SUM", Left: vt, Right: types.TypeFloat}
	}

	if !s.seen {
		s.seen = true
		s.kind = types.TypeInteger
	}

	s.promote(types.Promote(s.kind, vt))

	switch s.kind {
	case types.TypeInteger:
		n := value.(int64)
		sum := s.intSum + n
		// Overflow check; on risk, promote to decimal and redo.
		if (n > 0 && sum < s.intSum) || (n < 0 && sum > s.intSum) {
			s.promote(types.TypeDecimal)
			s.decSum = s.decSum.Add(decimal.NewFromInt(n))
			return nil
		}
		s.intSum = sum
	case types.TypeFloat:
		s.fltSum += toFloat(value)
	default:
		s.decSum = s.decSum.Add(toDecimal(value))
	}
	return nil
}

// promote widens the accumulator, carrying the running sum along.
func (s *sumAcc) promote(to types.DataType) {
	if to == s.kind {
		return
	}
	switch {
	case s.kind == types.TypeInteger && to == types.TypeFloat:
		s.fltSum = float64(s.intSum)
	case s.kind == types.TypeInteger && to == types.TypeDecimal:
		s.decSum = decimal.NewFromInt(s.intSum)
	case s.kind == types.TypeFloat && to == types.TypeDecimal:
		s.decSum = decimal.NewFromFloat(s.fltSum)
	default:
		return
	}
	s.kind = to
}

func (s *sumAcc) final() any {
	if !s.seen {
		return nil
	}
	switch s.kind {
	case types.TypeInteger:
		return s.intSum
	case types.TypeFloat:
		return s.fltSum
	default:
		return s.decSum
	}
}

// avgAcc tracks (sum, count); the final value is sum/count in float, or
// decimal when the inputs were decimal. Null when count is zero.
type avgAcc struct {
	sum   sumAcc
	count int64
}

func (a *avgAcc) observe(value any) error {
	if value == nil {
		return nil
	}
	if err := a.sum.observe(value); err != nil {
		return err
	}
	a.count++
	return nil
}

func (a *avgAcc) final() any {
	if a.count == 0 {
		return nil
	}
	switch total := a.sum.final().(type) {
	case int64:
		return float64(total) / float64(a.count)
	case float64:
		return total / float64(a.count)
	case decimal.Decimal:
		return total.Div(decimal.NewFromInt(a.count))
	default:
		return nil
	}
}

// extremeAcc tracks MIN or MAX using the comparability rules. Null when
// every input was null.
type extremeAcc struct {
	min     bool
	seen    bool
	current any
}

func (e *extremeAcc) observe(value any) error {
	if value == nil {
		return nil
	}
	value = types.Canonical(value)
	if !e.seen {
		e.seen = true
		e.current = value
		return nil
	}
	cmp, err := types.Order(value, e.current)
	if err != nil {
		op := "MAX"
		if e.min {
			op = "MIN"
		}
		return wrapCompareErr(op, err)
	}
	if (e.min && cmp < 0) || (!e.min && cmp > 0) {
		e.current = value
	}
	return nil
}

func (e *extremeAcc) final() any {
	if !e.seen {
		return nil
	}
	return e.current
}
