// Package query provides SQL tokenization and parsing for the engine's
// dialect: SELECT with projection expressions and aggregates, FROM lists
// with inline quoted paths and aliases, JOIN ... ON, WHERE trees with
// AND/OR/NOT, GROUP BY, ORDER BY, LIMIT and OFFSET.
package query

import (
	"fmt"
	"strings"

	"github.com/vegasq/tablecat/types"
)

// Statement is a parsed SELECT query.
type Statement struct {
	Select  []SelectItem
	Sources []TableRef // comma-separated FROM list; commas mean CROSS JOIN
	Joins   []JoinClause
	Where   Expr
	GroupBy []string
	OrderBy []OrderKey
	Limit   *int64
	Offset  *int64
}

// TableRef names one source in the FROM list or a JOIN.
type TableRef struct {
	Source string // identifier or quoted path
	Quoted bool   // true when the source was a quoted path literal
	Alias  string
}

// JoinKind is the type of a JOIN clause.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

// String returns the SQL spelling of the join kind.
func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	default:
		return "?"
	}
}

// JoinClause is a single JOIN with its ON condition (nil for CROSS).
type JoinClause struct {
	Kind  JoinKind
	Table TableRef
	On    Expr
}

// OrderKey is one ORDER BY sort key.
type OrderKey struct {
	Column string
	Desc   bool
}

// SelectItem is one projection with an optional alias.
type SelectItem struct {
	Expr  SelectExpr
	Alias string
}

// OutputName returns the column name the item produces.
func (it SelectItem) OutputName() string {
	if it.Alias != "" {
		return it.Alias
	}
	return it.Expr.Name()
}

// SelectExpr is an expression usable in a SELECT list.
type SelectExpr interface {
	// Name is the default output column name when no alias is given.
	Name() string
	// Columns appends the column names the expression reads.
	Columns([]string) []string
}

// Star is the `*` projection.
type Star struct{}

func (Star) Name() string                 { return "*" }
func (Star) Columns(in []string) []string { return in }

// ColumnRef references a column by (possibly qualified) name.
type ColumnRef struct {
	Column string
}

func (c *ColumnRef) Name() string                 { return c.Column }
func (c *ColumnRef) Columns(in []string) []string { return append(in, c.Column) }

// Literal is a literal value in a projection.
type Literal struct {
	Value any
}

func (l *Literal) Name() string                 { return types.CanonicalString(l.Value) }
func (l *Literal) Columns(in []string) []string { return in }

// AggregateCall is COUNT/SUM/AVG/MIN/MAX over a column or `*`.
type AggregateCall struct {
	Func   string // upper-cased: COUNT, SUM, AVG, MIN, MAX
	Column string // empty when Star
	Star   bool   // COUNT(*)
}

func (a *AggregateCall) Name() string {
	if a.Star {
		return a.Func + "(*)"
	}
	return fmt.Sprintf("%s(%s)", a.Func, a.Column)
}

func (a *AggregateCall) Columns(in []string) []string {
	if a.Star {
		return in
	}
	return append(in, a.Column)
}

// ArithOp is an arithmetic operator in a projection expression.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
)

// String returns the operator's SQL spelling.
func (op ArithOp) String() string {
	switch op {
	case ArithAdd:
		return "+"
	case ArithSub:
		return "-"
	case ArithMul:
		return "*"
	case ArithDiv:
		return "/"
	default:
		return "?"
	}
}

// ArithExpr is a binary arithmetic expression over projections.
type ArithExpr struct {
	Left  SelectExpr
	Op    ArithOp
	Right SelectExpr
}

func (a *ArithExpr) Name() string {
	return fmt.Sprintf("%s %s %s", a.Left.Name(), a.Op, a.Right.Name())
}

func (a *ArithExpr) Columns(in []string) []string {
	return a.Right.Columns(a.Left.Columns(in))
}

// Expr is a boolean expression in a WHERE clause or join condition.
type Expr interface {
	// String renders the expression for explain output.
	String() string
	// Columns appends the column names the expression reads.
	Columns([]string) []string
}

// LogicalOp is AND or OR.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

func (op LogicalOp) String() string {
	if op == LogicalAnd {
		return "AND"
	}
	return "OR"
}

// BinaryExpr combines two boolean expressions with AND or OR.
type BinaryExpr struct {
	Left  Expr
	Op    LogicalOp
	Right Expr
}

func (b *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", b.Left, b.Op, b.Right)
}

func (b *BinaryExpr) Columns(in []string) []string {
	return b.Right.Columns(b.Left.Columns(in))
}

// NotExpr negates a boolean expression.
type NotExpr struct {
	Expr Expr
}

func (n *NotExpr) String() string               { return fmt.Sprintf("NOT (%s)", n.Expr) }
func (n *NotExpr) Columns(in []string) []string { return n.Expr.Columns(in) }

// ComparisonExpr compares a column to a literal.
type ComparisonExpr struct {
	Column string
	Op     types.CompareOp
	Value  any
}

func (c *ComparisonExpr) String() string {
	return fmt.Sprintf("%s %s %s", c.Column, c.Op, types.CanonicalString(c.Value))
}

func (c *ComparisonExpr) Columns(in []string) []string { return append(in, c.Column) }

// ColumnComparisonExpr compares two columns, as in join conditions.
type ColumnComparisonExpr struct {
	Left  string
	Op    types.CompareOp
	Right string
}

func (c *ColumnComparisonExpr) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

func (c *ColumnComparisonExpr) Columns(in []string) []string {
	return append(in, c.Left, c.Right)
}

// IsNullExpr is `column IS [NOT] NULL`.
type IsNullExpr struct {
	Column string
	Negate bool
}

func (i *IsNullExpr) String() string {
	if i.Negate {
		return i.Column + " IS NOT NULL"
	}
	return i.Column + " IS NULL"
}

func (i *IsNullExpr) Columns(in []string) []string { return append(in, i.Column) }

// InExpr is `column [NOT] IN (v1, v2, ...)`.
type InExpr struct {
	Column string
	Values []any
	Negate bool
}

func (i *InExpr) String() string {
	vals := make([]string, len(i.Values))
	for n, v := range i.Values {
		vals[n] = types.CanonicalString(v)
	}
	op := "IN"
	if i.Negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", i.Column, op, strings.Join(vals, ", "))
}

func (i *InExpr) Columns(in []string) []string { return append(in, i.Column) }

// LikeExpr is `column [NOT] LIKE 'pattern'` with % and _ wildcards.
type LikeExpr struct {
	Column  string
	Pattern string
	Negate  bool
}

func (l *LikeExpr) String() string {
	op := "LIKE"
	if l.Negate {
		op = "NOT LIKE"
	}
	return fmt.Sprintf("%s %s '%s'", l.Column, op, l.Pattern)
}

func (l *LikeExpr) Columns(in []string) []string { return append(in, l.Column) }

// BetweenExpr is `column [NOT] BETWEEN lower AND upper`.
type BetweenExpr struct {
	Column string
	Lower  any
	Upper  any
	Negate bool
}

func (b *BetweenExpr) String() string {
	op := "BETWEEN"
	if b.Negate {
		op = "NOT BETWEEN"
	}
	return fmt.Sprintf("%s %s %s AND %s", b.Column, op,
		types.CanonicalString(b.Lower), types.CanonicalString(b.Upper))
}

func (b *BetweenExpr) Columns(in []string) []string { return append(in, b.Column) }

// SplitConjuncts flattens top-level AND chains into a conjunct list.
func SplitConjuncts(expr Expr) []Expr {
	if expr == nil {
		return nil
	}
	if bin, ok := expr.(*BinaryExpr); ok && bin.Op == LogicalAnd {
		return append(SplitConjuncts(bin.Left), SplitConjuncts(bin.Right)...)
	}
	return []Expr{expr}
}

// JoinConjuncts rebuilds an AND chain from a conjunct list.
func JoinConjuncts(conjuncts []Expr) Expr {
	var out Expr
	for _, c := range conjuncts {
		if out == nil {
			out = c
			continue
		}
		out = &BinaryExpr{Left: out, Op: LogicalAnd, Right: c}
	}
	return out
}

// AsSimplePredicate converts a conjunct to a pushable simple predicate
// when it has the shape `column op literal`.
func AsSimplePredicate(expr Expr) (types.Predicate, bool) {
	cmp, ok := expr.(*ComparisonExpr)
	if !ok {
		return types.Predicate{}, false
	}
	return types.Predicate{Column: cmp.Column, Op: cmp.Op, Value: cmp.Value}, true
}

// HasAggregates reports whether any select item contains an aggregate.
func HasAggregates(items []SelectItem) bool {
	for _, it := range items {
		if containsAggregate(it.Expr) {
			return true
		}
	}
	return false
}

func containsAggregate(e SelectExpr) bool {
	switch v := e.(type) {
	case *AggregateCall:
		return true
	case *ArithExpr:
		return containsAggregate(v.Left) || containsAggregate(v.Right)
	default:
		return false
	}
}
