// Package plan builds the logical plan for a parsed query, validates it
// against the source schemas, and runs the optimizer pipeline:
// partition pruning, predicate pushdown, column pruning, and limit
// pushdown. Each rule records an audit entry surfaced through explain.
package plan

import (
	"strings"

	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/reader"
	"github.com/vegasq/tablecat/types"
)

// Node is a logical plan operator. Every node has a stable, computable
// output schema.
type Node interface {
	Schema() *types.Schema
}

// ScanNode reads one source through a bound reader. When an alias is
// set, emitted column names are prefixed with "alias.".
type ScanNode struct {
	Source string // display name of the source
	Alias  string
	Reader reader.Reader

	// BaseSchema is the reader's schema with unprefixed names.
	BaseSchema *types.Schema

	// Hints mirrors what was pushed into the reader, for explain.
	Required         []string
	Pushed           []types.Predicate
	RowCap           *int64
	PartitionFilters []types.Predicate
}

// Prefixed maps a reader column name to its emitted name.
func (s *ScanNode) Prefixed(name string) string {
	if s.Alias == "" {
		return name
	}
	return s.Alias + "." + name
}

// Unprefixed maps an emitted column name back to the reader's name,
// reporting whether the name belongs to this scan.
func (s *ScanNode) Unprefixed(name string) (string, bool) {
	if s.Alias == "" {
		if s.BaseSchema.Has(name) {
			return name, true
		}
		return "", false
	}
	stripped, ok := strings.CutPrefix(name, s.Alias+".")
	if !ok || !s.BaseSchema.Has(stripped) {
		return "", false
	}
	return stripped, true
}

// Schema returns the scan's output schema, alias-prefixed and narrowed
// by column pruning.
func (s *ScanNode) Schema() *types.Schema {
	out := types.NewSchema()
	for _, col := range s.BaseSchema.Columns() {
		if s.Required != nil && !containsString(s.Required, col.Name) {
			continue
		}
		out.Add(s.Prefixed(col.Name), col.Type)
	}
	return out
}

// FilterNode keeps only rows satisfying a residual predicate.
type FilterNode struct {
	Child Node
	Cond  query.Expr
}

// Schema forwards the child schema.
func (f *FilterNode) Schema() *types.Schema {
	return f.Child.Schema()
}

// ProjectNode evaluates the SELECT list.
type ProjectNode struct {
	Child Node
	Items []query.SelectItem
}

// Schema derives the projected schema from the select items.
func (p *ProjectNode) Schema() *types.Schema {
	child := p.Child.Schema()
	out := types.NewSchema()
	for _, item := range p.Items {
		if _, ok := item.Expr.(query.Star); ok {
			for _, col := range child.Columns() {
				out.Add(col.Name, col.Type)
			}
			continue
		}
		out.Add(item.OutputName(), selectExprType(item.Expr, child))
	}
	return out
}

// selectExprType computes an expression's static type against a schema.
func selectExprType(e query.SelectExpr, schema *types.Schema) types.DataType {
	switch v := e.(type) {
	case *query.ColumnRef:
		t, _ := schema.TypeOf(v.Column)
		return t
	case *query.Literal:
		return types.InferType(v.Value)
	case *query.AggregateCall:
		switch v.Func {
		case "COUNT":
			return types.TypeInteger
		case "AVG":
			if t, _ := schema.TypeOf(v.Column); t == types.TypeDecimal {
				return types.TypeDecimal
			}
			return types.TypeFloat
		default:
			if v.Star {
				return types.TypeNull
			}
			t, _ := schema.TypeOf(v.Column)
			return t
		}
	case *query.ArithExpr:
		left := selectExprType(v.Left, schema)
		right := selectExprType(v.Right, schema)
		t := types.Promote(left, right)
		if v.Op == query.ArithDiv && t == types.TypeInteger {
			return types.TypeFloat
		}
		return t
	default:
		return types.TypeNull
	}
}

// AggregateNode groups rows and computes aggregate expressions. Its
// output carries the group key columns plus one column per aggregate,
// named by the aggregate's default name.
type AggregateNode struct {
	Child   Node
	GroupBy []string
	Items   []query.SelectItem
}

// Schema lists group keys then aggregate outputs.
func (a *AggregateNode) Schema() *types.Schema {
	child := a.Child.Schema()
	out := types.NewSchema()
	for _, key := range a.GroupBy {
		t, _ := child.TypeOf(key)
		out.Add(key, t)
	}
	for _, item := range a.Items {
		for _, agg := range collectAggregates(item.Expr) {
			out.Add(agg.Name(), selectExprType(agg, child))
		}
	}
	return out
}

func collectAggregates(e query.SelectExpr) []*query.AggregateCall {
	switch v := e.(type) {
	case *query.AggregateCall:
		return []*query.AggregateCall{v}
	case *query.ArithExpr:
		return append(collectAggregates(v.Left), collectAggregates(v.Right)...)
	default:
		return nil
	}
}

// SortNode materializes and orders rows. NULLs sort last regardless of
// direction; ties preserve input order.
type SortNode struct {
	Child Node
	Keys  []query.OrderKey
}

// Schema forwards the child schema.
func (s *SortNode) Schema() *types.Schema {
	return s.Child.Schema()
}

// LimitNode bounds the output. N below zero means no cap (OFFSET
// without LIMIT).
type LimitNode struct {
	Child  Node
	N      int64
	Offset int64
}

// Schema forwards the child schema.
func (l *LimitNode) Schema() *types.Schema {
	return l.Child.Schema()
}

// JoinNode joins two inputs on an equi-condition.
type JoinNode struct {
	Left  Node
	Right Node
	Kind  query.JoinKind
	On    query.Expr
}

// Schema merges the two input schemas.
func (j *JoinNode) Schema() *types.Schema {
	return j.Left.Schema().Merge(j.Right.Schema())
}

// Plan is the optimizable logical plan plus the optimizer audit trail.
type Plan struct {
	Root  Node
	Audit []AuditEntry
}

// AuditEntry records one optimizer rule's outcome.
type AuditEntry struct {
	Rule    string
	Applied bool
	Note    string
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// scans collects the plan's scan nodes left to right.
func scans(n Node) []*ScanNode {
	switch v := n.(type) {
	case *ScanNode:
		return []*ScanNode{v}
	case *FilterNode:
		return scans(v.Child)
	case *ProjectNode:
		return scans(v.Child)
	case *AggregateNode:
		return scans(v.Child)
	case *SortNode:
		return scans(v.Child)
	case *LimitNode:
		return scans(v.Child)
	case *JoinNode:
		return append(scans(v.Left), scans(v.Right)...)
	default:
		return nil
	}
}
