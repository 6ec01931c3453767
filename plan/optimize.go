package plan

import (
	"fmt"

	"github.com/vegasq/tablecat/logger"
	"github.com/vegasq/tablecat/query"
	"github.com/vegasq/tablecat/types"
)

// Optimize runs the rewrite pipeline in its fixed order. Every rule is
// idempotent; each records an audit entry.
func (p *Plan) Optimize() {
	rules := []struct {
		name  string
		apply func(*Plan) (bool, string)
	}{
		{"partition_pruning", partitionPruning},
		{"predicate_pushdown", predicatePushdown},
		{"column_pruning", columnPruning},
		{"limit_pushdown", limitPushdown},
	}

	for _, rule := range rules {
		applied, note := rule.apply(p)
		p.Audit = append(p.Audit, AuditEntry{Rule: rule.name, Applied: applied, Note: note})
		logger.Debug().
			Str("rule", rule.name).
			Bool("applied", applied).
			Str("note", note).
			Msg("optimizer rule")
	}
}

// partitioned is implemented by readers with Hive-style partitions.
type partitioned interface {
	PartitionKeys() []string
}

// partitionPruning extracts simple predicates over partition keys and
// hands them to the owning scan's reader. Pruning is exact, so the
// predicates are consumed from the residual filter.
func partitionPruning(p *Plan) (bool, string) {
	filter := findFilter(p.Root)
	if filter == nil {
		return false, "no partitions"
	}

	partitionedScans := 0
	consumed := 0
	conjuncts := query.SplitConjuncts(filter.Cond)
	var residual []query.Expr

	for _, conjunct := range conjuncts {
		moved := false
		if pred, ok := query.AsSimplePredicate(conjunct); ok {
			for _, scan := range scans(p.Root) {
				pr, ok := scan.Reader.(partitioned)
				if !ok {
					continue
				}
				partitionedScans++
				stripped, owned := scan.Unprefixed(pred.Column)
				if !owned || !containsString(pr.PartitionKeys(), stripped) {
					continue
				}
				local := types.Predicate{Column: stripped, Op: pred.Op, Value: pred.Value}
				scan.PartitionFilters = appendPredicate(scan.PartitionFilters, local)
				scan.Reader.SetPartitionFilters(scan.PartitionFilters)
				moved = true
				consumed++
				break
			}
		}
		if !moved {
			residual = append(residual, conjunct)
		}
	}

	if partitionedScans == 0 {
		return false, "no partitions"
	}
	if consumed == 0 {
		return false, "no predicates over partition keys"
	}

	setFilterConjuncts(p, filter, residual)
	return true, fmt.Sprintf("applied (%d predicate(s) consumed)", consumed)
}

// predicatePushdown attaches pushable conjuncts to the scans that own
// their columns. Scans on the null-producing side of an outer join are
// excluded, and conjuncts spanning more than one scan stay residual.
func predicatePushdown(p *Plan) (bool, string) {
	filter := findFilter(p.Root)
	if filter == nil {
		return false, "no filter"
	}

	protected := protectedScans(p.Root)
	conjuncts := query.SplitConjuncts(filter.Cond)
	var residual []query.Expr
	pushed := 0

	for _, conjunct := range conjuncts {
		pred, ok := query.AsSimplePredicate(conjunct)
		if !ok {
			residual = append(residual, conjunct)
			continue
		}

		var owner *ScanNode
		var stripped string
		owners := 0
		for _, scan := range scans(p.Root) {
			if name, owned := scan.Unprefixed(pred.Column); owned {
				owners++
				owner = scan
				stripped = name
			}
		}
		if owners != 1 || protected[owner] {
			residual = append(residual, conjunct)
			continue
		}

		local := types.Predicate{Column: stripped, Op: pred.Op, Value: pred.Value}
		accepted := owner.Reader.SetPushdownFilters([]types.Predicate{local})
		if len(accepted) == 0 {
			residual = append(residual, conjunct)
			continue
		}
		owner.Pushed = appendPredicate(owner.Pushed, local)
		pushed++
	}

	if pushed == 0 {
		return false, "no pushable conjuncts"
	}

	setFilterConjuncts(p, filter, residual)
	return true, fmt.Sprintf("applied (%d conjunct(s))", pushed)
}

// columnPruning computes the upward union of required columns and
// narrows every scan to its share of it.
func columnPruning(p *Plan) (bool, string) {
	required, star := requiredColumns(p.Root)
	if star {
		return false, "skipped (SELECT *)"
	}

	total := 0
	kept := 0
	for _, scan := range scans(p.Root) {
		total += scan.BaseSchema.Len()
		var cols []string
		for _, name := range required {
			if stripped, owned := scan.Unprefixed(name); owned && !containsString(cols, stripped) {
				cols = append(cols, stripped)
			}
		}
		// Columns of consumed pushdown filters stay required so the
		// explain output names what the reader still reads.
		for _, pred := range scan.Pushed {
			if !containsString(cols, pred.Column) {
				cols = append(cols, pred.Column)
			}
		}
		scan.Required = cols
		scan.Reader.SetRequiredColumns(cols)
		kept += len(cols)
	}

	return true, fmt.Sprintf("applied (%d of %d columns)", kept, total)
}

// limitPushdown sets the scan's row cap when the pipeline between the
// root limit and a single scan is purely streaming and filter-free.
func limitPushdown(p *Plan) (bool, string) {
	limit, ok := p.Root.(*LimitNode)
	if !ok || limit.N < 0 {
		return false, "not applicable (no limit)"
	}

	node := limit.Child
	for {
		switch v := node.(type) {
		case *ProjectNode:
			node = v.Child
		case *ScanNode:
			rowCap := limit.N + limit.Offset
			v.Reader.SetRowCap(rowCap)
			v.RowCap = &rowCap
			return true, fmt.Sprintf("applied (n=%d)", rowCap)
		case *FilterNode:
			return false, "not applicable (residual filter above scan)"
		default:
			return false, "not applicable (blocking operator in pipeline)"
		}
	}
}

// requiredColumns unions column references across the plan. The bool
// result reports a SELECT * that defeats pruning.
func requiredColumns(n Node) ([]string, bool) {
	var cols []string
	star := false

	var walk func(Node)
	walk = func(node Node) {
		switch v := node.(type) {
		case *ScanNode:
		case *FilterNode:
			cols = v.Cond.Columns(cols)
			walk(v.Child)
		case *ProjectNode:
			for _, item := range v.Items {
				if _, ok := item.Expr.(query.Star); ok {
					star = true
					continue
				}
				cols = item.Expr.Columns(cols)
			}
			walk(v.Child)
		case *AggregateNode:
			cols = append(cols, v.GroupBy...)
			for _, item := range v.Items {
				cols = item.Expr.Columns(cols)
			}
			walk(v.Child)
		case *SortNode:
			for _, key := range v.Keys {
				cols = append(cols, key.Column)
			}
			walk(v.Child)
		case *LimitNode:
			walk(v.Child)
		case *JoinNode:
			if v.On != nil {
				cols = v.On.Columns(cols)
			}
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)

	return cols, star
}

// protectedScans marks scans whose rows an outer join can null-extend;
// pushing filters below them would change results.
func protectedScans(n Node) map[*ScanNode]bool {
	protected := make(map[*ScanNode]bool)

	var walk func(Node)
	mark := func(side Node) {
		for _, scan := range scans(side) {
			protected[scan] = true
		}
	}
	walk = func(node Node) {
		switch v := node.(type) {
		case *FilterNode:
			walk(v.Child)
		case *ProjectNode:
			walk(v.Child)
		case *AggregateNode:
			walk(v.Child)
		case *SortNode:
			walk(v.Child)
		case *LimitNode:
			walk(v.Child)
		case *JoinNode:
			switch v.Kind {
			case query.JoinLeft:
				mark(v.Right)
			case query.JoinRight:
				mark(v.Left)
			case query.JoinFull:
				mark(v.Left)
				mark(v.Right)
			}
			walk(v.Left)
			walk(v.Right)
		}
	}
	walk(n)

	return protected
}

// findFilter locates the residual filter node, if any.
func findFilter(n Node) *FilterNode {
	switch v := n.(type) {
	case *FilterNode:
		return v
	case *ProjectNode:
		return findFilter(v.Child)
	case *AggregateNode:
		return findFilter(v.Child)
	case *SortNode:
		return findFilter(v.Child)
	case *LimitNode:
		return findFilter(v.Child)
	default:
		return nil
	}
}

// setFilterConjuncts rewrites the residual filter with the remaining
// conjuncts, removing the node entirely when none remain.
func setFilterConjuncts(p *Plan, filter *FilterNode, conjuncts []query.Expr) {
	if len(conjuncts) > 0 {
		filter.Cond = query.JoinConjuncts(conjuncts)
		return
	}

	var rewrite func(Node) Node
	rewrite = func(node Node) Node {
		switch v := node.(type) {
		case *FilterNode:
			if v == filter {
				return v.Child
			}
			v.Child = rewrite(v.Child)
			return v
		case *ProjectNode:
			v.Child = rewrite(v.Child)
			return v
		case *AggregateNode:
			v.Child = rewrite(v.Child)
			return v
		case *SortNode:
			v.Child = rewrite(v.Child)
			return v
		case *LimitNode:
			v.Child = rewrite(v.Child)
			return v
		default:
			return node
		}
	}
	p.Root = rewrite(p.Root)
}

func appendPredicate(list []types.Predicate, pred types.Predicate) []types.Predicate {
	for _, existing := range list {
		if existing.Column == pred.Column && existing.Op == pred.Op {
			if existing.String() == pred.String() {
				return list
			}
		}
	}
	return append(list, pred)
}
