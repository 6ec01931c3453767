package plan

import (
	"fmt"
	"strings"
)

// explainOrder fixes the display order of the audit lines.
var explainOrder = []string{
	"predicate_pushdown",
	"column_pruning",
	"limit_pushdown",
	"partition_pruning",
}

// Explain renders the operator nesting and the optimizer audit as
// deterministic, human-readable text.
func (p *Plan) Explain() string {
	var b strings.Builder
	explainNode(&b, p.Root, 0)

	b.WriteString("Optimizations:\n")
	for _, rule := range explainOrder {
		for _, entry := range p.Audit {
			if entry.Rule != rule {
				continue
			}
			status := entry.Note
			if status == "" {
				if entry.Applied {
					status = "applied"
				} else {
					status = "skipped"
				}
			} else if entry.Applied && !strings.HasPrefix(status, "applied") {
				status = "applied (" + status + ")"
			} else if !entry.Applied && !strings.HasPrefix(status, "not applicable") && !strings.HasPrefix(status, "skipped") {
				status = "skipped (" + status + ")"
			}
			fmt.Fprintf(&b, "  %s: %s\n", entry.Rule, status)
		}
	}

	return b.String()
}

func explainNode(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch v := n.(type) {
	case *LimitNode:
		if v.Offset > 0 {
			fmt.Fprintf(b, "%sLimit(%d offset=%d)\n", indent, v.N, v.Offset)
		} else {
			fmt.Fprintf(b, "%sLimit(%d)\n", indent, v.N)
		}
		explainNode(b, v.Child, depth+1)
	case *SortNode:
		keys := make([]string, len(v.Keys))
		for i, key := range v.Keys {
			dir := "ASC"
			if key.Desc {
				dir = "DESC"
			}
			keys[i] = key.Column + " " + dir
		}
		fmt.Fprintf(b, "%sSort(%s)\n", indent, strings.Join(keys, ", "))
		explainNode(b, v.Child, depth+1)
	case *ProjectNode:
		names := make([]string, len(v.Items))
		for i, item := range v.Items {
			names[i] = item.OutputName()
		}
		fmt.Fprintf(b, "%sProject(%s)\n", indent, strings.Join(names, ", "))
		explainNode(b, v.Child, depth+1)
	case *AggregateNode:
		var aggs []string
		for _, item := range v.Items {
			for _, agg := range collectAggregates(item.Expr) {
				aggs = append(aggs, agg.Name())
			}
		}
		fmt.Fprintf(b, "%sAggregate(group=[%s] aggs=[%s])\n",
			indent, strings.Join(v.GroupBy, ","), strings.Join(aggs, ","))
		explainNode(b, v.Child, depth+1)
	case *FilterNode:
		fmt.Fprintf(b, "%sFilter(%s)\n", indent, v.Cond)
		explainNode(b, v.Child, depth+1)
	case *JoinNode:
		cond := ""
		if v.On != nil {
			cond = ", " + v.On.String()
		}
		fmt.Fprintf(b, "%sJoin(%s%s)\n", indent, v.Kind, cond)
		explainNode(b, v.Left, depth+1)
		explainNode(b, v.Right, depth+1)
	case *ScanNode:
		fmt.Fprintf(b, "%sScan(%s)%s\n", indent, v.Source, scanHints(v))
	default:
		fmt.Fprintf(b, "%s%T\n", indent, n)
	}
}

func scanHints(v *ScanNode) string {
	var parts []string
	if v.Required != nil {
		parts = append(parts, fmt.Sprintf("columns=[%s]", strings.Join(v.Required, ",")))
	}
	if len(v.Pushed) > 0 {
		preds := make([]string, len(v.Pushed))
		for i, pred := range v.Pushed {
			preds[i] = pred.String()
		}
		parts = append(parts, fmt.Sprintf("pushdown_filters=[%s]", strings.Join(preds, ",")))
	}
	if v.RowCap != nil {
		parts = append(parts, fmt.Sprintf("row_cap=%d", *v.RowCap))
	}
	if len(v.PartitionFilters) > 0 {
		preds := make([]string, len(v.PartitionFilters))
		for i, pred := range v.PartitionFilters {
			preds[i] = pred.String()
		}
		parts = append(parts, fmt.Sprintf("partition_filters=[%s]", strings.Join(preds, ",")))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
