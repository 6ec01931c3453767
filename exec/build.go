package exec

import (
	"github.com/vegasq/tablecat/plan"
	"github.com/vegasq/tablecat/query"
)

// Build lowers an optimized logical plan into the operator tree. A
// RIGHT join executes as a LEFT join with the inputs swapped; the
// merged output is identical because rows merge by column name.
func Build(node plan.Node) (Operator, error) {
	switch v := node.(type) {
	case *plan.ScanNode:
		return &Scan{Source: v.Source, Alias: v.Alias, Reader: v.Reader}, nil

	case *plan.FilterNode:
		child, err := Build(v.Child)
		if err != nil {
			return nil, err
		}
		return &Filter{Child: child, Cond: v.Cond}, nil

	case *plan.ProjectNode:
		child, err := Build(v.Child)
		if err != nil {
			return nil, err
		}
		return &Project{Child: child, Items: v.Items}, nil

	case *plan.AggregateNode:
		child, err := Build(v.Child)
		if err != nil {
			return nil, err
		}
		return &Aggregate{Child: child, GroupBy: v.GroupBy, Items: v.Items}, nil

	case *plan.SortNode:
		child, err := Build(v.Child)
		if err != nil {
			return nil, err
		}
		return &Sort{Child: child, Keys: v.Keys}, nil

	case *plan.LimitNode:
		child, err := Build(v.Child)
		if err != nil {
			return nil, err
		}
		return &Limit{Child: child, N: v.N, Offset: v.Offset}, nil

	case *plan.JoinNode:
		left, err := Build(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := Build(v.Right)
		if err != nil {
			return nil, err
		}

		leftSchema, rightSchema := v.Left.Schema(), v.Right.Schema()
		leftKeys, rightKeys, err := ExtractEquiKeys(v.On, leftSchema, rightSchema)
		if err != nil {
			return nil, err
		}
		if v.Kind != query.JoinCross && len(leftKeys) == 0 {
			return nil, &UnsupportedJoinConditionError{Condition: condString(v.On)}
		}

		join := &HashJoin{
			Left:         left,
			Right:        right,
			Kind:         v.Kind,
			LeftKeys:     leftKeys,
			RightKeys:    rightKeys,
			LeftColumns:  leftSchema.Names(),
			RightColumns: rightSchema.Names(),
		}

		if v.Kind == query.JoinRight {
			join.Left, join.Right = right, left
			join.LeftKeys, join.RightKeys = rightKeys, leftKeys
			join.LeftColumns, join.RightColumns = join.RightColumns, join.LeftColumns
			join.Kind = query.JoinLeft
		}

		return join, nil

	default:
		return nil, &TypeError{Op: "build"}
	}
}

func condString(on query.Expr) string {
	if on == nil {
		return "<none>"
	}
	return on.String()
}
